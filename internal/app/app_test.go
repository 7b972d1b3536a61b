package app_test

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/physfit/internal/app"
	"github.com/san-kum/physfit/internal/config"
	"github.com/san-kum/physfit/internal/fit"
	"github.com/san-kum/physfit/internal/plot"
	"github.com/san-kum/physfit/internal/prompt"
	"github.com/san-kum/physfit/internal/storage"
)

type recordingSink struct {
	figures []plot.Figure
}

func (r *recordingSink) Render(fig plot.Figure) error {
	r.figures = append(r.figures, fig)
	return nil
}

func tempDir() string {
	dir, err := os.MkdirTemp("", "physfit-app")
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(os.RemoveAll, dir)
	return dir
}

func writeFile(dir, name, content string) string {
	path := filepath.Join(dir, name)
	Expect(os.WriteFile(path, []byte(content), 0644)).To(Succeed())
	return path
}

// Activity of the chain with lambda_rb 0.00052 and lambda_sr 0.0048 per
// second, in hours and TBq with 3% errors.
const decayFile1 = `time,activity,error
% first detector
0.1,228.849,6.865
0.3,198.313,5.949
0.5,137.672,4.13
0.7,94.718,2.842
0.9,65.139,1.954
1.05,900.0,1.5
1.1,44.796,1.344
1.3,30.807,0.924
1.5,21.186,0.636
1.7,14.569,0.437
1.9,10.019,0.301
abc,1,2
`

const decayFile2 = `time,activity,error
0.2,230.432,6.913
0.4,165.74,4.972
0.6,114.209,3.426
0.8,78.549,2.356
1.0,54.018,1.621
1.15,40,0
1.2,37.149,1.114
1.4,25.547,0.766
1.6,17.569,0.527
1.8,12.082,0.362
2.0,8.309,0.249
`

// Transmission for a 5.3 Å film at energies 0.2 to 0.98 eV, plus one
// outlier and one negative row.
const tunnelFile = `T,E,err
0.006682,0.2,0.0002005
0.007517,0.26,0.0002255
0.008481,0.32,0.0002544
0.0096,0.38,0.000288
0.010902,0.44,0.0003271
0.012427,0.5,0.0003728
0.014223,0.56,0.0004267
0.5,0.6,0.001
0.01635,0.62,0.0004905
0.018887,0.68,0.0005666
0.021938,0.74,0.0006581
-0.01,0.77,0.0006
0.025637,0.8,0.0007691
0.030168,0.86,0.000905
0.035784,0.92,0.0010735
0.042838,0.98,0.0012851
`

// Energies up to 2.2 eV sit above the mean barrier of a 5 Å film, where the
// model has no finite transmission.
const tunnelAboveBarrier = `T,E,err
0.006,0.2,0.0002
0.011,0.5,0.0003
0.09,1.5,0.003
0.15,1.8,0.005
0.3,2.2,0.01
`

var _ = Describe("RunBounce", func() {
	var out *bytes.Buffer

	BeforeEach(func() {
		out = &bytes.Buffer{}
	})

	It("re-prompts invalid answers and prints the kinematics", func() {
		env := app.Env{In: strings.NewReader("abc\n10\n20\n0.5\n9.81\n1\n0.7\n"), Out: out}

		b, err := app.RunBounce(context.Background(), env, config.BounceConfig{})
		Expect(err).NotTo(HaveOccurred())
		Expect(b.CompletedBounces()).To(Equal(8))

		text := out.String()
		Expect(text).To(ContainSubstring("The value given must be a number."))
		Expect(text).To(ContainSubstring("The value given is greater than 10 so please enter another value."))
		Expect(text).To(ContainSubstring("The value given must be less than 1 so please enter another value."))
		Expect(text).To(ContainSubstring("The ball dropped from 10.00 metres, bounced 8 times and in a time of 12.54 s"))
	})

	It("uses given values without prompting", func() {
		env := app.Env{Out: out}
		in := config.BounceConfig{H0: config.Float(10), HMin: config.Float(0.5), G: config.Float(9.81), Eta: config.Float(0.7)}

		_, err := app.RunBounce(context.Background(), env, in)
		Expect(err).NotTo(HaveOccurred())
		Expect(out.String()).NotTo(ContainSubstring("?"))
		Expect(out.String()).To(ContainSubstring("bounced 8 times"))
	})

	It("rejects given values outside the prompt bounds", func() {
		_, err := app.RunBounce(context.Background(), app.Env{Out: out}, config.BounceConfig{H0: config.Float(0.1)})
		Expect(errors.Is(err, fit.ErrInvalidInput)).To(BeTrue())
	})

	It("rejects a given zero instead of asking for it", func() {
		in := config.BounceConfig{H0: config.Float(10), HMin: config.Float(0.5), G: config.Float(9.81), Eta: config.Float(0)}

		_, err := app.RunBounce(context.Background(), app.Env{Out: out}, in)
		Expect(errors.Is(err, fit.ErrInvalidInput)).To(BeTrue())
		Expect(out.String()).NotTo(ContainSubstring("energy lost per bounce"))
	})

	It("gives up after the retry limit", func() {
		env := app.Env{In: strings.NewReader(strings.Repeat("x\n", prompt.DefaultMaxRetries)), Out: out}

		_, err := app.RunBounce(context.Background(), env, config.BounceConfig{})
		Expect(errors.Is(err, prompt.ErrRetriesExhausted)).To(BeTrue())
		Expect(errors.Is(err, fit.ErrInvalidInput)).To(BeTrue())
	})
})

var _ = Describe("RunDecay", func() {
	var (
		dir  string
		out  *bytes.Buffer
		sink *recordingSink
		cfg  config.DecayConfig
	)

	BeforeEach(func() {
		dir = tempDir()
		out = &bytes.Buffer{}
		sink = &recordingSink{}
		cfg = config.DefaultConfig().Decay
		cfg.Files = []string{
			writeFile(dir, "decay1.csv", decayFile1),
			writeFile(dir, "decay2.csv", decayFile2),
		}
	})

	It("fits both decay constants with the outlier excluded", func() {
		run, err := app.RunDecay(context.Background(), app.Env{Out: out, Sink: sink}, cfg)
		Expect(err).NotTo(HaveOccurred())

		Expect(run.Stats.Dropped).To(Equal(2))
		Expect(run.Excluded).To(Equal(1))
		Expect(run.Result.SampleCount).To(Equal(20))
		for _, s := range run.Data {
			Expect(s.Y).To(BeNumerically("<", 500e12))
		}

		Expect(run.Result.Converged).To(BeTrue())
		Expect(run.Result.Params[0]).To(BeNumerically("~", 0.00052, 0.00052*0.02))
		Expect(run.Result.Params[1]).To(BeNumerically("~", 0.0048, 0.0048*0.05))
		Expect(run.Result.ReducedChiSquared).To(BeNumerically("<", 1))

		text := out.String()
		Expect(text).To(MatchRegexp(`The value for the decay constant for Rubidium 79 is 0\.0005\d{2} per second\.`))
		Expect(text).To(MatchRegexp(`The value for the half life of Rubidium 79 is \d+\.\d minutes\.`))
		Expect(text).To(ContainSubstring("The value for the reduced chi squared is "))
		Expect(text).To(ContainSubstring("1 outlier excluded"))
		Expect(text).To(ContainSubstring("2 malformed rows dropped"))
		Expect(text).NotTo(ContainSubstring("warning"))

		Expect(sink.figures).To(HaveLen(1))
		fig := sink.figures[0]
		Expect(fig.Points).To(HaveLen(20))
		Expect(fig.Points[0].X).To(BeNumerically("~", 0.1, 1e-9))
		Expect(fig.Points[0].Y).To(BeNumerically("~", 228.849, 1e-6))
	})

	It("asks for two files when none are configured", func() {
		cfg.Files = nil
		in := strings.NewReader(filepath.Join(dir, "missing.csv") + "\n" +
			filepath.Join(dir, "decay1.csv") + "\n" +
			filepath.Join(dir, "decay2.csv") + "\n")

		run, err := app.RunDecay(context.Background(), app.Env{In: in, Out: out}, cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(run.Result.SampleCount).To(Equal(20))
		Expect(out.String()).To(ContainSubstring("This file does not exist."))
	})

	It("reports a flagged result when the iteration cap is hit", func() {
		cfg.MaxIter = 3

		run, err := app.RunDecay(context.Background(), app.Env{Out: out}, cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(run.Result.Converged).To(BeFalse())
		Expect(out.String()).To(ContainSubstring("The desired precision cannot be obtained"))
	})

	It("surfaces a missing configured file", func() {
		cfg.Files = []string{filepath.Join(dir, "nope.csv")}

		_, err := app.RunDecay(context.Background(), app.Env{Out: out}, cfg)
		Expect(errors.Is(err, fit.ErrMissingResource)).To(BeTrue())
		Expect(errors.GetAllHints(err)).NotTo(BeEmpty())
	})

	It("rejects invalid starting constants", func() {
		cfg.Initial = []float64{0.001, 0.001}

		_, err := app.RunDecay(context.Background(), app.Env{Out: out}, cfg)
		Expect(errors.Is(err, fit.ErrInvalidInput)).To(BeTrue())
	})
})

var _ = Describe("RunTunnel", func() {
	var (
		dir  string
		out  *bytes.Buffer
		sink *recordingSink
		cfg  config.TunnelConfig
	)

	BeforeEach(func() {
		dir = tempDir()
		out = &bytes.Buffer{}
		sink = &recordingSink{}
		cfg = config.DefaultConfig().Tunnel
		cfg.File = writeFile(dir, "bn.csv", tunnelFile)
	})

	It("climbs to the film thickness and flags the dead end", func() {
		run, err := app.RunTunnel(context.Background(), app.Env{Out: out, Sink: sink}, cfg)
		Expect(err).NotTo(HaveOccurred())

		Expect(run.Stats.Dropped).To(Equal(2))
		Expect(run.Excluded).To(Equal(1))
		Expect(run.Result.Params[0]).To(BeNumerically("~", 5.3, 1e-3))
		Expect(run.Result.Status).To(Equal(fit.Stuck.String()))
		Expect(run.Result.Converged).To(BeFalse())

		text := out.String()
		Expect(text).To(ContainSubstring("The value for the thickness of the Boron nitride sample is 5.300 Å."))
		Expect(text).To(ContainSubstring("The value for the number of layers is 2 layer(s)."))
		Expect(text).To(ContainSubstring("The desired precision cannot be obtained"))
		Expect(sink.figures).To(HaveLen(1))
	})

	It("seeds the climb from a thickness scan", func() {
		scan := config.GetPreset("tunnel", "scan").Tunnel
		scan.File = cfg.File
		scan.Initial = 9

		run, err := app.RunTunnel(context.Background(), app.Env{Out: out}, scan)
		Expect(err).NotTo(HaveOccurred())
		Expect(run.Result.Params[0]).To(BeNumerically("~", 5.3, 1e-3))
		Expect(run.Result.Method).To(Equal("grid+hill-climb"))
		Expect(run.Result.Evaluations).To(BeNumerically(">=", 81))
	})

	It("prompts for the data file", func() {
		cfg.File = ""
		in := strings.NewReader("nope.csv\n" + filepath.Join(dir, "bn.csv") + "\n")

		run, err := app.RunTunnel(context.Background(), app.Env{In: in, Out: out}, cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(run.Result.SampleCount).To(Equal(14))
		Expect(out.String()).To(ContainSubstring("What is the filepath of the data?"))
	})

	It("adds residual diagnostics on request", func() {
		_, err := app.RunTunnel(context.Background(), app.Env{Out: out, Diagnostics: true}, cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(out.String()).To(ContainSubstring("Durbin-Watson"))
	})

	It("saves a stuck fit with an infinite chi squared", func() {
		store := storage.New(filepath.Join(dir, "runs"))
		Expect(store.Init()).To(Succeed())
		cfg.File = writeFile(dir, "above.csv", tunnelAboveBarrier)
		cfg.OutlierK = 10

		run, err := app.RunTunnel(context.Background(), app.Env{Out: out, Sink: sink, Store: store}, cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(math.IsInf(run.Result.ChiSquared, 1)).To(BeTrue())
		Expect(run.Result.Converged).To(BeFalse())
		Expect(run.RunID).To(HavePrefix("tunnel_"))
		Expect(out.String()).To(ContainSubstring("The desired precision cannot be obtained"))
		Expect(sink.figures).To(HaveLen(1))

		runs, err := store.List()
		Expect(err).NotTo(HaveOccurred())
		Expect(runs).To(HaveLen(1))
		Expect(math.IsInf(runs[0].ReducedChiSquared, 1)).To(BeTrue())

		var exported bytes.Buffer
		Expect(app.ExportRun(app.Env{Out: &exported, Store: store}, run.RunID)).To(Succeed())
		Expect(exported.String()).To(ContainSubstring(`"+Inf"`))
	})

	It("stops when canceled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := app.RunTunnel(ctx, app.Env{Out: out}, cfg)
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
	})
})

var _ = Describe("saved runs", func() {
	var (
		dir   string
		out   *bytes.Buffer
		store *storage.Store
		id    string
	)

	BeforeEach(func() {
		dir = tempDir()
		out = &bytes.Buffer{}
		store = storage.New(filepath.Join(dir, "runs"))
		Expect(store.Init()).To(Succeed())

		cfg := config.DefaultConfig().Tunnel
		cfg.File = writeFile(dir, "bn.csv", tunnelFile)
		run, err := app.RunTunnel(context.Background(), app.Env{Out: out, Store: store}, cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(run.RunID).To(HavePrefix("tunnel_"))
		id = run.RunID
		out.Reset()
	})

	It("lists saved runs", func() {
		Expect(app.ListRuns(app.Env{Out: out, Store: store})).To(Succeed())
		Expect(out.String()).To(ContainSubstring(id))
		Expect(out.String()).To(ContainSubstring("thickness=5.3"))
	})

	It("shows a saved run", func() {
		Expect(app.ShowRun(app.Env{Out: out, Store: store}, id)).To(Succeed())
		Expect(out.String()).To(ContainSubstring("The value for the thickness is 5.3"))
		Expect(out.String()).To(ContainSubstring("The value for the layers is 1.767"))
	})

	It("plots a saved run from the rebuilt model", func() {
		sink := &recordingSink{}
		Expect(app.PlotRun(app.Env{Out: out, Store: store, Sink: sink}, id)).To(Succeed())
		Expect(sink.figures).To(HaveLen(1))
		Expect(sink.figures[0].Points).To(HaveLen(14))
		Expect(len(sink.figures[0].Curve)).To(BeNumerically(">", 14))
	})

	It("exports a saved run as JSON", func() {
		Expect(app.ExportRun(app.Env{Out: out, Store: store}, id)).To(Succeed())
		Expect(out.String()).To(ContainSubstring(`"experiment": "tunnel"`))
		Expect(out.String()).To(ContainSubstring(`"samples"`))
	})

	It("reports an unknown run as missing", func() {
		err := app.ShowRun(app.Env{Out: out, Store: store}, "tunnel_0")
		Expect(errors.Is(err, fit.ErrMissingResource)).To(BeTrue())
	})

	It("says so when nothing is saved", func() {
		empty := storage.New(filepath.Join(dir, "empty"))
		Expect(app.ListRuns(app.Env{Out: out, Store: empty})).To(Succeed())
		Expect(out.String()).To(ContainSubstring("no runs found"))
	})
})
