// Package ingest reads measurement files into fit data sets.
package ingest

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/san-kum/physfit/internal/fit"
)

// Layout describes how to map a delimited file onto samples.
type Layout struct {
	// SkipHeader drops this many leading records before parsing.
	SkipHeader int
	// Comment starts a line that is ignored. Zero disables comments.
	Comment rune
	Delimiter rune

	XCol, YCol, ErrCol int

	// Scales multiply each column after parsing, e.g. hours to seconds.
	// Zero means 1.
	XScale, YScale, ErrScale float64

	// RejectNegative drops rows with any negative field.
	RejectNegative bool
}

// DefaultLayout is x, y, err with a single header line and '%' comments.
func DefaultLayout() Layout {
	return Layout{
		SkipHeader: 1,
		Comment:    '%',
		Delimiter:  ',',
		XCol:       0,
		YCol:       1,
		ErrCol:     2,
	}
}

// Stats counts what happened to the records of one or more files.
type Stats struct {
	Rows    int
	Kept    int
	Dropped int
}

func (s Stats) Add(o Stats) Stats {
	return Stats{Rows: s.Rows + o.Rows, Kept: s.Kept + o.Kept, Dropped: s.Dropped + o.Dropped}
}

// Read parses r and returns the valid samples sorted by x. Malformed rows
// are dropped and counted, never fatal.
func Read(r io.Reader, layout Layout) (fit.DataSet, Stats, error) {
	samples, stats, err := read(r, layout)
	if err != nil {
		return nil, stats, err
	}
	return fit.NewDataSet(samples), stats, nil
}

func read(r io.Reader, layout Layout) ([]fit.Sample, Stats, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true
	if layout.Delimiter != 0 {
		cr.Comma = layout.Delimiter
	}
	if layout.Comment != 0 {
		cr.Comment = layout.Comment
	}

	var stats Stats
	samples := make([]fit.Sample, 0)
	skipped := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				stats.Rows++
				stats.Dropped++
				continue
			}
			return nil, stats, errors.Wrap(err, "ingest: read")
		}
		if skipped < layout.SkipHeader {
			skipped++
			continue
		}
		if blank(record) {
			continue
		}

		stats.Rows++
		s, ok := layout.parse(record)
		if !ok {
			stats.Dropped++
			continue
		}
		stats.Kept++
		samples = append(samples, s)
	}
	return samples, stats, nil
}

func (l Layout) parse(record []string) (fit.Sample, bool) {
	need := max(l.XCol, l.YCol, l.ErrCol) + 1
	if len(record) < need {
		return fit.Sample{}, false
	}

	values := make([]float64, len(record))
	for i, field := range record {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return fit.Sample{}, false
		}
		if l.RejectNegative && v < 0 {
			return fit.Sample{}, false
		}
		values[i] = v
	}

	s := fit.Sample{
		X:   values[l.XCol] * scale(l.XScale),
		Y:   values[l.YCol] * scale(l.YScale),
		Err: values[l.ErrCol] * scale(l.ErrScale),
	}
	if !s.IsValid() {
		return fit.Sample{}, false
	}
	return s, true
}

func scale(f float64) float64 {
	if f == 0 {
		return 1
	}
	return f
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// ReadFile opens and parses a single file.
func ReadFile(path string, layout Layout) (fit.DataSet, Stats, error) {
	return ReadFiles([]string{path}, layout)
}

// ReadFiles merges several files into one sorted data set.
func ReadFiles(paths []string, layout Layout) (fit.DataSet, Stats, error) {
	var total Stats
	all := make([]fit.Sample, 0)
	for _, path := range paths {
		samples, stats, err := readPath(path, layout)
		if err != nil {
			return nil, total, err
		}
		total = total.Add(stats)
		all = append(all, samples...)
	}

	ds := fit.NewDataSet(all)
	if len(ds) == 0 {
		return nil, total, errors.Wrapf(fit.ErrEmptyDataSet, "no valid rows in %s", strings.Join(paths, ", "))
	}
	return ds, total, nil
}

func readPath(path string, layout Layout) ([]fit.Sample, Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, MissingFile(path, err)
	}
	defer f.Close()

	samples, stats, err := read(f, layout)
	if err != nil {
		return nil, stats, errors.Wrapf(err, "ingest: %s", path)
	}
	return samples, stats, nil
}

// MissingFile marks err as a missing resource with a corrective hint.
func MissingFile(path string, err error) error {
	err = errors.Mark(errors.Wrapf(err, "open %s", path), fit.ErrMissingResource)
	return errors.WithHint(err, "check the file name and extension; relative paths are resolved from the working directory")
}
