package storage

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	"github.com/san-kum/physfit/internal/fit"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID                string             `json:"id"`
	Experiment        string             `json:"experiment"`
	Timestamp         time.Time          `json:"timestamp"`
	Model             string             `json:"model"`
	Method            string             `json:"method"`
	Inputs            []string           `json:"inputs,omitempty"`
	ParamNames        []string           `json:"param_names,omitempty"`
	Params            []float64          `json:"params"`
	ChiSquared        float64            `json:"chi_squared"`
	ReducedChiSquared float64            `json:"reduced_chi_squared"`
	SampleCount       int                `json:"sample_count"`
	DegreesOfFreedom  int                `json:"degrees_of_freedom"`
	Iterations        int                `json:"iterations"`
	Converged         bool               `json:"converged"`
	Status            string             `json:"status"`
	Derived           map[string]float64 `json:"derived,omitempty"`
	Settings          map[string]float64 `json:"settings,omitempty"`
	Checksum          string             `json:"checksum,omitempty"`
}

func checksum(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}

// NewRunMetadata copies the outcome of a fit into a record.
func NewRunMetadata(experiment string, m fit.Model, res *fit.Result) RunMetadata {
	return RunMetadata{
		Experiment:        experiment,
		Model:             m.Name(),
		Method:            res.Method,
		Params:            res.Params.Clone(),
		ChiSquared:        res.ChiSquared,
		ReducedChiSquared: res.ReducedChiSquared,
		SampleCount:       res.SampleCount,
		DegreesOfFreedom:  res.DegreesOfFreedom,
		Iterations:        res.Iterations,
		Converged:         res.Converged,
		Status:            res.Status,
	}
}

// Save writes the run metadata and the fitted samples with the model
// prediction at each one.
func (s *Store) Save(meta RunMetadata, ds fit.DataSet, fitted []float64) (string, error) {
	if len(fitted) != len(ds) {
		return "", errors.Newf("storage: %d predictions for %d samples", len(fitted), len(ds))
	}

	var samples bytes.Buffer
	w := csv.NewWriter(&samples)
	if err := w.Write([]string{"x", "y", "err", "fitted", "residual"}); err != nil {
		return "", err
	}
	for i, smp := range ds {
		row := []string{
			strconv.FormatFloat(smp.X, 'g', -1, 64),
			strconv.FormatFloat(smp.Y, 'g', -1, 64),
			strconv.FormatFloat(smp.Err, 'g', -1, 64),
			strconv.FormatFloat(fitted[i], 'g', -1, 64),
			strconv.FormatFloat(smp.Y-fitted[i], 'g', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}

	now := time.Now()
	runID := fmt.Sprintf("%s_%d", meta.Experiment, now.UnixNano())
	meta.ID = runID
	meta.Timestamp = now
	meta.Checksum = checksum(samples.Bytes())

	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", errors.Wrapf(err, "run %s", runID)
	}

	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}
	if err := writeRun(runDir, metaJSON, samples.Bytes()); err != nil {
		_ = os.RemoveAll(runDir)
		return "", err
	}

	return runID, nil
}

func writeRun(runDir string, metaJSON, samples []byte) error {
	if err := os.WriteFile(filepath.Join(runDir, "samples.csv"), samples, 0644); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(runDir, "metadata.json"), append(metaJSON, '\n'), 0644)
}

// List returns every saved run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	metaPath := filepath.Join(s.baseDir, runID, "metadata.json")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WithHint(
				errors.Mark(errors.Wrapf(err, "run %s", runID), fit.ErrMissingResource),
				"use the list command to see saved runs")
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// LoadSamples returns the fitted samples of a run and the saved prediction
// for each.
func (s *Store) LoadSamples(runID string) (fit.DataSet, []float64, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "samples.csv"))
	if err != nil {
		return nil, nil, err
	}
	if meta.Checksum != "" && checksum(data) != meta.Checksum {
		return nil, nil, errors.WithHint(
			errors.Mark(errors.Newf("run %s: samples do not match checksum %s", runID, meta.Checksum), fit.ErrInvalidInput),
			"the run directory was edited after it was saved")
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}

	if len(records) < 2 {
		return fit.DataSet{}, []float64{}, nil
	}

	ds := make(fit.DataSet, 0, len(records)-1)
	fitted := make([]float64, 0, len(records)-1)

	for _, record := range records[1:] {
		if len(record) < 4 {
			continue
		}

		vals := make([]float64, 4)
		ok := true
		for j := range vals {
			v, err := strconv.ParseFloat(record[j], 64)
			if err != nil {
				ok = false
				break
			}
			vals[j] = v
		}
		if !ok {
			continue
		}
		ds = append(ds, fit.Sample{X: vals[0], Y: vals[1], Err: vals[2]})
		fitted = append(fitted, vals[3])
	}

	return ds, fitted, nil
}

type ExportData struct {
	RunMetadata
	Samples []ExportSample `json:"samples"`
}

type ExportSample struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Err      float64 `json:"err"`
	Fitted   float64 `json:"fitted"`
	Residual float64 `json:"residual"`
}

// Export writes a run and its samples as indented JSON.
func (s *Store) Export(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	ds, fitted, err := s.LoadSamples(runID)
	if err != nil {
		return err
	}

	data := ExportData{RunMetadata: *meta, Samples: make([]ExportSample, len(ds))}
	for i, smp := range ds {
		data.Samples[i] = ExportSample{X: smp.X, Y: smp.Y, Err: smp.Err, Fitted: fitted[i], Residual: smp.Y - fitted[i]}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
