package storage

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/cockroachdb/errors"
)

// jsonFloat encodes +Inf, -Inf and NaN as strings, which plain JSON numbers
// cannot hold. A stuck fit can end with an infinite chi squared.
type jsonFloat float64

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return []byte(strconv.Quote(strconv.FormatFloat(v, 'g', -1, 64))), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
}

func (f *jsonFloat) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	if len(s) > 0 && s[0] == '"' {
		var err error
		if s, err = strconv.Unquote(s); err != nil {
			return errors.Wrapf(err, "number %s", data)
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return errors.Wrapf(err, "number %s", data)
	}
	*f = jsonFloat(v)
	return nil
}

func toJSONFloats(vs []float64) []jsonFloat {
	if vs == nil {
		return nil
	}
	out := make([]jsonFloat, len(vs))
	for i, v := range vs {
		out[i] = jsonFloat(v)
	}
	return out
}

func fromJSONFloats(vs []jsonFloat) []float64 {
	if vs == nil {
		return nil
	}
	out := make([]float64, len(vs))
	for i, v := range vs {
		out[i] = float64(v)
	}
	return out
}

func toJSONMap(m map[string]float64) map[string]jsonFloat {
	if m == nil {
		return nil
	}
	out := make(map[string]jsonFloat, len(m))
	for k, v := range m {
		out[k] = jsonFloat(v)
	}
	return out
}

func fromJSONMap(m map[string]jsonFloat) map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = float64(v)
	}
	return out
}

// metaAlias drops the methods of RunMetadata so runJSON can embed it.
type metaAlias RunMetadata

// runJSON shadows the float fields of RunMetadata that can go non-finite.
type runJSON struct {
	*metaAlias
	Params            []jsonFloat          `json:"params"`
	ChiSquared        jsonFloat            `json:"chi_squared"`
	ReducedChiSquared jsonFloat            `json:"reduced_chi_squared"`
	Derived           map[string]jsonFloat `json:"derived,omitempty"`
	Settings          map[string]jsonFloat `json:"settings,omitempty"`
}

func newRunJSON(m *RunMetadata) runJSON {
	return runJSON{
		metaAlias:         (*metaAlias)(m),
		Params:            toJSONFloats(m.Params),
		ChiSquared:        jsonFloat(m.ChiSquared),
		ReducedChiSquared: jsonFloat(m.ReducedChiSquared),
		Derived:           toJSONMap(m.Derived),
		Settings:          toJSONMap(m.Settings),
	}
}

func (r runJSON) restore() {
	r.metaAlias.Params = fromJSONFloats(r.Params)
	r.metaAlias.ChiSquared = float64(r.ChiSquared)
	r.metaAlias.ReducedChiSquared = float64(r.ReducedChiSquared)
	r.metaAlias.Derived = fromJSONMap(r.Derived)
	r.metaAlias.Settings = fromJSONMap(r.Settings)
}

func (m RunMetadata) MarshalJSON() ([]byte, error) {
	return json.Marshal(newRunJSON(&m))
}

func (m *RunMetadata) UnmarshalJSON(data []byte) error {
	r := runJSON{metaAlias: (*metaAlias)(m)}
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	r.restore()
	return nil
}

type sampleJSON struct {
	X        jsonFloat `json:"x"`
	Y        jsonFloat `json:"y"`
	Err      jsonFloat `json:"err"`
	Fitted   jsonFloat `json:"fitted"`
	Residual jsonFloat `json:"residual"`
}

type exportJSON struct {
	runJSON
	Samples []sampleJSON `json:"samples"`
}

func (d ExportData) MarshalJSON() ([]byte, error) {
	out := exportJSON{runJSON: newRunJSON(&d.RunMetadata), Samples: make([]sampleJSON, len(d.Samples))}
	for i, smp := range d.Samples {
		out.Samples[i] = sampleJSON{
			X:        jsonFloat(smp.X),
			Y:        jsonFloat(smp.Y),
			Err:      jsonFloat(smp.Err),
			Fitted:   jsonFloat(smp.Fitted),
			Residual: jsonFloat(smp.Residual),
		}
	}
	return json.Marshal(out)
}

func (d *ExportData) UnmarshalJSON(data []byte) error {
	in := exportJSON{runJSON: runJSON{metaAlias: (*metaAlias)(&d.RunMetadata)}}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	in.restore()
	d.Samples = make([]ExportSample, len(in.Samples))
	for i, smp := range in.Samples {
		d.Samples[i] = ExportSample{
			X:        float64(smp.X),
			Y:        float64(smp.Y),
			Err:      float64(smp.Err),
			Fitted:   float64(smp.Fitted),
			Residual: float64(smp.Residual),
		}
	}
	return nil
}
