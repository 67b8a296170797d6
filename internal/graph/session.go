package graph

import (
	"fmt"

	"textheads/internal/pipeline"
)

// Value is one materialized tensor produced by a session run.
// Exactly one of Floats, Ints, or Maps is populated, matching Type.
type Value struct {
	Type   string
	Dims   []int64
	Floats [][]float64
	Ints   []int64
	Maps   []map[string]float64
}

// Session is a loaded, runnable graph. It is built once and then used
// read-only; a session performs no internal locking and owns no shared
// mutable state, so independent sessions never interfere.
type Session struct {
	model *Model
	vec   *pipeline.Vectorizer
	clf   *pipeline.LogReg
}

// NewSession prepares a runnable session from a validated graph.
func NewSession(m *Model) (*Session, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}
	vp := m.Params.Vectorizer
	vec := &pipeline.Vectorizer{
		Config: pipeline.VectorizerConfig{
			NgramMin:     vp.NgramMin,
			NgramMax:     vp.NgramMax,
			MinDF:        1,
			StripAccents: vp.StripAccents,
			Lowercase:    vp.Lowercase,
			SublinearTF:  vp.SublinearTF,
			L2Normalize:  vp.L2Normalize,
		},
		Vocab: vp.Vocabulary,
		IDF:   vp.IDF,
	}
	clf := &pipeline.LogReg{
		Coef:      m.Params.Linear.Coef,
		Intercept: m.Params.Linear.Intercept,
	}
	return &Session{model: m, vec: vec, clf: clf}, nil
}

// Inputs returns the graph's declared input tensors.
func (s *Session) Inputs() []TensorInfo { return s.model.Inputs }

// Outputs returns the graph's declared output tensors.
func (s *Session) Outputs() []TensorInfo { return s.model.Outputs }

// HasInput reports whether the graph exposes an input with this name.
func (s *Session) HasInput(name string) bool {
	for _, in := range s.model.Inputs {
		if in.Name == name {
			return true
		}
	}
	return false
}

// HasOutput reports whether the graph exposes an output with this name.
func (s *Session) HasOutput(name string) bool {
	for _, out := range s.model.Outputs {
		if out.Name == name {
			return true
		}
	}
	return false
}

// Run feeds texts into the named input tensor and fetches one output.
func (s *Session) Run(inputName string, texts []string, fetch string) (Value, error) {
	if !s.HasInput(inputName) {
		return Value{}, fmt.Errorf("graph has no input %q", inputName)
	}
	out, ok := s.outputInfo(fetch)
	if !ok {
		return Value{}, fmt.Errorf("graph has no output %q", fetch)
	}
	if len(texts) == 0 {
		return Value{}, fmt.Errorf("empty input batch")
	}

	probs := s.clf.PredictProba(s.vec.Transform(texts))
	n := int64(len(texts))

	switch out.Type {
	case TypeInt64:
		labels := make([]int64, len(probs))
		for i, p := range probs {
			if p >= 0.5 {
				labels[i] = 1
			}
		}
		return Value{Type: TypeInt64, Dims: []int64{n}, Ints: labels}, nil
	case TypeFloatMap:
		keys := s.model.Params.ClassKeys
		if len(keys) != 2 {
			return Value{}, fmt.Errorf("keyed output %q has %d class keys, want 2", fetch, len(keys))
		}
		maps := make([]map[string]float64, len(probs))
		for i, p := range probs {
			maps[i] = map[string]float64{keys[0]: 1 - p, keys[1]: p}
		}
		return Value{Type: TypeFloatMap, Dims: []int64{n}, Maps: maps}, nil
	case TypeFloat:
		rows := make([][]float64, len(probs))
		for i, p := range probs {
			rows[i] = []float64{1 - p, p}
		}
		return Value{Type: TypeFloat, Dims: []int64{n, 2}, Floats: rows}, nil
	default:
		return Value{}, fmt.Errorf("output %q has unsupported type %q", fetch, out.Type)
	}
}

func (s *Session) outputInfo(name string) (TensorInfo, bool) {
	for _, out := range s.model.Outputs {
		if out.Name == name {
			return out, true
		}
	}
	return TensorInfo{}, false
}
