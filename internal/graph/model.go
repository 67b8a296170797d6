// Package graph defines the portable computation graph that a trained
// pipeline is exported to, and the session that executes it. The graph
// is a self-contained JSON document: declared typed inputs and outputs,
// an opset-versioned node list, and the fitted parameters. It is the
// on-disk contract between training and inference, so its layout must
// stay stable across versions.
package graph

import (
	"encoding/json"
	"fmt"
	"os"
)

// Supported opset range for the graph schema.
const (
	MinOpset = 9
	MaxOpset = 21
)

// Element types used in tensor declarations.
const (
	TypeString   = "string"
	TypeFloat    = "float"
	TypeInt64    = "int64"
	TypeFloatMap = "map(string,float)"
)

// DynamicDim marks a dimension whose size is only known at run time.
const DynamicDim = int64(-1)

// TensorInfo declares one graph input or output.
type TensorInfo struct {
	Name string  `json:"name"`
	Type string  `json:"type"`
	Dims []int64 `json:"dims"`
}

// Node is one operation in the graph.
type Node struct {
	Op      string   `json:"op"`
	Inputs  []string `json:"inputs"`
	Outputs []string `json:"outputs"`
}

// VectorizerParams holds the fitted feature-extraction state.
type VectorizerParams struct {
	NgramMin     int            `json:"ngram_min"`
	NgramMax     int            `json:"ngram_max"`
	StripAccents string         `json:"strip_accents,omitempty"`
	Lowercase    bool           `json:"lowercase"`
	SublinearTF  bool           `json:"sublinear_tf"`
	L2Normalize  bool           `json:"l2_normalize"`
	Vocabulary   map[string]int `json:"vocabulary"`
	IDF          []float64      `json:"idf"`
}

// LinearParams holds the fitted classifier weights.
type LinearParams struct {
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
}

// Params is the fitted state referenced by the node list.
type Params struct {
	Vectorizer VectorizerParams `json:"vectorizer"`
	Linear     LinearParams     `json:"linear"`
	// ClassKeys are the map keys emitted when the probability output
	// is the keyed-map form, ordered [negative, positive].
	ClassKeys []string `json:"class_keys,omitempty"`
}

// Model is the serialized computation graph.
type Model struct {
	Opset    int          `json:"opset"`
	Producer string       `json:"producer"`
	Inputs   []TensorInfo `json:"inputs"`
	Outputs  []TensorInfo `json:"outputs"`
	Nodes    []Node       `json:"nodes"`
	Params   Params       `json:"params"`
}

// Save writes the graph document to path.
func (m *Model) Save(path string) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal graph: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write graph: %w", err)
	}
	return nil
}

// Load reads and validates a graph document from path.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read graph: %w", err)
	}
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse graph: %w", err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Model) validate() error {
	if m.Opset < MinOpset || m.Opset > MaxOpset {
		return fmt.Errorf("unsupported opset %d (supported %d-%d)", m.Opset, MinOpset, MaxOpset)
	}
	if len(m.Inputs) == 0 {
		return fmt.Errorf("graph declares no inputs")
	}
	if len(m.Outputs) == 0 {
		return fmt.Errorf("graph declares no outputs")
	}
	if len(m.Params.Vectorizer.Vocabulary) == 0 {
		return fmt.Errorf("graph has no fitted vocabulary")
	}
	if len(m.Params.Vectorizer.IDF) != len(m.Params.Vectorizer.Vocabulary) {
		return fmt.Errorf("idf length %d does not match vocabulary size %d",
			len(m.Params.Vectorizer.IDF), len(m.Params.Vectorizer.Vocabulary))
	}
	if len(m.Params.Linear.Coef) != len(m.Params.Vectorizer.Vocabulary) {
		return fmt.Errorf("coefficient length %d does not match vocabulary size %d",
			len(m.Params.Linear.Coef), len(m.Params.Vectorizer.Vocabulary))
	}
	for _, n := range m.Nodes {
		switch n.Op {
		case OpVectorize, OpLinear, OpSigmoid, OpProbabilities, OpArgMax, OpZipMap:
		default:
			return fmt.Errorf("unknown graph op %q", n.Op)
		}
	}
	return nil
}
