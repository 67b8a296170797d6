// Package bundle defines the on-disk ModelBundle contract between
// training and inference, the exporter that writes it, and the loader
// that discovers bundle directories and builds runnable sessions from
// them. A bundle directory holds the serialized model graph, a config
// file with advisory tensor names and class labels, and an optional
// calibration file. The layout must remain stable across versions.
package bundle

import (
	"textheads/internal/calibrate"
	"textheads/internal/graph"
)

// Files that make up a ModelBundle directory.
const (
	ModelFile       = "model.json"
	ConfigFile      = "config.json"
	CalibrationFile = "calibration.json"
)

// ConfigVersion is written into every exported bundle config.
const ConfigVersion = "1.0.0"

// MaxSequenceLength declared in exported configs.
const MaxSequenceLength = 512

// ModelConfig mirrors config.json. The declared tensor names are
// advisory: the loader verifies them against the loaded graph and
// falls back to resolution heuristics when they do not match.
type ModelConfig struct {
	ModelName         string         `json:"modelName"`
	Version           string         `json:"version"`
	ClassLabels       []string       `json:"classLabels"`
	InputTensorName   string         `json:"inputTensorName"`
	OutputTensorName  string         `json:"outputTensorName"`
	MaxSequenceLength int            `json:"maxSequenceLength"`
	Vocabulary        map[string]int `json:"vocabulary"`
	Metadata          map[string]any `json:"metadata,omitempty"`
}

// CalibrationData mirrors calibration.json.
type CalibrationData struct {
	CalibrationType string             `json:"calibrationType"`
	Parameters      map[string]float64 `json:"parameters"`
}

// Session is the runnable model surface the inference engine consumes.
// *graph.Session is the production implementation.
type Session interface {
	Inputs() []graph.TensorInfo
	Outputs() []graph.TensorInfo
	Run(inputName string, texts []string, fetch string) (graph.Value, error)
}

// SessionBundle is one head's loaded, process-lifetime inference
// state: the runnable session, the resolved (not declared) tensor
// names, and the parsed calibration if any. Built once at discovery
// and reused read-only afterwards.
type SessionBundle struct {
	Head        string
	Session     Session
	InputName   string
	OutputName  string
	Calibration *calibrate.Parameters
	ClassLabels []string
}
