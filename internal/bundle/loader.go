package bundle

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"textheads/internal/calibrate"
	"textheads/internal/graph"
)

// State classifies the outcome of loading one bundle directory.
type State string

const (
	// StateLoaded means the bundle is fully usable, calibrated or not.
	StateLoaded State = "loaded"
	// StateSkipped means the directory is not a bundle (missing model
	// or config file). Intentional absence, never an error.
	StateSkipped State = "skipped"
	// StateDegraded means the bundle loaded but its calibration file
	// was malformed; the head runs uncalibrated.
	StateDegraded State = "degraded"
)

// Outcome reports what happened for one subdirectory during discovery.
// Bundle is nil when State is StateSkipped.
type Outcome struct {
	Head   string
	Dir    string
	State  State
	Reason string
	Bundle *SessionBundle
}

// Discover scans the immediate subdirectories of baseDir in
// case-insensitive lexicographic order, the deterministic head order
// used everywhere downstream. A subdirectory qualifies only when both
// the model file and the config file are present; others are skipped
// without error. A missing base directory or zero qualifying
// subdirectories fails the run.
func Discover(baseDir string) ([]Outcome, error) {
	info, err := os.Stat(baseDir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("base directory not found or not a directory: %s", baseDir)
	}

	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read base directory %s: %w", baseDir, err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return strings.ToLower(entries[i].Name()) < strings.ToLower(entries[j].Name())
	})

	var outcomes []Outcome
	loaded := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(baseDir, e.Name())
		if !fileExists(filepath.Join(dir, ModelFile)) || !fileExists(filepath.Join(dir, ConfigFile)) {
			outcomes = append(outcomes, Outcome{
				Head:   e.Name(),
				Dir:    dir,
				State:  StateSkipped,
				Reason: "missing model or config file",
			})
			continue
		}
		out, err := Build(dir)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, out)
		loaded++
	}

	if loaded == 0 {
		return nil, fmt.Errorf("no model bundles discovered under %s", baseDir)
	}
	return outcomes, nil
}

// Loaded filters discovery outcomes down to the usable session
// bundles, preserving discovery order.
func Loaded(outcomes []Outcome) []*SessionBundle {
	var bundles []*SessionBundle
	for _, o := range outcomes {
		if o.Bundle != nil {
			bundles = append(bundles, o.Bundle)
		}
	}
	return bundles
}

// Build loads one bundle directory into a runnable session, resolving
// the actual input and output tensor names against the loaded graph.
func Build(dir string) (Outcome, error) {
	head := filepath.Base(dir)
	out := Outcome{Head: head, Dir: dir}

	model, err := graph.Load(filepath.Join(dir, ModelFile))
	if err != nil {
		return out, fmt.Errorf("bundle %s: %w", head, err)
	}
	session, err := graph.NewSession(model)
	if err != nil {
		return out, fmt.Errorf("bundle %s: %w", head, err)
	}

	var config ModelConfig
	if err := readJSON(filepath.Join(dir, ConfigFile), &config); err != nil {
		return out, fmt.Errorf("bundle %s: invalid config: %w", head, err)
	}

	inputName, inputRule := ResolveInput(session.Inputs(), config.InputTensorName)
	outputName, outputRule := ResolveOutput(session.Outputs(), config.OutputTensorName)
	if inputName == "" || outputName == "" {
		return out, fmt.Errorf("bundle %s: graph declares no usable tensors", head)
	}
	if inputRule != "config-declared" || outputRule != "config-declared" {
		log.Debug().Str("head", head).
			Str("input", inputName).Str("input_rule", inputRule).
			Str("output", outputName).Str("output_rule", outputRule).
			Msg("resolved tensor names via fallback rules")
	}

	sb := &SessionBundle{
		Head:        head,
		Session:     session,
		InputName:   inputName,
		OutputName:  outputName,
		ClassLabels: config.ClassLabels,
	}

	out.State = StateLoaded
	cal, calErr := loadCalibration(filepath.Join(dir, CalibrationFile))
	if calErr != nil {
		// malformed calibration degrades the head, never fails it
		out.State = StateDegraded
		out.Reason = calErr.Error()
		log.Warn().Str("head", head).Err(calErr).Msg("ignoring malformed calibration, head runs uncalibrated")
	}
	sb.Calibration = cal
	out.Bundle = sb

	log.Info().Str("head", head).Bool("calibrated", cal != nil).Msg("loaded model bundle")
	return out, nil
}

// loadCalibration parses calibration.json. Absence returns (nil, nil).
// A parseable file with any shape other than platt parameters with
// numeric a and b is reported as malformed; the caller degrades the
// head rather than failing.
func loadCalibration(path string) (*calibrate.Parameters, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read calibration: %w", err)
	}

	var cd CalibrationData
	if err := json.Unmarshal(data, &cd); err != nil {
		return nil, fmt.Errorf("parse calibration: %w", err)
	}
	if cd.CalibrationType != calibrate.TypePlatt {
		return nil, fmt.Errorf("unsupported calibration type %q", cd.CalibrationType)
	}
	a, okA := cd.Parameters["a"]
	b, okB := cd.Parameters["b"]
	if !okA || !okB {
		return nil, fmt.Errorf("calibration parameters missing a or b")
	}
	return &calibrate.Parameters{A: a, B: b, Type: calibrate.TypePlatt}, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
