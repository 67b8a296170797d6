package bundle

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"textheads/internal/calibrate"
	"textheads/internal/graph"
	"textheads/internal/pipeline"
)

// ExportRequest carries everything needed to write one head's bundle.
type ExportRequest struct {
	Head        string
	Pipeline    *pipeline.Pipeline
	Calibration calibrate.Parameters
	Opset       int
	ZipMap      bool

	// effective feature parameters, recorded in config metadata
	NgramMin int
	NgramMax int
	MinDF    int
}

// Export serializes the fitted pipeline into a portable graph and
// writes the ModelBundle directory <baseDir>/<head>. The calibration
// file is written only when the parameters differ from identity.
// Any failure here is fatal for the whole training run.
func Export(baseDir string, req ExportRequest) (string, error) {
	classLabels := []string{"no_" + req.Head, "has_" + req.Head}

	model, err := graph.Convert(req.Pipeline, graph.ConvertOptions{
		Opset:       req.Opset,
		ZipMap:      req.ZipMap,
		ClassLabels: classLabels,
	})
	if err != nil {
		return "", fmt.Errorf("head %s: graph export failed: %w", req.Head, err)
	}

	dir := filepath.Join(baseDir, req.Head)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("head %s: %w", req.Head, err)
	}

	modelPath := filepath.Join(dir, ModelFile)
	if err := model.Save(modelPath); err != nil {
		return "", fmt.Errorf("head %s: %w", req.Head, err)
	}

	config := ModelConfig{
		ModelName:         req.Head,
		Version:           ConfigVersion,
		ClassLabels:       classLabels,
		InputTensorName:   graph.InputName,
		OutputTensorName:  graph.ProbOutput,
		MaxSequenceLength: MaxSequenceLength,
		Metadata: map[string]any{
			"ngram_range": []int{req.NgramMin, req.NgramMax},
			"min_df":      req.MinDF,
			"zipmap":      req.ZipMap,
			"feature":     "tfidf_word",
		},
	}
	if err := writeJSON(filepath.Join(dir, ConfigFile), config); err != nil {
		return "", fmt.Errorf("head %s: %w", req.Head, err)
	}

	if !req.Calibration.IsIdentity() {
		calib := CalibrationData{
			CalibrationType: calibrate.TypePlatt,
			Parameters:      map[string]float64{"a": req.Calibration.A, "b": req.Calibration.B},
		}
		if err := writeJSON(filepath.Join(dir, CalibrationFile), calib); err != nil {
			return "", fmt.Errorf("head %s: %w", req.Head, err)
		}
	}

	log.Info().Str("head", req.Head).Str("dir", dir).
		Bool("calibrated", !req.Calibration.IsIdentity()).
		Msg("saved model bundle")
	return dir, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	return os.WriteFile(path, data, 0o600)
}
