// Package cfg loads runtime configuration for the training and
// serving binaries. Settings come from a YAML file pointed at by
// CONFIG_FILE, with individual environment variables taking
// precedence, and are validated before use.
package cfg

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"textheads/internal/graph"
)

// Settings are the effective, validated runtime settings.
type Settings struct {
	// serving
	Port      int
	ModelsDir string
	// per-head decision thresholds for serve mode
	Thresholds map[string]float64

	// training defaults (overridable per head via the overrides JSON)
	TestFraction float64
	Seed         int64
	Opset        int
	ZipMap       bool
	C            float64
	NgramMin     int
	NgramMax     int
	MinDF        int
	StripAccents string
	RegistryPath string
}

// ConfigFile is the YAML layout.
type ConfigFile struct {
	Serving struct {
		Port       int                `yaml:"port"`
		ModelsDir  string             `yaml:"modelsDir"`
		Thresholds map[string]float64 `yaml:"thresholds"`
	} `yaml:"serving"`

	Training struct {
		TestFraction float64 `yaml:"testFraction"`
		Seed         int64   `yaml:"seed"`
		Opset        int     `yaml:"opset"`
		ZipMap       bool    `yaml:"zipmap"`
		C            float64 `yaml:"c"`
		NgramMin     int     `yaml:"ngramMin"`
		NgramMax     int     `yaml:"ngramMax"`
		MinDF        int     `yaml:"minDF"`
		StripAccents string  `yaml:"stripAccents"`
		RegistryPath string  `yaml:"registryPath"`
	} `yaml:"training"`
}

func defaults() Settings {
	return Settings{
		Port:         8080,
		ModelsDir:    "models",
		Thresholds:   map[string]float64{},
		TestFraction: 0.2,
		Seed:         42,
		Opset:        13,
		C:            0.5,
		NgramMin:     1,
		NgramMax:     2,
		MinDF:        1,
	}
}

// Load reads settings from the YAML file named by CONFIG_FILE when
// set, then applies environment overrides, then validates.
func Load() (Settings, error) {
	s := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		var file ConfigFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
		}
		applyFile(&s, file)
	}
	applyEnv(&s)

	if err := validate(&s); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return s, nil
}

func applyFile(s *Settings, f ConfigFile) {
	if f.Serving.Port != 0 {
		s.Port = f.Serving.Port
	}
	if f.Serving.ModelsDir != "" {
		s.ModelsDir = f.Serving.ModelsDir
	}
	if len(f.Serving.Thresholds) > 0 {
		s.Thresholds = f.Serving.Thresholds
	}
	if f.Training.TestFraction != 0 {
		s.TestFraction = f.Training.TestFraction
	}
	if f.Training.Seed != 0 {
		s.Seed = f.Training.Seed
	}
	if f.Training.Opset != 0 {
		s.Opset = f.Training.Opset
	}
	s.ZipMap = f.Training.ZipMap
	if f.Training.C != 0 {
		s.C = f.Training.C
	}
	if f.Training.NgramMin != 0 {
		s.NgramMin = f.Training.NgramMin
	}
	if f.Training.NgramMax != 0 {
		s.NgramMax = f.Training.NgramMax
	}
	if f.Training.MinDF != 0 {
		s.MinDF = f.Training.MinDF
	}
	if f.Training.StripAccents != "" {
		s.StripAccents = f.Training.StripAccents
	}
	if f.Training.RegistryPath != "" {
		s.RegistryPath = f.Training.RegistryPath
	}
}

func applyEnv(s *Settings) {
	s.Port = getIntOrDefault("PORT", s.Port)
	s.ModelsDir = getEnvOrDefault("MODELS_DIR", s.ModelsDir)
	s.TestFraction = getFloatOrDefault("TEST_FRACTION", s.TestFraction)
	s.Seed = int64(getIntOrDefault("TRAIN_SEED", int(s.Seed)))
	s.Opset = getIntOrDefault("OPSET", s.Opset)
	s.ZipMap = getBoolOrDefault("ZIPMAP", s.ZipMap)
	s.C = getFloatOrDefault("LOGREG_C", s.C)
	s.MinDF = getIntOrDefault("MIN_DF", s.MinDF)
	s.StripAccents = getEnvOrDefault("STRIP_ACCENTS", s.StripAccents)
	s.RegistryPath = getEnvOrDefault("REGISTRY_PATH", s.RegistryPath)
}

func validate(s *Settings) error {
	if s.Port < 1024 || s.Port > 65535 {
		return fmt.Errorf("port must be between 1024 and 65535, got %d", s.Port)
	}
	if s.ModelsDir == "" {
		return fmt.Errorf("models directory cannot be empty")
	}
	if s.TestFraction <= 0 || s.TestFraction >= 1 {
		return fmt.Errorf("test fraction must be in (0,1), got %f", s.TestFraction)
	}
	if s.Opset < graph.MinOpset || s.Opset > graph.MaxOpset {
		return fmt.Errorf("opset must be between %d and %d, got %d", graph.MinOpset, graph.MaxOpset, s.Opset)
	}
	if s.C <= 0 {
		return fmt.Errorf("regularization strength C must be positive, got %f", s.C)
	}
	if s.NgramMin < 1 || s.NgramMax < s.NgramMin {
		return fmt.Errorf("invalid ngram range (%d,%d)", s.NgramMin, s.NgramMax)
	}
	if s.MinDF < 1 {
		return fmt.Errorf("min document frequency must be at least 1, got %d", s.MinDF)
	}
	for head, t := range s.Thresholds {
		if t < 0 || t > 1 {
			return fmt.Errorf("threshold for %s must be in [0,1], got %f", head, t)
		}
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}
