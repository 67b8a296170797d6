package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"textheads/internal/bundle"
	"textheads/internal/cfg"
	"textheads/internal/dataset"
	"textheads/internal/registry"
	"textheads/internal/trainer"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// stringList collects repeatable flag values
type stringList []string

func (s *stringList) String() string     { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error { *s = append(*s, v); return nil }

func main() {
	var labelCols stringList
	var (
		outDir       = flag.String("out", "models", "Output base directory for model bundles")
		configPath   = flag.String("config", "", "JSON file with sparse per-head parameter overrides")
		opset        = flag.Int("opset", 0, "Target graph opset version (overrides config)")
		zipmap       = flag.Bool("zipmap", false, "Wrap output probabilities in a keyed map")
		registryPath = flag.String("registry", "", "Optional training-run registry database path")
		logLevel     = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	)
	flag.Var(&labelCols, "label", "Label column name (repeatable; inferred from label_ prefix when omitted)")
	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	_ = godotenv.Load()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: train [flags] <training-csv>")
		flag.PrintDefaults()
		os.Exit(2)
	}
	csvPath := flag.Arg(0)

	settings, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	if *opset != 0 {
		settings.Opset = *opset
	}
	if *zipmap {
		settings.ZipMap = true
	}
	if *registryPath != "" {
		settings.RegistryPath = *registryPath
	}

	ds, cols, err := dataset.Parse(csvPath, labelCols)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load training data")
	}

	overrides, err := trainer.LoadOverrides(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load overrides")
	}

	var reg *registry.Registry
	if settings.RegistryPath != "" {
		reg, err = registry.Open(settings.RegistryPath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open training registry")
		}
		defer reg.Close()
	}

	defaults := trainer.DefaultParams()
	defaults.TestFraction = settings.TestFraction
	defaults.Seed = settings.Seed
	defaults.C = settings.C
	defaults.NgramMin = settings.NgramMin
	defaults.NgramMax = settings.NgramMax
	defaults.MinDF = settings.MinDF
	defaults.StripAccents = settings.StripAccents

	exported := 0
	results := make([]trainer.HeadResult, 0, len(cols))
	for i, col := range cols {
		head := dataset.HeadName(col)
		log.Info().Int("n", i+1).Int("total", len(cols)).Str("head", head).Msg("training head")

		params := defaults
		if o, ok := overrides[col]; ok {
			params = o.Apply(head, params)
		}

		res, err := trainer.TrainHead(col, ds, params)
		if err != nil {
			log.Fatal().Err(err).Msg("training failed")
		}
		results = append(results, res)
		if res.Skipped {
			continue
		}

		// export failure for any head aborts the whole run
		dir, err := bundle.Export(*outDir, bundle.ExportRequest{
			Head:        res.Head,
			Pipeline:    res.Pipeline,
			Calibration: res.Calibration,
			Opset:       settings.Opset,
			ZipMap:      settings.ZipMap,
			NgramMin:    params.NgramMin,
			NgramMax:    params.NgramMax,
			MinDF:       params.MinDF,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("bundle export failed")
		}
		exported++

		if reg != nil {
			rec := registry.RunRecord{
				Head:         res.Head,
				TrainedAt:    time.Now(),
				BundlePath:   dir,
				Metrics:      res.Metrics,
				Calibrated:   !res.Calibration.IsIdentity(),
				TrainingRows: ds.Len(),
			}
			if err := reg.Record(rec); err != nil {
				log.Warn().Err(err).Str("head", res.Head).Msg("failed to record training run")
			}
		}
	}

	if exported == 0 {
		log.Fatal().Msg("no heads could be trained")
	}
	summarize(results)
}

// summarize flags heads whose held-out ROC-AUC suggests too little or
// too noisy training data.
func summarize(results []trainer.HeadResult) {
	for _, r := range results {
		if r.Skipped {
			log.Warn().Str("head", r.Head).Str("reason", r.SkipReason).Msg("head skipped")
			continue
		}
		auc := r.Metrics.ROCAUC
		switch {
		case auc < 0.7:
			log.Warn().Str("head", r.Head).Float64("roc_auc", auc).Msg("poor separation, needs more training data")
		case auc < 0.85:
			log.Info().Str("head", r.Head).Float64("roc_auc", auc).Msg("fair separation, could use more data")
		case auc > 0.95:
			log.Warn().Str("head", r.Head).Float64("roc_auc", auc).Msg("suspiciously high separation, check for overfitting")
		default:
			log.Info().Str("head", r.Head).Float64("roc_auc", auc).Msg("good separation")
		}
	}
}
