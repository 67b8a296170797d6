package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"textheads/internal/bundle"
	"textheads/internal/engine"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// stringList collects repeatable flag values
type stringList []string

func (s *stringList) String() string     { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error { *s = append(*s, v); return nil }

func main() {
	var thresholdSpecs stringList
	var (
		modelsDir = flag.String("models", "models", "Base directory containing per-head model bundles")
		asCSV     = flag.Bool("csv", false, "Output a CSV table instead of JSON Lines")
		noProb    = flag.Bool("no-prob", false, "Omit probabilities from the output")
		noHeader  = flag.Bool("no-header", false, "Do not print the CSV header row")
		logLevel  = flag.String("log-level", "warn", "Log level: debug, info, warn, error")
	)
	flag.Var(&thresholdSpecs, "threshold", "Per-head decision threshold as head=0.5 (repeatable)")
	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.WarnLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	_ = godotenv.Load()

	texts, err := readInputs(flag.Args())
	if err != nil {
		log.Fatal().Err(err).Msg("no input")
	}

	thresholds, err := engine.ParseThresholds(thresholdSpecs)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid threshold")
	}

	outcomes, err := bundle.Discover(*modelsDir)
	if err != nil {
		log.Fatal().Err(err).Msg("model discovery failed")
	}
	eng := engine.New(bundle.Loaded(outcomes), thresholds, nil)

	records := make([]engine.Record, 0, len(texts))
	for _, text := range texts {
		scores, err := eng.Evaluate(text)
		if err != nil {
			log.Fatal().Err(err).Msg("classification failed")
		}
		records = append(records, engine.Record{Text: text, Scores: scores})
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	if *asCSV {
		err = engine.WriteCSV(out, eng.Heads(), records, !*noProb, !*noHeader)
	} else {
		err = engine.WriteJSONL(out, records, !*noProb)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("failed to write output")
	}
}

// readInputs returns the single positional text, or non-empty stdin
// lines when no argument is given. Zero texts is fatal.
func readInputs(args []string) ([]string, error) {
	var texts []string
	if len(args) > 0 {
		if t := strings.TrimSpace(args[0]); t != "" {
			texts = append(texts, t)
		}
	} else {
		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			if t := strings.TrimSpace(scanner.Text()); t != "" {
				texts = append(texts, t)
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}
	if len(texts) == 0 {
		return nil, fmt.Errorf("no input provided: pass a TEXT argument or pipe lines via stdin")
	}
	return texts, nil
}
