// Package dataset loads and validates the labeled training table.
// It handles CSV sources from the local filesystem or over HTTP,
// infers label columns by naming convention, cleans text rows, and
// reports per-head class balance.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
)

const (
	textColumn  = "text"
	labelPrefix = "label_"

	// minTextLength is the trimmed length a row must exceed to be kept.
	minTextLength = 2
	// lowPositiveThreshold triggers the low-data warning for a head.
	lowPositiveThreshold = 50
)

// Dataset is the cleaned training table: texts plus one aligned 0/1
// label slice per label column.
type Dataset struct {
	Texts  []string
	Labels map[string][]int
}

// HeadName converts a label column name to its head name, stripping
// the convention prefix and lowercasing.
func HeadName(column string) string {
	return strings.ToLower(strings.TrimPrefix(column, labelPrefix))
}

// Parse reads the CSV at source (a path or an http(s) URL), validates
// it, and returns the cleaned dataset with its label columns in CSV
// order. Explicit label columns take precedence; otherwise every
// column starting with "label_" is used. Missing text column, missing
// label columns, or non-integer label values are fatal.
func Parse(source string, explicitLabels []string) (*Dataset, []string, error) {
	r, closer, err := open(source)
	if err != nil {
		return nil, nil, err
	}
	defer closer()

	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	indices := make(map[string]int, len(header))
	for i, col := range header {
		indices[col] = i
	}

	textIdx, ok := indices[textColumn]
	if !ok {
		return nil, nil, fmt.Errorf("training CSV must contain a %q column", textColumn)
	}

	labelCols := explicitLabels
	if len(labelCols) == 0 {
		for _, col := range header {
			if strings.HasPrefix(col, labelPrefix) {
				labelCols = append(labelCols, col)
			}
		}
	}
	if len(labelCols) == 0 {
		return nil, nil, fmt.Errorf("no label columns provided or inferred (need columns starting with %q)", labelPrefix)
	}
	var missing []string
	for _, col := range labelCols {
		if _, ok := indices[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("missing label columns: %s", strings.Join(missing, ", "))
	}

	ds := &Dataset{Labels: make(map[string][]int, len(labelCols))}
	dropped := 0
	row := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read CSV row %d: %w", row, err)
		}
		row++

		text := strings.TrimSpace(record[textIdx])
		if utf8.RuneCountInString(text) <= minTextLength {
			dropped++
			continue
		}

		values := make(map[string]int, len(labelCols))
		for _, col := range labelCols {
			v, err := parseLabel(record[indices[col]])
			if err != nil {
				return nil, nil, fmt.Errorf("label column %q row %d: %w", col, row, err)
			}
			values[col] = v
		}

		ds.Texts = append(ds.Texts, text)
		for _, col := range labelCols {
			ds.Labels[col] = append(ds.Labels[col], values[col])
		}
	}

	if dropped > 0 {
		log.Info().Int("rows", dropped).Msg("filtered out very short/empty text rows")
	}
	if len(ds.Texts) == 0 {
		return nil, nil, fmt.Errorf("no usable rows in %s", source)
	}

	logStats(ds, labelCols)
	return ds, labelCols, nil
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.Texts) }

// parseLabel casts a CSV cell to an integer label. Float-formatted
// integral values are accepted, anything else is an error.
func parseLabel(cell string) (int, error) {
	cell = strings.TrimSpace(cell)
	if v, err := strconv.Atoi(cell); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(cell, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("value %q is not castable to int", cell)
	}
	return int(f), nil
}

// logStats reports per-head class balance and warns on heads with few
// positive examples. The warning is informational only.
func logStats(ds *Dataset, labelCols []string) {
	total := ds.Len()
	log.Info().Int("samples", total).Int("heads", len(labelCols)).Msg("dataset loaded")

	for _, col := range labelCols {
		pos := 0
		for _, v := range ds.Labels[col] {
			if v != 0 {
				pos++
			}
		}
		neg := total - pos
		log.Info().
			Str("head", HeadName(col)).
			Int("positive", pos).
			Str("positive_pct", fmt.Sprintf("%.1f%%", pct(pos, total))).
			Int("negative", neg).
			Str("negative_pct", fmt.Sprintf("%.1f%%", pct(neg, total))).
			Msg("class distribution")
		if pos < lowPositiveThreshold {
			log.Warn().Str("head", HeadName(col)).Int("positive", pos).
				Msg("few positive examples, recommend at least 100")
		}
	}
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}
