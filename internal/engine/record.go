package engine

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
)

// Record is one scored input text.
type Record struct {
	Text   string
	Scores []HeadScore
}

// MarshalJSONL renders the record as one JSON-Lines object with keys
// in head order: {"text":...,"p_<head>":<p>,"<head>":0|1,...}. The
// probability keys are omitted when includeProb is false.
func (r Record) MarshalJSONL(includeProb bool) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	writeKV := func(key string, value any) error {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		v, err := json.Marshal(value)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		return nil
	}

	if err := writeKV("text", r.Text); err != nil {
		return nil, err
	}
	for _, s := range r.Scores {
		if includeProb {
			if err := writeKV("p_"+s.Head, s.Probability); err != nil {
				return nil, err
			}
		}
		if err := writeKV(s.Head, s.Label); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// WriteJSONL writes records as JSON Lines.
func WriteJSONL(w io.Writer, records []Record, includeProb bool) error {
	for _, r := range records {
		line, err := r.MarshalJSONL(includeProb)
		if err != nil {
			return err
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			return err
		}
	}
	return nil
}

// WriteCSV writes records as a CSV table with header
// text,<head1>,...,p_<head1>,... Probabilities are printed with six
// decimals.
func WriteCSV(w io.Writer, heads []string, records []Record, includeProb, includeHeader bool) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if includeHeader {
		header := append([]string{"text"}, heads...)
		if includeProb {
			for _, h := range heads {
				header = append(header, "p_"+h)
			}
		}
		if err := cw.Write(header); err != nil {
			return err
		}
	}

	for _, r := range records {
		row := []string{r.Text}
		for _, s := range r.Scores {
			row = append(row, fmt.Sprintf("%d", s.Label))
		}
		if includeProb {
			for _, s := range r.Scores {
				row = append(row, fmt.Sprintf("%.6f", s.Probability))
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	return nil
}
