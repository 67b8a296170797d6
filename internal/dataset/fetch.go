package dataset

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// open returns a reader over the CSV source. Sources with an http(s)
// scheme are fetched; anything else is treated as a local path.
func open(source string) (io.Reader, func(), error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return fetch(source)
	}

	f, err := os.Open(source)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func fetch(url string) (io.Reader, func(), error) {
	r := resty.New()
	r.SetTimeout(30 * time.Second)

	resp, err := r.R().Get(url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch CSV from %s: %w", url, err)
	}
	if resp.StatusCode() != 200 {
		return nil, nil, fmt.Errorf("failed to fetch CSV from %s: status %d", url, resp.StatusCode())
	}
	return bytes.NewReader(resp.Body()), func() {}, nil
}
