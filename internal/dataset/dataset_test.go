package dataset

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "train.csv")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestParseInfersLabelColumns(t *testing.T) {
	path := writeCSV(t, "text,label_spam,label_Fraud,notes\n"+
		"buy cheap meds now,1,0,x\n"+
		"see you at lunch,0,0,y\n"+
		"wire the funds today,0,1,z\n")

	ds, cols, err := Parse(path, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"label_spam", "label_Fraud"}, cols)
	assert.Equal(t, 3, ds.Len())
	assert.Equal(t, []int{1, 0, 0}, ds.Labels["label_spam"])
	assert.Equal(t, []int{0, 0, 1}, ds.Labels["label_Fraud"])
}

func TestParseExplicitLabelsTakePrecedence(t *testing.T) {
	path := writeCSV(t, "text,label_spam,label_fraud\n"+
		"buy cheap meds now,1,0\n"+
		"see you at lunch,0,1\n")

	ds, cols, err := Parse(path, []string{"label_fraud"})
	require.NoError(t, err)

	assert.Equal(t, []string{"label_fraud"}, cols)
	_, ok := ds.Labels["label_spam"]
	assert.False(t, ok, "unrequested columns must not be parsed")
}

func TestParseDropsShortTexts(t *testing.T) {
	path := writeCSV(t, "text,label_spam\n"+
		"ok,1\n"+
		"  a ,1\n"+
		",0\n"+
		"this one is long enough,0\n"+
		"so is this one,1\n")

	ds, _, err := Parse(path, nil)
	require.NoError(t, err)

	// rows with trimmed length <= 2 are gone, labels stay aligned
	assert.Equal(t, []string{"this one is long enough", "so is this one"}, ds.Texts)
	assert.Equal(t, []int{0, 1}, ds.Labels["label_spam"])
}

func TestParseAcceptsIntegralFloatLabels(t *testing.T) {
	path := writeCSV(t, "text,label_spam\n"+
		"integral float label row,1.0\n"+
		"plain integer label row,0\n")

	ds, _, err := Parse(path, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, ds.Labels["label_spam"])
}

func TestParseFatalErrors(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		labels []string
	}{
		{"missing text column", "body,label_spam\nhello there friend,1\n", nil},
		{"no label columns", "text,category\nhello there friend,spam\n", nil},
		{"explicit label column absent", "text,label_spam\nhello there friend,1\n", []string{"label_fraud"}},
		{"non-numeric label", "text,label_spam\nhello there friend,yes\n", nil},
		{"fractional label", "text,label_spam\nhello there friend,0.5\n", nil},
		{"all rows too short", "text,label_spam\nab,1\ncd,0\n", nil},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			path := writeCSV(t, tc.body)
			_, _, err := Parse(path, tc.labels)
			assert.Error(t, err)
		})
	}
}

func TestParseMissingFile(t *testing.T) {
	_, _, err := Parse(filepath.Join(t.TempDir(), "absent.csv"), nil)
	assert.Error(t, err)
}

func TestParseFromHTTP(t *testing.T) {
	body := "text,label_spam\nbuy cheap meds now,1\nsee you at lunch,0\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	ds, cols, err := Parse(srv.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"label_spam"}, cols)
	assert.Equal(t, 2, ds.Len())
}

func TestParseHTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	_, _, err := Parse(srv.URL, nil)
	assert.Error(t, err)
}

func TestHeadName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "spam", HeadName("label_spam"))
	assert.Equal(t, "fraud", HeadName("label_Fraud"))
	assert.Equal(t, "spam", HeadName("spam"), "prefix is optional")
}
