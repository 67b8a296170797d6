package trainer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverrideApplySparse(t *testing.T) {
	t.Parallel()

	c := 1.5
	minDF := 3
	o := Override{C: &c, MinDF: &minDF, NgramRange: []int{1, 3}}

	p := o.Apply("spam", DefaultParams())
	assert.Equal(t, 1.5, p.C)
	assert.Equal(t, 3, p.MinDF)
	assert.Equal(t, 1, p.NgramMin)
	assert.Equal(t, 3, p.NgramMax)
	// untouched fields keep their defaults
	assert.Equal(t, 0.2, p.TestFraction)
	assert.Equal(t, int64(42), p.Seed)
}

func TestOverrideApplyEmptyKeepsBase(t *testing.T) {
	t.Parallel()

	base := DefaultParams()
	assert.Equal(t, base, Override{}.Apply("spam", base))
}

func TestOverrideCharFeaturesIgnored(t *testing.T) {
	t.Parallel()

	o := Override{CharNgramRange: []int{2, 4}}
	p := o.Apply("spam", DefaultParams())
	// char request must not alter the word-feature parameters
	assert.Equal(t, DefaultParams(), p)
}

func TestLoadOverrides(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "overrides.json")
	body := `{"label_spam": {"C": 2.0, "word_ngram_range": [1, 1]}}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	overrides, err := LoadOverrides(path)
	require.NoError(t, err)
	require.Contains(t, overrides, "label_spam")

	p := overrides["label_spam"].Apply("spam", DefaultParams())
	assert.Equal(t, 2.0, p.C)
	assert.Equal(t, 1, p.NgramMax)
}

func TestLoadOverridesEmptyPath(t *testing.T) {
	t.Parallel()

	overrides, err := LoadOverrides("")
	require.NoError(t, err)
	assert.Nil(t, overrides)
}

func TestLoadOverridesBadJSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "overrides.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := LoadOverrides(path)
	assert.Error(t, err)
}
