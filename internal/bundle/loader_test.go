package bundle

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"textheads/internal/calibrate"
	"textheads/internal/graph"
	"textheads/internal/pipeline"
)

func fitTestPipeline(t *testing.T) *pipeline.Pipeline {
	t.Helper()

	texts := []string{
		"claim your free prize now winner",
		"free money click the winner link",
		"you are a prize winner act now",
		"meeting moved to tuesday afternoon",
		"quarterly report attached for review",
		"lunch plans for the team offsite",
	}
	labels := []int{1, 1, 1, 0, 0, 0}

	p := pipeline.New(pipeline.DefaultVectorizerConfig(), pipeline.DefaultLogRegConfig())
	require.NoError(t, p.Fit(texts, labels))
	return p
}

func exportHead(t *testing.T, baseDir, head string, cal calibrate.Parameters) {
	t.Helper()

	_, err := Export(baseDir, ExportRequest{
		Head:        head,
		Pipeline:    fitTestPipeline(t),
		Calibration: cal,
		Opset:       13,
		NgramMin:    1,
		NgramMax:    2,
		MinDF:       1,
	})
	require.NoError(t, err)
}

func TestExportDiscoverRoundTrip(t *testing.T) {
	baseDir := t.TempDir()
	cal := calibrate.Parameters{A: 1.2, B: -0.3, Type: calibrate.TypePlatt}
	exportHead(t, baseDir, "spam", cal)

	outcomes, err := Discover(baseDir)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)

	out := outcomes[0]
	assert.Equal(t, StateLoaded, out.State)
	require.NotNil(t, out.Bundle)
	assert.Equal(t, "spam", out.Bundle.Head)
	assert.Equal(t, graph.InputName, out.Bundle.InputName)
	assert.Equal(t, graph.ProbOutput, out.Bundle.OutputName)
	assert.Equal(t, []string{"no_spam", "has_spam"}, out.Bundle.ClassLabels)

	require.NotNil(t, out.Bundle.Calibration)
	assert.InDelta(t, 1.2, out.Bundle.Calibration.A, 1e-12)
	assert.InDelta(t, -0.3, out.Bundle.Calibration.B, 1e-12)

	val, err := out.Bundle.Session.Run(out.Bundle.InputName, []string{"free prize winner"}, out.Bundle.OutputName)
	require.NoError(t, err)
	require.Len(t, val.Floats, 1)
	assert.Greater(t, val.Floats[0][1], 0.5)
}

func TestExportIdentityCalibrationNotPersisted(t *testing.T) {
	baseDir := t.TempDir()
	exportHead(t, baseDir, "spam", calibrate.Identity())

	_, err := os.Stat(filepath.Join(baseDir, "spam", CalibrationFile))
	assert.True(t, os.IsNotExist(err), "identity calibration must not be written")

	outcomes, err := Discover(baseDir)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, StateLoaded, outcomes[0].State)
	assert.Nil(t, outcomes[0].Bundle.Calibration)
}

func TestExportNearIdentityCalibrationNotPersisted(t *testing.T) {
	baseDir := t.TempDir()
	cal := calibrate.Parameters{A: 1 + 1e-12, B: 1e-12, Type: calibrate.TypePlatt}
	exportHead(t, baseDir, "spam", cal)

	_, err := os.Stat(filepath.Join(baseDir, "spam", CalibrationFile))
	assert.True(t, os.IsNotExist(err))
}

func TestDiscoverOrderIsCaseInsensitive(t *testing.T) {
	baseDir := t.TempDir()
	for _, head := range []string{"risk", "Address", "voda"} {
		exportHead(t, baseDir, head, calibrate.Identity())
	}

	outcomes, err := Discover(baseDir)
	require.NoError(t, err)

	var heads []string
	for _, o := range outcomes {
		heads = append(heads, o.Head)
	}
	assert.Equal(t, []string{"Address", "risk", "voda"}, heads)
}

func TestDiscoverSkipsNonBundleDirs(t *testing.T) {
	baseDir := t.TempDir()
	exportHead(t, baseDir, "spam", calibrate.Identity())

	// a directory with no model or config is not a bundle
	require.NoError(t, os.MkdirAll(filepath.Join(baseDir, "checkpoints"), 0o750))
	// a stray file in the base directory is ignored entirely
	require.NoError(t, os.WriteFile(filepath.Join(baseDir, "README.txt"), []byte("notes"), 0o600))

	outcomes, err := Discover(baseDir)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	assert.Equal(t, StateSkipped, outcomes[0].State)
	assert.Equal(t, "checkpoints", outcomes[0].Head)
	assert.Nil(t, outcomes[0].Bundle)
	assert.Equal(t, StateLoaded, outcomes[1].State)

	bundles := Loaded(outcomes)
	require.Len(t, bundles, 1)
	assert.Equal(t, "spam", bundles[0].Head)
}

func TestDiscoverFailsWithoutBundles(t *testing.T) {
	_, err := Discover(t.TempDir())
	assert.Error(t, err, "empty base directory")

	_, err = Discover(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err, "nonexistent base directory")
}

func TestDiscoverDegradesOnMalformedCalibration(t *testing.T) {
	baseDir := t.TempDir()
	exportHead(t, baseDir, "spam", calibrate.Identity())

	calPath := filepath.Join(baseDir, "spam", CalibrationFile)
	require.NoError(t, os.WriteFile(calPath, []byte(`{"calibrationType":"isotonic","parameters":{}}`), 0o600))

	outcomes, err := Discover(baseDir)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)

	out := outcomes[0]
	assert.Equal(t, StateDegraded, out.State)
	assert.NotEmpty(t, out.Reason)
	require.NotNil(t, out.Bundle)
	assert.Nil(t, out.Bundle.Calibration, "degraded head must run uncalibrated")
}

func TestLoadCalibrationShapes(t *testing.T) {
	dir := t.TempDir()

	cases := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid platt", `{"calibrationType":"platt","parameters":{"a":1.5,"b":-0.2}}`, false},
		{"wrong type", `{"calibrationType":"beta","parameters":{"a":1,"b":0}}`, true},
		{"missing b", `{"calibrationType":"platt","parameters":{"a":1}}`, true},
		{"not json", `{broken`, true},
	}
	for _, tc := range cases {
		path := filepath.Join(dir, tc.name+".json")
		require.NoError(t, os.WriteFile(path, []byte(tc.body), 0o600))

		cal, err := loadCalibration(path)
		if tc.wantErr {
			assert.Error(t, err, tc.name)
			continue
		}
		require.NoError(t, err, tc.name)
		require.NotNil(t, cal)
		assert.InDelta(t, 1.5, cal.A, 1e-12)
	}

	cal, err := loadCalibration(filepath.Join(dir, "absent.json"))
	require.NoError(t, err)
	assert.Nil(t, cal)
}

func TestExportConfigContents(t *testing.T) {
	baseDir := t.TempDir()
	exportHead(t, baseDir, "toxicity", calibrate.Identity())

	var config ModelConfig
	require.NoError(t, readJSON(filepath.Join(baseDir, "toxicity", ConfigFile), &config))

	assert.Equal(t, "toxicity", config.ModelName)
	assert.Equal(t, ConfigVersion, config.Version)
	assert.Equal(t, []string{"no_toxicity", "has_toxicity"}, config.ClassLabels)
	assert.Equal(t, graph.InputName, config.InputTensorName)
	assert.Equal(t, graph.ProbOutput, config.OutputTensorName)
	assert.Equal(t, MaxSequenceLength, config.MaxSequenceLength)
	assert.Nil(t, config.Vocabulary)

	assert.Equal(t, "tfidf_word", config.Metadata["feature"])
	assert.Equal(t, false, config.Metadata["zipmap"])
	if mindf, ok := config.Metadata["min_df"].(float64); assert.True(t, ok) {
		assert.Equal(t, 1.0, mindf)
	}
}

func TestSessionRunProbabilityFinite(t *testing.T) {
	baseDir := t.TempDir()
	exportHead(t, baseDir, "spam", calibrate.Identity())

	outcomes, err := Discover(baseDir)
	require.NoError(t, err)
	b := Loaded(outcomes)[0]

	val, err := b.Session.Run(b.InputName, []string{"completely unseen words here"}, b.OutputName)
	require.NoError(t, err)
	p := val.Floats[0][1]
	assert.False(t, math.IsNaN(p) || math.IsInf(p, 0))
	assert.GreaterOrEqual(t, p, 0.0)
	assert.LessOrEqual(t, p, 1.0)
}
