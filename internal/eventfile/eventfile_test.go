package eventfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/cdc-trackfinder/internal/tracking/hits"
)

func TestReadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.yaml")
	content := `events:
  - id: first
    hits:
      - {superlayer: 0, layer: 1, wire: 3, drift_length: 0.12, drift_variance: 0.0004}
      - {superlayer: 2, layer: 0, wire: 17, drift_length: 0.3, adc: 40, tot: 7}
  - hits:
      - {superlayer: 8, layer: 5, wire: 383}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	events, err := Read(path)
	require.NoError(t, err)
	want := []Event{
		{ID: "first", Hits: []hits.RawHit{
			{SuperLayer: 0, Layer: 1, Wire: 3, DriftLength: 0.12, DriftVariance: 0.0004},
			{SuperLayer: 2, Layer: 0, Wire: 17, DriftLength: 0.3, ADC: 40, TOT: 7},
		}},
		{Hits: []hits.RawHit{{SuperLayer: 8, Layer: 5, Wire: 383}}},
	}
	if diff := cmp.Diff(want, events); diff != "" {
		t.Errorf("events differ (-want +got):\n%s", diff)
	}
}

func TestWriteThenReadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.json")
	events := []Event{{ID: "a", Hits: []hits.RawHit{{SuperLayer: 4, Layer: 5, Wire: 100, DriftLength: 0.5}}}}
	require.NoError(t, Write(path, events))

	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, events, got)
}

func TestReadErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"events": [`), 0o644))
	txt := filepath.Join(dir, "events.txt")
	require.NoError(t, os.WriteFile(txt, []byte("x"), 0o644))

	_, err := Read(bad)
	assert.ErrorContains(t, err, "failed to parse event JSON")
	_, err = Read(txt)
	assert.ErrorContains(t, err, "extension")
	_, err = Read(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
	assert.ErrorContains(t, Write(txt, nil), "extension")
}

func TestReadAllDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Write(filepath.Join(dir, "b.yaml"), []Event{{Hits: []hits.RawHit{{Wire: 2}}}}))
	require.NoError(t, Write(filepath.Join(dir, "a.json"), []Event{{ID: "x"}, {ID: "y"}}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("skip"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.yaml"), 0o755))

	sources, err := ReadAll(dir)
	require.NoError(t, err)
	require.Len(t, sources, 3)
	assert.Equal(t, "x", sources[0].Name())
	assert.Equal(t, "y", sources[1].Name())
	assert.Equal(t, "b.yaml#0", sources[2].Name())
	assert.Equal(t, 2, sources[2].Event.Hits[0].Wire)

	single, err := ReadAll(filepath.Join(dir, "a.json"))
	require.NoError(t, err)
	assert.Len(t, single, 2)
	assert.Equal(t, 1, single[1].Index)
}
