package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePathsHomeOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("IOTOPS_HOME", dir)

	p, err := ResolvePaths()
	require.NoError(t, err)
	assert.Equal(t, dir, p.Base)
	assert.Equal(t, filepath.Join(dir, "config.yaml"), p.Config)
	assert.Equal(t, filepath.Join(dir, "data", "state.db"), p.State)
}

func TestEnsureDirs(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("IOTOPS_HOME", filepath.Join(dir, "nested"))

	p, err := ResolvePaths()
	require.NoError(t, err)
	require.NoError(t, p.EnsureDirs())
	assert.DirExists(t, p.Data)
	assert.DirExists(t, p.Logs)
}

func TestParseConfigPath(t *testing.T) {
	tests := []struct {
		in      string
		want    []string
		wantErr bool
	}{
		{"gateway.port", []string{"gateway", "port"}, false},
		{"logging", []string{"logging"}, false},
		{"", nil, true},
		{"a..b", nil, true},
		{"__proto__.x", nil, true},
	}
	for _, tt := range tests {
		got, err := ParseConfigPath(tt.in)
		if tt.wantErr {
			require.Error(t, err, "path %q", tt.in)
			var ce *ConfigError
			assert.ErrorAs(t, err, &ce)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestGetSetValueAtPath(t *testing.T) {
	root := map[string]any{}
	SetValueAtPath(root, []string{"gateway", "port"}, 9090)

	v, ok := GetValueAtPath(root, []string{"gateway", "port"})
	require.True(t, ok)
	assert.Equal(t, 9090, v)

	_, ok = GetValueAtPath(root, []string{"gateway", "missing"})
	assert.False(t, ok)
}

func TestUnsetValueAtPath(t *testing.T) {
	root := map[string]any{}
	SetValueAtPath(root, []string{"gateway", "port"}, 9090)

	assert.True(t, UnsetValueAtPath(root, []string{"gateway", "port"}))
	_, ok := GetValueAtPath(root, []string{"gateway", "port"})
	assert.False(t, ok)

	assert.False(t, UnsetValueAtPath(root, []string{"gateway", "port"}))
	assert.False(t, UnsetValueAtPath(root, []string{"nope", "deep", "key"}))
}
