package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easydapp/jelly-packages/internal/adapters/repository/repositorytest"
	"github.com/easydapp/jelly-packages/internal/app/dto"
	"github.com/easydapp/jelly-packages/internal/core/graph"
	"github.com/easydapp/jelly-packages/internal/core/link"
)

func run(t *testing.T, args ...string) (string, *cli, error) {
	t.Helper()
	var out bytes.Buffer
	c := newCLI(&out)
	root := c.rootCommand()
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), c, err
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestVersion(t *testing.T) {
	tests := []struct {
		name      string
		version   string
		commit    string
		buildTime string
		want      string
	}{
		{
			name:      "dev defaults",
			version:   "dev",
			commit:    "unknown",
			buildTime: "unknown",
			want:      "jelly dev (commit: unknown, built: unknown)\n",
		},
		{
			name:      "release build",
			version:   "v1.0.0",
			commit:    "abc123",
			buildTime: "2024-01-01",
			want:      "jelly v1.0.0 (commit: abc123, built: 2024-01-01)\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldVersion, oldCommit, oldBuildTime := Version, Commit, BuildTime
			t.Cleanup(func() { Version, Commit, BuildTime = oldVersion, oldCommit, oldBuildTime })
			Version, Commit, BuildTime = tt.version, tt.commit, tt.buildTime

			out, _, err := run(t, "version")
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestCheckCommand(t *testing.T) {
	graphFile := writeFile(t, "graph.json", []byte(repositorytest.Graph))

	out, _, err := run(t, "codes", graphFile)
	require.NoError(t, err)
	var codes dto.OriginCodesResponse
	require.NoError(t, json.Unmarshal([]byte(out), &codes))
	require.Len(t, codes.Codes, 1)
	assert.Equal(t, "Code", codes.Codes[0].Mark)

	compiled, err := json.Marshal(map[string]any{
		"components": json.RawMessage(repositorytest.Graph),
		"compiled":   []map[string]any{{"code": codes.Codes[0].Code, "js": "compiled"}},
	})
	require.NoError(t, err)
	requestFile := writeFile(t, "request.json", compiled)
	emptyFile := writeFile(t, "empty.json", []byte("[]"))

	t.Run("passing graph", func(t *testing.T) {
		out, _, err := run(t, "check", requestFile)
		require.NoError(t, err)
		var result map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &result))
		assert.Equal(t, requestFile, result["file"])
		assert.Equal(t, "passed", result["status"])
	})

	t.Run("results keep argument order", func(t *testing.T) {
		out, _, err := run(t, "check", "-j", "2", emptyFile, requestFile)
		assert.ErrorIs(t, err, errRejected)

		decoder := json.NewDecoder(bytes.NewBufferString(out))
		var first, second struct {
			File   string          `json:"file"`
			Status dto.CheckStatus `json:"status"`
		}
		require.NoError(t, decoder.Decode(&first))
		require.NoError(t, decoder.Decode(&second))
		assert.Equal(t, emptyFile, first.File)
		assert.Equal(t, dto.CheckStatusRejected, first.Status)
		assert.Equal(t, requestFile, second.File)
		assert.Equal(t, dto.CheckStatusPassed, second.Status)
	})

	t.Run("uncompiled snippet", func(t *testing.T) {
		out, _, err := run(t, "check", graphFile)
		assert.ErrorIs(t, err, errRejected)
		assert.Contains(t, out, string(link.KindWrongCode))
	})

	t.Run("saved to the store", func(t *testing.T) {
		dsn := filepath.Join(t.TempDir(), "jelly.db")
		_, c, err := run(t, "check", "--store", dsn, requestFile)
		require.NoError(t, err)
		assert.Equal(t, "sqlite", c.cfg.Store.Driver)
		_, err = os.Stat(dsn)
		assert.NoError(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, _, err := run(t, "check", filepath.Join(t.TempDir(), "missing.json"))
		require.Error(t, err)
		assert.NotErrorIs(t, err, errRejected)
	})
}

func TestAnchorsCommand(t *testing.T) {
	out, _, err := run(t, "anchors", writeFile(t, "graph.json", []byte(repositorytest.Graph)))
	require.NoError(t, err)
	assert.Contains(t, out, `"anchors"`)

	_, _, err = run(t, "anchors", writeFile(t, "empty.json", []byte("[]")))
	assert.ErrorIs(t, err, errRejected)
}

func TestConfigLayers(t *testing.T) {
	config := writeFile(t, "jelly.yaml", []byte("log:\n  level: warn\n"))

	_, c, err := run(t, "anchors", "--config", config, writeFile(t, "graph.json", []byte(repositorytest.Graph)))
	require.NoError(t, err)
	assert.Equal(t, "warn", c.cfg.Log.Level)
	assert.Equal(t, graph.AffluxLenient, c.cfg.Policy())

	t.Setenv("JELLY_STRICT_AFFLUX", "true")
	t.Setenv("JELLY_LOG_LEVEL", "error")
	_, c, err = run(t, "anchors", "--config", config, writeFile(t, "graph.json", []byte(repositorytest.Graph)))
	require.NoError(t, err)
	assert.Equal(t, graph.AffluxStrict, c.cfg.Policy())
	assert.Equal(t, "error", c.cfg.Log.Level, "environment overrides the file")

	_, _, err = run(t, "anchors", "--log-level", "loud", writeFile(t, "graph.json", []byte(repositorytest.Graph)))
	assert.ErrorContains(t, err, "invalid config")
}
