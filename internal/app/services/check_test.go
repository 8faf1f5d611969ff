package services

import (
	"context"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/easydapp/jelly-packages/internal/adapters/compiler"
	"github.com/easydapp/jelly-packages/internal/adapters/repository"
	"github.com/easydapp/jelly-packages/internal/adapters/repository/memory"
	"github.com/easydapp/jelly-packages/internal/adapters/repository/repositorytest"
	"github.com/easydapp/jelly-packages/internal/app/dto"
	"github.com/easydapp/jelly-packages/internal/core/anchor"
	"github.com/easydapp/jelly-packages/internal/core/link"
	"github.com/easydapp/jelly-packages/internal/infrastructure/config"
	"github.com/easydapp/jelly-packages/internal/infrastructure/metrics"
)

func request(components string) *dto.CheckRequest {
	return &dto.CheckRequest{Components: json.RawMessage(components)}
}

// compiledFor asks s for the snippets of components and compiles each one
// as "compiled:" plus its source.
func compiledFor(t *testing.T, s *CheckService, components string) []memory.Compiled {
	t.Helper()
	resp, err := s.OriginCodes(context.Background(), request(components))
	require.NoError(t, err)
	require.Nil(t, resp.Error)
	compiled := make([]memory.Compiled, 0, len(resp.Codes))
	for _, o := range resp.Codes {
		compiled = append(compiled, memory.Compiled{Code: o.Code, JS: "compiled:" + o.Code.Code})
	}
	return compiled
}

func TestCheckService(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRepository(nil)
	core, logs := observer.New(zap.InfoLevel)
	reg := prometheus.NewRegistry()
	s := NewCheckService(repo, repositorytest.Tenant,
		WithLogger(zap.New(core)),
		WithMetrics(metrics.MustNewMetrics(reg)),
		WithVersion("2.0.0"))

	compiled := compiledFor(t, s, repositorytest.Graph)
	require.Len(t, compiled, 1)

	req := request(repositorytest.Graph)
	req.Compiled = compiled
	req.Save = true
	resp, err := s.Check(ctx, req)
	require.NoError(t, err)
	require.Equal(t, dto.CheckStatusPassed, resp.Status, "error: %v", resp.Error)
	assert.True(t, resp.Saved)
	assert.NotEmpty(t, resp.RunID)
	require.Len(t, resp.Checked.Codes, 1)

	stored, err := s.Combined(ctx, string(resp.Checked.CombinedAnchor))
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", stored.Version)
	code, err := repo.LoadCode(ctx, resp.Checked.Codes[0].Anchor)
	require.NoError(t, err)
	assert.Equal(t, compiled[0].JS, code.JS)

	entries := logs.FilterMessage("graph checked").All()
	require.Len(t, entries, 1)
	assert.Equal(t, resp.RunID, entries[0].ContextMap()["run"])
	assert.Equal(t, string(resp.Checked.CombinedAnchor), entries[0].ContextMap()["anchor"])

	t.Run("anchored graph loads its code from the store", func(t *testing.T) {
		components, err := json.Marshal(resp.Checked.Components)
		require.NoError(t, err)

		anchors, err := s.Anchors(ctx, request(string(components)))
		require.NoError(t, err)
		assert.Equal(t, []anchor.Code{resp.Checked.Codes[0].Anchor}, anchors.Anchors.Codes)

		again, err := s.Check(ctx, request(string(components)))
		require.NoError(t, err)
		require.Equal(t, dto.CheckStatusPassed, again.Status, "error: %v", again.Error)
		assert.Equal(t, resp.Checked.CombinedAnchor, again.Checked.CombinedAnchor)
		assert.False(t, again.Saved)
	})

	t.Run("uncompiled snippet is rejected", func(t *testing.T) {
		resp, err := s.Check(ctx, request(repositorytest.Graph))
		require.NoError(t, err)
		assert.Equal(t, dto.CheckStatusRejected, resp.Status)
		assert.ErrorIs(t, resp.Error, link.ErrWrongCode)
		assert.Nil(t, resp.Checked)

		rejected := logs.FilterMessage("graph rejected").All()
		require.NotEmpty(t, rejected)
		assert.Equal(t, string(link.KindWrongCode), rejected[len(rejected)-1].ContextMap()["kind"])
	})

	t.Run("empty graph is rejected", func(t *testing.T) {
		resp, err := s.Check(ctx, request("[]"))
		require.NoError(t, err)
		assert.ErrorIs(t, resp.Error, link.ErrEmptyComponents)

		anchors, err := s.Anchors(ctx, request("[]"))
		require.NoError(t, err)
		assert.ErrorIs(t, anchors.Error, link.ErrEmptyComponents)
	})

	t.Run("bad requests", func(t *testing.T) {
		_, err := s.Check(ctx, request(""))
		assert.ErrorIs(t, err, dto.ErrMissingComponents)
		_, err = s.Check(ctx, nil)
		assert.ErrorIs(t, err, dto.ErrMissingComponents)
		_, err = s.Check(ctx, request(`{"param":1}`))
		assert.ErrorIs(t, err, dto.ErrInvalidComponents)

		bad := request(repositorytest.Graph)
		bad.Compiled = []memory.Compiled{{JS: "x"}}
		_, err = s.Check(ctx, bad)
		assert.ErrorIs(t, err, dto.ErrInvalidCompiled)
	})

	t.Run("combined lookups", func(t *testing.T) {
		_, err := s.Combined(ctx, "combined#nope")
		assert.ErrorIs(t, err, repository.ErrInvalidAnchor)

		other := anchor.NewCombined("aaaaa-aa", strings.Repeat("a", 64))
		_, err = s.Combined(ctx, string(other))
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	kinds, err := testutil.GatherAndCount(reg, "jelly_check_errors_total")
	require.NoError(t, err)
	assert.Equal(t, 2, kinds, "WrongCode and EmptyComponents")
}

func TestCheckServiceCache(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	m := metrics.MustNewMetrics(reg)
	cache, err := compiler.NewCache(8, m)
	require.NoError(t, err)
	s := NewCheckService(memory.NewRepository(nil), repositorytest.Tenant, WithCache(cache), WithMetrics(m))

	req := request(repositorytest.Graph)
	req.Compiled = compiledFor(t, s, repositorytest.Graph)
	resp, err := s.Check(ctx, req)
	require.NoError(t, err)
	require.Equal(t, dto.CheckStatusPassed, resp.Status)
	assert.Equal(t, 1, cache.Len())

	// The second run sends no compiled output and is served by the cache.
	resp, err = s.Check(ctx, request(repositorytest.Graph))
	require.NoError(t, err)
	assert.Equal(t, dto.CheckStatusPassed, resp.Status)

	hits, err := testutil.GatherAndCount(reg, "jelly_compiler_cache_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, hits, "one miss and one hit series")
}

func TestOpenRepository(t *testing.T) {
	ctx := context.Background()

	r, err := OpenRepository(ctx, config.StoreConfig{})
	require.NoError(t, err)
	assert.IsType(t, &memory.Repository{}, r)

	r, err = OpenRepository(ctx, config.StoreConfig{Driver: "sqlite", DSN: ":memory:", Codec: "json"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	require.NoError(t, r.Save(ctx, repositorytest.Checked(t), "1.0.0"))

	_, err = OpenRepository(ctx, config.StoreConfig{Driver: "mysql"})
	assert.ErrorContains(t, err, "unknown store driver")
}

func TestOpenRepositorySealed(t *testing.T) {
	ctx := context.Background()
	key := strings.Repeat("2b", 32)

	tests := []struct {
		name string
		cfg  config.StoreConfig
		want string
	}{
		{"default compression", config.StoreConfig{Codec: "msgpack"}, "msgpack+zstd"},
		{"gzip", config.StoreConfig{Codec: "json", Compression: "gzip"}, "json+gzip"},
		{"sealed", config.StoreConfig{Codec: "msgpack", Compression: "none", EncryptKey: key}, "msgpack+aesgcm"},
		{"gzip sealed", config.StoreConfig{Codec: "msgpack", Compression: "gzip", EncryptKey: key}, "msgpack+gzip+aesgcm"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			serializer, err := newSerializer(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, serializer.Name())

			cfg := tt.cfg
			cfg.Driver = "sqlite"
			cfg.DSN = ":memory:"
			r, err := OpenRepository(ctx, cfg)
			require.NoError(t, err)
			t.Cleanup(func() { _ = r.Close() })

			checked := repositorytest.Checked(t)
			require.NoError(t, r.Save(ctx, checked, "1.0.0"))
			code, err := r.LoadCode(ctx, checked.Codes[0].Anchor)
			require.NoError(t, err)
			assert.Equal(t, checked.Codes[0].JS, code.JS)
		})
	}

	_, err := OpenRepository(ctx, config.StoreConfig{EncryptKey: "not hex"})
	assert.ErrorContains(t, err, "decode encrypt key")
}

func TestNewCheckServiceFromConfig(t *testing.T) {
	ctx := context.Background()

	cfg := config.Default()
	cfg.Check.SandboxEnabled = true
	cfg.Check.SandboxCommand = "node runner.js"
	s, err := NewCheckServiceFromConfig(ctx, cfg, WithMetrics(metrics.MustNewMetrics(prometheus.NewRegistry())))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	assert.NotNil(t, s.cache)
	assert.NotNil(t, s.sandbox)
	assert.Equal(t, cfg.Check.Version, s.version)

	cfg = config.Default()
	cfg.Check.CompileCacheSize = 0
	s, err = NewCheckServiceFromConfig(ctx, cfg)
	require.NoError(t, err)
	assert.Nil(t, s.cache)
	assert.Nil(t, s.sandbox)

	cfg.Check.Tenant = "nope"
	_, err = NewCheckServiceFromConfig(ctx, cfg)
	assert.ErrorContains(t, err, "invalid config")
}
