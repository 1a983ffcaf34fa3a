package offline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrigin struct {
	hits atomic.Int32
	body atomic.Value
	down atomic.Bool
}

func newFakeOrigin(t *testing.T, body string) (*fakeOrigin, *httptest.Server) {
	t.Helper()
	f := &fakeOrigin{}
	f.body.Store(body)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		if f.down.Load() {
			http.Error(w, "down", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(f.body.Load().(string)))
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func TestStaleWhileRevalidate(t *testing.T) {
	origin, srv := newFakeOrigin(t, "v1")
	cache, err := New(t.TempDir(), "railbook-v3", srv.URL)
	require.NoError(t, err)
	ctx := context.Background()

	res, err := cache.Get(ctx, srv.URL+"/holidays.yaml")
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	assert.Equal(t, "v1", string(res.Body))

	origin.body.Store("v2")

	// Cached copy is served immediately; refresh happens in background.
	res, err = cache.Get(ctx, srv.URL+"/holidays.yaml")
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.Equal(t, "v1", string(res.Body))
	cache.Wait()

	res, err = cache.Get(ctx, srv.URL+"/holidays.yaml")
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.Equal(t, "v2", string(res.Body))
	cache.Wait()
}

func TestNetworkFailureKeepsCachedCopy(t *testing.T) {
	origin, srv := newFakeOrigin(t, "cached")
	cache, err := New(t.TempDir(), "v1", srv.URL)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = cache.Get(ctx, srv.URL+"/index.html")
	require.NoError(t, err)

	origin.down.Store(true)
	res, err := cache.Get(ctx, srv.URL+"/index.html")
	require.NoError(t, err)
	cache.Wait()
	assert.Equal(t, "cached", string(res.Body))

	res, err = cache.Lookup(srv.URL + "/index.html")
	require.NoError(t, err)
	assert.Equal(t, "cached", string(res.Body))
}

func TestNoCacheAndNetworkDownFails(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	cache, err := New(t.TempDir(), "v1", url)
	require.NoError(t, err)

	_, err = cache.Get(context.Background(), url+"/app.js")
	assert.Error(t, err)

	_, err = cache.Lookup(url + "/app.js")
	assert.ErrorIs(t, err, ErrNoCache)
}

func TestCrossOriginAndNonGetBypassCache(t *testing.T) {
	origin, srv := newFakeOrigin(t, "x")
	cache, err := New(t.TempDir(), "v1", "https://railbook.example")
	require.NoError(t, err)

	_, err = cache.Get(context.Background(), srv.URL+"/font.css")
	require.NoError(t, err)
	_, err = cache.Lookup(srv.URL + "/font.css")
	assert.ErrorIs(t, err, ErrNoCache)

	sameOrigin, err := New(t.TempDir(), "v1", srv.URL)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/theme", nil)
	require.NoError(t, err)
	_, err = sameOrigin.Do(req)
	require.NoError(t, err)
	_, err = sameOrigin.Lookup(srv.URL + "/api/theme")
	assert.ErrorIs(t, err, ErrNoCache)

	assert.Equal(t, int32(2), origin.hits.Load())
}

func TestActivateDeletesOtherVersions(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"railbook-v1", "railbook-v2", "railbook-v3"} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, name, "abc"), 0o700))
	}

	cache, err := New(dir, "railbook-v3", "https://railbook.example")
	require.NoError(t, err)
	removed, err := cache.Activate()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"railbook-v1", "railbook-v2"}, removed)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "railbook-v3", entries[0].Name())
}

func TestPrecache(t *testing.T) {
	_, srv := newFakeOrigin(t, "asset")
	cache, err := New(t.TempDir(), "v1", srv.URL)
	require.NoError(t, err)

	errs := cache.Precache(context.Background(), []string{"/", "/static/app.js"})
	assert.Empty(t, errs)

	res, err := cache.Lookup(srv.URL + "/static/app.js")
	require.NoError(t, err)
	assert.Equal(t, "asset", string(res.Body))
}

func TestNewValidates(t *testing.T) {
	_, err := New("", "v1", "https://x.example")
	assert.Error(t, err)
	_, err = New(t.TempDir(), "", "https://x.example")
	assert.Error(t, err)
	_, err = New(t.TempDir(), "v1", "not a url")
	assert.Error(t, err)
}
