// Package offline is a versioned, disk-backed stale-while-revalidate cache
// for same-origin GET requests.
//
// A cached response is returned immediately while a background request
// refreshes it. If the network fails the cached copy keeps being served; a
// request with nothing cached surfaces the network error unchanged.
package offline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	appLog "railbook/internal/log"
)

// ErrNoCache is returned by Lookup when a URL has no cached copy.
var ErrNoCache = errors.New("offline: no cached response")

const refreshTimeout = 15 * time.Second

// Result is a response served from the network or the cache.
type Result struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
	FromCache   bool
}

// cacheEntry holds HTTP cache metadata for a single URL.
type cacheEntry struct {
	URL          string    `json:"url"`
	ContentType  string    `json:"content_type,omitempty"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Cache implements the stale-while-revalidate policy.
type Cache struct {
	client  *http.Client
	baseDir string
	version string
	origin  *url.URL

	mu       sync.Mutex
	inflight map[string]bool
	wg       sync.WaitGroup
}

type Option func(*Cache)

// WithHTTPClient overrides the network client.
func WithHTTPClient(c *http.Client) Option {
	return func(cache *Cache) { cache.client = c }
}

// New creates a cache rooted at baseDir/version that only stores responses
// from origin (scheme://host).
func New(baseDir, version, origin string, opts ...Option) (*Cache, error) {
	if baseDir == "" {
		return nil, errors.New("offline: cache dir is empty")
	}
	if version == "" {
		return nil, errors.New("offline: cache version is empty")
	}
	o, err := url.Parse(origin)
	if err != nil || o.Scheme == "" || o.Host == "" {
		return nil, fmt.Errorf("offline: invalid origin %q", origin)
	}
	c := &Cache{
		client:   &http.Client{Timeout: refreshTimeout},
		baseDir:  baseDir,
		version:  version,
		origin:   o,
		inflight: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Cache) Version() string { return c.version }

// Activate deletes every cache generation under baseDir whose name does not
// match the current version. It returns the names removed.
func (c *Cache) Activate() ([]string, error) {
	entries, err := os.ReadDir(c.baseDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	removed := make([]string, 0)
	for _, e := range entries {
		if !e.IsDir() || e.Name() == c.version {
			continue
		}
		if err := os.RemoveAll(filepath.Join(c.baseDir, e.Name())); err != nil {
			return removed, err
		}
		appLog.Info("offline: deleted old cache", "name", e.Name())
		removed = append(removed, e.Name())
	}
	return removed, nil
}

// Precache fetches every path (relative to origin) from the network and
// stores successful responses, like a service worker install step.
func (c *Cache) Precache(ctx context.Context, paths []string) []error {
	errs := make([]error, 0)
	for _, p := range paths {
		u := c.origin.ResolveReference(&url.URL{Path: p}).String()
		res, err := c.network(ctx, u, cacheEntry{})
		if err != nil {
			errs = append(errs, fmt.Errorf("precache %s: %w", p, err))
			continue
		}
		if res.StatusCode != http.StatusOK {
			errs = append(errs, fmt.Errorf("precache %s: status %d", p, res.StatusCode))
		}
	}
	return errs
}

// Get is Do for a GET of rawURL.
func (c *Cache) Get(ctx context.Context, rawURL string) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Result{}, err
	}
	return c.Do(req)
}

// Do serves req. Non-GET and cross-origin requests bypass the cache.
func (c *Cache) Do(req *http.Request) (Result, error) {
	if !c.cacheable(req) {
		return c.passthrough(req)
	}

	u := req.URL.String()
	meta, body, err := c.load(u)
	if err == nil {
		c.refreshAsync(u, meta)
		return Result{
			URL:         u,
			StatusCode:  http.StatusOK,
			ContentType: meta.ContentType,
			Body:        body,
			FromCache:   true,
		}, nil
	}

	return c.network(req.Context(), u, cacheEntry{})
}

// Lookup returns the cached copy of rawURL without touching the network.
func (c *Cache) Lookup(rawURL string) (Result, error) {
	meta, body, err := c.load(rawURL)
	if err != nil {
		return Result{}, err
	}
	return Result{URL: rawURL, StatusCode: http.StatusOK, ContentType: meta.ContentType, Body: body, FromCache: true}, nil
}

// Wait blocks until background refreshes have finished.
func (c *Cache) Wait() {
	c.wg.Wait()
}

func (c *Cache) cacheable(req *http.Request) bool {
	if req.Method != http.MethodGet {
		return false
	}
	return req.URL.Scheme == c.origin.Scheme && req.URL.Host == c.origin.Host
}

func (c *Cache) passthrough(req *http.Request) (Result, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, err
	}
	return Result{
		URL:         req.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

func (c *Cache) refreshAsync(u string, meta cacheEntry) {
	c.mu.Lock()
	if c.inflight[u] {
		c.mu.Unlock()
		return
	}
	c.inflight[u] = true
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() {
			c.mu.Lock()
			delete(c.inflight, u)
			c.mu.Unlock()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		if _, err := c.network(ctx, u, meta); err != nil {
			appLog.Debug("offline: background refresh failed, keeping cached copy", "url", u, "err", err)
		}
	}()
}

// network performs a GET, honoring ETag / Last-Modified from prev, and stores
// 200 responses.
func (c *Cache) network(ctx context.Context, u string, prev cacheEntry) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Result{}, err
	}
	if prev.ETag != "" {
		req.Header.Set("If-None-Match", prev.ETag)
	}
	if prev.LastModified != "" {
		req.Header.Set("If-Modified-Since", prev.LastModified)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return Result{URL: u, StatusCode: resp.StatusCode}, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, err
	}
	res := Result{
		URL:         u,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}
	if resp.StatusCode != http.StatusOK {
		return res, nil
	}

	meta := cacheEntry{
		URL:          u,
		ContentType:  res.ContentType,
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
	}
	if err := c.save(u, meta, body); err != nil {
		// Log but still return the freshly fetched body.
		appLog.Error("offline: cache save failed", err, "url", u)
	}
	return res, nil
}

func (c *Cache) entryDir(u string) string {
	sum := sha256.Sum256([]byte(u))
	// Use first 16 hex chars as directory name.
	return filepath.Join(c.baseDir, c.version, hex.EncodeToString(sum[:8]))
}

func (c *Cache) load(u string) (cacheEntry, []byte, error) {
	dir := c.entryDir(u)
	var meta cacheEntry
	data, err := os.ReadFile(filepath.Join(dir, "meta.json"))
	if err != nil {
		return meta, nil, ErrNoCache
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheEntry{}, nil, ErrNoCache
	}
	body, err := os.ReadFile(filepath.Join(dir, "body"))
	if err != nil {
		return cacheEntry{}, nil, ErrNoCache
	}
	return meta, body, nil
}

func (c *Cache) save(u string, meta cacheEntry, body []byte) error {
	dir := c.entryDir(u)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	// Write body first so meta never points at missing body.
	if err := os.WriteFile(filepath.Join(dir, "body"), body, 0o600); err != nil {
		return err
	}

	meta.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "meta.json"), data, 0o600)
}
