package holiday

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"railbook/internal/civil"
	"railbook/internal/offline"
)

func TestEmbeddedTable(t *testing.T) {
	tbl, err := Parse(embeddedTable)
	require.NoError(t, err)
	assert.Equal(t, "2026.1", tbl.Version())
	assert.Equal(t, 31, tbl.Len())

	e, ok := tbl.Lookup(civil.New(2026, 3, 26))
	require.True(t, ok)
	assert.Equal(t, "Ram Navami", e.Name)
	assert.Equal(t, CategoryLongWeekend, e.Category)
	assert.Equal(t, "Long Weekend", e.Category.Label())

	e, ok = tbl.Lookup(civil.New(2026, 8, 15))
	require.True(t, ok)
	assert.Equal(t, CategoryHoliday, e.Category)
	assert.Equal(t, "Holiday", e.Category.Label())

	_, ok = tbl.Lookup(civil.New(2026, 8, 16))
	assert.False(t, ok)
}

func TestParseSkipsBadRows(t *testing.T) {
	doc := []byte(`version: test
holidays:
  - {date: 2026-13-01, name: Broken}
  - {date: 2026-01-26, name: Republic Day, category: national}
  - {date: " 2026-08-15 ", name: " Independence Day "}
`)
	tbl, err := Parse(doc)
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())

	e, ok := tbl.Lookup(civil.New(2026, 1, 26))
	require.True(t, ok)
	assert.Equal(t, CategoryHoliday, e.Category)

	e, ok = tbl.Lookup(civil.New(2026, 8, 15))
	require.True(t, ok)
	assert.Equal(t, "Independence Day", e.Name)
}

func TestParseErrors(t *testing.T) {
	tests := map[string]string{
		"empty":       "",
		"not yaml":    "holidays: [",
		"no good row": "holidays:\n  - {date: nope, name: x}\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestBetween(t *testing.T) {
	tbl := Embedded()
	got := tbl.Between(civil.New(2026, 10, 20), civil.New(2026, 11, 10))
	require.Len(t, got, 7)
	assert.Equal(t, civil.New(2026, 10, 20), got[0].Date)
	assert.Equal(t, civil.New(2026, 11, 10), got[len(got)-1].Date)
	for i := 1; i < len(got); i++ {
		assert.True(t, got[i-1].Date.Before(got[i].Date))
	}

	var nilTable *Table
	assert.Empty(t, nilTable.Between(civil.New(2026, 1, 1), civil.New(2026, 12, 31)))
	assert.Equal(t, 0, Empty().Len())
}

type stubFetcher struct {
	res offline.Result
	err error
}

func (s stubFetcher) Get(context.Context, string) (offline.Result, error) {
	return s.res, s.err
}

func TestLoadFallbackOrder(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "holidays.yaml")
	require.NoError(t, os.WriteFile(file, []byte("version: file\nholidays:\n  - {date: 2026-01-26, name: Republic Day}\n"), 0o600))

	remote := stubFetcher{res: offline.Result{
		StatusCode: http.StatusOK,
		Body:       []byte("version: remote\nholidays:\n  - {date: 2026-01-01, name: New Year}\n"),
	}}
	down := stubFetcher{err: errors.New("connection refused")}

	tests := []struct {
		name    string
		src     Source
		fetcher Fetcher
		version string
	}{
		{name: "remote wins", src: Source{URL: "https://x/h.yaml", File: file}, fetcher: remote, version: "remote"},
		{name: "remote down uses file", src: Source{URL: "https://x/h.yaml", File: file}, fetcher: down, version: "file"},
		{name: "missing file uses embedded", src: Source{File: filepath.Join(dir, "nope.yaml")}, version: "2026.1"},
		{name: "no sources", src: Source{}, version: "2026.1"},
		{
			name:    "remote non-200 uses embedded",
			src:     Source{URL: "https://x/h.yaml"},
			fetcher: stubFetcher{res: offline.Result{StatusCode: http.StatusNotFound}},
			version: "2026.1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := Load(context.Background(), tt.src, tt.fetcher)
			assert.Equal(t, tt.version, tbl.Version())
		})
	}
}
