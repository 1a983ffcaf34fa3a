package holiday

import (
	"context"
	"fmt"
	"net/http"
	"os"

	appLog "railbook/internal/log"
	"railbook/internal/offline"
)

// Source describes where to load a table from. Empty fields are skipped.
type Source struct {
	URL  string
	File string
}

// Fetcher is the subset of *offline.Cache used to download a remote table.
type Fetcher interface {
	Get(ctx context.Context, rawURL string) (offline.Result, error)
}

// Load tries src.URL (through f), then src.File, then the embedded table.
// It never fails: a broken source is logged and the next one is tried.
func Load(ctx context.Context, src Source, f Fetcher) *Table {
	if src.URL != "" && f != nil {
		t, err := loadURL(ctx, src.URL, f)
		if err == nil {
			appLog.Info("holiday: loaded table", "source", src.URL, "version", t.Version(), "entries", t.Len())
			return t
		}
		appLog.Error("holiday: remote table unavailable", err, "url", src.URL)
	}

	if src.File != "" {
		t, err := loadFile(src.File)
		if err == nil {
			appLog.Info("holiday: loaded table", "source", src.File, "version", t.Version(), "entries", t.Len())
			return t
		}
		appLog.Error("holiday: table file unusable", err, "file", src.File)
	}

	t := Embedded()
	appLog.Debug("holiday: using embedded table", "version", t.Version(), "entries", t.Len())
	return t
}

func loadURL(ctx context.Context, u string, f Fetcher) (*Table, error) {
	res, err := f.Get(ctx, u)
	if err != nil {
		return nil, err
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("holiday: fetch %s: status %d", u, res.StatusCode)
	}
	return Parse(res.Body)
}

func loadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}
