package preference

import (
	"context"
	"fmt"

	appLog "railbook/internal/log"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// Options selects and configures a backend.
type Options struct {
	Backend string
	File    string
	Redis   RedisOptions
}

// Open returns the configured store. An unreachable Redis or unreadable file
// falls back to memory so the page keeps working.
func Open(ctx context.Context, opts Options) Store {
	switch opts.Backend {
	case BackendRedis:
		s, err := DialRedis(ctx, opts.Redis)
		if err == nil {
			appLog.Info("preference: using redis", "addr", opts.Redis.Addr)
			return s
		}
		appLog.Error("preference: redis unavailable, using memory", err)
	case BackendFile:
		s, err := NewFileStore(opts.File)
		if err == nil {
			appLog.Info("preference: using file", "path", opts.File)
			return s
		}
		appLog.Error("preference: file store unavailable, using memory", err, "path", opts.File)
	case BackendMemory, "":
	default:
		appLog.Error("preference: unknown backend, using memory", fmt.Errorf("backend %q", opts.Backend))
	}
	return NewMemoryStore()
}
