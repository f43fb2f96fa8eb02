package memory

import (
	"time"

	"github.com/inkstream/inkstream-backend/pkg/kv"
)

func init() {
	kv.RegisterBackend(kv.BackendMemory, func(cfg kv.Config) (kv.Store, error) {
		interval := cfg.JanitorInterval
		if interval == 0 {
			interval = 30 * time.Second
		}
		return New(interval), nil
	})
}

// NewStore returns an in-memory store with the default janitor interval.
func NewStore() kv.Store {
	return New(30 * time.Second)
}
