package redis

import (
	"os"
	"testing"

	"github.com/inkstream/inkstream-backend/pkg/kv"
	"github.com/inkstream/inkstream-backend/pkg/kv/kvtest"
)

// Runs the conformance suite against a real Redis when INK_TEST_REDIS_URL is
// set, e.g. INK_TEST_REDIS_URL=redis://localhost:6379/15.
func TestConformance(t *testing.T) {
	redisURL := os.Getenv("INK_TEST_REDIS_URL")
	if redisURL == "" {
		t.Skip("INK_TEST_REDIS_URL not set")
	}

	kvtest.Run(t, func(t *testing.T) kv.Store {
		s, err := New(redisURL)
		if err != nil {
			t.Fatalf("connect: %v", err)
		}
		return s
	})
}

func TestIsConnectionError(t *testing.T) {
	if IsConnectionError(nil) {
		t.Fatal("nil is not a connection error")
	}
	if IsConnectionError(kv.ErrNotFound) {
		t.Fatal("data errors are not connection errors")
	}
}
