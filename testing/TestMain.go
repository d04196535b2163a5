// Package testing flags the process as a test run so commands skip network
// side effects, and pins environment defaults the ledger tests rely on.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("ODYSSEY_TEST_MODE", "1")
		if os.Getenv("APP_ENV") == "" {
			_ = os.Setenv("APP_ENV", "test")
		}
		// Tests never reach a real broker; an unroutable address fails fast.
		if os.Getenv("REDIS_ADDR") == "" {
			_ = os.Setenv("REDIS_ADDR", "127.0.0.1:0")
		}
	})
}

func init() {
	ensureTestMode()
}

// TestMain runs m with test mode enabled.
func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
