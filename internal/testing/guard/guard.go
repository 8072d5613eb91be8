// Package guard switches the binaries into test mode when imported by a test,
// so that main packages skip connecting to Postgres and Redis.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("FPOLEDGER_TEST_MODE") == "" {
			_ = os.Setenv("FPOLEDGER_TEST_MODE", "1")
		}
	})
}
