// Package guard flips the runtime into test mode when imported, keeping
// main() entrypoints from starting servers inside test binaries.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("STOCK_TEST_MODE") == "" {
			_ = os.Setenv("STOCK_TEST_MODE", "1")
		}
	})
}
