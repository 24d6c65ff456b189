package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("CHRONICLE_TEST_MODE") == "" {
			_ = os.Setenv("CHRONICLE_TEST_MODE", "1")
		}
	})
}
