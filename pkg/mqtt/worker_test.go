package mqtt

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// The engine dispatcher subscribes while the GUI goroutine may Stop the
// worker at any time. With no client configured every call is a no-op,
// which is exactly the window where the nil checks and the teardown race.
func TestWorkerConcurrentCallsWithoutClient(t *testing.T) {
	w := NewWorker(nil, nil)

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				assert.NoError(t, w.Subscribe("a/#"))
				assert.NoError(t, w.Unsubscribe("a/#"))
				w.Publish("a/1", []byte("v"), DefaultQOS, false)
				w.IsConnected()
				w.Stop()
			}
		}()
	}
	wg.Wait()

	assert.False(t, w.IsConnected())
}

func TestWorkerStartWithoutOptions(t *testing.T) {
	w := NewWorker(nil, nil)
	w.Start()

	assert.False(t, w.started)
	assert.False(t, w.IsConnected())
}

func TestRandomClientID(t *testing.T) {
	id := randomClientID()
	assert.True(t, strings.HasPrefix(id, clientIDPrefix))
	assert.NotEqual(t, id, randomClientID())
}
