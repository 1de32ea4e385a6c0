package repository

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyedMutex_MutualExclusionPerKey(t *testing.T) {
	km := newKeyedMutex()

	const workers = 50
	counter := 0
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			unlock := km.Lock("sess-1")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	require.Equal(t, workers, counter)
}

func TestKeyedMutex_EntriesReleasedAfterUnlock(t *testing.T) {
	km := newKeyedMutex()

	unlockA := km.Lock("a")
	unlockB := km.Lock("b")

	km.mu.Lock()
	require.Len(t, km.locks, 2)
	km.mu.Unlock()

	unlockA()
	unlockB()

	km.mu.Lock()
	require.Empty(t, km.locks)
	km.mu.Unlock()
}

func TestKeyedMutex_EntrySurvivesWhileContended(t *testing.T) {
	km := newKeyedMutex()

	unlock := km.Lock("sess-1")

	acquired := make(chan struct{})
	go func() {
		u := km.Lock("sess-1")
		u()
		close(acquired)
	}()

	// The waiter has registered its reference; releasing ours must not drop
	// the entry out from under it.
	for {
		km.mu.Lock()
		entry, ok := km.locks["sess-1"]
		refs := 0
		if ok {
			refs = entry.refs
		}
		km.mu.Unlock()
		if refs == 2 {
			break
		}
	}

	unlock()
	<-acquired

	km.mu.Lock()
	require.Empty(t, km.locks)
	km.mu.Unlock()
}
