package models

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFrameLoopHandleFrame(t *testing.T) {
	loop := NewFrameLoop(time.Millisecond * 5)
	defer loop.Close()

	cancelA := loop.HandleFrame(func(Frame) {})
	cancelB := loop.HandleFrame(func(Frame) {})
	require.Len(t, loop.frameHandlers, 2)

	cancelA()
	require.Len(t, loop.frameHandlers, 1)

	cancelA()
	require.Len(t, loop.frameHandlers, 1)

	cancelB()
	require.Empty(t, loop.frameHandlers)
}

func TestFrameLoopStartDispatchFrames(t *testing.T) {
	loop := NewFrameLoop(time.Millisecond * 5)

	var mutex sync.Mutex
	var calls []string
	var wg sync.WaitGroup
	wg.Add(1)

	var once sync.Once
	loop.HandleFrame(func(f Frame) {
		mutex.Lock()
		defer mutex.Unlock()
		calls = append(calls, "first")
	})
	loop.HandleFrame(func(f Frame) {
		mutex.Lock()
		calls = append(calls, "second")
		mutex.Unlock()

		if f.Number >= 2 {
			once.Do(wg.Done)
		}
	})

	go loop.StartDispatchFrames()
	wg.Wait()
	loop.Close()

	mutex.Lock()
	defer mutex.Unlock()
	require.GreaterOrEqual(t, len(calls), 4)
	for i := 0; i+1 < len(calls); i += 2 {
		require.Equal(t, "first", calls[i])
		require.Equal(t, "second", calls[i+1])
	}
}

func TestFrameLoopClose(t *testing.T) {
	loop := NewFrameLoop(time.Millisecond)
	done := make(chan struct{})

	go func() {
		loop.StartDispatchFrames()
		close(done)
	}()

	loop.Close()
	loop.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("frame loop did not stop")
	}
}
