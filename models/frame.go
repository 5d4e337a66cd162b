package models

import (
	"sync"
	"time"
)

// Frame describes a dispatched frame.
type Frame struct {
	Number  uint64
	Time    time.Time
	Elapsed time.Duration
}

type frameHandler struct {
	id uint32
	h  func(Frame)
}

// FrameLoop dispatches frames at a fixed rate. Handlers are called in the order
// they were registered, one frame at a time.
type FrameLoop struct {
	duration time.Duration

	startFrameOnce  sync.Once
	closeFrameChan  chan struct{}
	frameTicker     *time.Ticker
	frameHandlerIDs SequentialIDGenerator
	frameHandlers   []frameHandler
	frameMutex      sync.RWMutex

	closeOnce sync.Once
}

func NewFrameLoop(frameDuration time.Duration) *FrameLoop {
	return &FrameLoop{
		duration:       frameDuration,
		closeFrameChan: make(chan struct{}, 1),
		frameTicker:    time.NewTicker(frameDuration),
	}
}

// Close stops the frame dispatch. It is safe to call multiple times.
func (l *FrameLoop) Close() {
	l.closeOnce.Do(func() {
		l.frameTicker.Stop()
		l.closeFrameChan <- struct{}{}
	})
}

// HandleFrame registers a handler called on every frame.
func (l *FrameLoop) HandleFrame(h func(Frame)) (cancel func()) {
	l.frameMutex.Lock()
	defer l.frameMutex.Unlock()

	id := l.frameHandlerIDs.New()
	l.frameHandlers = append(l.frameHandlers, frameHandler{id: id, h: h})

	return func() {
		l.frameMutex.Lock()
		defer l.frameMutex.Unlock()

		for i, fh := range l.frameHandlers {
			if fh.id == id {
				l.frameHandlers = append(l.frameHandlers[:i], l.frameHandlers[i+1:]...)
				l.frameHandlerIDs.Reuse(id)
				return
			}
		}
	}
}

// StartDispatchFrames blocks and dispatches frames until the loop is closed.
func (l *FrameLoop) StartDispatchFrames() {
	l.startFrameOnce.Do(func() {
		var number uint64
		last := time.Now()

		for {
			select {
			case <-l.closeFrameChan:
				return

			case now := <-l.frameTicker.C:
				number++
				frame := Frame{
					Number:  number,
					Time:    now,
					Elapsed: now.Sub(last),
				}
				last = now

				l.frameMutex.RLock()
				for _, fh := range l.frameHandlers {
					fh.h(frame)
				}
				l.frameMutex.RUnlock()

				if time.Since(now) > l.duration {
					instrumentFrameOverrun()
				}
			}
		}
	})
}
