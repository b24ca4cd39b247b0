// Package reveal implements the incremental text reveal used for
// newly-arrived assistant messages. A Reveal grows a visible prefix of an
// already-known string on a fixed tick until the whole text is shown.
package reveal

import (
	"sync"
	"time"
)

// Reveal is a cancellable scheduled reveal of one text value. All exit paths
// (completion, Cancel, Finish) stop the ticker; once stopped, the visible
// prefix never changes again.
type Reveal struct {
	mu        sync.Mutex
	text      []rune
	shown     int
	revealing bool
	stop      chan struct{}
	done      chan struct{}
	stopOnce  sync.Once
}

// Start begins revealing text at charsPerTick runes every tickInterval.
// A non-positive charsPerTick or tickInterval, or empty text, disables the
// reveal: the full text is visible immediately and Revealing reports false.
func Start(text string, charsPerTick int, tickInterval time.Duration) *Reveal {
	r := &Reveal{
		text: []rune(text),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	if len(r.text) == 0 || charsPerTick <= 0 || tickInterval <= 0 {
		r.shown = len(r.text)
		r.finishLocked()
		return r
	}

	r.revealing = true
	go r.run(charsPerTick, tickInterval)
	return r
}

func (r *Reveal) run(charsPerTick int, tickInterval time.Duration) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			if r.advance(charsPerTick) {
				return
			}
		}
	}
}

// advance grows the prefix by one step and reports whether the reveal is
// finished. The stopped check happens under the lock, so a tick racing with
// Cancel can never mutate state after cancellation.
func (r *Reveal) advance(charsPerTick int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.revealing {
		return true
	}
	r.shown += charsPerTick
	if r.shown >= len(r.text) {
		r.shown = len(r.text)
		r.finishLocked()
		return true
	}
	return false
}

func (r *Reveal) finishLocked() {
	r.revealing = false
	r.stopOnce.Do(func() {
		close(r.stop)
		close(r.done)
	})
}

// Visible returns the currently revealed prefix.
func (r *Reveal) Visible() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return string(r.text[:r.shown])
}

// Revealing reports whether the reveal is still in progress.
func (r *Reveal) Revealing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.revealing
}

// Cancel stops the reveal, freezing the visible prefix where it is. It is
// safe to call on every exit path, including after completion.
func (r *Reveal) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finishLocked()
}

// Finish stops the reveal and shows the full text immediately.
func (r *Reveal) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shown = len(r.text)
	r.finishLocked()
}

// Done is closed when the reveal completes or is cancelled.
func (r *Reveal) Done() <-chan struct{} {
	return r.done
}
