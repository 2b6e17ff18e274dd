package service

import (
	"sync"
	"time"

	"github.com/set-night/tripmind/internal/config"
)

// Renderer reveals assistant text progressively. At most one reveal is
// active; starting another or cancelling freezes the previous one where it is.
type Renderer struct {
	store     *Store
	tick      time.Duration
	streaming bool

	mu     sync.Mutex
	gen    uint64
	active *reveal
	closed bool
	wg     sync.WaitGroup
}

type reveal struct {
	id   string
	full string
	gen  uint64
	stop chan struct{}
}

func NewRenderer(store *Store, streaming bool, tick time.Duration) *Renderer {
	if tick <= 0 {
		tick = config.DefaultRevealTick
	}
	return &Renderer{store: store, tick: tick, streaming: streaming}
}

// Reveal shows full as the text of message id. onComplete runs exactly once
// when the whole text is displayed and never for a cancelled reveal. In
// non-streaming mode the text is set at once and onComplete runs before
// Reveal returns.
func (r *Renderer) Reveal(id, full string, onComplete func(text string)) {
	r.mu.Lock()
	r.cancelLocked()
	r.gen++
	gen := r.gen

	runes := []rune(full)
	if !r.streaming || r.closed || len(runes) == 0 {
		r.store.SetText(id, full, false)
		closed := r.closed
		r.mu.Unlock()
		if !closed && onComplete != nil {
			onComplete(full)
		}
		return
	}

	rv := &reveal{id: id, full: full, gen: gen, stop: make(chan struct{})}
	r.active = rv
	r.store.SetText(id, "", true)
	r.wg.Add(1)
	r.mu.Unlock()

	go r.run(rv, runes, full, onComplete)
}

func (r *Renderer) run(rv *reveal, runes []rune, full string, onComplete func(string)) {
	defer r.wg.Done()

	step := max(1, (len(runes)+config.RevealSteps-1)/config.RevealSteps)
	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()

	shown := 0
	for {
		select {
		case <-rv.stop:
			return
		case <-ticker.C:
		}

		shown = min(len(runes), shown+step)
		done := shown == len(runes)

		r.mu.Lock()
		if r.gen != rv.gen {
			r.mu.Unlock()
			return
		}
		r.store.SetText(rv.id, string(runes[:shown]), !done)
		if done {
			r.active = nil
		}
		r.mu.Unlock()

		if done {
			if onComplete != nil {
				onComplete(full)
			}
			return
		}
	}
}

// Cancel stops the active reveal, if any, leaving its text as displayed.
func (r *Renderer) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelLocked()
}

// Flush stops the active reveal, if any, and shows its whole text. The
// completion hook does not run.
func (r *Renderer) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return
	}
	r.gen++
	close(r.active.stop)
	r.store.SetText(r.active.id, r.active.full, false)
	r.active = nil
}

func (r *Renderer) cancelLocked() {
	if r.active == nil {
		return
	}
	r.gen++
	close(r.active.stop)
	r.store.StopStreaming(r.active.id)
	r.active = nil
}

// Active returns the id of the message being revealed.
func (r *Renderer) Active() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return "", false
	}
	return r.active.id, true
}

// Close cancels any reveal and waits for its goroutine, including a
// completion hook already running.
func (r *Renderer) Close() {
	r.mu.Lock()
	r.closed = true
	r.cancelLocked()
	r.mu.Unlock()
	r.wg.Wait()
}
