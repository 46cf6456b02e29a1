// Package challengetest has deterministic stand-ins for puzzle rendering and
// time, for use in tests.
package challengetest

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/uvensys/gatekeeper/lib/challenge"
)

// ErrRender is returned by FailingRenderer.
var ErrRender = errors.New("challengetest: rendering failed")

// Renderer returns "PNG:" followed by the text and counts calls.
type Renderer struct {
	lock  sync.Mutex
	calls []string
}

func (r *Renderer) Render(_ context.Context, text string) ([]byte, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.calls = append(r.calls, text)
	return []byte("PNG:" + text), nil
}

// Calls returns every text rendered so far.
func (r *Renderer) Calls() []string {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]string(nil), r.calls...)
}

// FailingRenderer always fails with ErrRender.
type FailingRenderer struct{}

func (FailingRenderer) Render(context.Context, string) ([]byte, error) {
	return nil, ErrRender
}

// Clock is a manually advanced time source.
type Clock struct {
	lock sync.Mutex
	now  time.Time
}

func NewClock() *Clock {
	return &Clock{now: time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.now = c.now.Add(d)
}

// Seeded returns a reproducible random source.
func Seeded(seed uint64) *challenge.LockedRand {
	return challenge.NewLockedRand(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// NewStore builds a Store with stub renderers, a seeded random source and the
// returned Clock.
func NewStore(t *testing.T, opts ...challenge.Option) (*challenge.Store, *Clock) {
	t.Helper()

	clock := NewClock()
	rnd := Seeded(uint64(len(t.Name())))
	r := &Renderer{}
	gen := &challenge.Mixed{
		Generators: []challenge.Generator{
			&challenge.Text{Renderer: r, Rand: rnd},
			&challenge.Math{Renderer: r, Rand: rnd},
		},
		Rand: rnd,
	}

	opts = append([]challenge.Option{challenge.WithClock(clock.Now)}, opts...)
	return challenge.NewStore(gen, opts...), clock
}
