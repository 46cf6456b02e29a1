package challenge

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/uvensys/gatekeeper"
	"github.com/uvensys/gatekeeper/internal"
)

type key struct {
	guildID string
	userID  string
}

// Store holds at most one challenge per (guild, member) pair. All methods are
// safe for concurrent use: every read-decide-write runs under one mutex, so
// two answers submitted at the same time for the same member both count.
//
// Challenges only live in memory. A restart drops them and members have to
// press Verify again.
type Store struct {
	gen      Generator
	ttl      time.Duration
	attempts int
	now      func() time.Time

	lock    sync.Mutex
	entries map[key]*Challenge
}

// Option customizes a Store.
type Option func(*Store)

// WithTTL sets how long a challenge can be answered.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithAttempts sets how many wrong answers a member gets.
func WithAttempts(n int) Option {
	return func(s *Store) {
		s.attempts = n
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates an empty Store that generates puzzles with gen.
func NewStore(gen Generator, opts ...Option) *Store {
	s := &Store{
		gen:      gen,
		ttl:      gatekeeper.ChallengeTTL,
		attempts: gatekeeper.ChallengeAttempts,
		now:      time.Now,
		entries:  map[key]*Challenge{},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// GetOrCreate returns the live challenge for the member, or generates and
// stores a fresh one when there is none or the existing one expired or ran
// out of attempts. A fresh challenge always starts with a full attempt count
// and a new TTL.
//
// Generation runs without holding the lock. If a concurrent call stored a
// live challenge for the same member in the meantime, that one wins so both
// callers show the member the same puzzle.
func (s *Store) GetOrCreate(ctx context.Context, guildID, userID string) (Challenge, error) {
	k := key{guildID: guildID, userID: userID}

	s.lock.Lock()
	if cur, ok := s.entries[k]; ok && cur.live(s.now()) {
		result := *cur
		s.lock.Unlock()
		return result, nil
	}
	s.lock.Unlock()

	puzzle, err := s.gen.Generate(ctx)
	if err != nil {
		generationFailures.Inc()
		return Challenge{}, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	if len(puzzle.Image) == 0 {
		generationFailures.Inc()
		return Challenge{}, fmt.Errorf("%w: %w (%s)", ErrGeneration, ErrEmptyImage, puzzle.Kind)
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	now := s.now()
	if cur, ok := s.entries[k]; ok && cur.live(now) {
		return *cur, nil
	}

	ch := &Challenge{
		ID:           uuid.Must(uuid.NewV7()).String(),
		GuildID:      guildID,
		UserID:       userID,
		Kind:         puzzle.Kind,
		Answer:       puzzle.Answer,
		Image:        puzzle.Image,
		IssuedAt:     now,
		ExpiresAt:    now.Add(s.ttl),
		AttemptsLeft: s.attempts,
	}

	s.entries[k] = ch
	activeChallenges.Set(float64(len(s.entries)))
	challengesIssued.WithLabelValues(string(ch.Kind)).Inc()

	slog.Info("created challenge", "guild", guildID, "user", userID, "kind", ch.Kind, "id", ch.ID, "ttl", s.ttl)
	slog.Debug("challenge fingerprint", "id", ch.ID, "answer_hash", internal.FastHash(ch.Answer))

	return *ch, nil
}

func normalize(answer string) string {
	return strings.ToUpper(strings.TrimSpace(answer))
}

// Submit checks raw against the member's challenge. Leading and trailing
// whitespace is ignored and the comparison is case-insensitive.
func (s *Store) Submit(guildID, userID, raw string) Result {
	k := key{guildID: guildID, userID: userID}

	s.lock.Lock()
	defer s.lock.Unlock()

	ch, ok := s.entries[k]
	if !ok {
		failedValidations.WithLabelValues(OutcomeAbsent.String()).Inc()
		return Result{Outcome: OutcomeAbsent}
	}

	now := s.now()

	if ch.Expired(now) {
		s.remove(k)
		failedValidations.WithLabelValues(OutcomeExpired.String()).Inc()
		return Result{Outcome: OutcomeExpired, Challenge: *ch}
	}

	if ch.AttemptsLeft <= 0 {
		s.remove(k)
		failedValidations.WithLabelValues(OutcomeAbsent.String()).Inc()
		return Result{Outcome: OutcomeAbsent}
	}

	if subtle.ConstantTimeCompare([]byte(normalize(raw)), []byte(normalize(ch.Answer))) == 1 {
		s.remove(k)
		challengesSolved.WithLabelValues(string(ch.Kind)).Inc()
		TimeTaken.WithLabelValues(string(ch.Kind)).Observe(now.Sub(ch.IssuedAt).Seconds())
		return Result{Outcome: OutcomeCorrect, Challenge: *ch}
	}

	ch.AttemptsLeft--
	if ch.AttemptsLeft <= 0 {
		ch.AttemptsLeft = 0
		s.remove(k)
		failedValidations.WithLabelValues("exhausted").Inc()
		return Result{Outcome: OutcomeWrong, AttemptsLeft: 0, Exhausted: true, Challenge: *ch}
	}

	failedValidations.WithLabelValues(OutcomeWrong.String()).Inc()
	return Result{Outcome: OutcomeWrong, AttemptsLeft: ch.AttemptsLeft, Challenge: *ch}
}

// remove deletes k. The caller must hold s.lock.
func (s *Store) remove(k key) {
	delete(s.entries, k)
	activeChallenges.Set(float64(len(s.entries)))
}

// Clear removes the member's challenge if there is one.
func (s *Store) Clear(guildID, userID string) {
	k := key{guildID: guildID, userID: userID}

	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.entries[k]; ok {
		slog.Info("cleared challenge", "guild", guildID, "user", userID)
		s.remove(k)
	}
}

// SweepExpired removes every challenge that expired or has no attempts left
// and returns how many were removed. Live challenges are not touched.
func (s *Store) SweepExpired() int {
	s.lock.Lock()
	defer s.lock.Unlock()

	now := s.now()
	var n int
	for k, ch := range s.entries {
		if ch.Expired(now) || ch.AttemptsLeft <= 0 {
			delete(s.entries, k)
			n++
		}
	}

	activeChallenges.Set(float64(len(s.entries)))
	challengesSwept.Add(float64(n))

	return n
}

// Len returns the number of challenges held, including ones waiting for the
// next sweep.
func (s *Store) Len() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.entries)
}

// Attempts is the number of answers a fresh challenge accepts.
func (s *Store) Attempts() int {
	return s.attempts
}

// Sweep runs SweepExpired every interval until ctx is done.
func (s *Store) Sweep(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.SweepExpired(); n != 0 {
				slog.Info("cleaned up expired challenges", "count", n)
			}
		}
	}
}
