package challenge

import "time"

// Kind names the puzzle family a challenge was generated from.
type Kind string

const (
	KindText Kind = "text"
	KindMath Kind = "math"
)

// Challenge is one outstanding verification puzzle for one member of one
// guild.
type Challenge struct {
	ID           string    `json:"id"`           // UUID identifying the challenge, only used for correlation
	GuildID      string    `json:"guildID"`      // Guild the member is verifying in
	UserID       string    `json:"userID"`       // Member being verified
	Kind         Kind      `json:"kind"`         // Puzzle family
	Answer       string    `json:"answer"`       // Canonical solution
	Image        []byte    `json:"image"`        // PNG shown to the member, redisplayed on retry
	IssuedAt     time.Time `json:"issuedAt"`     // When the challenge was issued
	ExpiresAt    time.Time `json:"expiresAt"`    // IssuedAt + TTL
	AttemptsLeft int       `json:"attemptsLeft"` // Wrong answers left before the challenge is dropped
}

// Expired reports whether the challenge can no longer be answered at now.
func (c *Challenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

func (c *Challenge) live(now time.Time) bool {
	return !c.Expired(now) && c.AttemptsLeft > 0
}
