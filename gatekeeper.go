// Package gatekeeper contains global constants shared by the verification and
// reaction-role bots.
package gatekeeper

import "time"

// Version is the current version of gatekeeper.
//
// This variable is set at build time using the -X linker flag. If not set,
// it defaults to "devel".
var Version = "devel"

const (
	// ChallengeTTL is how long a verification challenge stays solvable.
	ChallengeTTL = 10 * time.Minute

	// ChallengeAttempts is how many wrong answers a user gets per challenge.
	ChallengeAttempts = 5

	// SweepInterval is how often expired or exhausted challenges are dropped.
	SweepInterval = 2 * time.Minute

	// VerifyCooldown is the minimum delay between two presses of the Verify
	// button by the same user.
	VerifyCooldown = 4 * time.Second

	// ChallengeImageName is the attachment name used for puzzle images.
	ChallengeImageName = "challenge.png"
)

// Component custom IDs. These are persisted inside Discord messages, so
// changing them breaks panels that were posted by older versions.
const (
	CustomIDVerifyStart = "verify:start"
	CustomIDVerifySolve = "verify:solve"
	CustomIDVerifyModal = "verify:modal"
	CustomIDVerifyInput = "verify:answer"

	CustomIDRoleTemplate = "rr:template"
	CustomIDRoleBuilder  = "rr:builder"
	CustomIDRoleModal    = "rr:modal"
)

// StoreNeverExpires is passed as the expiry of values that must outlive any
// TTL, such as guild configuration.
const StoreNeverExpires time.Duration = 0
