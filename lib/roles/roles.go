// Package roles changes member roles and reports what happened in a form
// the bots can turn into a message.
package roles

import (
	"context"
	"errors"
	"net/http"
	"slices"

	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var roleChanges = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "gatekeeper_role_changes",
	Help: "The number of role grants and revocations by outcome",
}, []string{"action", "outcome"})

// Outcome of a role change.
type Outcome int

const (
	OK Outcome = iota
	// PermissionDenied means the bot lacks Manage Roles or the role sits
	// above the bot's highest role.
	PermissionDenied
	// NotFound means the member or the role no longer exists.
	NotFound
	// Failed covers everything else, including network errors.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case PermissionDenied:
		return "permission_denied"
	case NotFound:
		return "not_found"
	default:
		return "failed"
	}
}

// Mutator is the part of *discordgo.Session that changes roles.
type Mutator interface {
	GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	GuildMemberRoleRemove(guildID, userID, roleID string, options ...discordgo.RequestOption) error
}

// Classify maps an error from the Discord REST API to an Outcome.
func Classify(err error) Outcome {
	if err == nil {
		return OK
	}

	var rerr *discordgo.RESTError
	if !errors.As(err, &rerr) {
		return Failed
	}

	if rerr.Message != nil {
		switch rerr.Message.Code {
		case discordgo.ErrCodeMissingPermissions, discordgo.ErrCodeMissingAccess:
			return PermissionDenied
		case discordgo.ErrCodeUnknownMember, discordgo.ErrCodeUnknownRole, discordgo.ErrCodeUnknownUser, discordgo.ErrCodeUnknownGuild:
			return NotFound
		}
	}

	if rerr.Response != nil {
		switch rerr.Response.StatusCode {
		case http.StatusForbidden:
			return PermissionDenied
		case http.StatusNotFound:
			return NotFound
		}
	}

	return Failed
}

func options(ctx context.Context, reason string) []discordgo.RequestOption {
	opts := []discordgo.RequestOption{discordgo.WithContext(ctx)}
	if reason != "" {
		opts = append(opts, discordgo.WithAuditLogReason(reason))
	}
	return opts
}

// Grant adds roleID to the member. The error is returned alongside the
// outcome for logging.
func Grant(ctx context.Context, m Mutator, guildID, userID, roleID, reason string) (Outcome, error) {
	err := m.GuildMemberRoleAdd(guildID, userID, roleID, options(ctx, reason)...)
	result := Classify(err)
	roleChanges.WithLabelValues("grant", result.String()).Inc()
	return result, err
}

// Revoke removes roleID from the member.
func Revoke(ctx context.Context, m Mutator, guildID, userID, roleID, reason string) (Outcome, error) {
	err := m.GuildMemberRoleRemove(guildID, userID, roleID, options(ctx, reason)...)
	result := Classify(err)
	roleChanges.WithLabelValues("revoke", result.String()).Inc()
	return result, err
}

// HasRole reports whether the member has roleID.
func HasRole(m *discordgo.Member, roleID string) bool {
	return m != nil && slices.Contains(m.Roles, roleID)
}

// Find returns the role with the given ID or nil.
func Find(roles []*discordgo.Role, id string) *discordgo.Role {
	for _, r := range roles {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// Permissions computes the guild-wide permissions of a member from the
// @everyone role (whose ID is the guild ID) and the member's roles.
// Administrators get every permission.
func Permissions(guildID string, roles []*discordgo.Role, m *discordgo.Member) int64 {
	var perms int64

	if everyone := Find(roles, guildID); everyone != nil {
		perms |= everyone.Permissions
	}

	for _, id := range m.Roles {
		if r := Find(roles, id); r != nil {
			perms |= r.Permissions
		}
	}

	if perms&discordgo.PermissionAdministrator != 0 {
		return discordgo.PermissionAll
	}

	return perms
}

// TopPosition is the position of the member's highest role, or 0 when the
// member only has @everyone.
func TopPosition(roles []*discordgo.Role, m *discordgo.Member) int {
	var top int
	for _, id := range m.Roles {
		if r := Find(roles, id); r != nil && r.Position > top {
			top = r.Position
		}
	}
	return top
}
