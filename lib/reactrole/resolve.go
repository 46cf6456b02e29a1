package reactrole

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/uvensys/gatekeeper/lib/roles"
)

// maxAmbiguousExamples caps how many emoji IDs an ambiguity error lists.
const maxAmbiguousExamples = 5

func findEmoji(name string, emojis []*discordgo.Emoji) (*discordgo.Emoji, []*discordgo.Emoji) {
	var exact, folded []*discordgo.Emoji
	for _, e := range emojis {
		if e.Name == name {
			exact = append(exact, e)
		}
		if strings.EqualFold(e.Name, name) {
			folded = append(folded, e)
		}
	}

	if len(exact) == 1 {
		return exact[0], nil
	}
	if len(folded) == 1 {
		return folded[0], nil
	}
	if len(exact) != 0 {
		return nil, exact
	}
	return nil, folded
}

func ambiguous(name string, matches []*discordgo.Emoji) error {
	ids := make([]string, 0, maxAmbiguousExamples)
	for _, e := range matches[:min(len(matches), maxAmbiguousExamples)] {
		ids = append(ids, e.ID)
	}

	more := ""
	if len(matches) > maxAmbiguousExamples {
		more = " ..."
	}

	return fmt.Errorf("%w: %q matches %d emojis, example IDs: %s%s", ErrEmojiAmbiguous, name, len(matches), strings.Join(ids, ", "), more)
}

// Resolve replaces name keys with custom emoji keys from the guild's emojis.
// An exact name match wins over a case-insensitive one, but only when it is
// unique. Ambiguity errors come after all other errors.
func Resolve(pairs Pairs, emojis []*discordgo.Emoji) (Pairs, []error) {
	var (
		result    Pairs
		errs      []error
		conflicts []error
	)

	for _, p := range pairs {
		if !p.Key.IsName() {
			if result.Has(p.Key) {
				errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicateEmoji, p.Key))
				continue
			}
			result = append(result, p)
			continue
		}

		name := p.Key.Value()
		found, matches := findEmoji(name, emojis)
		if found == nil {
			if len(matches) == 0 {
				errs = append(errs, fmt.Errorf("%w: %q", ErrEmojiNotFound, name))
			} else {
				conflicts = append(conflicts, ambiguous(name, matches))
			}
			continue
		}

		key := CustomKey(found.ID)
		if result.Has(key) || pairs.Has(key) {
			errs = append(errs, fmt.Errorf("%w: %q (ID %s)", ErrDuplicateEmoji, name, found.ID))
			continue
		}

		result = append(result, Pair{Key: key, RoleID: p.RoleID})
	}

	return result, append(errs, conflicts...)
}

var (
	channelMention = regexp.MustCompile(`^<#(\d{15,25})>$`)
	snowflake      = regexp.MustCompile(`^\d{15,25}$`)
)

// ChannelID extracts a channel ID from a mention or a bare ID.
func ChannelID(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if m := channelMention.FindStringSubmatch(raw); m != nil {
		return m[1], true
	}
	if snowflake.MatchString(raw) {
		return raw, true
	}
	return "", false
}

// TextChannel accepts ch only if it is a text channel in guildID.
func TextChannel(ch *discordgo.Channel, guildID string) bool {
	return ch != nil && ch.GuildID == guildID && ch.Type == discordgo.ChannelTypeGuildText
}

// ValidateRoles checks that every mapped role exists and that me can assign
// it: me needs Manage Roles and a top role above the mapped role.
func ValidateRoles(pairs Pairs, guildID string, guildRoles []*discordgo.Role, me *discordgo.Member) []error {
	var errs []error

	canManage := me != nil && roles.Permissions(guildID, guildRoles, me)&discordgo.PermissionManageRoles != 0
	top := 0
	if me != nil {
		top = roles.TopPosition(guildRoles, me)
	}

	for _, p := range pairs {
		role := roles.Find(guildRoles, p.RoleID)
		if role == nil {
			errs = append(errs, fmt.Errorf("%w: ID %s", ErrRoleNotFound, p.RoleID))
			continue
		}

		if !canManage {
			errs = append(errs, ErrMissingManageRole)
			break
		}

		if role.Position >= top {
			errs = append(errs, fmt.Errorf("%w: %s (%s)", ErrRoleTooHigh, role.Name, role.ID))
		}
	}

	return errs
}
