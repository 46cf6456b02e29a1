// Package reactrole implements reaction-role messages: an administrator
// builds an embed that maps emojis to roles, and members toggle those roles
// by adding or removing their reaction.
package reactrole

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/bwmarrin/discordgo"
)

var (
	ErrNoPairs           = errors.New("reactrole: no emoji:role pairs provided")
	ErrMissingSeparator  = errors.New("reactrole: missing ':' separator, expected something like '<:name:id>:role_id' or '😀:role_id'")
	ErrRoleNotNumeric    = errors.New("reactrole: role id must be numeric")
	ErrDuplicateEmoji    = errors.New("reactrole: duplicate emoji mapping")
	ErrEmojiNotFound     = errors.New("reactrole: emoji not found in this server, use <:name:id> or the emoji ID")
	ErrEmojiAmbiguous    = errors.New("reactrole: emoji name matches several emojis, specify the ID")
	ErrInvalidChannel    = errors.New("reactrole: invalid channel, use a channel mention like #channel or the numeric channel ID")
	ErrRoleNotFound      = errors.New("reactrole: role not found")
	ErrMissingManageRole = errors.New("reactrole: bot lacks 'Manage Roles' permission")
	ErrRoleTooHigh       = errors.New("reactrole: bot's top role must be higher than the role")
)

// EmojiKey identifies an emoji in a mapping. It is one of:
//
//	e:<id>    custom emoji by ID
//	u:<emoji> unicode emoji
//	n:<name>  custom emoji by name, resolved against the guild before use
type EmojiKey string

const (
	kindCustom  = "e:"
	kindUnicode = "u:"
	kindName    = "n:"
)

func CustomKey(id string) EmojiKey { return EmojiKey(kindCustom + id) }
func UnicodeKey(s string) EmojiKey { return EmojiKey(kindUnicode + s) }
func NameKey(name string) EmojiKey { return EmojiKey(kindName + name) }
func (k EmojiKey) IsCustom() bool  { return strings.HasPrefix(string(k), kindCustom) }
func (k EmojiKey) IsName() bool    { return strings.HasPrefix(string(k), kindName) }
func (k EmojiKey) Value() string   { return string(k)[min(len(k), 2):] }

// ReactionKey is the key of an emoji seen on a reaction event.
func ReactionKey(e discordgo.Emoji) EmojiKey {
	if e.ID != "" {
		return CustomKey(e.ID)
	}
	return UnicodeKey(e.Name)
}

// Pair maps one emoji to one role.
type Pair struct {
	Key    EmojiKey
	RoleID string
}

// Pairs keeps the order the administrator typed them in. Legends and
// reactions follow that order.
type Pairs []Pair

func (p Pairs) Has(k EmojiKey) bool {
	for _, pair := range p {
		if pair.Key == k {
			return true
		}
	}
	return false
}

// Map converts the pairs into the form that is persisted.
func (p Pairs) Map() map[EmojiKey]string {
	result := make(map[EmojiKey]string, len(p))
	for _, pair := range p {
		result[pair.Key] = pair.RoleID
	}
	return result
}

// Emoji names may contain any letter or digit, not just ASCII ones.
var (
	customWithID   = regexp.MustCompile(`^<a?:([\p{L}\p{N}_]+):(\d{15,25})>$`)
	customNameOnly = regexp.MustCompile(`^<a?:([\p{L}\p{N}_]+):>$`)
	colonName      = regexp.MustCompile(`^:([\p{L}\p{N}_]+):$`)
	digits         = regexp.MustCompile(`^[0-9]+$`)
	nameish        = regexp.MustCompile(`[A-Za-z_]`)
)

func parseEmoji(left string) EmojiKey {
	if m := customWithID.FindStringSubmatch(left); m != nil {
		return CustomKey(m[2])
	}
	if m := customNameOnly.FindStringSubmatch(left); m != nil {
		return NameKey(m[1])
	}
	if m := colonName.FindStringSubmatch(left); m != nil {
		return NameKey(m[1])
	}
	if digits.MatchString(left) {
		return CustomKey(left)
	}
	if nameish.MatchString(left) {
		return NameKey(left)
	}
	return UnicodeKey(left)
}

// ParseMappings reads one "emoji:role_id" pair per line. The line is split
// on its last colon, so custom emoji syntax like <:name:id> keeps working.
// Blank lines are skipped and errors are numbered by non-blank line.
func ParseMappings(text string) (Pairs, []error) {
	if strings.TrimSpace(text) == "" {
		return nil, []error{ErrNoPairs}
	}

	var (
		pairs Pairs
		errs  []error
		n     int
	)

	for raw := range strings.Lines(text) {
		raw = strings.TrimRight(raw, "\r\n")
		if strings.TrimSpace(raw) == "" {
			continue
		}
		n++

		sep := strings.LastIndexByte(raw, ':')
		if sep < 0 {
			errs = append(errs, fmt.Errorf("line %d: %w", n, ErrMissingSeparator))
			continue
		}

		left := strings.TrimSpace(raw[:sep])
		roleID := strings.TrimSpace(raw[sep+1:])
		if !digits.MatchString(roleID) {
			errs = append(errs, fmt.Errorf("line %d: %w: %q", n, ErrRoleNotNumeric, roleID))
			continue
		}

		key := parseEmoji(left)
		if pairs.Has(key) {
			errs = append(errs, fmt.Errorf("line %d: %w: %q", n, ErrDuplicateEmoji, raw))
			continue
		}

		pairs = append(pairs, Pair{Key: key, RoleID: roleID})
	}

	return pairs, errs
}
