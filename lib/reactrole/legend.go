package reactrole

import (
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"github.com/uvensys/gatekeeper/lib/roles"
)

// maxFieldValue is Discord's limit on the length of an embed field value.
const maxFieldValue = 1024

func legendLine(emoji, role string) string {
	return "• " + emoji + " → " + role
}

// EmojiString renders key the way it has to appear in message text.
func EmojiString(key EmojiKey, emojis []*discordgo.Emoji) string {
	if !key.IsCustom() {
		return key.Value()
	}

	id := key.Value()
	for _, e := range emojis {
		if e.ID == id {
			return e.MessageFormat()
		}
	}

	return "<:emoji:" + id + ">"
}

// reactionID is the emoji argument MessageReactionAdd expects.
func reactionID(key EmojiKey, emojis []*discordgo.Emoji) string {
	if !key.IsCustom() {
		return key.Value()
	}

	id := key.Value()
	for _, e := range emojis {
		if e.ID == id {
			return e.APIName()
		}
	}

	return "emoji:" + id
}

// LegendLines lists every pair whose role still exists.
func LegendLines(pairs Pairs, guildRoles []*discordgo.Role, emojis []*discordgo.Emoji) []string {
	var lines []string
	for _, p := range pairs {
		role := roles.Find(guildRoles, p.RoleID)
		if role == nil {
			continue
		}
		lines = append(lines, legendLine(EmojiString(p.Key, emojis), role.Mention()))
	}
	return lines
}

// LegendFields packs lines into as few fields as fit the field value limit.
// A single line longer than the limit gets a field of its own.
func LegendFields(name string, lines []string) []*discordgo.MessageEmbedField {
	var (
		fields []*discordgo.MessageEmbedField
		chunk  []string
		size   int
	)

	flush := func() {
		fields = append(fields, &discordgo.MessageEmbedField{Name: name, Value: strings.Join(chunk, "\n")})
	}

	for _, ln := range lines {
		n := utf8.RuneCountInString(ln) + 1
		if size+n > maxFieldValue && len(chunk) != 0 {
			flush()
			chunk, size = nil, 0
		}
		chunk = append(chunk, ln)
		size += n
	}

	if len(chunk) != 0 {
		flush()
	}

	return fields
}
