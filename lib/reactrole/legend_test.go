package reactrole

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
)

func TestEmojiString(t *testing.T) {
	emojis := []*discordgo.Emoji{
		{ID: "100000000000000001", Name: "blob"},
		{ID: "100000000000000002", Name: "dance", Animated: true},
	}

	for _, tt := range []struct {
		key      EmojiKey
		want     string
		reaction string
	}{
		{"u:😀", "😀", "😀"},
		{"e:100000000000000001", "<:blob:100000000000000001>", "blob:100000000000000001"},
		{"e:100000000000000002", "<a:dance:100000000000000002>", "dance:100000000000000002"},
		{"e:100000000000000009", "<:emoji:100000000000000009>", "emoji:100000000000000009"},
	} {
		if got := EmojiString(tt.key, emojis); got != tt.want {
			t.Errorf("EmojiString(%s): want %q, got %q", tt.key, tt.want, got)
		}
		if got := reactionID(tt.key, emojis); got != tt.reaction {
			t.Errorf("reactionID(%s): want %q, got %q", tt.key, tt.reaction, got)
		}
	}
}

func TestLegendLines(t *testing.T) {
	guildRoles := []*discordgo.Role{{ID: "1", Name: "Updates"}, {ID: "2", Name: "Events"}}
	pairs := Pairs{
		{Key: "u:🔔", RoleID: "1"},
		{Key: "u:👻", RoleID: "404"},
		{Key: "u:🎉", RoleID: "2"},
	}

	got := LegendLines(pairs, guildRoles, nil)
	want := []string{"• 🔔 → <@&1>", "• 🎉 → <@&2>"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("want %v, got %v", want, got)
	}
}

func TestLegendFields(t *testing.T) {
	if fields := LegendFields("React with", nil); len(fields) != 0 {
		t.Errorf("no lines should give no fields, got %d", len(fields))
	}

	// 40 lines of 50 runes (51 with the newline) need two fields.
	line := "• " + strings.Repeat("é", 48)
	var lines []string
	for range 40 {
		lines = append(lines, line)
	}

	fields := LegendFields("React with", lines)
	if len(fields) != 2 {
		t.Fatalf("want 2 fields, got %d", len(fields))
	}

	var total int
	for _, f := range fields {
		if f.Name != "React with" {
			t.Errorf("unexpected field name %q", f.Name)
		}
		if n := utf8.RuneCountInString(f.Value); n > maxFieldValue {
			t.Errorf("field holds %d runes, over the limit", n)
		}
		total += strings.Count(f.Value, "\n") + 1
	}
	if total != len(lines) {
		t.Errorf("lines were lost: want %d, got %d", len(lines), total)
	}

	long := strings.Repeat("x", maxFieldValue+10)
	if fields := LegendFields("React with", []string{"short", long, "short"}); len(fields) != 3 {
		t.Errorf("an oversized line should get its own field, got %d fields", len(fields))
	}
}
