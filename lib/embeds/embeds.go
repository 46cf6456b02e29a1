// Package embeds builds the message embeds both bots reply with.
package embeds

import (
	"time"

	"github.com/bwmarrin/discordgo"
)

// Palette
const (
	ColorAccent  = 0x5865F2
	ColorSuccess = 0x57F287
	ColorWarn    = 0xF1C40F
	ColorNotice  = 0xE67E22
	ColorError   = 0xED4245
)

// Builder stamps every embed with the same footer.
type Builder struct {
	Footer string
	Now    func() time.Time
}

func (b *Builder) now() time.Time {
	if b == nil || b.Now == nil {
		return time.Now()
	}
	return b.Now()
}

// Base returns an embed with the footer and timestamp set. Empty title or
// description are left out.
func (b *Builder) Base(title, description string, color int) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   b.now().UTC().Format(time.RFC3339),
	}

	if b != nil && b.Footer != "" {
		e.Footer = &discordgo.MessageEmbedFooter{Text: b.Footer}
	}

	return e
}

func (b *Builder) Info(title, description string) *discordgo.MessageEmbed {
	return b.Base(title, description, ColorAccent)
}

func (b *Builder) Success(title, description string) *discordgo.MessageEmbed {
	return b.Base(title, description, ColorSuccess)
}

func (b *Builder) Warn(title, description string) *discordgo.MessageEmbed {
	return b.Base(title, description, ColorWarn)
}

// Notice is for recoverable problems the member can fix by trying again.
func (b *Builder) Notice(title, description string) *discordgo.MessageEmbed {
	return b.Base(title, description, ColorNotice)
}

func (b *Builder) Error(title, description string) *discordgo.MessageEmbed {
	return b.Base(title, description, ColorError)
}

// AddField appends a non-inline field.
func AddField(e *discordgo.MessageEmbed, name, value string) *discordgo.MessageEmbed {
	e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: name, Value: value})
	return e
}

// WithImage points the embed image at an attachment of the same message.
func WithImage(e *discordgo.MessageEmbed, attachment string) *discordgo.MessageEmbed {
	e.Image = &discordgo.MessageEmbedImage{URL: "attachment://" + attachment}
	return e
}
