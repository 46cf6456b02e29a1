package localization

import (
	"embed"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

type LocalizationService struct {
	bundle *i18n.Bundle
}

var (
	globalService *LocalizationService
	once          sync.Once
)

func NewLocalizationService() *LocalizationService {
	once.Do(func() {
		bundle := i18n.NewBundle(language.English)
		bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

		entries, err := localeFS.ReadDir("locales")
		if err != nil {
			slog.Error("can't list embedded locales", "err", err)
		}

		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
				continue
			}

			if _, err := bundle.LoadMessageFileFS(localeFS, "locales/"+entry.Name()); err != nil {
				slog.Error("can't load locale", "file", entry.Name(), "err", err)
			}
		}

		globalService = &LocalizationService{bundle: bundle}
	})

	return globalService
}

// Languages returns the languages that have a message file.
func (ls *LocalizationService) Languages() []language.Tag {
	return ls.bundle.LanguageTags()
}

func (ls *LocalizationService) GetLocalizer(lang ...string) *i18n.Localizer {
	return i18n.NewLocalizer(ls.bundle, append(lang, "en")...)
}

// SimpleLocalizer wraps i18n.Localizer with a more convenient API
type SimpleLocalizer struct {
	Localizer *i18n.Localizer
}

// T provides a concise way to localize messages
func (sl *SimpleLocalizer) T(messageID string) string {
	return sl.TD(messageID, nil)
}

// TD localizes a message that has template fields. Unknown message IDs are
// returned as-is so a missing translation never takes a handler down.
func (sl *SimpleLocalizer) TD(messageID string, data map[string]any) string {
	result, err := sl.Localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err != nil {
		slog.Warn("missing translation", "id", messageID, "err", err)
		if result == "" {
			return messageID
		}
	}
	return result
}

// ForLocale picks the closest message file for a Discord locale such as
// "en-US", "fr" or "de". English is the fallback.
func ForLocale(locales ...discordgo.Locale) *SimpleLocalizer {
	var langs []string
	for _, l := range locales {
		if l != "" {
			langs = append(langs, string(l))
		}
	}

	return &SimpleLocalizer{Localizer: NewLocalizationService().GetLocalizer(langs...)}
}

// GetLocalizer creates a localizer for the member's client language, falling
// back to the guild's preferred language and then English.
func GetLocalizer(i *discordgo.InteractionCreate) *SimpleLocalizer {
	locales := []discordgo.Locale{i.Locale}
	if i.GuildLocale != nil {
		locales = append(locales, *i.GuildLocale)
	}
	return ForLocale(locales...)
}
