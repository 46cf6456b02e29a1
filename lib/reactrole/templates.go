package reactrole

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/bwmarrin/discordgo"
	"github.com/uvensys/gatekeeper/data"
	"github.com/uvensys/gatekeeper/lib/embeds"
	"github.com/uvensys/gatekeeper/lib/localization"
	"sigs.k8s.io/yaml"
)

var (
	ErrNoTemplates        = errors.New("reactrole: no templates defined")
	ErrTooManyTemplates   = errors.New("reactrole: a select menu holds at most 25 templates")
	ErrTemplateIncomplete = errors.New("reactrole: template must have a key, label and title")
	ErrTemplateDuplicate  = errors.New("reactrole: template key is used twice")
)

// maxSelectOptions is Discord's limit on options in one select menu.
const maxSelectOptions = 25

type ExamplePair struct {
	Emoji string `json:"emoji"`
	Role  string `json:"role"`
}

// Template prefills a reaction-role message. Title and Description are used
// when the administrator leaves the modal fields blank.
type Template struct {
	Key          string        `json:"key"`
	Label        string        `json:"label"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	ExamplePairs []ExamplePair `json:"example_pairs"`
}

// Templates is ordered. The first entry is the default.
type Templates []Template

func (t Templates) Valid() error {
	var errs []error

	if len(t) == 0 {
		return ErrNoTemplates
	}
	if len(t) > maxSelectOptions {
		errs = append(errs, fmt.Errorf("%w: got %d", ErrTooManyTemplates, len(t)))
	}

	seen := map[string]bool{}
	for i, tpl := range t {
		if tpl.Key == "" || tpl.Label == "" || tpl.Title == "" {
			errs = append(errs, fmt.Errorf("%w: template %d", ErrTemplateIncomplete, i))
		}
		if seen[tpl.Key] {
			errs = append(errs, fmt.Errorf("%w: %q", ErrTemplateDuplicate, tpl.Key))
		}
		seen[tpl.Key] = true
	}

	return errors.Join(errs...)
}

// Get returns the template named key, or the default one.
func (t Templates) Get(key string) Template {
	for _, tpl := range t {
		if tpl.Key == key {
			return tpl
		}
	}
	return t[0]
}

// LoadTemplates reads a YAML list of templates from fsys.
func LoadTemplates(fsys fs.FS, fname string) (Templates, error) {
	raw, err := fs.ReadFile(fsys, fname)
	if err != nil {
		return nil, fmt.Errorf("can't read templates %s: %w", fname, err)
	}

	var result Templates
	if err := yaml.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("can't parse templates %s: %w", fname, err)
	}

	if err := result.Valid(); err != nil {
		return nil, fmt.Errorf("templates %s are invalid: %w", fname, err)
	}

	return result, nil
}

// DefaultTemplates are the templates built into the binary.
func DefaultTemplates() (Templates, error) {
	return LoadTemplates(data.Defaults, "templates.yaml")
}

// Preview shows how a message built from tpl looks, with the example pairs
// standing in for real roles.
func Preview(b *embeds.Builder, l *localization.SimpleLocalizer, tpl Template) *discordgo.MessageEmbed {
	e := b.Info(tpl.Title, tpl.Description)

	if len(tpl.ExamplePairs) != 0 {
		lines := make([]string, 0, len(tpl.ExamplePairs))
		for _, p := range tpl.ExamplePairs {
			lines = append(lines, legendLine(p.Emoji, "@"+p.Role))
		}
		e.Fields = append(e.Fields, LegendFields(l.T("rr_react_with"), lines)...)
	}

	return embeds.AddField(e, l.T("rr_how_it_works"), l.T("rr_how_it_works_preview"))
}
