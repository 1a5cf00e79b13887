// Package rubric provides the rating scale, rater instructions and
// per-competency behavioural criteria shown next to the data-entry form.
//
// The content ships embedded as YAML in several languages; callers pick one
// with language preferences such as a query parameter or Accept-Language.
package rubric

import (
	_ "embed"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed rubric.yaml
var embedded []byte

// Level describes one point of the rating scale, optionally with the
// behaviours expected at that level for a competency.
type Level struct {
	Score      int      `json:"score"`
	Label      string   `json:"label"`
	Behaviours []string `json:"behaviours,omitempty"`
}

// Competency lists the behavioural criteria for each score of a competency.
type Competency struct {
	Name   string  `json:"name"`
	Levels []Level `json:"levels"`
}

// Rubric is the help content in a single language.
type Rubric struct {
	Language     string       `json:"language"`
	Title        string       `json:"title"`
	Scale        []Level      `json:"scale"`
	Instructions []string     `json:"instructions"`
	Competencies []Competency `json:"competencies"`
}

// Label returns the scale label for score.
func (r Rubric) Label(score int) (string, bool) {
	if score < 1 || score > len(r.Scale) {
		return "", false
	}
	return r.Scale[score-1].Label, true
}

// Catalog holds every available translation of the rubric.
type Catalog struct {
	tags    []language.Tag
	rubrics []Rubric
	matcher language.Matcher
}

type document struct {
	Default   string                 `yaml:"default"`
	Languages map[string]translation `yaml:"languages"`
}

type translation struct {
	Title        string   `yaml:"title"`
	Scale        []string `yaml:"scale"`
	Instructions []string `yaml:"instructions"`
	Competencies []struct {
		Name   string     `yaml:"name"`
		Levels [][]string `yaml:"levels"`
	} `yaml:"competencies"`
}

// Load parses the embedded rubric.
func Load() (*Catalog, error) {
	return Parse(embedded)
}

// Parse builds a Catalog from a YAML document. The default language is
// placed first and is used whenever no preference matches.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRubric, err)
	}
	if len(doc.Languages) == 0 {
		return nil, fmt.Errorf("%w: no languages", ErrInvalidRubric)
	}
	if _, ok := doc.Languages[doc.Default]; !ok {
		return nil, fmt.Errorf("%w: default language %q missing", ErrInvalidRubric, doc.Default)
	}

	keys := make([]string, 0, len(doc.Languages))
	keys = append(keys, doc.Default)
	for key := range doc.Languages {
		if key != doc.Default {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys[1:])

	c := &Catalog{}
	for _, key := range keys {
		tag, err := language.Parse(key)
		if err != nil {
			return nil, fmt.Errorf("%w: language %q: %w", ErrInvalidRubric, key, err)
		}
		r, err := build(tag, doc.Languages[key])
		if err != nil {
			return nil, err
		}
		c.tags = append(c.tags, tag)
		c.rubrics = append(c.rubrics, r)
	}
	c.matcher = language.NewMatcher(c.tags)
	return c, nil
}

func build(tag language.Tag, t translation) (Rubric, error) {
	if len(t.Scale) == 0 {
		return Rubric{}, fmt.Errorf("%w: %s has an empty scale", ErrInvalidRubric, tag)
	}
	r := Rubric{
		Language:     tag.String(),
		Title:        t.Title,
		Instructions: t.Instructions,
		Scale:        make([]Level, len(t.Scale)),
	}
	for i, label := range t.Scale {
		r.Scale[i] = Level{Score: i + 1, Label: label}
	}
	for _, comp := range t.Competencies {
		if len(comp.Levels) != len(t.Scale) {
			return Rubric{}, fmt.Errorf("%w: %s/%s has %d levels for a %d-point scale",
				ErrInvalidRubric, tag, comp.Name, len(comp.Levels), len(t.Scale))
		}
		c := Competency{Name: comp.Name, Levels: make([]Level, len(comp.Levels))}
		for i, behaviours := range comp.Levels {
			c.Levels[i] = Level{Score: i + 1, Label: t.Scale[i], Behaviours: behaviours}
		}
		r.Competencies = append(r.Competencies, c)
	}
	return r, nil
}

// Supported returns the available languages, default first.
func (c *Catalog) Supported() []language.Tag {
	out := make([]language.Tag, len(c.tags))
	copy(out, c.tags)
	return out
}

// Default returns the rubric in the default language.
func (c *Catalog) Default() Rubric { return c.rubrics[0] }

// For returns the best match for the given tags, falling back to the default
// language when nothing matches.
func (c *Catalog) For(tags ...language.Tag) Rubric {
	if len(tags) == 0 {
		return c.Default()
	}
	_, idx, conf := c.matcher.Match(tags...)
	if conf == language.No {
		return c.Default()
	}
	return c.rubrics[idx]
}

// Match parses raw preferences in priority order (for example a "lang" query
// value followed by an Accept-Language header) and returns the best rubric.
// Unparseable preferences are skipped.
func (c *Catalog) Match(prefs ...string) Rubric {
	var tags []language.Tag
	for _, pref := range prefs {
		if strings.TrimSpace(pref) == "" {
			continue
		}
		parsed, _, err := language.ParseAcceptLanguage(pref)
		if err != nil {
			continue
		}
		tags = append(tags, parsed...)
	}
	return c.For(tags...)
}
