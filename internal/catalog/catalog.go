// Package catalog provides the built-in parts catalog, the translation
// dictionary, and the localized views of orders and parts.
package catalog

import (
	_ "embed"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vorokhovskii-creator/felix-hub/internal/models"
)

//go:embed default_catalog.yaml
var defaultYAML []byte

// Translation is a part or category name in the secondary languages.
type Translation struct {
	EN string `yaml:"en"`
	HE string `yaml:"he"`
}

type entry struct {
	RU string `yaml:"ru"`
	EN string `yaml:"en"`
	HE string `yaml:"he"`
}

type categoryEntry struct {
	Name  string  `yaml:"name"`
	EN    string  `yaml:"en"`
	HE    string  `yaml:"he"`
	Parts []entry `yaml:"parts"`
}

type file struct {
	Categories   []categoryEntry        `yaml:"categories"`
	Translations map[string]Translation `yaml:"translations"`
}

var (
	builtin    file
	dictionary = map[string]Translation{}
)

func init() {
	if err := yaml.Unmarshal(defaultYAML, &builtin); err != nil {
		panic("catalog: parse default_catalog.yaml: " + err.Error())
	}
	for _, c := range builtin.Categories {
		dictionary[strings.ToLower(c.Name)] = Translation{EN: c.EN, HE: c.HE}
		for _, p := range c.Parts {
			dictionary[strings.ToLower(p.RU)] = Translation{EN: p.EN, HE: p.HE}
		}
	}
	for ru, tr := range builtin.Translations {
		dictionary[strings.ToLower(ru)] = tr
	}
}

// Default returns fresh copies of the built-in categories and parts, with
// sort orders following their position in the file.
func Default() ([]models.Category, []models.Part) {
	var (
		categories []models.Category
		parts      []models.Part
	)
	for i, c := range builtin.Categories {
		categories = append(categories, models.Category{
			Name:      c.Name,
			NameRU:    c.Name,
			NameEN:    c.EN,
			NameHE:    c.HE,
			IsActive:  true,
			SortOrder: i,
		})
		for j, p := range c.Parts {
			parts = append(parts, models.Part{
				Name:      p.RU,
				NameRU:    p.RU,
				NameEN:    p.EN,
				NameHE:    p.HE,
				Category:  c.Name,
				IsActive:  true,
				SortOrder: j,
			})
		}
	}
	return categories, parts
}

// FindTranslation looks up a Russian name in the dictionary, ignoring case
// and surrounding space.
func FindTranslation(nameRU string) (Translation, bool) {
	tr, ok := dictionary[strings.ToLower(strings.TrimSpace(nameRU))]
	return tr, ok
}

// FillTranslations sets the part's missing en/he names from the dictionary.
// Explicit values are kept.
func FillTranslations(p *models.Part) {
	if p.NameEN != "" && p.NameHE != "" {
		return
	}
	tr, ok := FindTranslation(p.NameRU)
	if !ok {
		return
	}
	if p.NameEN == "" {
		p.NameEN = tr.EN
	}
	if p.NameHE == "" {
		p.NameHE = tr.HE
	}
}

func FillCategoryTranslations(c *models.Category) {
	ru := c.NameRU
	if ru == "" {
		ru = c.Name
	}
	tr, ok := FindTranslation(ru)
	if !ok {
		return
	}
	if c.NameEN == "" {
		c.NameEN = tr.EN
	}
	if c.NameHE == "" {
		c.NameHE = tr.HE
	}
}
