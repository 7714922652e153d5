// Package catalog holds the static questionnaire definitions. Instruments are YAML documents
// embedded into the binary and may be overridden from a directory at startup.
package catalog

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sync"

	"healthscreen/models"

	"gopkg.in/yaml.v3"
)

//go:embed instruments/*.yaml
var embedded embed.FS

// Catalog is an immutable, ordered set of questionnaires.
type Catalog struct {
	order []string
	byID  map[string]*models.Questionnaire
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the catalog built from the embedded instruments.
// It panics if the embedded files are invalid, which the package tests rule out.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Load(Embedded())
		if err != nil {
			panic(fmt.Sprintf("catalog: invalid embedded instruments: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Embedded returns the embedded instrument files rooted at their directory.
func Embedded() fs.FS {
	sub, err := fs.Sub(embedded, "instruments")
	if err != nil {
		panic(err)
	}
	return sub
}

// Load parses every *.yaml file at the root of each layer, in file name order.
// A questionnaire in a later layer replaces one with the same id in an earlier layer and keeps
// its position; new ids are appended.
func Load(layers ...fs.FS) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]*models.Questionnaire)}
	for _, layer := range layers {
		names, err := fs.Glob(layer, "*.yaml")
		if err != nil {
			return nil, fmt.Errorf("list instrument files: %w", err)
		}
		seen := make(map[string]string, len(names))
		for _, name := range names {
			q, err := parseFile(layer, name)
			if err != nil {
				return nil, err
			}
			if prev, ok := seen[q.ID]; ok {
				return nil, fmt.Errorf("%s: questionnaire id %q already defined in %s", name, q.ID, prev)
			}
			seen[q.ID] = name
			if _, exists := c.byID[q.ID]; !exists {
				c.order = append(c.order, q.ID)
			}
			c.byID[q.ID] = q
		}
	}
	if len(c.order) == 0 {
		return nil, errors.New("no questionnaires found")
	}
	return c, nil
}

// LoadWithOverrides loads the embedded instruments, then the *.yaml files in dir when dir is set.
func LoadWithOverrides(dir string) (*Catalog, error) {
	if dir == "" {
		return Default(), nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("catalog directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("catalog directory %s is not a directory", dir)
	}
	return Load(Embedded(), os.DirFS(dir))
}

func parseFile(fsys fs.FS, name string) (*models.Questionnaire, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	var q models.Questionnaire
	if err := yaml.Unmarshal(data, &q); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path.Base(name), err)
	}
	if q.Scoring == "" {
		q.Scoring = models.ScoringSum
	}
	if err := Validate(&q); err != nil {
		return nil, fmt.Errorf("%s: %w", path.Base(name), err)
	}
	return &q, nil
}

// Questionnaire returns a copy of the questionnaire with the given id. Changing it leaves the
// catalog untouched.
func (c *Catalog) Questionnaire(id string) (*models.Questionnaire, bool) {
	q, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	return q.Clone(), true
}

// Questions returns the ordered questions of a questionnaire rendered in lang.
// An unknown id yields an empty list.
func (c *Catalog) Questions(id string, lang models.Language) []models.LocalizedQuestion {
	q, ok := c.byID[id]
	if !ok {
		return []models.LocalizedQuestion{}
	}
	out := make([]models.LocalizedQuestion, 0, len(q.Questions))
	for i := range q.Questions {
		out = append(out, q.Questions[i].Localize(lang, i+1))
	}
	return out
}

// List returns copies of the questionnaires in declaration order.
func (c *Catalog) List() []*models.Questionnaire {
	out := make([]*models.Questionnaire, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id].Clone())
	}
	return out
}

// IDs returns the questionnaire ids in declaration order.
func (c *Catalog) IDs() []string {
	return append([]string(nil), c.order...)
}
