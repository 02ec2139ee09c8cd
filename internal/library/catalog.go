package library

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/p-n-ai/pai-study/internal/inference"
)

// Catalog is an immutable, ordered view of the library.
type Catalog struct {
	subjects []Subject
	chapters map[string]Chapter
}

// NewCatalog builds a catalog, stamping each chapter with its subject and
// merging subjects that appear more than once.
func NewCatalog(subjects []Subject) *Catalog {
	c := &Catalog{chapters: make(map[string]Chapter)}
	index := make(map[string]int)

	for _, s := range subjects {
		if s.Name == "" {
			continue
		}
		i, ok := index[s.Name]
		if !ok {
			i = len(c.subjects)
			index[s.Name] = i
			c.subjects = append(c.subjects, Subject{Name: s.Name})
		}
		for _, ch := range s.Chapters {
			if ch.ID == "" {
				continue
			}
			ch.Subject = s.Name
			if ch.Title == "" {
				ch.Title = ch.Filename
			}
			c.subjects[i].Chapters = append(c.subjects[i].Chapters, ch)
			c.chapters[ch.ID] = ch
		}
	}
	return c
}

// FromInference converts the inference service's library listing.
func FromInference(resp inference.LibraryResponse) *Catalog {
	subjects := make([]Subject, 0, len(resp.Subjects))
	for _, s := range resp.Subjects {
		subj := Subject{Name: s.Subject}
		for _, ch := range s.Chapters {
			grade, _ := ch.Grade.Int()
			subj.Chapters = append(subj.Chapters, Chapter{
				ID:       ch.ID,
				Title:    ch.Title,
				Grade:    grade,
				Filename: ch.Filename,
			})
		}
		subjects = append(subjects, subj)
	}
	return NewCatalog(subjects)
}

// Lister is the part of the inference service the catalog needs.
type Lister interface {
	Library(ctx context.Context) (inference.LibraryResponse, error)
}

// Fetch loads the catalog from the inference service.
func Fetch(ctx context.Context, l Lister) (*Catalog, error) {
	resp, err := l.Library(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching library: %w", err)
	}
	c := FromInference(resp)
	slog.Info("library fetched", "subjects", len(c.subjects), "chapters", len(c.chapters))
	return c, nil
}

// LoadDir reads every *.yaml / *.yml file under root as one subject.
func LoadDir(root string) (*Catalog, error) {
	var subjects []Subject
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(path, ".yaml") && !strings.HasSuffix(path, ".yml") {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		var s Subject
		if err := yaml.Unmarshal(data, &s); err != nil {
			slog.Warn("skipping invalid library YAML", "path", path, "error", err)
			return nil
		}
		if s.Name == "" {
			return nil // Not a subject file
		}
		subjects = append(subjects, s)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading library: %w", err)
	}

	sort.SliceStable(subjects, func(i, j int) bool { return subjects[i].Name < subjects[j].Name })
	c := NewCatalog(subjects)
	slog.Info("library loaded", "path", root, "subjects", len(c.subjects), "chapters", len(c.chapters))
	return c, nil
}

// Subjects returns all subjects in catalog order.
func (c *Catalog) Subjects() []Subject {
	out := make([]Subject, len(c.subjects))
	for i, s := range c.subjects {
		out[i] = Subject{Name: s.Name, Chapters: append([]Chapter(nil), s.Chapters...)}
	}
	return out
}

// SubjectNames returns subject names, or DefaultSubjects when empty.
func (c *Catalog) SubjectNames() []string {
	if c == nil || len(c.subjects) == 0 {
		return append([]string(nil), DefaultSubjects...)
	}
	names := make([]string, len(c.subjects))
	for i, s := range c.subjects {
		names[i] = s.Name
	}
	return names
}

// Chapter looks a chapter up by ID.
func (c *Catalog) Chapter(id string) (Chapter, bool) {
	ch, ok := c.chapters[id]
	return ch, ok
}

// HasSubject reports whether the subject can be selected: it is in the
// catalog, or the catalog is empty and it is a default subject.
func (c *Catalog) HasSubject(name string) bool {
	return slices.Contains(c.SubjectNames(), name)
}

// ForGrade keeps only chapters of the given grade and drops subjects left
// without chapters.
func (c *Catalog) ForGrade(grade int) *Catalog {
	filtered := make([]Subject, 0, len(c.subjects))
	for _, s := range c.subjects {
		var chapters []Chapter
		for _, ch := range s.Chapters {
			if ch.Grade == grade {
				chapters = append(chapters, ch)
			}
		}
		if len(chapters) > 0 {
			filtered = append(filtered, Subject{Name: s.Name, Chapters: chapters})
		}
	}
	return NewCatalog(filtered)
}
