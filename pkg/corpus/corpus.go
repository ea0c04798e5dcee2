// Package corpus loads the reference documents that submitted text is checked
// against. A Corpus is built once at startup and is read-only afterwards.
package corpus

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrBlankText is returned by Builder.Add for empty or whitespace-only text.
	ErrBlankText = errors.New("document text is blank")

	// ErrNameExhausted is returned when no unique suffix could be found for a
	// document name. The suffix search is bounded by the corpus size, so this
	// indicates a bug rather than bad input.
	ErrNameExhausted = errors.New("no unique document name available")
)

// Entry is one reference document.
type Entry struct {
	Name string
	Text string
}

// Corpus is an ordered sequence of entries. Position i is the join key between
// the entry and its embedding in the similarity index.
type Corpus struct {
	names    []string
	texts    []string
	fallback bool
}

// Len returns the number of entries.
func (c *Corpus) Len() int {
	return len(c.names)
}

// Entry returns the entry at position i.
func (c *Corpus) Entry(i int) Entry {
	return Entry{Name: c.names[i], Text: c.texts[i]}
}

// Name returns the unique name of entry i.
func (c *Corpus) Name(i int) string {
	return c.names[i]
}

// Text returns the text of entry i.
func (c *Corpus) Text(i int) string {
	return c.texts[i]
}

// Names returns a copy of all names in corpus order.
func (c *Corpus) Names() []string {
	return append([]string(nil), c.names...)
}

// Texts returns a copy of all texts in corpus order.
func (c *Corpus) Texts() []string {
	return append([]string(nil), c.texts...)
}

// IsFallback reports whether the placeholder corpus was substituted because
// no source produced any documents.
func (c *Corpus) IsFallback() bool {
	return c.fallback
}

// Fallback returns the two-entry placeholder corpus used when loading yields
// nothing, so the index is never empty.
func Fallback() *Corpus {
	return &Corpus{
		names: []string{"Fallback_A", "Fallback_B"},
		texts: []string{
			"This is a default document.",
			"Please add 'medium_articles_1.csv' or 'medium_articles_2.csv'.",
		},
		fallback: true,
	}
}

// New builds a corpus from entries, applying the same name deduplication as
// the loader. Unlike Builder.Build it does not substitute the fallback.
func New(entries ...Entry) (*Corpus, error) {
	b := NewBuilder()
	for _, e := range entries {
		if _, err := b.Add(e.Name, e.Text); err != nil {
			return nil, err
		}
	}
	return b.corpus(), nil
}

// Builder accumulates entries, enforcing non-blank text and unique names.
type Builder struct {
	names []string
	texts []string
	taken map[string]struct{}
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{taken: make(map[string]struct{})}
}

// Len returns the number of entries added so far.
func (b *Builder) Len() int {
	return len(b.names)
}

// Add appends an entry and returns the name it was stored under: name itself,
// or name with the first free "_N" suffix (N = 1, 2, ...) on collision.
func (b *Builder) Add(name, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrBlankText
	}

	unique, err := b.uniqueName(name)
	if err != nil {
		return "", err
	}

	b.names = append(b.names, unique)
	b.texts = append(b.texts, text)
	b.taken[unique] = struct{}{}
	return unique, nil
}

func (b *Builder) uniqueName(name string) (string, error) {
	if _, ok := b.taken[name]; !ok {
		return name, nil
	}

	// len(names) taken names can block at most len(names) suffixes
	for n := 1; n <= len(b.names)+1; n++ {
		candidate := fmt.Sprintf("%s_%d", name, n)
		if _, ok := b.taken[candidate]; !ok {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrNameExhausted, name)
}

// Build returns the accumulated corpus, or the fallback corpus when nothing
// was added.
func (b *Builder) Build() *Corpus {
	if b.Len() == 0 {
		return Fallback()
	}
	return b.corpus()
}

func (b *Builder) corpus() *Corpus {
	return &Corpus{
		names: append([]string(nil), b.names...),
		texts: append([]string(nil), b.texts...),
	}
}
