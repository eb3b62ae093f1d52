// Package symptoms loads the MS symptom reference table and matches free text
// against it.
package symptoms

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/cloo-solutions/msassist/internal/domain"
)

//go:embed ms_symptoms.json
var defaultTable []byte

const (
	keyCommon     = "common_symptoms"
	keyLessCommon = "less_common_symptoms"
	keyPatterns   = "symptom_patterns"
)

// genericNameWords never match on their own; "problems" in "Vision problems"
// says nothing about vision.
var genericNameWords = map[string]struct{}{
	"or": {}, "and": {}, "the": {}, "of": {}, "ms": {}, "like": {},
	"problems": {}, "issues": {}, "changes": {}, "difficulties": {},
	"dysfunction": {}, "sensations": {}, "sensation": {}, "syndrome": {},
	"sensitivity": {}, "loss": {}, "disturbances": {}, "muscle": {},
	"weakness": {}, "legs": {}, "band": {}, "tight": {},
}

type entryJSON struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Pattern     string   `json:"pattern,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
}

type matcher struct {
	entry domain.SymptomEntry
	terms [][]string
}

// Table is an immutable, ordered symptom reference table.
type Table struct {
	matchers []matcher
}

// Default returns the built-in table.
func Default() *Table {
	t, err := Parse(strings.NewReader(string(defaultTable)))
	if err != nil {
		panic(fmt.Sprintf("symptoms: built-in table is invalid: %v", err))
	}
	return t
}

// Load reads a table from a JSON file.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open symptom table: %w", err)
	}
	defer f.Close()

	t, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// LoadOrDefault loads path when set, falling back to the built-in table.
func LoadOrDefault(path string) (*Table, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// Parse decodes and validates a table. The three category lists must all be
// present; every entry needs a name and a description.
func Parse(r io.Reader) (*Table, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("invalid symptom table JSON: %w", err)
	}

	t := &Table{}
	sections := []struct {
		key      string
		category domain.SymptomCategory
	}{
		{keyCommon, domain.SymptomCommon},
		{keyLessCommon, domain.SymptomLessCommon},
		{keyPatterns, domain.SymptomPattern},
	}

	seen := make(map[string]struct{})
	for _, s := range sections {
		data, ok := raw[s.key]
		if !ok {
			return nil, fmt.Errorf("missing required key %q", s.key)
		}
		var entries []entryJSON
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("%q must be a list of entries: %w", s.key, err)
		}
		if entries == nil {
			return nil, fmt.Errorf("%q must be a list of entries", s.key)
		}
		for i, e := range entries {
			name := strings.TrimSpace(e.Name)
			if name == "" {
				return nil, fmt.Errorf("%s[%d]: name is required", s.key, i)
			}
			if strings.TrimSpace(e.Description) == "" {
				return nil, fmt.Errorf("%s[%d] %q: description is required", s.key, i, name)
			}
			lower := strings.ToLower(name)
			if _, dup := seen[lower]; dup {
				return nil, fmt.Errorf("%s[%d]: duplicate symptom %q", s.key, i, name)
			}
			seen[lower] = struct{}{}

			entry := domain.SymptomEntry{
				Name:        name,
				Description: strings.TrimSpace(e.Description),
				Category:    s.category,
				Pattern:     e.Pattern,
				Keywords:    e.Keywords,
			}
			t.matchers = append(t.matchers, matcher{entry: entry, terms: termsFor(entry)})
		}
	}
	return t, nil
}

// Entries returns every entry in table order: common, less common, patterns.
func (t *Table) Entries() []domain.SymptomEntry {
	out := make([]domain.SymptomEntry, len(t.matchers))
	for i, m := range t.matchers {
		out[i] = m.entry
	}
	return out
}

// ByCategory returns the entries of one category in table order.
func (t *Table) ByCategory(c domain.SymptomCategory) []domain.SymptomEntry {
	out := []domain.SymptomEntry{}
	for _, m := range t.matchers {
		if m.entry.Category == c {
			out = append(out, m.entry)
		}
	}
	return out
}

// Len returns the number of entries.
func (t *Table) Len() int { return len(t.matchers) }

// Match returns the entries mentioned in text, in table order. Matching is
// case-insensitive and on whole words: the full name, any significant word of
// the name, or any keyword.
func (t *Table) Match(text string) []domain.SymptomEntry {
	words := tokenize(text)
	if len(words) == 0 {
		return nil
	}

	var out []domain.SymptomEntry
	for _, m := range t.matchers {
		for _, term := range m.terms {
			if containsPhrase(words, term) {
				out = append(out, m.entry)
				break
			}
		}
	}
	return out
}

func termsFor(e domain.SymptomEntry) [][]string {
	var terms [][]string
	add := func(s string) {
		if tok := tokenize(s); len(tok) > 0 {
			terms = append(terms, tok)
		}
	}

	add(e.Name)
	for _, k := range e.Keywords {
		add(k)
	}

	// Course patterns share words like "progressive"; only the full name and
	// keywords identify them.
	if e.Category == domain.SymptomPattern {
		return terms
	}
	nameWords := tokenize(e.Name)
	if len(nameWords) < 2 {
		return terms
	}
	for _, w := range nameWords {
		if _, generic := genericNameWords[w]; generic || len([]rune(w)) < 3 {
			continue
		}
		terms = append(terms, []string{w})
	}
	return terms
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func containsPhrase(words, phrase []string) bool {
	if len(phrase) == 0 || len(phrase) > len(words) {
		return false
	}
outer:
	for i := 0; i+len(phrase) <= len(words); i++ {
		for j, p := range phrase {
			if words[i+j] != p {
				continue outer
			}
		}
		return true
	}
	return false
}
