// Package versebank holds the embedded memory-verse corpus and the selection
// rules used to build a game's round plan.
package versebank

import (
	"embed"
	"fmt"
	"io/fs"
	"math/rand"
	"sync"

	yaml "gopkg.in/yaml.v3"
)

//go:embed verses.yaml
var defaultFiles embed.FS

// Difficulty buckets verses for progressive-round selection.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// Translation is one named rendering of a verse. Order matters: scoring ties
// are broken by list position, and the first entry is the display text.
type Translation struct {
	Name string `yaml:"name" json:"name"`
	Text string `yaml:"text" json:"text"`
}

// Context is the surrounding verse text shown as a memory aid.
type Context struct {
	Reference string `yaml:"reference" json:"reference"`
	Text      string `yaml:"text" json:"text"`
}

// Verse is a single reference with multiple translations.
type Verse struct {
	ID           string        `yaml:"id" json:"id"`
	Reference    string        `yaml:"reference" json:"reference"`
	Difficulty   Difficulty    `yaml:"difficulty" json:"difficulty"`
	Translations []Translation `yaml:"translations" json:"translations"`
	Before       *Context      `yaml:"before,omitempty" json:"before,omitempty"`
	After        *Context      `yaml:"after,omitempty" json:"after,omitempty"`
}

// DisplayText returns the primary (first) translation text.
func (v *Verse) DisplayText() string {
	if v == nil || len(v.Translations) == 0 {
		return ""
	}
	return v.Translations[0].Text
}

// DisplayTranslation returns the primary translation name.
func (v *Verse) DisplayTranslation() string {
	if v == nil || len(v.Translations) == 0 {
		return ""
	}
	return v.Translations[0].Name
}

// Bank is a loaded verse corpus.
type Bank struct {
	mu     sync.Mutex
	verses []Verse
	rng    *rand.Rand
}

// Load parses the embedded corpus.
func Load() (*Bank, error) {
	raw, err := fs.ReadFile(defaultFiles, "verses.yaml")
	if err != nil {
		return nil, fmt.Errorf("read embedded verses: %w", err)
	}
	return parse(raw)
}

func parse(raw []byte) (*Bank, error) {
	var doc struct {
		Verses []Verse `yaml:"verses"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse verses: %w", err)
	}
	if len(doc.Verses) == 0 {
		return nil, fmt.Errorf("verse corpus is empty")
	}
	for _, v := range doc.Verses {
		if v.ID == "" || v.Reference == "" || len(v.Translations) == 0 {
			return nil, fmt.Errorf("verse %q missing id, reference, or translations", v.ID)
		}
	}
	return &Bank{verses: doc.Verses, rng: rand.New(rand.NewSource(rand.Int63()))}, nil
}

// All returns every verse in corpus order.
func (b *Bank) All() []Verse { return b.verses }

// ByDifficulty returns the verses in one bucket, corpus order preserved.
func (b *Bank) ByDifficulty(d Difficulty) []Verse {
	var out []Verse
	for _, v := range b.verses {
		if v.Difficulty == d {
			out = append(out, v)
		}
	}
	return out
}

// PickTyping returns count unique random verses for the free-typing rounds.
func (b *Bank) PickTyping(count int) []Verse {
	b.mu.Lock()
	defer b.mu.Unlock()
	shuffled := make([]Verse, len(b.verses))
	copy(shuffled, b.verses)
	b.rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	if count > len(shuffled) {
		count = len(shuffled)
	}
	return shuffled[:count]
}

// PickProgressive returns one verse per difficulty, easy to hard, for the
// fill-in-blank rounds. Buckets fall back to whatever is available so a thin
// corpus still yields three verses.
func (b *Bank) PickProgressive() []Verse {
	b.mu.Lock()
	defer b.mu.Unlock()
	pick := func(d Difficulty) *Verse {
		candidates := b.ByDifficulty(d)
		if len(candidates) == 0 {
			return nil
		}
		v := candidates[b.rng.Intn(len(candidates))]
		return &v
	}
	fallback := b.verses[b.rng.Intn(len(b.verses))]
	out := make([]Verse, 0, 3)
	for _, d := range []Difficulty{Easy, Medium, Hard} {
		if v := pick(d); v != nil {
			out = append(out, *v)
		} else {
			out = append(out, fallback)
		}
	}
	return out
}
