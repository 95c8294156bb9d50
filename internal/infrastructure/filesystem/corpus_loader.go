package filesystem

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"caesar-in-a-year/internal/common/validation"
	"caesar-in-a-year/internal/domain/content"
)

// CorpusLoader handles loading the reading corpus from files
type CorpusLoader struct{}

// NewCorpusLoader creates a new corpus loader
func NewCorpusLoader() *CorpusLoader {
	return &CorpusLoader{}
}

// Corpus is the JSON structure of the corpus file
type Corpus struct {
	Sentences  []content.Sentence  `json:"sentences" validate:"dive"`
	Vocabulary []content.VocabWord `json:"vocabulary" validate:"dive"`
	Phrases    []content.Phrase    `json:"phrases" validate:"dive"`
}

// LoadFromFile loads and validates the corpus in filename
func (cl *CorpusLoader) LoadFromFile(filename string) (*Corpus, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus file: %w", err)
	}
	defer file.Close()

	return cl.Load(file)
}

// Load decodes and validates a corpus
func (cl *CorpusLoader) Load(r io.Reader) (*Corpus, error) {
	var corpus Corpus
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&corpus); err != nil {
		return nil, fmt.Errorf("failed to decode corpus JSON: %w", err)
	}

	if errs := validation.Validate(corpus); len(errs) > 0 {
		return nil, fmt.Errorf("invalid corpus: %s", validation.Join(errs))
	}

	seen := make(map[string]bool)
	for _, s := range corpus.Sentences {
		if !content.IsValidSentenceID(s.ID) {
			return nil, fmt.Errorf("invalid sentence id: %s", s.ID)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("duplicate sentence id: %s", s.ID)
		}
		seen[s.ID] = true
	}

	clear(seen)
	for _, w := range corpus.Vocabulary {
		if seen[w.ID] {
			return nil, fmt.Errorf("duplicate vocabulary id: %s", w.ID)
		}
		seen[w.ID] = true
	}

	clear(seen)
	for _, p := range corpus.Phrases {
		if seen[p.ID] {
			return nil, fmt.Errorf("duplicate phrase id: %s", p.ID)
		}
		seen[p.ID] = true
	}

	return &corpus, nil
}
