package content

import (
	"regexp"
	"strings"
)

// Sentence is one aligned line of the reading text
type Sentence struct {
	ID                   string   `json:"id" validate:"required"`
	Latin                string   `json:"latin" validate:"required"`
	ReferenceTranslation string   `json:"referenceTranslation" validate:"required"`
	Difficulty           int      `json:"difficulty" validate:"min=1,max=100"`
	Order                int      `json:"order" validate:"min=1"`
	AlignmentConfidence  *float64 `json:"alignmentConfidence,omitempty" validate:"omitempty,min=0,max=1"`
}

// VocabWord is a dictionary lemma drilled on its own
type VocabWord struct {
	ID         string `json:"id" validate:"required"`
	Lemma      string `json:"lemma" validate:"required"`
	Gloss      string `json:"gloss" validate:"required"`
	Difficulty int    `json:"difficulty" validate:"min=1,max=100"`
}

// Phrase is a short multi-word construction drilled on its own
type Phrase struct {
	ID          string `json:"id" validate:"required"`
	Latin       string `json:"latin" validate:"required"`
	Translation string `json:"translation" validate:"required"`
	Difficulty  int    `json:"difficulty" validate:"min=1,max=100"`
}

// sentence ids look like bg.<book>.<chapter>.<sentence>
var sentenceIDPattern = regexp.MustCompile(`^bg\.\d+\.\d+\.\d+$`)

// IsValidSentenceID checks the corpus id format
func IsValidSentenceID(id string) bool {
	return sentenceIDPattern.MatchString(id)
}

// Passage joins sentences into one reading unit
func Passage(sentences []Sentence) (latin, reference string) {
	l := make([]string, 0, len(sentences))
	r := make([]string, 0, len(sentences))
	for _, s := range sentences {
		l = append(l, s.Latin)
		r = append(r, s.ReferenceTranslation)
	}
	return strings.Join(l, " "), strings.Join(r, " ")
}
