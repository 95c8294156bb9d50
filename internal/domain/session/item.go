package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"caesar-in-a-year/internal/domain/content"
	"caesar-in-a-year/internal/domain/learning"
)

var ErrUnknownItemKind = errors.New("unknown session item kind")

// ItemKind tags the variants of Item
type ItemKind int

const (
	KindReview ItemKind = iota + 1
	KindNewReading
	KindVocabDrill
	KindPhraseDrill
)

var (
	itemKindNames = map[ItemKind]string{
		KindReview:      "REVIEW",
		KindNewReading:  "NEW_READING",
		KindVocabDrill:  "VOCAB_DRILL",
		KindPhraseDrill: "PHRASE_DRILL",
	}
	itemKindsByName = func() map[string]ItemKind {
		out := make(map[string]ItemKind, len(itemKindNames))
		for k, v := range itemKindNames {
			out[v] = k
		}
		return out
	}()
)

func (k ItemKind) String() string {
	if name, ok := itemKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ItemKind(%d)", int(k))
}

// ParseItemKind converts a persisted tag back to an ItemKind
func ParseItemKind(name string) (ItemKind, error) {
	k, ok := itemKindsByName[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownItemKind, name)
	}
	return k, nil
}

// Item is one step of a session. The set of implementations is closed.
type Item interface {
	Kind() ItemKind
	sealed()
}

// ReviewItem asks the learner to translate a sentence they have seen before
type ReviewItem struct {
	CardID   learning.ID      `json:"cardId"`
	Sentence content.Sentence `json:"sentence"`
}

// NewReadingItem is the day's new passage
type NewReadingItem struct {
	Sentences []content.Sentence `json:"sentences"`
}

// VocabDrillItem drills a single word
type VocabDrillItem struct {
	CardID learning.ID       `json:"cardId"`
	Word   content.VocabWord `json:"word"`
}

// PhraseDrillItem drills a phrase
type PhraseDrillItem struct {
	CardID learning.ID    `json:"cardId"`
	Phrase content.Phrase `json:"phrase"`
}

func (ReviewItem) Kind() ItemKind      { return KindReview }
func (NewReadingItem) Kind() ItemKind  { return KindNewReading }
func (VocabDrillItem) Kind() ItemKind  { return KindVocabDrill }
func (PhraseDrillItem) Kind() ItemKind { return KindPhraseDrill }

func (ReviewItem) sealed()      {}
func (NewReadingItem) sealed()  {}
func (VocabDrillItem) sealed()  {}
func (PhraseDrillItem) sealed() {}

// Envelope is the tagged wire form of an Item
type Envelope struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// EncodeItem wraps an item in its tagged envelope
func EncodeItem(item Item) (Envelope, error) {
	switch item.(type) {
	case ReviewItem, NewReadingItem, VocabDrillItem, PhraseDrillItem:
	default:
		return Envelope{}, fmt.Errorf("%w: %T", ErrUnknownItemKind, item)
	}
	payload, err := json.Marshal(item)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to encode %s item: %w", item.Kind(), err)
	}
	return Envelope{Kind: item.Kind().String(), Payload: payload}, nil
}

// DecodeItem unwraps a tagged envelope
func DecodeItem(env Envelope) (Item, error) {
	kind, err := ParseItemKind(env.Kind)
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindReview:
		var it ReviewItem
		if err := decodePayload(env, &it); err != nil {
			return nil, err
		}
		return it, nil
	case KindNewReading:
		var it NewReadingItem
		if err := decodePayload(env, &it); err != nil {
			return nil, err
		}
		return it, nil
	case KindVocabDrill:
		var it VocabDrillItem
		if err := decodePayload(env, &it); err != nil {
			return nil, err
		}
		return it, nil
	case KindPhraseDrill:
		var it PhraseDrillItem
		if err := decodePayload(env, &it); err != nil {
			return nil, err
		}
		return it, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownItemKind, env.Kind)
}

func decodePayload(env Envelope, v any) error {
	if err := json.Unmarshal(env.Payload, v); err != nil {
		return fmt.Errorf("failed to decode %s item: %w", env.Kind, err)
	}
	return nil
}

// MarshalItems encodes a whole item list for storage
func MarshalItems(items []Item) ([]byte, error) {
	envs := make([]Envelope, 0, len(items))
	for _, it := range items {
		env, err := EncodeItem(it)
		if err != nil {
			return nil, err
		}
		envs = append(envs, env)
	}
	return json.Marshal(envs)
}

// UnmarshalItems decodes a stored item list
func UnmarshalItems(data []byte) ([]Item, error) {
	var envs []Envelope
	if err := json.Unmarshal(data, &envs); err != nil {
		return nil, fmt.Errorf("failed to decode session items: %w", err)
	}
	items := make([]Item, 0, len(envs))
	for _, env := range envs {
		it, err := DecodeItem(env)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}
