// Package recognizer wraps the entity-recognition services that find
// sensitive spans in free text.
package recognizer

import (
	"context"
	"errors"
	"strings"
)

var ErrUnavailable = errors.New("entity recognizer unavailable")

// Entity is one tagged span. Offsets are byte offsets into the submitted text.
type Entity struct {
	Type        string  `json:"type"`
	BeginOffset int     `json:"begin_offset"`
	EndOffset   int     `json:"end_offset"`
	Score       float64 `json:"score"`
}

// Recognizer finds sensitive entities in text.
type Recognizer interface {
	Detect(ctx context.Context, text, language string) ([]Entity, error)
}

// Types returns the entity type of every span, in order. Spans without a
// type are dropped.
func Types(entities []Entity) []string {
	out := make([]string, 0, len(entities))
	for _, e := range entities {
		if t := strings.TrimSpace(e.Type); t != "" {
			out = append(out, t)
		}
	}
	return out
}
