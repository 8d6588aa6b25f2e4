package entities

import (
	"fmt"

	"github.com/gosimple/slug"
)

const (
	MaxSubjects      = 10
	MaxSubjectLength = 64
)

// NormalizeSubjects slugifies topic tags and drops duplicates and blanks,
// keeping first-seen order.
func NormalizeSubjects(subjects []string) ([]string, error) {
	normalized := make([]string, 0, len(subjects))
	seen := make(map[string]struct{}, len(subjects))
	for _, raw := range subjects {
		tag := slug.Make(raw)
		if tag == "" {
			continue
		}
		if len(tag) > MaxSubjectLength {
			return nil, fmt.Errorf("subject %q is longer than %d characters", raw, MaxSubjectLength)
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		normalized = append(normalized, tag)
	}
	if len(normalized) > MaxSubjects {
		return nil, fmt.Errorf("at most %d subjects allowed, got %d", MaxSubjects, len(normalized))
	}
	return normalized, nil
}
