// Package diff computes a structural line difference between two text blobs.
//
// The algorithm is deliberately simple: line membership is tested against a
// set, so duplicate identical lines and pure reorderings are not detected as
// moves. A line appearing twice in the old text and once in the new text is
// still reported as fully unchanged. Downstream display logic depends on this
// behavior, so it is a contract, not an approximation to tighten later.
package diff

import (
	"fmt"
	"strings"
)

// Result holds the outcome of a Diff call. It is derived data and is never
// persisted.
type Result struct {
	Added     []string `json:"added"`
	Removed   []string `json:"removed"`
	Unchanged []string `json:"unchanged"`

	// CharsAdded and CharsRemoved are a length-delta heuristic, not a true
	// count of edited characters: only the total size difference is measured,
	// and only one of the two can be non-zero.
	CharsAdded   int `json:"charsAdded"`
	CharsRemoved int `json:"charsRemoved"`

	Summary string `json:"summary"`
}

// Diff compares old and new text line by line. It is pure and deterministic.
func Diff(oldText, newText string) *Result {
	oldLines := strings.Split(oldText, "\n")
	newLines := strings.Split(newText, "\n")

	oldSet := make(map[string]struct{}, len(oldLines))
	for _, l := range oldLines {
		oldSet[l] = struct{}{}
	}
	newSet := make(map[string]struct{}, len(newLines))
	for _, l := range newLines {
		newSet[l] = struct{}{}
	}

	r := &Result{
		Added:     []string{},
		Removed:   []string{},
		Unchanged: []string{},
	}

	for _, l := range newLines {
		if _, ok := oldSet[l]; !ok {
			r.Added = append(r.Added, l)
		} else {
			r.Unchanged = append(r.Unchanged, l)
		}
	}
	for _, l := range oldLines {
		if _, ok := newSet[l]; !ok {
			r.Removed = append(r.Removed, l)
		}
	}

	// Size delta over line content, not a per-character edit count. Only one
	// side can be non-zero.
	if d := totalLen(newLines) - totalLen(oldLines); d > 0 {
		r.CharsAdded = d
	} else {
		r.CharsRemoved = -d
	}

	r.Summary = summarize(len(r.Added), len(r.Removed))
	return r
}

func totalLen(lines []string) int {
	n := 0
	for _, l := range lines {
		n += len(l)
	}
	return n
}

func summarize(added, removed int) string {
	switch {
	case added == 0 && removed == 0:
		return "No changes"
	case removed == 0:
		return fmt.Sprintf("Added %d lines", added)
	case added == 0:
		return fmt.Sprintf("Removed %d lines", removed)
	default:
		return fmt.Sprintf("Changed %d lines", added+removed)
	}
}
