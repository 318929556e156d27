package models

import (
	"errors"
	"fmt"
)

// ErrInvalidRange is returned when a chapter range does not fit the publication.
var ErrInvalidRange = errors.New("invalid chapter range")

// ChapterRange selects chapters [Start, End], 1-based and inclusive.
type ChapterRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// FullRange covers every one of n chapters.
func FullRange(n int) ChapterRange {
	return ChapterRange{Start: 1, End: n}
}

// IsZero reports whether no range was selected.
func (r ChapterRange) IsZero() bool {
	return r.Start == 0 && r.End == 0
}

// Check validates the bounds that do not depend on the chapter count.
func (r ChapterRange) Check() error {
	if r.Start < 1 {
		return fmt.Errorf("%w: start %d must be at least 1", ErrInvalidRange, r.Start)
	}
	if r.End < r.Start {
		return fmt.Errorf("%w: end %d is before start %d", ErrInvalidRange, r.End, r.Start)
	}
	return nil
}

// Validate checks 1 <= Start <= End <= n.
func (r ChapterRange) Validate(n int) error {
	if err := r.Check(); err != nil {
		return err
	}
	if r.End > n {
		return fmt.Errorf("%w: end %d exceeds chapter count %d", ErrInvalidRange, r.End, n)
	}
	return nil
}

// Len returns the number of chapters in the range.
func (r ChapterRange) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// Indices returns the 0-based chapter indices covered by the range.
func (r ChapterRange) Indices() []int {
	out := make([]int, 0, r.Len())
	for i := r.Start - 1; i < r.End; i++ {
		out = append(out, i)
	}
	return out
}

func (r ChapterRange) String() string {
	return fmt.Sprintf("[%d, %d]", r.Start, r.End)
}

// ChapterStatus is the per-chapter result of a pipeline stage.
type ChapterStatus string

const (
	ChapterFetched   ChapterStatus = "fetched"
	ChapterCached    ChapterStatus = "cached"
	ChapterFailed    ChapterStatus = "failed"
	ChapterExtracted ChapterStatus = "extracted"
	ChapterMissing   ChapterStatus = "missing" // no markup to extract from
)

// ChapterOutcome reports what a stage did for one chapter.
type ChapterOutcome struct {
	Index    int           `json:"index"` // 0-based
	Filename string        `json:"filename"`
	URL      string        `json:"url,omitempty"`
	Status   ChapterStatus `json:"status"`
	Detail   string        `json:"detail,omitempty"`
}

// Number is the 1-based chapter number.
func (o ChapterOutcome) Number() int {
	return o.Index + 1
}

// OK reports whether the chapter artifact is available after the stage.
func (o ChapterOutcome) OK() bool {
	return o.Status != ChapterFailed && o.Status != ChapterMissing
}

// Omitted returns the 1-based numbers of chapters whose artifact is unavailable.
func Omitted(outcomes []ChapterOutcome) []int {
	var out []int
	for _, o := range outcomes {
		if !o.OK() {
			out = append(out, o.Number())
		}
	}
	return out
}
