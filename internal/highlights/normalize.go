package highlights

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tessro/reel/internal/core"
)

// NormalizeOptions controls Normalize.
type NormalizeOptions struct {
	// MaxClips caps the number of intervals. Zero means no cap.
	MaxClips int

	// MinDuration drops intervals shorter than this.
	MinDuration time.Duration

	// Merge joins overlapping and touching intervals.
	Merge bool
}

// Report says what Normalize changed.
type Report struct {
	Generated int // ids filled in
	Dropped   int // invalid or too short
	Merged    int // absorbed into a neighbour
	Capped    int // cut by MaxClips
}

// Changed reports whether Normalize altered the input.
func (r Report) Changed() bool {
	return r.Generated+r.Dropped+r.Merged+r.Capped > 0
}

// Normalize turns selector output into a playable reel: every interval gets
// an id, invalid and too-short ranges are dropped, the rest are sorted by
// start time, optionally merged, and capped. The input is not modified.
func Normalize(in []core.HighlightInterval, opts NormalizeOptions) ([]core.HighlightInterval, Report) {
	var r Report
	seen := make(map[string]bool, len(in))
	out := make([]core.HighlightInterval, 0, len(in))

	for _, iv := range in {
		iv.ID = strings.TrimSpace(iv.ID)
		if iv.ID == "" || seen[iv.ID] {
			iv.ID = uuid.NewString()
			r.Generated++
		}
		if iv.Validate() != nil || iv.Duration() < opts.MinDuration {
			r.Dropped++
			continue
		}
		seen[iv.ID] = true
		out = append(out, iv)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start < out[j].Start
	})

	if opts.Merge {
		out, r.Merged = merge(out)
	}

	if opts.MaxClips > 0 && len(out) > opts.MaxClips {
		r.Capped = len(out) - opts.MaxClips
		out = out[:opts.MaxClips]
	}

	return out, r
}

// merge joins sorted intervals that overlap or touch. The earlier interval
// keeps its id and name; reasons are concatenated.
func merge(sorted []core.HighlightInterval) ([]core.HighlightInterval, int) {
	if len(sorted) < 2 {
		return sorted, 0
	}

	merged := 0
	out := []core.HighlightInterval{sorted[0]}
	for _, iv := range sorted[1:] {
		last := &out[len(out)-1]
		// Touching ranges merge too.
		if !last.Overlaps(iv) && iv.Start != last.End {
			out = append(out, iv)
			continue
		}
		if iv.End > last.End {
			last.End = iv.End
		}
		if iv.Reason != "" && iv.Reason != last.Reason {
			if last.Reason == "" {
				last.Reason = iv.Reason
			} else {
				last.Reason += "; " + iv.Reason
			}
		}
		merged++
	}
	return out, merged
}
