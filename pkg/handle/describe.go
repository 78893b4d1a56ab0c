package handle

import "time"

// Summary is the bounded inspection payload returned by Describe (spec
// §4.4 `describe(handleId, previewCount, selector?)`).
type Summary struct {
	HandleID       string
	TotalItems     int
	SelectedItems  int
	ExpiresAt      time.Time
	ExpiresInSec   int
	StateHistogram map[string]int
	TypeHistogram  map[string]int
	Preview        []ItemContext
}

// Describe returns counts, histograms, expiration info, and a bounded
// preview of the handle, optionally narrowed by sel.
func (s *Store) Describe(handleID string, previewCount int, sel *ItemSelector) (Summary, error) {
	h, err := s.Get(handleID)
	if err != nil {
		return Summary{}, err
	}

	selected := h.ItemContext
	if sel != nil {
		pairs, err := Resolve(h, *sel)
		if err != nil {
			return Summary{}, err
		}
		selected = make([]ItemContext, len(pairs))
		for i, p := range pairs {
			selected[i] = h.ItemContext[p.Index]
		}
	}

	if previewCount < 0 {
		previewCount = 0
	}
	if previewCount > len(selected) {
		previewCount = len(selected)
	}

	now := s.clock.Now()
	return Summary{
		HandleID:       h.HandleID,
		TotalItems:     len(h.ItemContext),
		SelectedItems:  len(selected),
		ExpiresAt:      h.ExpiresAt,
		ExpiresInSec:   int(h.ExpiresAt.Sub(now).Seconds()),
		StateHistogram: h.SelectionMetadata.StateHistogram,
		TypeHistogram:  h.SelectionMetadata.TypeHistogram,
		Preview:        append([]ItemContext(nil), selected[:previewCount]...),
	}, nil
}
