package history

import "github.com/adomcp/bridge/pkg/collab"

// Applier applies the inverse of rec against ADO (or wherever the
// mutation originally landed). It is supplied by the caller (C6) since
// this package has no knowledge of ADO's wire shapes.
type Applier func(rec Record) error

// UndoItemResult is the per-record outcome of an Undo call.
type UndoItemResult struct {
	Index      int
	ID         int
	SequenceNo uint64
	Applied    bool
	Error      string
}

// Undo replays inverses for handleID in strict reverse sequenceNo order
// (spec §4.5, §5 "Undo processes records in strict reverse sequenceNo
// order"). Records whose outcome was not Applied, or whose
// InversePayload is nil (irreversible), are skipped. A single inverse
// failure does not abort the remainder. Every attempted undo is itself
// recorded as a new OperationRecord whose InversePayload is the original
// mutation's Payload, per spec §4.5 "inverse of undo = the original
// mutation".
func (s *Store) Undo(handleID string, indices map[int]struct{}, apply Applier, clock collab.Clock) []UndoItemResult {
	records := s.For(handleID)

	// Reverse, since For returns append (ascending sequenceNo) order.
	reversed := make([]Record, len(records))
	for i, r := range records {
		reversed[len(records)-1-i] = r
	}

	results := make([]UndoItemResult, 0, len(reversed))
	for _, rec := range reversed {
		if indices != nil {
			if _, selected := indices[rec.Index]; !selected {
				continue
			}
		}
		if rec.Outcome != Applied || rec.InversePayload == nil || rec.Irreversible {
			continue
		}

		result := UndoItemResult{Index: rec.Index, ID: rec.ID, SequenceNo: rec.SequenceNo}

		applyErr := apply(rec)
		outcome := Applied
		if applyErr != nil {
			outcome = Failed
			result.Error = applyErr.Error()
		} else {
			result.Applied = true
		}

		s.Append(Record{
			HandleID:       handleID,
			Index:          rec.Index,
			ID:             rec.ID,
			Kind:           "undo:" + rec.Kind,
			AppliedAt:      clock.Now(),
			Payload:        rec.InversePayload,
			InversePayload: rec.Payload,
			Outcome:        outcome,
			Error:          result.Error,
		})

		results = append(results, result)
	}
	return results
}
