package bulk

import (
	"context"
	"fmt"

	"github.com/adomcp/bridge/pkg/adoclient"
	"github.com/adomcp/bridge/pkg/history"
)

// Applier returns a history.Applier that replays one record's
// InversePayload against ADO, dispatching on Kind. C5 owns ordering and
// skip logic (reverse sequenceNo, Irreversible, missing inverse); this is
// only the "how do I actually undo a comment vs. a field patch" piece C5
// deliberately has no knowledge of (spec §4.5).
func (e *Engine) Applier() history.Applier {
	return func(rec history.Record) error {
		ctx := context.Background()

		if rec.Kind == string(ActionComment) {
			commentID, ok := rec.InversePayload.(int)
			if !ok {
				return fmt.Errorf("bulk: comment undo expects an int comment id, got %T", rec.InversePayload)
			}
			return e.client.DeleteComment(ctx, rec.ID, commentID)
		}

		ops, ok := rec.InversePayload.([]adoclient.PatchOp)
		if !ok {
			return fmt.Errorf("bulk: %s undo expects []adoclient.PatchOp, got %T", rec.Kind, rec.InversePayload)
		}

		current, err := e.client.GetWorkItem(ctx, rec.ID)
		if err != nil {
			return err
		}
		withRevGuard := append([]adoclient.PatchOp{adoclient.TestRevOp(current.Rev)}, ops...)
		_, err = e.client.PatchWorkItem(ctx, rec.ID, withRevGuard)
		return err
	}
}
