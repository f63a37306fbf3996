package orchestrator

import (
	"context"
	"encoding/json"

	"github.com/algowizzzz/agentsmcp/internal/store"
)

// emit appends a workflow event, logging but not failing the driver if the
// store write itself errors — the event log is a record of causality, not a
// gate on forward progress (spec.md §7: StoreError handling lives at the
// workflow-transition level, not per-event).
func (d *driver) emit(ctx context.Context, eventType string, data any) {
	var encoded string
	if data != nil {
		if b, err := json.Marshal(data); err == nil {
			encoded = string(b)
		}
	}
	if err := d.store.AppendEvent(ctx, store.WorkflowEvent{
		WorkflowID: d.workflowID,
		EventType:  eventType,
		EventData:  encoded,
	}); err != nil {
		d.log.Error(ctx, "failed to append workflow event", "workflow_id", d.workflowID, "event_type", eventType, "error", err)
	}
}
