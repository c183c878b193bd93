package evidencecycle

import "time"

const (
	WorkflowName = "evidence_cycle"
	ActivityTick = "evidence_cycle_tick"
	SignalResume = "evidence_resume"
)

// TickResult is one inspection of the persistent event. Status values are
// lowercased workflow-side states, not the event's own status column:
// "working" while a run is in flight, "waiting_manual" when an
// EVIDENCE_READY event needs a human decision, "decided" and "failed"
// terminal.
type TickResult struct {
	EventID   string     `json:"event_id"`
	Status    string     `json:"status"`
	Decision  string     `json:"decision,omitempty"`
	WaitUntil *time.Time `json:"wait_until,omitempty"`
}
