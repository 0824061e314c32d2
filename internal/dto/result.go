package dto

import "strings"

const (
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// ProvisioningResult is the per-row outcome written back to the sheet.
// A row is failed if and only if at least one note was recorded.
type ProvisioningResult struct {
	Row    int      `json:"row"`
	Status string   `json:"status"`
	Notes  []string `json:"notes,omitempty"`
}

// Fail records a hard-gate failure: the note is appended and the row is
// marked failed immediately.
func (r *ProvisioningResult) Fail(note string) {
	r.Notes = append(r.Notes, note)
	r.Status = StatusFailed
}

// AddNote records a best-effort step failure without deciding the row status.
func (r *ProvisioningResult) AddNote(note string) {
	r.Notes = append(r.Notes, note)
}

// Finalize settles the overall status once every step has run.
func (r *ProvisioningResult) Finalize() {
	if len(r.Notes) > 0 {
		r.Status = StatusFailed
		return
	}
	r.Status = StatusSuccess
}

// NotesText renders the notes cell value: "OK" for a clean row, otherwise
// the accumulated notes in step order.
func (r ProvisioningResult) NotesText() string {
	if len(r.Notes) == 0 {
		return "OK"
	}
	return strings.Join(r.Notes, "; ")
}
