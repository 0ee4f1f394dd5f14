package model

// ChangeType is the kind of row change carried by the live-update feed.
type ChangeType string

// Change types.
const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// ChangeEvent notifies subscribers that a client row changed. Record is nil
// for deletes.
type ChangeEvent struct {
	Type    ChangeType `json:"type"`
	ID      string     `json:"id"`
	SheetID *string    `json:"sheet_id,omitempty"`
	Record  *Client    `json:"record,omitempty"`
}

// InSheet reports whether the event belongs to sheetID. An empty sheetID
// matches every event.
func (e ChangeEvent) InSheet(sheetID string) bool {
	if sheetID == "" {
		return true
	}
	sid := e.SheetID
	if sid == nil && e.Record != nil {
		sid = e.Record.SheetID
	}
	return sid != nil && *sid == sheetID
}
