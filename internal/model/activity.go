package model

import "time"

// ActionType classifies an activity log entry.
type ActionType string

// Activity actions.
const (
	ActionUpdateField ActionType = "update_field"
	ActionAddComment  ActionType = "add_comment"
)

// Actor is the staff member performing a change.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ActivityEntry is one append-only audit row describing a user-visible change.
type ActivityEntry struct {
	ID           string     `json:"id"`
	StaffID      string     `json:"staff_id"`
	StaffName    string     `json:"staff_name"`
	ClientID     string     `json:"client_id"`
	ClientName   string     `json:"client_name"`
	SheetID      *string    `json:"sheet_id"`
	SheetName    *string    `json:"sheet_name"`
	ActionType   ActionType `json:"action_type"`
	FieldChanged string     `json:"field_changed"`
	OldValue     *string    `json:"old_value"`
	NewValue     *string    `json:"new_value"`
	Timestamp    time.Time  `json:"timestamp"`
}
