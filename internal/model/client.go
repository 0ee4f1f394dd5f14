package model

import "time"

// DateLayout is the calendar-date format stored for expected visit dates.
const DateLayout = "2006-01-02"

// CommentEntry is one calling comment in a client's history.
type CommentEntry struct {
	Comment string    `json:"comment"`
	Date    time.Time `json:"date"`
	AddedBy string    `json:"addedBy"`
}

// Client is a persisted lead.
//
// When CallingCommentHistory is non-empty, CallingComment equals the
// comment of its first (newest) entry.
type Client struct {
	ID                    string         `json:"id"`
	SheetID               *string        `json:"sheet_id"`
	ClientName            string         `json:"client_name"`
	CustomerNumber        *string        `json:"customer_number"`
	LeadStage             LeadStage      `json:"lead_stage"`
	LeadType              LeadType       `json:"lead_type"`
	LocationCategory      *string        `json:"location_category"`
	DealStatus            DealStatus     `json:"deal_status"`
	ExpectedVisitDate     *string        `json:"expected_visit_date"`
	CallingComment        *string        `json:"calling_comment"`
	CallingCommentHistory []CommentEntry `json:"calling_comment_history"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
}

// Value returns the field's current value as text. Empty optional fields
// return nil.
func (c *Client) Value(f Field) *string {
	switch f {
	case FieldClientName:
		return strPtr(c.ClientName)
	case FieldCustomerNumber:
		return c.CustomerNumber
	case FieldLeadStage:
		return strPtr(string(c.LeadStage))
	case FieldLeadType:
		return strPtr(string(c.LeadType))
	case FieldLocationCategory:
		return c.LocationCategory
	case FieldDealStatus:
		return strPtr(string(c.DealStatus))
	case FieldExpectedVisitDate:
		return c.ExpectedVisitDate
	case FieldCallingComment:
		return c.CallingComment
	}
	return nil
}

// Set assigns a field from its text form. A nil value clears optional
// fields and empties required ones.
func (c *Client) Set(f Field, v *string) {
	s := ""
	if v != nil {
		s = *v
	}
	switch f {
	case FieldClientName:
		c.ClientName = s
	case FieldCustomerNumber:
		c.CustomerNumber = cloneStr(v)
	case FieldLeadStage:
		c.LeadStage = LeadStage(s)
	case FieldLeadType:
		c.LeadType = LeadType(s)
	case FieldLocationCategory:
		c.LocationCategory = cloneStr(v)
	case FieldDealStatus:
		c.DealStatus = DealStatus(s)
	case FieldExpectedVisitDate:
		c.ExpectedVisitDate = cloneStr(v)
	case FieldCallingComment:
		c.CallingComment = cloneStr(v)
	}
}

// Clone returns a deep copy.
func (c Client) Clone() Client {
	out := c
	out.SheetID = cloneStr(c.SheetID)
	out.CustomerNumber = cloneStr(c.CustomerNumber)
	out.LocationCategory = cloneStr(c.LocationCategory)
	out.ExpectedVisitDate = cloneStr(c.ExpectedVisitDate)
	out.CallingComment = cloneStr(c.CallingComment)
	if c.CallingCommentHistory != nil {
		out.CallingCommentHistory = make([]CommentEntry, len(c.CallingCommentHistory))
		copy(out.CallingCommentHistory, c.CallingCommentHistory)
	}
	return out
}

// ClientRecord is an import row ready for insertion. Unset optional fields
// are nil.
type ClientRecord struct {
	SheetID           *string    `json:"sheet_id,omitempty"`
	ClientName        string     `json:"client_name"`
	CustomerNumber    *string    `json:"customer_number,omitempty"`
	LeadStage         LeadStage  `json:"lead_stage"`
	LeadType          LeadType   `json:"lead_type"`
	LocationCategory  *string    `json:"location_category,omitempty"`
	CallingComment    *string    `json:"calling_comment,omitempty"`
	ExpectedVisitDate *string    `json:"expected_visit_date,omitempty"`
	DealStatus        DealStatus `json:"deal_status"`
}

// NewClientRecord returns a record carrying the import defaults.
func NewClientRecord() ClientRecord {
	return ClientRecord{
		LeadStage:  LeadStageFollowUpReq,
		LeadType:   LeadTypeCold,
		DealStatus: DealStatusOpen,
	}
}

// ClientPatch is a partial update. Fields maps each changed field to its new
// text value (nil clears). History, when non-nil, replaces the comment log.
type ClientPatch struct {
	Fields  map[Field]*string
	History []CommentEntry
}

// Empty reports whether the patch changes nothing.
func (p ClientPatch) Empty() bool {
	return len(p.Fields) == 0 && p.History == nil
}

// Apply writes the patch onto c.
func (p ClientPatch) Apply(c *Client) {
	for f, v := range p.Fields {
		c.Set(f, v)
	}
	if p.History != nil {
		c.CallingCommentHistory = make([]CommentEntry, len(p.History))
		copy(c.CallingCommentHistory, p.History)
	}
}

// Sheet groups clients for staff assignment.
type Sheet struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func cloneStr(v *string) *string {
	if v == nil {
		return nil
	}
	s := *v
	return &s
}
