package model

// Option pairs a stored code with the label shown to users.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// LeadStage is the pipeline position of a lead.
type LeadStage string

// Lead stages. The admin import surface and the staff grid use different
// (overlapping) sets; see AdminLeadStages and StaffLeadStages.
const (
	LeadStageFollowUpReq        LeadStage = "follow_up_req"
	LeadStageDNP                LeadStage = "dnp"
	LeadStageDisqualified       LeadStage = "disqualified"
	LeadStageCallbackLater      LeadStage = "callback_later"
	LeadStageCallbackRequired   LeadStage = "callback_required"
	LeadStageNATC               LeadStage = "natc"
	LeadStageVisitBooked        LeadStage = "visit_booked"
	LeadStageCallAfter1To2Month LeadStage = "call_after_1_2_months"
)

// AdminLeadStages is the set produced by imports and shown on the admin grid.
var AdminLeadStages = []Option{
	{Value: string(LeadStageFollowUpReq), Label: "Follow Up Required"},
	{Value: string(LeadStageDNP), Label: "DNP"},
	{Value: string(LeadStageDisqualified), Label: "Disqualified"},
	{Value: string(LeadStageCallbackLater), Label: "CB after 2-3 Months"},
}

// StaffLeadStages is the set staff may pick from in the inline editor.
var StaffLeadStages = []Option{
	{Value: string(LeadStageDNP), Label: "DNP"},
	{Value: string(LeadStageCallbackRequired), Label: "Callback Required"},
	{Value: string(LeadStageFollowUpReq), Label: "Follow Up Required"},
	{Value: string(LeadStageNATC), Label: "NATC"},
	{Value: string(LeadStageVisitBooked), Label: "Visit Booked"},
	{Value: string(LeadStageDisqualified), Label: "Disqualified"},
	{Value: string(LeadStageCallAfter1To2Month), Label: "Call After 1-2 Months"},
}

// LeadTypes lists lead temperatures.
var LeadTypes = []Option{
	{Value: string(LeadTypeHot), Label: "Hot"},
	{Value: string(LeadTypeWarm), Label: "Warm"},
	{Value: string(LeadTypeCold), Label: "Cold"},
}

// DealStatuses lists deal outcomes.
var DealStatuses = []Option{
	{Value: string(DealStatusOpen), Label: "Open"},
	{Value: string(DealStatusLocked), Label: "Deal Locked"},
	{Value: string(DealStatusLost), Label: "Lost"},
}

// Label returns the display label, preferring the staff wording. Unknown
// codes render as themselves.
func (s LeadStage) Label() string {
	if l, ok := lookup(StaffLeadStages, string(s)); ok {
		return l
	}
	if l, ok := lookup(AdminLeadStages, string(s)); ok {
		return l
	}
	return string(s)
}

// IsStaff reports whether staff can select this stage.
func (s LeadStage) IsStaff() bool {
	_, ok := lookup(StaffLeadStages, string(s))
	return ok
}

// IsAdmin reports whether the stage belongs to the admin/import set.
func (s LeadStage) IsAdmin() bool {
	_, ok := lookup(AdminLeadStages, string(s))
	return ok
}

// LeadType is the lead temperature.
type LeadType string

// Lead types.
const (
	LeadTypeHot  LeadType = "hot"
	LeadTypeWarm LeadType = "warm"
	LeadTypeCold LeadType = "cold"
)

// Label returns the display label.
func (t LeadType) Label() string {
	if l, ok := lookup(LeadTypes, string(t)); ok {
		return l
	}
	return string(t)
}

// Valid reports whether t is a known lead type.
func (t LeadType) Valid() bool {
	_, ok := lookup(LeadTypes, string(t))
	return ok
}

// DealStatus is the deal outcome for a client.
type DealStatus string

// Deal statuses.
const (
	DealStatusOpen   DealStatus = "open"
	DealStatusLocked DealStatus = "locked"
	DealStatusLost   DealStatus = "lost"
)

// Label returns the display label.
func (d DealStatus) Label() string {
	if l, ok := lookup(DealStatuses, string(d)); ok {
		return l
	}
	return string(d)
}

// Valid reports whether d is a known deal status.
func (d DealStatus) Valid() bool {
	_, ok := lookup(DealStatuses, string(d))
	return ok
}

func lookup(opts []Option, value string) (string, bool) {
	for _, o := range opts {
		if o.Value == value {
			return o.Label, true
		}
	}
	return "", false
}
