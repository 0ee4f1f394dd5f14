package model

// Field names a client attribute that can be imported or edited inline.
type Field string

// Client fields.
const (
	FieldClientName        Field = "client_name"
	FieldCustomerNumber    Field = "customer_number"
	FieldLeadStage         Field = "lead_stage"
	FieldLeadType          Field = "lead_type"
	FieldLocationCategory  Field = "location_category"
	FieldCallingComment    Field = "calling_comment"
	FieldExpectedVisitDate Field = "expected_visit_date"
	FieldDealStatus        Field = "deal_status"
)

var fieldLabels = map[Field]string{
	FieldClientName:        "Client Name",
	FieldCustomerNumber:    "Customer Number",
	FieldLeadStage:         "Lead Stage",
	FieldLeadType:          "Lead Type",
	FieldLocationCategory:  "Location Category",
	FieldCallingComment:    "Calling Comment",
	FieldExpectedVisitDate: "Expected Visit Date",
	FieldDealStatus:        "Deal Status",
}

// importFields is ordered the way the mapping UI lists targets.
var importFields = []Field{
	FieldClientName,
	FieldCustomerNumber,
	FieldLeadStage,
	FieldLeadType,
	FieldLocationCategory,
	FieldCallingComment,
	FieldExpectedVisitDate,
}

var editableFields = map[Field]bool{
	FieldLeadStage:         true,
	FieldLeadType:          true,
	FieldDealStatus:        true,
	FieldLocationCategory:  true,
	FieldExpectedVisitDate: true,
}

// ImportFields returns the fields a CSV column can be mapped to.
func ImportFields() []Field {
	out := make([]Field, len(importFields))
	copy(out, importFields)
	return out
}

// ParseField resolves a field name. Unknown names return false.
func ParseField(s string) (Field, bool) {
	f := Field(s)
	_, ok := fieldLabels[f]
	return f, ok
}

// Label returns the human label used in the activity log.
func (f Field) Label() string {
	if l, ok := fieldLabels[f]; ok {
		return l
	}
	return string(f)
}

// Importable reports whether a CSV column may target this field.
func (f Field) Importable() bool {
	for _, imp := range importFields {
		if imp == f {
			return true
		}
	}
	return false
}

// Editable reports whether the inline editor accepts this field.
func (f Field) Editable() bool {
	return editableFields[f]
}

// Enumerated reports whether the field takes values from a closed set.
func (f Field) Enumerated() bool {
	return f == FieldLeadStage || f == FieldLeadType || f == FieldDealStatus
}

// DisplayValue renders a stored value for humans: enum codes become their
// labels, everything else is returned as-is. Nil stays nil.
func DisplayValue(f Field, v *string) *string {
	if v == nil {
		return nil
	}
	var label string
	switch f {
	case FieldLeadStage:
		label = LeadStage(*v).Label()
	case FieldLeadType:
		label = LeadType(*v).Label()
	case FieldDealStatus:
		label = DealStatus(*v).Label()
	default:
		return v
	}
	return &label
}
