package crm

import (
	"strings"
	"time"

	"github.com/sells-group/estate-crm/internal/model"
)

// normalizeValue trims input and turns empty strings into nil.
func normalizeValue(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	return &s
}

func sameValue(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func validateValue(field model.Field, v *string) error {
	const op = "update field"

	if !field.Editable() {
		return validationError(op, "field %q is not editable", field)
	}
	if v == nil {
		if field.Enumerated() {
			return validationError(op, "%s cannot be empty", field.Label())
		}
		return nil
	}

	switch field {
	case model.FieldLeadStage:
		if !model.LeadStage(*v).IsStaff() {
			return validationError(op, "unknown lead stage %q", *v)
		}
	case model.FieldLeadType:
		if !model.LeadType(*v).Valid() {
			return validationError(op, "unknown lead type %q", *v)
		}
	case model.FieldDealStatus:
		if !model.DealStatus(*v).Valid() {
			return validationError(op, "unknown deal status %q", *v)
		}
	case model.FieldExpectedVisitDate:
		if _, err := time.Parse(model.DateLayout, *v); err != nil {
			return validationError(op, "expected visit date must be YYYY-MM-DD, got %q", *v)
		}
	}
	return nil
}
