package csvimport

import (
	"strings"

	"github.com/sells-group/estate-crm/internal/model"
)

// MapRow builds a client record from one data row. Missing cells read as
// empty and only non-empty mapped cells are applied. When several columns
// feed the same field, the first non-empty one in column order wins. The
// row is rejected (false) when no client name results.
func MapRow(row []string, m Mapping) (model.ClientRecord, bool) {
	rec := model.NewClientRecord()
	seen := make(map[model.Field]bool, len(m))

	for _, col := range m.Columns() {
		if col >= len(row) {
			continue
		}
		field := m[col]
		v := strings.TrimSpace(row[col])
		if v == "" || seen[field] {
			continue
		}
		seen[field] = true

		switch field {
		case model.FieldClientName:
			rec.ClientName = v
		case model.FieldCustomerNumber:
			rec.CustomerNumber = &v
		case model.FieldLeadStage:
			if stage, ok := ClassifyLeadStage(v); ok {
				rec.LeadStage = stage
			}
		case model.FieldLeadType:
			rec.LeadType = ClassifyLeadType(v)
		case model.FieldLocationCategory:
			rec.LocationCategory = &v
		case model.FieldCallingComment:
			rec.CallingComment = &v
		case model.FieldExpectedVisitDate:
			rec.ExpectedVisitDate = NormalizeDate(v)
		}
	}

	return rec, rec.ClientName != ""
}
