package store

import (
	"encoding/json"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/estate-crm/internal/model"
)

// fieldColumns maps patchable fields to their column names.
var fieldColumns = map[model.Field]string{
	model.FieldClientName:        "client_name",
	model.FieldCustomerNumber:    "customer_number",
	model.FieldLeadStage:         "lead_stage",
	model.FieldLeadType:          "lead_type",
	model.FieldLocationCategory:  "location_category",
	model.FieldDealStatus:        "deal_status",
	model.FieldExpectedVisitDate: "expected_visit_date",
	model.FieldCallingComment:    "calling_comment",
}

type columnValue struct {
	field  model.Field
	column string
	value  *string
}

// patchColumns returns the patch's columns in a stable order.
func patchColumns(p model.ClientPatch) ([]columnValue, error) {
	out := make([]columnValue, 0, len(p.Fields))
	for f, v := range p.Fields {
		col, ok := fieldColumns[f]
		if !ok {
			return nil, eris.Errorf("unknown field %q", f)
		}
		out = append(out, columnValue{field: f, column: col, value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].column < out[j].column })
	return out, nil
}

func marshalHistory(h []model.CommentEntry) ([]byte, error) {
	if h == nil {
		h = []model.CommentEntry{}
	}
	data, err := json.Marshal(h)
	if err != nil {
		return nil, eris.Wrap(err, "marshal comment history")
	}
	return data, nil
}

func unmarshalHistory(data []byte) ([]model.CommentEntry, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var h []model.CommentEntry
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, eris.Wrap(err, "unmarshal comment history")
	}
	if len(h) == 0 {
		return nil, nil
	}
	return h, nil
}
