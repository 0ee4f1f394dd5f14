package csvimport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/estate-crm/internal/model"
)

func TestMapRow(t *testing.T) {
	t.Parallel()

	m := Mapping{
		0: model.FieldClientName,
		1: model.FieldCustomerNumber,
		2: model.FieldLeadStage,
		3: model.FieldLeadType,
		4: model.FieldExpectedVisitDate,
		5: model.FieldCallingComment,
	}
	rec, ok := MapRow([]string{" Ravi Kumar ", "9876543210", "DNP", "HOT lead", "15/03/2024", "asked for brochure", "ignored"}, m)
	require.True(t, ok)

	assert.Equal(t, "Ravi Kumar", rec.ClientName)
	assert.Equal(t, "9876543210", *rec.CustomerNumber)
	assert.Equal(t, model.LeadStageDNP, rec.LeadStage)
	assert.Equal(t, model.LeadTypeHot, rec.LeadType)
	assert.Equal(t, "2024-03-15", *rec.ExpectedVisitDate)
	assert.Equal(t, "asked for brochure", *rec.CallingComment)
	assert.Nil(t, rec.LocationCategory)
	assert.Equal(t, model.DealStatusOpen, rec.DealStatus)
}

func TestMapRow_Defaults(t *testing.T) {
	t.Parallel()

	m := Mapping{0: model.FieldClientName, 1: model.FieldLeadStage, 2: model.FieldExpectedVisitDate}
	rec, ok := MapRow([]string{"Meera", "interested maybe", "soon"}, m)
	require.True(t, ok)

	assert.Equal(t, model.LeadStageFollowUpReq, rec.LeadStage)
	assert.Equal(t, model.LeadTypeCold, rec.LeadType)
	assert.Equal(t, model.DealStatusOpen, rec.DealStatus)
	assert.Nil(t, rec.ExpectedVisitDate)
	assert.Nil(t, rec.CallingComment)
}

func TestMapRow_ImpossibleDateLeavesFieldEmpty(t *testing.T) {
	t.Parallel()

	m := Mapping{0: model.FieldClientName, 1: model.FieldExpectedVisitDate}
	for _, in := range []string{"31/02/2024", "13/13/2024", "9876543210"} {
		rec, ok := MapRow([]string{"Ravi", in}, m)
		require.True(t, ok, in)
		assert.Nil(t, rec.ExpectedVisitDate, in)
	}
}

func TestMapRow_ShortRowReadsEmpty(t *testing.T) {
	t.Parallel()

	m := Mapping{0: model.FieldClientName, 4: model.FieldLocationCategory}
	rec, ok := MapRow([]string{"Anil"}, m)
	require.True(t, ok)
	assert.Nil(t, rec.LocationCategory)
}

func TestMapRow_RejectsMissingName(t *testing.T) {
	t.Parallel()

	m := Mapping{0: model.FieldClientName, 1: model.FieldCustomerNumber}
	_, ok := MapRow([]string{"   ", "12345"}, m)
	assert.False(t, ok)

	_, ok = MapRow([]string{"Anil"}, Mapping{})
	assert.False(t, ok)
}

func TestMapRow_FirstNonEmptyColumnWins(t *testing.T) {
	t.Parallel()

	m := Mapping{0: model.FieldClientName, 1: model.FieldCallingComment, 2: model.FieldCallingComment}
	rec, _ := MapRow([]string{"Anil", "", "second"}, m)
	assert.Equal(t, "second", *rec.CallingComment)

	rec, _ = MapRow([]string{"Anil", "first", "second"}, m)
	assert.Equal(t, "first", *rec.CallingComment)
}
