package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sp(s string) *string { return &s }

func TestField_Label(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Lead Stage", FieldLeadStage.Label())
	assert.Equal(t, "Expected Visit Date", FieldExpectedVisitDate.Label())
	assert.Equal(t, "mystery", Field("mystery").Label())
}

func TestParseField(t *testing.T) {
	t.Parallel()
	f, ok := ParseField("lead_type")
	require.True(t, ok)
	assert.Equal(t, FieldLeadType, f)

	_, ok = ParseField("price")
	assert.False(t, ok)
}

func TestField_ImportableAndEditable(t *testing.T) {
	t.Parallel()
	assert.True(t, FieldClientName.Importable())
	assert.False(t, FieldDealStatus.Importable())
	assert.True(t, FieldDealStatus.Editable())
	assert.False(t, FieldClientName.Editable())
	assert.False(t, FieldCallingComment.Editable())
	assert.Len(t, ImportFields(), 7)
}

func TestLeadStage_Sets(t *testing.T) {
	t.Parallel()
	assert.True(t, LeadStageCallbackLater.IsAdmin())
	assert.False(t, LeadStageCallbackLater.IsStaff())
	assert.True(t, LeadStageVisitBooked.IsStaff())
	assert.False(t, LeadStageVisitBooked.IsAdmin())
	assert.True(t, LeadStageDNP.IsStaff())
	assert.True(t, LeadStageDNP.IsAdmin())
	assert.Equal(t, "CB after 2-3 Months", LeadStageCallbackLater.Label())
	assert.Equal(t, "NATC", LeadStageNATC.Label())
}

func TestDisplayValue(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		field Field
		in    *string
		want  *string
	}{
		{"nil stays nil", FieldLeadType, nil, nil},
		{"lead type label", FieldLeadType, sp("hot"), sp("Hot")},
		{"deal status label", FieldDealStatus, sp("locked"), sp("Deal Locked")},
		{"lead stage label", FieldLeadStage, sp("follow_up_req"), sp("Follow Up Required")},
		{"free text passthrough", FieldLocationCategory, sp("Sector 45"), sp("Sector 45")},
		{"date passthrough", FieldExpectedVisitDate, sp("2024-03-15"), sp("2024-03-15")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, DisplayValue(tt.field, tt.in))
		})
	}
}

func TestClient_ValueAndSet(t *testing.T) {
	t.Parallel()
	c := Client{ClientName: "Asha", LeadType: LeadTypeCold}

	assert.Nil(t, c.Value(FieldLocationCategory))
	assert.Equal(t, sp("cold"), c.Value(FieldLeadType))

	c.Set(FieldLocationCategory, sp("Villa"))
	c.Set(FieldLeadType, sp("warm"))
	assert.Equal(t, sp("Villa"), c.LocationCategory)
	assert.Equal(t, LeadTypeWarm, c.LeadType)

	c.Set(FieldLocationCategory, nil)
	assert.Nil(t, c.LocationCategory)
}

func TestClient_CloneIsDeep(t *testing.T) {
	t.Parallel()
	c := Client{
		ID:                    "c1",
		CallingComment:        sp("first"),
		CallingCommentHistory: []CommentEntry{{Comment: "first"}},
	}
	cp := c.Clone()
	*cp.CallingComment = "changed"
	cp.CallingCommentHistory[0].Comment = "changed"

	assert.Equal(t, "first", *c.CallingComment)
	assert.Equal(t, "first", c.CallingCommentHistory[0].Comment)
}

func TestClientPatch_Apply(t *testing.T) {
	t.Parallel()
	c := Client{ID: "c1", DealStatus: DealStatusOpen}
	p := ClientPatch{
		Fields:  map[Field]*string{FieldDealStatus: sp("lost"), FieldCallingComment: sp("hi")},
		History: []CommentEntry{{Comment: "hi", AddedBy: "Ravi"}},
	}
	require.False(t, p.Empty())
	p.Apply(&c)

	assert.Equal(t, DealStatusLost, c.DealStatus)
	assert.Equal(t, "hi", *c.CallingComment)
	require.Len(t, c.CallingCommentHistory, 1)
	assert.True(t, ClientPatch{}.Empty())
}

func TestNewClientRecord_Defaults(t *testing.T) {
	t.Parallel()
	r := NewClientRecord()
	assert.Equal(t, LeadStageFollowUpReq, r.LeadStage)
	assert.Equal(t, LeadTypeCold, r.LeadType)
	assert.Equal(t, DealStatusOpen, r.DealStatus)
}

func TestChangeEvent_InSheet(t *testing.T) {
	t.Parallel()
	a := ChangeEvent{Type: ChangeInsert, ID: "1", Record: &Client{SheetID: sp("a")}}
	assert.True(t, a.InSheet(""))
	assert.True(t, a.InSheet("a"))
	assert.False(t, a.InSheet("b"))

	del := ChangeEvent{Type: ChangeDelete, ID: "2"}
	assert.True(t, del.InSheet(""))
	assert.False(t, del.InSheet("a"))

	del.SheetID = sp("a")
	assert.True(t, del.InSheet("a"))
}
