package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/estate-crm/internal/csvimport"
	"github.com/sells-group/estate-crm/internal/model"
)

func sp(s string) *string { return &s }

func sampleClients() []model.Client {
	created := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	return []model.Client{
		{
			ID:                "c1",
			ClientName:        "Ravi, Kumar",
			CustomerNumber:    sp("9876543210"),
			LeadStage:         model.LeadStageDNP,
			LeadType:          model.LeadTypeHot,
			LocationCategory:  sp("Villa"),
			CallingComment:    sp(`said "call later"`),
			ExpectedVisitDate: sp("2024-04-01"),
			DealStatus:        model.DealStatusLocked,
			SheetID:           sp("north"),
			CreatedAt:         created,
		},
		{
			ID:         "c2",
			ClientName: "Meera",
			LeadStage:  model.LeadStageFollowUpReq,
			LeadType:   model.LeadTypeCold,
			DealStatus: model.DealStatusOpen,
			CreatedAt:  created,
		},
	}
}

func TestRow(t *testing.T) {
	t.Parallel()

	row := Row(sampleClients()[0])
	assert.Equal(t, []string{
		"Ravi, Kumar", "9876543210", "DNP", "Hot", "Villa", `said "call later"`,
		"2024-04-01", "Deal Locked", "north", "2024-03-15T09:00:00Z",
	}, row)
	assert.Len(t, row, len(Header()))
}

func TestWriteCSV_ReimportsWithAutoMap(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleClients()))

	rows := csvimport.Tokenize(buf.String())
	require.Len(t, rows, 3)
	assert.Equal(t, Header(), rows[0])

	b := csvimport.BuildBatch(rows, true, csvimport.AutoMap(rows[0]), nil)
	require.Len(t, b.Records, 2)
	assert.Equal(t, "Ravi, Kumar", b.Records[0].ClientName)
	assert.Equal(t, `said "call later"`, *b.Records[0].CallingComment)
	assert.Equal(t, model.LeadStageDNP, b.Records[0].LeadStage)
	assert.Equal(t, model.LeadTypeHot, b.Records[0].LeadType)
	assert.Equal(t, "2024-04-01", *b.Records[0].ExpectedVisitDate)
	assert.Equal(t, model.LeadStageFollowUpReq, b.Records[1].LeadStage)
}

func TestWriteXLSX(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatXLSX, sampleClients()))

	rows, err := csvimport.ReadXLSXBinary(buf.Bytes(), "Clients")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Header(), rows[0])
	assert.Equal(t, "Meera", rows[2][0])
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = ParseFormat("xlsx")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)
	assert.Contains(t, f.ContentType(), "spreadsheetml")

	_, err = ParseFormat("pdf")
	assert.Error(t, err)
}
