package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trailblaze/fieldops/internal/models"
)

func sampleDocument() models.ExportDocument {
	return models.ExportDocument{
		ID:               "es-1",
		StartingDate:     "2025-06-03",
		LastActivityDate: "2025-06-10",
		Observations:     "sem incidentes",
		Operations: []models.ExportOperation{
			{OperationCode: "PODA", AreaHaExecuted: 2.5, AreaPerc: 50, StartingDate: "2025-06-03"},
			{OperationCode: "REGA", AreaHaExecuted: 1, AreaPerc: 100},
		},
		PolygonsOperations: []models.ExportPolygonOps{
			{PolygonID: 12, Operations: []models.ExportPolygonEntry{
				{OperationID: 1, Status: "COMPLETED"},
				{OperationID: 2, Status: "IN_PROGRESS"},
			}},
			{PolygonID: 13, Operations: []models.ExportPolygonEntry{{OperationID: 1, Status: "ASSIGNED"}}},
		},
	}
}

func TestWriteWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName("es-1", FormatXLSX))
	require.NoError(t, WriteWorkbook(sampleDocument(), path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, []string{SummarySheet, OperationsSheet, PolygonsSheet}, f.GetSheetList())

	id, err := f.GetCellValue(SummarySheet, "B2")
	require.NoError(t, err)
	require.Equal(t, "es-1", id)

	ops, err := f.GetRows(OperationsSheet)
	require.NoError(t, err)
	require.Len(t, ops, 3)
	require.Equal(t, "PODA", ops[1][0])
	require.Equal(t, "2.5", ops[1][1])

	polys, err := f.GetRows(PolygonsSheet)
	require.NoError(t, err)
	require.Len(t, polys, 4)
	require.Equal(t, []string{"13", "1", "ASSIGNED"}, polys[3][:3])
}

func TestWriteJSONIndents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", FileName("es-1", FormatJSON))
	require.NoError(t, Write(models.ExportDocument{}, []byte(`{"id":"es-1","operations":[]}`), FormatJSON, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "{\n  \"id\": \"es-1\",\n  \"operations\": []\n}", string(data))
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]string{"": FormatXLSX, "XLSX": FormatXLSX, "excel": FormatXLSX, "json": FormatJSON} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got)
	}
	_, err := ParseFormat("csv")
	require.Error(t, err)
}
