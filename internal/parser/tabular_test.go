package parser

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func TestCSVSource(t *testing.T) {
	input := "\xef\xbb\xbfItem,Owner\n1. Permits,\n,File EIA\n,Book review meeting\n2. Build,\n- Pour slab,ops\n"
	frags, err := (&CSVSource{}).Fragments(strings.NewReader(input), Options{})
	require.NoError(t, err)

	var texts []string
	for _, f := range frags {
		texts = append(texts, f.Text)
	}
	assert.Equal(t, []string{
		"1. Permits",
		"• File EIA",
		"• Book review meeting",
		"2. Build",
		"- Pour slab",
	}, texts)
	assert.Equal(t, 1, frags[1].Indent)
	assert.Equal(t, 0, frags[0].Indent)
}

func TestCSVSourceIndentedCellIsBullet(t *testing.T) {
	input := "Item\nSafety plan\n    Fire drill\n"
	frags, err := (&CSVSource{}).Fragments(strings.NewReader(input), Options{})
	require.NoError(t, err)
	require.Len(t, frags, 2)
	assert.Equal(t, "Safety plan", frags[0].Text)
	assert.Equal(t, "• Fire drill", frags[1].Text)
	assert.Equal(t, 1, frags[1].Indent)
}

func TestCSVSourceHeaderOnly(t *testing.T) {
	frags, err := (&CSVSource{}).Fragments(strings.NewReader("a,b\n"), Options{})
	require.NoError(t, err)
	assert.Empty(t, frags)
}

func writeTestXLSX(t *testing.T, rows [][]string, boldRow int) []byte {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Checklist")
	require.NoError(t, err)
	for i, rowData := range rows {
		row := sheet.AddRow()
		for _, cellData := range rowData {
			cell := row.AddCell()
			cell.SetString(cellData)
			if i == boldRow {
				style := xlsx.NewStyle()
				style.Font.Bold = true
				style.Font.Size = 16
				style.ApplyFont = true
				cell.SetStyle(style)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "test.xlsx")
	require.NoError(t, f.Save(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func TestXLSXSource(t *testing.T) {
	data := writeTestXLSX(t, [][]string{
		{"Task", "Detail"},
		{"Safety plan", ""},
		{"", "Fire drill"},
		{"2. Operations", ""},
	}, 1)

	frags, err := (&XLSXSource{}).Fragments(bytes.NewReader(data), Options{})
	require.NoError(t, err)
	require.Len(t, frags, 3)

	assert.Equal(t, "Safety plan", frags[0].Text)
	assert.True(t, frags[0].Bold)
	assert.InDelta(t, 16.0, frags[0].FontSize, 1e-9)

	assert.Equal(t, "• Fire drill", frags[1].Text)
	assert.Equal(t, 1, frags[1].Indent)
	assert.False(t, frags[1].Bold)

	assert.Equal(t, "2. Operations", frags[2].Text)
}

func TestXLSXSourceRejectsGarbage(t *testing.T) {
	_, err := (&XLSXSource{}).Fragments(strings.NewReader("not a zip"), Options{})
	assert.Error(t, err)
}
