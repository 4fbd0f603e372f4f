package parser

import (
	"bytes"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/dgallion1/checkgest/internal/classify"
	"github.com/dgallion1/checkgest/internal/doctree"
)

// tabRow is a data row reduced to the cell that carries its text.
type tabRow struct {
	text     string
	column   int // index of the first non-empty cell
	bold     bool
	fontSize float64
	indent   int // explicit cell indent
}

// tabularFragments turns rows into fragments. The first row of a sheet is a
// header and is skipped. A row whose first value sits right of the first
// column, or is indented within it, is an entry under the row above and
// reads as a bullet.
func tabularFragments(rows []tabRow) []doctree.Fragment {
	var frags []doctree.Fragment
	for i, row := range rows {
		if i == 0 {
			continue
		}
		text := strings.TrimSpace(row.text)
		if text == "" {
			continue
		}
		indent := row.column + row.indent + leadingIndent(row.text)
		if indent > 0 && !classify.HasMarker(text) {
			text = "• " + text
		}
		frags = append(frags, doctree.Fragment{
			Text:     text,
			Bold:     row.bold,
			FontSize: row.fontSize,
			Indent:   indent,
		})
	}
	return frags
}

// XLSXSource handles .xlsx workbooks. Every sheet is read in order and cell
// styles supply weight, size and indent.
type XLSXSource struct{}

func (p *XLSXSource) Fragments(r io.Reader, _ Options) ([]doctree.Fragment, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "read xlsx")
	}
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "open xlsx")
	}

	var frags []doctree.Fragment
	for _, sheet := range f.Sheets {
		var rows []tabRow
		for _, row := range sheet.Rows {
			if row == nil {
				continue
			}
			rows = append(rows, xlsxRow(row))
		}
		frags = append(frags, tabularFragments(rows)...)
	}
	return frags, nil
}

func xlsxRow(row *xlsx.Row) tabRow {
	for j, cell := range row.Cells {
		if cell == nil {
			continue
		}
		val := cell.String()
		if strings.TrimSpace(val) == "" {
			continue
		}
		out := tabRow{text: val, column: j}
		if style := cell.GetStyle(); style != nil {
			out.bold = style.Font.Bold
			out.fontSize = float64(style.Font.Size)
			out.indent = style.Alignment.Indent
		}
		return out
	}
	return tabRow{}
}

// CSVSource handles CSV files the same way as a single-sheet workbook
// without styles.
type CSVSource struct{}

func (p *CSVSource) Fragments(r io.Reader, _ Options) ([]doctree.Fragment, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "read csv")
	}
	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "parse csv")
	}

	rows := make([]tabRow, 0, len(records))
	for _, rec := range records {
		row := tabRow{}
		for j, cell := range rec {
			if strings.TrimSpace(cell) != "" {
				row = tabRow{text: cell, column: j}
				break
			}
		}
		rows = append(rows, row)
	}
	return tabularFragments(rows), nil
}
