package service

import (
	"strings"
	"unicode"

	"quiz-export/internal/domain"
)

// headerRowNumber is the worksheet row that holds column names.
const headerRowNumber = 1

// NormalizeHeader cleans the column names of a worksheet.
func NormalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = cleanCell(h)
	}
	return trimTrailingBlanks(out)
}

// NormalizeRows drops rows whose cells are all blank and cleans the rest.
// Partially empty rows are kept; deciding whether they hold a question is left
// to extraction and validation.
func NormalizeRows(rows []domain.RawRow) []domain.NormalizedRow {
	normalized := make([]domain.NormalizedRow, 0, len(rows))
	for i, raw := range rows {
		cells := make([]string, len(raw))
		for j, cell := range raw {
			cells[j] = cleanCell(cell)
		}
		cells = trimTrailingBlanks(cells)
		if len(cells) == 0 {
			continue
		}
		normalized = append(normalized, domain.NormalizedRow{
			Index: headerRowNumber + 1 + i,
			Cells: cells,
		})
	}
	return normalized
}

// cleanCell strips spreadsheet formatting artifacts: zero-width characters,
// non-breaking spaces, CRLF line endings and surrounding whitespace.
func cleanCell(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\u200b', '\u200c', '\u200d', '\ufeff':
			return -1
		case '\u00a0':
			return ' '
		case '\r':
			return '\n'
		}
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

func trimTrailingBlanks(cells []string) []string {
	end := len(cells)
	for end > 0 && cells[end-1] == "" {
		end--
	}
	return cells[:end]
}
