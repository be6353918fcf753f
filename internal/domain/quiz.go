package domain

// RawRow is one worksheet row as read from the spreadsheet service.
type RawRow []string

// NormalizedRow is a cleaned, non-blank row. Index is the 1-based row number in
// the source worksheet, so row 2 is the first row under the header.
type NormalizedRow struct {
	Index int
	Cells []string
}

// Field is one non-empty cell named by its column header.
type Field struct {
	Column string `json:"column"`
	Value  string `json:"value"`
}

// Fields pairs the row's non-empty cells with the header names, in column
// order. Repeated header names stay separate fields. Cells beyond the header
// are named "Column N".
func (r NormalizedRow) Fields(header []string) []Field {
	fields := make([]Field, 0, len(r.Cells))
	for i, cell := range r.Cells {
		if cell == "" {
			continue
		}
		name := ""
		if i < len(header) {
			name = header[i]
		}
		if name == "" {
			name = columnName(i)
		}
		fields = append(fields, Field{Column: name, Value: cell})
	}
	return fields
}

// RowRange is an inclusive span of worksheet row numbers.
type RowRange struct {
	First int `json:"first"`
	Last  int `json:"last"`
}

// Candidate is a quiz item as produced by the model, before validation.
// CorrectIndex is nil when the reply carried no usable answer reference.
type Candidate struct {
	Row          int      `validate:"-"`
	Question     string   `validate:"required"`
	Choices      []string `validate:"min=2,dive,required"`
	CorrectIndex *int     `validate:"required"`
	Explanation  string   `validate:"-"`
	Language     string   `validate:"required"`
}

// QuizItem is a validated quiz question. CorrectIndex always points into Choices.
type QuizItem struct {
	Row          int      `json:"row"`
	Question     string   `json:"question"`
	Choices      []string `json:"choices"`
	CorrectIndex int      `json:"correct_index"`
	Explanation  string   `json:"explanation,omitempty"`
	Language     string   `json:"language"`
}

// CorrectAnswer returns the text of the correct choice.
func (q QuizItem) CorrectAnswer() string {
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Choices) {
		return ""
	}
	return q.Choices[q.CorrectIndex]
}

// LanguageGroup holds the items sharing one canonical language code, in
// source row order.
type LanguageGroup struct {
	Language string
	Items    []QuizItem
}

// Workbook is one rendered spreadsheet file for a single language.
type Workbook struct {
	Language string
	FileName string
	Header   []string
	Rows     [][]string
	Content  []byte
}

// ExportArchive is the zip handed back to the caller.
type ExportArchive struct {
	FileName string
	Files    []string
	Content  []byte
}
