package quizgen

import (
	"encoding/json"
	"fmt"
	"strings"

	"quiz-export/internal/domain"
)

const systemPrompt = `You are a training specialist who converts existing quiz content into a structured table.

A quiz is a set of multiple-choice questions. Each question has two or more answer choices, exactly one of which is correct.

You receive spreadsheet rows. Each row lists its cells in column order as {"column", "value"} pairs and carries loosely formatted quiz text, possibly in several languages across its cells. For every question you find, emit one quiz object. Rules:
- Keep the original language of the text; never translate.
- Keep the order of the rows and of the questions within a row.
- Set "row" to the row number the question came from.
- "choices" lists the answer options in their original order, without "A." or "1)" prefixes.
- "correct_index" is the zero-based position of the correct option in "choices".
- "explanation" cites the supporting note or source if the row has one, otherwise "".
- "language" is the lower-case ISO 639-1 code of the question text, e.g. "en", "vi", "ja".
- Skip rows that contain no question.

Respond with ONLY a JSON object of this exact shape and no commentary:
{"items": [{"row": 2, "question": "...", "choices": ["...", "..."], "correct_index": 0, "explanation": "...", "language": "en"}]}`

type promptRow struct {
	Row   int            `json:"row"`
	Cells []domain.Field `json:"cells"`
}

// buildBatchPrompt renders the user message for one extraction batch.
func buildBatchPrompt(header []string, batch []domain.NormalizedRow) (string, error) {
	rows := make([]promptRow, 0, len(batch))
	for _, r := range batch {
		rows = append(rows, promptRow{Row: r.Index, Cells: r.Fields(header)})
	}
	payload, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode batch rows: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Columns: %s\n", strings.Join(header, " | "))
	fmt.Fprintf(&b, "Rows %d to %d as JSON:\n", batch[0].Index, batch[len(batch)-1].Index)
	b.Write(payload)
	b.WriteString("\n\nReturn the quiz objects for these rows.")
	return b.String(), nil
}
