package quizgen

import (
	"strconv"
	"strings"

	"quiz-export/internal/domain"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	"github.com/gomarkdown/markdown/parser"
)

type tableColumn int

const (
	colIgnored tableColumn = iota
	colRow
	colQuestion
	colChoice
	colCorrect
	colExplanation
	colLanguage
)

// candidatesFromMarkdownTable reads the first Markdown table in text. Column
// roles are inferred from header names, e.g.
// | No. | Question | A | B | C | D | Correct answer | Note |.
// Rows of a table without a language column are tagged with languageHint.
func candidatesFromMarkdownTable(text, languageHint string) []domain.Candidate {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.Tables)
	doc := markdown.Parse([]byte(text), p)

	var table *ast.Table
	ast.WalkFunc(doc, func(node ast.Node, entering bool) ast.WalkStatus {
		if t, ok := node.(*ast.Table); ok && entering {
			table = t
			return ast.Terminate
		}
		return ast.GoToNext
	})
	if table == nil {
		return nil
	}

	var header []string
	var body [][]string
	for _, section := range table.Children {
		for _, child := range section.GetChildren() {
			row, ok := child.(*ast.TableRow)
			if !ok {
				continue
			}
			cells := tableRowText(row)
			if _, isHeader := section.(*ast.TableHeader); isHeader && header == nil {
				header = cells
				continue
			}
			body = append(body, cells)
		}
	}
	if header == nil {
		return nil
	}

	roles := make([]tableColumn, len(header))
	hasLanguage := false
	for i, h := range header {
		roles[i] = columnRole(h)
		hasLanguage = hasLanguage || roles[i] == colLanguage
	}

	cands := make([]domain.Candidate, 0, len(body))
	for _, cells := range body {
		var c domain.Candidate
		if !hasLanguage {
			c.Language = languageHint
		}
		correct := ""
		for i, cell := range cells {
			if i >= len(roles) {
				break
			}
			switch roles[i] {
			case colRow:
				c.Row, _ = strconv.Atoi(strings.Trim(cell, ". "))
			case colQuestion:
				c.Question = cell
			case colChoice:
				c.Choices = append(c.Choices, cell)
			case colCorrect:
				correct = cell
			case colExplanation:
				c.Explanation = cell
			case colLanguage:
				c.Language = cell
			}
		}
		if idx, ok := indexOfChoice(correct, c.Choices); ok {
			c.CorrectIndex = &idx
		} else if idx, ok := letterIndex(correct); ok {
			c.CorrectIndex = &idx
		}
		if !isBlank(c) {
			cands = append(cands, c)
		}
	}
	return cands
}

func tableRowText(row *ast.TableRow) []string {
	cells := make([]string, 0, len(row.Children))
	for _, cell := range row.Children {
		var b strings.Builder
		ast.WalkFunc(cell, func(node ast.Node, entering bool) ast.WalkStatus {
			if !entering {
				return ast.GoToNext
			}
			if leaf := node.AsLeaf(); leaf != nil {
				b.Write(leaf.Literal)
			}
			return ast.GoToNext
		})
		cells = append(cells, strings.TrimSpace(b.String()))
	}
	return cells
}

func columnRole(name string) tableColumn {
	n := strings.ToLower(strings.TrimSpace(name))
	switch {
	case n == "row" || n == "no" || n == "no." || n == "#" || n == "stt":
		return colRow
	case strings.Contains(n, "question") || strings.Contains(n, "câu hỏi"):
		return colQuestion
	case strings.Contains(n, "correct") || strings.Contains(n, "đúng"):
		return colCorrect
	case strings.Contains(n, "language") || n == "lang":
		return colLanguage
	case strings.Contains(n, "explanation") || strings.Contains(n, "note") || strings.Contains(n, "ghi chú"):
		return colExplanation
	case isChoiceHeader(n):
		return colChoice
	}
	return colIgnored
}

// isChoiceHeader matches "a", "option b", "choice 3", "đáp án c".
func isChoiceHeader(n string) bool {
	fields := strings.Fields(n)
	if len(fields) == 0 {
		return false
	}
	last := fields[len(fields)-1]
	if len(fields) > 1 {
		switch strings.Join(fields[:len(fields)-1], " ") {
		case "option", "choice", "answer", "đáp án":
		default:
			return false
		}
	}
	if _, ok := letterIndex(last); ok {
		return true
	}
	_, err := strconv.Atoi(last)
	return err == nil && len(fields) > 1
}
