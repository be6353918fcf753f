package service

import (
	"fmt"
	"strconv"

	"quiz-export/internal/domain"

	"github.com/xuri/excelize/v2"
)

const (
	workbookSheetName = "Quiz"
	workbookExtension = ".xlsx"
)

// BuildWorkbook lays out one language group and renders it as an xlsx file.
// The columns are Question, Choice 1..N, Correct Answer, Explanation where N
// is the largest choice count in the group; shorter rows are padded.
func BuildWorkbook(group domain.LanguageGroup) (*domain.Workbook, error) {
	header, rows := workbookLayout(group.Items)
	content, err := renderXLSX(header, rows)
	if err != nil {
		return nil, fmt.Errorf("render workbook for %q: %w", group.Language, err)
	}
	return &domain.Workbook{
		Language: group.Language,
		FileName: WorkbookFileName(group.Language),
		Header:   header,
		Rows:     rows,
		Content:  content,
	}, nil
}

// WorkbookFileName derives the archive entry name from a canonical language.
func WorkbookFileName(language string) string {
	if language == "" {
		language = "unknown"
	}
	return language + workbookExtension
}

func workbookLayout(items []domain.QuizItem) ([]string, [][]string) {
	maxChoices := 0
	for _, item := range items {
		if len(item.Choices) > maxChoices {
			maxChoices = len(item.Choices)
		}
	}

	header := make([]string, 0, maxChoices+3)
	header = append(header, "Question")
	for i := 1; i <= maxChoices; i++ {
		header = append(header, "Choice "+strconv.Itoa(i))
	}
	header = append(header, "Correct Answer", "Explanation")

	rows := make([][]string, 0, len(items))
	for _, item := range items {
		row := make([]string, len(header))
		row[0] = item.Question
		copy(row[1:1+maxChoices], item.Choices)
		row[1+maxChoices] = item.CorrectAnswer()
		row[2+maxChoices] = item.Explanation
		rows = append(rows, row)
	}
	return header, rows
}

func renderXLSX(header []string, rows [][]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", workbookSheetName); err != nil {
		return nil, err
	}

	all := append([][]string{header}, rows...)
	for r, values := range all {
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		if err != nil {
			return nil, err
		}
		row := make([]interface{}, len(values))
		for i, v := range values {
			row[i] = v
		}
		if err := f.SetSheetRow(workbookSheetName, cell, &row); err != nil {
			return nil, err
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(workbookSheetName, 1, 1, bold); err != nil {
		return nil, err
	}
	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return nil, err
	}
	if err := f.SetColWidth(workbookSheetName, "A", lastCol, 30); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(workbookSheetName, "A", "A", 60); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
