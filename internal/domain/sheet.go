package domain

import (
	"context"
	"strconv"
)

// SheetValues is the header and data rows of one worksheet.
type SheetValues struct {
	Header []string
	Rows   []RawRow
}

// SheetReader reads cell values from a publicly viewable spreadsheet.
// identifier is either a spreadsheet URL or a bare spreadsheet ID.
type SheetReader interface {
	ReadWorksheet(ctx context.Context, identifier, worksheet string) (*SheetValues, error)
}

func columnName(i int) string {
	return "Column " + strconv.Itoa(i+1)
}
