package service

import (
	"bytes"
	"fmt"
	"time"

	"quiz-export/internal/domain"

	"github.com/klauspost/compress/zip"
)

// ArchiveFileName is the name offered to clients for the download.
const ArchiveFileName = "quiz_exports.zip"

// archiveModTime pins entry timestamps so identical workbooks zip identically.
var archiveModTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// AssembleArchive zips one entry per workbook, in the order given.
func AssembleArchive(workbooks []domain.Workbook) (*domain.ExportArchive, error) {
	if len(workbooks) == 0 {
		return nil, fmt.Errorf("no workbooks to archive")
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	seen := make(map[string]bool, len(workbooks))
	files := make([]string, 0, len(workbooks))

	for _, wb := range workbooks {
		if seen[wb.FileName] {
			return nil, fmt.Errorf("duplicate archive entry %q", wb.FileName)
		}
		seen[wb.FileName] = true

		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     wb.FileName,
			Method:   zip.Deflate,
			Modified: archiveModTime,
		})
		if err != nil {
			return nil, fmt.Errorf("create archive entry %q: %w", wb.FileName, err)
		}
		if _, err := w.Write(wb.Content); err != nil {
			return nil, fmt.Errorf("write archive entry %q: %w", wb.FileName, err)
		}
		files = append(files, wb.FileName)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}

	return &domain.ExportArchive{
		FileName: ArchiveFileName,
		Files:    files,
		Content:  buf.Bytes(),
	}, nil
}
