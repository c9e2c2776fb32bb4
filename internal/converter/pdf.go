package converter

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ledongthuc/pdf"
)

// CountPDFPages returns the number of pages in the PDF at path using pure Go
func CountPDFPages(path string) (pages int, err error) {
	resolvedPath, err := filepath.Abs(path)
	if err != nil {
		return 0, &InspectionError{Path: path, Err: err}
	}

	if _, err := os.Stat(resolvedPath); err != nil {
		return 0, &InspectionError{Path: path, Err: err}
	}

	// the parser panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			pages = 0
			err = &InspectionError{Path: path, Err: fmt.Errorf("malformed pdf: %v", r)}
		}
	}()

	f, reader, err := pdf.Open(resolvedPath)
	if err != nil {
		return 0, &InspectionError{Path: path, Err: err}
	}
	defer f.Close()

	return reader.NumPage(), nil
}
