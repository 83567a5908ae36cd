package preflight

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/dslipak/pdf"
)

// ValidatePDF checks the uploaded bytes parse as a PDF with at least one
// page, before any blob write or indexing job is queued. Returns the page
// count. The pdf library can panic on malformed files, hence the recover.
func ValidatePDF(raw []byte) (pageCount int, err error) {
	defer func() {
		if r := recover(); r != nil {
			pageCount = 0
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	if len(raw) == 0 {
		return 0, errors.New("empty file")
	}

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return 0, fmt.Errorf("failed to open pdf: %w", err)
	}

	pageCount = reader.NumPage()
	if pageCount < 1 {
		return 0, errors.New("pdf has no pages")
	}
	return pageCount, nil
}
