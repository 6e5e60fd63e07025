// Package pdf inspects uploaded PDF files before they enter the pipeline.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrEncrypted is returned for password-protected PDFs.
var ErrEncrypted = errors.New("pdf is encrypted")

// ErrNotPDF is returned when the content does not start with a PDF header.
var ErrNotPDF = errors.New("not a pdf document")

// Info describes a readable PDF.
type Info struct {
	Pages int   `json:"pages"`
	Size  int64 `json:"size"`
}

// Inspect validates rs as a PDF and returns its page count. The reader is
// rewound to the start before returning.
func Inspect(rs io.ReadSeeker) (Info, error) {
	size, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return Info{}, fmt.Errorf("failed to size pdf: %w", err)
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return Info{}, fmt.Errorf("failed to rewind pdf: %w", err)
	}

	header := make([]byte, 5)
	if _, err := io.ReadFull(rs, header); err != nil || !bytes.Equal(header, []byte("%PDF-")) {
		return Info{}, ErrNotPDF
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return Info{}, fmt.Errorf("failed to rewind pdf: %w", err)
	}

	pages, err := api.PageCount(rs, model.NewDefaultConfiguration())
	if _, serr := rs.Seek(0, io.SeekStart); serr != nil && err == nil {
		err = serr
	}
	if err != nil {
		if isEncryptionError(err) {
			return Info{}, fmt.Errorf("%w: %v", ErrEncrypted, err)
		}
		return Info{}, fmt.Errorf("failed to read pdf: %w", err)
	}
	return Info{Pages: pages, Size: size}, nil
}

// InspectFile opens and inspects the PDF at path.
func InspectFile(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Inspect(f)
}

// IsPDFName reports whether name has a .pdf extension, in any case.
func IsPDFName(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".pdf")
}

func isEncryptionError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "encrypted") ||
		strings.Contains(msg, "password") ||
		strings.Contains(msg, "decrypt")
}
