// Package document holds the file a user selected for analysis.
package document

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ContentTypePDF is the content type of the uploaded file part.
const ContentTypePDF = "application/pdf"

var pdfMagic = []byte("%PDF-") //nolint:gochecknoglobals // constant byte slice

// File is a selected document. Data is never modified after construction.
type File struct {
	Name string
	Data []byte
	// Pages is the PDF page count, or 0 when it could not be read.
	Pages int
	// PDF reports whether the content starts with a PDF header.
	PDF bool
}

// Size returns the length of the file in bytes.
func (f File) Size() int64 { return int64(len(f.Data)) }

// New builds a File and inspects its content. The base name of name is kept.
func New(name string, data []byte) (File, error) {
	name = strings.TrimSpace(filepath.Base(strings.ReplaceAll(name, `\`, "/")))
	if name == "" || name == "." || name == "/" {
		return File{}, ErrNoName
	}
	if len(data) == 0 {
		return File{}, ErrEmpty
	}

	f := File{Name: name, Data: data}
	f.PDF, f.Pages = Inspect(data)
	return f, nil
}

// Read loads at most limit bytes from r. A limit of zero or less disables the check.
func Read(name string, r io.Reader, limit int64) (File, error) {
	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return File{}, fmt.Errorf("read %s: %w", name, err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return File{}, fmt.Errorf("%w: %s exceeds %d bytes", ErrTooLarge, name, limit)
	}
	return New(name, data)
}

// Inspect reports whether data looks like a PDF and, if it parses, how many
// pages it has. It never fails; the analysis service is the judge of content.
func Inspect(data []byte) (isPDF bool, pages int) {
	if !bytes.HasPrefix(data, pdfMagic) {
		return false, 0
	}
	return true, countPages(data)
}

func countPages(data []byte) (pages int) {
	// The parser panics on some truncated inputs.
	defer func() {
		if recover() != nil {
			pages = 0
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0
	}
	return r.NumPage()
}
