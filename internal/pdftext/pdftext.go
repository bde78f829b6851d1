// Package pdftext pulls the text layer out of an uploaded roll PDF.
//
// We use ledongthuc/pdf for page text. It is pure Go, so there is no CGO or
// poppler dependency on the server. pdfcpu supplies the page count because it
// tolerates damaged cross-reference tables better.
package pdftext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/zap"
)

// Document is the plain text of a PDF plus its page count.
type Document struct {
	Text      string
	PageCount int
}

// Extractor converts raw PDF bytes into a Document.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (Document, error)
}

// ParseError reports that the PDF could not be read at all.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return "failed to parse PDF: " + e.Err.Error() }

func (e *ParseError) Unwrap() error { return e.Err }

var disableConfigDir sync.Once

// PDFExtractor is the ledongthuc/pdfcpu backed Extractor.
type PDFExtractor struct {
	log *zap.Logger
}

func NewExtractor(log *zap.Logger) *PDFExtractor {
	// pdfcpu otherwise writes a config.yml under the user's config dir.
	disableConfigDir.Do(api.DisableConfigDir)
	return &PDFExtractor{log: log}
}

// Extract reads every page's text, separating pages with a newline.
func (e *PDFExtractor) Extract(ctx context.Context, data []byte) (doc Document, err error) {
	if !LooksLikePDF(data) {
		return Document{}, &ParseError{Err: errors.New("missing %PDF- header")}
	}

	// ledongthuc/pdf panics on some malformed object streams.
	defer func() {
		if r := recover(); r != nil {
			doc, err = Document{}, &ParseError{Err: fmt.Errorf("reader panic: %v", r)}
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Document{}, &ParseError{Err: err}
	}

	numPages := reader.NumPage()

	var text strings.Builder
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return Document{}, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		// Font resource names are page-scoped, so each page resolves its own.
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			// Image-only pages have no text layer; keep going.
			e.log.Debug("page text extraction failed", zap.Int("page", i), zap.Error(err))
			continue
		}
		text.WriteString(pageText)
		text.WriteByte('\n')
	}

	return Document{Text: text.String(), PageCount: e.pageCount(data, numPages)}, nil
}

func (e *PDFExtractor) pageCount(data []byte, fallback int) int {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	n, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		e.log.Debug("pdfcpu page count failed, using reader count", zap.Error(err))
		return fallback
	}
	return n
}

// LooksLikePDF checks the %PDF- magic bytes.
func LooksLikePDF(data []byte) bool {
	return len(data) >= 5 && string(data[:5]) == "%PDF-"
}
