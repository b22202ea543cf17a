package ingest

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// PDFExtractor pulls plain text out of PDF files for document ingestion.
type PDFExtractor struct {
	logger *zap.Logger
}

func NewPDFExtractor(logger *zap.Logger) *PDFExtractor {
	return &PDFExtractor{logger: logger}
}

// ExtractText extracts all text content from a PDF file. Pages that cannot be
// read are skipped rather than failing the whole document.
func (pe *PDFExtractor) ExtractText(pdfPath string) (string, error) {
	f, r, err := pdf.Open(pdfPath)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	var fullText strings.Builder
	totalPages := r.NumPage()

	pe.logger.Debug("Extracting text from PDF",
		zap.String("path", pdfPath),
		zap.Int("pages", totalPages))

	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		page := r.Page(pageNum)
		if page.V.IsNull() {
			pe.logger.Warn("Skipping null page", zap.Int("page", pageNum))
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			pe.logger.Warn("Failed to extract text from page",
				zap.Int("page", pageNum),
				zap.Error(err))
			continue
		}

		fullText.WriteString(text)
		fullText.WriteString("\n\n")
	}

	extracted := fullText.String()
	pe.logger.Info("PDF text extraction completed",
		zap.String("path", pdfPath),
		zap.Int("pages", totalPages),
		zap.Int("characters", len(extracted)))

	return extracted, nil
}
