// Package ingestion turns an uploaded CV (PDF, DOCX or plain text) into cleaned text ready for analysis.
package ingestion

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// Format identifies an uploaded document type
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatText Format = "text"
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

var (
	// ErrUnsupportedFormat is returned for uploads that are neither PDF, DOCX nor text
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrEmptyDocument is returned when a document yields no text
	ErrEmptyDocument = errors.New("document contains no extractable text")
)

// DetectFormat picks the document format from the declared MIME type, the file name and the
// payload itself, in that order of trust.
func DetectFormat(mimeType, fileName string, data []byte) (Format, error) {
	clean := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	switch clean {
	case mimePDF:
		return FormatPDF, nil
	case mimeDOCX:
		return FormatDOCX, nil
	case "text/plain", "text/markdown":
		return FormatText, nil
	}

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return FormatPDF, nil
	case ".docx":
		return FormatDOCX, nil
	case ".txt", ".md", ".text":
		return FormatText, nil
	}

	switch sniffed := http.DetectContentType(data); {
	case sniffed == mimePDF:
		return FormatPDF, nil
	case sniffed == "application/zip" && isDOCX(data):
		return FormatDOCX, nil
	case strings.HasPrefix(sniffed, "text/plain"):
		return FormatText, nil
	}
	return "", fmt.Errorf("%w: mime=%q file=%q", ErrUnsupportedFormat, mimeType, fileName)
}

// ExtractText extracts and cleans the text of an uploaded document.
func ExtractText(ctx context.Context, data []byte, mimeType, fileName string) (string, *Metadata, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}
	format, err := DetectFormat(mimeType, fileName, data)
	if err != nil {
		return "", nil, err
	}

	var raw string
	switch format {
	case FormatPDF:
		raw, err = extractPDF(data)
	case FormatDOCX:
		raw, err = extractDOCX(data)
	default:
		raw, err = extractPlain(data)
	}
	if err != nil {
		return "", nil, fmt.Errorf("extract %s %q: %w", format, fileName, err)
	}

	cleaned := CleanText(raw)
	if cleaned == "" {
		return "", nil, ErrEmptyDocument
	}
	return cleaned, NewMetadata(cleaned, fileName, format, len(data)), nil
}

func extractPDF(data []byte) (string, error) {
	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", err
	}

	// Row-wise extraction keeps one text line per visual line, which
	// GetPlainText flattens away.
	var buf strings.Builder
	for pageNum := 1; pageNum <= pdfReader.NumPage(); pageNum++ {
		page := pdfReader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return "", fmt.Errorf("page %d: %w", pageNum, err)
		}
		for _, row := range rows {
			for i, word := range row.Content {
				if i > 0 {
					buf.WriteByte(' ')
				}
				buf.WriteString(word.S)
			}
			buf.WriteByte('\n')
		}
		buf.WriteByte('\n')
	}
	return buf.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var docFile *zip.File
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", errors.New("document.xml file not found")
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	var (
		buf    strings.Builder
		inText bool
	)
	decoder := xml.NewDecoder(rc)
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.CharData:
			if inText {
				buf.Write(t)
			}
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				buf.WriteByte(' ')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p", "br":
				buf.WriteByte('\n')
			}
		}
	}
	return buf.String(), nil
}

func extractPlain(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", errors.New("text is not valid UTF-8")
	}
	return string(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))), nil
}

func isDOCX(data []byte) bool {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return false
	}
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == "word/document.xml" {
			return true
		}
	}
	return false
}
