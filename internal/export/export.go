// Package export renders a session history as a downloadable file.
package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-pdf/fpdf"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/sfnt"

	"github.com/jo-hoe/visionassist/internal/backend/database"
)

type Format string

const (
	FormatText     Format = "txt"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "md"
	FormatPDF      Format = "pdf"
)

const fileBaseName = "ai_history"

var (
	ErrEmptyHistory      = errors.New("No history to download!")
	ErrUnsupportedFormat = errors.New("unsupported export format")
)

// File is a rendered export ready to be served as an attachment
type File struct {
	Data        []byte
	ContentType string
	Filename    string
}

// ParseFormat maps a user supplied format name to a Format. An empty name
// selects plain text.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "txt", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "pdf":
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
}

// Formats lists the supported formats in display order
func Formats() []Format {
	return []Format{FormatText, FormatJSON, FormatMarkdown, FormatPDF}
}

// Render encodes records in the requested format
func Render(format Format, records []*database.Record) (*File, error) {
	if len(records) == 0 {
		return nil, ErrEmptyHistory
	}

	var (
		data        []byte
		contentType string
		err         error
	)
	switch format {
	case FormatText:
		data, contentType = renderText(records), "text/plain; charset=utf-8"
	case FormatJSON:
		data, err = renderJSON(records)
		contentType = "application/json"
	case FormatMarkdown:
		data, contentType = renderMarkdown(records), "text/markdown; charset=utf-8"
	case FormatPDF:
		data, err = renderPDF(records)
		contentType = "application/pdf"
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("render %s export: %w", format, err)
	}

	return &File{
		Data:        data,
		ContentType: contentType,
		Filename:    fileBaseName + "." + string(format),
	}, nil
}

func renderText(records []*database.Record) []byte {
	var buf bytes.Buffer
	for i, r := range records {
		fmt.Fprintf(&buf, "Query %d:\n%s\nResponse:\n%s\n\n", i+1, r.Prompt, r.Response)
		buf.WriteString(strings.Repeat("-", 40))
		buf.WriteString("\n\n")
	}
	return buf.Bytes()
}

type jsonExport struct {
	ExportedAt time.Time          `json:"exportedAt"`
	Count      int                `json:"count"`
	Records    []*database.Record `json:"records"`
}

func renderJSON(records []*database.Record) ([]byte, error) {
	return json.MarshalIndent(jsonExport{
		ExportedAt: time.Now().UTC(),
		Count:      len(records),
		Records:    records,
	}, "", "  ")
}

func renderMarkdown(records []*database.Record) []byte {
	var buf bytes.Buffer
	buf.WriteString("# AI History\n\n")
	for i, r := range records {
		fmt.Fprintf(&buf, "## Query %d\n\n", i+1)
		fmt.Fprintf(&buf, "_%s, %s_\n\n", r.Assistant, r.CreatedAt.UTC().Format(time.RFC3339))
		if r.Category != "" || r.Tone != "" {
			fmt.Fprintf(&buf, "Category: %s, Tone: %s\n\n", r.Category, r.Tone)
		}
		fmt.Fprintf(&buf, "**Q:** %s\n\n", r.Prompt)
		fmt.Fprintf(&buf, "**A:** %s\n\n", r.Response)
		for _, key := range sortedKeys(r.Fields) {
			fmt.Fprintf(&buf, "- **%s:** %s\n", key, r.Fields[key])
		}
		if len(r.Fields) > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString("---\n\n")
	}
	return buf.Bytes()
}

// pdfFontFamily is the embedded Go font; it covers Latin, Greek and Cyrillic
const pdfFontFamily = "Go"

var pdfGlyphs = sync.OnceValues(func() (*sfnt.Font, error) {
	return sfnt.Parse(goregular.TTF)
})

func renderPDF(records []*database.Record) ([]byte, error) {
	glyphs, err := pdfGlyphs()
	if err != nil {
		return nil, fmt.Errorf("failed to parse pdf font: %w", err)
	}
	var glyphBuf sfnt.Buffer
	tr := func(s string) string { return pdfText(glyphs, &glyphBuf, s) }

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddUTF8FontFromBytes(pdfFontFamily, "", goregular.TTF)
	pdf.AddUTF8FontFromBytes(pdfFontFamily, "B", gobold.TTF)
	pdf.SetTitle("AI History", true)
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)

	pdf.AddPage()
	pdf.SetFont(pdfFontFamily, "B", 16)
	pdf.CellFormat(0, 10, "AI History", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	for i, r := range records {
		pdf.SetFont(pdfFontFamily, "B", 12)
		pdf.CellFormat(0, 8, tr(fmt.Sprintf("Query %d (%s)", i+1, r.Assistant)), "", 1, "L", false, 0, "")

		pdf.SetFont(pdfFontFamily, "", 10)
		pdf.MultiCell(0, 5, tr(r.Prompt), "", "L", false)
		pdf.Ln(1)

		pdf.SetFont(pdfFontFamily, "B", 10)
		pdf.CellFormat(0, 6, "Response:", "", 1, "L", false, 0, "")
		pdf.SetFont(pdfFontFamily, "", 10)
		pdf.MultiCell(0, 5, tr(r.Response), "", "L", false)

		for _, key := range sortedKeys(r.Fields) {
			pdf.MultiCell(0, 5, tr(key+": "+r.Fields[key]), "", "L", false)
		}
		pdf.Ln(4)
	}

	if err := pdf.Error(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// pdfText replaces runes the font has no glyph for (emoji, CJK) with "?"
// so they show up as visibly missing rather than as empty boxes.
func pdfText(font *sfnt.Font, buf *sfnt.Buffer, s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\n':
			return r
		case '\t':
			return ' '
		}
		if idx, err := font.GlyphIndex(buf, r); err != nil || idx == 0 {
			return '?'
		}
		return r
	}, s)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
