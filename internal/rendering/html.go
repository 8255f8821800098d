package rendering

import (
	"bytes"
	"embed"
	"html/template"
	"strings"

	"github.com/jonathan/cv-refiner/internal/resolver"
	"github.com/jonathan/cv-refiner/internal/store"
	"github.com/jonathan/cv-refiner/internal/types"
)

//go:embed templates/*.tmpl
var templateFiles embed.FS

var cvTemplate = template.Must(
	template.New("cv.html.tmpl").
		Funcs(template.FuncMap{"join": strings.Join}).
		ParseFS(templateFiles, "templates/cv.html.tmpl"),
)

// HTMLOptions controls the exported page
type HTMLOptions struct {
	// IncludeScores prints each section's score next to its heading
	IncludeScores bool
}

// TemplateData is what the CV template is executed with
type TemplateData struct {
	Title         string
	Header        *HeaderData
	Sections      []SectionData
	IncludeScores bool
}

// HeaderData is the rendered CV header
type HeaderData struct {
	Name    string
	Title   string
	Contact []string
}

// SectionData is one rendered section
type SectionData struct {
	Name   string
	Score  int
	Blocks []Block
}

// Block is a paragraph, or a run of consecutive bullet items
type Block struct {
	Text  string
	Items []string
}

// RenderHTML renders the snapshot as a standalone HTML document.
func RenderHTML(snap store.Snapshot, opts HTMLOptions) (string, error) {
	if !snap.Loaded() {
		return "", ErrNothingToRender
	}

	data := BuildTemplateData(snap, opts)
	var buf bytes.Buffer
	if err := cvTemplate.Execute(&buf, data); err != nil {
		return "", &TemplateError{Message: "failed to execute CV template", Cause: err}
	}
	return buf.String(), nil
}

// BuildTemplateData maps a snapshot onto the template model. When the snapshot carries a structured
// header, sections that only repeat the header are left out.
func BuildTemplateData(snap store.Snapshot, opts HTMLOptions) TemplateData {
	data := TemplateData{Title: "Curriculum Vitae", IncludeScores: opts.IncludeScores}
	if snap.Header != nil {
		data.Header = buildHeader(*snap.Header)
		if data.Header.Name != "" {
			data.Title = data.Header.Name + " - CV"
		}
	}

	for _, section := range snap.Sections {
		if data.Header != nil && resolver.Canonical(section.Name) == resolver.GroupHeader {
			continue
		}
		data.Sections = append(data.Sections, SectionData{
			Name:   section.Name,
			Score:  section.Score,
			Blocks: SplitBlocks(section.Content),
		})
	}
	return data
}

func buildHeader(h types.CVHeader) *HeaderData {
	header := &HeaderData{Name: strings.TrimSpace(h.Name), Title: strings.TrimSpace(h.Title)}
	for _, field := range []*string{h.Email, h.Phone, h.Location, h.LinkedIn, h.GitHub, h.Website} {
		if v := strings.TrimSpace(types.Deref(field)); v != "" {
			header.Contact = append(header.Contact, v)
		}
	}
	return header
}

// SplitBlocks breaks section content into paragraphs and bullet lists. Consecutive plain lines
// are joined into one paragraph; blank lines end it.
func SplitBlocks(content string) []Block {
	var (
		blocks    []Block
		paragraph []string
		items     []string
	)
	flushParagraph := func() {
		if len(paragraph) > 0 {
			blocks = append(blocks, Block{Text: strings.Join(paragraph, " ")})
			paragraph = nil
		}
	}
	flushItems := func() {
		if len(items) > 0 {
			blocks = append(blocks, Block{Items: items})
			items = nil
		}
	}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			flushParagraph()
			flushItems()
		case isBullet(line):
			flushParagraph()
			items = append(items, strings.TrimSpace(line[bulletWidth(line):]))
		default:
			flushItems()
			paragraph = append(paragraph, line)
		}
	}
	flushParagraph()
	flushItems()
	return blocks
}

var bulletPrefixes = []string{"- ", "* ", "• ", "· "}

func isBullet(line string) bool {
	return bulletWidth(line) > 0
}

func bulletWidth(line string) int {
	for _, prefix := range bulletPrefixes {
		if strings.HasPrefix(line, prefix) {
			return len(prefix)
		}
	}
	return 0
}
