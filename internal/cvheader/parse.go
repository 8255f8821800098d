// Package cvheader parses free-text contact and header blocks into CV header fields.
//
// Parsing is heuristic: a field that cannot be recognized is left nil so the caller keeps
// whatever value it already had.
package cvheader

import (
	"regexp"
	"strings"

	"github.com/jonathan/cv-refiner/internal/types"
)

var (
	emailToken      = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phoneToken      = regexp.MustCompile(`\+?\(?\d[\d\s\-().]{5,}\d`)
	phoneShapedLine = regexp.MustCompile(`^\+?\(?\d[\d\s\-().]{5,}\d$`)
)

var (
	emailLabels    = []string{"email:", "e-mail:"}
	phoneLabels    = []string{"phone:", "tel:", "mobile:"}
	linkedInLabels = []string{"linkedin:"}
	gitHubLabels   = []string{"github:"}
	locationLabels = []string{"location:", "address:"}
	websiteLabels  = []string{"website:", "portfolio:", "web:"}
)

// ParseContactBlock reads one contact field per line.
func ParseContactBlock(text string) types.PartialCVHeader {
	var header types.PartialCVHeader
	for _, line := range lines(text) {
		lower := strings.ToLower(line)
		switch {
		case hasAny(lower, emailLabels) || strings.Contains(line, "@"):
			setField(&header.Email, valueAfterLabel(line, emailLabels))
		case hasAny(lower, phoneLabels) || phoneShapedLine.MatchString(line):
			setField(&header.Phone, valueAfterLabel(line, phoneLabels))
		case hasAny(lower, linkedInLabels) || strings.Contains(lower, "linkedin.com"):
			setField(&header.LinkedIn, valueAfterLabel(line, linkedInLabels))
		case hasAny(lower, gitHubLabels) || strings.Contains(lower, "github.com"):
			setField(&header.GitHub, valueAfterLabel(line, gitHubLabels))
		case hasAny(lower, locationLabels):
			setField(&header.Location, valueAfterLabel(line, locationLabels))
		case hasAny(lower, websiteLabels):
			setField(&header.Website, valueAfterLabel(line, websiteLabels))
		}
	}
	return header
}

// ParseHeaderBlock takes the first non-blank line as the full name and scans
// the remaining lines for email- and phone-shaped tokens.
func ParseHeaderBlock(text string) types.PartialCVHeader {
	var header types.PartialCVHeader
	all := lines(text)
	if len(all) == 0 {
		return header
	}
	setField(&header.Name, all[0])

	for _, line := range all[1:] {
		if token := emailToken.FindString(line); token != "" {
			if header.Email == nil {
				setField(&header.Email, token)
			}
			line = strings.Replace(line, token, " ", 1)
		}
		if header.Phone == nil {
			if token := phoneToken.FindString(line); token != "" {
				setField(&header.Phone, strings.TrimSpace(token))
			}
		}
	}
	return header
}

// lines splits on newlines, trims, and drops blanks
func lines(text string) []string {
	var out []string
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func hasAny(lower string, labels []string) bool {
	for _, label := range labels {
		if strings.Contains(lower, label) {
			return true
		}
	}
	return false
}

// valueAfterLabel strips everything up to and including the first label found, case-insensitively
func valueAfterLabel(line string, labels []string) string {
	lower := strings.ToLower(line)
	for _, label := range labels {
		if idx := strings.Index(lower, label); idx >= 0 {
			return strings.TrimSpace(line[idx+len(label):])
		}
	}
	return strings.TrimSpace(line)
}

func setField(dst **string, value string) {
	if value == "" {
		return
	}
	*dst = types.StringPtr(value)
}
