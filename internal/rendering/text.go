package rendering

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PlainText flattens a rendered CV document into plain text: headings in capitals, bullets as
// "- " lines and a blank line between sections.
func PlainText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", &RenderError{Message: "failed to parse HTML", Cause: err}
	}
	doc.Find("script, style, h2 .score").Remove()

	var sb strings.Builder
	doc.Find("h1, .title, .contact, h2, p, li").Each(func(_ int, s *goquery.Selection) {
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text == "" {
			return
		}
		switch goquery.NodeName(s) {
		case "h2":
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(strings.ToUpper(text))
		case "li":
			sb.WriteString("- " + text)
		default:
			sb.WriteString(text)
		}
		sb.WriteString("\n")
	})
	return strings.TrimSpace(sb.String()), nil
}
