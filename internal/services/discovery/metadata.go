package discovery

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// GeneralQualifier is assigned when no month token appears in a
// document entry's text
const GeneralQualifier = "General"

var yearPattern = regexp.MustCompile(`\b20\d{2}\b`)

// Month tokens are probed in calendar order; the first hit wins. Only
// standalone three-letter abbreviations count ("Jan 2024" matches,
// "January 2024" does not).
var monthPatterns = buildMonthPatterns()

func buildMonthPatterns() []struct {
	label   string
	pattern *regexp.Regexp
} {
	months := []string{"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec"}
	patterns := make([]struct {
		label   string
		pattern *regexp.Regexp
	}, len(months))
	for i, m := range months {
		patterns[i].label = strings.ToUpper(m[:1]) + m[1:]
		patterns[i].pattern = regexp.MustCompile(`(?i)\b` + m + `\b`)
	}
	return patterns
}

// ExtractYear returns the first four-digit 20xx token in the text
func ExtractYear(text string) (int, bool) {
	match := yearPattern.FindString(text)
	if match == "" {
		return 0, false
	}
	year, err := strconv.Atoi(match)
	if err != nil {
		return 0, false
	}
	return year, true
}

// ExtractQualifier returns the title-cased month abbreviation found in
// the text, or GeneralQualifier when none is present
func ExtractQualifier(text string) string {
	for _, m := range monthPatterns {
		if m.pattern.MatchString(text) {
			return m.label
		}
	}
	return GeneralQualifier
}

// ExtractMetadata infers a year and period qualifier for a document
// link. The search text is the link's enclosing list item when one
// exists, otherwise the link itself; the link target is never searched.
// Pure function of its inputs.
func ExtractMetadata(element *goquery.Selection) (year int, qualifier string, ok bool) {
	text := contextText(element)
	year, ok = ExtractYear(text)
	qualifier = ExtractQualifier(text)
	return year, qualifier, ok
}

// contextText returns the space-joined text of the element's enclosing
// list item, or of the element itself if it sits outside any list
func contextText(element *goquery.Selection) string {
	if row := element.Closest("li"); row.Length() > 0 {
		return joinedText(row)
	}
	return joinedText(element)
}

// joinedText collects the selection's text nodes, trimmed, joined with
// single spaces. Markup boundaries become token boundaries, so a year
// split across inline tags still matches as a standalone token.
func joinedText(s *goquery.Selection) string {
	return strings.Join(textParts(s), " ")
}

// strippedText collects the selection's text nodes, trimmed and
// concatenated without separators
func strippedText(s *goquery.Selection) string {
	return strings.Join(textParts(s), "")
}

func textParts(s *goquery.Selection) []string {
	var parts []string
	for _, node := range s.Nodes {
		collectText(node, &parts)
	}
	return parts
}

func collectText(n *html.Node, parts *[]string) {
	if n.Type == html.TextNode {
		if t := strings.TrimSpace(n.Data); t != "" {
			*parts = append(*parts, t)
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}
