package discovery

import (
	"regexp"
	"strings"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

// maxExcerptLen caps the preview payload; disclosure pages run large
const maxExcerptLen = 4000

var (
	tagPattern   = regexp.MustCompile(`<[^>]*>`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// SectionExcerpt renders the page's annual-report section as markdown
// for plan previews. baseURL resolves relative links. Returns "" when
// the page has no such section; previews degrade, they never fail.
func SectionExcerpt(pageHTML, baseURL string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return ""
	}

	section := annualReportSection(doc)
	if section == nil || section.Length() == 0 {
		return ""
	}

	sectionHTML, err := goquery.OuterHtml(section)
	if err != nil || strings.TrimSpace(sectionHTML) == "" {
		return ""
	}

	converter := md.NewConverter(baseURL, true, nil)
	markdown, err := converter.ConvertString(sectionHTML)
	if err != nil || strings.TrimSpace(markdown) == "" {
		markdown = stripTags(sectionHTML)
	}

	return truncateExcerpt(strings.TrimSpace(markdown))
}

// stripTags is the lossy fallback when markdown conversion fails
func stripTags(htmlStr string) string {
	stripped := tagPattern.ReplaceAllString(htmlStr, " ")
	cleaned := spacePattern.ReplaceAllString(stripped, " ")

	cleaned = strings.ReplaceAll(cleaned, "&amp;", "&")
	cleaned = strings.ReplaceAll(cleaned, "&lt;", "<")
	cleaned = strings.ReplaceAll(cleaned, "&gt;", ">")
	cleaned = strings.ReplaceAll(cleaned, "&quot;", "\"")
	cleaned = strings.ReplaceAll(cleaned, "&#39;", "'")
	cleaned = strings.ReplaceAll(cleaned, "&nbsp;", " ")

	return strings.TrimSpace(cleaned)
}

// truncateExcerpt cuts at a rune boundary at most maxExcerptLen bytes in
func truncateExcerpt(s string) string {
	if len(s) <= maxExcerptLen {
		return s
	}
	cut := maxExcerptLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "\n..."
}
