package discovery

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func TestExtractYear(t *testing.T) {
	tests := []struct {
		name string
		text string
		year int
		ok   bool
	}{
		{"plain year", "Annual Report 2022", 2022, true},
		{"first match wins", "From 2020 to 2021", 2020, true},
		{"year at start", "2023 Concall Transcript", 2023, true},
		{"no year", "Annual Report Archive", 0, false},
		{"pre-2000 ignored", "Report 1999", 0, false},
		{"embedded digits ignored", "FY2022", 0, false},
		{"trailing digits ignored", "202203 report", 0, false},
		{"upper bound", "Projection 2099", 2099, true},
		{"empty", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			year, ok := ExtractYear(tt.text)
			if ok != tt.ok || year != tt.year {
				t.Errorf("ExtractYear(%q) = (%d, %v), want (%d, %v)", tt.text, year, ok, tt.year, tt.ok)
			}
		})
	}
}

func TestExtractQualifier(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"plain month", "Concall Jan 2024", "Jan"},
		{"lowercase month", "transcript for feb 2023", "Feb"},
		{"uppercase month", "AUG 2021 Results", "Aug"},
		{"full month name does not match", "January 2024", "General"},
		{"month in parentheses", "Results (Mar) call", "Mar"},
		{"calendar order probe", "dec 2023 and jan 2024", "Jan"},
		{"no month", "Annual Report 2022", "General"},
		{"empty", "", "General"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractQualifier(tt.text); got != tt.want {
				t.Errorf("ExtractQualifier(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestExtractMetadata(t *testing.T) {
	tests := []struct {
		name      string
		html      string
		year      int
		qualifier string
		ok        bool
	}{
		{
			name:      "year and month from enclosing list item",
			html:      `<ul><li>Concall Feb 2023 <a href="https://example.com/t.pdf">Transcript</a></li></ul>`,
			year:      2023,
			qualifier: "Feb",
			ok:        true,
		},
		{
			name:      "anchor outside any list item",
			html:      `<div><a href="https://example.com/t.pdf">Transcript Aug 2021</a></div>`,
			year:      2021,
			qualifier: "Aug",
			ok:        true,
		},
		{
			name:      "year split across inline tags",
			html:      `<ul><li><b>FY</b><span>2022</span> <a href="https://example.com/a.pdf">Report</a></li></ul>`,
			year:      2022,
			qualifier: "General",
			ok:        true,
		},
		{
			name:      "link target is not searched",
			html:      `<ul><li>Archive <a href="https://example.com/2022/t.pdf">Transcript</a></li></ul>`,
			year:      0,
			qualifier: "General",
			ok:        false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := goquery.NewDocumentFromReader(strings.NewReader(tt.html))
			if err != nil {
				t.Fatal(err)
			}
			link := doc.Find("a").First()
			if link.Length() == 0 {
				t.Fatal("fixture has no anchor")
			}

			year, qualifier, ok := ExtractMetadata(link)
			if ok != tt.ok || year != tt.year || qualifier != tt.qualifier {
				t.Errorf("ExtractMetadata() = (%d, %q, %v), want (%d, %q, %v)",
					year, qualifier, ok, tt.year, tt.qualifier, tt.ok)
			}
		})
	}
}
