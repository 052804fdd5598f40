package scrape

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"fundimport/internal"
	"fundimport/internal/util"
)

// ApplyFieldSelectors evaluates admin-configured per-(domain, field) CSS
// selector overrides against a page and returns the extracted text per
// field. This is the extension point for source domains beyond the built-in
// one; the built-in pipeline does not consult it.
func ApplyFieldSelectors(htmlText string, mappings []internal.ScrapeMapping) (map[string]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		return nil, err
	}

	out := map[string]string{}
	for _, m := range mappings {
		if strings.TrimSpace(m.Selector) == "" {
			continue
		}
		if text := util.NormalizeSpaces(doc.Find(m.Selector).First().Text()); text != "" {
			out[m.Field] = text
		}
	}
	return out, nil
}
