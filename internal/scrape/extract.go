package scrape

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"fundimport/internal"
	"fundimport/internal/util"
)

const defaultSection = "Algemeen"

var (
	rePostalCode = regexp.MustCompile(`\b\d{4}\s?[A-Z]{2}\b`)
	reBrokerLine = regexp.MustCompile(`(?i)aangeboden door[:\s]+([^\r\n]+)`)
	rePhone      = regexp.MustCompile(`\+?\d[\d\s\-()]{6,}\d`)
)

// Extract parses a listing page into a ScrapeResult. Malformed markup is
// tolerated: the underlying parser recovers instead of failing. With
// requireExternalID set, a URL without an object-<digits> segment is a hard
// error because the listing cannot be identified.
func Extract(htmlText, sourceURL string, requireExternalID bool) (*internal.ScrapeResult, error) {
	externalID := ExternalIDFromURL(sourceURL)
	if requireExternalID && externalID == "" {
		return nil, fmt.Errorf("no object id in listing url: %s", sourceURL)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		return nil, err
	}

	res := &internal.ScrapeResult{
		URL:         sourceURL,
		ExternalID:  externalID,
		ScrapedAt:   time.Now().UTC(),
		RawFeatures: map[string]string{},
	}

	bodyText := doc.Find("body").Text()

	res.Title = extractTitle(doc)
	extractFeatures(doc, res)
	res.PricingDisplay = extractPricingDisplay(doc)
	res.AddressLine = extractAddressLine(res, bodyText)
	res.City = extractCity(res)
	res.Broker = extractBroker(res, bodyText)
	res.Neighborhood = findFeatureValue(res.Features, environmentSections, []string{"buurt", "wijk"})
	extractAssets(doc, sourceURL, res)

	return res, nil
}

func extractTitle(doc *goquery.Document) *string {
	title := ""
	doc.Find("h1").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if text := util.NormalizeSpaces(s.Text()); text != "" {
			title = text
			return false
		}
		return true
	})
	if title == "" {
		title = util.NormalizeSpaces(doc.Find(`meta[property="og:title"]`).AttrOr("content", ""))
	}
	if title == "" {
		return nil
	}
	return &title
}

// extractFeatures walks every definition list, pairing the i-th dt with the
// i-th dd under the nearest preceding sibling h2/h3 as section title. Raw
// keys collide across the whole scrape, so the dedupe counter is shared.
func extractFeatures(doc *goquery.Document, res *internal.ScrapeResult) {
	keyCounts := map[string]int{}

	doc.Find("dl").Each(func(_ int, dl *goquery.Selection) {
		section := precedingHeading(dl)
		if section == "" {
			section = defaultSection
		}
		sectionSlug := util.Slugify(section)

		terms := dl.Find("dt")
		descs := dl.Find("dd")
		n := terms.Length()
		if descs.Length() < n {
			n = descs.Length()
		}

		for i := 0; i < n; i++ {
			label := util.NormalizeSpaces(terms.Eq(i).Text())
			value := util.NormalizeSpaces(descs.Eq(i).Text())
			if label == "" || value == "" {
				continue
			}

			labelSlug := util.Slugify(label)
			base := "features." + sectionSlug + "." + labelSlug
			keyCounts[base]++
			rawKey := base
			if keyCounts[base] > 1 {
				rawKey = fmt.Sprintf("%s_%d", base, keyCounts[base])
			}

			res.Features = append(res.Features, internal.Feature{
				Section:     section,
				SectionSlug: sectionSlug,
				Label:       label,
				LabelSlug:   labelSlug,
				Value:       value,
				RawKey:      rawKey,
			})
			res.RawFeatures[rawKey] = value
		}
	})
}

func precedingHeading(s *goquery.Selection) string {
	for prev := s.Prev(); prev.Length() > 0; prev = prev.Prev() {
		if prev.Is("h2") || prev.Is("h3") {
			return util.NormalizeSpaces(prev.Text())
		}
	}
	return ""
}

// extractPricingDisplay returns the first text node in the document that
// mentions a currency symbol or "op aanvraag", capped at 200 characters.
func extractPricingDisplay(doc *goquery.Document) *string {
	var found *string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			text := n.Data
			if strings.ContainsAny(text, "€$£") || strings.Contains(strings.ToLower(text), "op aanvraag") {
				compact := util.NormalizeSpaces(text)
				if compact != "" {
					if runes := []rune(compact); len(runes) > 200 {
						compact = string(runes[:200])
					}
					found = &compact
					return
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, root := range doc.Nodes {
		walk(root)
	}
	return found
}

func extractAddressLine(res *internal.ScrapeResult, bodyText string) *string {
	addr := findFeatureValue(res.Features, addressSections, []string{"adres", "straat"})
	if addr == nil {
		addr = res.Title
	}
	if addr == nil {
		return nil
	}

	line := *addr
	if postal := rePostalCode.FindString(bodyText); postal != "" && !strings.Contains(line, postal) {
		line = line + " " + postal
	}
	return &line
}

func extractCity(res *internal.ScrapeResult) *string {
	if city := findFeatureValue(res.Features, citySections, []string{"plaats", "stad"}); city != nil {
		return city
	}

	source := res.AddressLine
	if source == nil {
		source = res.Title
	}
	if source == nil {
		return nil
	}
	idx := strings.LastIndex(*source, ",")
	if idx < 0 || idx+1 >= len(*source) {
		return nil
	}
	city := util.NormalizeSpaces((*source)[idx+1:])
	if city == "" {
		return nil
	}
	return &city
}

func extractBroker(res *internal.ScrapeResult, bodyText string) internal.Broker {
	broker := internal.Broker{}

	for i := range res.Features {
		f := &res.Features[i]
		if labelSlugMatches(f.LabelSlug, []string{"aangeboden_door", "aanbieder", "makelaar"}) {
			broker.Name = util.StringPtr(f.Value)
			break
		}
	}
	if broker.Name == nil {
		if m := reBrokerLine.FindStringSubmatch(bodyText); m != nil {
			if name := util.NormalizeSpaces(m[1]); name != "" {
				broker.Name = &name
			}
		}
	}

	if m := rePhone.FindString(bodyText); m != "" {
		broker.Phone = util.DigitsOnly(m)
	}

	return broker
}

func extractAssets(doc *goquery.Document, sourceURL string, res *internal.ScrapeResult) {
	seen := map[string]struct{}{}
	addImage := func(ref string) {
		resolved := ResolveURL(sourceURL, ref)
		if resolved == "" {
			return
		}
		if _, ok := seen[resolved]; ok {
			return
		}
		seen[resolved] = struct{}{}
		res.ImageURLs = append(res.ImageURLs, resolved)
	}

	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		if src, ok := img.Attr("src"); ok {
			addImage(src)
		}
		if src, ok := img.Attr("data-src"); ok {
			addImage(src)
		}
		if srcset, ok := img.Attr("srcset"); ok {
			addImage(WidestFromSrcset(srcset))
		}
	})
	doc.Find("source").Each(func(_ int, source *goquery.Selection) {
		if srcset, ok := source.Attr("srcset"); ok {
			addImage(WidestFromSrcset(srcset))
		}
	})

	drawingSeen := map[string]struct{}{}
	doc.Find("a").Each(func(_ int, a *goquery.Selection) {
		text := strings.ToLower(util.NormalizeSpaces(a.Text()))
		href := a.AttrOr("href", "")
		if href == "" {
			return
		}

		if res.BrochureURL == nil && strings.Contains(text, "brochure") {
			if resolved := ResolveURL(sourceURL, href); resolved != "" {
				res.BrochureURL = &resolved
			}
		}
		if strings.Contains(text, "plattegrond") || strings.Contains(text, "tekening") {
			resolved := ResolveURL(sourceURL, href)
			if resolved == "" {
				return
			}
			if _, ok := drawingSeen[resolved]; ok {
				return
			}
			drawingSeen[resolved] = struct{}{}
			res.DrawingURLs = append(res.DrawingURLs, resolved)
		}
	})
}

var (
	addressSections     = sectionMatcher{contains: []string{"adres"}}
	citySections        = sectionMatcher{contains: []string{"adres"}, exact: []string{"algemeen", "overig"}}
	environmentSections = sectionMatcher{contains: []string{"omgeving", "ligging"}, exact: []string{"algemeen", "overig"}}
)

type sectionMatcher struct {
	contains []string
	exact    []string
}

func (m sectionMatcher) matches(sectionSlug string) bool {
	for _, probe := range m.contains {
		if strings.Contains(sectionSlug, probe) {
			return true
		}
	}
	for _, probe := range m.exact {
		if sectionSlug == probe {
			return true
		}
	}
	return false
}

func labelSlugMatches(labelSlug string, probes []string) bool {
	for _, probe := range probes {
		if labelSlug == probe || strings.Contains(labelSlug, probe) {
			return true
		}
	}
	return false
}

func findFeatureValue(features []internal.Feature, sections sectionMatcher, labels []string) *string {
	for i := range features {
		f := &features[i]
		if !sections.matches(f.SectionSlug) {
			continue
		}
		for _, label := range labels {
			if f.LabelSlug == label {
				return util.StringPtr(f.Value)
			}
		}
	}
	return nil
}
