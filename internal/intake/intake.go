package intake

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jhillyerd/enmime"

	"fundimport/internal/scrape"
)

var reLink = regexp.MustCompile(`https?://[^\s"'<>()\[\]]+`)

// Mail holds the parts of a forwarded listing mail the intake cares about.
type Mail struct {
	Subject     string
	From        string
	ListingURLs []string
}

// FromRaw parses a raw RFC 5322 message and harvests every listing URL on
// the allowed domain from its text and HTML parts, deduplicated in
// first-seen order. Brokers forward listing mails; everything else in the
// message is ignored.
func FromRaw(raw []byte, allowedDomain string) (Mail, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return Mail{}, err
	}

	mail := Mail{
		Subject: env.GetHeader("Subject"),
		From:    env.GetHeader("From"),
	}

	seen := map[string]struct{}{}
	add := func(candidate string) {
		candidate = trimLinkPunctuation(candidate)
		if candidate == "" || !scrape.IsAllowedDomain(candidate, allowedDomain) {
			return
		}
		if _, ok := seen[candidate]; ok {
			return
		}
		seen[candidate] = struct{}{}
		mail.ListingURLs = append(mail.ListingURLs, candidate)
	}

	for _, link := range reLink.FindAllString(env.Text, -1) {
		add(link)
	}
	if env.HTML != "" {
		for _, link := range htmlLinks(env.HTML) {
			add(link)
		}
		for _, link := range reLink.FindAllString(env.HTML, -1) {
			add(link)
		}
	}

	return mail, nil
}

func htmlLinks(htmlText string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		return nil
	}
	var out []string
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		out = append(out, a.AttrOr("href", ""))
	})
	return out
}

// trimLinkPunctuation drops trailing characters that belong to the prose
// around a link, not to the link itself.
func trimLinkPunctuation(link string) string {
	return strings.TrimRight(link, ".,;:!?")
}
