package scrape

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var reExternalID = regexp.MustCompile(`(?:^|/)object-(\d+)`)

// ExternalIDFromURL pulls the stable listing id out of a canonical listing
// URL, matching a path segment of the form "object-<digits>".
func ExternalIDFromURL(rawURL string) string {
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		path = u.Path
	}
	m := reExternalID.FindStringSubmatch(path)
	if m == nil {
		return ""
	}
	return m[1]
}

// IsAllowedDomain reports whether the URL's host is the given domain or one
// of its subdomains.
func IsAllowedDomain(rawURL, domain string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	domain = strings.ToLower(strings.TrimSpace(domain))
	if host == "" || domain == "" {
		return false
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// ResolveURL turns a possibly relative href into an absolute URL against
// the page's base: absolute URLs pass through, protocol-relative ones take
// the base scheme, root-relative ones take scheme+host, anything else
// resolves against the base path's directory.
func ResolveURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	baseURL, err := url.Parse(base)
	if err != nil || baseURL.Scheme == "" {
		if strings.Contains(ref, "://") {
			return ref
		}
		return ""
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return baseURL.ResolveReference(refURL).String()
}

// WidestFromSrcset picks the entry with the highest "<N>w" width descriptor
// from a srcset attribute; ties keep the later entry, and a srcset without
// width descriptors yields its first entry.
func WidestFromSrcset(srcset string) string {
	first := ""
	best := ""
	bestWidth := -1
	for _, entry := range strings.Split(srcset, ",") {
		fields := strings.Fields(strings.TrimSpace(entry))
		if len(fields) == 0 {
			continue
		}
		candidate := fields[0]
		if first == "" {
			first = candidate
		}
		if len(fields) < 2 || !strings.HasSuffix(fields[1], "w") {
			continue
		}
		width, err := strconv.Atoi(strings.TrimSuffix(fields[1], "w"))
		if err != nil {
			continue
		}
		if width >= bestWidth {
			best = candidate
			bestWidth = width
		}
	}
	if best == "" {
		return first
	}
	return best
}
