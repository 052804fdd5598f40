package importer

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/url"
	"path"
	"strings"

	"github.com/ledongthuc/pdf"

	"fundimport/internal"
)

const (
	brochureDir = "properties/brochures"
	drawingDir  = "properties/drawings"
)

// downloadAssets stores the brochure and every drawing under filenames
// derived from the external id. A single failed download is logged and the
// asset skipped; it never fails the import. Images are kept as remote URLs.
func (s *Service) downloadAssets(ctx context.Context, res *internal.ScrapeResult, payload *internal.MappedPayload) {
	if res.BrochureURL != nil {
		name := res.ExternalID + "." + extFromURL(*res.BrochureURL)
		if stored, data := s.downloadOne(ctx, *res.BrochureURL, path.Join(brochureDir, name)); stored != "" {
			payload.BrochurePath = &stored
			if pages, err := pdfPageCount(data); err != nil {
				log.Printf("brochure stored path=%s but not readable as pdf: %v", stored, err)
			} else {
				log.Printf("brochure stored path=%s pages=%d", stored, pages)
			}
		}
	}

	for i, drawingURL := range res.DrawingURLs {
		name := fmt.Sprintf("%s_%d.%s", res.ExternalID, i+1, extFromURL(drawingURL))
		if stored, _ := s.downloadOne(ctx, drawingURL, path.Join(drawingDir, name)); stored != "" {
			payload.Drawings = append(payload.Drawings, stored)
		}
	}
}

func (s *Service) downloadOne(ctx context.Context, assetURL, relPath string) (string, []byte) {
	data, err := s.client.Download(ctx, assetURL)
	if err != nil {
		log.Printf("asset download failed url=%s: %v", assetURL, err)
		return "", nil
	}
	stored, err := s.files.Put(relPath, data)
	if err != nil {
		log.Printf("asset store failed path=%s: %v", relPath, err)
		return "", nil
	}
	return stored, data
}

func extFromURL(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(p), "."))
	if ext == "" {
		return "pdf"
	}
	return ext
}

func pdfPageCount(data []byte) (int, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, err
	}
	return r.NumPage(), nil
}
