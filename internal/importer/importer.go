package importer

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"time"

	"fundimport/internal"
	"fundimport/internal/config"
	"fundimport/internal/fetch"
	"fundimport/internal/scrape"
	"fundimport/internal/storage"
)

// Service runs the whole import: domain check, fetch, extract, map, asset
// download, upsert. One invocation is strictly sequential; concurrent
// imports of different URLs are safe because the service holds no mutable
// state, and same-URL races land on the database's url uniqueness.
type Service struct {
	db     *storage.DB
	files  *storage.FileStore
	client *fetch.Client
	cfg    config.Config
}

func NewService(db *storage.DB, files *storage.FileStore, client *fetch.Client, cfg config.Config) *Service {
	return &Service{db: db, files: files, client: client, cfg: cfg}
}

type Options struct {
	DryRun   bool
	Throttle bool
}

type Result struct {
	Payload  internal.MappedPayload
	Property *internal.PropertyRow
	Scraped  *internal.ScrapeResult
}

// Import scrapes one listing URL and upserts it keyed by url. Dry runs
// compute the payload without touching the network for assets or the
// database.
func (s *Service) Import(ctx context.Context, rawURL string, ictx internal.ImportContext, opts Options) (*Result, error) {
	if !scrape.IsAllowedDomain(rawURL, s.cfg.AllowedDomain) {
		return nil, fmt.Errorf("url is not on the %s domain: %s", s.cfg.AllowedDomain, rawURL)
	}

	start := time.Now()
	if opts.Throttle && s.cfg.ThrottleMs > 0 {
		time.Sleep(time.Duration(s.cfg.ThrottleMs) * time.Millisecond)
	}

	body, err := s.client.GetPage(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	res, err := scrape.Extract(string(body), rawURL, true)
	if err != nil {
		return nil, err
	}

	outcome := scrape.MapFields(res, ictx)
	unmapped := "-"
	if len(outcome.UnmappedKeys) > 0 {
		unmapped = strings.Join(outcome.UnmappedKeys, ",")
	}
	log.Printf("import url=%s external_id=%s features=%d unmapped_keys=%s", rawURL, res.ExternalID, len(res.Features), unmapped)

	payload := outcome.Payload
	result := &Result{Scraped: res}
	if !opts.DryRun {
		s.downloadAssets(ctx, res, &payload)

		row, err := s.db.UpsertProperty(payload, res.ExternalID)
		if err != nil {
			return nil, err
		}
		result.Property = &row

		_ = s.db.InsertRun(traceID(), rawURL,
			map[string]float64{"totalMs": float64(time.Since(start).Milliseconds())},
			map[string]int{
				"features": len(res.Features),
				"unmapped": len(outcome.UnmappedKeys),
				"images":   len(res.ImageURLs),
				"drawings": len(payload.Drawings),
			})
	}

	result.Payload = payload
	return result, nil
}

// ScrapeFromHTML feeds a fixture or cached document straight into the
// extractor: no network fetch, and the external id stays optional so
// archived pages without a canonical URL still parse.
func (s *Service) ScrapeFromHTML(htmlText, sourceURL string) (*internal.ScrapeResult, error) {
	return scrape.Extract(htmlText, sourceURL, false)
}

// MapScrape exposes the mapping step for reprocessing archived pages.
func (s *Service) MapScrape(res *internal.ScrapeResult, ictx internal.ImportContext) scrape.MapOutcome {
	return scrape.MapFields(res, ictx)
}

func traceID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("run-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}
