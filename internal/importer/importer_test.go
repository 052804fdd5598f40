package importer

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fundimport/internal"
	"fundimport/internal/config"
	"fundimport/internal/fetch"
	"fundimport/internal/storage"
)

const listingURL = "https://www.fundainbusiness.nl/huur/amsterdam/object-89195754/"

type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func response(status int, body []byte) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(string(body))),
		Header:     http.Header{},
	}
}

// newTestService wires a service against a temp database and blob store,
// with a transport that serves the fixture page and fake pdf bytes for
// every asset URL.
func newTestService(t *testing.T, requests *[]string) *Service {
	t.Helper()

	page, err := os.ReadFile("testdata/listing_89195754.html")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}

	dir := t.TempDir()
	cfg := config.Config{
		AllowedDomain: "fundainbusiness.nl",
		UserAgent:     "fundimport-test",
		TimeoutMs:     1000,
		Retries:       1,
		RateLimitRPS:  1000,
	}

	db, err := storage.Open(filepath.Join(dir, "app.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	client := fetch.NewClient(cfg)
	client.SetHTTPClient(&http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		url := req.URL.String()
		*requests = append(*requests, url)
		switch {
		case url == listingURL:
			return response(200, page), nil
		case strings.HasSuffix(req.URL.Path, ".pdf"):
			return response(200, []byte("%PDF-1.4 fake")), nil
		default:
			return response(404, []byte("not found")), nil
		}
	})})

	return NewService(db, storage.NewFileStore(filepath.Join(dir, "storage")), client, cfg)
}

func TestImportListing(t *testing.T) {
	var requests []string
	svc := newTestService(t, &requests)
	ictx := internal.ImportContext{OrganizationID: 7, UserID: 3}

	result, err := svc.Import(context.Background(), listingURL, ictx, Options{})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if result.Property == nil {
		t.Fatal("expected persisted property")
	}

	row := result.Property
	if row.Name != "Herengracht 206-216, Amsterdam" {
		t.Fatalf("name: got %q", row.Name)
	}
	if row.SurfaceArea != "6035" {
		t.Fatalf("surface area: got %q", row.SurfaceArea)
	}
	if row.RentPrice == nil || *row.RentPrice != 2500 {
		t.Fatalf("rent price: got %v", row.RentPrice)
	}
	if row.RentPricePerM2 == nil || *row.RentPricePerM2 != 60 {
		t.Fatalf("rent per m2: got %v", row.RentPricePerM2)
	}
	if row.ExternalID == nil || *row.ExternalID != "89195754" {
		t.Fatalf("external id: got %v", row.ExternalID)
	}
	if !strings.Contains(row.Notes, `"source":"fundainbusiness"`) {
		t.Fatalf("notes: got %q", row.Notes)
	}
	if len(row.Images) != 3 {
		t.Fatalf("images: got %v", row.Images)
	}

	if row.BrochurePath == nil || *row.BrochurePath != "properties/brochures/89195754.pdf" {
		t.Fatalf("brochure path: got %v", row.BrochurePath)
	}
	wantDrawings := []string{
		"properties/drawings/89195754_1.pdf",
		"properties/drawings/89195754_2.pdf",
	}
	if len(row.Drawings) != 2 || row.Drawings[0] != wantDrawings[0] || row.Drawings[1] != wantDrawings[1] {
		t.Fatalf("drawings: got %v", row.Drawings)
	}
}

func TestImportIsIdempotent(t *testing.T) {
	var requests []string
	svc := newTestService(t, &requests)
	ictx := internal.ImportContext{OrganizationID: 7, UserID: 3}

	first, err := svc.Import(context.Background(), listingURL, ictx, Options{})
	if err != nil {
		t.Fatalf("first import: %v", err)
	}
	second, err := svc.Import(context.Background(), listingURL, ictx, Options{})
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if first.Property.ID != second.Property.ID {
		t.Fatalf("ids differ: %d vs %d", first.Property.ID, second.Property.ID)
	}
}

func TestImportDryRun(t *testing.T) {
	var requests []string
	svc := newTestService(t, &requests)

	result, err := svc.Import(context.Background(), listingURL, internal.ImportContext{OrganizationID: 7, UserID: 3}, Options{DryRun: true})
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if result.Property != nil {
		t.Fatal("dry run must not persist")
	}
	if result.Payload.SurfaceArea != "6035" {
		t.Fatalf("payload surface area: got %q", result.Payload.SurfaceArea)
	}
	if len(requests) != 1 {
		t.Fatalf("dry run must only fetch the page, got %v", requests)
	}
}

func TestImportRejectsForeignDomain(t *testing.T) {
	var requests []string
	svc := newTestService(t, &requests)

	_, err := svc.Import(context.Background(), "https://www.funda.nl/huur/amsterdam/object-1/", internal.ImportContext{}, Options{})
	if err == nil || !strings.Contains(err.Error(), "not on the fundainbusiness.nl domain") {
		t.Fatalf("error: got %v", err)
	}
	if len(requests) != 0 {
		t.Fatalf("no request expected, got %v", requests)
	}
}

func TestScrapeFromHTMLWithoutExternalID(t *testing.T) {
	var requests []string
	svc := newTestService(t, &requests)

	res, err := svc.ScrapeFromHTML("<html><body><h1>Damrak 1, Amsterdam</h1></body></html>", "https://www.fundainbusiness.nl/huur/amsterdam/")
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	out := svc.MapScrape(res, internal.ImportContext{OrganizationID: 7, UserID: 3})
	if out.Payload.Name != "Damrak 1, Amsterdam" {
		t.Fatalf("name: got %q", out.Payload.Name)
	}
}
