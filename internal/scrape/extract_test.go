package scrape

import (
	"os"
	"reflect"
	"testing"
)

const listingURL = "https://www.fundainbusiness.nl/huur/amsterdam/object-89195754/"

func loadFixture(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile("testdata/listing_89195754.html")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return string(data)
}

func TestExtractListing(t *testing.T) {
	res, err := Extract(loadFixture(t), listingURL, true)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	if res.ExternalID != "89195754" {
		t.Fatalf("external id: got %q", res.ExternalID)
	}
	if res.Title == nil || *res.Title != "Herengracht 206-216, Amsterdam" {
		t.Fatalf("title: got %v", res.Title)
	}
	if res.AddressLine == nil || *res.AddressLine != "Herengracht 206-216 1016 BS" {
		t.Fatalf("address line: got %v", res.AddressLine)
	}
	if res.City == nil || *res.City != "Amsterdam" {
		t.Fatalf("city: got %v", res.City)
	}
	if res.PricingDisplay == nil || *res.PricingDisplay != "€ 2.500,- per jaar" {
		t.Fatalf("pricing display: got %v", res.PricingDisplay)
	}
	if res.Neighborhood == nil || *res.Neighborhood != "Grachtengordel" {
		t.Fatalf("neighborhood: got %v", res.Neighborhood)
	}
	if res.Broker.Name == nil || *res.Broker.Name != "Grachten Makelaars" {
		t.Fatalf("broker name: got %v", res.Broker.Name)
	}
	if res.Broker.Phone == nil || *res.Broker.Phone != "310205550123" {
		t.Fatalf("broker phone: got %v", res.Broker.Phone)
	}
}

func TestExtractFeatureKeys(t *testing.T) {
	res, err := Extract(loadFixture(t), listingURL, true)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	wantKeys := []string{
		"features.adres.adres",
		"features.adres.plaats",
		"features.overdracht.huurprijs",
		"features.overdracht.servicekosten",
		"features.overdracht.aanvaarding",
		"features.oppervlakte.oppervlakte",
		"features.oppervlakte.oppervlakte_2",
		"features.omgeving.buurt",
	}
	var gotKeys []string
	for _, f := range res.Features {
		gotKeys = append(gotKeys, f.RawKey)
	}
	if !reflect.DeepEqual(gotKeys, wantKeys) {
		t.Fatalf("raw keys:\ngot  %v\nwant %v", gotKeys, wantKeys)
	}

	if got := res.RawFeatures["features.oppervlakte.oppervlakte"]; got != "6.035 m2" {
		t.Fatalf("first oppervlakte: got %q", got)
	}
	if got := res.RawFeatures["features.oppervlakte.oppervlakte_2"]; got != "450 m2 kantoorruimte" {
		t.Fatalf("deduped oppervlakte: got %q", got)
	}
}

func TestExtractAssets(t *testing.T) {
	res, err := Extract(loadFixture(t), listingURL, true)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	wantImages := []string{
		"https://www.fundainbusiness.nl/media/foto/hoofdfoto.jpg",
		"https://www.fundainbusiness.nl/huur/amsterdam/media/foto/tweede.jpg",
		"https://cdn.fundainbusiness.nl/media/foto/1200.jpg",
	}
	if !reflect.DeepEqual(res.ImageURLs, wantImages) {
		t.Fatalf("images:\ngot  %v\nwant %v", res.ImageURLs, wantImages)
	}

	if res.BrochureURL == nil || *res.BrochureURL != "https://www.fundainbusiness.nl/media/brochure/herengracht.pdf" {
		t.Fatalf("brochure: got %v", res.BrochureURL)
	}

	wantDrawings := []string{
		"https://www.fundainbusiness.nl/huur/amsterdam/media/plattegrond-bg.pdf",
		"https://www.fundainbusiness.nl/media/plattegrond-1e.pdf",
	}
	if !reflect.DeepEqual(res.DrawingURLs, wantDrawings) {
		t.Fatalf("drawings:\ngot  %v\nwant %v", res.DrawingURLs, wantDrawings)
	}
}

func TestExtractRequiresExternalID(t *testing.T) {
	if _, err := Extract("<html></html>", "https://www.fundainbusiness.nl/huur/amsterdam/", true); err == nil {
		t.Fatal("expected error for url without object id")
	}
	res, err := Extract("<html></html>", "https://www.fundainbusiness.nl/huur/amsterdam/", false)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if res.ExternalID != "" {
		t.Fatalf("external id: got %q", res.ExternalID)
	}
}

func TestExtractTitleFallsBackToOgTitle(t *testing.T) {
	page := `<html><head><meta property="og:title" content="Keizersgracht 1, Amsterdam"></head><body><p>tekst</p></body></html>`
	res, err := Extract(page, listingURL, true)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if res.Title == nil || *res.Title != "Keizersgracht 1, Amsterdam" {
		t.Fatalf("title: got %v", res.Title)
	}
	if res.City == nil || *res.City != "Amsterdam" {
		t.Fatalf("city from title: got %v", res.City)
	}
}

func TestExtractPricingOnRequest(t *testing.T) {
	page := `<html><body><h1>Damrak 1, Amsterdam</h1><p>Huurprijs op aanvraag</p></body></html>`
	res, err := Extract(page, listingURL, true)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if res.PricingDisplay == nil || *res.PricingDisplay != "Huurprijs op aanvraag" {
		t.Fatalf("pricing display: got %v", res.PricingDisplay)
	}
}
