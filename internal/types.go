package internal

import "time"

// Feature is one (section, label, value) triple pulled from a listing
// page's specification tables. Document order is preserved because field
// resolution is first-match-wins.
type Feature struct {
	Section     string
	SectionSlug string
	Label       string
	LabelSlug   string
	Value       string
	RawKey      string
}

type Broker struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
}

// ScrapeResult is the full extraction output for one listing page.
type ScrapeResult struct {
	URL            string
	ExternalID     string
	ScrapedAt      time.Time
	Title          *string
	AddressLine    *string
	City           *string
	PricingDisplay *string
	Broker         Broker
	Neighborhood   *string
	Features       []Feature
	RawFeatures    map[string]string
	ImageURLs      []string
	BrochureURL    *string
	DrawingURLs    []string
}

// ImportContext carries the ownership ids supplied by the caller.
type ImportContext struct {
	OrganizationID  int
	UserID          int
	ContactUserID   *int
	SearchRequestID *int
}

// MappedPayload is the canonical field set ready for persistence.
// SurfaceArea stays a numeral string and ParkingSpots free text: both
// columns hold qualitative values downstream ("ruim voldoende").
type MappedPayload struct {
	OrganizationID   int
	UserID           int
	ContactUserID    *int
	SearchRequestID  *int
	Name             string
	Address          string
	City             string
	SurfaceArea      string
	ParkingSpots     *string
	Availability     string
	Acquisition      *string
	RentPrice        *float64
	RentPricePerM2   *float64
	RentPriceParking *float64
	AskingPrice      *float64
	Images           []string
	BrochurePath     *string
	Drawings         []string
	Notes            string
	URL              string
}

// ImportNotes is the diagnostic blob persisted as the property's notes
// field, so nothing scraped is silently discarded.
type ImportNotes struct {
	Source         string            `json:"source"`
	ExternalID     string            `json:"external_id"`
	ScrapedAt      string            `json:"scraped_at"`
	Broker         Broker            `json:"broker"`
	Neighborhood   *string           `json:"neighborhood"`
	PricingDisplay *string           `json:"pricing_display"`
	Features       map[string]string `json:"features"`
	Fields         map[string]any    `json:"fields"`
	Flags          map[string]bool   `json:"flags"`
}

type PropertyRow struct {
	ID               int64
	URL              string
	ExternalID       *string
	OrganizationID   int
	UserID           int
	ContactUserID    *int
	SearchRequestID  *int
	Name             string
	Address          string
	City             string
	SurfaceArea      string
	ParkingSpots     *string
	Availability     string
	Acquisition      *string
	RentPrice        *float64
	RentPricePerM2   *float64
	RentPriceParking *float64
	AskingPrice      *float64
	Images           []string
	BrochurePath     *string
	Drawings         []string
	Notes            string
	CreatedAt        string
	UpdatedAt        string
}

type ImportJobRow struct {
	ID             int64
	URL            string
	Provider       string
	MessageID      string
	OrganizationID int
	UserID         int
	Status         string
	Error          *string
	CreatedAt      string
}

// ScrapeMapping is an admin-configured CSS-selector override for one
// property field on one source domain.
type ScrapeMapping struct {
	Domain   string
	Field    string
	Selector string
}

type FetchedMailMessage struct {
	Provider   string
	MessageID  string
	ReceivedAt string
	Raw        []byte
}
