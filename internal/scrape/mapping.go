package scrape

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"fundimport/internal"
	"fundimport/internal/util"
)

const (
	// SourceName tags every notes blob with the origin site.
	SourceName = "fundainbusiness"

	unknownSentinel = "Onbekend"
)

type matchKind int

const (
	matchExact matchKind = iota
	matchContains
)

type fieldRule struct {
	field    string
	kind     matchKind
	sections []string
	labels   []string
}

// Listing sites vary the wording of price-like labels, so those rules use
// contains-matching; the simpler fields stay exact to avoid false
// positives. The table is ordered data: new vocabularies are added by
// appending rules, not by touching the resolution loop.
var fieldRules = []fieldRule{
	{field: "availability", kind: matchExact, sections: []string{"overdracht", "algemeen", "overig"}, labels: []string{"aanvaarding", "beschikbaarheid"}},
	{field: "acquisition", kind: matchExact, sections: []string{"overdracht", "algemeen", "overig"}, labels: []string{"overname"}},
	{field: "surface_area", kind: matchExact, sections: []string{"oppervlakte", "oppervlakten", "oppervlakte_en_inhoud", "algemeen", "overig"}, labels: []string{"oppervlakte", "totale_oppervlakte", "vloeroppervlakte"}},
	{field: "parking_spots", kind: matchExact, sections: []string{"indeling", "overig", "parkeren"}, labels: []string{"parkeerplaatsen", "aantal_parkeerplaatsen"}},
	{field: "rent_price", kind: matchContains, sections: []string{"overdracht", "prijzen", "algemeen", "overig"}, labels: []string{"huurprijs", "huur"}},
	{field: "service_costs", kind: matchContains, sections: []string{"overdracht", "prijzen", "algemeen", "overig"}, labels: []string{"servicekosten"}},
	{field: "rent_price_parking", kind: matchContains, sections: []string{"overdracht", "prijzen", "parkeren", "algemeen", "overig"}, labels: []string{"huurprijs_parkeer", "prijs_parkeren"}},
	{field: "asking_price", kind: matchContains, sections: []string{"overdracht", "prijzen", "algemeen", "overig"}, labels: []string{"vraagprijs", "koopprijs", "koopsom"}},
}

func (r fieldRule) matches(f *internal.Feature) bool {
	inSection := false
	for _, s := range r.sections {
		if f.SectionSlug == s {
			inSection = true
			break
		}
	}
	if !inSection {
		return false
	}
	for _, probe := range r.labels {
		if f.LabelSlug == probe {
			return true
		}
		if r.kind == matchContains && strings.Contains(f.LabelSlug, probe) {
			return true
		}
	}
	return false
}

// MapOutcome is the Mapper's full result: the persistable payload, the
// decoded notes blob, the raw-key set consumed by the rules, and the keys
// no rule claimed (an observability signal, never an error).
type MapOutcome struct {
	Payload      internal.MappedPayload
	Notes        internal.ImportNotes
	UsedKeys     map[string]struct{}
	UnmappedKeys []string
}

// MapFields resolves a scrape into the canonical property fields using the
// rule table, first matching feature in document order per field.
func MapFields(res *internal.ScrapeResult, ictx internal.ImportContext) MapOutcome {
	resolved, used := resolveFields(res)
	flags := map[string]bool{}

	var availability, acquisition, parkingSpots, surfaceArea *string
	if f := resolved["availability"]; f != nil {
		availability = util.StringPtr(f.Value)
	}
	if f := resolved["acquisition"]; f != nil {
		acquisition = util.StringPtr(f.Value)
	}
	if f := resolved["parking_spots"]; f != nil {
		parkingSpots = util.StringPtr(f.Value)
	}
	if f := resolved["surface_area"]; f != nil {
		if n := util.ParseNlInt(f.Value); n != nil {
			s := strconv.Itoa(*n)
			surfaceArea = &s
		}
	}

	var rentPrice *float64
	if f := resolved["rent_price"]; f != nil {
		if strings.Contains(strings.ToLower(f.Value), "op aanvraag") {
			flags["rent_on_request"] = true
		} else {
			rentPrice = util.ParseMoney(f.Value)
		}
	}

	var rentPerM2 *float64
	if f := resolved["service_costs"]; f != nil {
		rentPerM2 = util.ParseServiceCosts(f.Value)
	}

	var rentParking *float64
	if f := resolved["rent_price_parking"]; f != nil {
		rentParking = util.ParseMoney(f.Value)
	}

	var askingPrice *float64
	if f := resolved["asking_price"]; f != nil {
		askingPrice = util.ParseMoney(f.Value)
	}

	name := ""
	if res.Title != nil {
		name = *res.Title
	} else if res.AddressLine != nil {
		name = *res.AddressLine
	}

	address := ""
	if res.AddressLine != nil {
		address = *res.AddressLine
	}

	city := unknownSentinel
	if res.City != nil && *res.City != "" {
		city = *res.City
	}

	fields := map[string]any{
		"name":               name,
		"address":            address,
		"city":               city,
		"surface_area":       surfaceArea,
		"parking_spots":      parkingSpots,
		"availability":       availability,
		"acquisition":        acquisition,
		"rent_price":         rentPrice,
		"rent_price_per_m2":  rentPerM2,
		"rent_price_parking": rentParking,
		"asking_price":       askingPrice,
	}

	notes := internal.ImportNotes{
		Source:         SourceName,
		ExternalID:     res.ExternalID,
		ScrapedAt:      res.ScrapedAt.Format(time.RFC3339),
		Broker:         res.Broker,
		Neighborhood:   res.Neighborhood,
		PricingDisplay: res.PricingDisplay,
		Features:       res.RawFeatures,
		Fields:         fields,
		Flags:          flags,
	}
	notesJSON, _ := json.Marshal(notes)

	payload := internal.MappedPayload{
		OrganizationID:   ictx.OrganizationID,
		UserID:           ictx.UserID,
		ContactUserID:    ictx.ContactUserID,
		SearchRequestID:  ictx.SearchRequestID,
		Name:             name,
		Address:          address,
		City:             city,
		SurfaceArea:      derefOrEmpty(surfaceArea),
		ParkingSpots:     parkingSpots,
		Availability:     derefOr(availability, unknownSentinel),
		Acquisition:      acquisition,
		RentPrice:        rentPrice,
		RentPricePerM2:   rentPerM2,
		RentPriceParking: rentParking,
		AskingPrice:      askingPrice,
		Images:           res.ImageURLs,
		Notes:            string(notesJSON),
		URL:              res.URL,
	}

	unmapped := make([]string, 0)
	for key := range res.RawFeatures {
		if _, ok := used[key]; !ok {
			unmapped = append(unmapped, key)
		}
	}
	sort.Strings(unmapped)

	return MapOutcome{Payload: payload, Notes: notes, UsedKeys: used, UnmappedKeys: unmapped}
}

// resolveFields runs the rule table and returns the winners plus the
// consumed raw keys as an explicit value, not a threaded mutable set.
func resolveFields(res *internal.ScrapeResult) (map[string]*internal.Feature, map[string]struct{}) {
	resolved := map[string]*internal.Feature{}
	used := map[string]struct{}{}

	for _, rule := range fieldRules {
		for i := range res.Features {
			f := &res.Features[i]
			if rule.matches(f) {
				resolved[rule.field] = f
				used[f.RawKey] = struct{}{}
				break
			}
		}
	}

	return resolved, used
}

func derefOr(v *string, fallback string) string {
	if v == nil || *v == "" {
		return fallback
	}
	return *v
}

func derefOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
