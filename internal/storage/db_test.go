package storage

import (
	"path/filepath"
	"testing"

	"fundimport/internal"
	"fundimport/internal/util"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "fundimport.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func samplePayload(url string) internal.MappedPayload {
	return internal.MappedPayload{
		OrganizationID: 7,
		UserID:         3,
		Name:           "Herengracht 206-216, Amsterdam",
		Address:        "Herengracht 206-216 1016 BS",
		City:           "Amsterdam",
		SurfaceArea:    "6035",
		Availability:   "In overleg",
		RentPrice:      util.FloatPtr(2500),
		RentPricePerM2: util.FloatPtr(60),
		Images:         []string{"https://cdn.test/a.jpg", "https://cdn.test/b.jpg"},
		Notes:          `{"source":"fundainbusiness"}`,
		URL:            url,
	}
}

func TestUpsertPropertyIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	url := "https://www.fundainbusiness.nl/huur/amsterdam/object-89195754/"

	first, err := db.UpsertProperty(samplePayload(url), "89195754")
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	updated := samplePayload(url)
	updated.RentPrice = util.FloatPtr(2750)
	second, err := db.UpsertProperty(updated, "89195754")
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	if first.ID != second.ID {
		t.Fatalf("ids differ: %d vs %d", first.ID, second.ID)
	}
	if second.RentPrice == nil || *second.RentPrice != 2750 {
		t.Fatalf("rent price not updated: %v", second.RentPrice)
	}

	all, err := db.ListProperties()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("rows: got %d want 1", len(all))
	}
	if len(all[0].Images) != 2 || all[0].Images[0] != "https://cdn.test/a.jpg" {
		t.Fatalf("images round trip: got %v", all[0].Images)
	}
	if all[0].ExternalID == nil || *all[0].ExternalID != "89195754" {
		t.Fatalf("external id: got %v", all[0].ExternalID)
	}
}

func TestGetPropertyByURLMissing(t *testing.T) {
	db := openTestDB(t)

	row, err := db.GetPropertyByURL("https://www.fundainbusiness.nl/huur/amsterdam/object-1/")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if row != nil {
		t.Fatalf("expected nil row, got %+v", row)
	}
	if _, err := db.MustPropertyByURL("https://www.fundainbusiness.nl/huur/amsterdam/object-1/"); err == nil {
		t.Fatal("expected error for missing property")
	}
}

func TestQueueImportJobDedupesByURL(t *testing.T) {
	db := openTestDB(t)
	url := "https://www.fundainbusiness.nl/huur/amsterdam/object-42/"

	if err := db.QueueImportJob(url, "imap", "msg-1", 7, 3); err != nil {
		t.Fatalf("queue: %v", err)
	}
	if err := db.QueueImportJob(url, "gmail", "msg-2", 7, 3); err != nil {
		t.Fatalf("requeue: %v", err)
	}

	jobs, err := db.ListJobsByStatus("queued", 10)
	if err != nil {
		t.Fatalf("list jobs: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("jobs: got %d want 1", len(jobs))
	}
	if jobs[0].Provider != "imap" || jobs[0].MessageID != "msg-1" {
		t.Fatalf("first writer must win: %+v", jobs[0])
	}

	errText := "request failed with status 404"
	if err := db.UpdateJobStatus(jobs[0].ID, "failed", &errText); err != nil {
		t.Fatalf("update status: %v", err)
	}
	queued, err := db.ListJobsByStatus("queued", 10)
	if err != nil {
		t.Fatalf("list queued: %v", err)
	}
	if len(queued) != 0 {
		t.Fatalf("queued after failure: got %d want 0", len(queued))
	}
	failed, err := db.ListJobsByStatus("failed", 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(failed) != 1 || failed[0].Error == nil || *failed[0].Error != errText {
		t.Fatalf("failed job: got %+v", failed)
	}
}

func TestScrapeMappings(t *testing.T) {
	db := openTestDB(t)

	if err := db.SetScrapeMapping("fundainbusiness.nl", "title", "h1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := db.SetScrapeMapping("fundainbusiness.nl", "title", "h1.object-header__title"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if err := db.SetScrapeMapping("fundainbusiness.nl", "price", ".object-header__price"); err != nil {
		t.Fatalf("set second: %v", err)
	}

	mappings, err := db.ListScrapeMappings("fundainbusiness.nl")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(mappings) != 2 {
		t.Fatalf("mappings: got %d want 2", len(mappings))
	}
	if mappings[1].Field != "title" || mappings[1].Selector != "h1.object-header__title" {
		t.Fatalf("overwrite lost: %+v", mappings[1])
	}
}

func TestMetadata(t *testing.T) {
	db := openTestDB(t)

	missing, err := db.GetMetadata("lastRun")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil, got %q", *missing)
	}

	if err := db.SetMetadata("lastRun", "2026-08-29T12:00:00Z"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := db.SetMetadata("lastRun", "2026-08-29T13:00:00Z"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err := db.GetMetadata("lastRun")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || *got != "2026-08-29T13:00:00Z" {
		t.Fatalf("value: got %v", got)
	}
}
