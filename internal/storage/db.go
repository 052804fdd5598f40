package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"fundimport/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS properties (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  url TEXT NOT NULL UNIQUE,
  externalId TEXT,
  organizationId INTEGER NOT NULL,
  userId INTEGER NOT NULL,
  contactUserId INTEGER,
  searchRequestId INTEGER,
  name TEXT NOT NULL DEFAULT '',
  address TEXT NOT NULL DEFAULT '',
  city TEXT NOT NULL DEFAULT '',
  surfaceArea TEXT NOT NULL DEFAULT '',
  parkingSpots TEXT,
  availability TEXT NOT NULL DEFAULT '',
  acquisition TEXT,
  rentPrice REAL,
  rentPricePerM2 REAL,
  rentPriceParking REAL,
  askingPrice REAL,
  imagesJson TEXT NOT NULL DEFAULT '[]',
  brochurePath TEXT,
  drawingsJson TEXT NOT NULL DEFAULT '[]',
  notes TEXT NOT NULL DEFAULT '',
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_properties_externalId ON properties(externalId);
CREATE INDEX IF NOT EXISTS idx_properties_organizationId ON properties(organizationId);

CREATE TABLE IF NOT EXISTS import_jobs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  url TEXT NOT NULL UNIQUE,
  provider TEXT NOT NULL,
  messageId TEXT NOT NULL,
  organizationId INTEGER NOT NULL,
  userId INTEGER NOT NULL,
  status TEXT NOT NULL DEFAULT 'queued',
  error TEXT,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  url TEXT NOT NULL,
  timingsJson TEXT NOT NULL,
  countsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS scrape_mappings (
  domain TEXT NOT NULL,
  field TEXT NOT NULL,
  selector TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY (domain, field)
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

// UpsertProperty persists a mapped payload keyed by exact url equality:
// re-importing the same listing updates the existing row in place.
func (d *DB) UpsertProperty(payload internal.MappedPayload, externalID string) (internal.PropertyRow, error) {
	imagesJSON, _ := json.Marshal(payload.Images)
	drawingsJSON, _ := json.Marshal(payload.Drawings)

	var extID *string
	if externalID != "" {
		extID = &externalID
	}

	_, err := d.conn.Exec(`
INSERT INTO properties (
  url, externalId, organizationId, userId, contactUserId, searchRequestId,
  name, address, city, surfaceArea, parkingSpots, availability, acquisition,
  rentPrice, rentPricePerM2, rentPriceParking, askingPrice,
  imagesJson, brochurePath, drawingsJson, notes
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(url) DO UPDATE SET
  externalId=excluded.externalId,
  organizationId=excluded.organizationId,
  userId=excluded.userId,
  contactUserId=excluded.contactUserId,
  searchRequestId=excluded.searchRequestId,
  name=excluded.name,
  address=excluded.address,
  city=excluded.city,
  surfaceArea=excluded.surfaceArea,
  parkingSpots=excluded.parkingSpots,
  availability=excluded.availability,
  acquisition=excluded.acquisition,
  rentPrice=excluded.rentPrice,
  rentPricePerM2=excluded.rentPricePerM2,
  rentPriceParking=excluded.rentPriceParking,
  askingPrice=excluded.askingPrice,
  imagesJson=excluded.imagesJson,
  brochurePath=excluded.brochurePath,
  drawingsJson=excluded.drawingsJson,
  notes=excluded.notes,
  updatedAt=CURRENT_TIMESTAMP
`,
		payload.URL, extID, payload.OrganizationID, payload.UserID, payload.ContactUserID, payload.SearchRequestID,
		payload.Name, payload.Address, payload.City, payload.SurfaceArea, payload.ParkingSpots, payload.Availability, payload.Acquisition,
		payload.RentPrice, payload.RentPricePerM2, payload.RentPriceParking, payload.AskingPrice,
		string(imagesJSON), payload.BrochurePath, string(drawingsJSON), payload.Notes,
	)
	if err != nil {
		return internal.PropertyRow{}, err
	}

	row, err := d.GetPropertyByURL(payload.URL)
	if err != nil {
		return internal.PropertyRow{}, err
	}
	if row == nil {
		return internal.PropertyRow{}, errors.New("failed to upsert property")
	}
	return *row, nil
}

const propertyColumns = `
  id, url, externalId, organizationId, userId, contactUserId, searchRequestId,
  name, address, city, surfaceArea, parkingSpots, availability, acquisition,
  rentPrice, rentPricePerM2, rentPriceParking, askingPrice,
  imagesJson, brochurePath, drawingsJson, notes, createdAt, updatedAt`

func scanProperty(scan func(dest ...any) error) (internal.PropertyRow, error) {
	var row internal.PropertyRow
	var imagesJSON, drawingsJSON string
	err := scan(
		&row.ID, &row.URL, &row.ExternalID, &row.OrganizationID, &row.UserID, &row.ContactUserID, &row.SearchRequestID,
		&row.Name, &row.Address, &row.City, &row.SurfaceArea, &row.ParkingSpots, &row.Availability, &row.Acquisition,
		&row.RentPrice, &row.RentPricePerM2, &row.RentPriceParking, &row.AskingPrice,
		&imagesJSON, &row.BrochurePath, &drawingsJSON, &row.Notes, &row.CreatedAt, &row.UpdatedAt,
	)
	if err != nil {
		return internal.PropertyRow{}, err
	}
	_ = json.Unmarshal([]byte(imagesJSON), &row.Images)
	_ = json.Unmarshal([]byte(drawingsJSON), &row.Drawings)
	return row, nil
}

func (d *DB) GetPropertyByURL(url string) (*internal.PropertyRow, error) {
	row, err := scanProperty(d.conn.QueryRow(`SELECT`+propertyColumns+` FROM properties WHERE url = ?`, url).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) ListProperties() ([]internal.PropertyRow, error) {
	rows, err := d.conn.Query(`SELECT` + propertyColumns + ` FROM properties ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.PropertyRow
	for rows.Next() {
		row, err := scanProperty(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// QueueImportJob records a listing link for later import. Links already
// queued (same url) are left untouched.
func (d *DB) QueueImportJob(url, provider, messageID string, organizationID, userID int) error {
	_, err := d.conn.Exec(`
INSERT INTO import_jobs (url, provider, messageId, organizationId, userId, status)
VALUES (?, ?, ?, ?, ?, 'queued')
ON CONFLICT(url) DO NOTHING
`, url, provider, messageID, organizationID, userID)
	return err
}

func (d *DB) ListJobsByStatus(status string, limit int) ([]internal.ImportJobRow, error) {
	rows, err := d.conn.Query(`
SELECT id, url, provider, messageId, organizationId, userId, status, error, createdAt
FROM import_jobs WHERE status = ? ORDER BY id ASC LIMIT ?
`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.ImportJobRow
	for rows.Next() {
		var row internal.ImportJobRow
		if err := rows.Scan(&row.ID, &row.URL, &row.Provider, &row.MessageID, &row.OrganizationID, &row.UserID, &row.Status, &row.Error, &row.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) UpdateJobStatus(jobID int64, status string, jobErr *string) error {
	_, err := d.conn.Exec(`UPDATE import_jobs SET status = ?, error = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, status, jobErr, jobID)
	return err
}

func (d *DB) InsertRun(traceID, url string, timings map[string]float64, counts map[string]int) error {
	timingsJSON, _ := json.Marshal(timings)
	countsJSON, _ := json.Marshal(counts)
	_, err := d.conn.Exec(`INSERT INTO runs (traceId, url, timingsJson, countsJson) VALUES (?, ?, ?, ?)`, traceID, url, string(timingsJSON), string(countsJSON))
	return err
}

func (d *DB) SetScrapeMapping(domain, field, selector string) error {
	_, err := d.conn.Exec(`
INSERT INTO scrape_mappings (domain, field, selector) VALUES (?, ?, ?)
ON CONFLICT(domain, field) DO UPDATE SET selector = excluded.selector, updatedAt = CURRENT_TIMESTAMP
`, domain, field, selector)
	return err
}

func (d *DB) ListScrapeMappings(domain string) ([]internal.ScrapeMapping, error) {
	rows, err := d.conn.Query(`SELECT domain, field, selector FROM scrape_mappings WHERE domain = ? ORDER BY field ASC`, domain)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.ScrapeMapping
	for rows.Next() {
		var m internal.ScrapeMapping
		if err := rows.Scan(&m.Domain, &m.Field, &m.Selector); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func (d *DB) MustPropertyByURL(url string) (internal.PropertyRow, error) {
	row, err := d.GetPropertyByURL(url)
	if err != nil {
		return internal.PropertyRow{}, err
	}
	if row == nil {
		return internal.PropertyRow{}, fmt.Errorf("property not found: url=%s", url)
	}
	return *row, nil
}
