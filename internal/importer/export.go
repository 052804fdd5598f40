package importer

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"fundimport/internal"
)

// ExportPropertiesToXLSX writes the stored properties to a spreadsheet for
// brokerage back-office use, one row per property.
func ExportPropertiesToXLSX(rows []internal.PropertyRow, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headers := []string{
		"url", "external_id", "name", "address", "city",
		"surface_area", "parking_spots", "availability", "acquisition",
		"rent_price", "rent_price_per_m2", "rent_price_parking", "asking_price",
		"images", "brochure_path", "drawings", "updated_at",
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, row := range rows {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, row.URL)
		set(2, derefString(row.ExternalID))
		set(3, row.Name)
		set(4, row.Address)
		set(5, row.City)
		set(6, row.SurfaceArea)
		set(7, derefString(row.ParkingSpots))
		set(8, row.Availability)
		set(9, derefString(row.Acquisition))
		set(10, derefFloat(row.RentPrice))
		set(11, derefFloat(row.RentPricePerM2))
		set(12, derefFloat(row.RentPriceParking))
		set(13, derefFloat(row.AskingPrice))
		set(14, strings.Join(row.Images, "\n"))
		set(15, derefString(row.BrochurePath))
		set(16, strings.Join(row.Drawings, "\n"))
		set(17, row.UpdatedAt)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func derefFloat(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}
