package export

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"assetdesk-backend/internal/asset"
	"assetdesk-backend/internal/parse"
)

const sheetName = "Assets"

// ContentType is the MIME type of the workbook written by Assets.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var assetHeaders = []string{
	"#", "Name", "Tag ID", "Company", "Property", "Project", "Category", "Purchase Date",
	"Purchase Price", "Warranty Expiry", "Location", "Status", "Documents", "Service Dues",
}

// Assets writes the records as a single-sheet xlsx workbook.
func Assets(w io.Writer, records []asset.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("error renaming sheet: %w", err)
	}

	header := make([]interface{}, len(assetHeaders))
	for i, h := range assetHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("error setting headers: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("error creating header style: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(assetHeaders), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", last, bold); err != nil {
		return fmt.Errorf("error styling headers: %w", err)
	}

	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := assetRow(i+1, r)
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("error writing row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return fmt.Errorf("error freezing header row: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}

func assetRow(n int, r asset.Record) []interface{} {
	status := "Active"
	if !r.Active() {
		status = "Inactive"
	}
	return []interface{}{
		n,
		r.Name,
		r.TagID.String(),
		nameOr(r.CompanyName, r.Company),
		nameOr(r.PropertyName, r.Property),
		nameOr(r.ProjectName, r.Project),
		r.Category,
		parse.DatePrefix(r.PurchaseDate.String()),
		price(r.PurchasePrice),
		parse.DatePrefix(r.WarrantyExpiry.String()),
		r.Location,
		status,
		len(r.Documents),
		len(r.ServiceDues),
	}
}

func nameOr(name string, id asset.Scalar) string {
	if name != "" {
		return name
	}
	return id.String()
}

// price returns the amount as a number so spreadsheet formulas work, or the raw text when it
// does not parse.
func price(raw asset.Scalar) interface{} {
	if raw == "" {
		return ""
	}
	d, err := decimal.NewFromString(raw.String())
	if err != nil {
		return raw.String()
	}
	return d.InexactFloat64()
}
