package businessflow

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/amirphl/orochi-outreach/app/dto"
	"github.com/amirphl/orochi-outreach/models"
)

var leadSheetHeader = []string{
	"first_name", "last_name", "contact_name", "email", "phone", "company_name", "title",
	"linkedin_url", "company_website", "industry", "company_size", "location", "notes",
	"source", "status", "created_at",
}

// header aliases accepted on import, after normalization
var leadColumnAliases = map[string]string{
	"first_name":      "first_name",
	"firstname":       "first_name",
	"first":           "first_name",
	"last_name":       "last_name",
	"lastname":        "last_name",
	"last":            "last_name",
	"surname":         "last_name",
	"contact_name":    "contact_name",
	"name":            "contact_name",
	"full_name":       "contact_name",
	"email":           "email",
	"email_address":   "email",
	"e_mail":          "email",
	"phone":           "phone",
	"phone_number":    "phone",
	"company_name":    "company_name",
	"company":         "company_name",
	"organization":    "company_name",
	"title":           "title",
	"job_title":       "title",
	"position":        "title",
	"linkedin_url":    "linkedin_url",
	"linkedin":        "linkedin_url",
	"company_website": "company_website",
	"website":         "company_website",
	"industry":        "industry",
	"company_size":    "company_size",
	"employees":       "company_size",
	"location":        "location",
	"city":            "location",
	"notes":           "notes",
	"status":          "status",
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.NewReplacer(" ", "_", "-", "_", ".", "_").Replace(h)
	return h
}

// ParseLeadsSpreadsheet reads lead rows from the first sheet of an XLSX workbook.
// The first row is the header; unknown columns and empty rows are skipped.
func ParseLeadsSpreadsheet(r io.Reader) ([]dto.LeadFields, error) {
	xl, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSpreadsheet, err)
	}
	defer func() { _ = xl.Close() }()

	sheets := xl.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrInvalidSpreadsheet
	}
	rows, err := xl.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSpreadsheet, err)
	}
	if len(rows) < 2 {
		return nil, ErrLeadsRequired
	}

	columns := make(map[int]string, len(rows[0]))
	for i, h := range rows[0] {
		if field, ok := leadColumnAliases[normalizeHeader(h)]; ok {
			columns[i] = field
		}
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: no recognised columns", ErrInvalidSpreadsheet)
	}

	out := make([]dto.LeadFields, 0, len(rows)-1)
	for _, row := range rows[1:] {
		var f dto.LeadFields
		empty := true
		for i, cell := range row {
			field, ok := columns[i]
			if !ok {
				continue
			}
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			empty = false
			v := cell
			switch field {
			case "first_name":
				f.FirstName = &v
			case "last_name":
				f.LastName = &v
			case "contact_name":
				f.ContactName = &v
			case "email":
				f.Email = &v
			case "phone":
				f.Phone = &v
			case "company_name":
				f.CompanyName = &v
			case "title":
				f.Title = &v
			case "linkedin_url":
				f.LinkedinURL = &v
			case "company_website":
				f.CompanyWebsite = &v
			case "industry":
				f.Industry = &v
			case "company_size":
				f.CompanySize = &v
			case "location":
				f.Location = &v
			case "notes":
				f.Notes = &v
			case "status":
				lowered := strings.ToLower(v)
				f.Status = &lowered
			}
		}
		if !empty {
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		return nil, ErrLeadsRequired
	}
	return out, nil
}

// WriteLeadsSpreadsheet renders leads into a single-sheet XLSX workbook
func WriteLeadsSpreadsheet(leads []*models.Lead) ([]byte, error) {
	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	name := "Leads"
	if err := xl.SetSheetName(xl.GetSheetName(0), name); err != nil {
		return nil, err
	}
	if err := xl.SetSheetRow(name, "A1", &leadSheetHeader); err != nil {
		return nil, err
	}

	for i, l := range leads {
		record := []string{
			l.FirstName,
			l.LastName,
			l.ContactName,
			l.Email,
			l.Phone,
			l.CompanyName,
			l.Title,
			l.LinkedinURL,
			l.CompanyWebsite,
			l.Industry,
			l.CompanySize,
			l.Location,
			l.Notes,
			l.Source,
			l.Status.String(),
			l.CreatedAt.UTC().Format(time.RFC3339),
		}
		cellRef, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := xl.SetSheetRow(name, cellRef, &record); err != nil {
			return nil, err
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
