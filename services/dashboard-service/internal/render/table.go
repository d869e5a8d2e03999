package render

import (
	"github.com/grigta/covid-tracker/services/dashboard-service/internal/models"
	"github.com/grigta/covid-tracker/services/dashboard-service/internal/utils"
)

type TableRow struct {
	Country string `json:"country"`
	Code    string `json:"code,omitempty"`
	Flag    string `json:"flag,omitempty"`
	Cases   string `json:"cases"`
}

// Table renders already-sorted records; order is preserved.
func Table(records []models.CountryRecord) []TableRow {
	rows := make([]TableRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, TableRow{
			Country: r.Country,
			Code:    r.CountryInfo.ISO2,
			Flag:    r.CountryInfo.Flag,
			Cases:   utils.FormatCount(r.Cases),
		})
	}
	return rows
}
