package utils

import (
	"sort"

	"github.com/grigta/covid-tracker/services/dashboard-service/internal/models"
)

// SortByCases returns a copy of records ordered by descending case count.
// Equal counts keep their input order.
func SortByCases(records []models.CountryRecord) []models.CountryRecord {
	sorted := make([]models.CountryRecord, len(records))
	copy(sorted, records)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Cases > sorted[j].Cases
	})

	return sorted
}
