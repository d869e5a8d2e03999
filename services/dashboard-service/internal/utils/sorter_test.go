package utils

import (
	"testing"

	"github.com/grigta/covid-tracker/services/dashboard-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func records(pairs ...interface{}) []models.CountryRecord {
	out := make([]models.CountryRecord, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, models.CountryRecord{
			Country: pairs[i].(string),
			Cases:   int64(pairs[i+1].(int)),
		})
	}
	return out
}

func names(rs []models.CountryRecord) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Country
	}
	return out
}

func TestSortByCases_Empty(t *testing.T) {
	assert.Empty(t, SortByCases(nil))
	assert.Empty(t, SortByCases([]models.CountryRecord{}))
}

func TestSortByCases_Descending(t *testing.T) {
	sorted := SortByCases(records("A", 50, "B", 80, "C", 10, "D", 300))

	assert.Equal(t, []string{"D", "B", "A", "C"}, names(sorted))
	for i := 1; i < len(sorted); i++ {
		assert.GreaterOrEqual(t, sorted[i-1].Cases, sorted[i].Cases)
	}
}

func TestSortByCases_StableTies(t *testing.T) {
	sorted := SortByCases(records("first", 5, "big", 9, "second", 5, "third", 5))
	assert.Equal(t, []string{"big", "first", "second", "third"}, names(sorted))
}

func TestSortByCases_Idempotent(t *testing.T) {
	once := SortByCases(records("A", 1, "B", 3, "C", 3, "D", 2))
	twice := SortByCases(once)
	require.Len(t, twice, 4)
	assert.Equal(t, once, twice)
}

func TestSortByCases_InputUntouched(t *testing.T) {
	input := records("A", 50, "B", 80)
	SortByCases(input)
	assert.Equal(t, []string{"A", "B"}, names(input))
}
