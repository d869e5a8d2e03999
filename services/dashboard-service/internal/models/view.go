package models

import "fmt"

type Category string

const (
	CategoryCases     Category = "cases"
	CategoryRecovered Category = "recovered"
	CategoryDeaths    Category = "deaths"
)

// Categories lists every category in display order.
var Categories = []Category{CategoryCases, CategoryRecovered, CategoryDeaths}

func (c Category) Valid() bool {
	switch c {
	case CategoryCases, CategoryRecovered, CategoryDeaths:
		return true
	}
	return false
}

// ParseCategory accepts the three category names exactly.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
	return c, nil
}

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ViewState is the serializable state of one dashboard session.
type ViewState struct {
	SelectedRegion   string          `json:"selectedRegion"`
	ActiveCategory   Category        `json:"activeCategory"`
	MapCenter        LatLng          `json:"mapCenter"`
	MapZoom          int             `json:"mapZoom"`
	Stats            *AggregateStats `json:"stats,omitempty"`
	Countries        []CountryOption `json:"countries"`
	TableData        []CountryRecord `json:"tableData"`
	Error            string          `json:"error,omitempty"`
	LoadingStats     bool            `json:"loadingStats"`
	LoadingCountries bool            `json:"loadingCountries"`
	Version          uint64          `json:"version"`
}

// Clone returns a copy that shares no slices with v.
func (v ViewState) Clone() ViewState {
	out := v
	if v.Countries != nil {
		out.Countries = append([]CountryOption(nil), v.Countries...)
	}
	if v.TableData != nil {
		out.TableData = append([]CountryRecord(nil), v.TableData...)
	}
	if v.Stats != nil {
		stats := *v.Stats
		out.Stats = &stats
	}
	return out
}

// Preferences is the part of a ViewState worth persisting across restarts.
// Fetched data is never persisted.
type Preferences struct {
	SelectedRegion string   `json:"selectedRegion"`
	ActiveCategory Category `json:"activeCategory"`
	MapCenter      LatLng   `json:"mapCenter"`
	MapZoom        int      `json:"mapZoom"`
}

func (v ViewState) Preferences() Preferences {
	return Preferences{
		SelectedRegion: v.SelectedRegion,
		ActiveCategory: v.ActiveCategory,
		MapCenter:      v.MapCenter,
		MapZoom:        v.MapZoom,
	}
}
