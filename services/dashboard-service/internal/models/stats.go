package models

// Worldwide is the region key that selects the global aggregate.
const Worldwide = "Worldwide"

// CountryInfo is the geolocation block disease.sh embeds in per-country records.
type CountryInfo struct {
	ID   *int     `json:"_id,omitempty"`
	ISO2 string   `json:"iso2,omitempty"`
	ISO3 string   `json:"iso3,omitempty"`
	Lat  *float64 `json:"lat,omitempty"`
	Long *float64 `json:"long,omitempty"`
	Flag string   `json:"flag,omitempty"`
}

// HasLocation reports whether both coordinates are present.
func (ci *CountryInfo) HasLocation() bool {
	return ci != nil && ci.Lat != nil && ci.Long != nil
}

// AggregateStats is the global or single-country summary. Counters are
// pointers so an absent field stays distinguishable from zero.
type AggregateStats struct {
	Country        string       `json:"country,omitempty"`
	CountryInfo    *CountryInfo `json:"countryInfo,omitempty"`
	Updated        int64        `json:"updated,omitempty"`
	Cases          *int64       `json:"cases"`
	TodayCases     *int64       `json:"todayCases,omitempty"`
	Deaths         *int64       `json:"deaths,omitempty"`
	TodayDeaths    *int64       `json:"todayDeaths,omitempty"`
	Recovered      *int64       `json:"recovered,omitempty"`
	TodayRecovered *int64       `json:"todayRecovered,omitempty"`
	Active         *int64       `json:"active,omitempty"`
	Critical       *int64       `json:"critical,omitempty"`
}

// Total returns the cumulative counter for category.
func (s *AggregateStats) Total(category Category) *int64 {
	if s == nil {
		return nil
	}
	switch category {
	case CategoryRecovered:
		return s.Recovered
	case CategoryDeaths:
		return s.Deaths
	default:
		return s.Cases
	}
}

// Today returns the daily delta for category.
func (s *AggregateStats) Today(category Category) *int64 {
	if s == nil {
		return nil
	}
	switch category {
	case CategoryRecovered:
		return s.TodayRecovered
	case CategoryDeaths:
		return s.TodayDeaths
	default:
		return s.TodayCases
	}
}

// CountryOption is one entry of the region selector.
type CountryOption struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// CountryRecord is a full row from the countries endpoint.
type CountryRecord struct {
	Country        string      `json:"country"`
	CountryInfo    CountryInfo `json:"countryInfo"`
	Continent      string      `json:"continent,omitempty"`
	Population     int64       `json:"population,omitempty"`
	Updated        int64       `json:"updated,omitempty"`
	Cases          int64       `json:"cases"`
	TodayCases     int64       `json:"todayCases"`
	Deaths         int64       `json:"deaths"`
	TodayDeaths    int64       `json:"todayDeaths"`
	Recovered      int64       `json:"recovered"`
	TodayRecovered int64       `json:"todayRecovered"`
	Active         int64       `json:"active"`
	Critical       int64       `json:"critical"`
}

// Value returns the cumulative counter for category.
func (r CountryRecord) Value(category Category) int64 {
	switch category {
	case CategoryRecovered:
		return r.Recovered
	case CategoryDeaths:
		return r.Deaths
	default:
		return r.Cases
	}
}

// Option converts the record into a selector entry keyed by ISO2 code.
func (r CountryRecord) Option() CountryOption {
	return CountryOption{Name: r.Country, Value: r.CountryInfo.ISO2}
}

// Options builds selector entries for records, skipping ones without a code.
func Options(records []CountryRecord) []CountryOption {
	options := make([]CountryOption, 0, len(records))
	for _, r := range records {
		if r.CountryInfo.ISO2 == "" {
			continue
		}
		options = append(options, r.Option())
	}
	return options
}
