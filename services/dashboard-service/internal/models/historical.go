package models

import "time"

// Timeline is a cumulative series keyed by "M/D/YY" dates, as served upstream.
type Timeline map[string]int64

// HistoricalAll is the /historical/all response.
type HistoricalAll struct {
	Cases     Timeline `json:"cases"`
	Deaths    Timeline `json:"deaths"`
	Recovered Timeline `json:"recovered"`
}

func (h *HistoricalAll) Timeline(category Category) Timeline {
	switch category {
	case CategoryRecovered:
		return h.Recovered
	case CategoryDeaths:
		return h.Deaths
	default:
		return h.Cases
	}
}

type SeriesPoint struct {
	Date  time.Time `json:"date"`
	Value int64     `json:"value"`
}

// HistoricalSeries holds daily new counts for one category.
type HistoricalSeries struct {
	Category Category      `json:"category"`
	Points   []SeriesPoint `json:"points"`
}
