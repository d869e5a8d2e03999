package service

import (
	"sort"
	"time"

	"github.com/grigta/covid-tracker/services/dashboard-service/internal/models"
)

// TimelineDateLayout is the key format of upstream timelines ("1/22/20").
const TimelineDateLayout = "1/2/06"

// DailySeries turns a cumulative timeline into day-over-day changes. The first
// day has no predecessor and is dropped, so n entries yield n-1 points.
func DailySeries(history *models.HistoricalAll, category models.Category) (models.HistoricalSeries, error) {
	series := models.HistoricalSeries{Category: category, Points: []models.SeriesPoint{}}
	if history == nil {
		return series, nil
	}

	timeline := history.Timeline(category)
	cumulative := make([]models.SeriesPoint, 0, len(timeline))
	for key, value := range timeline {
		date, err := time.Parse(TimelineDateLayout, key)
		if err != nil {
			return series, &models.ParseError{Reason: "bad timeline date " + key, Err: err}
		}
		cumulative = append(cumulative, models.SeriesPoint{Date: date, Value: value})
	}

	sort.Slice(cumulative, func(i, j int) bool {
		return cumulative[i].Date.Before(cumulative[j].Date)
	})

	for i := 1; i < len(cumulative); i++ {
		series.Points = append(series.Points, models.SeriesPoint{
			Date:  cumulative[i].Date,
			Value: cumulative[i].Value - cumulative[i-1].Value,
		})
	}

	return series, nil
}
