package render

import (
	"github.com/grigta/covid-tracker/services/dashboard-service/internal/models"
	"github.com/grigta/covid-tracker/services/dashboard-service/internal/utils"
)

// InfoBox is one summary counter on the dashboard.
type InfoBox struct {
	Category models.Category `json:"category"`
	Title    string          `json:"title"`
	Today    string          `json:"today"`
	Total    string          `json:"total"`
	Active   bool            `json:"active"`
	Red      bool            `json:"red"`
}

var boxTitles = map[models.Category]string{
	models.CategoryCases:     "Coronavirus Cases",
	models.CategoryRecovered: "Recovered",
	models.CategoryDeaths:    "Deaths",
}

// Counters builds the three summary boxes in display order.
func Counters(state models.ViewState) []InfoBox {
	boxes := make([]InfoBox, 0, len(models.Categories))
	for _, category := range models.Categories {
		boxes = append(boxes, InfoBox{
			Category: category,
			Title:    boxTitles[category],
			Today:    utils.FormatDelta(state.Stats.Today(category)),
			Total:    utils.FormatStat(state.Stats.Total(category)),
			Active:   state.ActiveCategory == category,
			Red:      category != models.CategoryRecovered,
		})
	}
	return boxes
}
