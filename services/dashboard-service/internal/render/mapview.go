package render

import (
	"math"

	"github.com/grigta/covid-tracker/services/dashboard-service/internal/models"
	"github.com/grigta/covid-tracker/services/dashboard-service/internal/utils"
)

// CategoryStyle controls how a category is drawn on the map.
type CategoryStyle struct {
	Color      string  `json:"color"`
	Multiplier float64 `json:"multiplier"`
}

var categoryStyles = map[models.Category]CategoryStyle{
	models.CategoryCases:     {Color: "#CC1034", Multiplier: 800},
	models.CategoryRecovered: {Color: "#7dd71d", Multiplier: 1200},
	models.CategoryDeaths:    {Color: "#fb4443", Multiplier: 2000},
}

// StyleFor returns the style for category, falling back to cases.
func StyleFor(category models.Category) CategoryStyle {
	if style, ok := categoryStyles[category]; ok {
		return style
	}
	return categoryStyles[models.CategoryCases]
}

// Circle is one country bubble. Radius is in meters.
type Circle struct {
	Country   string  `json:"country"`
	Flag      string  `json:"flag,omitempty"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Radius    float64 `json:"radius"`
	Cases     string  `json:"cases"`
	Recovered string  `json:"recovered"`
	Deaths    string  `json:"deaths"`
}

type MapView struct {
	Center   models.LatLng   `json:"center"`
	Zoom     int             `json:"zoom"`
	Category models.Category `json:"category"`
	Color    string          `json:"color"`
	TileURL  string          `json:"tileUrl"`
	Circles  []Circle        `json:"circles"`
}

// BubbleRadius scales a count to a circle radius: sqrt(value) * multiplier.
func BubbleRadius(value int64, category models.Category) float64 {
	if value <= 0 {
		return 0
	}
	return math.Sqrt(float64(value)) * StyleFor(category).Multiplier
}

// BuildMapView draws every country with coordinates for the active category.
func BuildMapView(state models.ViewState, tileURL string) MapView {
	style := StyleFor(state.ActiveCategory)

	view := MapView{
		Center:   state.MapCenter,
		Zoom:     state.MapZoom,
		Category: state.ActiveCategory,
		Color:    style.Color,
		TileURL:  tileURL,
		Circles:  make([]Circle, 0, len(state.TableData)),
	}

	for _, r := range state.TableData {
		if !r.CountryInfo.HasLocation() {
			continue
		}
		view.Circles = append(view.Circles, Circle{
			Country:   r.Country,
			Flag:      r.CountryInfo.Flag,
			Lat:       *r.CountryInfo.Lat,
			Lng:       *r.CountryInfo.Long,
			Radius:    BubbleRadius(r.Value(state.ActiveCategory), state.ActiveCategory),
			Cases:     utils.FormatCount(r.Cases),
			Recovered: utils.FormatCount(r.Recovered),
			Deaths:    utils.FormatCount(r.Deaths),
		})
	}

	return view
}
