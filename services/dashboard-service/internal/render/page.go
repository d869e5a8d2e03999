package render

import (
	"embed"
	"html/template"
	"net/url"

	"github.com/grigta/covid-tracker/services/dashboard-service/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

// DashboardTemplate is the name passed to gin's c.HTML.
const DashboardTemplate = "dashboard.html"

// Templates parses the embedded page templates.
func Templates() (*template.Template, error) {
	return template.ParseFS(templateFS, "templates/*.html")
}

// Dashboard is everything the page template reads.
type Dashboard struct {
	Region     string
	Category   models.Category
	Error      string
	Loading    bool
	Countries  []models.CountryOption
	Counters   []InfoBox
	Table      []TableRow
	Map        MapView
	GraphURL   string
	Worldwide  string
	Version    uint64
	StreamPath string
}

func NewDashboard(state models.ViewState, tileURL string) Dashboard {
	return Dashboard{
		Region:     state.SelectedRegion,
		Category:   state.ActiveCategory,
		Error:      state.Error,
		Loading:    state.LoadingStats || state.LoadingCountries,
		Countries:  state.Countries,
		Counters:   Counters(state),
		Table:      Table(state.TableData),
		Map:        BuildMapView(state, tileURL),
		GraphURL:   "/charts/history?category=" + url.QueryEscape(string(state.ActiveCategory)),
		Worldwide:  models.Worldwide,
		Version:    state.Version,
		StreamPath: "/api/v1/state/stream",
	}
}
