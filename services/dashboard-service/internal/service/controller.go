package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/grigta/covid-tracker/pkg/logger"
	"github.com/grigta/covid-tracker/services/dashboard-service/internal/models"
	"github.com/grigta/covid-tracker/services/dashboard-service/internal/utils"
	"golang.org/x/sync/errgroup"
)

// ErrSuperseded is returned by SelectRegion when a newer selection was issued
// before the response arrived. The response is dropped and state is untouched.
var ErrSuperseded = errors.New("selection superseded by a newer request")

// Listener receives a snapshot after every state change. Listeners run
// synchronously in mutation order and must not call back into the controller's
// mutating methods.
type Listener func(models.ViewState)

// MapDefaults configures the viewport a session starts with.
type MapDefaults struct {
	Center      models.LatLng
	Zoom        int
	CountryZoom int
}

// Controller owns the ViewState of one dashboard session.
type Controller struct {
	source   StatsSource
	defaults MapDefaults
	logger   logger.Logger

	mu          sync.Mutex
	state       models.ViewState
	latestToken uint64
	statsErr    string
	listErr     string

	// Each mutation takes a ticket under mu; deliveries run in ticket order
	// without holding mu, so readers never wait on a slow listener.
	issued     uint64
	notifyMu   sync.Mutex
	notifyCond *sync.Cond
	delivered  uint64
	listenerMu sync.RWMutex
	listeners  map[uint64]Listener
	nextID     uint64
}

func NewController(source StatsSource, defaults MapDefaults, log logger.Logger) *Controller {
	c := &Controller{
		source:   source,
		defaults: defaults,
		logger:   log.WithField("component", "controller"),
		state: models.ViewState{
			SelectedRegion: models.Worldwide,
			ActiveCategory: models.CategoryCases,
			MapCenter:      defaults.Center,
			MapZoom:        defaults.Zoom,
			Countries:      []models.CountryOption{},
			TableData:      []models.CountryRecord{},
		},
		listeners: make(map[uint64]Listener),
	}
	c.notifyCond = sync.NewCond(&c.notifyMu)
	return c
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() models.ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Subscribe registers l and returns a func that removes it.
func (c *Controller) Subscribe(l Listener) func() {
	c.listenerMu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = l
	c.listenerMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.listenerMu.Lock()
			delete(c.listeners, id)
			c.listenerMu.Unlock()
		})
	}
}

// Restore seeds the view parameters from persisted preferences. Fetched data
// is left alone; call Initialize afterwards to load it for the restored region.
func (c *Controller) Restore(p models.Preferences) {
	c.mutate(func(s *models.ViewState) {
		if region := strings.TrimSpace(p.SelectedRegion); region != "" {
			s.SelectedRegion = normalizeRegion(region)
		}
		if p.ActiveCategory.Valid() {
			s.ActiveCategory = p.ActiveCategory
		}
		if p.MapZoom > 0 {
			s.MapCenter = p.MapCenter
			s.MapZoom = p.MapZoom
		}
	})
}

// Initialize loads the aggregate for the current region and the country list
// concurrently. Each result is installed as soon as it arrives; a failure in
// one does not stop the other. The first error is returned and every error is
// recorded in the state.
func (c *Controller) Initialize(ctx context.Context) error {
	var region string
	var token uint64
	c.mutate(func(s *models.ViewState) {
		c.latestToken++
		token = c.latestToken
		region = s.SelectedRegion
		s.LoadingStats = true
		s.LoadingCountries = true
		c.statsErr, c.listErr = "", ""
		c.syncError(s)
	})

	var g errgroup.Group

	g.Go(func() error {
		stats, fetchErr := c.source.GetAggregate(ctx, region)
		if err := c.installStats(token, region, stats, fetchErr, false); !errors.Is(err, ErrSuperseded) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		records, err := c.source.GetCountries(ctx)
		if err != nil {
			c.logger.WithError(err).Error("Failed to load country list")
			c.mutate(func(s *models.ViewState) {
				s.LoadingCountries = false
				c.listErr = err.Error()
				c.syncError(s)
			})
			return fmt.Errorf("load countries: %w", err)
		}

		sorted := utils.SortByCases(records)
		c.mutate(func(s *models.ViewState) {
			s.Countries = models.Options(records)
			s.TableData = sorted
			s.LoadingCountries = false
			c.listErr = ""
			c.syncError(s)
		})
		return nil
	})

	return g.Wait()
}

// SelectRegion fetches stats for code (or the global aggregate for Worldwide)
// and installs them with the matching viewport. If another selection is issued
// while this one is in flight, this response is discarded and ErrSuperseded
// is returned. On failure the previous stats and region stay in place and the
// error is exposed in the state.
func (c *Controller) SelectRegion(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return fmt.Errorf("%w: empty region", models.ErrInvalidRegion)
	}
	code = normalizeRegion(code)
	RecordSelection("region")

	var token uint64
	c.mutate(func(s *models.ViewState) {
		c.latestToken++
		token = c.latestToken
		s.LoadingStats = true
	})

	stats, err := c.source.GetAggregate(ctx, code)
	return c.installStats(token, code, stats, err, true)
}

// SelectCategory switches which counter drives the map and graph.
func (c *Controller) SelectCategory(category models.Category) error {
	if !category.Valid() {
		return fmt.Errorf("%w: %q", models.ErrInvalidCategory, category)
	}
	RecordSelection("category")

	c.mutate(func(s *models.ViewState) {
		s.ActiveCategory = category
	})
	return nil
}

func (c *Controller) installStats(token uint64, region string, stats *models.AggregateStats, fetchErr error, moveMap bool) error {
	c.mu.Lock()
	if token != c.latestToken {
		c.mu.Unlock()
		RecordStaleDiscard()
		c.logger.Warn("Discarding stale statistics response",
			logger.Field{Key: "region", Value: region},
			logger.Field{Key: "token", Value: token},
		)
		return ErrSuperseded
	}

	s := &c.state
	s.LoadingStats = false
	if fetchErr != nil {
		c.statsErr = fetchErr.Error()
		c.logger.WithError(fetchErr).Error("Failed to load statistics",
			logger.Field{Key: "region", Value: region},
		)
	} else {
		s.Stats = stats
		s.SelectedRegion = region
		c.statsErr = ""
		if moveMap {
			c.moveMap(s, region, stats)
		}
	}
	c.syncError(s)
	c.publishLocked()

	if fetchErr != nil {
		return fmt.Errorf("load statistics for %s: %w", region, fetchErr)
	}
	return nil
}

func (c *Controller) moveMap(s *models.ViewState, region string, stats *models.AggregateStats) {
	if IsWorldwide(region) {
		s.MapCenter = c.defaults.Center
		s.MapZoom = c.defaults.Zoom
		return
	}
	if stats.CountryInfo.HasLocation() {
		s.MapCenter = models.LatLng{Lat: *stats.CountryInfo.Lat, Lng: *stats.CountryInfo.Long}
		s.MapZoom = c.defaults.CountryZoom
	}
}

// syncError folds the per-source failures into the visible error field.
func (c *Controller) syncError(s *models.ViewState) {
	var parts []string
	for _, e := range []string{c.statsErr, c.listErr} {
		if e != "" {
			parts = append(parts, e)
		}
	}
	s.Error = strings.Join(parts, "; ")
}

func (c *Controller) mutate(fn func(*models.ViewState)) {
	c.mu.Lock()
	fn(&c.state)
	c.publishLocked()
}

// publishLocked bumps the version, releases mu and delivers the snapshot once
// every earlier mutation has been delivered. Callers must hold mu.
func (c *Controller) publishLocked() {
	c.state.Version++
	snapshot := c.state.Clone()
	ticket := c.issued
	c.issued++
	c.mu.Unlock()

	c.notifyMu.Lock()
	for c.delivered != ticket {
		c.notifyCond.Wait()
	}
	c.notifyMu.Unlock()

	defer func() {
		c.notifyMu.Lock()
		c.delivered++
		c.notifyCond.Broadcast()
		c.notifyMu.Unlock()
	}()

	c.listenerMu.RLock()
	listeners := make([]Listener, 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.listenerMu.RUnlock()

	for _, l := range listeners {
		l(snapshot)
	}
}

func normalizeRegion(region string) string {
	if IsWorldwide(region) {
		return models.Worldwide
	}
	return region
}
