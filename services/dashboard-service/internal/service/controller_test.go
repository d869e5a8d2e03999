package service

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/grigta/covid-tracker/pkg/testutil"
	"github.com/grigta/covid-tracker/services/dashboard-service/internal/models"
	"github.com/grigta/covid-tracker/services/dashboard-service/internal/utils"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
)

var testDefaults = MapDefaults{
	Center:      models.LatLng{Lat: 34.80764, Lng: -40.4796},
	Zoom:        3,
	CountryZoom: 5,
}

type ControllerTestSuite struct {
	suite.Suite
	ctx        context.Context
	cancel     context.CancelFunc
	server     *testutil.MockDiseaseServer
	controller *Controller
}

func (s *ControllerTestSuite) SetupTest() {
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 10*time.Second)
	s.server = testutil.NewMockDiseaseServer()
	s.server.SetJSON(pathAll, `{"cases":100}`)
	s.server.SetJSON(pathCountries, `[{"country":"A","cases":50},{"country":"B","cases":80}]`)

	client := NewDiseaseClient(s.server.URL(), 5*time.Second, "", testLogger())
	s.controller = NewController(client, testDefaults, testLogger())
}

func (s *ControllerTestSuite) TearDownTest() {
	s.server.Close()
	s.cancel()
}

func TestControllerTestSuite(t *testing.T) {
	suite.Run(t, new(ControllerTestSuite))
}

func (s *ControllerTestSuite) TestInitialState() {
	state := s.controller.Snapshot()
	s.Equal(models.Worldwide, state.SelectedRegion)
	s.Equal(models.CategoryCases, state.ActiveCategory)
	s.Equal(testDefaults.Center, state.MapCenter)
	s.Equal(3, state.MapZoom)
	s.Nil(state.Stats)
	s.Empty(state.TableData)
}

func (s *ControllerTestSuite) TestInitializeLoadsStatsAndSortedTable() {
	s.Require().NoError(s.controller.Initialize(s.ctx))

	state := s.controller.Snapshot()
	s.Require().Len(state.TableData, 2)
	s.Equal("B", state.TableData[0].Country)
	s.Equal("A", state.TableData[1].Country)
	s.Equal("100", utils.FormatStat(state.Stats.Cases))
	s.False(state.LoadingStats)
	s.False(state.LoadingCountries)
	s.Empty(state.Error)
}

func (s *ControllerTestSuite) TestSelectRegionUpdatesStatsAndViewport() {
	s.Require().NoError(s.controller.Initialize(s.ctx))
	s.server.SetJSON(pathCountries+"/B", `{"cases":80,"countryInfo":{"lat":1,"long":2}}`)

	s.Require().NoError(s.controller.SelectRegion(s.ctx, "B"))

	state := s.controller.Snapshot()
	s.Equal("B", state.SelectedRegion)
	s.Equal("80", utils.FormatStat(state.Stats.Cases))
	s.Equal(models.LatLng{Lat: 1, Lng: 2}, state.MapCenter)
	s.Equal(5, state.MapZoom)
}

func (s *ControllerTestSuite) TestSelectWorldwideRestoresGlobalShape() {
	s.Require().NoError(s.controller.Initialize(s.ctx))
	s.server.SetJSON(pathCountries+"/B", `{"cases":80,"countryInfo":{"lat":1,"long":2}}`)
	s.Require().NoError(s.controller.SelectRegion(s.ctx, "B"))

	s.Require().NoError(s.controller.SelectRegion(s.ctx, models.Worldwide))

	state := s.controller.Snapshot()
	s.Equal(models.Worldwide, state.SelectedRegion)
	s.Equal(int64(100), *state.Stats.Cases)
	s.Nil(state.Stats.CountryInfo)
	s.Equal(testDefaults.Center, state.MapCenter)
	s.Equal(3, state.MapZoom)
}

func (s *ControllerTestSuite) TestSelectUnknownRegionKeepsStateAndShowsError() {
	s.Require().NoError(s.controller.Initialize(s.ctx))
	before := s.controller.Snapshot()

	err := s.controller.SelectRegion(s.ctx, "ZZ")
	s.ErrorIs(err, models.ErrNetwork)

	state := s.controller.Snapshot()
	s.Equal(models.Worldwide, state.SelectedRegion)
	s.Equal(before.Stats, state.Stats)
	s.Equal(before.MapCenter, state.MapCenter)
	s.Contains(state.Error, "404")
	s.False(state.LoadingStats)
}

func (s *ControllerTestSuite) TestSelectRegionWithMalformedBody() {
	s.server.SetJSON(pathCountries+"/XX", `{"country":"X"}`)

	err := s.controller.SelectRegion(s.ctx, "XX")
	s.ErrorIs(err, models.ErrParse)
	s.NotEmpty(s.controller.Snapshot().Error)
}

func (s *ControllerTestSuite) TestSuccessfulSelectionClearsError() {
	s.Error(s.controller.SelectRegion(s.ctx, "ZZ"))
	s.NotEmpty(s.controller.Snapshot().Error)

	s.Require().NoError(s.controller.SelectRegion(s.ctx, models.Worldwide))
	s.Empty(s.controller.Snapshot().Error)
}

func (s *ControllerTestSuite) TestEmptyRegionRejected() {
	err := s.controller.SelectRegion(s.ctx, " ")
	s.ErrorIs(err, models.ErrInvalidRegion)
	s.Empty(s.server.GetRequestLog())
}

func (s *ControllerTestSuite) TestStaleResponseDiscarded() {
	gate := make(chan struct{})
	release := sync.OnceFunc(func() { close(gate) })
	defer release()
	s.server.SetResponse(pathCountries+"/AA", testutil.MockResponse{
		Status: http.StatusOK,
		Body:   `{"cases":50,"countryInfo":{"lat":10,"long":20}}`,
		Gate:   gate,
	})
	s.server.SetJSON(pathCountries+"/BB", `{"cases":80,"countryInfo":{"lat":1,"long":2}}`)

	slow := make(chan error, 1)
	go func() {
		slow <- s.controller.SelectRegion(s.ctx, "AA")
	}()

	s.Require().Eventually(func() bool {
		return s.server.RequestCount(pathCountries+"/AA") == 1
	}, 5*time.Second, 10*time.Millisecond)

	s.Require().NoError(s.controller.SelectRegion(s.ctx, "BB"))
	release()

	s.ErrorIs(<-slow, ErrSuperseded)

	state := s.controller.Snapshot()
	s.Equal("BB", state.SelectedRegion)
	s.Equal(int64(80), *state.Stats.Cases)
	s.Equal(models.LatLng{Lat: 1, Lng: 2}, state.MapCenter)
}

func (s *ControllerTestSuite) TestInitializeToleratesPartialFailure() {
	s.server.SetResponse(pathCountries, testutil.MockResponse{Status: http.StatusInternalServerError, Body: `{"message":"boom"}`})

	err := s.controller.Initialize(s.ctx)
	s.ErrorIs(err, models.ErrNetwork)

	state := s.controller.Snapshot()
	s.Equal(int64(100), *state.Stats.Cases)
	s.Empty(state.TableData)
	s.Contains(state.Error, "boom")
	s.False(state.LoadingCountries)
}

func (s *ControllerTestSuite) TestSelectCategory() {
	s.Require().NoError(s.controller.SelectCategory(models.CategoryDeaths))
	s.Equal(models.CategoryDeaths, s.controller.Snapshot().ActiveCategory)

	err := s.controller.SelectCategory("active")
	s.ErrorIs(err, models.ErrInvalidCategory)
	s.Equal(models.CategoryDeaths, s.controller.Snapshot().ActiveCategory)
	s.Empty(s.server.GetRequestLog())
}

func (s *ControllerTestSuite) TestSubscribeDeliversInOrder() {
	var mu sync.Mutex
	var versions []uint64
	unsubscribe := s.controller.Subscribe(func(state models.ViewState) {
		mu.Lock()
		versions = append(versions, state.Version)
		mu.Unlock()
	})

	s.Require().NoError(s.controller.Initialize(s.ctx))
	s.Require().NoError(s.controller.SelectCategory(models.CategoryRecovered))

	mu.Lock()
	got := append([]uint64(nil), versions...)
	mu.Unlock()

	s.Require().Len(got, 4)
	for i := 1; i < len(got); i++ {
		s.Equal(got[i-1]+1, got[i])
	}

	unsubscribe()
	unsubscribe()
	s.Require().NoError(s.controller.SelectCategory(models.CategoryCases))

	mu.Lock()
	defer mu.Unlock()
	s.Len(versions, 4)
}

func (s *ControllerTestSuite) TestRestore() {
	s.controller.Restore(models.Preferences{
		SelectedRegion: "worldwide",
		ActiveCategory: models.CategoryDeaths,
		MapCenter:      models.LatLng{Lat: 5, Lng: 6},
		MapZoom:        5,
	})

	state := s.controller.Snapshot()
	s.Equal(models.Worldwide, state.SelectedRegion)
	s.Equal(models.CategoryDeaths, state.ActiveCategory)
	s.Equal(models.LatLng{Lat: 5, Lng: 6}, state.MapCenter)

	s.controller.Restore(models.Preferences{ActiveCategory: "bogus"})
	state = s.controller.Snapshot()
	s.Equal(models.CategoryDeaths, state.ActiveCategory)
	s.Equal(5, state.MapZoom)
}

func (s *ControllerTestSuite) TestInitializeUsesRestoredRegion() {
	s.server.SetJSON(pathCountries+"/BB", `{"cases":80,"countryInfo":{"lat":1,"long":2}}`)
	s.controller.Restore(models.Preferences{SelectedRegion: "BB", MapCenter: models.LatLng{Lat: 1, Lng: 2}, MapZoom: 5})

	s.Require().NoError(s.controller.Initialize(s.ctx))

	state := s.controller.Snapshot()
	s.Equal("BB", state.SelectedRegion)
	s.Equal(int64(80), *state.Stats.Cases)
	s.Equal(0, s.server.RequestCount(pathAll))
}

// gate holds path until the returned release func is called. Callers defer
// release so the server can close even if an assertion fails first.
func (s *ControllerTestSuite) gate(path, body string) func() {
	ch := make(chan struct{})
	release := sync.OnceFunc(func() { close(ch) })
	s.server.SetResponse(path, testutil.MockResponse{Status: http.StatusOK, Body: body, Gate: ch})
	return release
}

func (s *ControllerTestSuite) TestInitializeCountriesBeforeAggregate() {
	release := s.gate(pathAll, `{"cases":100}`)
	defer release()

	done := make(chan error, 1)
	go func() { done <- s.controller.Initialize(s.ctx) }()

	s.Require().Eventually(func() bool {
		state := s.controller.Snapshot()
		return !state.LoadingCountries && len(state.TableData) == 2
	}, 5*time.Second, 10*time.Millisecond)

	state := s.controller.Snapshot()
	s.True(state.LoadingStats)
	s.Nil(state.Stats)
	s.Equal("B", state.TableData[0].Country)

	release()
	s.Require().NoError(<-done)

	state = s.controller.Snapshot()
	s.False(state.LoadingStats)
	s.Equal(int64(100), *state.Stats.Cases)
	s.Len(state.TableData, 2)
	s.Empty(state.Error)
}

func (s *ControllerTestSuite) TestInitializeAggregateBeforeCountries() {
	release := s.gate(pathCountries, `[{"country":"A","cases":50},{"country":"B","cases":80}]`)
	defer release()

	done := make(chan error, 1)
	go func() { done <- s.controller.Initialize(s.ctx) }()

	s.Require().Eventually(func() bool {
		return s.controller.Snapshot().Stats != nil
	}, 5*time.Second, 10*time.Millisecond)

	state := s.controller.Snapshot()
	s.False(state.LoadingStats)
	s.True(state.LoadingCountries)
	s.Empty(state.TableData)

	release()
	s.Require().NoError(<-done)

	state = s.controller.Snapshot()
	s.Equal(int64(100), *state.Stats.Cases)
	s.Require().Len(state.TableData, 2)
	s.Equal("B", state.TableData[0].Country)
	s.False(state.LoadingCountries)
}

func (s *ControllerTestSuite) TestSelectRegionDuringInitializeWins() {
	release := s.gate(pathAll, `{"cases":100}`)
	defer release()
	s.server.SetJSON(pathCountries+"/BB", `{"cases":80,"countryInfo":{"lat":1,"long":2}}`)
	discardedBefore := promtestutil.ToFloat64(staleResponsesDiscarded)

	done := make(chan error, 1)
	go func() { done <- s.controller.Initialize(s.ctx) }()

	s.Require().Eventually(func() bool {
		return s.server.RequestCount(pathAll) == 1
	}, 5*time.Second, 10*time.Millisecond)

	s.Require().NoError(s.controller.SelectRegion(s.ctx, "BB"))
	release()

	s.Require().NoError(<-done)
	s.Equal(discardedBefore+1, promtestutil.ToFloat64(staleResponsesDiscarded))

	state := s.controller.Snapshot()
	s.Equal("BB", state.SelectedRegion)
	s.Equal(int64(80), *state.Stats.Cases)
	s.Equal(models.LatLng{Lat: 1, Lng: 2}, state.MapCenter)
	s.Equal(5, state.MapZoom)
	s.False(state.LoadingStats)
	s.Len(state.TableData, 2)
}

func (s *ControllerTestSuite) TestSlowListenerDoesNotBlockSnapshot() {
	started := make(chan struct{})
	var once sync.Once
	var mu sync.Mutex
	var versions []uint64
	s.controller.Subscribe(func(state models.ViewState) {
		mu.Lock()
		versions = append(versions, state.Version)
		mu.Unlock()
		once.Do(func() { close(started) })
		time.Sleep(300 * time.Millisecond)
	})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.NoError(s.controller.SelectCategory(models.CategoryDeaths))
	}()
	<-started
	go func() {
		defer wg.Done()
		s.NoError(s.controller.SelectCategory(models.CategoryRecovered))
	}()

	s.Require().Eventually(func() bool {
		return s.controller.Snapshot().ActiveCategory == models.CategoryRecovered
	}, 250*time.Millisecond, 5*time.Millisecond)

	start := time.Now()
	s.controller.Snapshot()
	s.Less(time.Since(start), 50*time.Millisecond)

	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	s.Equal([]uint64{1, 2}, versions)
}
