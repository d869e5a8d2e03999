package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/grigta/covid-tracker/pkg/testutil"
	"github.com/grigta/covid-tracker/services/dashboard-service/internal/models"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type SessionRegistryTestSuite struct {
	suite.Suite
	ctx    context.Context
	cancel context.CancelFunc
	server *testutil.MockDiseaseServer
	client *DiseaseClient
}

func (s *SessionRegistryTestSuite) SetupTest() {
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 10*time.Second)
	s.server = testutil.NewMockDiseaseServer()
	s.server.SetJSON(pathAll, `{"cases":100}`)
	s.server.SetJSON(pathCountries, `[{"country":"France","cases":40,"countryInfo":{"iso2":"FR","lat":46,"long":2}}]`)
	s.server.SetJSON(pathCountries+"/FR", `{"country":"France","cases":40,"countryInfo":{"iso2":"FR","lat":46,"long":2}}`)
	s.client = NewDiseaseClient(s.server.URL(), 5*time.Second, "", testLogger())
}

func (s *SessionRegistryTestSuite) TearDownTest() {
	s.server.Close()
	s.cancel()
}

func TestSessionRegistryTestSuite(t *testing.T) {
	suite.Run(t, new(SessionRegistryTestSuite))
}

func (s *SessionRegistryTestSuite) TestGetCreatesAndReuses() {
	registry := NewSessionRegistry(s.client, testDefaults, time.Minute, nil, testLogger())

	first, err := registry.Get(s.ctx, "one")
	s.Require().NoError(err)
	s.Equal(int64(100), *first.Snapshot().Stats.Cases)
	s.Len(first.Snapshot().Countries, 1)

	again, err := registry.Get(s.ctx, "one")
	s.Require().NoError(err)
	s.Same(first, again)
	s.Equal(1, s.server.RequestCount(pathAll))

	other, err := registry.Get(s.ctx, "two")
	s.Require().NoError(err)
	s.NotSame(first, other)
	s.Equal(2, registry.Count())
}

func (s *SessionRegistryTestSuite) TestEmptyID() {
	registry := NewSessionRegistry(s.client, testDefaults, time.Minute, nil, testLogger())
	_, err := registry.Get(s.ctx, "")
	s.ErrorIs(err, ErrInvalidSession)
}

func (s *SessionRegistryTestSuite) TestInitializeFailureStillReturnsController() {
	s.server.SetShouldFail(true, 503)
	registry := NewSessionRegistry(s.client, testDefaults, time.Minute, nil, testLogger())

	c, err := registry.Get(s.ctx, "one")
	s.Require().NoError(err)
	s.NotEmpty(c.Snapshot().Error)
}

func (s *SessionRegistryTestSuite) TestRestoresFromStore() {
	kv := new(MockKeyValueStore)
	store := NewRedisSnapshotStore(kv, time.Hour, testLogger())
	kv.On("GetJSON", mock.Anything, "session:back", mock.Anything).
		Return(`{"selectedRegion":"FR","activeCategory":"recovered","mapCenter":{"lat":46,"lng":2},"mapZoom":5}`, nil)
	kv.On("Set", mock.Anything, "session:back", mock.Anything, time.Hour).Return(nil)

	registry := NewSessionRegistry(s.client, testDefaults, time.Minute, store, testLogger(), store.Listener)

	c, err := registry.Get(s.ctx, "back")
	s.Require().NoError(err)

	state := c.Snapshot()
	s.Equal("FR", state.SelectedRegion)
	s.Equal(models.CategoryRecovered, state.ActiveCategory)
	s.Equal(int64(40), *state.Stats.Cases)
	s.Equal(1, s.server.RequestCount(pathCountries+"/FR"))
	kv.AssertCalled(s.T(), "Set", mock.Anything, "session:back", mock.Anything, time.Hour)
}

func (s *SessionRegistryTestSuite) TestRemoveUnsubscribesListeners() {
	var calls atomic.Int32
	factory := func(string) Listener {
		return func(models.ViewState) { calls.Add(1) }
	}
	registry := NewSessionRegistry(s.client, testDefaults, time.Minute, nil, testLogger(), factory)

	c, err := registry.Get(s.ctx, "one")
	s.Require().NoError(err)
	s.Positive(calls.Load())

	registry.Remove("one")
	s.Equal(0, registry.Count())

	before := calls.Load()
	s.Require().NoError(c.SelectCategory(models.CategoryDeaths))
	s.Equal(before, calls.Load())
}

func (s *SessionRegistryTestSuite) TestExpiredSessionReplacedAndReleased() {
	var calls atomic.Int32
	factory := func(string) Listener {
		return func(models.ViewState) { calls.Add(1) }
	}
	// the janitor runs at most once a second, so the entry lingers after expiry
	registry := NewSessionRegistry(s.client, testDefaults, 200*time.Millisecond, nil, testLogger(), factory)

	old, err := registry.Get(s.ctx, "one")
	s.Require().NoError(err)

	s.Require().Eventually(func() bool {
		return registry.Count() == 0
	}, 2*time.Second, 10*time.Millisecond)

	fresh, err := registry.Get(s.ctx, "one")
	s.Require().NoError(err)
	s.NotSame(old, fresh)
	s.Equal(1, registry.Count())
	s.Equal(float64(1), promtestutil.ToFloat64(activeSessions))

	before := calls.Load()
	s.Require().NoError(old.SelectCategory(models.CategoryDeaths))
	s.Equal(before, calls.Load())

	s.Require().NoError(fresh.SelectCategory(models.CategoryDeaths))
	s.Equal(before+1, calls.Load())
}
