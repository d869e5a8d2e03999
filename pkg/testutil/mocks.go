package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockResponse is a canned reply for one upstream path.
// When Gate is set the handler blocks until it is closed (or the request is cancelled).
type MockResponse struct {
	Status int
	Body   string
	Gate   <-chan struct{}
}

// MockRequest logs incoming requests
type MockRequest struct {
	Method    string
	Path      string
	Query     string
	UserAgent string
	Timestamp time.Time
}

// MockDiseaseServer is a mock HTTP server for the disease.sh statistics API
type MockDiseaseServer struct {
	Server      *httptest.Server
	mu          sync.RWMutex
	responses   map[string]MockResponse
	RequestLog  []MockRequest
	ShouldFail  bool
	FailureCode int
}

// NewMockDiseaseServer creates a mock with no routes; unknown paths answer 404
// with the same body disease.sh uses for unknown countries.
func NewMockDiseaseServer() *MockDiseaseServer {
	mock := &MockDiseaseServer{
		responses: make(map[string]MockResponse),
	}

	mock.Server = httptest.NewServer(http.HandlerFunc(mock.handleRequest))
	return mock
}

func (m *MockDiseaseServer) handleRequest(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.RequestLog = append(m.RequestLog, MockRequest{
		Method:    r.Method,
		Path:      r.URL.Path,
		Query:     r.URL.RawQuery,
		UserAgent: r.UserAgent(),
		Timestamp: time.Now(),
	})
	shouldFail, failureCode := m.ShouldFail, m.FailureCode
	resp, ok := m.responses[r.URL.Path]
	m.mu.Unlock()

	if shouldFail {
		if failureCode == 0 {
			failureCode = http.StatusInternalServerError
		}
		http.Error(w, "mock failure", failureCode)
		return
	}

	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"Country not found or doesn't have any cases"}`))
		return
	}

	if resp.Gate != nil {
		select {
		case <-resp.Gate:
		case <-r.Context().Done():
			return
		}
	}

	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(resp.Body))
}

// SetJSON registers a 200 response with body for path (e.g. "/v3/covid-19/all").
func (m *MockDiseaseServer) SetJSON(path, body string) {
	m.SetResponse(path, MockResponse{Status: http.StatusOK, Body: body})
}

// SetResponse registers resp for path, replacing any earlier one.
func (m *MockDiseaseServer) SetResponse(path string, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[path] = resp
}

// SetShouldFail configures the server to return errors
func (m *MockDiseaseServer) SetShouldFail(shouldFail bool, code int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ShouldFail = shouldFail
	m.FailureCode = code
}

// GetRequestLog returns all logged requests
func (m *MockDiseaseServer) GetRequestLog() []MockRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]MockRequest{}, m.RequestLog...)
}

// RequestCount returns how many requests hit path.
func (m *MockDiseaseServer) RequestCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, req := range m.RequestLog {
		if req.Path == path {
			count++
		}
	}
	return count
}

// Close closes the mock server
func (m *MockDiseaseServer) Close() {
	m.Server.Close()
}

// URL returns the mock server URL
func (m *MockDiseaseServer) URL() string {
	return m.Server.URL
}
