package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ternarybob/colligo/internal/models"
	"github.com/ternarybob/colligo/internal/services/retrieval"
)

// mockRetrievalService implements interfaces.RetrievalService for testing
type mockRetrievalService struct {
	startRunFunc  func(ctx context.Context, req *models.RunRequest) (string, error)
	getRunFunc    func(id string) (*models.Run, error)
	listRunsFunc  func() []*models.Run
	cancelRunFunc func(id string) error
	eventsFunc    func(id string) (<-chan models.ProgressEvent, error)
}

func (m *mockRetrievalService) StartRun(ctx context.Context, req *models.RunRequest) (string, error) {
	if m.startRunFunc != nil {
		return m.startRunFunc(ctx, req)
	}
	return "run-1", nil
}

func (m *mockRetrievalService) GetRun(id string) (*models.Run, error) {
	if m.getRunFunc != nil {
		return m.getRunFunc(id)
	}
	return nil, fmt.Errorf("%w: %s", retrieval.ErrRunNotFound, id)
}

func (m *mockRetrievalService) ListRuns() []*models.Run {
	if m.listRunsFunc != nil {
		return m.listRunsFunc()
	}
	return nil
}

func (m *mockRetrievalService) CancelRun(id string) error {
	if m.cancelRunFunc != nil {
		return m.cancelRunFunc(id)
	}
	return nil
}

func (m *mockRetrievalService) Events(id string) (<-chan models.ProgressEvent, error) {
	if m.eventsFunc != nil {
		return m.eventsFunc(id)
	}
	return nil, fmt.Errorf("%w: %s", retrieval.ErrRunNotFound, id)
}

func (m *mockRetrievalService) Shutdown(ctx context.Context) error { return nil }

func TestCreateRunHandler_Accepted(t *testing.T) {
	var captured *models.RunRequest
	mockService := &mockRetrievalService{
		startRunFunc: func(ctx context.Context, req *models.RunRequest) (string, error) {
			captured = req
			return "run-42", nil
		},
	}

	handler := NewRunHandler(mockService, &mockCatalogService{}, nil)
	body := `{"company_name":"Reliance Industries","symbol":"RELIANCE","start_year":2020,"end_year":2023}`
	req := httptest.NewRequest("POST", "/api/runs", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.CreateRunHandler(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d: %s", rec.Code, rec.Body.String())
	}

	var response map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if response["run_id"] != "run-42" {
		t.Errorf("Expected run_id 'run-42', got %v", response["run_id"])
	}
	if response["status"] != "accepted" {
		t.Errorf("Expected status 'accepted', got %v", response["status"])
	}

	if captured == nil {
		t.Fatal("Expected StartRun to be called")
	}
	if captured.Symbol != "RELIANCE" || captured.StartYear != 2020 || captured.EndYear != 2023 {
		t.Errorf("Request not passed through: %+v", captured)
	}
}

func TestCreateRunHandler_SymbolOnlyEnrichedFromCatalog(t *testing.T) {
	var captured *models.RunRequest
	mockService := &mockRetrievalService{
		startRunFunc: func(ctx context.Context, req *models.RunRequest) (string, error) {
			captured = req
			return "run-7", nil
		},
	}
	catalog := &mockCatalogService{
		getBySymbolFunc: func(ctx context.Context, symbol string) (*models.Company, error) {
			if symbol != "TATAMOTORS" {
				t.Errorf("Expected lookup for TATAMOTORS, got %s", symbol)
			}
			return testCompany("TATAMOTORS", "Tata Motors", "TATAMOTORS"), nil
		},
	}

	handler := NewRunHandler(mockService, catalog, nil)
	body := `{"symbol":"TATAMOTORS","start_year":2021,"end_year":2022}`
	req := httptest.NewRequest("POST", "/api/runs", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.CreateRunHandler(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d: %s", rec.Code, rec.Body.String())
	}

	if captured.CompanyName != "Tata Motors" {
		t.Errorf("Expected company name filled from catalog, got %q", captured.CompanyName)
	}
	if captured.CompanyID != "TATAMOTORS" {
		t.Errorf("Expected company ID filled from catalog, got %q", captured.CompanyID)
	}
}

func TestCreateRunHandler_InvalidBody(t *testing.T) {
	var called bool
	mockService := &mockRetrievalService{
		startRunFunc: func(ctx context.Context, req *models.RunRequest) (string, error) {
			called = true
			return "", nil
		},
	}

	handler := NewRunHandler(mockService, &mockCatalogService{}, nil)

	bodies := []string{
		`{not json`,
		`{"symbol":"X","unknown_field":true}`,
	}
	for _, body := range bodies {
		req := httptest.NewRequest("POST", "/api/runs", strings.NewReader(body))
		rec := httptest.NewRecorder()

		handler.CreateRunHandler(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected status 400, got %d", body, rec.Code)
		}
	}

	if called {
		t.Error("Expected StartRun not to be called for invalid bodies")
	}
}

func TestCreateRunHandler_ValidationRejected(t *testing.T) {
	mockService := &mockRetrievalService{
		startRunFunc: func(ctx context.Context, req *models.RunRequest) (string, error) {
			return "", req.Validate()
		},
	}

	handler := NewRunHandler(mockService, &mockCatalogService{}, nil)
	// end_year before start_year
	body := `{"company_name":"Acme","symbol":"ACME","start_year":2023,"end_year":2020}`
	req := httptest.NewRequest("POST", "/api/runs", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.CreateRunHandler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestListRunsHandler(t *testing.T) {
	mockService := &mockRetrievalService{
		listRunsFunc: func() []*models.Run {
			return []*models.Run{
				{ID: "run-2", Company: "Tata Motors", Status: models.RunStatusRunning},
				{ID: "run-1", Company: "Reliance Industries", Status: models.RunStatusCompleted},
			}
		},
	}

	handler := NewRunHandler(mockService, &mockCatalogService{}, nil)
	req := httptest.NewRequest("GET", "/api/runs", nil)
	rec := httptest.NewRecorder()

	handler.ListRunsHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var response map[string]interface{}
	json.NewDecoder(rec.Body).Decode(&response)

	if int(response["count"].(float64)) != 2 {
		t.Errorf("Expected count 2, got %v", response["count"])
	}

	runs := response["runs"].([]interface{})
	first := runs[0].(map[string]interface{})
	if first["id"] != "run-2" {
		t.Errorf("Expected newest run first, got %v", first["id"])
	}
}

func TestGetRunHandler(t *testing.T) {
	mockService := &mockRetrievalService{
		getRunFunc: func(id string) (*models.Run, error) {
			if id == "run-1" {
				return &models.Run{ID: "run-1", Company: "Acme Industries", Status: models.RunStatusRunning}, nil
			}
			return nil, fmt.Errorf("%w: %s", retrieval.ErrRunNotFound, id)
		},
	}

	handler := NewRunHandler(mockService, &mockCatalogService{}, nil)

	req := httptest.NewRequest("GET", "/api/runs/run-1", nil)
	rec := httptest.NewRecorder()
	handler.GetRunHandler(rec, req, "run-1")

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}

	var run map[string]interface{}
	json.NewDecoder(rec.Body).Decode(&run)
	if run["id"] != "run-1" {
		t.Errorf("Expected run id 'run-1', got %v", run["id"])
	}

	req = httptest.NewRequest("GET", "/api/runs/missing", nil)
	rec = httptest.NewRecorder()
	handler.GetRunHandler(rec, req, "missing")

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown run, got %d", rec.Code)
	}
}

func TestCancelRunHandler(t *testing.T) {
	tests := []struct {
		name       string
		cancelErr  error
		wantStatus int
	}{
		{"Cancelled", nil, http.StatusOK},
		{"Not found", fmt.Errorf("%w: run-9", retrieval.ErrRunNotFound), http.StatusNotFound},
		{"Already finished", fmt.Errorf("%w: run-9", retrieval.ErrRunFinished), http.StatusConflict},
		{"Internal error", &mockError{msg: "store closed"}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &mockRetrievalService{
				cancelRunFunc: func(id string) error {
					return tt.cancelErr
				},
			}

			handler := NewRunHandler(mockService, &mockCatalogService{}, nil)
			req := httptest.NewRequest("DELETE", "/api/runs/run-9", nil)
			rec := httptest.NewRecorder()

			handler.CancelRunHandler(rec, req, "run-9")

			if rec.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}
}

func TestCancelRunHandler_MethodNotAllowed(t *testing.T) {
	handler := NewRunHandler(&mockRetrievalService{}, &mockCatalogService{}, nil)
	req := httptest.NewRequest("GET", "/api/runs/run-1", nil)
	rec := httptest.NewRecorder()

	handler.CancelRunHandler(rec, req, "run-1")

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", rec.Code)
	}
}
