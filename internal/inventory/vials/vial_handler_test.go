package vials

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Archer-177/HighCostAtWork/internal/inventory/stocks"
	custom_error "github.com/Archer-177/HighCostAtWork/pkg/errors"
	"github.com/Archer-177/HighCostAtWork/pkg/metadata"
	"github.com/Archer-177/HighCostAtWork/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type MockVialService struct {
	mock.Mock
}

func (m *MockVialService) Receive(ctx context.Context, req ReceiveRequest) (*ReceiveResult, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ReceiveResult), args.Error(1)
}

func (m *MockVialService) Use(ctx context.Context, req UseRequest) (*TransitionResult, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*TransitionResult), args.Error(1)
}

func (m *MockVialService) Discard(ctx context.Context, req DiscardRequest) (*TransitionResult, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*TransitionResult), args.Error(1)
}

func (m *MockVialService) GetVial(ctx context.Context, id int) (*models.VialView, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.VialView), args.Error(1)
}

func (m *MockVialService) FindByAssetID(ctx context.Context, assetID string) (*models.VialView, error) {
	args := m.Called(assetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.VialView), args.Error(1)
}

func (m *MockVialService) Search(ctx context.Context, filter VialFilter) ([]models.VialView, error) {
	args := m.Called(filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.VialView), args.Error(1)
}

func (m *MockVialService) Journey(ctx context.Context, assetID string) (*models.VialJourney, error) {
	args := m.Called(assetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.VialJourney), args.Error(1)
}

type MockSink struct {
	mock.Mock
}

func (m *MockSink) Dispatch(ctx context.Context, alerts []stocks.Alert) {
	m.Called(alerts)
}

func setupRouter(s Service, sink stocks.Sink, role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	group := router.Group("", func(c *gin.Context) {
		c.Set("userID", "11")
		c.Set("role", role)
		c.Next()
	})
	NewVialHandler(s, sink, zap.NewNop()).RegisterRoutes(group)
	return router
}

func TestUseVialHandler(t *testing.T) {
	low := stocks.Evaluate(stocks.Snapshot{DrugName: "Tenecteplase", LocationName: "ED", AvailableCount: 0, MinStock: 1, Configured: true})

	tests := []struct {
		name           string
		path           string
		payload        string
		setupMock      func(s *MockVialService, sink *MockSink)
		expectedStatus int
	}{
		{
			name:    "used and alert forwarded",
			path:    "/vials/4/use",
			payload: `{"version":1,"patient_mrn":"MRN-1234"}`,
			setupMock: func(s *MockVialService, sink *MockSink) {
				s.On("Use", UseRequest{VialID: 4, Version: 1, PatientMRN: "MRN-1234", UserID: 11}).
					Return(&TransitionResult{Vial: models.Vial{ID: 4, Status: metadata.VialUsedClinical, Version: 2}, Stock: low}, nil)
				sink.On("Dispatch", []stocks.Alert{{DrugName: "Tenecteplase", LocationName: "ED", AvailableCount: 0, MinStock: 1}}).Return()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:    "already used",
			path:    "/vials/4/use",
			payload: `{"version":2,"patient_mrn":"MRN-1234"}`,
			setupMock: func(s *MockVialService, sink *MockSink) {
				s.On("Use", mock.Anything).Return(nil, custom_error.InvalidState("vial", 4, "vial is USED_CLINICAL"))
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "missing version",
			path:           "/vials/4/use",
			payload:        `{"patient_mrn":"MRN-1234"}`,
			setupMock:      func(s *MockVialService, sink *MockSink) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:    "discard with bad reason",
			path:    "/vials/4/discard",
			payload: `{"version":1,"reason":"melted","disposal_register_number":"DR-1"}`,
			setupMock: func(s *MockVialService, sink *MockSink) {
				s.On("Discard", mock.Anything).Return(nil, custom_error.Validation("reason", "value not valid"))
			},
			expectedStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, sink := new(MockVialService), new(MockSink)
			tt.setupMock(s, sink)
			router := setupRouter(s, sink, "NURSE")

			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodPost, tt.path, bytes.NewBufferString(tt.payload))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			s.AssertExpectations(t)
			sink.AssertExpectations(t)
		})
	}
}

func TestReceiveStockRequiresPharmacyStaff(t *testing.T) {
	s, sink := new(MockVialService), new(MockSink)
	router := setupRouter(s, sink, "NURSE")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/stock/receive", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	s.AssertNotCalled(t, "Receive", mock.Anything)
}

func TestVialReadHandlers(t *testing.T) {
	s, sink := new(MockVialService), new(MockSink)
	s.On("Journey", "TEN-PORTA-1-ABCDEF12").Return(nil, custom_error.NotFound("vial", 0))
	s.On("GetVial", 7).Return(&models.VialView{Vial: models.Vial{ID: 7}, DrugName: "Tenecteplase"}, nil)
	s.On("Search", VialFilter{Status: "AVAILABLE", LocationID: 3}).Return([]models.VialView{}, nil)
	router := setupRouter(s, sink, "NURSE")

	for path, status := range map[string]int{
		"/vials/asset/TEN-PORTA-1-ABCDEF12/journey": http.StatusNotFound,
		"/vials/7":                                  http.StatusOK,
		"/vials?status=AVAILABLE&location_id=3":     http.StatusOK,
	} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, path, nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, status, w.Code, path)
	}

	s.AssertExpectations(t)
}
