package transfers

import (
	"bytes"
	"context"
	"encoding/json"
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

type MockTransferService struct {
	mock.Mock
}

func (m *MockTransferService) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CreateResult), args.Error(1)
}

func (m *MockTransferService) Approve(ctx context.Context, req ActionRequest) (*ActionResult, error) {
	return m.action("Approve", req)
}

func (m *MockTransferService) Complete(ctx context.Context, req ActionRequest) (*ActionResult, error) {
	return m.action("Complete", req)
}

func (m *MockTransferService) Cancel(ctx context.Context, req ActionRequest) (*ActionResult, error) {
	return m.action("Cancel", req)
}

func (m *MockTransferService) action(name string, req ActionRequest) (*ActionResult, error) {
	args := m.MethodCalled(name, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ActionResult), args.Error(1)
}

func (m *MockTransferService) GetTransfer(ctx context.Context, id int) (*models.Transfer, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transfer), args.Error(1)
}

func (m *MockTransferService) ListForLocation(ctx context.Context, locationID int, status string) ([]models.Transfer, error) {
	args := m.Called(locationID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Transfer), args.Error(1)
}

type MockSink struct {
	mock.Mock
}

func (m *MockSink) Dispatch(ctx context.Context, alerts []stocks.Alert) {
	m.Called(alerts)
}

func setupRouter(s Service, sink stocks.Sink) *gin.Engine {
	return setupRouterAs(s, sink, "PHARMACIST")
}

func setupRouterAs(s Service, sink stocks.Sink, role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	group := router.Group("", func(c *gin.Context) {
		c.Set("userID", "12")
		c.Set("role", role)
		c.Next()
	})
	NewTransferHandler(s, sink, zap.NewNop()).RegisterRoutes(group)
	return router
}

func lowStock() stocks.Result {
	return stocks.Evaluate(stocks.Snapshot{
		LocationID: 1, LocationName: "Port Augusta Hospital",
		DrugID: 2, DrugName: "Tenecteplase",
		AvailableCount: 1, MinStock: 2, Configured: true,
	})
}

func TestCreateTransferHandler(t *testing.T) {
	tests := []struct {
		name           string
		payload        string
		setupMock      func(m *MockTransferService, sink *MockSink)
		expectedStatus int
	}{
		{
			name:    "created and alerts dispatched",
			payload: `{"from_location_id":1,"to_location_id":3,"vial_ids":[5,6]}`,
			setupMock: func(m *MockTransferService, sink *MockSink) {
				m.On("Create", CreateRequest{FromLocationID: 1, ToLocationID: 3, VialIDs: []int{5, 6}, CreatedBy: 12}).
					Return(&CreateResult{
						Transfer: models.Transfer{ID: 8, Status: metadata.TransferInTransit, Version: 1},
						Stock:    []stocks.Result{lowStock()},
					}, nil)
				sink.On("Dispatch", mock.MatchedBy(func(alerts []stocks.Alert) bool {
					return len(alerts) == 1 && alerts[0].AvailableCount == 1
				})).Return()
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "missing vial ids",
			payload:        `{"from_location_id":1,"to_location_id":3}`,
			setupMock:      func(m *MockTransferService, sink *MockSink) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:    "vial not eligible",
			payload: `{"from_location_id":1,"to_location_id":3,"vial_ids":[5]}`,
			setupMock: func(m *MockTransferService, sink *MockSink) {
				m.On("Create", mock.Anything).Return(nil, custom_error.InvalidVial([]int{5}, "vials must be AVAILABLE at location 1"))
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name:    "blocked route",
			payload: `{"from_location_id":1,"to_location_id":3,"vial_ids":[5]}`,
			setupMock: func(m *MockTransferService, sink *MockSink) {
				m.On("Create", mock.Anything).Return(nil, custom_error.Validation("to_location_id", "not permitted"))
			},
			expectedStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, sink := new(MockTransferService), new(MockSink)
			tt.setupMock(m, sink)
			router := setupRouter(m, sink)

			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodPost, "/transfers", bytes.NewBufferString(tt.payload))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			m.AssertExpectations(t)
			sink.AssertExpectations(t)
		})
	}
}

func TestTransferActionHandlers(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		method         string
		result         *ActionResult
		err            error
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "approve",
			path:           "/transfers/4/approve",
			method:         "Approve",
			result:         &ActionResult{Transfer: models.Transfer{ID: 4, Status: metadata.TransferInTransit, Version: 2}},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "approve by the creator",
			path:           "/transfers/4/approve",
			method:         "Approve",
			err:            custom_error.NotAuthorized("a transfer cannot be approved by the user who created it"),
			expectedStatus: http.StatusForbidden,
			expectedCode:   "NOT_AUTHORIZED",
		},
		{
			name:           "complete with stale version",
			path:           "/transfers/4/complete",
			method:         "Complete",
			err:            custom_error.VersionConflict("transfer", 4, 2, 3),
			expectedStatus: http.StatusConflict,
			expectedCode:   "VERSION_CONFLICT",
		},
		{
			name:           "cancel a completed transfer",
			path:           "/transfers/4/cancel",
			method:         "Cancel",
			err:            custom_error.InvalidState("transfer", 4, "transfer is COMPLETED"),
			expectedStatus: http.StatusConflict,
			expectedCode:   "INVALID_STATE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, sink := new(MockTransferService), new(MockSink)
			req := ActionRequest{TransferID: 4, Version: 2, UserID: 12}
			if tt.err != nil {
				m.On(tt.method, req).Return(nil, tt.err)
			} else {
				m.On(tt.method, req).Return(tt.result, nil)
				sink.On("Dispatch", []stocks.Alert{}).Return()
			}
			router := setupRouter(m, sink)

			w := httptest.NewRecorder()
			httpReq, _ := http.NewRequest(http.MethodPatch, tt.path, bytes.NewBufferString(`{"version":2}`))
			httpReq.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, httpReq)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedCode != "" {
				var body map[string]interface{}
				assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, tt.expectedCode, body["code"])
			}
			m.AssertExpectations(t)
			sink.AssertExpectations(t)
		})
	}
}

func TestTransferActionRequiresVersion(t *testing.T) {
	m, sink := new(MockTransferService), new(MockSink)
	router := setupRouter(m, sink)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPatch, "/transfers/4/approve", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	m.AssertNotCalled(t, "Approve", mock.Anything)
}

func TestApproveRequiresPharmacist(t *testing.T) {
	for _, role := range []string{"PHARMACY_TECH", "NURSE"} {
		t.Run(role, func(t *testing.T) {
			m, sink := new(MockTransferService), new(MockSink)
			router := setupRouterAs(m, sink, role)

			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodPatch, "/transfers/4/approve", bytes.NewBufferString(`{"version":2}`))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusForbidden, w.Code)
			m.AssertNotCalled(t, "Approve", mock.Anything)
		})
	}
}

func TestTechnicianCanCompleteTransfer(t *testing.T) {
	m, sink := new(MockTransferService), new(MockSink)
	m.On("Complete", ActionRequest{TransferID: 4, Version: 2, UserID: 12}).
		Return(&ActionResult{Transfer: models.Transfer{ID: 4, Status: metadata.TransferCompleted, Version: 3}}, nil)
	sink.On("Dispatch", []stocks.Alert{}).Return()
	router := setupRouterAs(m, sink, "PHARMACY_TECH")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPatch, "/transfers/4/complete", bytes.NewBufferString(`{"version":2}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	m.AssertExpectations(t)
}

func TestGetLocationTransfersHandler(t *testing.T) {
	m, sink := new(MockTransferService), new(MockSink)
	m.On("ListForLocation", 3, "PENDING").Return([]models.Transfer{{ID: 1, Status: metadata.TransferPending}}, nil)
	m.On("GetTransfer", 77).Return(nil, custom_error.NotFound("transfer", 77))
	router := setupRouter(m, sink)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/locations/3/transfers?status=PENDING", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var body []models.Transfer
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body, 1)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/transfers/77", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	m.AssertExpectations(t)
}
