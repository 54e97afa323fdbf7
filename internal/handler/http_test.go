package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/despatchhub/despatch-service/internal/entities"
	"github.com/despatchhub/despatch-service/internal/handler"
	"github.com/despatchhub/despatch-service/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubService implements handler.DespatchService with per-method
// function fields. A nil field means the endpoint under test must not
// reach that method.
type stubService struct {
	process        func(ctx context.Context, req service.ProcessRequest) (service.ProcessResult, error)
	getDespatch    func(ctx context.Context, id string) (entities.DespatchAdvice, error)
	getDespatchXML func(ctx context.Context, id string) (string, error)
	validate       func(ctx context.Context, id string) (service.ValidationReport, error)
	update         func(ctx context.Context, id, xml string, status *string) error
	delete         func(ctx context.Context, id string) error
	createLine     func(ctx context.Context, id string, req service.LineRequest) (entities.DespatchLine, entities.LineTotals, error)
	createShipment func(ctx context.Context, sh *entities.Shipment) error
	createOrder    func(ctx context.Context, raw string, supplier *entities.PartySnapshot) (entities.Order, []string, error)
	getOrder       func(ctx context.Context, key string) (entities.Order, error)
	validateOrder  func(ctx context.Context, key string) (service.ValidationReport, error)
}

func (s *stubService) Process(ctx context.Context, req service.ProcessRequest) (service.ProcessResult, error) {
	return s.process(ctx, req)
}

func (s *stubService) GetDespatch(ctx context.Context, id string) (entities.DespatchAdvice, error) {
	return s.getDespatch(ctx, id)
}

func (s *stubService) GetDespatchXML(ctx context.Context, id string) (string, error) {
	return s.getDespatchXML(ctx, id)
}

func (s *stubService) ValidateDespatch(ctx context.Context, id string) (service.ValidationReport, error) {
	return s.validate(ctx, id)
}

func (s *stubService) UpdateDespatch(ctx context.Context, id, xml string, status *string) error {
	return s.update(ctx, id, xml, status)
}

func (s *stubService) DeleteDespatch(ctx context.Context, id string) error {
	return s.delete(ctx, id)
}

func (s *stubService) CreateDespatchLine(ctx context.Context, id string, req service.LineRequest) (entities.DespatchLine, entities.LineTotals, error) {
	return s.createLine(ctx, id, req)
}

func (s *stubService) CreateShipment(ctx context.Context, sh *entities.Shipment) error {
	return s.createShipment(ctx, sh)
}

func (s *stubService) CreateOrder(ctx context.Context, raw string, supplier *entities.PartySnapshot) (entities.Order, []string, error) {
	return s.createOrder(ctx, raw, supplier)
}

func (s *stubService) GetOrder(ctx context.Context, key string) (entities.Order, error) {
	return s.getOrder(ctx, key)
}

func (s *stubService) ValidateStoredOrder(ctx context.Context, key string) (service.ValidationReport, error) {
	return s.validateOrder(ctx, key)
}

func serve(t *testing.T, svc *stubService, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := handler.NewHTTPHandler(logger, svc)

	r := chi.NewRouter()
	h.Init(r)

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestHTTPHandler_CreateDespatch(t *testing.T) {
	testCases := []struct {
		name       string
		body       string
		process    func(ctx context.Context, req service.ProcessRequest) (service.ProcessResult, error)
		wantStatus int
		wantBody   string
	}{
		{
			name: "success",
			body: `{"xml_doc":"<Order/>","despatch":{"note":"rush"}}`,
			process: func(_ context.Context, req service.ProcessRequest) (service.ProcessResult, error) {
				if req.Document != "<Order/>" || req.Meta.Note != "rush" {
					return service.ProcessResult{}, errors.New("unexpected request")
				}
				return service.ProcessResult{
					Despatch: service.DespatchSummary{DespatchID: "D-1A2B3C4D", Status: entities.DespatchStatusValid, Lines: 1},
					Order:    service.OrderSummary{OrderID: "ORD-1A2B3C4D"},
					XML:      "<DespatchAdvice/>",
					Validation: service.ValidationReport{Status: "Valid"},
				}, nil
			},
			wantStatus: http.StatusCreated,
			wantBody:   `"despatch_id":"D-1A2B3C4D"`,
		},
		{
			name:       "xml_doc must be a string",
			body:       `{"xml_doc":42}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `"invalid request body"`,
		},
		{
			name:       "xml_doc is required",
			body:       `{"despatch":{}}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `"XMLDoc"`,
		},
		{
			name: "validation rejection carries issues",
			body: `{"xml_doc":"<Order/>"}`,
			process: func(context.Context, service.ProcessRequest) (service.ProcessResult, error) {
				return service.ProcessResult{}, &service.Rejection{
					Code:    http.StatusBadRequest,
					Message: "Order validation failed",
					Issues:  []string{"Missing CustomerID"},
				}
			},
			wantStatus: http.StatusBadRequest,
			wantBody:   `"Missing CustomerID"`,
		},
		{
			name: "supplier failure",
			body: `{"xml_doc":"<Order/>"}`,
			process: func(context.Context, service.ProcessRequest) (service.ProcessResult, error) {
				return service.ProcessResult{}, &service.Rejection{
					Code:    http.StatusInternalServerError,
					Message: "Error: could not retrieve despatch supplier information.",
				}
			},
			wantStatus: http.StatusInternalServerError,
			wantBody:   `"Error: could not retrieve despatch supplier information."`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubService{process: tc.process}
			rr := serve(t, svc, http.MethodPost, "/despatch", tc.body)

			assert.Equal(t, tc.wantStatus, rr.Code)
			assert.Contains(t, rr.Body.String(), tc.wantBody)
		})
	}
}

func TestHTTPHandler_GetDespatchXML(t *testing.T) {
	t.Run("returns the document with xml content type", func(t *testing.T) {
		svc := &stubService{
			getDespatchXML: func(_ context.Context, id string) (string, error) {
				require.Equal(t, "D-1A2B3C4D", id)
				return "<DespatchAdvice/>", nil
			},
		}
		rr := serve(t, svc, http.MethodGet, "/despatch/D-1A2B3C4D/xml", "")

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "application/xml", rr.Header().Get("Content-Type"))
		assert.Equal(t, "<DespatchAdvice/>", rr.Body.String())
	})

	t.Run("not found", func(t *testing.T) {
		svc := &stubService{
			getDespatchXML: func(context.Context, string) (string, error) {
				return "", entities.ErrDespatchNotFound
			},
		}
		rr := serve(t, svc, http.MethodGet, "/despatch/D-FFFFFFFF/xml", "")

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Contains(t, rr.Body.String(), "despatch advice not found")
	})
}

func TestHTTPHandler_GetDespatch(t *testing.T) {
	svc := &stubService{
		getDespatch: func(_ context.Context, id string) (entities.DespatchAdvice, error) {
			return entities.DespatchAdvice{
				DespatchID: id,
				OrderID:    "ORD-1A2B3C4D",
				Status:     entities.DespatchStatusValid,
				Lines: []entities.DespatchLine{
					{LineID: "1", Status: entities.LineStatusCompleted, DeliveredQuantity: 2},
				},
			}, nil
		},
	}
	rr := serve(t, svc, http.MethodGet, "/despatch/D-1A2B3C4D", "")

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "D-1A2B3C4D", resp["despatch_id"])
	assert.Equal(t, "Valid", resp["status"])
}

func TestHTTPHandler_CreateDespatchLine(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := &stubService{
			createLine: func(_ context.Context, id string, req service.LineRequest) (entities.DespatchLine, entities.LineTotals, error) {
				require.Equal(t, "D-1A2B3C4D", id)
				require.NotNil(t, req.ID)
				return entities.DespatchLine{LineID: *req.ID, Status: entities.LineStatusRevised, DeliveredQuantity: 6, BackOrderQuantity: 4},
					entities.LineTotals{Delivered: 6, BackOrdered: 4, Count: 1}, nil
			},
		}
		body := `{"DeliveredQuantity":6,"BackOrderQuantity":0,"ID":"L1","Note":"","BackOrderReason":"shortage","LotNumber":7,"ExpiryDate":"2026-12-31"}`
		rr := serve(t, svc, http.MethodPut, "/despatch/D-1A2B3C4D/lines", body)

		assert.Equal(t, http.StatusCreated, rr.Code)
		assert.Contains(t, rr.Body.String(), `"backordered":4`)
	})

	t.Run("quantity rejection passes through verbatim", func(t *testing.T) {
		svc := &stubService{
			createLine: func(context.Context, string, service.LineRequest) (entities.DespatchLine, entities.LineTotals, error) {
				return entities.DespatchLine{}, entities.LineTotals{}, &service.Rejection{
					Code:    http.StatusBadRequest,
					Message: "Please re-enter an amount for quantity.",
				}
			},
		}
		rr := serve(t, svc, http.MethodPut, "/despatch/D-1A2B3C4D/lines", `{}`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "Please re-enter an amount for quantity.")
	})
}

func TestHTTPHandler_CreateShipment(t *testing.T) {
	t.Run("identifier comes from the path", func(t *testing.T) {
		var got entities.Shipment
		svc := &stubService{
			createShipment: func(_ context.Context, sh *entities.Shipment) error {
				got = *sh
				return nil
			},
		}
		rr := serve(t, svc, http.MethodPut, "/shipment/SHIP-123456", `{"ConsignmentID":"c-1"}`)

		assert.Equal(t, http.StatusCreated, rr.Code)
		assert.Equal(t, "SHIP-123456", got.ID)
		assert.Equal(t, "c-1", got.ConsignmentID)
	})

	t.Run("duplicate conflict", func(t *testing.T) {
		svc := &stubService{
			createShipment: func(context.Context, *entities.Shipment) error {
				return &service.Rejection{Code: http.StatusConflict, Message: "Duplicate shipment ID"}
			},
		}
		rr := serve(t, svc, http.MethodPut, "/shipment/SHIP-123456", `{}`)

		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.Contains(t, rr.Body.String(), "Duplicate shipment ID")
	})
}

func TestHTTPHandler_GetOrder(t *testing.T) {
	testCases := []struct {
		name       string
		orderID    string
		getOrder   func(ctx context.Context, key string) (entities.Order, error)
		wantStatus int
		wantBody   string
	}{
		{
			name:    "success",
			orderID: "ORD-1A2B3C4D",
			getOrder: func(_ context.Context, key string) (entities.Order, error) {
				return entities.Order{OrderID: key, Status: entities.OrderStatusCreated}, nil
			},
			wantStatus: http.StatusOK,
			wantBody:   `"order_id":"ORD-1A2B3C4D"`,
		},
		{
			name:    "not found",
			orderID: "ORD-FFFFFFFF",
			getOrder: func(context.Context, string) (entities.Order, error) {
				return entities.Order{}, entities.ErrOrderNotFound
			},
			wantStatus: http.StatusNotFound,
			wantBody:   `"order not found"`,
		},
		{
			name:    "internal error",
			orderID: "ORD-1A2B3C4D",
			getOrder: func(context.Context, string) (entities.Order, error) {
				return entities.Order{}, errors.New("db error")
			},
			wantStatus: http.StatusInternalServerError,
			wantBody:   `"internal server error"`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubService{getOrder: tc.getOrder}
			rr := serve(t, svc, http.MethodGet, "/order/"+tc.orderID, "")

			assert.Equal(t, tc.wantStatus, rr.Code)
			assert.Contains(t, rr.Body.String(), tc.wantBody)
		})
	}
}

func TestHTTPHandler_UpdateDespatch(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := &stubService{
			update: func(_ context.Context, id, xml string, status *string) error {
				require.Equal(t, "D-1A2B3C4D", id)
				require.Equal(t, "<DespatchAdvice/>", xml)
				require.Nil(t, status)
				return nil
			},
		}
		rr := serve(t, svc, http.MethodPut, "/despatch/D-1A2B3C4D", `{"xml":"<DespatchAdvice/>"}`)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("xml is required", func(t *testing.T) {
		svc := &stubService{}
		rr := serve(t, svc, http.MethodPut, "/despatch/D-1A2B3C4D", `{}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestHTTPHandler_DeleteDespatch(t *testing.T) {
	svc := &stubService{
		delete: func(_ context.Context, id string) error {
			require.Equal(t, "D-1A2B3C4D", id)
			return nil
		},
	}
	rr := serve(t, svc, http.MethodDelete, "/despatch/D-1A2B3C4D", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "despatch advice deleted")
}
