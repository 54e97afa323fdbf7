package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/despatchhub/despatch-service/internal/document"
	"github.com/despatchhub/despatch-service/internal/entities"
	"github.com/despatchhub/despatch-service/internal/service"
	"github.com/despatchhub/despatch-service/pkg/utils"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// DespatchService is everything the HTTP surface needs from the
// application layer.
type DespatchService interface {
	Process(ctx context.Context, req service.ProcessRequest) (service.ProcessResult, error)
	GetDespatch(ctx context.Context, despatchID string) (entities.DespatchAdvice, error)
	GetDespatchXML(ctx context.Context, despatchID string) (string, error)
	ValidateDespatch(ctx context.Context, despatchID string) (service.ValidationReport, error)
	UpdateDespatch(ctx context.Context, despatchID, xml string, status *string) error
	DeleteDespatch(ctx context.Context, despatchID string) error
	CreateDespatchLine(ctx context.Context, despatchID string, req service.LineRequest) (entities.DespatchLine, entities.LineTotals, error)
	CreateShipment(ctx context.Context, sh *entities.Shipment) error

	CreateOrder(ctx context.Context, raw string, supplier *entities.PartySnapshot) (entities.Order, []string, error)
	GetOrder(ctx context.Context, key string) (entities.Order, error)
	ValidateStoredOrder(ctx context.Context, key string) (service.ValidationReport, error)
}

type HTTPHandler struct {
	logger   *slog.Logger
	validate *validator.Validate
	svc      DespatchService
}

func NewHTTPHandler(logger *slog.Logger, svc DespatchService) *HTTPHandler {
	return &HTTPHandler{
		logger:   logger.With(slog.String("handler", "http")),
		validate: validator.New(),
		svc:      svc,
	}
}

func (h *HTTPHandler) Init(r chi.Router) {
	r.Route("/despatch", func(r chi.Router) {
		r.Post("/", h.CreateDespatch)
		r.Route("/{despatch_id}", func(r chi.Router) {
			r.Get("/", h.GetDespatch)
			r.Put("/", h.UpdateDespatch)
			r.Delete("/", h.DeleteDespatch)
			r.Get("/xml", h.GetDespatchXML)
			r.Get("/validate", h.ValidateDespatch)
			r.Put("/lines", h.CreateDespatchLine)
		})
	})
	r.Route("/order", func(r chi.Router) {
		r.Post("/", h.CreateOrder)
		r.Get("/{order_id}", h.GetOrder)
		r.Get("/{order_id}/validate", h.ValidateOrder)
	})
	r.Put("/shipment/{shipment_id}", h.CreateShipment)
}

// CreateDespatch runs the full assembly pipeline.
// @Summary      Create a despatch advice from an order document
// @Description  Validates the order document, creates the order and assembles a despatch advice
// @Tags         despatch
// @Accept       json
// @Produce      json
// @Param        request  body      ProcessRequest  true  "Order document with despatch options"
// @Success      201  {object}  ProcessResponse
// @Failure      400  {object}  utils.ErrorResponse "Validation failed"
// @Failure      409  {object}  utils.ErrorResponse "Duplicate shipment"
// @Failure      500  {object}  utils.ErrorResponse "Internal server error"
// @Router       /despatch [post]
func (h *HTTPHandler) CreateDespatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ProcessRequest
	if err := utils.DecodeBody(r, &req); err != nil {
		utils.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	res, err := h.svc.Process(ctx, service.ProcessRequest{
		Document: req.XMLDoc,
		Shipment: req.Shipment,
		Supplier: req.Supplier,
		Meta: service.DespatchMeta{
			Note:         req.Despatch.Note,
			SalesOrderID: req.Despatch.SalesOrderID,
			Lines:        req.Despatch.Lines,
		},
	})
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to process despatch request")
		return
	}

	despatchesCreated.Inc()
	utils.WriteJSON(w, ProcessResultToJSON(res), http.StatusCreated)
}

// GetDespatch returns a stored despatch advice record.
// @Summary      Get despatch advice
// @Tags         despatch
// @Produce      json
// @Param        despatch_id  path  string  true  "Despatch identifier"
// @Success      200  {object}  Despatch
// @Failure      404  {object}  utils.ErrorResponse "Despatch not found"
// @Router       /despatch/{despatch_id} [get]
func (h *HTTPHandler) GetDespatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	despatchID := chi.URLParam(r, "despatch_id")

	adv, err := h.svc.GetDespatch(ctx, despatchID)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to get despatch")
		return
	}
	utils.WriteJSON(w, DespatchEntityToJSON(adv), http.StatusOK)
}

// GetDespatchXML returns the rendered document of a despatch advice.
// @Summary      Get despatch advice XML
// @Tags         despatch
// @Produce      xml
// @Param        despatch_id  path  string  true  "Despatch identifier"
// @Success      200  {string}  string "UBL despatch advice document"
// @Failure      404  {object}  utils.ErrorResponse "Despatch not found"
// @Router       /despatch/{despatch_id}/xml [get]
func (h *HTTPHandler) GetDespatchXML(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	despatchID := chi.URLParam(r, "despatch_id")

	xml, err := h.svc.GetDespatchXML(ctx, despatchID)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to get despatch xml")
		return
	}
	utils.WriteXML(w, xml, http.StatusOK)
}

// ValidateDespatch re-validates the stored document.
// @Summary      Validate despatch advice
// @Tags         despatch
// @Produce      json
// @Param        despatch_id  path  string  true  "Despatch identifier"
// @Success      200  {object}  ValidationReport
// @Failure      404  {object}  utils.ErrorResponse "Despatch not found"
// @Router       /despatch/{despatch_id}/validate [get]
func (h *HTTPHandler) ValidateDespatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	despatchID := chi.URLParam(r, "despatch_id")

	report, err := h.svc.ValidateDespatch(ctx, despatchID)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to validate despatch")
		return
	}
	utils.WriteJSON(w, ReportToJSON(report), http.StatusOK)
}

// UpdateDespatch replaces the stored document of a despatch advice.
// @Summary      Update despatch advice document
// @Tags         despatch
// @Accept       json
// @Produce      json
// @Param        despatch_id  path  string                 true  "Despatch identifier"
// @Param        request      body  UpdateDespatchRequest  true  "Replacement document"
// @Success      200  {object}  utils.ErrorResponse "Updated"
// @Failure      400  {object}  utils.ErrorResponse "Malformed document"
// @Failure      404  {object}  utils.ErrorResponse "Despatch not found"
// @Router       /despatch/{despatch_id} [put]
func (h *HTTPHandler) UpdateDespatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	despatchID := chi.URLParam(r, "despatch_id")

	var req UpdateDespatchRequest
	if err := utils.DecodeBody(r, &req); err != nil {
		utils.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	if err := h.svc.UpdateDespatch(ctx, despatchID, req.XML, req.Status); err != nil {
		h.writeServiceError(ctx, w, err, "failed to update despatch")
		return
	}
	utils.WriteJSON(w, map[string]string{"message": "despatch advice updated"}, http.StatusOK)
}

// DeleteDespatch removes a despatch advice.
// @Summary      Delete despatch advice
// @Tags         despatch
// @Produce      json
// @Param        despatch_id  path  string  true  "Despatch identifier"
// @Success      200  {object}  utils.ErrorResponse "Deleted"
// @Failure      404  {object}  utils.ErrorResponse "Despatch not found"
// @Router       /despatch/{despatch_id} [delete]
func (h *HTTPHandler) DeleteDespatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	despatchID := chi.URLParam(r, "despatch_id")

	if err := h.svc.DeleteDespatch(ctx, despatchID); err != nil {
		h.writeServiceError(ctx, w, err, "failed to delete despatch")
		return
	}
	utils.WriteJSON(w, map[string]string{"message": "despatch advice deleted"}, http.StatusOK)
}

// CreateDespatchLine appends a line to an existing despatch advice.
// @Summary      Add despatch line
// @Tags         despatch
// @Accept       json
// @Produce      json
// @Param        despatch_id  path  string               true  "Despatch identifier"
// @Param        request      body  service.LineRequest  true  "Line request, all fields required"
// @Success      201  {object}  CreateLineResponse
// @Failure      400  {object}  utils.ErrorResponse "Incomplete or invalid line"
// @Failure      404  {object}  utils.ErrorResponse "Despatch not found"
// @Router       /despatch/{despatch_id}/lines [put]
func (h *HTTPHandler) CreateDespatchLine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	despatchID := chi.URLParam(r, "despatch_id")

	var req service.LineRequest
	if err := utils.DecodeBody(r, &req); err != nil {
		utils.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	line, totals, err := h.svc.CreateDespatchLine(ctx, despatchID, req)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to create despatch line")
		return
	}

	utils.WriteJSON(w, CreateLineResponse{
		Line: LineEntityToJSON(line),
		Totals: LineTotals{
			Delivered:   totals.Delivered,
			BackOrdered: totals.BackOrdered,
			Count:       totals.Count,
		},
	}, http.StatusCreated)
}

// CreateShipment registers a shipment under the caller-chosen identifier.
// @Summary      Create shipment
// @Tags         shipment
// @Accept       json
// @Produce      json
// @Param        shipment_id  path  string             true  "Shipment identifier, SHIP- plus six digits"
// @Param        request      body  entities.Shipment  true  "Shipment details"
// @Success      201  {object}  entities.Shipment
// @Failure      400  {object}  utils.ErrorResponse "Invalid identifier format"
// @Failure      409  {object}  utils.ErrorResponse "Duplicate shipment"
// @Router       /shipment/{shipment_id} [put]
func (h *HTTPHandler) CreateShipment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	shipmentID := chi.URLParam(r, "shipment_id")

	var sh entities.Shipment
	if err := utils.DecodeBody(r, &sh); err != nil {
		utils.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	sh.ID = shipmentID

	if err := h.svc.CreateShipment(ctx, &sh); err != nil {
		h.writeServiceError(ctx, w, err, "failed to create shipment")
		return
	}
	utils.WriteJSON(w, sh, http.StatusCreated)
}

// CreateOrder stores an order document without assembling a despatch.
// @Summary      Create order from document
// @Tags         order
// @Accept       json
// @Produce      json
// @Param        request  body  CreateOrderRequest  true  "Order document"
// @Success      201  {object}  CreateOrderResponse
// @Failure      400  {object}  utils.ErrorResponse "Validation failed"
// @Router       /order [post]
func (h *HTTPHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateOrderRequest
	if err := utils.DecodeBody(r, &req); err != nil {
		utils.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	order, issues, err := h.svc.CreateOrder(ctx, req.XMLDoc, req.Supplier)
	if err != nil {
		var rej *service.Rejection
		if errors.As(err, &rej) && len(issues) > 0 {
			utils.WriteErrorWithIssues(w, rej.Message, issues, rej.Code)
			return
		}
		h.writeServiceError(ctx, w, err, "failed to create order")
		return
	}
	utils.WriteJSON(w, CreateOrderResponse{Order: OrderEntityToJSON(order)}, http.StatusCreated)
}

// GetOrder returns a stored order by document UUID or order id.
// @Summary      Get order
// @Tags         order
// @Produce      json
// @Param        order_id  path  string  true  "Order id or document UUID"
// @Success      200  {object}  Order
// @Failure      404  {object}  utils.ErrorResponse "Order not found"
// @Router       /order/{order_id} [get]
func (h *HTTPHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID := chi.URLParam(r, "order_id")

	if err := h.validate.Var(orderID, "required"); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	order, err := h.svc.GetOrder(ctx, orderID)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to get order")
		return
	}
	utils.WriteJSON(w, OrderEntityToJSON(order), http.StatusOK)
}

// ValidateOrder reports the issues of a stored order.
// @Summary      Validate stored order
// @Tags         order
// @Produce      json
// @Param        order_id  path  string  true  "Order id or document UUID"
// @Success      200  {object}  ValidationReport
// @Failure      404  {object}  utils.ErrorResponse "Order not found"
// @Router       /order/{order_id}/validate [get]
func (h *HTTPHandler) ValidateOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID := chi.URLParam(r, "order_id")

	report, err := h.svc.ValidateStoredOrder(ctx, orderID)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to validate order")
		return
	}
	utils.WriteJSON(w, ReportToJSON(report), http.StatusOK)
}

func (h *HTTPHandler) writeServiceError(ctx context.Context, w http.ResponseWriter, err error, logMsg string) {
	switch {
	case errors.Is(err, entities.ErrOrderNotFound):
		utils.WriteError(w, "order not found", http.StatusNotFound)
	case errors.Is(err, entities.ErrDespatchNotFound):
		utils.WriteError(w, "despatch advice not found", http.StatusNotFound)
	case errors.Is(err, document.ErrDocumentParse):
		utils.WriteError(w, err.Error(), http.StatusBadRequest)
	default:
		var rej *service.Rejection
		if errors.As(err, &rej) {
			if rej.Code >= http.StatusInternalServerError {
				h.logger.ErrorContext(ctx, logMsg, slog.Any("error", err))
			}
			utils.WriteErrorWithIssues(w, rej.Message, rej.Issues, rej.Code)
			return
		}
		h.logger.ErrorContext(ctx, logMsg, slog.Any("error", err))
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
	}
}
