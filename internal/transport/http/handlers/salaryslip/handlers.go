package salarysliphandler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"salaryslip/internal/domain/auth"
	"salaryslip/internal/domain/salaryslip"
	cryptoutil "salaryslip/internal/platform/crypto"
	"salaryslip/internal/platform/metrics"
	"salaryslip/internal/transport/http/api"
	"salaryslip/internal/transport/http/middleware"
)

// ZoneInvalidator drops cached lookup answers for a station.
type ZoneInvalidator interface {
	Invalidate(ctx context.Context, station string) error
}

type Handler struct {
	Processor *salaryslip.Processor
	Zones     salaryslip.ZoneLookup
	Registry  salaryslip.ZoneRegistry
	Cache     ZoneInvalidator
	Sealer    *cryptoutil.Sealer
	Metrics   *metrics.Collector
	Now       func() time.Time

	validate *validator.Validate
}

func NewHandler(zones salaryslip.ZoneLookup, sealer *cryptoutil.Sealer, collector *metrics.Collector) *Handler {
	return &Handler{
		Processor: salaryslip.NewProcessor(zones),
		Zones:     zones,
		Sealer:    sealer,
		Metrics:   collector,
		Now:       time.Now,
		validate:  newValidator(),
	}
}

type employeePayload struct {
	Wage         decimal.Decimal `json:"wage"`
	WorkingDays  int             `json:"workingDays" validate:"gte=0,lte=366"`
	WorkPlatform string          `json:"workPlatform" validate:"max=32"`
	IsDanger     bool            `json:"isDanger"`
	DutyStation  string          `json:"dutyStation" validate:"max=128"`
}

func (p employeePayload) employee() *salaryslip.Employee {
	return &salaryslip.Employee{
		Wage:         p.Wage,
		WorkingDays:  p.WorkingDays,
		WorkPlatform: salaryslip.ParseWorkPlatform(p.WorkPlatform),
		IsDanger:     p.IsDanger,
		DutyStation:  p.DutyStation,
	}
}

// A missing workPlatform is not read as office.
const unknownPlatformMessage = "workPlatform must be one of office, remote, hybrid; there is no default"

type AmountResponse struct {
	Operation string          `json:"operation"`
	Amount    decimal.Decimal `json:"amount"`
}

type zonePayload struct {
	Station string `json:"station" validate:"required,max=128"`
}

type ZoneListResponse struct {
	Stations []string `json:"stations"`
}

type ZoneResponse struct {
	Station    string `json:"station"`
	DangerZone bool   `json:"dangerZone"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/salary-slips", func(r chi.Router) {
		r.Post("/basic-salary", h.handleBasicSalary)
		r.Post("/transportation-allowance", h.handleTransportationAllowance)
		r.Post("/danger-pay", h.handleDangerPay)
		r.Post("/calculate", h.handleCalculate)
		r.Post("/calculate/pdf", h.handleCalculatePDF)
	})
	r.Get("/danger-zones", h.handleListDangerZones)
	r.With(middleware.RequireRole(auth.RolePayroll)).Post("/danger-zones", h.handleAddDangerZone)
	r.Get("/danger-zones/{station}", h.handleDangerZone)
}

func (h *Handler) handleBasicSalary(w http.ResponseWriter, r *http.Request) {
	employee, ok := h.decodeEmployee(w, r)
	if !ok {
		return
	}
	amount, err := h.Processor.CalculateBasicSalary(employee)
	h.writeAmount(w, r, salaryslip.OpBasicSalary, amount, err)
}

func (h *Handler) handleTransportationAllowance(w http.ResponseWriter, r *http.Request) {
	employee, ok := h.decodeEmployee(w, r)
	if !ok {
		return
	}
	amount, err := h.Processor.CalculateTransportationAllowance(employee)
	h.writeAmount(w, r, salaryslip.OpTransportationAllowance, amount, err)
}

func (h *Handler) handleDangerPay(w http.ResponseWriter, r *http.Request) {
	employee, ok := h.decodeEmployee(w, r)
	if !ok {
		return
	}
	amount, err := h.Processor.CalculateDangerPay(r.Context(), employee)
	h.writeAmount(w, r, salaryslip.OpDangerPay, amount, err)
}

func (h *Handler) handleCalculate(w http.ResponseWriter, r *http.Request) {
	employee, ok := h.decodeEmployee(w, r)
	if !ok {
		return
	}
	slip, err := h.Processor.Compute(r.Context(), employee)
	h.record(salaryslip.OpCompute, err)
	if err != nil {
		h.writeCalcError(w, r, salaryslip.OpCompute, err)
		return
	}
	api.Success(w, slip, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCalculatePDF(w http.ResponseWriter, r *http.Request) {
	employee, ok := h.decodeEmployee(w, r)
	if !ok {
		return
	}
	slip, err := h.Processor.Compute(r.Context(), employee)
	h.record(salaryslip.OpCompute, err)
	if err != nil {
		h.writeCalcError(w, r, salaryslip.OpCompute, err)
		return
	}

	var buf bytes.Buffer
	if err := salaryslip.RenderPDF(&buf, employee, slip, h.Now()); err != nil {
		slog.Error("render salary slip failed", "slipId", slip.ID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "slip_render_failed", "failed to render salary slip", middleware.GetRequestID(r.Context()))
		return
	}

	body := buf.Bytes()
	contentType := "application/pdf"
	filename := slip.ID + ".pdf"
	if h.Sealer.Configured() {
		sealed, err := h.Sealer.Seal(body, slip.ID)
		if err != nil {
			slog.Error("seal salary slip failed", "slipId", slip.ID, "err", err)
			api.Fail(w, http.StatusInternalServerError, "slip_seal_failed", "failed to seal salary slip", middleware.GetRequestID(r.Context()))
			return
		}
		body = sealed
		contentType = "application/octet-stream"
		filename += ".enc"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("X-Slip-ID", slip.ID)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *Handler) handleDangerZone(w http.ResponseWriter, r *http.Request) {
	station := chi.URLParam(r, "station")
	if h.Zones == nil {
		api.Fail(w, http.StatusInternalServerError, "zone_lookup_unset", "zone lookup is not configured", middleware.GetRequestID(r.Context()))
		return
	}
	inZone, err := h.Zones.IsDangerZone(r.Context(), station)
	if err != nil {
		slog.Error("zone lookup failed", "station", station, "err", err)
		api.Fail(w, http.StatusBadGateway, "zone_lookup_failed", "zone lookup failed", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, ZoneResponse{Station: station, DangerZone: inZone}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListDangerZones(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	if h.Registry == nil {
		api.Fail(w, http.StatusNotImplemented, "zone_registry_unavailable", "danger zone list is not available", reqID)
		return
	}
	stations, err := h.Registry.List(r.Context())
	if err != nil {
		slog.Error("list danger zones failed", "err", err)
		api.Fail(w, http.StatusBadGateway, "zone_list_failed", "failed to list danger zones", reqID)
		return
	}
	if stations == nil {
		stations = []string{}
	}
	api.Success(w, ZoneListResponse{Stations: stations}, reqID)
}

func (h *Handler) handleAddDangerZone(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	if h.Registry == nil {
		api.Fail(w, http.StatusNotImplemented, "zone_registry_unavailable", "danger zone list is not available", reqID)
		return
	}

	var payload zonePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_json", "invalid danger zone payload", reqID)
		return
	}
	payload.Station = strings.TrimSpace(payload.Station)
	if err := h.validate.Struct(payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "validation_failed", "station is required and at most 128 characters", reqID)
		return
	}

	if err := h.Registry.Add(r.Context(), payload.Station); err != nil {
		if errors.Is(err, salaryslip.ErrZoneRegistryReadOnly) {
			api.Fail(w, http.StatusConflict, "zone_registry_read_only", err.Error(), reqID)
			return
		}
		slog.Error("add danger zone failed", "station", payload.Station, "err", err)
		api.Fail(w, http.StatusBadGateway, "zone_add_failed", "failed to add danger zone", reqID)
		return
	}
	if h.Cache != nil {
		if err := h.Cache.Invalidate(r.Context(), payload.Station); err != nil {
			slog.Warn("zone cache invalidate failed", "station", payload.Station, "err", err)
		}
	}
	slog.Info("danger zone added", "station", payload.Station, "requestId", reqID)
	api.WriteJSON(w, http.StatusCreated, api.Envelope{Success: true, Data: ZoneResponse{Station: payload.Station, DangerZone: true}, RequestID: reqID})
}

func (h *Handler) decodeEmployee(w http.ResponseWriter, r *http.Request) (*salaryslip.Employee, bool) {
	reqID := middleware.GetRequestID(r.Context())
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large", reqID)
			return nil, false
		}
		api.Fail(w, http.StatusBadRequest, "invalid_body", "failed to read request body", reqID)
		return nil, false
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		api.Fail(w, http.StatusBadRequest, "invalid_json", "employee is required", reqID)
		return nil, false
	}

	var payload employeePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_json", "invalid employee payload", reqID)
		return nil, false
	}
	if issues := h.validatePayload(payload); len(issues) > 0 {
		api.FailWithDetails(w, http.StatusBadRequest, "validation_failed", "invalid employee", issues, reqID)
		return nil, false
	}
	return payload.employee(), true
}

func (h *Handler) writeAmount(w http.ResponseWriter, r *http.Request, op string, amount decimal.Decimal, err error) {
	h.record(op, err)
	if err != nil {
		h.writeCalcError(w, r, op, err)
		return
	}
	api.Success(w, AmountResponse{Operation: op, Amount: amount}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) writeCalcError(w http.ResponseWriter, r *http.Request, op string, err error) {
	reqID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, salaryslip.ErrNilEmployee):
		api.Fail(w, http.StatusBadRequest, "employee_required", err.Error(), reqID)
	case errors.Is(err, salaryslip.ErrUnknownWorkPlatform):
		api.Fail(w, http.StatusUnprocessableEntity, "unknown_work_platform", unknownPlatformMessage, reqID)
	case errors.Is(err, salaryslip.ErrZoneLookupUnset):
		slog.Error("danger pay requested without zone lookup", "op", op, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, "zone_lookup_unset", err.Error(), reqID)
	case errors.Is(err, salaryslip.ErrZoneLookupFailed):
		slog.Error("zone lookup failed", "op", op, "requestId", reqID, "err", err)
		api.Fail(w, http.StatusBadGateway, "zone_lookup_failed", "zone lookup failed", reqID)
	default:
		slog.Error("calculation failed", "op", op, "requestId", reqID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "calculation_failed", "calculation failed", reqID)
	}
}

func (h *Handler) record(op string, err error) {
	if h.Metrics != nil {
		h.Metrics.RecordCalculation(op, err)
	}
}
