package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/reservation-desk/internal/application"
	"github.com/example/reservation-desk/internal/daterange"
)

type slotService interface {
	ListSlots(ctx context.Context, params application.ListSlotsParams) ([]application.SlotView, error)
	CreateSlot(ctx context.Context, params application.CreateSlotParams) (application.TimeSlot, error)
	CreateSlotBatch(ctx context.Context, params application.CreateSlotBatchParams) ([]application.TimeSlot, error)
	DeleteSlot(ctx context.Context, principal application.Principal, slotID string) error
	Reserve(ctx context.Context, principal application.Principal, slotID string) (application.SlotView, error)
	Cancel(ctx context.Context, principal application.Principal, reservationID string) error
}

// SlotHandler serves time slots and reservations.
type SlotHandler struct {
	service   slotService
	calendar  Calendar
	responder responder
	logger    *slog.Logger
}

func NewSlotHandler(service slotService, calendar Calendar, logger *slog.Logger) *SlotHandler {
	base := defaultLogger(logger)
	return &SlotHandler{service: service, calendar: calendar, responder: newResponder(base), logger: base}
}

func (h *SlotHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "SlotHandler", operation, attrs...)
}

func (h *SlotHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	projectID := strings.TrimSpace(r.PathValue("id"))
	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "List", "principal_id", principal.UserID, "project_id", projectID)

	q := r.URL.Query()
	_, from, to, err := h.calendar.dateRange(q)
	if err != nil {
		logger.ErrorContext(r.Context(), "invalid slot query", "error", err, "error_kind", "bad_request")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidQuery)
		return
	}
	availability, err := parseAvailability(q)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	views, err := h.service.ListSlots(r.Context(), application.ListSlotsParams{
		Principal:    principal,
		ProjectID:    projectID,
		From:         from,
		To:           to,
		Availability: availability,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "slot list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(views)).InfoContext(r.Context(), "slots listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listSlotsResponse{Slots: toSlotDTOs(views)})
}

func (h *SlotHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	projectID := strings.TrimSpace(r.PathValue("id"))
	principal, _ := PrincipalFromContext(r.Context())

	var req slotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode slot request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	slot, err := h.service.CreateSlot(r.Context(), application.CreateSlotParams{
		Principal:  principal,
		ProjectID:  projectID,
		Start:      req.Start,
		End:        req.End,
		TotalSeats: req.TotalSeats,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, slotResponse{Slot: toSlotDTO(application.SlotView{TimeSlot: slot})})
}

// CreateBatch creates slots on the selected weekdays of a date range.
// Omitting weekdays selects Monday through Friday.
func (h *SlotHandler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	projectID := strings.TrimSpace(r.PathValue("id"))
	principal, _ := PrincipalFromContext(r.Context())

	var req slotBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "CreateBatch", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode batch request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	params, vErr := req.toParams(principal, projectID, h.calendar.location())
	if vErr.HasErrors() {
		h.responder.handleServiceError(r.Context(), w, vErr)
		return
	}

	created, err := h.service.CreateSlotBatch(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "CreateBatch", "principal_id", principal.UserID, "project_id", projectID).
		With("count", len(created)).InfoContext(r.Context(), "slot batch created")
	views := make([]application.SlotView, 0, len(created))
	for _, slot := range created {
		views = append(views, application.SlotView{TimeSlot: slot})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, listSlotsResponse{Slots: toSlotDTOs(views)})
}

func (h *SlotHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	slotID := strings.TrimSpace(r.PathValue("id"))
	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.DeleteSlot(r.Context(), principal, slotID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *SlotHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	slotID := strings.TrimSpace(r.PathValue("id"))
	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Reserve", "principal_id", principal.UserID, "slot_id", slotID)

	view, err := h.service.Reserve(r.Context(), principal, slotID)
	if err != nil {
		logger.WarnContext(r.Context(), "reservation rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "seat reserved")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, slotResponse{Slot: toSlotDTO(view)})
}

func (h *SlotHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	reservationID := strings.TrimSpace(r.PathValue("id"))
	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.Cancel(r.Context(), principal, reservationID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type slotRequest struct {
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	TotalSeats int       `json:"total_seats"`
}

type slotBatchRequest struct {
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	Weekdays   []int  `json:"weekdays"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	TotalSeats int    `json:"total_seats"`
}

func (req slotBatchRequest) toParams(principal application.Principal, projectID string, loc *time.Location) (application.CreateSlotBatchParams, *application.ValidationError) {
	vErr := &application.ValidationError{}
	params := application.CreateSlotBatchParams{
		Principal:  principal,
		ProjectID:  projectID,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		TotalSeats: req.TotalSeats,
	}

	parse := func(field, value string) time.Time {
		if strings.TrimSpace(value) == "" {
			return time.Time{}
		}
		day, err := daterange.ParseDay(value, loc)
		if err != nil {
			if vErr.FieldErrors == nil {
				vErr.FieldErrors = make(map[string]string)
			}
			vErr.FieldErrors[field] = "must be a YYYY-MM-DD date"
		}
		return day
	}
	params.StartDate = parse("start_date", req.StartDate)
	params.EndDate = parse("end_date", req.EndDate)

	if req.Weekdays != nil {
		params.Weekdays = make([]time.Weekday, 0, len(req.Weekdays))
		for _, d := range req.Weekdays {
			params.Weekdays = append(params.Weekdays, time.Weekday(d))
		}
	}
	return params, vErr
}

type slotResponse struct {
	Slot slotDTO `json:"slot"`
}

type listSlotsResponse struct {
	Slots []slotDTO `json:"slots"`
}

type slotDTO struct {
	ID                string           `json:"id"`
	ProjectID         string           `json:"project_id"`
	Start             string           `json:"start"`
	End               string           `json:"end"`
	TotalSeats        int              `json:"total_seats"`
	ReservationCount  int              `json:"reservation_count"`
	IsFull            bool             `json:"is_full"`
	UserReserved      bool             `json:"user_reserved"`
	UserReservationID string           `json:"user_reservation_id,omitempty"`
	Reservations      []reservationDTO `json:"reservations,omitempty"`
}

type reservationDTO struct {
	ID          string `json:"id"`
	WorkerID    string `json:"worker_id"`
	WorkerName  string `json:"worker_name"`
	WorkerEmail string `json:"worker_email"`
	CreatedAt   string `json:"created_at"`
}

func toSlotDTO(view application.SlotView) slotDTO {
	dto := slotDTO{
		ID:                view.ID,
		ProjectID:         view.ProjectID,
		Start:             formatTime(view.Start),
		End:               formatTime(view.End),
		TotalSeats:        view.TotalSeats,
		ReservationCount:  view.ReservationCount,
		IsFull:            view.IsFull,
		UserReserved:      view.UserReserved,
		UserReservationID: view.UserReservationID,
	}
	for _, r := range view.Reservations {
		dto.Reservations = append(dto.Reservations, reservationDTO{
			ID:          r.ID,
			WorkerID:    r.WorkerID,
			WorkerName:  r.WorkerName,
			WorkerEmail: r.WorkerEmail,
			CreatedAt:   formatTime(r.CreatedAt),
		})
	}
	return dto
}

func toSlotDTOs(views []application.SlotView) []slotDTO {
	out := make([]slotDTO, 0, len(views))
	for _, view := range views {
		out = append(out, toSlotDTO(view))
	}
	return out
}
