package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/example/reservation-desk/internal/daterange"
	"github.com/example/reservation-desk/internal/persistence"
	"github.com/example/reservation-desk/internal/recurrence"
)

// Batch validation messages shown to administrators verbatim.
const (
	msgNoWeekdays      = "Please select at least one weekday"
	msgEndDateOrder    = "End date must be after start date"
	msgEndTimeOrder    = "End time must be after start time"
	msgNothingToCreate = "No time slots to create with the selected criteria"
)

// DefaultCountConcurrency bounds the per-slot reservation count queries in flight.
const DefaultCountConcurrency = 8

// SlotService derives slot occupancy and performs reserve, cancel and slot management.
type SlotService struct {
	projects     ProjectRepository
	slots        TimeSlotRepository
	reservations ReservationRepository
	profiles     ProfileRepository
	engine       *recurrence.Engine
	idGenerator  func() string
	now          func() time.Time
	concurrency  int
	logger       *slog.Logger
}

// NewSlotService constructs a slot service. A nil engine expands batches in UTC.
func NewSlotService(projects ProjectRepository, slots TimeSlotRepository, reservations ReservationRepository, profiles ProfileRepository, engine *recurrence.Engine, idGenerator func() string, now func() time.Time) *SlotService {
	return NewSlotServiceWithLogger(projects, slots, reservations, profiles, engine, idGenerator, now, nil)
}

// NewSlotServiceWithLogger constructs a slot service with a specified logger.
func NewSlotServiceWithLogger(projects ProjectRepository, slots TimeSlotRepository, reservations ReservationRepository, profiles ProfileRepository, engine *recurrence.Engine, idGenerator func() string, now func() time.Time, logger *slog.Logger) *SlotService {
	if engine == nil {
		engine = recurrence.NewEngine(time.UTC)
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &SlotService{
		projects:     projects,
		slots:        slots,
		reservations: reservations,
		profiles:     profiles,
		engine:       engine,
		idGenerator:  idGenerator,
		now:          now,
		concurrency:  DefaultCountConcurrency,
		logger:       defaultLogger(logger),
	}
}

// SetCountConcurrency changes how many count queries ListSlots runs at once.
func (s *SlotService) SetCountConcurrency(n int) {
	if n > 0 {
		s.concurrency = n
	}
}

// Location is the time zone used for calendar days.
func (s *SlotService) Location() *time.Location {
	return s.engine.Location()
}

func (s *SlotService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "SlotService", operation, attrs...)
}

func (s *SlotService) ready() error {
	if s == nil {
		return fmt.Errorf("SlotService is nil")
	}
	if s.projects == nil || s.slots == nil || s.reservations == nil {
		return fmt.Errorf("slot repositories not configured")
	}
	return nil
}

// ListSlots returns the project's slots ordered by start with their occupancy.
// From is widened to the start of its day and To to the end of its day.
func (s *SlotService) ListSlots(ctx context.Context, params ListSlotsParams) ([]SlotView, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if params.Principal.UserID == "" {
		return nil, ErrUnauthenticated
	}
	availability := params.Availability
	if availability == "" {
		availability = AvailabilityAll
	}

	if _, err := s.projects.GetProject(ctx, params.ProjectID); err != nil {
		return nil, mapRepoError(err)
	}

	var from, to time.Time
	if !params.From.IsZero() {
		from = daterange.StartOfDay(params.From, s.Location())
	}
	if !params.To.IsZero() {
		to = daterange.EndOfDay(params.To, s.Location())
	}

	slots, err := s.slots.ListTimeSlots(ctx, params.ProjectID, from, to)
	if err != nil {
		return nil, mapRepoError(err)
	}

	views, err := s.buildViews(ctx, params.Principal, slots)
	if err != nil {
		return nil, err
	}

	filtered := views[:0]
	for _, view := range views {
		if availability.matches(view) {
			filtered = append(filtered, view)
		}
	}
	return filtered, nil
}

// GetSlot returns one slot with its occupancy.
func (s *SlotService) GetSlot(ctx context.Context, principal Principal, slotID string) (SlotView, error) {
	if err := s.ready(); err != nil {
		return SlotView{}, err
	}
	if principal.UserID == "" {
		return SlotView{}, ErrUnauthenticated
	}
	slot, err := s.slots.GetTimeSlot(ctx, slotID)
	if err != nil {
		return SlotView{}, mapRepoError(err)
	}
	views, err := s.buildViews(ctx, principal, []TimeSlot{slot})
	if err != nil {
		return SlotView{}, err
	}
	return views[0], nil
}

// buildViews counts reservations per slot concurrently and attaches the
// caller specific annotations.
func (s *SlotService) buildViews(ctx context.Context, principal Principal, slots []TimeSlot) ([]SlotView, error) {
	counts := make([]int, len(slots))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, slot := range slots {
		g.Go(func() error {
			n, err := s.reservations.CountReservations(gctx, slot.ID)
			if err != nil {
				return fmt.Errorf("count reservations for slot %s: %w", slot.ID, err)
			}
			counts[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, mapRepoError(err)
	}

	views := make([]SlotView, len(slots))
	for i, slot := range slots {
		views[i] = SlotView{
			TimeSlot:         slot,
			ReservationCount: counts[i],
			IsFull:           counts[i] >= slot.TotalSeats,
		}
	}

	switch {
	case principal.IsAdmin():
		if err := s.attachReservations(ctx, views); err != nil {
			return nil, err
		}
	case principal.UserID != "":
		own, err := s.reservations.ListReservationsForWorker(ctx, principal.UserID)
		if err != nil {
			return nil, mapRepoError(err)
		}
		bySlot := make(map[string]string, len(own))
		for _, r := range own {
			bySlot[r.TimeSlotID] = r.ID
		}
		for i := range views {
			if id, ok := bySlot[views[i].ID]; ok {
				views[i].UserReserved = true
				views[i].UserReservationID = id
			}
		}
	}
	return views, nil
}

func (s *SlotService) attachReservations(ctx context.Context, views []SlotView) error {
	if len(views) == 0 {
		return nil
	}
	ids := make([]string, len(views))
	index := make(map[string]int, len(views))
	for i, view := range views {
		ids[i] = view.ID
		index[view.ID] = i
		views[i].Reservations = []SlotReservation{}
	}

	reservations, err := s.reservations.ListReservationsForSlots(ctx, ids)
	if err != nil {
		return mapRepoError(err)
	}

	names := make(map[string]Profile)
	if s.profiles != nil && len(reservations) > 0 {
		profiles, err := s.profiles.ListProfiles(ctx)
		if err != nil {
			return mapRepoError(err)
		}
		for _, p := range profiles {
			names[p.ID] = p
		}
	}

	for _, r := range reservations {
		i, ok := index[r.TimeSlotID]
		if !ok {
			continue
		}
		worker := names[r.WorkerID]
		views[i].Reservations = append(views[i].Reservations, SlotReservation{
			ID:          r.ID,
			WorkerID:    r.WorkerID,
			WorkerName:  worker.Name,
			WorkerEmail: worker.Email,
			CreatedAt:   r.CreatedAt,
		})
	}
	return nil
}

// Reserve claims a seat in the slot for the acting worker. The capacity check
// and the insert happen atomically in the store.
func (s *SlotService) Reserve(ctx context.Context, principal Principal, slotID string) (view SlotView, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Reserve", "principal_id", principal.UserID, "slot_id", slotID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "reservation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("reservation_id", view.UserReservationID).InfoContext(ctx, "seat reserved")
	}()

	if !principal.IsWorker() {
		err = ErrUnauthorized
		return
	}

	reservation := Reservation{
		ID:         s.idGenerator(),
		TimeSlotID: slotID,
		WorkerID:   principal.UserID,
		CreatedAt:  s.now(),
	}
	if err = s.reservations.ReserveSeat(ctx, reservation); err != nil {
		err = mapReservationRepoError(err)
		return
	}

	view, err = s.GetSlot(ctx, principal, slotID)
	return
}

// Cancel removes a reservation. Workers may only cancel their own.
func (s *SlotService) Cancel(ctx context.Context, principal Principal, reservationID string) (err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Cancel", "principal_id", principal.UserID, "reservation_id", reservationID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "cancellation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "reservation cancelled")
	}()

	if principal.UserID == "" {
		err = ErrUnauthenticated
		return
	}

	var reservation Reservation
	reservation, err = s.reservations.GetReservation(ctx, reservationID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if !principal.IsAdmin() && reservation.WorkerID != principal.UserID {
		err = ErrUnauthorized
		return
	}

	err = mapRepoError(s.reservations.DeleteReservation(ctx, reservationID))
	return
}

// CreateSlot adds a single slot to a project for administrators.
func (s *SlotService) CreateSlot(ctx context.Context, params CreateSlotParams) (slot TimeSlot, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "CreateSlot", "principal_id", params.Principal.UserID, "project_id", params.ProjectID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create time slot", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("slot_id", slot.ID).InfoContext(ctx, "time slot created")
	}()

	if !params.Principal.IsAdmin() {
		err = ErrUnauthorized
		return
	}

	vErr := &ValidationError{}
	if params.Start.IsZero() {
		vErr.add("start_time", "start time is required")
	}
	if params.End.IsZero() {
		vErr.add("end_time", "end time is required")
	} else if !params.End.After(params.Start) {
		vErr.add("end_time", msgEndTimeOrder)
	}
	vErr.merge(validateSeats(params.TotalSeats))
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if _, err = s.projects.GetProject(ctx, params.ProjectID); err != nil {
		err = mapRepoError(err)
		return
	}

	slot = TimeSlot{
		ID:         s.idGenerator(),
		ProjectID:  params.ProjectID,
		Start:      params.Start,
		End:        params.End,
		TotalSeats: params.TotalSeats,
		CreatedAt:  s.now(),
	}
	if err = s.slots.CreateTimeSlot(ctx, slot); err != nil {
		err = mapRepoError(err)
		slot = TimeSlot{}
	}
	return
}

// CreateSlotBatch creates one slot per selected weekday in an inclusive date
// range. Either every slot is stored or none is.
func (s *SlotService) CreateSlotBatch(ctx context.Context, params CreateSlotBatchParams) (created []TimeSlot, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "CreateSlotBatch", "principal_id", params.Principal.UserID, "project_id", params.ProjectID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create time slots", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("count", len(created)).InfoContext(ctx, "time slots created")
	}()

	if !params.Principal.IsAdmin() {
		err = ErrUnauthorized
		return
	}

	pattern, vErr := s.batchPattern(params)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if _, err = s.projects.GetProject(ctx, params.ProjectID); err != nil {
		err = mapRepoError(err)
		return
	}

	windows, expandErr := s.engine.Expand(pattern)
	if expandErr != nil {
		err = patternValidationError(expandErr)
		return
	}
	if len(windows) == 0 {
		err = newValidationError("weekdays", msgNothingToCreate)
		return
	}

	now := s.now()
	slots := make([]TimeSlot, len(windows))
	for i, w := range windows {
		slots[i] = TimeSlot{
			ID:         s.idGenerator(),
			ProjectID:  params.ProjectID,
			Start:      w.Start,
			End:        w.End,
			TotalSeats: params.TotalSeats,
			CreatedAt:  now,
		}
	}
	if err = s.slots.CreateTimeSlots(ctx, slots); err != nil {
		err = mapRepoError(err)
		return
	}
	created = slots
	return
}

func (s *SlotService) batchPattern(params CreateSlotBatchParams) (recurrence.Pattern, *ValidationError) {
	vErr := &ValidationError{}

	weekdays := params.Weekdays
	if weekdays == nil {
		weekdays = recurrence.DefaultWeekdays
	}
	if len(weekdays) == 0 {
		vErr.add("weekdays", msgNoWeekdays)
	}
	for _, day := range weekdays {
		if day < time.Sunday || day > time.Saturday {
			vErr.add("weekdays", "weekdays must be between 0 (Sunday) and 6 (Saturday)")
		}
	}

	if params.StartDate.IsZero() {
		vErr.add("start_date", "start date is required")
	}
	if params.EndDate.IsZero() {
		vErr.add("end_date", "end date is required")
	}
	if !params.StartDate.IsZero() && !params.EndDate.IsZero() &&
		!daterange.StartOfDay(params.EndDate, s.Location()).After(daterange.StartOfDay(params.StartDate, s.Location())) {
		vErr.add("end_date", msgEndDateOrder)
	}

	startTime, startErr := recurrence.ParseTimeOfDay(params.StartTime)
	if startErr != nil {
		vErr.add("start_time", "start time must be HH:MM")
	}
	endTime, endErr := recurrence.ParseTimeOfDay(params.EndTime)
	if endErr != nil {
		vErr.add("end_time", "end time must be HH:MM")
	}
	if startErr == nil && endErr == nil && minutesOf(endTime) <= minutesOf(startTime) {
		vErr.add("end_time", msgEndTimeOrder)
	}

	vErr.merge(validateSeats(params.TotalSeats))

	return recurrence.Pattern{
		StartDate: params.StartDate,
		EndDate:   params.EndDate,
		Weekdays:  weekdays,
		StartTime: startTime,
		EndTime:   endTime,
	}, vErr
}

// DeleteSlot removes a slot and its reservations for administrators.
func (s *SlotService) DeleteSlot(ctx context.Context, principal Principal, slotID string) (err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "DeleteSlot", "principal_id", principal.UserID, "slot_id", slotID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete time slot", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "time slot deleted")
	}()

	if !principal.IsAdmin() {
		err = ErrUnauthorized
		return
	}
	err = mapRepoError(s.slots.DeleteTimeSlot(ctx, slotID))
	return
}

func validateSeats(seats int) *ValidationError {
	vErr := &ValidationError{}
	if seats < 1 {
		vErr.add("total_seats", "total seats must be at least 1")
	}
	return vErr
}

func minutesOf(t recurrence.TimeOfDay) int {
	return t.Hour*60 + t.Minute
}

func patternValidationError(err error) error {
	switch {
	case errors.Is(err, recurrence.ErrNoWeekdays):
		return newValidationError("weekdays", msgNoWeekdays)
	case errors.Is(err, recurrence.ErrInvalidDateRange):
		return newValidationError("end_date", msgEndDateOrder)
	case errors.Is(err, recurrence.ErrInvalidTimeRange):
		return newValidationError("end_time", msgEndTimeOrder)
	case errors.Is(err, recurrence.ErrInvalidWeekday):
		return newValidationError("weekdays", "weekdays must be between 0 (Sunday) and 6 (Saturday)")
	}
	return err
}

func mapReservationRepoError(err error) error {
	switch {
	case errors.Is(err, persistence.ErrCapacityExceeded):
		return ErrSlotFull
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyReserved
	}
	return mapRepoError(err)
}
