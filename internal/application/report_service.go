package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/reservation-desk/internal/daterange"
)

// DefaultReportSpan is the number of days after today covered when no end date is given.
const DefaultReportSpan = 14

// MaxReportDays caps the number of daily buckets in one report.
const MaxReportDays = 366

// ReportService aggregates reservations into daily buckets.
type ReportService struct {
	projects     ProjectRepository
	slots        TimeSlotRepository
	reservations ReservationRepository
	now          func() time.Time
	location     *time.Location
	logger       *slog.Logger
}

// NewReportService constructs a report service. A nil location means UTC.
func NewReportService(projects ProjectRepository, slots TimeSlotRepository, reservations ReservationRepository, now func() time.Time, location *time.Location) *ReportService {
	return NewReportServiceWithLogger(projects, slots, reservations, now, location, nil)
}

// NewReportServiceWithLogger constructs a report service with a specified logger.
func NewReportServiceWithLogger(projects ProjectRepository, slots TimeSlotRepository, reservations ReservationRepository, now func() time.Time, location *time.Location, logger *slog.Logger) *ReportService {
	if now == nil {
		now = time.Now
	}
	if location == nil {
		location = time.UTC
	}
	return &ReportService{
		projects:     projects,
		slots:        slots,
		reservations: reservations,
		now:          now,
		location:     location,
		logger:       defaultLogger(logger),
	}
}

// DailyReservations returns one zero-filled bucket per calendar day in the
// inclusive window. A reservation counts towards the day its slot starts on.
func (s *ReportService) DailyReservations(ctx context.Context, params DailyReservationsParams) (series []DayCount, err error) {
	if s == nil {
		err = fmt.Errorf("ReportService is nil")
		return
	}
	if s.projects == nil || s.slots == nil || s.reservations == nil {
		err = fmt.Errorf("report repositories not configured")
		return
	}

	logger := serviceLogger(ctx, s.logger, "ReportService", "DailyReservations",
		"principal_id", params.Principal.UserID,
		"project_id", params.ProjectID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to build daily report", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("days", len(series)).DebugContext(ctx, "daily report built")
	}()

	if !params.Principal.IsAdmin() {
		err = ErrUnauthorized
		return
	}

	today := daterange.StartOfDay(s.now(), s.location)
	start, end := params.Start, params.End
	if start.IsZero() {
		start = today
	}
	if end.IsZero() {
		end = today.AddDate(0, 0, DefaultReportSpan)
	}
	start = daterange.StartOfDay(start, s.location)
	end = daterange.EndOfDay(end, s.location)
	if end.Before(start) {
		err = newValidationError("end_date", msgEndDateOrder)
		return
	}
	if !end.Before(start.AddDate(0, 0, MaxReportDays)) {
		err = newValidationError("end_date", fmt.Sprintf("report range must not exceed %d days", MaxReportDays))
		return
	}

	if _, err = s.projects.GetProject(ctx, params.ProjectID); err != nil {
		err = mapRepoError(err)
		return
	}

	days := daterange.Days(start, end, s.location)
	series = make([]DayCount, len(days))
	bucket := make(map[string]int, len(days))
	for i, day := range days {
		key := daterange.DayKey(day, s.location)
		series[i] = DayCount{Day: key}
		bucket[key] = i
	}

	slots, repoErr := s.slots.ListTimeSlots(ctx, params.ProjectID, start, end)
	if repoErr != nil {
		err = mapRepoError(repoErr)
		series = nil
		return
	}
	if len(slots) == 0 {
		return
	}

	slotDay := make(map[string]string, len(slots))
	ids := make([]string, len(slots))
	for i, slot := range slots {
		ids[i] = slot.ID
		slotDay[slot.ID] = daterange.DayKey(slot.Start, s.location)
	}

	reservations, repoErr := s.reservations.ListReservationsForSlots(ctx, ids)
	if repoErr != nil {
		err = mapRepoError(repoErr)
		series = nil
		return
	}
	for _, r := range reservations {
		if i, ok := bucket[slotDay[r.TimeSlotID]]; ok {
			series[i].Count++
		}
	}
	return
}
