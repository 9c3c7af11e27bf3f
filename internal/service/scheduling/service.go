package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medflow/medflow-api/internal/email"
	"github.com/medflow/medflow-api/internal/model"
	"github.com/medflow/medflow-api/internal/repository"
	"github.com/medflow/medflow-api/internal/service/audit"
	"github.com/medflow/medflow-api/internal/service/event"
	apperrors "github.com/medflow/medflow-api/pkg/errors"
	"github.com/medflow/medflow-api/pkg/logger"
	"github.com/medflow/medflow-api/pkg/metrics"
)

const defaultSlotDuration = 30 * time.Minute

type Service interface {
	// BookAppointment books the half-open slot [StartTime, EndTime) for
	// the doctor. Returns a conflict error when any active appointment
	// overlaps; slots that only touch at a boundary book fine.
	BookAppointment(ctx context.Context, actorID uuid.UUID, req *model.CreateAppointmentRequest) (*model.Appointment, error)
	GetAppointment(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	ListAppointments(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
	CancelAppointment(ctx context.Context, actorID, id uuid.UUID, reason string) error
	CompleteAppointment(ctx context.Context, actorID, id uuid.UUID) error
	RescheduleAppointment(ctx context.Context, actorID, id uuid.UUID, start, end time.Time) (*model.Appointment, error)
	// GetAvailability returns the free half-open slots of slotDuration
	// within [from, to) for the doctor.
	GetAvailability(ctx context.Context, doctorID uuid.UUID, from, to time.Time, slotDuration time.Duration) ([]model.TimeSlot, error)
}

type service struct {
	repo        repository.AppointmentRepository
	patientRepo repository.PatientRepository
	userRepo    repository.UserRepository
	events      event.Service
	audit       audit.Service
	email       email.Service
	metrics     *metrics.Metrics
	logger      *logger.Logger
}

func NewService(
	repo repository.AppointmentRepository,
	patientRepo repository.PatientRepository,
	userRepo repository.UserRepository,
	events event.Service,
	auditSvc audit.Service,
	emailSvc email.Service,
	m *metrics.Metrics,
	logger *logger.Logger,
) Service {
	return &service{
		repo:        repo,
		patientRepo: patientRepo,
		userRepo:    userRepo,
		events:      events,
		audit:       auditSvc,
		email:       emailSvc,
		metrics:     m,
		logger:      logger,
	}
}

func (s *service) BookAppointment(ctx context.Context, actorID uuid.UUID, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	if !req.EndTime.After(req.StartTime) {
		return nil, apperrors.Validation("end time must be after start time", nil)
	}

	doctor, err := s.userRepo.Get(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}
	if doctor.Role != model.RoleDoctor {
		return nil, apperrors.BadRequest("user is not a doctor", nil)
	}

	patient, err := s.patientRepo.Get(ctx, req.PatientID)
	if err != nil {
		return nil, err
	}

	conflict, err := s.repo.CheckConflict(ctx, req.DoctorID, req.StartTime, req.EndTime, nil)
	if err != nil {
		return nil, err
	}
	if conflict {
		if s.metrics != nil {
			s.metrics.AppointmentConflicts.Inc()
		}
		return nil, apperrors.Conflict("time slot is not available", nil)
	}

	now := time.Now()
	apt := &model.Appointment{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		DoctorID:  req.DoctorID,
		PatientID: req.PatientID,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Status:    model.AppointmentStatusScheduled,
		Type:      req.Type,
		Notes:     req.Notes,
	}

	if err := s.repo.Create(ctx, apt); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.AppointmentsBooked.Inc()
	}

	s.audit.Log(ctx, &audit.LogOptions{
		UserID:     actorID,
		Action:     model.AuditActionCreate,
		EntityType: model.AuditEntityAppointment,
		EntityID:   apt.ID,
		Changes:    apt,
	})

	if err := s.events.Emit(ctx, model.EventAppointmentCreated, apt); err != nil {
		s.logger.Error(err, "failed to stage appointment.created event")
	}

	if patient.Email != "" {
		name := patient.FirstName + " " + patient.LastName
		if err := s.email.SendAppointmentCreated(patient.Email, name, apt.StartTime, apt.EndTime); err != nil {
			s.logger.Error(err, "failed to send appointment confirmation")
		}
	}

	return apt, nil
}

func (s *service) GetAppointment(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	return s.repo.Get(ctx, id)
}

func (s *service) ListAppointments(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	return s.repo.List(ctx, filters)
}

func (s *service) CancelAppointment(ctx context.Context, actorID, id uuid.UUID, reason string) error {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	switch apt.Status {
	case model.AppointmentStatusCancelled:
		return apperrors.Conflict("appointment is already cancelled", nil)
	case model.AppointmentStatusCompleted:
		return apperrors.Conflict("completed appointments cannot be cancelled", nil)
	}

	apt.Status = model.AppointmentStatusCancelled
	apt.CancelReason = &reason
	if err := s.repo.Update(ctx, apt); err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.AppointmentsCancelled.Inc()
	}

	s.audit.Log(ctx, &audit.LogOptions{
		UserID:     actorID,
		Action:     model.AuditActionUpdate,
		EntityType: model.AuditEntityAppointment,
		EntityID:   apt.ID,
		Metadata:   map[string]interface{}{"status": apt.Status, "reason": reason},
	})

	if err := s.events.Emit(ctx, model.EventAppointmentCancelled, apt); err != nil {
		s.logger.Error(err, "failed to stage appointment.cancelled event")
	}

	if patient, perr := s.patientRepo.Get(ctx, apt.PatientID); perr == nil && patient.Email != "" {
		name := patient.FirstName + " " + patient.LastName
		if err := s.email.SendAppointmentCancelled(patient.Email, name, apt.StartTime, reason); err != nil {
			s.logger.Error(err, "failed to send cancellation mail")
		}
	}

	return nil
}

func (s *service) CompleteAppointment(ctx context.Context, actorID, id uuid.UUID) error {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	switch apt.Status {
	case model.AppointmentStatusCancelled:
		return apperrors.Conflict("cancelled appointments cannot be completed", nil)
	case model.AppointmentStatusCompleted:
		return apperrors.Conflict("appointment is already completed", nil)
	}

	apt.Status = model.AppointmentStatusCompleted
	if err := s.repo.Update(ctx, apt); err != nil {
		return err
	}

	s.audit.Log(ctx, &audit.LogOptions{
		UserID:     actorID,
		Action:     model.AuditActionUpdate,
		EntityType: model.AuditEntityAppointment,
		EntityID:   apt.ID,
		Metadata:   map[string]interface{}{"status": apt.Status},
	})

	if err := s.events.Emit(ctx, model.EventAppointmentCompleted, apt); err != nil {
		s.logger.Error(err, "failed to stage appointment.completed event")
	}
	return nil
}

// RescheduleAppointment moves an appointment to a new slot. The conflict
// check excludes the appointment itself, so moving within or adjacent to
// its own old slot works.
func (s *service) RescheduleAppointment(ctx context.Context, actorID, id uuid.UUID, start, end time.Time) (*model.Appointment, error) {
	if !end.After(start) {
		return nil, apperrors.Validation("end time must be after start time", nil)
	}

	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	switch apt.Status {
	case model.AppointmentStatusCancelled, model.AppointmentStatusCompleted:
		return nil, apperrors.Conflict("only active appointments can be rescheduled", nil)
	}

	conflict, err := s.repo.CheckConflict(ctx, apt.DoctorID, start, end, &apt.ID)
	if err != nil {
		return nil, err
	}
	if conflict {
		if s.metrics != nil {
			s.metrics.AppointmentConflicts.Inc()
		}
		return nil, apperrors.Conflict("time slot is not available", nil)
	}

	previous := model.TimeSlot{Start: apt.StartTime, End: apt.EndTime}
	apt.StartTime = start
	apt.EndTime = end
	if err := s.repo.Update(ctx, apt); err != nil {
		return nil, err
	}

	s.audit.Log(ctx, &audit.LogOptions{
		UserID:     actorID,
		Action:     model.AuditActionUpdate,
		EntityType: model.AuditEntityAppointment,
		EntityID:   apt.ID,
		Changes:    map[string]interface{}{"from": previous, "to": model.TimeSlot{Start: start, End: end}},
	})

	return apt, nil
}

func (s *service) GetAvailability(ctx context.Context, doctorID uuid.UUID, from, to time.Time, slotDuration time.Duration) ([]model.TimeSlot, error) {
	if slotDuration <= 0 {
		slotDuration = defaultSlotDuration
	}
	if !to.After(from) {
		return nil, apperrors.Validation("invalid availability window", nil)
	}

	booked, err := s.repo.GetDoctorAppointments(ctx, doctorID, from, to)
	if err != nil {
		return nil, err
	}

	var free []model.TimeSlot
	for start := from; !start.Add(slotDuration).After(to); start = start.Add(slotDuration) {
		slot := model.TimeSlot{Start: start, End: start.Add(slotDuration)}

		taken := false
		for _, apt := range booked {
			if apt.Status == model.AppointmentStatusCancelled || apt.Status == model.AppointmentStatusCompleted {
				continue
			}
			if slot.Overlaps(model.TimeSlot{Start: apt.StartTime, End: apt.EndTime}) {
				taken = true
				break
			}
		}
		if !taken {
			free = append(free, slot)
		}
	}

	return free, nil
}
