package scheduling

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medflow/medflow-api/internal/model"
	"github.com/medflow/medflow-api/internal/service/audit"
	apperrors "github.com/medflow/medflow-api/pkg/errors"
	"github.com/medflow/medflow-api/pkg/logger"
)

type fakeAppointmentRepo struct {
	appointments map[uuid.UUID]*model.Appointment
}

func newFakeAppointmentRepo() *fakeAppointmentRepo {
	return &fakeAppointmentRepo{appointments: make(map[uuid.UUID]*model.Appointment)}
}

func (r *fakeAppointmentRepo) Create(_ context.Context, apt *model.Appointment) error {
	cp := *apt
	r.appointments[apt.ID] = &cp
	return nil
}

func (r *fakeAppointmentRepo) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	apt, ok := r.appointments[id]
	if !ok {
		return nil, apperrors.NotFound("appointment", nil)
	}
	cp := *apt
	return &cp, nil
}

func (r *fakeAppointmentRepo) Update(_ context.Context, apt *model.Appointment) error {
	if _, ok := r.appointments[apt.ID]; !ok {
		return apperrors.NotFound("appointment", nil)
	}
	cp := *apt
	r.appointments[apt.ID] = &cp
	return nil
}

func (r *fakeAppointmentRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.appointments, id)
	return nil
}

func (r *fakeAppointmentRepo) List(_ context.Context, _ *model.AppointmentFilters) ([]*model.Appointment, error) {
	var out []*model.Appointment
	for _, apt := range r.appointments {
		out = append(out, apt)
	}
	return out, nil
}

func (r *fakeAppointmentRepo) CheckConflict(_ context.Context, doctorID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	for _, apt := range r.appointments {
		if apt.DoctorID != doctorID {
			continue
		}
		if excludeID != nil && apt.ID == *excludeID {
			continue
		}
		if apt.Status == model.AppointmentStatusCancelled || apt.Status == model.AppointmentStatusCompleted {
			continue
		}
		if apt.StartTime.Before(end) && start.Before(apt.EndTime) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeAppointmentRepo) GetDoctorAppointments(_ context.Context, doctorID uuid.UUID, from, to time.Time) ([]*model.Appointment, error) {
	var out []*model.Appointment
	for _, apt := range r.appointments {
		if apt.DoctorID != doctorID {
			continue
		}
		if apt.StartTime.Before(to) && from.Before(apt.EndTime) {
			out = append(out, apt)
		}
	}
	return out, nil
}

type fakePatientRepo struct {
	patients map[uuid.UUID]*model.Patient
}

func (r *fakePatientRepo) Create(_ context.Context, p *model.Patient) error {
	r.patients[p.ID] = p
	return nil
}

func (r *fakePatientRepo) Get(_ context.Context, id uuid.UUID) (*model.Patient, error) {
	p, ok := r.patients[id]
	if !ok {
		return nil, apperrors.NotFound("patient", nil)
	}
	return p, nil
}

func (r *fakePatientRepo) GetByMRN(_ context.Context, _ string) (*model.Patient, error) {
	return nil, apperrors.NotFound("patient", nil)
}

func (r *fakePatientRepo) Update(_ context.Context, _ *model.Patient) error { return nil }
func (r *fakePatientRepo) Delete(_ context.Context, _ uuid.UUID) error     { return nil }

func (r *fakePatientRepo) List(_ context.Context, _ *model.PatientFilters) ([]*model.Patient, error) {
	return nil, nil
}

func (r *fakePatientRepo) MRNExists(_ context.Context, _ string) (bool, error) { return false, nil }

type fakeUserRepo struct {
	users map[uuid.UUID]*model.User
}

func (r *fakeUserRepo) Create(_ context.Context, u *model.User) error {
	r.users[u.ID] = u
	return nil
}

func (r *fakeUserRepo) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, apperrors.NotFound("user", nil)
	}
	return u, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, _ string) (*model.User, error) {
	return nil, apperrors.NotFound("user", nil)
}

func (r *fakeUserRepo) Update(_ context.Context, _ *model.User) error { return nil }
func (r *fakeUserRepo) Delete(_ context.Context, _ uuid.UUID) error   { return nil }

func (r *fakeUserRepo) List(_ context.Context, _ *model.UserFilters) ([]*model.User, error) {
	return nil, nil
}

type noopAudit struct{}

func (noopAudit) Log(_ context.Context, _ *audit.LogOptions) error { return nil }
func (noopAudit) List(_ context.Context, _ map[string]interface{}) ([]*model.AuditLog, error) {
	return nil, nil
}
func (noopAudit) GetStats(_ context.Context, _, _ time.Time) (*model.AuditStats, error) {
	return nil, nil
}
func (noopAudit) Cleanup(_ context.Context, _ time.Duration) (int64, error) { return 0, nil }

type noopEvents struct{}

func (noopEvents) Emit(_ context.Context, _ string, _ interface{}) error { return nil }

type noopEmail struct{}

func (noopEmail) SendAppointmentCreated(_, _ string, _, _ time.Time) error { return nil }
func (noopEmail) SendAppointmentCancelled(_, _ string, _ time.Time, _ string) error {
	return nil
}
func (noopEmail) SendPasswordReset(_, _ string) error { return nil }

type testEnv struct {
	svc      Service
	repo     *fakeAppointmentRepo
	users    *fakeUserRepo
	doctorID uuid.UUID
	patient  uuid.UUID
	actor    uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	doctorID := uuid.New()
	patientID := uuid.New()

	userRepo := &fakeUserRepo{users: map[uuid.UUID]*model.User{
		doctorID: {
			Base:  model.Base{ID: doctorID},
			Email: "doc@medflow.example",
			Role:  model.RoleDoctor,
		},
	}}
	patientRepo := &fakePatientRepo{patients: map[uuid.UUID]*model.Patient{
		patientID: {
			Base:      model.Base{ID: patientID},
			FirstName: "Jane",
			LastName:  "Doe",
		},
	}}
	repo := newFakeAppointmentRepo()

	log := logger.NewLogger(&logger.Config{Output: io.Discard})
	svc := NewService(repo, patientRepo, userRepo, noopEvents{}, noopAudit{}, noopEmail{}, nil, log)

	return &testEnv{
		svc:      svc,
		repo:     repo,
		users:    userRepo,
		doctorID: doctorID,
		patient:  patientID,
		actor:    uuid.New(),
	}
}

func slot(hour, min int) time.Time {
	return time.Date(2026, 3, 2, hour, min, 0, 0, time.UTC)
}

func (e *testEnv) bookReq(start, end time.Time) *model.CreateAppointmentRequest {
	return &model.CreateAppointmentRequest{
		DoctorID:  e.doctorID,
		PatientID: e.patient,
		StartTime: start,
		EndTime:   end,
		Type:      "regular",
	}
}

func TestBookAppointment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	apt, err := env.svc.BookAppointment(ctx, env.actor, env.bookReq(slot(10, 0), slot(10, 30)))
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusScheduled, apt.Status)
	assert.Equal(t, env.doctorID, apt.DoctorID)
}

func TestBookAppointmentOverlapConflicts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.BookAppointment(ctx, env.actor, env.bookReq(slot(10, 0), slot(10, 30)))
	require.NoError(t, err)

	// [10:15, 10:45) overlaps [10:00, 10:30)
	_, err = env.svc.BookAppointment(ctx, env.actor, env.bookReq(slot(10, 15), slot(10, 45)))
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
}

func TestBookAppointmentAdjacentSlotSucceeds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.BookAppointment(ctx, env.actor, env.bookReq(slot(10, 0), slot(10, 30)))
	require.NoError(t, err)

	// [10:30, 11:00) only touches the boundary of [10:00, 10:30)
	_, err = env.svc.BookAppointment(ctx, env.actor, env.bookReq(slot(10, 30), slot(11, 0)))
	assert.NoError(t, err)
}

func TestBookAppointmentDuplicateResubmission(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req := env.bookReq(slot(14, 0), slot(14, 30))
	_, err := env.svc.BookAppointment(ctx, env.actor, req)
	require.NoError(t, err)

	_, err = env.svc.BookAppointment(ctx, env.actor, req)
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
	assert.Len(t, env.repo.appointments, 1)
}

func TestBookAppointmentContainedIntervalConflicts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.BookAppointment(ctx, env.actor, env.bookReq(slot(9, 0), slot(12, 0)))
	require.NoError(t, err)

	_, err = env.svc.BookAppointment(ctx, env.actor, env.bookReq(slot(10, 0), slot(10, 30)))
	assert.True(t, apperrors.IsConflict(err))
}

func TestBookAppointmentInvalidInterval(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.BookAppointment(ctx, env.actor, env.bookReq(slot(10, 30), slot(10, 0)))
	require.Error(t, err)

	_, err = env.svc.BookAppointment(ctx, env.actor, env.bookReq(slot(10, 0), slot(10, 0)))
	require.Error(t, err)
}

func TestBookAppointmentRejectsNonDoctor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	nurseID := uuid.New()
	env.users.users[nurseID] = &model.User{
		Base: model.Base{ID: nurseID},
		Role: model.RoleNurse,
	}

	req := env.bookReq(slot(10, 0), slot(10, 30))
	req.DoctorID = nurseID
	_, err := env.svc.BookAppointment(ctx, env.actor, req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a doctor")
}

func TestBookAppointmentAfterCancellation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	apt, err := env.svc.BookAppointment(ctx, env.actor, env.bookReq(slot(10, 0), slot(10, 30)))
	require.NoError(t, err)

	require.NoError(t, env.svc.CancelAppointment(ctx, env.actor, apt.ID, "patient request"))

	// Cancelled appointments release the slot.
	_, err = env.svc.BookAppointment(ctx, env.actor, env.bookReq(slot(10, 0), slot(10, 30)))
	assert.NoError(t, err)
}

func TestCancelAppointmentTransitions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	apt, err := env.svc.BookAppointment(ctx, env.actor, env.bookReq(slot(10, 0), slot(10, 30)))
	require.NoError(t, err)

	require.NoError(t, env.svc.CancelAppointment(ctx, env.actor, apt.ID, "no show"))

	err = env.svc.CancelAppointment(ctx, env.actor, apt.ID, "again")
	assert.True(t, apperrors.IsConflict(err))

	err = env.svc.CompleteAppointment(ctx, env.actor, apt.ID)
	assert.True(t, apperrors.IsConflict(err))
}

func TestCompleteAppointment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	apt, err := env.svc.BookAppointment(ctx, env.actor, env.bookReq(slot(10, 0), slot(10, 30)))
	require.NoError(t, err)

	require.NoError(t, env.svc.CompleteAppointment(ctx, env.actor, apt.ID))

	err = env.svc.CancelAppointment(ctx, env.actor, apt.ID, "too late")
	assert.True(t, apperrors.IsConflict(err))
}

func TestRescheduleAppointment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	apt, err := env.svc.BookAppointment(ctx, env.actor, env.bookReq(slot(10, 0), slot(10, 30)))
	require.NoError(t, err)

	// Moving within the old slot must not conflict with itself.
	moved, err := env.svc.RescheduleAppointment(ctx, env.actor, apt.ID, slot(10, 15), slot(10, 45))
	require.NoError(t, err)
	assert.Equal(t, slot(10, 15), moved.StartTime)

	// A second appointment blocks the reschedule target.
	other, err := env.svc.BookAppointment(ctx, env.actor, env.bookReq(slot(11, 0), slot(11, 30)))
	require.NoError(t, err)

	_, err = env.svc.RescheduleAppointment(ctx, env.actor, other.ID, slot(10, 30), slot(11, 0))
	assert.True(t, apperrors.IsConflict(err))
}

func TestGetAvailability(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.BookAppointment(ctx, env.actor, env.bookReq(slot(9, 30), slot(10, 0)))
	require.NoError(t, err)

	free, err := env.svc.GetAvailability(ctx, env.doctorID, slot(9, 0), slot(11, 0), 30*time.Minute)
	require.NoError(t, err)

	require.Len(t, free, 3)
	assert.Equal(t, slot(9, 0), free[0].Start)
	assert.Equal(t, slot(10, 0), free[1].Start)
	assert.Equal(t, slot(10, 30), free[2].Start)
}

func TestGetAvailabilityIgnoresCancelled(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	apt, err := env.svc.BookAppointment(ctx, env.actor, env.bookReq(slot(9, 0), slot(9, 30)))
	require.NoError(t, err)
	require.NoError(t, env.svc.CancelAppointment(ctx, env.actor, apt.ID, "freed up"))

	free, err := env.svc.GetAvailability(ctx, env.doctorID, slot(9, 0), slot(10, 0), 30*time.Minute)
	require.NoError(t, err)
	assert.Len(t, free, 2)
}
