package billing

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

type fakeInvoiceRepo struct {
	invoices map[uuid.UUID]*model.Invoice
}

func (r *fakeInvoiceRepo) Create(_ context.Context, inv *model.Invoice) error {
	r.invoices[inv.ID] = inv
	return nil
}

func (r *fakeInvoiceRepo) Get(_ context.Context, id uuid.UUID) (*model.Invoice, error) {
	inv, ok := r.invoices[id]
	if !ok {
		return nil, apperrors.NotFound("invoice", nil)
	}
	return inv, nil
}

func (r *fakeInvoiceRepo) Update(_ context.Context, inv *model.Invoice) error {
	r.invoices[inv.ID] = inv
	return nil
}

func (r *fakeInvoiceRepo) List(_ context.Context, _ *model.InvoiceFilters) ([]*model.Invoice, error) {
	var out []*model.Invoice
	for _, inv := range r.invoices {
		out = append(out, inv)
	}
	return out, nil
}

func (r *fakeInvoiceRepo) GetItems(_ context.Context, invoiceID uuid.UUID) ([]model.InvoiceItem, error) {
	inv, ok := r.invoices[invoiceID]
	if !ok {
		return nil, apperrors.NotFound("invoice", nil)
	}
	return inv.Items, nil
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

func newBillingEnv(t *testing.T) (Service, uuid.UUID) {
	t.Helper()

	patientID := uuid.New()
	patientRepo := &fakePatientRepo{patients: map[uuid.UUID]*model.Patient{
		patientID: {Base: model.Base{ID: patientID}},
	}}
	repo := &fakeInvoiceRepo{invoices: make(map[uuid.UUID]*model.Invoice)}

	log := logger.NewLogger(&logger.Config{Output: io.Discard})
	return NewService(repo, patientRepo, noopEvents{}, noopAudit{}, log), patientID
}

func TestCreateInvoiceComputesTotals(t *testing.T) {
	svc, patientID := newBillingEnv(t)
	ctx := context.Background()

	inv, err := svc.CreateInvoice(ctx, uuid.New(), &model.CreateInvoiceRequest{
		PatientID: patientID,
		Items: []model.CreateInvoiceItemReq{
			{Description: "Consultation", Quantity: 1, UnitCents: 15000},
			{Description: "Blood panel", Quantity: 3, UnitCents: 2500},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, model.InvoiceStatusDraft, inv.Status)
	require.Len(t, inv.Items, 2)
	assert.Equal(t, int64(15000), inv.Items[0].AmountCents)
	assert.Equal(t, int64(7500), inv.Items[1].AmountCents)
	assert.Equal(t, int64(22500), inv.TotalCents)
}

func TestCreateInvoiceRejectsInvalidItems(t *testing.T) {
	svc, patientID := newBillingEnv(t)
	ctx := context.Background()

	_, err := svc.CreateInvoice(ctx, uuid.New(), &model.CreateInvoiceRequest{
		PatientID: patientID,
		Items: []model.CreateInvoiceItemReq{
			{Description: "Refund", Quantity: 1, UnitCents: -100},
		},
	})
	require.Error(t, err)

	_, err = svc.CreateInvoice(ctx, uuid.New(), &model.CreateInvoiceRequest{
		PatientID: patientID,
		Items: []model.CreateInvoiceItemReq{
			{Description: "Nothing", Quantity: 0, UnitCents: 100},
		},
	})
	require.Error(t, err)
}

func TestCreateInvoiceUnknownPatient(t *testing.T) {
	svc, _ := newBillingEnv(t)
	ctx := context.Background()

	_, err := svc.CreateInvoice(ctx, uuid.New(), &model.CreateInvoiceRequest{
		PatientID: uuid.New(),
		Items: []model.CreateInvoiceItemReq{
			{Description: "Consultation", Quantity: 1, UnitCents: 100},
		},
	})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestInvoiceLifecycle(t *testing.T) {
	svc, patientID := newBillingEnv(t)
	ctx := context.Background()
	actor := uuid.New()

	inv, err := svc.CreateInvoice(ctx, actor, &model.CreateInvoiceRequest{
		PatientID: patientID,
		Items: []model.CreateInvoiceItemReq{
			{Description: "Consultation", Quantity: 1, UnitCents: 100},
		},
	})
	require.NoError(t, err)

	// draft -> issued -> paid
	require.NoError(t, svc.IssueInvoice(ctx, actor, inv.ID))
	require.NoError(t, svc.PayInvoice(ctx, actor, inv.ID))

	paid, err := svc.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceStatusPaid, paid.Status)
	assert.NotNil(t, paid.IssuedAt)
	assert.NotNil(t, paid.PaidAt)
}

func TestInvoiceInvalidTransitions(t *testing.T) {
	svc, patientID := newBillingEnv(t)
	ctx := context.Background()
	actor := uuid.New()

	inv, err := svc.CreateInvoice(ctx, actor, &model.CreateInvoiceRequest{
		PatientID: patientID,
		Items: []model.CreateInvoiceItemReq{
			{Description: "Consultation", Quantity: 1, UnitCents: 100},
		},
	})
	require.NoError(t, err)

	// Cannot pay a draft.
	assert.True(t, apperrors.IsConflict(svc.PayInvoice(ctx, actor, inv.ID)))

	require.NoError(t, svc.IssueInvoice(ctx, actor, inv.ID))

	// Cannot issue twice.
	assert.True(t, apperrors.IsConflict(svc.IssueInvoice(ctx, actor, inv.ID)))

	require.NoError(t, svc.PayInvoice(ctx, actor, inv.ID))

	// Paid invoices cannot be cancelled.
	assert.True(t, apperrors.IsConflict(svc.CancelInvoice(ctx, actor, inv.ID)))
}

func TestCancelInvoice(t *testing.T) {
	svc, patientID := newBillingEnv(t)
	ctx := context.Background()
	actor := uuid.New()

	inv, err := svc.CreateInvoice(ctx, actor, &model.CreateInvoiceRequest{
		PatientID: patientID,
		Items: []model.CreateInvoiceItemReq{
			{Description: "Consultation", Quantity: 1, UnitCents: 100},
		},
	})
	require.NoError(t, err)

	require.NoError(t, svc.CancelInvoice(ctx, actor, inv.ID))
	assert.True(t, apperrors.IsConflict(svc.CancelInvoice(ctx, actor, inv.ID)))
}
