package user

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/medflow/medflow-api/internal/model"
	"github.com/medflow/medflow-api/internal/service/audit"
	apperrors "github.com/medflow/medflow-api/pkg/errors"
	"github.com/medflow/medflow-api/pkg/logger"
	"github.com/medflow/medflow-api/pkg/security"
)

type fakeUserRepo struct {
	byID    map[uuid.UUID]*model.User
	byEmail map[string]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byID:    make(map[uuid.UUID]*model.User),
		byEmail: make(map[string]*model.User),
	}
}

func (r *fakeUserRepo) Create(_ context.Context, u *model.User) error {
	r.byID[u.ID] = u
	r.byEmail[u.Email] = u
	return nil
}

func (r *fakeUserRepo) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := r.byID[id]
	if !ok {
		return nil, apperrors.NotFound("user", nil)
	}
	return u, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	u, ok := r.byEmail[email]
	if !ok {
		return nil, apperrors.NotFound("user", nil)
	}
	return u, nil
}

func (r *fakeUserRepo) Update(_ context.Context, u *model.User) error {
	r.byID[u.ID] = u
	r.byEmail[u.Email] = u
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	u, ok := r.byID[id]
	if !ok {
		return apperrors.NotFound("user", nil)
	}
	delete(r.byEmail, u.Email)
	delete(r.byID, id)
	return nil
}

func (r *fakeUserRepo) List(_ context.Context, _ *model.UserFilters) ([]*model.User, error) {
	var out []*model.User
	for _, u := range r.byID {
		out = append(out, u)
	}
	return out, nil
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

func newUserEnv(t *testing.T) Service {
	t.Helper()

	log := logger.NewLogger(&logger.Config{Output: io.Discard})
	return NewService(newFakeUserRepo(), security.NewBcryptHasher(bcrypt.MinCost), noopAudit{}, log)
}

func TestCreateUser(t *testing.T) {
	svc := newUserEnv(t)
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, uuid.New(), &model.CreateUserRequest{
		Email:    "nurse@medflow.example",
		Name:     "Dana Reyes",
		Password: "C0rrect-H0rse#42",
		Role:     "nurse",
	})
	require.NoError(t, err)
	assert.Equal(t, "nurse", u.Role)
	assert.Equal(t, model.UserStatusActive, u.Status)
	assert.NotEqual(t, "C0rrect-H0rse#42", u.PasswordHash)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	svc := newUserEnv(t)
	ctx := context.Background()

	req := &model.CreateUserRequest{
		Email:    "nurse@medflow.example",
		Name:     "Dana Reyes",
		Password: "C0rrect-H0rse#42",
		Role:     "nurse",
	}
	_, err := svc.CreateUser(ctx, uuid.New(), req)
	require.NoError(t, err)

	_, err = svc.CreateUser(ctx, uuid.New(), req)
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
}

func TestCreateUserRejectsUnknownRole(t *testing.T) {
	svc := newUserEnv(t)

	_, err := svc.CreateUser(context.Background(), uuid.New(), &model.CreateUserRequest{
		Email:    "root@medflow.example",
		Name:     "Root",
		Password: "C0rrect-H0rse#42",
		Role:     "superuser",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestCreateUserRejectsShortPassword(t *testing.T) {
	svc := newUserEnv(t)

	_, err := svc.CreateUser(context.Background(), uuid.New(), &model.CreateUserRequest{
		Email:    "nurse@medflow.example",
		Name:     "Dana Reyes",
		Password: "Sh0rt!pw",
		Role:     "nurse",
	})
	require.Error(t, err)
}

func TestUpdateUserKeepsRole(t *testing.T) {
	svc := newUserEnv(t)
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, uuid.New(), &model.CreateUserRequest{
		Email:    "nurse@medflow.example",
		Name:     "Dana Reyes",
		Password: "C0rrect-H0rse#42",
		Role:     "nurse",
	})
	require.NoError(t, err)

	name := "Dana Reyes-Ortiz"
	dept := "ICU"
	updated, err := svc.UpdateUser(ctx, uuid.New(), u.ID, &model.UpdateUserRequest{
		Name:       &name,
		Department: &dept,
	})
	require.NoError(t, err)
	assert.Equal(t, "Dana Reyes-Ortiz", updated.Name)
	assert.Equal(t, "ICU", *updated.Department)
	assert.Equal(t, "nurse", updated.Role)
}

func TestDeleteUserRejectsSelf(t *testing.T) {
	svc := newUserEnv(t)
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, uuid.New(), &model.CreateUserRequest{
		Email:    "admin@medflow.example",
		Name:     "Site Admin",
		Password: "C0rrect-H0rse#42",
		Role:     "admin",
	})
	require.NoError(t, err)

	err = svc.DeleteUser(ctx, u.ID, u.ID)
	require.Error(t, err)

	require.NoError(t, svc.DeleteUser(ctx, uuid.New(), u.ID))
	_, err = svc.GetUser(ctx, u.ID)
	assert.True(t, apperrors.IsNotFound(err))
}
