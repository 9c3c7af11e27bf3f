package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medflow/medflow-api/internal/model"
	"github.com/medflow/medflow-api/internal/service/audit"
	"github.com/medflow/medflow-api/internal/service/rbac"
	pkgauth "github.com/medflow/medflow-api/pkg/auth"
)

// stubRBAC allows the role/permission pairs in grants plus any
// per-user grants, mirroring the primary-role-union-assigned-roles
// resolution of the real service.
type stubRBAC struct {
	rbac.Service
	grants     map[string][]string
	userGrants map[uuid.UUID][]string
}

func (s stubRBAC) HasPermission(_ context.Context, userID uuid.UUID, role, permission string) (bool, error) {
	for _, p := range s.grants[role] {
		if p == permission {
			return true, nil
		}
	}
	for _, p := range s.userGrants[userID] {
		if p == permission {
			return true, nil
		}
	}
	return false, nil
}

type captureAudit struct {
	denied []*audit.LogOptions
}

func (a *captureAudit) Log(_ context.Context, opts *audit.LogOptions) error {
	if opts.Action == model.AuditActionDenied {
		a.denied = append(a.denied, opts)
	}
	return nil
}

func (a *captureAudit) List(_ context.Context, _ map[string]interface{}) ([]*model.AuditLog, error) {
	return nil, nil
}

func (a *captureAudit) GetStats(_ context.Context, _, _ time.Time) (*model.AuditStats, error) {
	return nil, nil
}

func (a *captureAudit) Cleanup(_ context.Context, _ time.Duration) (int64, error) { return 0, nil }

func newTestRouter(t *testing.T, userGrants map[uuid.UUID][]string) (*gin.Engine, pkgauth.JWTService, *captureAudit) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	jwtSvc := pkgauth.NewJWTService(pkgauth.Config{
		Secret:        "test-secret",
		RefreshSecret: "test-refresh",
	})
	auditSvc := &captureAudit{}
	mw := NewAuthMiddleware(jwtSvc, stubRBAC{
		grants: map[string][]string{
			"doctor": {"patient:read"},
		},
		userGrants: userGrants,
	}, auditSvc)

	r := gin.New()
	r.GET("/patients",
		mw.Authenticate(),
		mw.RequirePermission("patient:read"),
		func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "success"})
		})
	return r, jwtSvc, auditSvc
}

func doRequest(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/patients", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthenticateMissingHeader(t *testing.T) {
	r, _, _ := newTestRouter(t, nil)

	w := doRequest(r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthenticateMalformedHeader(t *testing.T) {
	r, _, _ := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/patients", nil)
	req.Header.Set("Authorization", "Token abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthenticateInvalidToken(t *testing.T) {
	r, _, _ := newTestRouter(t, nil)

	w := doRequest(r, "not-a-real-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequirePermissionAllows(t *testing.T) {
	r, jwtSvc, _ := newTestRouter(t, nil)

	token, err := jwtSvc.GenerateAccessToken(uuid.New(), "doc@medflow.example", "doctor", nil)
	require.NoError(t, err)

	w := doRequest(r, token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequirePermissionDeniesWrongRole(t *testing.T) {
	r, jwtSvc, auditSvc := newTestRouter(t, nil)

	userID := uuid.New()
	token, err := jwtSvc.GenerateAccessToken(userID, "clerk@medflow.example", "receptionist", nil)
	require.NoError(t, err)

	w := doRequest(r, token)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Denied access leaves an audit trail.
	require.Len(t, auditSvc.denied, 1)
	assert.Equal(t, userID, auditSvc.denied[0].UserID)
}

func TestRequirePermissionAllowsAssignedRoleGrant(t *testing.T) {
	userID := uuid.New()

	// Receptionists hold no patient:read in the primary-role grants;
	// the user carries it through an assigned role.
	r, jwtSvc, _ := newTestRouter(t, map[uuid.UUID][]string{
		userID: {"patient:read"},
	})

	token, err := jwtSvc.GenerateAccessToken(userID, "clerk@medflow.example", "receptionist", nil)
	require.NoError(t, err)

	w := doRequest(r, token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequirePermissionDeniesUnknownRole(t *testing.T) {
	r, jwtSvc, _ := newTestRouter(t, nil)

	token, err := jwtSvc.GenerateAccessToken(uuid.New(), "x@medflow.example", "superuser", nil)
	require.NoError(t, err)

	w := doRequest(r, token)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
