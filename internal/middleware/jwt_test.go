package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/lab-seat-reservation/internal/model"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func TestCallerFromClaims(t *testing.T) {
	caller, err := callerFromClaims(jwt.MapClaims{"sub": "42", "role": model.RoleStudent})
	require.NoError(t, err)
	assert.Equal(t, uint64(42), caller.UserID)
	assert.Equal(t, model.RoleStudent, caller.Role)
	assert.False(t, caller.IsBanned)

	// Numeric subject, as issued by identity services that emit JSON numbers.
	caller, err = callerFromClaims(jwt.MapClaims{"sub": float64(7), "role": model.RoleAdmin, "banned": true})
	require.NoError(t, err)
	assert.Equal(t, uint64(7), caller.UserID)
	assert.True(t, caller.IsBanned)

	for name, claims := range map[string]jwt.MapClaims{
		"missing sub":    {"role": model.RoleStudent},
		"bad sub string": {"sub": "abc", "role": model.RoleStudent},
		"missing role":   {"sub": "1"},
		"unknown role":   {"sub": "1", "role": "ROOT"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := callerFromClaims(claims)
			assert.Error(t, err)
		})
	}
}

func TestJWTAuth(t *testing.T) {
	e := echo.New()
	handler := JWTAuth(testSecret)(func(c echo.Context) error {
		caller := c.Get(CallerKey).(model.Caller)
		return c.JSON(http.StatusOK, caller)
	})

	do := func(authHeader string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if authHeader != "" {
			req.Header.Set("Authorization", authHeader)
		}
		rec := httptest.NewRecorder()
		require.NoError(t, handler(e.NewContext(req, rec)))
		return rec
	}

	valid := signToken(t, jwt.MapClaims{"sub": "42", "role": model.RoleTeacher})
	assert.Equal(t, http.StatusOK, do("Bearer "+valid).Code)

	assert.Equal(t, http.StatusUnauthorized, do("").Code)
	assert.Equal(t, http.StatusUnauthorized, do("Bearer garbage").Code)

	// A token signed with a different key is rejected.
	other := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "42", "role": model.RoleTeacher})
	otherSigned, err := other.SignedString([]byte("wrong"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do("Bearer "+otherSigned).Code)
}
