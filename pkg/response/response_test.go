package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"social-system/pkg/apperr"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantCode   int
		wantReason string
	}{
		{"not found", apperr.ErrUserNotFound.Withf("id=%d", 3), 404, "user_not_found"},
		{"conflict", apperr.ErrAlreadyFriends, 409, "already_friends"},
		{"duplicate pending", apperr.ErrDuplicatePending, 409, "duplicate_pending"},
		{"forbidden", apperr.ErrNotSuperAdmin, 403, "not_super_admin"},
		{"invalid state", apperr.ErrAlreadyProcessed, 422, "already_processed"},
		{"self", apperr.ErrSelfRequest, 422, "self_request"},
		{"argument", apperr.ErrInvalidArgument, 400, "invalid_argument"},
		{"wrapped", errors.Join(errors.New("ctx"), apperr.ErrBlocked), 403, "blocked"},
		{"internal", errors.New("db down"), 500, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)

			FromError(c, tt.err)

			var resp Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.Equal(t, tt.wantReason, resp.Reason)
		})
	}
}
