package response

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/yungbote/babycare-backend/internal/auth"
	"github.com/yungbote/babycare-backend/internal/oracle"
	"github.com/yungbote/babycare-backend/internal/platform/apierr"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		status    int
		code      string
		retryable bool
	}{
		{"unavailable", oracle.Unavailable(errors.New("dial")), http.StatusServiceUnavailable, "oracle_unavailable", true},
		{"rejected", oracle.Rejected(errors.New("status=401")), http.StatusBadGateway, "oracle_rejected", false},
		{"violation", fmt.Errorf("resolve: %w", &oracle.SchemaViolationError{Schema: "x"}), http.StatusBadGateway, "oracle_schema_violation", true},
		{"unauthenticated", fmt.Errorf("%w: bad sig", auth.ErrUnauthenticated), http.StatusUnauthorized, "unauthorized", false},
		{"apierr", apierr.BadRequest(errors.New("nope")), http.StatusBadRequest, "invalid_request", false},
		{"other", errors.New("boom"), http.StatusInternalServerError, "internal", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if got.Status != tt.status || got.Code != tt.code || got.Retryable != tt.retryable {
				t.Fatalf("Classify: want=%d/%s/%v got=%d/%s/%v", tt.status, tt.code, tt.retryable, got.Status, got.Code, got.Retryable)
			}
		})
	}
}
