package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/babycare-backend/internal/auth"
	"github.com/yungbote/babycare-backend/internal/oracle"
	"github.com/yungbote/babycare-backend/internal/platform/apierr"
)

type APIError struct {
	Message   string `json:"message"`
	Code      string `json:"code,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

var errUpstreamRejected = errors.New("upstream model rejected the request")

// Classify maps an error from the domain layer onto its HTTP form.
func Classify(err error) *apierr.Error {
	if ae, ok := apierr.As(err); ok {
		return ae
	}
	switch {
	case errors.Is(err, oracle.ErrUnavailable):
		return apierr.Retryable(http.StatusServiceUnavailable, "oracle_unavailable", err)
	case errors.Is(err, oracle.ErrRejected):
		// Upstream bodies can echo credentials; only the code goes out.
		return apierr.New(http.StatusBadGateway, "oracle_rejected", errUpstreamRejected)
	case oracle.IsSchemaViolation(err):
		return apierr.Retryable(http.StatusBadGateway, "oracle_schema_violation", err)
	case errors.Is(err, auth.ErrUnauthenticated):
		return apierr.Unauthorized(err)
	default:
		return apierr.New(http.StatusInternalServerError, "internal", err)
	}
}

// RespondAPIError writes err using Classify. Internal errors hide their text.
func RespondAPIError(c *gin.Context, err error) {
	ae := Classify(err)
	msg := ae.Error()
	if ae.Status >= 500 && ae.Code == "internal" {
		msg = "internal error"
	}
	_ = c.Error(err)
	c.JSON(ae.Status, ErrorEnvelope{
		Error: APIError{
			Message:   msg,
			Code:      ae.Code,
			Retryable: ae.Retryable,
		},
	})
}
