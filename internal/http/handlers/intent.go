package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/babycare-backend/internal/http/response"
	"github.com/yungbote/babycare-backend/internal/intent"
	"github.com/yungbote/babycare-backend/internal/platform/apierr"
)

type IntentHandler struct {
	classifier intent.Classifier
}

func NewIntentHandler(classifier intent.Classifier) *IntentHandler {
	return &IntentHandler{classifier: classifier}
}

type intentRequest struct {
	Message string `json:"message"`
}

// POST /intent
func (h *IntentHandler) Classify(c *gin.Context) {
	var req intentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, apierr.BadRequest(err))
		return
	}
	preds, err := h.classifier.Classify(c.Request.Context(), req.Message)
	if err != nil {
		if errors.Is(err, intent.ErrEmptyMessage) {
			err = apierr.BadRequest(err)
		}
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"response": preds})
}
