package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hooklab-media/hooklab-backend/internal/pkg/apperr"
)

// RespondAppError maps the typed service errors onto HTTP statuses so
// handlers don't repeat the switch.
func RespondAppError(c *gin.Context, err error) {
	var conflict *apperr.ConflictError
	var illegal *apperr.IllegalTransitionError
	var schema *apperr.SchemaValidationError
	switch {
	case errors.As(err, &conflict):
		RespondError(c, http.StatusConflict, "conflict", err)
	case errors.As(err, &illegal):
		RespondError(c, http.StatusConflict, "illegal_transition", err)
	case errors.As(err, &schema):
		RespondError(c, http.StatusUnprocessableEntity, "schema_validation", err)
	default:
		RespondError(c, http.StatusInternalServerError, "internal", err)
	}
}
