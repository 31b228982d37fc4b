package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/medialuna/farmshop/pkg/web"
)

// decodeValid decodes the request body into T and validates it, writing the
// appropriate 400 response itself. The boolean reports success.
func decodeValid[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, validate *validator.Validate) (T, bool) {
	var dto T
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		logger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, logger, http.StatusBadRequest, "Invalid request body")
		return dto, false
	}
	if err := validate.Struct(dto); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			// Extract field-specific errors so the caller knows what to fix.
			errorResponse := make(map[string]string)
			for _, fieldErr := range validationErrors {
				// fieldErr.Tag() returns "required", "min", etc.
				errorResponse[fieldErr.Field()] = "failed on rule: " + fieldErr.Tag()
			}
			logger.WarnContext(r.Context(), "Validation errors occurred", "errors", errorResponse)
			web.RespondJSON(w, logger, http.StatusBadRequest, map[string]any{"validation_errors": errorResponse})
			return dto, false
		}
		logger.ErrorContext(r.Context(), "Error validating request body", "error", err)
		web.RespondError(w, logger, http.StatusBadRequest, "Invalid request body")
		return dto, false
	}
	return dto, true
}
