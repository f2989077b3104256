package api

import (
	"errors"
	"net/http"
	"strconv"

	"viagens/internal/auth"
	"viagens/internal/database"
	"viagens/internal/logging"
	"viagens/internal/service"
	"viagens/internal/storage"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{Error: message, Code: code, RequestID: getRequestID(c)})
}

type errorMapping struct {
	target error
	status int
	code   string
}

// Checked in order; the first match wins.
var errorMappings = []errorMapping{
	{database.ErrNotFound, http.StatusNotFound, "not_found"},
	{service.ErrUnknownKind, http.StatusNotFound, "not_found"},
	{auth.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{auth.ErrInvalidToken, http.StatusUnauthorized, "unauthorized"},
	{service.ErrInactiveUser, http.StatusForbidden, "inactive_user"},
	{storage.ErrTooLarge, http.StatusRequestEntityTooLarge, "too_large"},
	{storage.ErrTypeNotAllowed, http.StatusUnsupportedMediaType, "unsupported_type"},
	{service.ErrTripFull, http.StatusConflict, "trip_full"},
	{service.ErrRoomFull, http.StatusConflict, "room_full"},
	{database.ErrCapacityExceeded, http.StatusConflict, "trip_full"},
	{database.ErrSeatTaken, http.StatusConflict, "seat_taken"},
	{database.ErrDuplicate, http.StatusConflict, "duplicate"},
	{service.ErrWrongTrip, http.StatusConflict, "wrong_trip"},
	{service.ErrLapChildSeat, http.StatusConflict, "lap_child_seat"},
	{service.ErrAlreadyProcessed, http.StatusConflict, "already_processed"},
	{service.ErrTripClosed, http.StatusConflict, "trip_closed"},
	{service.ErrTermsNotAccepted, http.StatusBadRequest, "terms_not_accepted"},
	{auth.ErrWeakPassword, http.StatusBadRequest, "weak_password"},
	{database.ErrInvalidField, http.StatusBadRequest, "validation_error"},
	{service.ErrValidation, http.StatusBadRequest, "validation_error"},
}

// writeServiceError maps a service error to its HTTP answer. Unknown errors
// are logged and reported as 500 without their message.
func writeServiceError(c *gin.Context, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			respondError(c, m.status, m.code, err.Error())
			return
		}
	}
	logging.FromContext(c.Request.Context(), nil).Error().Err(err).
		Str("path", c.Request.URL.Path).
		Msg("request failed")
	respondError(c, http.StatusInternalServerError, "internal_error", "internal error")
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_body", err.Error())
		return false
	}
	return true
}

func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, "invalid_id", "invalid "+name)
		return 0, false
	}
	return id, true
}

// optionalID reads a numeric query parameter; absent means nil.
func optionalID(c *gin.Context, name string) (*int64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, "invalid_query", "invalid "+name)
		return nil, false
	}
	return &id, true
}

func attachment(c *gin.Context, contentType, fileName string, data []byte) {
	c.Header("Content-Disposition", `attachment; filename="`+fileName+`"`)
	c.Data(http.StatusOK, contentType, data)
}
