package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"hostel-management-backend/internal/enrollment"
	"hostel-management-backend/internal/identity"
	"hostel-management-backend/internal/media"
	"hostel-management-backend/internal/parse"
	"hostel-management-backend/internal/store"
)

// Error codes that are not enrollment kinds.
const (
	codeBadRequest          = "BadRequest"
	codeNotFound            = "NotFound"
	codeInvalidTransition   = "InvalidTransition"
	codeRoomOccupied        = "RoomOccupied"
	codeNotArrived          = "NotArrived"
	codeConstraintViolation = "ConstraintViolation"
	codeUnauthorized        = "Unauthorized"
	codeForbidden           = "Forbidden"
	codeUnsupportedMedia    = "UnsupportedMediaType"
	codeInvalidCSV          = "InvalidCSV"
	codeTooLarge            = "PayloadTooLarge"
	codeUnavailable         = "Unavailable"
	codeTimeout             = "NetworkOrTimeout"
	codeInternal            = "Internal"
)

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg, "code": codeBadRequest})
}

// writeError maps err onto a status code and the JSON error body.
func (h *Handler) writeError(c *gin.Context, err error) {
	status, code := classify(err)
	msg := err.Error()

	var rowErrs parse.RowErrors
	if errors.As(err, &rowErrs) {
		c.AbortWithStatusJSON(status, gin.H{"error": "room file rejected", "code": code, "details": rowErrs})
		return
	}
	if status >= http.StatusInternalServerError {
		h.log.WithError(err).WithField("path", c.FullPath()).Error("Request failed")
		if status == http.StatusInternalServerError {
			msg = "internal error"
		}
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg, "code": code})
}

func classify(err error) (int, string) {
	var enrollErr *enrollment.Error
	if errors.As(err, &enrollErr) {
		return enrollmentStatus(enrollErr), string(enrollErr.Kind)
	}

	var (
		rowErrs  parse.RowErrors
		tooLarge *http.MaxBytesError
	)
	switch {
	case errors.As(err, &rowErrs):
		return http.StatusUnprocessableEntity, codeInvalidCSV
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, codeTooLarge
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, store.ErrNoRoomAvailable):
		return http.StatusConflict, string(enrollment.KindNoRoomAvailable)
	case errors.Is(err, store.ErrInvalidTransition):
		return http.StatusConflict, codeInvalidTransition
	case errors.Is(err, store.ErrRoomOccupied):
		return http.StatusConflict, codeRoomOccupied
	case errors.Is(err, store.ErrNotArrived):
		return http.StatusForbidden, codeNotArrived
	case errors.Is(err, store.ErrConstraintViolation), errors.Is(err, identity.ErrEmailExists):
		return http.StatusConflict, codeConstraintViolation
	case errors.Is(err, identity.ErrInvalidCredentials):
		return http.StatusUnauthorized, codeUnauthorized
	case errors.Is(err, identity.ErrNoRole):
		return http.StatusForbidden, codeForbidden
	case errors.Is(err, identity.ErrInvalidEmail), errors.Is(err, identity.ErrWeakPassword):
		return http.StatusBadRequest, codeBadRequest
	case errors.Is(err, media.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType, codeUnsupportedMedia
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, codeTimeout
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

func enrollmentStatus(err *enrollment.Error) int {
	switch err.Kind {
	case enrollment.KindInvalidRequest:
		return http.StatusBadRequest
	case enrollment.KindIdentityCreationFailed:
		switch {
		case errors.Is(err, identity.ErrEmailExists):
			return http.StatusConflict
		case errors.Is(err, identity.ErrInvalidEmail), errors.Is(err, identity.ErrWeakPassword):
			return http.StatusBadRequest
		}
		return http.StatusInternalServerError
	case enrollment.KindPaymentRecordFailed:
		return http.StatusPaymentRequired
	case enrollment.KindNetworkOrTimeout:
		return http.StatusGatewayTimeout
	case enrollment.KindNoRoomAvailable, enrollment.KindStudentRecordFailed, enrollment.KindConstraintViolation:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
