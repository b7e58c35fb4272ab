package controller

import (
	"net/http"

	"github.com/vibast-solutions/ms-go-userauth/app/service"
	"github.com/vibast-solutions/ms-go-userauth/app/types"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const messageInvalidBody = "Invalid request body"

// StatusFor maps an error kind onto its HTTP status.
func StatusFor(kind service.Kind) int {
	switch kind {
	case service.KindValidation:
		return http.StatusBadRequest
	case service.KindAuth:
		return http.StatusUnauthorized
	case service.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(ctx echo.Context, err error) error {
	return ctx.JSON(StatusFor(service.KindOf(err)), &types.ErrorResponse{
		Success: false,
		Message: service.PublicMessage(err),
	})
}

func invalidBody(ctx echo.Context) error {
	return ctx.JSON(http.StatusBadRequest, &types.ErrorResponse{Success: false, Message: messageInvalidBody})
}

// logFailure logs client mistakes at warn and service failures at error.
func logFailure(err error, fields logrus.Fields, msg string) {
	entry := logrus.WithFields(fields)
	if service.KindOf(err) == service.KindService {
		entry.WithError(err).Error(msg)
		return
	}
	entry.WithField("reason", service.PublicMessage(err)).Warn(msg)
}
