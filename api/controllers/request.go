package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/nandazuhri/lokapasar-backend/api/middleware"
	pkgerrors "github.com/nandazuhri/lokapasar-backend/pkg/errors"
)

// authedUserID pulls the authenticated user id out of the request context.
func authedUserID(r *http.Request) (uuid.UUID, error) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	return userID, nil
}
