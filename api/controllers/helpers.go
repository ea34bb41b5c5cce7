package controllers

import (
	"net/http"

	"github.com/google/uuid"

	pkgerrors "github.com/verdanthq/verdant-backend/pkg/errors"
	"github.com/verdanthq/verdant-backend/pkg/identity"
)

func actorFrom(r *http.Request) identity.Identity {
	id, _ := identity.FromContext(r.Context())
	return id
}

func requireUserID(r *http.Request) (uuid.UUID, error) {
	id := actorFrom(r)
	if !id.IsAuthenticated() {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return *id.UserID, nil
}
