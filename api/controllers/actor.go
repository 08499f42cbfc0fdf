package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storepay-backend/api/middleware"
	"github.com/angelmondragon/storepay-backend/internal/payments"
	"github.com/angelmondragon/storepay-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storepay-backend/pkg/errors"
)

func userIDFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return id, nil
}

// actorFromRequest builds the workflow actor from the authenticated context.
// The role is informational; admin rights are decided by the user record.
func actorFromRequest(r *http.Request) (payments.Actor, error) {
	userID, err := userIDFromRequest(r)
	if err != nil {
		return payments.Actor{}, err
	}
	role, err := enums.ParseUserRole(middleware.RoleFromContext(r.Context()))
	if err != nil {
		role = enums.UserRoleMember
	}
	return payments.Actor{UserID: userID, Role: role}, nil
}
