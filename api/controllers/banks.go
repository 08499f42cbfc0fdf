package controllers

import (
	"net/http"

	"github.com/angelmondragon/storepay-backend/api/responses"
	"github.com/angelmondragon/storepay-backend/internal/banks"
	pkgerrors "github.com/angelmondragon/storepay-backend/pkg/errors"
	"github.com/angelmondragon/storepay-backend/pkg/logger"
)

// ListBanks returns the banks a tenant can transfer a subscription payment to.
func ListBanks(svc banks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "banks service unavailable"))
			return
		}
		items, err := svc.ListActive(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"banks": items})
	}
}
