package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storepay-backend/api/responses"
	"github.com/angelmondragon/storepay-backend/api/validators"
	"github.com/angelmondragon/storepay-backend/internal/payments"
	pkgerrors "github.com/angelmondragon/storepay-backend/pkg/errors"
	"github.com/angelmondragon/storepay-backend/pkg/logger"
)

const maxDepositorLength = 128

type makePaymentRequest struct {
	Medium         string `json:"medium"`
	SubscriptionID string `json:"subscription_id" validate:"required,uuid"`
	Reference      string `json:"reference" validate:"omitempty,max=200"`
	BankID         string `json:"bank_id" validate:"omitempty,uuid"`
	Depositor      string `json:"depositor" validate:"omitempty,max=128"`
}

func (req makePaymentRequest) toInput() payments.SubmitInput {
	input := payments.SubmitInput{
		Medium:         req.Medium,
		SubscriptionID: uuid.MustParse(req.SubscriptionID),
		Reference:      validators.SanitizeString(req.Reference, 0),
		Depositor:      validators.SanitizeString(req.Depositor, maxDepositorLength),
	}
	if req.BankID != "" {
		input.BankID = uuid.MustParse(req.BankID)
	}
	return input
}

// MakePayment records a subscription payment through the requested medium.
func MakePayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body makePaymentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithSubscriptionID(ctx, body.SubscriptionID)
			ctx = logg.WithField(ctx, "medium", body.Medium)
		}

		result, err := svc.Submit(ctx, actor, body.toInput())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// UserPayments lists the caller's payments.
func UserPayments(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := validators.ParsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListForUser(r.Context(), actor, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AllPayments lists every payment for platform admins.
func AllPayments(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := validators.ParsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListAll(r.Context(), actor, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// QueryPayments filters payments by medium and status.
func QueryPayments(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := validators.ParsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query := r.URL.Query()
		result, err := svc.Query(r.Context(), actor, payments.QueryInput{
			Medium: query.Get("medium"),
			Status: query.Get("status"),
			Page:   page,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ApprovePayment settles a payment after manual verification.
func ApprovePayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return reviewPayment(svc, logg, payments.Service.Approve)
}

// DisprovePayment rejects a payment and revokes its subscription.
func DisprovePayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return reviewPayment(svc, logg, payments.Service.Disprove)
}

type reviewFunc func(payments.Service, context.Context, payments.Actor, uuid.UUID) (*payments.Result, error)

func reviewPayment(svc payments.Service, logg *logger.Logger, review reviewFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		paymentID, err := validators.ParseUUIDParam(r, "paymentID", "payment id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithPaymentID(ctx, paymentID.String())
		}

		result, err := review(svc, ctx, actor, paymentID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
