// Package pdv exposes the register engine over HTTP.
package pdv

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pdv-backend/api/responses"
	"github.com/angelmondragon/pdv-backend/api/validators"
	"github.com/angelmondragon/pdv-backend/internal/cashsessions"
	pdvengine "github.com/angelmondragon/pdv-backend/internal/pdv"
	pkgerrors "github.com/angelmondragon/pdv-backend/pkg/errors"
	"github.com/angelmondragon/pdv-backend/pkg/logger"
)

const maxNotesLength = 500

type openCashRequest struct {
	OpeningAmount decimal.Decimal `json:"opening_amount"`
	Notes         *string         `json:"notes,omitempty" validate:"omitempty,max=500"`
}

type closeCashRequest struct {
	ClosingAmount decimal.Decimal `json:"closing_amount"`
	Notes         *string         `json:"notes,omitempty" validate:"omitempty,max=500"`
	BusinessDate  string          `json:"business_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

type expenseRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" validate:"required,max=255"`
}

// OpenCash starts the store's register session for the current business day.
func OpenCash(engine pdvengine.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if engine == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pdv engine unavailable"))
			return
		}
		storeID, userID, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload openCashRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := engine.OpenCash(r.Context(), cashsessions.OpenInput{
			StoreID:       storeID,
			UserID:        userID,
			OpeningAmount: payload.OpeningAmount,
			Notes:         sanitizeNotes(payload.Notes),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newCashSessionResponse(session))
	}
}

// GetCurrentCash returns today's open session, or null data when there is none.
func GetCurrentCash(engine pdvengine.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if engine == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pdv engine unavailable"))
			return
		}
		storeID, err := storeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := engine.GetCurrentCash(r.Context(), storeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCashSessionResponse(session))
	}
}

func CloseCash(engine pdvengine.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if engine == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pdv engine unavailable"))
			return
		}
		storeID, userID, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload closeCashRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := engine.CloseCash(r.Context(), cashsessions.CloseInput{
			StoreID:       storeID,
			UserID:        userID,
			ClosingAmount: payload.ClosingAmount,
			Notes:         sanitizeNotes(payload.Notes),
			BusinessDate:  payload.BusinessDate,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCloseCashResponse(result))
	}
}

func RecordExpense(engine pdvengine.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if engine == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pdv engine unavailable"))
			return
		}
		storeID, userID, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload expenseRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		expense, err := engine.RecordExpense(r.Context(), cashsessions.ExpenseInput{
			StoreID:     storeID,
			UserID:      userID,
			Amount:      payload.Amount,
			Description: validators.SanitizeString(payload.Description, 255),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newExpenseResponse(expense))
	}
}

func sanitizeNotes(notes *string) *string {
	if notes == nil {
		return nil
	}
	cleaned := validators.SanitizeString(*notes, maxNotesLength)
	return &cleaned
}
