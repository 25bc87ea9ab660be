package pdv

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pdv-backend/api/responses"
	"github.com/angelmondragon/pdv-backend/api/validators"
	pdvengine "github.com/angelmondragon/pdv-backend/internal/pdv"
	pkgerrors "github.com/angelmondragon/pdv-backend/pkg/errors"
	"github.com/angelmondragon/pdv-backend/pkg/logger"
	"github.com/angelmondragon/pdv-backend/pkg/storeday"
)

type createSaleRequest struct {
	Items            []saleItemRequest `json:"items" validate:"required,min=1,dive"`
	Discount         decimal.Decimal   `json:"discount"`
	Tax              decimal.Decimal   `json:"tax"`
	PaymentMethod    string            `json:"payment_method" validate:"required"`
	PaymentReference *string           `json:"payment_reference,omitempty" validate:"omitempty,max=120"`
	Notes            *string           `json:"notes,omitempty" validate:"omitempty,max=500"`
	CustomerID       *uuid.UUID        `json:"customer_id,omitempty"`
}

type saleItemRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
	Notes     *string   `json:"notes,omitempty" validate:"omitempty,max=255"`
}

// CreateSale records a register sale for the caller's store.
func CreateSale(engine pdvengine.Engine, logg *logger.Logger) http.HandlerFunc {
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

		var payload createSaleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]pdvengine.SaleItemInput, 0, len(payload.Items))
		for _, item := range payload.Items {
			items = append(items, pdvengine.SaleItemInput{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				Notes:     item.Notes,
			})
		}

		sale, err := engine.CreateSale(r.Context(), pdvengine.CreateSaleInput{
			StoreID:          storeID,
			EmployeeID:       userID,
			Items:            items,
			Discount:         payload.Discount,
			Tax:              payload.Tax,
			PaymentMethod:    payload.PaymentMethod,
			PaymentReference: payload.PaymentReference,
			Notes:            sanitizeNotes(payload.Notes),
			CustomerID:       payload.CustomerID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newSaleResponse(sale))
	}
}

// ListSales lists the store's sales, optionally bounded by start_date/end_date.
func ListSales(engine pdvengine.Engine, calendar *storeday.Calendar, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if engine == nil || calendar == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pdv engine unavailable"))
			return
		}
		storeID, err := storeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rng, ok, err := validators.ParseDateRange(r, calendar)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var dates *storeday.Range
		if ok {
			dates = &rng
		}

		list, err := engine.ListSales(r.Context(), storeID, dates)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSaleListResponse(list))
	}
}

func GetSale(engine pdvengine.Engine, logg *logger.Logger) http.HandlerFunc {
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
		saleID, err := validators.ParsePathUUID("saleId", chi.URLParam(r, "saleId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sale, err := engine.GetSale(r.Context(), storeID, saleID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSaleResponse(sale))
	}
}

// SalesReport aggregates settled sales between start_date and end_date.
func SalesReport(engine pdvengine.Engine, calendar *storeday.Calendar, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if engine == nil || calendar == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pdv engine unavailable"))
			return
		}
		storeID, err := storeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rng, ok, err := validators.ParseDateRange(r, calendar)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "start_date and end_date are required"))
			return
		}

		report, err := engine.SalesReport(r.Context(), storeID, rng)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}
