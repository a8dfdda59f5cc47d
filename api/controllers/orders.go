package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/oscshop/storefront-backend/api/responses"
	"github.com/oscshop/storefront-backend/api/validators"
	internalorders "github.com/oscshop/storefront-backend/internal/orders"
	"github.com/oscshop/storefront-backend/pkg/db/models"
	"github.com/oscshop/storefront-backend/pkg/enums"
	pkgerrors "github.com/oscshop/storefront-backend/pkg/errors"
	"github.com/oscshop/storefront-backend/pkg/logger"
	"github.com/oscshop/storefront-backend/pkg/pagination"
)

// OrdersList returns a paginated order list, newest first, optionally
// filtered by status.
func OrdersList(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		var status *enums.OrderStatus
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			parsed, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			status = &parsed
		}

		rows, next, err := svc.List(r.Context(), status, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.ToListResponse(rows, next))
	}
}

// OrderDetail returns one order with its items. The path parameter accepts
// either the order id or the human-readable order number.
func OrderDetail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		ref := strings.TrimSpace(chi.URLParam(r, "orderRef"))
		if ref == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order reference is required"))
			return
		}

		order, err := findOrder(r, svc, ref)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.ToResponse(order))
	}
}

func findOrder(r *http.Request, svc internalorders.Service, ref string) (*models.Order, error) {
	if id, parseErr := uuid.Parse(ref); parseErr == nil {
		return svc.Get(r.Context(), id)
	}
	return svc.GetByNumber(r.Context(), ref)
}
