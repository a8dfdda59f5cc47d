package orders

import (
	"time"

	"github.com/oscshop/storefront-backend/pkg/db/models"
	"github.com/oscshop/storefront-backend/pkg/types"
)

// OrderResponse is the API shape for one order.
type OrderResponse struct {
	ID                    string             `json:"id"`
	OrderNumber           string             `json:"order_number"`
	UserID                string             `json:"user_id,omitempty"`
	Status                string             `json:"status"`
	Currency              string             `json:"currency"`
	SubtotalCents         int64              `json:"subtotal_cents"`
	ShippingCents         int64              `json:"shipping_cents"`
	TaxCents              int64              `json:"tax_cents"`
	TotalCents            int64              `json:"total_cents"`
	StripeSessionID       string             `json:"stripe_session_id,omitempty"`
	StripePaymentIntentID string             `json:"stripe_payment_intent_id,omitempty"`
	ShippingAddress       *types.Address     `json:"shipping_address,omitempty"`
	PaidAt                *time.Time         `json:"paid_at,omitempty"`
	ShippedAt             *time.Time         `json:"shipped_at,omitempty"`
	DeliveredAt           *time.Time         `json:"delivered_at,omitempty"`
	CancelledAt           *time.Time         `json:"cancelled_at,omitempty"`
	CreatedAt             time.Time          `json:"created_at"`
	Items                 []ItemResponse     `json:"items"`
}

// ItemResponse is the API shape for one line item.
type ItemResponse struct {
	ID             string `json:"id"`
	ProductID      string `json:"product_id,omitempty"`
	VariantID      string `json:"variant_id,omitempty"`
	Name           string `json:"name"`
	Size           string `json:"size,omitempty"`
	Color          string `json:"color,omitempty"`
	ImageURL       string `json:"image_url,omitempty"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Quantity       int    `json:"quantity"`
	LineTotalCents int64  `json:"line_total_cents"`
}

// ListResponse pages orders with an opaque cursor.
type ListResponse struct {
	Orders     []OrderResponse `json:"orders"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// ToResponse maps the persisted order to its API shape.
func ToResponse(order *models.Order) OrderResponse {
	resp := OrderResponse{
		ID:              order.ID.String(),
		OrderNumber:     order.OrderNumber,
		Status:          order.Status.String(),
		Currency:        string(order.Currency),
		SubtotalCents:   order.SubtotalCents,
		ShippingCents:   order.ShippingCents,
		TaxCents:        order.TaxCents,
		TotalCents:      order.TotalCents,
		ShippingAddress: order.ShippingAddress,
		PaidAt:          order.PaidAt,
		ShippedAt:       order.ShippedAt,
		DeliveredAt:     order.DeliveredAt,
		CancelledAt:     order.CancelledAt,
		CreatedAt:       order.CreatedAt,
		Items:           make([]ItemResponse, 0, len(order.Items)),
	}
	if order.UserID != nil {
		resp.UserID = order.UserID.String()
	}
	if order.StripeSessionID != nil {
		resp.StripeSessionID = *order.StripeSessionID
	}
	if order.StripePaymentIntentID != nil {
		resp.StripePaymentIntentID = *order.StripePaymentIntentID
	}
	for _, item := range order.Items {
		resp.Items = append(resp.Items, toItemResponse(item))
	}
	return resp
}

func toItemResponse(item models.OrderItem) ItemResponse {
	resp := ItemResponse{
		ID:             item.ID.String(),
		Name:           item.Name,
		Size:           item.Size,
		Color:          item.Color,
		ImageURL:       item.ImageURL,
		UnitPriceCents: item.UnitPriceCents,
		Quantity:       item.Quantity,
		LineTotalCents: item.LineTotalCents,
	}
	if item.ProductID != nil {
		resp.ProductID = item.ProductID.String()
	}
	if item.VariantID != nil {
		resp.VariantID = item.VariantID.String()
	}
	return resp
}

// ToListResponse maps a page of orders.
func ToListResponse(rows []models.Order, next string) ListResponse {
	resp := ListResponse{
		Orders:     make([]OrderResponse, 0, len(rows)),
		NextCursor: next,
	}
	for i := range rows {
		resp.Orders = append(resp.Orders, ToResponse(&rows[i]))
	}
	return resp
}
