package checkout

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/oscshop/storefront-backend/internal/cart"
	pkgerrors "github.com/oscshop/storefront-backend/pkg/errors"
)

const (
	// MetadataType is the discriminator marking a payment session as a shop
	// order. The webhook endpoint may be shared with unrelated payment
	// flows, so events without it are ignored.
	MetadataType = "shop_order"

	// MetadataVersion tags the encoding so future shapes can coexist.
	MetadataVersion = "1"

	metadataKeyType        = "type"
	metadataKeyVersion     = "version"
	metadataKeyOrderID     = "order_id"
	metadataKeyOrderNumber = "order_number"
	metadataKeyUserID      = "user_id"

	// metadataKeyItems is the single-key form; ParseMetadata still accepts
	// it, Encode writes numbered chunks instead.
	metadataKeyItems       = "items"
	metadataKeyItemsPrefix = "items_"

	// Stripe caps metadata at 50 keys and 500 characters per value. Five
	// keys are fixed, the rest carry the item payload.
	metadataValueMaxLen = 500
	metadataMaxChunks   = 45
)

// OrderMetadata is the self-contained description of an order carried
// through the payment session. It is the durable fallback source of truth
// for item composition: the live cart and catalog can both change or
// expire before the asynchronous event arrives.
type OrderMetadata struct {
	OrderID     string
	OrderNumber string
	UserID      string
	Items       []MetadataItem
}

// MetadataItem is the compact wire form of one purchased variant.
type MetadataItem struct {
	ProductID  string `json:"product_id,omitempty"`
	VariantID  string `json:"variant_id,omitempty"`
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	PriceCents int64  `json:"price_cents"`
	Size       string `json:"size,omitempty"`
	Color      string `json:"color,omitempty"`
}

// Encode serializes the bundle into Stripe's string-keyed metadata map. The
// item payload easily exceeds Stripe's 500-character value cap for ordinary
// carts, so it is split across numbered keys and reassembled on parse.
func (m OrderMetadata) Encode() (map[string]string, error) {
	items, err := json.Marshal(m.Items)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode metadata items")
	}

	values := map[string]string{
		metadataKeyType:        MetadataType,
		metadataKeyVersion:     MetadataVersion,
		metadataKeyOrderID:     m.OrderID,
		metadataKeyOrderNumber: m.OrderNumber,
		metadataKeyUserID:      m.UserID,
	}

	chunks := chunkMetadataValue(string(items))
	if len(chunks) > metadataMaxChunks {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart has too many distinct items for checkout")
	}
	for i, chunk := range chunks {
		values[itemChunkKey(i)] = chunk
	}
	return values, nil
}

func itemChunkKey(i int) string {
	return fmt.Sprintf("%s%d", metadataKeyItemsPrefix, i)
}

// chunkMetadataValue splits on byte boundaries; reassembly is plain
// concatenation, so a rune split across two chunks survives the trip.
func chunkMetadataValue(raw string) []string {
	chunks := make([]string, 0, len(raw)/metadataValueMaxLen+1)
	for len(raw) > metadataValueMaxLen {
		chunks = append(chunks, raw[:metadataValueMaxLen])
		raw = raw[metadataValueMaxLen:]
	}
	return append(chunks, raw)
}

// ErrForeignEvent marks metadata that does not belong to this domain.
var ErrForeignEvent = pkgerrors.New(pkgerrors.CodeValidation, "event does not carry shop order metadata")

// ParseMetadata validates and decodes a Stripe metadata map. A missing or
// mismatched discriminator returns ErrForeignEvent so callers can skip the
// event rather than fail it.
func ParseMetadata(values map[string]string) (*OrderMetadata, error) {
	if values == nil || values[metadataKeyType] != MetadataType {
		return nil, ErrForeignEvent
	}
	if v, ok := values[metadataKeyVersion]; ok && v != MetadataVersion {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported metadata version")
	}

	meta := &OrderMetadata{
		OrderID:     strings.TrimSpace(values[metadataKeyOrderID]),
		OrderNumber: strings.TrimSpace(values[metadataKeyOrderNumber]),
		UserID:      strings.TrimSpace(values[metadataKeyUserID]),
	}

	if raw := itemsPayload(values); raw != "" {
		if err := json.Unmarshal([]byte(raw), &meta.Items); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed metadata items")
		}
	}

	for _, item := range meta.Items {
		if item.Name == "" || item.Quantity < 1 || item.PriceCents < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "malformed metadata item")
		}
	}

	if meta.OrderID != "" {
		if _, err := uuid.Parse(meta.OrderID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed order id in metadata")
		}
	}

	return meta, nil
}

func itemsPayload(values map[string]string) string {
	if raw := values[metadataKeyItems]; raw != "" {
		return raw
	}
	var b strings.Builder
	for i := 0; ; i++ {
		chunk, ok := values[itemChunkKey(i)]
		if !ok {
			break
		}
		b.WriteString(chunk)
	}
	return b.String()
}

// MetadataFromSnapshot builds the item list from a cart snapshot.
func MetadataFromSnapshot(snapshot cart.Snapshot) []MetadataItem {
	items := make([]MetadataItem, 0, len(snapshot.Items))
	for _, it := range snapshot.Items {
		item := MetadataItem{
			Name:       it.Name,
			Quantity:   it.Quantity,
			PriceCents: it.UnitPriceCents,
			Size:       it.Size,
			Color:      it.Color,
		}
		if it.ProductID != nil {
			item.ProductID = it.ProductID.String()
		}
		if it.VariantID != nil {
			item.VariantID = it.VariantID.String()
		}
		items = append(items, item)
	}
	return items
}
