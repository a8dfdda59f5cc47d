package enums

import "testing"

func TestOrderStatusTransitions(t *testing.T) {
	allowed := []struct{ from, to OrderStatus }{
		{OrderStatusPending, OrderStatusPaid},
		{OrderStatusPending, OrderStatusCancelled},
		{OrderStatusPaid, OrderStatusProcessing},
		{OrderStatusPaid, OrderStatusShipped},
		{OrderStatusPaid, OrderStatusCancelled},
		{OrderStatusProcessing, OrderStatusShipped},
		{OrderStatusShipped, OrderStatusDelivered},
	}
	for _, tc := range allowed {
		if !tc.from.CanTransition(tc.to) {
			t.Fatalf("expected %s -> %s to be legal", tc.from, tc.to)
		}
	}

	denied := []struct{ from, to OrderStatus }{
		{OrderStatusPaid, OrderStatusPending},
		{OrderStatusCancelled, OrderStatusPaid},
		{OrderStatusDelivered, OrderStatusShipped},
		{OrderStatusShipped, OrderStatusCancelled},
		{OrderStatusPending, OrderStatusShipped},
	}
	for _, tc := range denied {
		if tc.from.CanTransition(tc.to) {
			t.Fatalf("expected %s -> %s to be illegal", tc.from, tc.to)
		}
	}
}

func TestCancelledAndDeliveredAreTerminal(t *testing.T) {
	if !OrderStatusCancelled.IsTerminal() {
		t.Fatal("cancelled must be terminal")
	}
	if !OrderStatusDelivered.IsTerminal() {
		t.Fatal("delivered must be terminal")
	}
	if OrderStatusPending.IsTerminal() {
		t.Fatal("pending must not be terminal")
	}
}

func TestAdmissibleFromPaid(t *testing.T) {
	from := AdmissibleFrom(OrderStatusPaid)
	if len(from) != 1 || from[0] != OrderStatusPending {
		t.Fatalf("paid must only be reachable from pending, got %v", from)
	}
}

func TestParseOrderStatus(t *testing.T) {
	status, err := ParseOrderStatus("paid")
	if err != nil || status != OrderStatusPaid {
		t.Fatalf("parse paid: %v %v", status, err)
	}
	if _, err := ParseOrderStatus("refunded"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}
