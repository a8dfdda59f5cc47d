package stripe

import (
	"context"
	"testing"

	"github.com/oscshop/storefront-backend/pkg/config"
)

func TestNewClientHoldsCredentials(t *testing.T) {
	client, err := NewClient(context.Background(), config.StripeConfig{
		APIKey: "sk_test_abc123",
		Secret: "whsec_abc123",
		Env:    "test",
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.API() == nil {
		t.Fatal("expected an initialized api handle")
	}
	if client.APIKey() != "sk_test_abc123" {
		t.Fatalf("unexpected api key: %q", client.APIKey())
	}
	if client.SigningSecret() != "whsec_abc123" {
		t.Fatalf("unexpected signing secret: %q", client.SigningSecret())
	}
}

func TestNewClientRejectsEnvKeyMismatch(t *testing.T) {
	cases := []config.StripeConfig{
		{APIKey: "sk_live_abc123", Secret: "whsec_abc123", Env: "test"},
		{APIKey: "sk_test_abc123", Secret: "whsec_abc123", Env: "live"},
		{APIKey: "sk_test_abc123", Secret: "whsec_abc123", Env: "staging"},
		{APIKey: "", Secret: "whsec_abc123", Env: "test"},
		{APIKey: "sk_test_abc123", Secret: "", Env: "test"},
	}
	for _, cfg := range cases {
		if _, err := NewClient(context.Background(), cfg, nil); err == nil {
			t.Fatalf("expected error for config %+v", cfg)
		}
	}
}
