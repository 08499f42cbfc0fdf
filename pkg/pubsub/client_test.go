package pubsub

import (
	"context"
	"testing"

	"github.com/angelmondragon/storepay-backend/pkg/config"
)

func TestResourceNames(t *testing.T) {
	cases := []struct {
		name string
		got  string
		want string
	}{
		{"topic id", topicResourceName("proj", "sp-payment-events"), "projects/proj/topics/sp-payment-events"},
		{"topic full name", topicResourceName("proj", "projects/other/topics/t"), "projects/other/topics/t"},
		{"subscription id", subscriptionResourceName("proj", " subs "), "projects/proj/subscriptions/subs"},
		{"subscription path under topics", subscriptionResourceName("proj", "projects/other/topics/t"), "projects/proj/subscriptions/projects/other/topics/t"},
		{"empty name", topicResourceName("proj", " "), ""},
		{"missing project", subscriptionResourceName("", "subs"), ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, tc.got)
			}
		})
	}
}

func TestSubscriptionNames(t *testing.T) {
	if names := subscriptionNames(config.PubSubConfig{}); len(names) != 0 {
		t.Fatalf("expected no subscriptions, got %v", names)
	}
	names := subscriptionNames(config.PubSubConfig{PaymentsSubscription: " sp-payment-notifications "})
	if len(names) != 1 || names[0] != "sp-payment-notifications" {
		t.Fatalf("unexpected subscriptions %v", names)
	}
}

func TestClientOptions(t *testing.T) {
	if opts := clientOptions(config.GCPConfig{}); len(opts) != 0 {
		t.Fatalf("expected default credentials, got %d options", len(opts))
	}
	if opts := clientOptions(config.GCPConfig{CredentialsJSON: `{"type":"service_account"}`, ApplicationCredentials: "/tmp/key.json"}); len(opts) != 1 {
		t.Fatalf("expected a single credentials option, got %d", len(opts))
	}
}

func TestNilClientHandles(t *testing.T) {
	var c *Client
	if c.Publisher("t") != nil || c.PaymentsSubscription() != nil {
		t.Fatal("expected nil handles from nil client")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	if err := c.Ping(context.Background()); err == nil {
		t.Fatal("expected ping error from nil client")
	}
}
