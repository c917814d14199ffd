package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient("test-shop.myshopify.com", "2024-10", "shpat_test", testLogger())
	c.endpoint = srv.URL
	c.httpClient = srv.Client()
	return c
}

func ordersPageJSON(n int, hasNext bool, cursor string) string {
	edges := make([]string, n)
	for i := range edges {
		edges[i] = fmt.Sprintf(`{"node":{"id":"gid://shopify/Order/%d"}}`, i+1)
	}
	return fmt.Sprintf(`{"data":{"orders":{"pageInfo":{"hasNextPage":%t,"endCursor":%q},"edges":[%s]}}}`,
		hasNext, cursor, strings.Join(edges, ","))
}

func TestCountPaidOrders_SinglePage(t *testing.T) {
	var gotToken string
	var gotSearch string

	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get(accessTokenHeader)

		var req graphqlRequest
		json.NewDecoder(r.Body).Decode(&req)
		gotSearch, _ = req.Variables["query"].(string)

		fmt.Fprint(w, ordersPageJSON(3, false, ""))
	})

	count, err := c.CountPaidOrders(context.Background(), "2025-03-15")
	if err != nil {
		t.Fatalf("CountPaidOrders failed: %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
	if gotToken != "shpat_test" {
		t.Errorf("access token header = %q, want shpat_test", gotToken)
	}

	for _, fragment := range []string{
		"created_at:>=2025-03-15",
		"created_at:<=2025-03-15",
		"financial_status:paid",
		"-status:cancelled",
	} {
		if !strings.Contains(gotSearch, fragment) {
			t.Errorf("search query %q missing %q", gotSearch, fragment)
		}
	}
}

func TestCountPaidOrders_Paginates(t *testing.T) {
	var cursors []any

	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req graphqlRequest
		json.NewDecoder(r.Body).Decode(&req)
		cursors = append(cursors, req.Variables["cursor"])

		if len(cursors) == 1 {
			fmt.Fprint(w, ordersPageJSON(250, true, "cursor-1"))
			return
		}
		fmt.Fprint(w, ordersPageJSON(17, false, ""))
	})

	count, err := c.CountPaidOrders(context.Background(), "2025-03-15")
	if err != nil {
		t.Fatalf("CountPaidOrders failed: %v", err)
	}
	if count != 267 {
		t.Errorf("count = %d, want 267", count)
	}

	if len(cursors) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(cursors))
	}
	if cursors[0] != nil {
		t.Errorf("first request should have no cursor, got %v", cursors[0])
	}
	if cursors[1] != "cursor-1" {
		t.Errorf("second request cursor = %v, want cursor-1", cursors[1])
	}
}

func TestCountPaidOrders_GraphQLErrors(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"errors":[{"message":"Throttled"}]}`)
	})

	if _, err := c.CountPaidOrders(context.Background(), "2025-03-15"); err == nil {
		t.Fatal("graphql errors should surface as an error")
	}
}

func TestCountPaidOrders_HTTPError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broke", http.StatusBadGateway)
	})

	if _, err := c.CountPaidOrders(context.Background(), "2025-03-15"); err == nil {
		t.Fatal("HTTP failure should surface as an error")
	}
}

func TestRegisterWebhooks_AllTopics(t *testing.T) {
	type registration struct {
		topic    string
		callback string
	}
	var got []registration

	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req graphqlRequest
		json.NewDecoder(r.Body).Decode(&req)

		topic, _ := req.Variables["topic"].(string)
		sub, _ := req.Variables["webhookSubscription"].(map[string]any)
		callback, _ := sub["callbackUrl"].(string)
		got = append(got, registration{topic: topic, callback: callback})

		fmt.Fprint(w, `{"data":{"webhookSubscriptionCreate":{"webhookSubscription":{"id":"gid://shopify/WebhookSubscription/1"},"userErrors":[]}}}`)
	})

	if err := c.RegisterWebhooks(context.Background(), "https://metrics.example.com"); err != nil {
		t.Fatalf("RegisterWebhooks failed: %v", err)
	}

	want := []registration{
		{"CARTS_CREATE", "https://metrics.example.com/webhooks/carts"},
		{"CARTS_UPDATE", "https://metrics.example.com/webhooks/carts"},
		{"CHECKOUTS_CREATE", "https://metrics.example.com/webhooks/checkouts"},
	}
	if len(got) != len(want) {
		t.Fatalf("registered %d subscriptions, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("registration %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestRegisterWebhooks_UserErrorsTolerated(t *testing.T) {
	calls := 0
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, `{"data":{"webhookSubscriptionCreate":{"webhookSubscription":null,"userErrors":[{"field":["webhookSubscription","callbackUrl"],"message":"Address for this topic has already been taken"}]}}}`)
	})

	// Already-registered topics are warnings, not failures.
	if err := c.RegisterWebhooks(context.Background(), "https://metrics.example.com"); err != nil {
		t.Fatalf("RegisterWebhooks failed: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected all 3 topics attempted, got %d", calls)
	}
}
