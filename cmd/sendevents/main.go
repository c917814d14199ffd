// Command sendevents fires signed sample webhooks at a running receiver,
// including deliberate duplicate deliveries, for local testing.
package main

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
)

func main() {
	baseURL := "http://localhost:8080"
	secret := ""
	carts := 5
	dups := 2
	checkouts := 2

	// Flag-free on purpose: edit-and-run is enough for a local smoke tool,
	// but env-style overrides would fit here if it grows.
	client := &http.Client{Timeout: 5 * time.Second}
	now := time.Now().Format(time.RFC3339)

	for i := 0; i < carts; i++ {
		token := uuid.New().String()
		body := []byte(fmt.Sprintf(`{"token":%q,"created_at":%q,"line_items":[{"quantity":1}]}`, token, now))

		// First delivery plus dups redeliveries of the same cart — the
		// counter should only move once per token.
		for d := 0; d <= dups; d++ {
			post(client, baseURL+"/webhooks/carts", body, secret, fmt.Sprintf("cart %d delivery %d", i+1, d+1))
		}

		// An update for the same cart must not count either.
		update := []byte(fmt.Sprintf(`{"token":%q,"updated_at":%q,"line_items":[{"quantity":3}]}`, token, now))
		post(client, baseURL+"/webhooks/carts", update, secret, fmt.Sprintf("cart %d update", i+1))
	}

	for i := 0; i < checkouts; i++ {
		body := []byte(fmt.Sprintf(`{"token":%q,"created_at":%q}`, uuid.New().String(), now))
		post(client, baseURL+"/webhooks/checkouts", body, secret, fmt.Sprintf("checkout %d", i+1))
	}
}

func post(client *http.Client, url string, body []byte, secret, label string) {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		log.Fatalf("%s: creating request: %v", label, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write(body)
		req.Header.Set("X-Shopify-Hmac-Sha256", base64.StdEncoding.EncodeToString(mac.Sum(nil)))
	}

	resp, err := client.Do(req)
	if err != nil {
		log.Printf("%s: request failed: %v", label, err)
		return
	}
	resp.Body.Close()
	log.Printf("%s -> %d", label, resp.StatusCode)
}
