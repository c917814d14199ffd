package shopify

import (
	"context"
	"fmt"
)

const webhookCreateMutation = `
mutation webhookSubscriptionCreate($topic: WebhookSubscriptionTopic!, $webhookSubscription: WebhookSubscriptionInput!) {
  webhookSubscriptionCreate(topic: $topic, webhookSubscription: $webhookSubscription) {
    webhookSubscription { id }
    userErrors { field message }
  }
}
`

type webhookCreateResult struct {
	WebhookSubscriptionCreate struct {
		WebhookSubscription struct {
			ID string `json:"id"`
		} `json:"webhookSubscription"`
		UserErrors []struct {
			Field   []string `json:"field"`
			Message string   `json:"message"`
		} `json:"userErrors"`
	} `json:"webhookSubscriptionCreate"`
}

// RegisterWebhooks subscribes the shop's funnel topics to the receiver at
// baseURL. Both cart topics point at the same endpoint; the receiver
// collapses them into one logical add-to-cart per cart token.
func (c *Client) RegisterWebhooks(ctx context.Context, baseURL string) error {
	subscriptions := []struct {
		topic    string
		callback string
	}{
		{"CARTS_CREATE", baseURL + "/webhooks/carts"},
		{"CARTS_UPDATE", baseURL + "/webhooks/carts"},
		{"CHECKOUTS_CREATE", baseURL + "/webhooks/checkouts"},
	}

	for _, sub := range subscriptions {
		variables := map[string]any{
			"topic": sub.topic,
			"webhookSubscription": map[string]any{
				"callbackUrl": sub.callback,
				"format":      "JSON",
			},
		}

		var result webhookCreateResult
		if err := c.graphql(ctx, webhookCreateMutation, variables, &result); err != nil {
			return fmt.Errorf("registering %s: %w", sub.topic, err)
		}

		if errs := result.WebhookSubscriptionCreate.UserErrors; len(errs) > 0 {
			// "address already taken" style errors mean the subscription
			// exists; surface them and keep going.
			c.logger.Warn("webhook registration reported user errors",
				"topic", sub.topic,
				"message", errs[0].Message,
			)
			continue
		}

		c.logger.Info("registered webhook",
			"topic", sub.topic,
			"callback", sub.callback,
			"subscription_id", result.WebhookSubscriptionCreate.WebhookSubscription.ID,
		)
	}

	return nil
}
