package shopify

import (
	"context"
	"fmt"
)

const ordersCountQuery = `
query OrdersByDay($query: String!, $cursor: String) {
  orders(first: 250, after: $cursor, query: $query, sortKey: CREATED_AT) {
    pageInfo { hasNextPage endCursor }
    edges { node { id } }
  }
}
`

type ordersPage struct {
	Orders struct {
		PageInfo struct {
			HasNextPage bool   `json:"hasNextPage"`
			EndCursor   string `json:"endCursor"`
		} `json:"pageInfo"`
		Edges []struct {
			Node struct {
				ID string `json:"id"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"orders"`
}

// CountPaidOrders returns how many paid, non-cancelled orders were placed
// on the given day. Shopify's order search evaluates created_at bounds in
// the shop's own timezone, which matches the counter bucketing.
func (c *Client) CountPaidOrders(ctx context.Context, day string) (int64, error) {
	search := fmt.Sprintf("created_at:>=%s created_at:<=%s financial_status:paid -status:cancelled", day, day)

	var total int64
	var cursor *string
	for {
		variables := map[string]any{"query": search}
		if cursor != nil {
			variables["cursor"] = *cursor
		}

		var page ordersPage
		if err := c.graphql(ctx, ordersCountQuery, variables, &page); err != nil {
			return 0, fmt.Errorf("counting paid orders for %s: %w", day, err)
		}

		total += int64(len(page.Orders.Edges))

		if !page.Orders.PageInfo.HasNextPage || page.Orders.PageInfo.EndCursor == "" {
			break
		}
		cursor = &page.Orders.PageInfo.EndCursor
	}

	c.logger.Debug("counted paid orders", "day", day, "count", total)
	return total, nil
}
