package domain

// FunnelRow is one day's three-stage conversion funnel. AddToCart and
// BeginCheckout come from locally counted webhooks; Purchase comes from the
// orders collaborator. The two sources are reported as-is, so Purchase can
// legitimately exceed BeginCheckout.
type FunnelRow struct {
	Day           string `json:"day"`
	AddToCart     int64  `json:"add_to_cart"`
	BeginCheckout int64  `json:"begin_checkout"`
	Purchase      int64  `json:"purchase"`
}
