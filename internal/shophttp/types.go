// Package shophttp exposes a PriceSource over HTTP and provides the matching
// client, so a shop can live in another process.
//
// Wire format:
//
//	GET /price?product=book
//	200 {"product":"book","price":153.2}
//	400 {"product":"","error":"invalid_input error: empty product id"}
package shophttp

// PricePath is the endpoint serving single price lookups
const PricePath = "/price"

// PriceResponse is the JSON body of every /price response
type PriceResponse struct {
	Product string   `json:"product"`
	Price   *float64 `json:"price,omitempty"`
	Error   string   `json:"error,omitempty"`
}
