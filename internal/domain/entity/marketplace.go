package entity

import "time"

// Marketplace listing statuses.
const (
	ListingAvailable = "available"
	ListingReserved  = "reserved"
	ListingSold      = "sold"
)

// MarketplaceItem is an item listed for sale by a neighbour.
type MarketplaceItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Price       float64   `json:"price"`
	Currency    string    `json:"currency,omitempty"`
	Category    string    `json:"category"`
	Condition   string    `json:"condition,omitempty"`
	Status      string    `json:"status"`
	SellerID    string    `json:"seller_id"`
	ImageURLs   []string  `json:"image_urls,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	Seller      *Profile  `json:"seller,omitempty"`
}
