package entity

import "time"

// Business is a local business listed in the directory.
type Business struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category"`
	Address     string    `json:"address,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	Website     string    `json:"website,omitempty"`
	Rating      float64   `json:"rating"`
	ReviewCount int       `json:"review_count"`
	Verified    bool      `json:"verified"`
	CreatedAt   time.Time `json:"created_at"`
}

// TrendingTopic is a hashtag ranked by recent activity.
type TrendingTopic struct {
	Topic     string  `json:"topic"`
	PostCount int     `json:"post_count"`
	Score     float64 `json:"score,omitempty"`
}
