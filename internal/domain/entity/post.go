// Package entity defines the rows the community application reads from the
// data platform: posts, events, marketplace listings, businesses and trending
// topics, along with the validation rules for the parameters used to query
// them.
package entity

import "time"

// Profile is the public part of a user profile embedded in other rows.
type Profile struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// Community is a neighbourhood group a post belongs to.
type Community struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}

// Post is a community post with its author and community embedded.
type Post struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Content      string     `json:"content"`
	AuthorID     string     `json:"author_id"`
	CommunityID  string     `json:"community_id,omitempty"`
	Location     string     `json:"location,omitempty"`
	Latitude     *float64   `json:"latitude,omitempty"`
	Longitude    *float64   `json:"longitude,omitempty"`
	ImageURL     string     `json:"image_url,omitempty"`
	Upvotes      int        `json:"upvotes"`
	CommentCount int        `json:"comment_count"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
	Author       *Profile   `json:"author,omitempty"`
	Community    *Community `json:"community,omitempty"`
}

// NearbyPost is a post returned by the radius search with its distance from
// the search origin.
type NearbyPost struct {
	Post
	DistanceKm float64 `json:"distance_km"`
}

// FeedPost is a post ranked for one user.
type FeedPost struct {
	Post
	Score float64 `json:"score"`
}
