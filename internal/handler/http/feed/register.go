// Package feed serves the community read endpoints over HTTP.
package feed

import (
	"context"
	"log/slog"
	"net/http"

	"community-hub/internal/backend"
	"community-hub/internal/common/pagination"
	"community-hub/internal/domain/entity"
	feedUC "community-hub/internal/usecase/feed"
)

// Reader is the read side of the community backend. *feedUC.Service
// implements it.
type Reader interface {
	GetPosts(ctx context.Context, p feedUC.PostsParams) (feedUC.Page[entity.Post], error)
	GetEvents(ctx context.Context, p feedUC.EventsParams) (feedUC.Page[entity.Event], error)
	GetMarketplaceItems(ctx context.Context, p feedUC.MarketplaceParams) (feedUC.Page[entity.MarketplaceItem], error)
	GetBusinesses(ctx context.Context, p feedUC.BusinessParams) (feedUC.Page[entity.Business], error)
	GetPersonalizedFeed(ctx context.Context, userID string, page, limit int) (feedUC.Page[entity.FeedPost], error)
	GetNearbyPosts(ctx context.Context, lat, lng, radiusKm float64) ([]entity.NearbyPost, error)
	GetPostsByLocation(ctx context.Context, location string, page, limit int) (feedUC.Page[entity.Post], error)
	GetTrendingTopics(ctx context.Context, limit int) ([]entity.TrendingTopic, error)
}

// Handler holds the dependencies shared by every feed endpoint.
type Handler struct {
	Svc        Reader
	Pagination pagination.Config
	Logger     *slog.Logger

	// Storage enables POST /uploads/{bucket} when set.
	Storage backend.Storage
}

// Register registers the feed routes with mux.
func Register(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /posts", h.ListPosts)
	mux.HandleFunc("GET /posts/nearby", h.NearbyPosts)
	mux.HandleFunc("GET /posts/location/{location}", h.PostsByLocation)
	mux.HandleFunc("GET /events", h.ListEvents)
	mux.HandleFunc("GET /marketplace", h.ListMarketplace)
	mux.HandleFunc("GET /businesses", h.ListBusinesses)
	mux.HandleFunc("GET /feed/{userID}", h.PersonalizedFeed)
	mux.HandleFunc("GET /trending", h.TrendingTopics)
	if h.Storage != nil {
		mux.HandleFunc("POST /uploads/{bucket}", h.Upload)
	}
}
