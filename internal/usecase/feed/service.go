// Package feed exposes the named data helpers of the community application.
// Each helper builds a deduplication key from its parameters, describes the
// remote read, and runs it through the request orchestrator.
package feed

import (
	"context"
	"strings"
	"time"

	"community-hub/internal/backend"
	"community-hub/internal/common/pagination"
	"community-hub/internal/domain/entity"
	"community-hub/internal/request"
)

// Operation names, used for logging, metrics and error context.
const (
	OpGetPosts            = "getPosts"
	OpGetEvents           = "getEvents"
	OpGetMarketplaceItems = "getMarketplaceItems"
	OpGetBusinesses       = "getBusinesses"
	OpGetPersonalizedFeed = "getPersonalizedFeed"
	OpGetNearbyPosts      = "getNearbyPosts"
	OpGetPostsByLocation  = "getPostsByLocation"
	OpGetTrendingTopics   = "getTrendingTopics"
)

const (
	defaultTrendingLimit = 10

	profileColumns = "id,username,display_name,avatar_url"
	postColumns    = "*,author:profiles!author_id(" + profileColumns + "),community:communities(id,name,slug)"
	eventColumns   = "*,organizer:profiles!organizer_id(" + profileColumns + ")"
	itemColumns    = "*,seller:profiles!seller_id(" + profileColumns + ")"
)

// Service provides the community read use cases.
type Service struct {
	Orch       *request.Orchestrator
	Backend    backend.Client
	Pagination pagination.Config

	// Assets resolves image and avatar paths in returned rows. Optional.
	Assets Assets

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// GetPosts returns a page of posts ordered by recency or by engagement.
func (s *Service) GetPosts(ctx context.Context, p PostsParams) (Page[entity.Post], error) {
	params := s.params(p.Page, p.Limit)
	sort := ParseSort(string(p.Sort))

	order := []backend.Order{{Column: "created_at", Descending: true}}
	if sort == SortTrending {
		order = []backend.Order{
			{Column: "comment_count", Descending: true},
			{Column: "upvotes", Descending: true},
		}
	}

	q := backend.Query{
		Table:   "posts",
		Columns: postColumns,
		Order:   order,
		Range:   rangeOf(params),
		Count:   true,
	}
	key := cacheKey("posts", string(sort), params.Page, params.Limit)
	return fetchPage[entity.Post](ctx, s, OpGetPosts, key, params, q)
}

// GetEvents returns a page of events in start order. With Upcoming set only
// events starting today or later are returned.
func (s *Service) GetEvents(ctx context.Context, p EventsParams) (Page[entity.Event], error) {
	params := s.params(p.Page, p.Limit)

	q := backend.Query{
		Table:   "events",
		Columns: eventColumns,
		Order:   []backend.Order{{Column: "start_time"}},
		Range:   rangeOf(params),
		Count:   true,
	}
	if p.Upcoming {
		q.Filters = append(q.Filters, backend.Filter{
			Column: "start_time",
			Op:     backend.OpGte,
			Value:  s.now().UTC().Format(time.DateOnly),
		})
	}
	key := cacheKey("events", p.Upcoming, params.Page, params.Limit)
	return fetchPage[entity.Event](ctx, s, OpGetEvents, key, params, q)
}

// GetMarketplaceItems returns a page of available listings, newest first.
func (s *Service) GetMarketplaceItems(ctx context.Context, p MarketplaceParams) (Page[entity.MarketplaceItem], error) {
	params := s.params(p.Page, p.Limit)
	category := strings.TrimSpace(p.Category)

	q := backend.Query{
		Table:   "marketplace_items",
		Columns: itemColumns,
		Filters: []backend.Filter{{Column: "status", Op: backend.OpEq, Value: entity.ListingAvailable}},
		Order:   []backend.Order{{Column: "created_at", Descending: true}},
		Range:   rangeOf(params),
		Count:   true,
	}
	if category != "" {
		q.Filters = append(q.Filters, backend.Filter{Column: "category", Op: backend.OpEq, Value: category})
	}
	key := cacheKey("marketplace", categoryKey(category), params.Page, params.Limit)
	return fetchPage[entity.MarketplaceItem](ctx, s, OpGetMarketplaceItems, key, params, q)
}

// GetBusinesses returns a page of the business directory, best rated first.
func (s *Service) GetBusinesses(ctx context.Context, p BusinessParams) (Page[entity.Business], error) {
	params := s.params(p.Page, p.Limit)
	category := strings.TrimSpace(p.Category)

	q := backend.Query{
		Table:   "businesses",
		Columns: "*",
		Order:   []backend.Order{{Column: "rating", Descending: true}},
		Range:   rangeOf(params),
		Count:   true,
	}
	if category != "" {
		q.Filters = append(q.Filters, backend.Filter{Column: "category", Op: backend.OpEq, Value: category})
	}
	key := cacheKey("businesses", categoryKey(category), params.Page, params.Limit)
	return fetchPage[entity.Business](ctx, s, OpGetBusinesses, key, params, q)
}

// GetPersonalizedFeed returns a page of posts ranked for userID by the
// platform's get_personalized_feed procedure.
func (s *Service) GetPersonalizedFeed(ctx context.Context, userID string, page, limit int) (Page[entity.FeedPost], error) {
	if err := entity.ValidateUserID(userID); err != nil {
		return Page[entity.FeedPost]{}, err
	}
	params := s.params(page, limit)

	args := map[string]any{
		"p_user_id": userID,
		"p_limit":   params.Limit,
		"p_offset":  pagination.CalculateOffset(params.Page, params.Limit),
	}
	key := cacheKey("personalized", "feed", userID, params.Page, params.Limit)

	res, err := request.Fetch[[]entity.FeedPost](ctx, s.Orch, OpGetPersonalizedFeed, key, func(ctx context.Context) (backend.Result, error) {
		return s.Backend.RPC(ctx, "get_personalized_feed", args)
	})
	if err != nil {
		return Page[entity.FeedPost]{}, err
	}
	s.resolveAssets(res.Items)
	return Page[entity.FeedPost]{
		Items:      nonNil(res.Items),
		Pagination: pagination.NewMetadata(params, res.Count),
	}, nil
}

// GetNearbyPosts returns posts within radiusKm of the given point, nearest
// first as ordered by the get_nearby_posts procedure.
func (s *Service) GetNearbyPosts(ctx context.Context, lat, lng, radiusKm float64) ([]entity.NearbyPost, error) {
	if err := entity.ValidateCoordinates(lat, lng); err != nil {
		return nil, err
	}
	if err := entity.ValidateRadius(radiusKm); err != nil {
		return nil, err
	}

	args := map[string]any{
		"lat":       lat,
		"lng":       lng,
		"radius_km": radiusKm,
	}
	key := cacheKey("nearby", "posts", lat, lng, radiusKm)

	res, err := request.Fetch[[]entity.NearbyPost](ctx, s.Orch, OpGetNearbyPosts, key, func(ctx context.Context) (backend.Result, error) {
		return s.Backend.RPC(ctx, "get_nearby_posts", args)
	})
	if err != nil {
		return nil, err
	}
	s.resolveAssets(res.Items)
	return nonNil(res.Items), nil
}

// GetPostsByLocation returns a page of posts whose location contains
// location, case-insensitively, newest first.
func (s *Service) GetPostsByLocation(ctx context.Context, location string, page, limit int) (Page[entity.Post], error) {
	if err := entity.ValidateLocation(location); err != nil {
		return Page[entity.Post]{}, err
	}
	params := s.params(page, limit)
	location = strings.ToLower(strings.TrimSpace(location))

	q := backend.Query{
		Table:   "posts",
		Columns: postColumns,
		Filters: []backend.Filter{{
			Column: "location",
			Op:     backend.OpILike,
			Value:  "*" + stripWildcards(location) + "*",
		}},
		Order: []backend.Order{{Column: "created_at", Descending: true}},
		Range: rangeOf(params),
		Count: true,
	}
	key := cacheKey("posts", "location", location, params.Page, params.Limit)
	return fetchPage[entity.Post](ctx, s, OpGetPostsByLocation, key, params, q)
}

// GetTrendingTopics returns up to limit topics ranked by recent activity.
// A non-positive limit selects the default of 10.
func (s *Service) GetTrendingTopics(ctx context.Context, limit int) ([]entity.TrendingTopic, error) {
	if limit < 1 {
		limit = defaultTrendingLimit
	}
	if max := s.pagination().MaxLimit; limit > max {
		limit = max
	}

	args := map[string]any{"p_limit": limit}
	key := cacheKey("trending", "topics", limit)

	res, err := request.Fetch[[]entity.TrendingTopic](ctx, s.Orch, OpGetTrendingTopics, key, func(ctx context.Context) (backend.Result, error) {
		return s.Backend.RPC(ctx, "get_trending_topics", args)
	})
	if err != nil {
		return nil, err
	}
	return nonNil(res.Items), nil
}

func fetchPage[T any](ctx context.Context, s *Service, op, key string, params pagination.Params, q backend.Query) (Page[T], error) {
	res, err := request.Fetch[[]T](ctx, s.Orch, op, key, func(ctx context.Context) (backend.Result, error) {
		return s.Backend.Query(ctx, q)
	})
	if err != nil {
		return Page[T]{}, err
	}
	s.resolveAssets(res.Items)
	return Page[T]{
		Items:      nonNil(res.Items),
		Pagination: pagination.NewMetadata(params, res.Count),
	}, nil
}

func (s *Service) params(page, limit int) pagination.Params {
	return pagination.Params{Page: page, Limit: limit}.WithDefaults(s.pagination())
}

func (s *Service) pagination() pagination.Config {
	return s.Pagination.Normalize()
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func rangeOf(p pagination.Params) *backend.Range {
	r := pagination.CalculateRange(p.Page, p.Limit)
	return &r
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

// stripWildcards removes characters PostgREST would treat as pattern or list
// syntax inside an ilike value.
func stripWildcards(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '*', '%', ',', '(', ')':
			return -1
		}
		return r
	}, s)
}
