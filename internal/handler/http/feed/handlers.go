package feed

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"community-hub/internal/common/pagination"
	"community-hub/internal/handler/http/respond"
	"community-hub/internal/observability/logging"
	feedUC "community-hub/internal/usecase/feed"
)

// defaultRadiusKm is used when /posts/nearby has no radius parameter.
const defaultRadiusKm = 5

// ListPosts serves GET /posts?sort=latest|trending&page&limit.
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	params, ok := h.pageParams(w, r)
	if !ok {
		return
	}

	page, err := h.Svc.GetPosts(r.Context(), feedUC.PostsParams{
		Sort:  feedUC.ParseSort(r.URL.Query().Get("sort")),
		Page:  params.Page,
		Limit: params.Limit,
	})
	if err != nil {
		h.fail(w, r, feedUC.OpGetPosts, err)
		return
	}
	respond.JSON(w, http.StatusOK, pagination.NewResponse(page.Items, page.Pagination))
}

// ListEvents serves GET /events?upcoming&page&limit.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	params, ok := h.pageParams(w, r)
	if !ok {
		return
	}
	upcoming, ok := boolParam(w, r, "upcoming")
	if !ok {
		return
	}

	page, err := h.Svc.GetEvents(r.Context(), feedUC.EventsParams{
		Page:     params.Page,
		Limit:    params.Limit,
		Upcoming: upcoming,
	})
	if err != nil {
		h.fail(w, r, feedUC.OpGetEvents, err)
		return
	}
	respond.JSON(w, http.StatusOK, pagination.NewResponse(page.Items, page.Pagination))
}

// ListMarketplace serves GET /marketplace?category&page&limit.
func (h *Handler) ListMarketplace(w http.ResponseWriter, r *http.Request) {
	params, ok := h.pageParams(w, r)
	if !ok {
		return
	}

	page, err := h.Svc.GetMarketplaceItems(r.Context(), feedUC.MarketplaceParams{
		Category: r.URL.Query().Get("category"),
		Page:     params.Page,
		Limit:    params.Limit,
	})
	if err != nil {
		h.fail(w, r, feedUC.OpGetMarketplaceItems, err)
		return
	}
	respond.JSON(w, http.StatusOK, pagination.NewResponse(page.Items, page.Pagination))
}

// ListBusinesses serves GET /businesses?category&page&limit.
func (h *Handler) ListBusinesses(w http.ResponseWriter, r *http.Request) {
	params, ok := h.pageParams(w, r)
	if !ok {
		return
	}

	page, err := h.Svc.GetBusinesses(r.Context(), feedUC.BusinessParams{
		Category: r.URL.Query().Get("category"),
		Page:     params.Page,
		Limit:    params.Limit,
	})
	if err != nil {
		h.fail(w, r, feedUC.OpGetBusinesses, err)
		return
	}
	respond.JSON(w, http.StatusOK, pagination.NewResponse(page.Items, page.Pagination))
}

// PersonalizedFeed serves GET /feed/{userID}?page&limit.
func (h *Handler) PersonalizedFeed(w http.ResponseWriter, r *http.Request) {
	params, ok := h.pageParams(w, r)
	if !ok {
		return
	}

	page, err := h.Svc.GetPersonalizedFeed(r.Context(), r.PathValue("userID"), params.Page, params.Limit)
	if err != nil {
		h.fail(w, r, feedUC.OpGetPersonalizedFeed, err)
		return
	}
	respond.JSON(w, http.StatusOK, pagination.NewResponse(page.Items, page.Pagination))
}

// PostsByLocation serves GET /posts/location/{location}?page&limit.
func (h *Handler) PostsByLocation(w http.ResponseWriter, r *http.Request) {
	params, ok := h.pageParams(w, r)
	if !ok {
		return
	}

	page, err := h.Svc.GetPostsByLocation(r.Context(), r.PathValue("location"), params.Page, params.Limit)
	if err != nil {
		h.fail(w, r, feedUC.OpGetPostsByLocation, err)
		return
	}
	respond.JSON(w, http.StatusOK, pagination.NewResponse(page.Items, page.Pagination))
}

// NearbyPosts serves GET /posts/nearby?lat&lng&radius. lat and lng are
// required; radius is in kilometres and defaults to 5.
func (h *Handler) NearbyPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("lat") == "" || q.Get("lng") == "" {
		respond.BadRequest(w, "lat and lng are required")
		return
	}

	lat, ok := floatParam(w, r, "lat", 0)
	if !ok {
		return
	}
	lng, ok := floatParam(w, r, "lng", 0)
	if !ok {
		return
	}
	radius, ok := floatParam(w, r, "radius", defaultRadiusKm)
	if !ok {
		return
	}

	posts, err := h.Svc.GetNearbyPosts(r.Context(), lat, lng, radius)
	if err != nil {
		h.fail(w, r, feedUC.OpGetNearbyPosts, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"data": posts})
}

// TrendingTopics serves GET /trending?limit.
func (h *Handler) TrendingTopics(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			respond.BadRequest(w, "invalid query parameter: limit must be a positive integer")
			return
		}
		limit = n
	}

	topics, err := h.Svc.GetTrendingTopics(r.Context(), limit)
	if err != nil {
		h.fail(w, r, feedUC.OpGetTrendingTopics, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"data": topics})
}

func (h *Handler) pageParams(w http.ResponseWriter, r *http.Request) (pagination.Params, bool) {
	params, err := pagination.ParseQueryParams(r, h.Pagination.Normalize())
	if err != nil {
		respond.BadRequest(w, err.Error())
		return params, false
	}
	return params, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logging.WithRequestID(r.Context(), logger).Warn("feed request failed",
		slog.String("operation", op),
		slog.String("error", respond.SanitizeError(err)))
	respond.FromError(w, err)
}

func boolParam(w http.ResponseWriter, r *http.Request, name string) (bool, bool) {
	s := strings.TrimSpace(r.URL.Query().Get(name))
	if s == "" {
		return false, true
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		respond.BadRequest(w, "invalid query parameter: "+name+" must be true or false")
		return false, false
	}
	return v, true
}

func floatParam(w http.ResponseWriter, r *http.Request, name string, def float64) (float64, bool) {
	s := strings.TrimSpace(r.URL.Query().Get(name))
	if s == "" {
		return def, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		respond.BadRequest(w, "invalid query parameter: "+name+" must be a number")
		return 0, false
	}
	return v, true
}
