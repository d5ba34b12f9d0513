package request

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"community-hub/internal/apierror"
	"community-hub/internal/backend"
)

type row struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

func TestFetch_DecodesPayload(t *testing.T) {
	h := newHarness(t, 5)
	total := int64(41)

	page, err := Fetch[[]row](context.Background(), h.orch, "getPosts", "posts_latest_1_20", func(context.Context) (backend.Result, error) {
		return backend.Result{
			Data:  json.RawMessage(`[{"id":"p1","title":"Lost cat"},{"id":"p2","title":"Garage sale"}]`),
			Count: &total,
		}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, []row{{"p1", "Lost cat"}, {"p2", "Garage sale"}}, page.Items)
	require.NotNil(t, page.Count)
	assert.Equal(t, int64(41), *page.Count)
}

func TestFetch_NullPayloadIsEmpty(t *testing.T) {
	h := newHarness(t, 5)

	page, err := Fetch[[]row](context.Background(), h.orch, "getEvents", "events_true_1_20", func(context.Context) (backend.Result, error) {
		return backend.Result{Data: json.RawMessage(`null`)}, nil
	})

	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Nil(t, page.Count)
}

func TestFetch_ErrorPayloadIsClassified(t *testing.T) {
	tests := []struct {
		name     string
		payload  *backend.Error
		kind     apierror.Kind
		message  string
		attempts int
	}{
		{
			name:     "not found",
			payload:  &backend.Error{Code: "PGRST116", Message: "JSON object requested, multiple (or no) rows returned", Status: 406},
			kind:     apierror.KindNotFound,
			message:  apierror.MessageNotFound,
			attempts: 1,
		},
		{
			name:     "duplicate",
			payload:  &backend.Error{Code: "23505", Message: "duplicate key value violates unique constraint", Status: 409},
			kind:     apierror.KindDuplicate,
			message:  apierror.MessageDuplicate,
			attempts: 1,
		},
		{
			name:     "transient status is retried",
			payload:  &backend.Error{Code: "XX000", Message: "upstream overloaded", Status: 503},
			kind:     apierror.KindUnknown,
			message:  "upstream overloaded",
			attempts: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, 10)
			attempts := 0

			_, err := Fetch[[]row](context.Background(), h.orch, "getMarketplaceItems", "marketplace_all_1_20", func(context.Context) (backend.Result, error) {
				attempts++
				return backend.Result{Error: tt.payload}, nil
			})

			var ce *apierror.Error
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.kind, ce.Kind)
			assert.Equal(t, tt.message, ce.Message)
			assert.Equal(t, tt.attempts, attempts)
		})
	}
}

func TestFetch_ErrorPayloadCountsTowardBreaker(t *testing.T) {
	h := newHarness(t, 10)

	_, err := Fetch[[]row](context.Background(), h.orch, "getBusinesses", "businesses_all_1_20", func(context.Context) (backend.Result, error) {
		return backend.Result{Error: &backend.Error{Message: "internal error", Status: 500}}, nil
	})

	require.Error(t, err)
	assert.Equal(t, 4, h.orch.Breaker().FailureCount)
}

func TestFetch_DecodeFailure(t *testing.T) {
	h := newHarness(t, 5)

	_, err := Fetch[[]row](context.Background(), h.orch, "getTrendingTopics", "trending_topics_10", func(context.Context) (backend.Result, error) {
		return backend.Result{Data: json.RawMessage(`{"unexpected":true}`)}, nil
	})

	var ce *apierror.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, apierror.KindUnknown, ce.Kind)
	assert.Equal(t, apierror.MessageUnexpected, ce.Message)
	assert.Zero(t, h.orch.Breaker().FailureCount, "decode errors do not trip the breaker")
}

func TestMakeRequest_Typed(t *testing.T) {
	h := newHarness(t, 5)

	n, err := MakeRequest(context.Background(), h.orch, "count", "count_posts", func(context.Context) (int, error) {
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestMakeRequest_FinishedCallsAreNotCached(t *testing.T) {
	h := newHarness(t, 5)

	_, err := h.orch.Do(context.Background(), "count", "shared", func(context.Context) (any, error) {
		return "text", nil
	})
	require.NoError(t, err)

	got, err := MakeRequest(context.Background(), h.orch, "count", "shared", func(context.Context) (int, error) {
		return 3, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, got)
}
