package entity

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_Upcoming(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, Event{StartTime: now}.Upcoming(now))
	assert.True(t, Event{StartTime: now.Add(time.Hour)}.Upcoming(now))
	assert.False(t, Event{StartTime: now.Add(-time.Minute)}.Upcoming(now))
}

func TestNearbyPost_FlattenedJSON(t *testing.T) {
	raw := `{"id":"p1","title":"Lost cat","content":"Grey tabby","author_id":"u1","upvotes":3,"comment_count":1,"created_at":"2026-06-01T09:00:00Z","distance_km":1.25}`

	var p NearbyPost
	require.NoError(t, json.Unmarshal([]byte(raw), &p))

	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, 3, p.Upvotes)
	assert.InDelta(t, 1.25, p.DistanceKm, 1e-9)
}
