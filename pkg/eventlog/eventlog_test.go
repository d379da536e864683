package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEvent struct {
	Message string `json:"message"`
}

func TestAppendEventsVersions(t *testing.T) {
	j := NewJournal()
	ctx := context.Background()

	data, _ := json.Marshal(testEvent{Message: "first"})
	err := j.AppendEvents(ctx, "order-1", "order", 0, []Event{
		{EventType: "OrderPlaced", EventData: data},
		{EventType: "OrderProcessed", EventData: data},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, j.CurrentVersion(ctx, "order-1"))
	assert.Equal(t, 0, j.CurrentVersion(ctx, "order-2"))

	events, err := j.LoadEvents(ctx, "order-1", 0, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, int64(1), events[0].ID)
	assert.Equal(t, 1, events[0].Version)
	assert.Equal(t, 2, events[1].Version)
	assert.Equal(t, "order", events[1].AggregateType)
	assert.NotEqual(t, events[0].EventID, events[1].EventID)
}

func TestAppendEventsConflict(t *testing.T) {
	j := NewJournal()
	ctx := context.Background()

	require.NoError(t, j.AppendEvents(ctx, "book-1", "book", 0, []Event{{EventType: "BookAdded"}}))

	err := j.AppendEvents(ctx, "book-1", "book", 0, []Event{{EventType: "BookAdded"}})
	assert.ErrorIs(t, err, ErrConcurrencyConflict)
	assert.Equal(t, 1, j.Len())

	err = j.AppendEvents(ctx, "book-1", "book", -1, nil)
	assert.ErrorIs(t, err, ErrInvalidVersion)
}

func TestRecordAndLoadRange(t *testing.T) {
	j := NewJournal()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, j.Record(ctx, "catalog", "catalog", "CatalogSorted", testEvent{Message: fmt.Sprint(i)}))
	}

	events, err := j.LoadEvents(ctx, "catalog", 2, 4)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, 2, events[0].Version)
	assert.Equal(t, 4, events[2].Version)

	var payload testEvent
	require.NoError(t, json.Unmarshal(events[0].EventData, &payload))
	assert.Equal(t, "1", payload.Message)
}

func TestRecordRejectsUnmarshalableData(t *testing.T) {
	j := NewJournal()
	err := j.Record(context.Background(), "x", "x", "Broken", make(chan int))
	assert.Error(t, err)
	assert.Equal(t, 0, j.Len())
}

func TestStreamEvents(t *testing.T) {
	j := NewJournal()
	ctx := context.Background()
	for i := 0; i < 7; i++ {
		require.NoError(t, j.Record(ctx, fmt.Sprintf("book-%d", i), "book", "BookAdded", testEvent{}))
	}

	batch, err := j.StreamEvents(ctx, 0, 3)
	require.NoError(t, err)
	require.Len(t, batch, 3)
	assert.Equal(t, int64(1), batch[0].ID)

	batch, err = j.StreamEvents(ctx, batch[len(batch)-1].ID, 10)
	require.NoError(t, err)
	require.Len(t, batch, 4)
	assert.Equal(t, int64(4), batch[0].ID)
	assert.Equal(t, int64(7), batch[3].ID)

	batch, err = j.StreamEvents(ctx, 7, 10)
	require.NoError(t, err)
	assert.Empty(t, batch)

	_, err = j.StreamEvents(ctx, 0, 0)
	assert.Error(t, err)
}

func TestMetadataFromContext(t *testing.T) {
	j := NewJournal()
	ctx := WithMetadata(context.Background(), "request_id", "abc")
	ctx = WithMetadata(ctx, "actor", "operator")

	require.NoError(t, j.Record(ctx, "order-1000", "order", "OrderPlaced", testEvent{}))

	events, err := j.LoadEvents(context.Background(), "order-1000", 0, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, map[string]string{"request_id": "abc", "actor": "operator"}, events[0].Metadata)
}
