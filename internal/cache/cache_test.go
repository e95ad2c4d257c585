package cache

import (
	"context"
	"testing"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaggedCache_SetGet(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer rdb.Close()

	c := NewTaggedCache(1024*1024, 60, rdb)

	mock.ExpectSAdd(tagKeyPrefix+"workouts-7", "workouts-list-7").SetVal(1)
	require.NoError(t, c.Set(context.Background(), "workouts-list-7", []byte(`[]`), "workouts-7"))

	val, found := c.Get("workouts-list-7")
	require.True(t, found)
	assert.Equal(t, []byte(`[]`), val)

	_, found = c.Get("unknown-key")
	assert.False(t, found)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaggedCache_Invalidate(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer rdb.Close()

	c := NewTaggedCache(1024*1024, 60, rdb)

	mock.ExpectSAdd(tagKeyPrefix+"food-ideas-7", "food-ideas-7-w1").SetVal(1)
	require.NoError(t, c.Set(context.Background(), "food-ideas-7-w1", []byte(`[]`), "food-ideas-7"))

	mock.ExpectSMembers(tagKeyPrefix + "food-ideas-7").SetVal([]string{"food-ideas-7-w1"})
	mock.ExpectDel(tagKeyPrefix + "food-ideas-7").SetVal(1)
	c.Invalidate(context.Background(), "food-ideas-7")

	_, found := c.Get("food-ideas-7-w1")
	assert.False(t, found)

	require.NoError(t, mock.ExpectationsWereMet())
}
