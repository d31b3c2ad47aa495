package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryFilterDateRange(t *testing.T) {
	now := time.Date(2025, 5, 14, 18, 30, 0, 0, time.UTC)

	t.Run("today", func(t *testing.T) {
		f := &QueryFilter{Date: "today"}
		start, end, err := f.DateRange(now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 5, 14, 0, 0, 0, 0, time.UTC), start)
		assert.Equal(t, time.Date(2025, 5, 15, 0, 0, 0, 0, time.UTC), end)
	})

	t.Run("yesterday", func(t *testing.T) {
		f := &QueryFilter{Date: "Yesterday"}
		start, end, err := f.DateRange(now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 5, 13, 0, 0, 0, 0, time.UTC), start)
		assert.Equal(t, time.Date(2025, 5, 14, 0, 0, 0, 0, time.UTC), end)
	})

	t.Run("explicit date", func(t *testing.T) {
		f := &QueryFilter{Date: "2025-01-31"}
		start, end, err := f.DateRange(now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), start)
		assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), end)
	})

	t.Run("invalid date", func(t *testing.T) {
		f := &QueryFilter{Date: "last tuesday"}
		_, _, err := f.DateRange(now)
		assert.ErrorIs(t, err, ErrInvalidDate)
	})

	t.Run("no date set", func(t *testing.T) {
		f := &QueryFilter{}
		_, _, err := f.DateRange(now)
		assert.Error(t, err)
	})
}

func TestQueryFilterContentShapes(t *testing.T) {
	assert.True(t, (&QueryFilter{Content: "links"}).LinksOnly())
	assert.True(t, (&QueryFilter{Content: " Links "}).LinksOnly())
	assert.False(t, (&QueryFilter{Content: "photo"}).LinksOnly())

	assert.Equal(t, "deploy", (&QueryFilter{Content: "text:deploy"}).TextKeyword())
	assert.Equal(t, "two words", (&QueryFilter{Content: "TEXT: two words "}).TextKeyword())
	assert.Equal(t, "", (&QueryFilter{Content: "links"}).TextKeyword())

	assert.Equal(t, MediaPhoto, (&QueryFilter{Content: "photo"}).MediaFilter())
	assert.Equal(t, MediaNone, (&QueryFilter{Content: "links"}).MediaFilter())
	assert.Equal(t, MediaNone, (&QueryFilter{Content: "text:photo"}).MediaFilter())
}

func TestQueryFilterIsZero(t *testing.T) {
	assert.True(t, (&QueryFilter{}).IsZero())
	assert.True(t, (&QueryFilter{Limit: 10}).IsZero())
	assert.False(t, (&QueryFilter{Chat: "@dev"}).IsZero())
	assert.False(t, (&QueryFilter{Date: "today"}).IsZero())
}
