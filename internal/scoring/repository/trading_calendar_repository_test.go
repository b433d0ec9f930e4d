package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang-stock-scorer/pkg/logger"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIndex struct {
	dates []time.Time
	err   error
	calls int
}

func (f *fakeIndex) GetTradingDates(context.Context, string, time.Time, time.Time) ([]time.Time, error) {
	f.calls++
	return f.dates, f.err
}

func TestTradingCalendar_CacheHit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	from, to := taipeiDate(2025, 3, 1), taipeiDate(2025, 3, 14)
	key := tradingCalendarKey("^TWII", from, to)
	mock.ExpectGet(key).SetVal(`["2025-03-13","2025-03-14"]`)

	index := &fakeIndex{}
	repo := NewTradingCalendarRepository(db, index, logger.NewNop())
	dates, err := repo.GetTradingDates(context.Background(), "^TWII", from, to)

	require.NoError(t, err)
	require.Len(t, dates, 2)
	assert.Equal(t, 0, index.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTradingCalendar_MissStores(t *testing.T) {
	db, mock := redismock.NewClientMock()
	from, to := taipeiDate(2025, 3, 1), taipeiDate(2025, 3, 14)
	key := tradingCalendarKey("^TWII", from, to)
	mock.ExpectGet(key).RedisNil()
	mock.ExpectSet(key, []byte(`["2025-03-14"]`), tradingCalendarTTL).SetVal("OK")

	index := &fakeIndex{dates: []time.Time{taipeiDate(2025, 3, 14)}}
	repo := NewTradingCalendarRepository(db, index, logger.NewNop())
	dates, err := repo.GetTradingDates(context.Background(), "^TWII", from, to)

	require.NoError(t, err)
	assert.Len(t, dates, 1)
	assert.Equal(t, 1, index.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTradingCalendar_RedisDownFallsThrough(t *testing.T) {
	db, mock := redismock.NewClientMock()
	from, to := taipeiDate(2025, 3, 1), taipeiDate(2025, 3, 14)
	key := tradingCalendarKey("^TWII", from, to)
	mock.ExpectGet(key).SetErr(errors.New("connection refused"))
	mock.ExpectSet(key, []byte(`["2025-03-14"]`), tradingCalendarTTL).SetErr(errors.New("connection refused"))

	index := &fakeIndex{dates: []time.Time{taipeiDate(2025, 3, 14)}}
	repo := NewTradingCalendarRepository(db, index, logger.NewNop())
	dates, err := repo.GetTradingDates(context.Background(), "^TWII", from, to)

	require.NoError(t, err)
	assert.Len(t, dates, 1)
}

func TestTradingCalendar_IndexError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	from, to := taipeiDate(2025, 3, 1), taipeiDate(2025, 3, 14)
	mock.ExpectGet(tradingCalendarKey("^TWII", from, to)).RedisNil()

	repo := NewTradingCalendarRepository(db, &fakeIndex{err: errors.New("boom")}, logger.NewNop())
	_, err := repo.GetTradingDates(context.Background(), "^TWII", from, to)
	assert.Error(t, err)
}

func TestTradingCalendar_WindowAwaitingTodayUsesShortTTL(t *testing.T) {
	from, to := taipeiDate(2025, 3, 1), taipeiDate(2025, 3, 14)
	key := tradingCalendarKey("^TWII", from, to)

	tests := map[string]struct {
		dates []time.Time
		ttl   time.Duration
	}{
		"today not published": {dates: []time.Time{taipeiDate(2025, 3, 13)}, ttl: tradingCalendarPendingTTL},
		"today published":     {dates: []time.Time{taipeiDate(2025, 3, 13), taipeiDate(2025, 3, 14)}, ttl: tradingCalendarTTL},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			db, mock := redismock.NewClientMock()
			mock.ExpectGet(key).RedisNil()
			payload := `["2025-03-13"]`
			if len(tt.dates) == 2 {
				payload = `["2025-03-13","2025-03-14"]`
			}
			mock.ExpectSet(key, []byte(payload), tt.ttl).SetVal("OK")

			repo := NewTradingCalendarRepository(db, &fakeIndex{dates: tt.dates}, logger.NewNop())
			repo.(*tradingCalendarRepository).now = func() time.Time { return to.Add(15 * time.Hour) }

			_, err := repo.GetTradingDates(context.Background(), "^TWII", from, to)
			require.NoError(t, err)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
