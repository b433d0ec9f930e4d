package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang-stock-scorer/pkg/common"
	"golang-stock-scorer/pkg/logger"
	"golang-stock-scorer/pkg/utils"

	"github.com/redis/go-redis/v9"
)

const (
	tradingCalendarTTL = 12 * time.Hour
	// A window ending today without today's bar may still be waiting for
	// the bar to be published.
	tradingCalendarPendingTTL = 10 * time.Minute
)

// tradingCalendarRepository shares index trading-date lookups between
// replicas through Redis. Any Redis failure falls through to the index.
type tradingCalendarRepository struct {
	redis redis.Cmdable
	index IndexRepository
	log   *logger.Logger
	now   func() time.Time
}

func NewTradingCalendarRepository(rdb redis.Cmdable, index IndexRepository, log *logger.Logger) IndexRepository {
	return &tradingCalendarRepository{redis: rdb, index: index, log: log, now: utils.TimeNowTaipei}
}

func tradingCalendarKey(symbol string, from, to time.Time) string {
	return fmt.Sprintf("%s:%s:%s:%s", common.RedisKeyTradingCalendar, symbol, utils.FormatDate(from), utils.FormatDate(to))
}

func (r *tradingCalendarRepository) GetTradingDates(ctx context.Context, symbol string, from, to time.Time) ([]time.Time, error) {
	key := tradingCalendarKey(symbol, from, to)

	cached, err := r.redis.Get(ctx, key).Result()
	switch {
	case err == nil:
		dates, decodeErr := decodeDates(cached)
		if decodeErr == nil {
			return dates, nil
		}
		r.log.WarnContext(ctx, "Discarding malformed trading calendar entry", logger.StringField("key", key), logger.ErrorField(decodeErr))
	case !errors.Is(err, redis.Nil):
		r.log.WarnContext(ctx, "Failed to read trading calendar from redis", logger.StringField("key", key), logger.ErrorField(err))
	}

	dates, err := r.index.GetTradingDates(ctx, symbol, from, to)
	if err != nil {
		return nil, err
	}
	if len(dates) == 0 {
		return dates, nil
	}

	raw := make([]string, 0, len(dates))
	for _, d := range dates {
		raw = append(raw, utils.FormatDate(d))
	}
	payload, _ := json.Marshal(raw)
	if err := r.redis.Set(ctx, key, payload, r.ttl(to, dates)).Err(); err != nil {
		r.log.WarnContext(ctx, "Failed to store trading calendar in redis", logger.StringField("key", key), logger.ErrorField(err))
	}
	return dates, nil
}

func (r *tradingCalendarRepository) ttl(to time.Time, dates []time.Time) time.Duration {
	today := utils.FormatDate(r.now())
	end := utils.FormatDate(to)
	if end < today {
		return tradingCalendarTTL
	}
	for _, d := range dates {
		if utils.FormatDate(d) >= today {
			return tradingCalendarTTL
		}
	}
	return tradingCalendarPendingTTL
}

func decodeDates(raw string) ([]time.Time, error) {
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, err
	}
	dates := make([]time.Time, 0, len(values))
	for _, v := range values {
		d, err := utils.ParseDate(v)
		if err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, nil
}
