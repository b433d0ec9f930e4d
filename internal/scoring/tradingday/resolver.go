// Package tradingday assigns the trading date a score belongs to.
package tradingday

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang-stock-scorer/internal/entity"
	"golang-stock-scorer/internal/scoring/dto"
	"golang-stock-scorer/pkg/common"
	"golang-stock-scorer/pkg/logger"
	"golang-stock-scorer/pkg/utils"
)

// Calendar lists the dates the reference index traded on.
type Calendar interface {
	GetTradingDates(ctx context.Context, symbol string, from, to time.Time) ([]time.Time, error)
}

// Config holds the resolver settings.
type Config struct {
	Location        *time.Location
	CutoffHours     map[entity.Category]int
	ReferenceSymbol string
	LookbackDays    int
}

// DefaultCutoffHours is the local hour after which today's data is final.
var DefaultCutoffHours = map[entity.Category]int{
	entity.CategoryFundamentals: 17,
	entity.CategoryChip:         21,
	entity.CategoryTechnical:    14,
	entity.CategoryNews:         17,
}

// Resolver maps a wall-clock time to the trading date of a category.
type Resolver struct {
	cfg      Config
	calendar Calendar
	logger   *logger.Logger

	mu      sync.Mutex
	memoDay string
	memo    map[string]time.Time
}

func NewResolver(cfg Config, calendar Calendar, log *logger.Logger) *Resolver {
	if cfg.Location == nil {
		cfg.Location = utils.GetTaipeiTimeLocation()
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = common.DefaultTradingLookbackDays
	}
	if cfg.CutoffHours == nil {
		cfg.CutoffHours = DefaultCutoffHours
	}
	return &Resolver{
		cfg:      cfg,
		calendar: calendar,
		logger:   log,
		memo:     make(map[string]time.Time),
	}
}

// Resolve returns the trading date a record for category at now is keyed
// by. An explicit date is returned as is.
func (r *Resolver) Resolve(ctx context.Context, category entity.Category, now time.Time, explicit *time.Time) (time.Time, error) {
	if explicit != nil {
		return utils.TruncateToDate(explicit.In(r.cfg.Location)), nil
	}
	cutoff, ok := r.cfg.CutoffHours[category]
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %s", dto.ErrInvalidCategory, category)
	}

	local := now.In(r.cfg.Location)
	raw := RawDate(local, cutoff)
	return r.snap(ctx, local, raw), nil
}

// RawDate applies the cutoff rule: before the cutoff hour the previous
// calendar day is used.
func RawDate(local time.Time, cutoffHour int) time.Time {
	date := utils.TruncateToDate(local)
	if local.Hour() < cutoffHour {
		date = date.AddDate(0, 0, -1)
	}
	return date
}

func (r *Resolver) snap(ctx context.Context, local, raw time.Time) time.Time {
	today := utils.FormatDate(local)
	key := utils.FormatDate(raw)

	r.mu.Lock()
	if r.memoDay != today {
		r.memoDay = today
		r.memo = make(map[string]time.Time)
	}
	if d, ok := r.memo[key]; ok {
		r.mu.Unlock()
		return d
	}
	r.mu.Unlock()

	snapped, ok := r.lookup(ctx, raw)
	if !ok {
		return SkipWeekend(raw)
	}

	// Today snapped to an earlier session may only mean today's bar is not
	// published yet, so it is looked up again next time.
	if key == today && !snapped.Equal(raw) {
		return snapped
	}
	r.mu.Lock()
	if r.memoDay == today {
		r.memo[key] = snapped
	}
	r.mu.Unlock()
	return snapped
}

func (r *Resolver) lookup(ctx context.Context, raw time.Time) (time.Time, bool) {
	if r.calendar == nil {
		return time.Time{}, false
	}
	from := raw.AddDate(0, 0, -r.cfg.LookbackDays)
	dates, err := r.calendar.GetTradingDates(ctx, r.cfg.ReferenceSymbol, from, raw)
	if err != nil {
		r.logger.Warn("Trading calendar lookup failed, falling back to weekdays",
			logger.StringField("symbol", r.cfg.ReferenceSymbol),
			logger.StringField("date", utils.FormatDate(raw)),
			logger.ErrorField(err),
		)
		return time.Time{}, false
	}

	rawKey := utils.FormatDate(raw)
	var best string
	for _, d := range dates {
		k := utils.FormatDate(d)
		if k <= rawKey && k > best {
			best = k
		}
	}
	if best == "" {
		return time.Time{}, false
	}
	snapped, err := time.ParseInLocation(utils.DateLayout, best, r.cfg.Location)
	if err != nil {
		return time.Time{}, false
	}
	return snapped, true
}

// SkipWeekend moves Saturday and Sunday back to the preceding Friday.
func SkipWeekend(d time.Time) time.Time {
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDate(0, 0, -1)
	case time.Sunday:
		return d.AddDate(0, 0, -2)
	default:
		return d
	}
}
