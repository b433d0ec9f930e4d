package telegram

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// WarmupStatus is the outcome of one warmup computation.
type WarmupStatus string

const (
	WarmupOK     WarmupStatus = "ok"
	WarmupNoData WarmupStatus = "no_data"
	WarmupFailed WarmupStatus = "failed"
)

// WarmupItem is one (stock, category) result of a warmup run.
type WarmupItem struct {
	StockID        string
	Category       string
	Status         WarmupStatus
	Score          float64
	DirectionLabel string
	Error          string
}

// WarmupSummary collects the results of one warmup run.
type WarmupSummary struct {
	StartedAt time.Time
	Duration  time.Duration
	Items     []WarmupItem
}

// Count returns the number of items with the given status.
func (s WarmupSummary) Count(status WarmupStatus) int {
	n := 0
	for _, item := range s.Items {
		if item.Status == status {
			n++
		}
	}
	return n
}

// FormatWarmupSummary formats a warmup run into Markdown messages for
// Telegram, each no longer than the message size limit.
func FormatWarmupSummary(summary WarmupSummary) []string {
	if len(summary.Items) == 0 {
		return []string{"今日無預先計算的股票。"}
	}

	items := append([]WarmupItem(nil), summary.Items...)
	sort.Slice(items, func(i, j int) bool {
		if items[i].StockID != items[j].StockID {
			return items[i].StockID < items[j].StockID
		}
		return items[i].Category < items[j].Category
	})

	const maxLen = 4090
	var messages []string
	var current strings.Builder
	part := 1

	startNewPart := func() {
		current.Reset()
		if part == 1 {
			current.WriteString(fmt.Sprintf("📊 *每日評分預先計算* %s\n", summary.StartedAt.Format("2006-01-02 15:04")))
			current.WriteString(fmt.Sprintf("✅ %d  ⚪ %d  ❌ %d  ⏱ %s\n\n",
				summary.Count(WarmupOK), summary.Count(WarmupNoData), summary.Count(WarmupFailed),
				summary.Duration.Round(time.Second)))
		} else {
			current.WriteString(fmt.Sprintf("---*每日評分預先計算 Part %d*---\n\n", part))
		}
	}
	startNewPart()

	lastStock := ""
	for _, item := range items {
		var entry strings.Builder
		if item.StockID != lastStock {
			entry.WriteString(fmt.Sprintf("📈 *%s*\n", item.StockID))
			lastStock = item.StockID
		}
		switch item.Status {
		case WarmupOK:
			entry.WriteString(fmt.Sprintf("  ✅ %s: %.2f %s\n", item.Category, item.Score, item.DirectionLabel))
		case WarmupNoData:
			entry.WriteString(fmt.Sprintf("  ⚪ %s: 無資料\n", item.Category))
		default:
			entry.WriteString(fmt.Sprintf("  ❌ %s: %s\n", item.Category, escapeMarkdown(item.Error)))
		}

		if current.Len()+entry.Len() > maxLen {
			messages = append(messages, current.String())
			part++
			startNewPart()
		}
		current.WriteString(entry.String())
	}
	messages = append(messages, current.String())
	return messages
}

func escapeMarkdown(s string) string {
	return strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[").Replace(s)
}
