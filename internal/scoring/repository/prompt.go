package repository

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang-stock-scorer/internal/scoring/dto"
)

// InsightSystemPrompt frames the model as a Taiwan stock analyst.
const InsightSystemPrompt = "你是一名台灣股票分析師。請摘要並簡潔分析。(約100字)"

var categoryNames = map[string]string{
	"fundamentals": "基本面",
	"chip":         "籌碼面",
	"technical":    "技術面",
	"news":         "新聞情緒",
}

// BuildInsightPrompt renders the facts of one score record.
func BuildInsightPrompt(facts dto.InsightFacts) string {
	name := categoryNames[facts.Category]
	if name == "" {
		name = facts.Category
	}

	detail := "{}"
	if len(facts.Detail) > 0 {
		if b, err := json.Marshal(facts.Detail); err == nil {
			detail = string(b)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "股票：%s %s\n", facts.StockID, facts.StockName)
	fmt.Fprintf(&b, "日期：%s\n", facts.Date)
	fmt.Fprintf(&b, "面向：%s\n", name)
	fmt.Fprintf(&b, "總分：%.2f（%s）\n", facts.TotalScore, facts.DirectionLabel)
	fmt.Fprintf(&b, "正面因子：%s\n", joinOrNone(facts.PositiveFactors))
	fmt.Fprintf(&b, "負面因子：%s\n", joinOrNone(facts.NegativeFactors))
	fmt.Fprintf(&b, "明細：%s\n", detail)
	b.WriteString("請根據以上資料，以繁體中文約100字說明此股票在該面向的重點與風險。")
	return b.String()
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "無"
	}
	return strings.Join(items, "、")
}
