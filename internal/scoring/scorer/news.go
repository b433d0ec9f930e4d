package scorer

import (
	"golang-stock-scorer/internal/scoring/dto"
	"golang-stock-scorer/internal/scoring/indicator"
)

// News sentiment labels.
const (
	NewsStrongPositive = "極正"
	NewsStrongNegative = "極負"
	NewsNeutral        = "中立"
	NewsMildPositive   = "偏多"
	NewsMildNegative   = "偏空"
	NewsNoData         = "無資料"
)

// dominance is the mean probability above which a class is decisive.
const dominance = 0.5

// NewsScorer aggregates per-article sentiment into one direction.
type NewsScorer struct{}

func NewNewsScorer() *NewsScorer {
	return &NewsScorer{}
}

// Classify maps mean class probabilities to a direction and label. A
// decisive class is checked in positive, negative, neutral order; otherwise
// the largest class decides, ties going to positive, then neutral.
func (s *NewsScorer) Classify(p dto.SentimentPrediction) (int, string) {
	switch {
	case p.Positive > dominance:
		return 2, NewsStrongPositive
	case p.Negative > dominance:
		return -2, NewsStrongNegative
	case p.Neutral > dominance:
		return 0, NewsNeutral
	}
	switch {
	case p.Positive >= p.Neutral && p.Positive >= p.Negative:
		return 1, NewsMildPositive
	case p.Neutral >= p.Negative:
		return 0, NewsNeutral
	default:
		return -1, NewsMildNegative
	}
}

// Score averages the predictions of the articles that have one. With no
// usable article the result is the no-data record.
func (s *NewsScorer) Score(articles []dto.ArticleSentiment) dto.ScoreResult {
	var (
		sum      dto.SentimentPrediction
		n        int
		contents = []string{}
		sources  = []map[string]interface{}{}
	)
	for _, a := range articles {
		if a.Content != nil {
			contents = append(contents, *a.Content)
		}
		if a.Prediction == nil {
			continue
		}
		sum.Positive += a.Prediction.Positive
		sum.Neutral += a.Prediction.Neutral
		sum.Negative += a.Prediction.Negative
		n++
		sources = append(sources, map[string]interface{}{
			"url":      a.Article.URL,
			"title":    a.Article.Title,
			"positive": a.Prediction.Positive,
			"neutral":  a.Prediction.Neutral,
			"negative": a.Prediction.Negative,
		})
	}

	if n == 0 {
		return dto.ScoreResult{
			Direction:      0,
			DirectionLabel: NewsNoData,
			Detail: map[string]interface{}{
				"direction_label": NewsNoData,
				"direction":       0,
				"positive":        0.0,
				"neutral":         0.0,
				"negative":        0.0,
				"contents":        []string{},
			},
		}
	}

	// Classify on the exact mean; only the reported values are rounded.
	direction, label := s.Classify(dto.SentimentPrediction{
		Positive: sum.Positive / float64(n),
		Neutral:  sum.Neutral / float64(n),
		Negative: sum.Negative / float64(n),
	})
	mean := dto.SentimentPrediction{
		Positive: indicator.Round(sum.Positive/float64(n), 4),
		Neutral:  indicator.Round(sum.Neutral/float64(n), 4),
		Negative: indicator.Round(sum.Negative/float64(n), 4),
	}
	subs := []dto.SubScore{
		{Name: "Positive" + scoreSuffix, Value: mean.Positive},
		{Name: "Negative" + scoreSuffix, Value: -mean.Negative},
	}

	return dto.ScoreResult{
		Score:          float64(direction),
		Direction:      direction,
		DirectionLabel: label,
		SubScores:      subs,
		Detail: map[string]interface{}{
			"direction_label": label,
			"direction":       direction,
			"positive":        mean.Positive,
			"neutral":         mean.Neutral,
			"negative":        mean.Negative,
			"contents":        contents,
			"articles":        sources,
			"TotalScore":      float64(direction),
		},
	}
}
