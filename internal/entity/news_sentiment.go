package entity

import "time"

// NewsSentiment caches the classifier output per article URL. Stored fields
// are never overwritten; a later write may only fill the ones still NULL.
type NewsSentiment struct {
	URL       string    `gorm:"primaryKey;type:text" json:"url"`
	Source    *string   `json:"source,omitempty"`
	Title     *string   `json:"title,omitempty"`
	Positive  *float64  `json:"positive"`
	Neutral   *float64  `json:"neutral"`
	Negative  *float64  `json:"negative"`
	Content   *string   `json:"content"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (NewsSentiment) TableName() string {
	return "news_sentiments"
}

// Complete reports whether the record carries content and all three
// probabilities, i.e. it can be reused without calling the classifier.
func (n *NewsSentiment) Complete() bool {
	return n != nil && n.Content != nil && n.Positive != nil && n.Neutral != nil && n.Negative != nil
}

// Merge fills the NULL fields of n from other and reports whether anything changed.
func (n *NewsSentiment) Merge(other *NewsSentiment) bool {
	if other == nil {
		return false
	}
	changed := false
	fillString := func(dst **string, src *string) {
		if *dst == nil && src != nil {
			v := *src
			*dst = &v
			changed = true
		}
	}
	fillFloat := func(dst **float64, src *float64) {
		if *dst == nil && src != nil {
			v := *src
			*dst = &v
			changed = true
		}
	}
	fillString(&n.Source, other.Source)
	fillString(&n.Title, other.Title)
	fillString(&n.Content, other.Content)
	fillFloat(&n.Positive, other.Positive)
	fillFloat(&n.Neutral, other.Neutral)
	fillFloat(&n.Negative, other.Negative)
	return changed
}

// Clone returns a deep copy.
func (n *NewsSentiment) Clone() *NewsSentiment {
	if n == nil {
		return nil
	}
	out := NewsSentiment{URL: n.URL, CreatedAt: n.CreatedAt, UpdatedAt: n.UpdatedAt}
	out.Merge(n)
	return &out
}
