package repository

import (
	"context"
	"errors"

	"golang-stock-scorer/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type newsSentimentRepository struct {
	db *gorm.DB
}

func NewNewsSentimentRepository(db *gorm.DB) NewsSentimentRepository {
	return &newsSentimentRepository{db: db}
}

// fillNull keeps a stored value and only takes the incoming one when the column is NULL.
func fillNull(column string) clause.Assignment {
	return clause.Assignment{
		Column: clause.Column{Name: column},
		Value:  gorm.Expr("COALESCE(news_sentiments."+column+", EXCLUDED."+column+")"),
	}
}

// Upsert inserts the article or fills the columns that are still NULL.
func (r *newsSentimentRepository) Upsert(ctx context.Context, record *entity.NewsSentiment) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "url"}},
		DoUpdates: clause.Set{
			fillNull("source"),
			fillNull("title"),
			fillNull("positive"),
			fillNull("neutral"),
			fillNull("negative"),
			fillNull("content"),
			{Column: clause.Column{Name: "updated_at"}, Value: gorm.Expr("EXCLUDED.updated_at")},
		},
	}).Create(record).Error
}

func (r *newsSentimentRepository) FindByURL(ctx context.Context, url string) (*entity.NewsSentiment, error) {
	var record entity.NewsSentiment
	err := r.db.WithContext(ctx).Where("url = ?", url).Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}
