package repository

import (
	"context"
	"errors"
	"time"

	"golang-stock-scorer/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type scoreRecordRepository struct {
	db *gorm.DB
}

func NewScoreRecordRepository(db *gorm.DB) ScoreRecordRepository {
	return &scoreRecordRepository{db: db}
}

// Upsert inserts the record or replaces the row with the same key.
func (r *scoreRecordRepository) Upsert(ctx context.Context, record *entity.ScoreRecord) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "stock_id"}, {Name: "record_date"}, {Name: "category"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"score", "direction", "direction_label", "detail",
			"positive_factors", "negative_factors", "insight", "updated_at",
		}),
	}).Create(record).Error
}

func (r *scoreRecordRepository) Find(ctx context.Context, stockID string, date time.Time, category entity.Category) (*entity.ScoreRecord, error) {
	var record entity.ScoreRecord
	err := r.db.WithContext(ctx).
		Where("stock_id = ? AND record_date = ? AND category = ?", stockID, date.Format("2006-01-02"), category).
		Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *scoreRecordRepository) FindRange(ctx context.Context, stockID string, category entity.Category, from, to time.Time) ([]entity.ScoreRecord, error) {
	var records []entity.ScoreRecord
	err := r.db.WithContext(ctx).
		Where("stock_id = ? AND category = ? AND record_date BETWEEN ? AND ?",
			stockID, category, from.Format("2006-01-02"), to.Format("2006-01-02")).
		Order("record_date ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
