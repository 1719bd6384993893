package repository

import (
	"context"
	"time"

	"github.com/user/knowledger/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RatingRepository struct {
	db *gorm.DB
}

func NewRatingRepository(db *gorm.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

// Upsert 按 (user_id, formation_id) 创建或更新评分
func (r *RatingRepository) Upsert(ctx context.Context, m *model.Rating) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	m.UpdatedAt = time.Now()
	return conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "formation_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"rating", "updated_at"}),
	}).Create(m).Error
}

// ListByFormation 课程的全部评分值
func (r *RatingRepository) ListByFormation(ctx context.Context, formationID int) ([]int, error) {
	var values []int
	err := conn(ctx, r.db).Model(&model.Rating{}).
		Where("formation_id = ?", formationID).
		Pluck("rating", &values).Error
	return values, err
}

// ListByFormations 批量获取多个课程的评分值
func (r *RatingRepository) ListByFormations(ctx context.Context, formationIDs []int) (map[int][]int, error) {
	result := make(map[int][]int, len(formationIDs))
	if len(formationIDs) == 0 {
		return result, nil
	}
	var rows []*model.Rating
	err := conn(ctx, r.db).Select("formation_id", "rating").
		Where("formation_id IN ?", formationIDs).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.FormationID] = append(result[row.FormationID], row.Rating)
	}
	return result, nil
}

// GetByUserAndFormation 获取用户对课程的评分，不存在返回 0
func (r *RatingRepository) GetByUserAndFormation(ctx context.Context, userID, formationID int) (int, bool, error) {
	var rec model.Rating
	res := conn(ctx, r.db).Where("user_id = ? AND formation_id = ?", userID, formationID).Limit(1).Find(&rec)
	if res.Error != nil {
		return 0, false, res.Error
	}
	return rec.Rating, res.RowsAffected > 0, nil
}
