package repository

import (
	"context"
	"errors"

	"github.com/user/knowledger/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type HistoryRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Upsert 更新或插入播放进度，依赖 (user_id, item_id, type) 唯一索引
func (r *HistoryRepository) Upsert(ctx context.Context, h *model.History) error {
	return conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "item_id"}, {Name: "type"}},
		DoUpdates: clause.AssignmentColumns([]string{"timestamp", "last_viewed_at"}),
	}).Create(h).Error
}

// Find 获取单条进度
func (r *HistoryRepository) Find(ctx context.Context, userID, itemID int, t model.ContentType) (*model.History, error) {
	var h model.History
	err := conn(ctx, r.db).Where("user_id = ? AND item_id = ? AND type = ?", userID, itemID, t).First(&h).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// ListForItems 批量获取进度，按 item_id 索引
func (r *HistoryRepository) ListForItems(ctx context.Context, userID int, t model.ContentType, itemIDs []int) (map[int]*model.History, error) {
	result := make(map[int]*model.History, len(itemIDs))
	if userID == 0 || len(itemIDs) == 0 {
		return result, nil
	}
	var rows []*model.History
	err := conn(ctx, r.db).Where("user_id = ? AND type = ? AND item_id IN ?", userID, t, itemIDs).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, h := range rows {
		result[h.ItemID] = h
	}
	return result, nil
}

// ListByUser 获取用户观看历史（最近在前），t 为空时返回全部类型
func (r *HistoryRepository) ListByUser(ctx context.Context, userID int, t model.ContentType, limit, offset int) ([]*model.History, error) {
	var histories []*model.History
	q := conn(ctx, r.db).Where("user_id = ?", userID)
	if t != "" {
		q = q.Where("type = ?", t)
	}
	err := q.Order("last_viewed_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&histories).Error
	return histories, err
}

// CountByUser 统计用户观看历史数量
func (r *HistoryRepository) CountByUser(ctx context.Context, userID int, t model.ContentType) (int64, error) {
	var count int64
	q := conn(ctx, r.db).Model(&model.History{}).Where("user_id = ?", userID)
	if t != "" {
		q = q.Where("type = ?", t)
	}
	err := q.Count(&count).Error
	return count, err
}

// Delete 删除单条记录，返回是否删除成功
func (r *HistoryRepository) Delete(ctx context.Context, userID int, id int) (bool, error) {
	res := conn(ctx, r.db).Where("user_id = ? AND id = ?", userID, id).Delete(&model.History{})
	return res.RowsAffected > 0, res.Error
}

// Clear 清空用户历史，t 为空时清空全部类型
func (r *HistoryRepository) Clear(ctx context.Context, userID int, t model.ContentType) (int64, error) {
	q := conn(ctx, r.db).Where("user_id = ?", userID)
	if t != "" {
		q = q.Where("type = ?", t)
	}
	res := q.Delete(&model.History{})
	return res.RowsAffected, res.Error
}
