package repository

import (
	"context"
	"time"

	"github.com/user/knowledger/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PurchaseRepository struct {
	db *gorm.DB
}

func NewPurchaseRepository(db *gorm.DB) *PurchaseRepository {
	return &PurchaseRepository{db: db}
}

// Create 记录购买，同一用户重复购买同一内容时忽略；返回是否新建
func (r *PurchaseRepository) Create(ctx context.Context, p *model.Purchase) (bool, error) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	res := conn(ctx, r.db).Clauses(clause.OnConflict{DoNothing: true}).Create(p)
	return res.RowsAffected > 0, res.Error
}

// Exists 检查是否已购买
func (r *PurchaseRepository) Exists(ctx context.Context, userID, itemID int, t model.ContentType) (bool, error) {
	var count int64
	err := conn(ctx, r.db).Model(&model.Purchase{}).
		Where("user_id = ? AND item_id = ? AND type = ?", userID, itemID, t).
		Count(&count).Error
	return count > 0, err
}

// ItemIDs 返回 ids 中用户已购买的部分
func (r *PurchaseRepository) ItemIDs(ctx context.Context, userID int, t model.ContentType, ids []int) (map[int]bool, error) {
	owned := make(map[int]bool)
	if userID == 0 || len(ids) == 0 {
		return owned, nil
	}
	var itemIDs []int
	err := conn(ctx, r.db).Model(&model.Purchase{}).
		Where("user_id = ? AND type = ? AND item_id IN ?", userID, t, ids).
		Pluck("item_id", &itemIDs).Error
	if err != nil {
		return nil, err
	}
	for _, id := range itemIDs {
		owned[id] = true
	}
	return owned, nil
}

// ListByUser 用户购买记录
func (r *PurchaseRepository) ListByUser(ctx context.Context, userID int) ([]*model.Purchase, error) {
	var purchases []*model.Purchase
	err := conn(ctx, r.db).Where("user_id = ?", userID).Order("created_at DESC").Find(&purchases).Error
	return purchases, err
}

// Revenue 累计销售额
func (r *PurchaseRepository) Revenue(ctx context.Context) (float64, error) {
	var total float64
	err := conn(ctx, r.db).Model(&model.Purchase{}).Select("COALESCE(SUM(price), 0)").Scan(&total).Error
	return total, err
}
