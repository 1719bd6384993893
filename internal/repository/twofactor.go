package repository

import (
	"context"
	"errors"

	"github.com/user/knowledger/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TwoFactorRepository struct {
	db *gorm.DB
}

func NewTwoFactorRepository(db *gorm.DB) *TwoFactorRepository {
	return &TwoFactorRepository{db: db}
}

// Upsert 每个用户只保留最新的验证码
func (r *TwoFactorRepository) Upsert(ctx context.Context, code *model.TwoFactorCode) error {
	return conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"code_hash", "attempts", "expires_at", "created_at"}),
	}).Create(code).Error
}

// FindByUser 获取用户当前验证码
func (r *TwoFactorRepository) FindByUser(ctx context.Context, userID int) (*model.TwoFactorCode, error) {
	var code model.TwoFactorCode
	err := conn(ctx, r.db).Where("user_id = ?", userID).First(&code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &code, nil
}

// IncrementAttempts 记录一次失败尝试
func (r *TwoFactorRepository) IncrementAttempts(ctx context.Context, id int) error {
	return conn(ctx, r.db).Model(&model.TwoFactorCode{}).Where("id = ?", id).
		UpdateColumn("attempts", gorm.Expr("attempts + 1")).Error
}

// DeleteByUser 验证成功后删除
func (r *TwoFactorRepository) DeleteByUser(ctx context.Context, userID int) error {
	return conn(ctx, r.db).Where("user_id = ?", userID).Delete(&model.TwoFactorCode{}).Error
}
