package repository

import (
	"context"
	"errors"
	"time"

	"github.com/user/knowledger/internal/model"
	"gorm.io/gorm"
)

type CommentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// Create 创建评论
func (r *CommentRepository) Create(ctx context.Context, c *model.Comment) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	return conn(ctx, r.db).Create(c).Error
}

// FindByID 获取评论
func (r *CommentRepository) FindByID(ctx context.Context, id int) (*model.Comment, error) {
	var c model.Comment
	err := conn(ctx, r.db).First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListByItem 内容下的评论（最新在前）
func (r *CommentRepository) ListByItem(ctx context.Context, itemID int, t model.ContentType, limit, offset int) ([]*model.Comment, error) {
	var comments []*model.Comment
	err := conn(ctx, r.db).Preload("User").
		Where("item_id = ? AND type = ?", itemID, t).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&comments).Error
	return comments, err
}

// Delete 删除评论
func (r *CommentRepository) Delete(ctx context.Context, id int) error {
	return conn(ctx, r.db).Delete(&model.Comment{}, id).Error
}

// Count 评论总数
func (r *CommentRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&model.Comment{}).Count(&count).Error
	return count, err
}
