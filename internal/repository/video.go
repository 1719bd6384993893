package repository

import (
	"context"
	"errors"

	"github.com/user/knowledger/internal/model"
	"gorm.io/gorm"
)

type VideoRepository struct {
	db *gorm.DB
}

func NewVideoRepository(db *gorm.DB) *VideoRepository {
	return &VideoRepository{db: db}
}

// Create 创建视频
func (r *VideoRepository) Create(ctx context.Context, v *model.Video) error {
	return conn(ctx, r.db).Create(v).Error
}

// FindByID 根据 ID 获取视频
func (r *VideoRepository) FindByID(ctx context.Context, id int) (*model.Video, error) {
	var v model.Video
	err := conn(ctx, r.db).First(&v, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// FindBySlug 根据 slug 获取视频
func (r *VideoRepository) FindBySlug(ctx context.Context, slug string) (*model.Video, error) {
	var v model.Video
	err := conn(ctx, r.db).Where("slug = ?", slug).First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// List 分页获取视频
func (r *VideoRepository) List(ctx context.Context, page, limit int) ([]*model.Video, Pagination, error) {
	var total int64
	if err := conn(ctx, r.db).Model(&model.Video{}).Count(&total).Error; err != nil {
		return nil, Pagination{}, err
	}
	p := NewPagination(total, page, limit)

	var videos []*model.Video
	err := conn(ctx, r.db).Order("created_at DESC, id DESC").Limit(limit).Offset(p.Offset()).Find(&videos).Error
	return videos, p, err
}

// Search 按标题模糊搜索
func (r *VideoRepository) Search(ctx context.Context, keyword string, limit int) ([]*model.Video, error) {
	var videos []*model.Video
	err := conn(ctx, r.db).Where("LOWER(title) LIKE ?", likePattern(keyword)).
		Order("id DESC").Limit(limit).Find(&videos).Error
	return videos, err
}

// Count 视频总数
func (r *VideoRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&model.Video{}).Count(&count).Error
	return count, err
}
