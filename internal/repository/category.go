package repository

import (
	"context"
	"errors"

	"github.com/user/knowledger/internal/model"
	"gorm.io/gorm"
)

type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// Create 创建分类
func (r *CategoryRepository) Create(ctx context.Context, c *model.Category) error {
	return conn(ctx, r.db).Create(c).Error
}

// FindByID 根据 ID 获取分类
func (r *CategoryRepository) FindByID(ctx context.Context, id int) (*model.Category, error) {
	var c model.Category
	err := conn(ctx, r.db).First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListAll 获取所有分类
func (r *CategoryRepository) ListAll(ctx context.Context) ([]*model.Category, error) {
	var categories []*model.Category
	err := conn(ctx, r.db).Order("name ASC").Find(&categories).Error
	return categories, err
}

// Search 按名称模糊搜索
func (r *CategoryRepository) Search(ctx context.Context, keyword string, limit int) ([]*model.Category, error) {
	var categories []*model.Category
	err := conn(ctx, r.db).Where("LOWER(name) LIKE ?", likePattern(keyword)).
		Order("name ASC").Limit(limit).Find(&categories).Error
	return categories, err
}

// FindBySlug 根据 slug 获取分类
func (r *CategoryRepository) FindBySlug(ctx context.Context, slug string) (*model.Category, error) {
	var c model.Category
	err := conn(ctx, r.db).Where("slug = ?", slug).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
