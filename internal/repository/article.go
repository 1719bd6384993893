package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/user/knowledger/internal/model"
	"gorm.io/gorm"
)

// likePattern 构造不区分大小写的模糊匹配
func likePattern(keyword string) string {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	keyword = strings.NewReplacer("%", `\%`, "_", `\_`).Replace(keyword)
	return "%" + keyword + "%"
}

type ArticleRepository struct {
	db *gorm.DB
}

func NewArticleRepository(db *gorm.DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

// Create 创建文章
func (r *ArticleRepository) Create(ctx context.Context, a *model.Article) error {
	return conn(ctx, r.db).Create(a).Error
}

// FindByID 根据 ID 获取文章
func (r *ArticleRepository) FindByID(ctx context.Context, id int) (*model.Article, error) {
	var a model.Article
	err := conn(ctx, r.db).First(&a, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// FindBySlug 根据 slug 获取文章
func (r *ArticleRepository) FindBySlug(ctx context.Context, slug string) (*model.Article, error) {
	var a model.Article
	err := conn(ctx, r.db).Where("slug = ?", slug).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// List 分页获取文章（最新在前）
func (r *ArticleRepository) List(ctx context.Context, page, limit int) ([]*model.Article, Pagination, error) {
	var total int64
	if err := conn(ctx, r.db).Model(&model.Article{}).Count(&total).Error; err != nil {
		return nil, Pagination{}, err
	}
	p := NewPagination(total, page, limit)

	var articles []*model.Article
	err := conn(ctx, r.db).Order("created_at DESC, id DESC").Limit(limit).Offset(p.Offset()).Find(&articles).Error
	return articles, p, err
}

// Search 按标题模糊搜索
func (r *ArticleRepository) Search(ctx context.Context, keyword string, limit int) ([]*model.Article, error) {
	var articles []*model.Article
	err := conn(ctx, r.db).Where("LOWER(title) LIKE ?", likePattern(keyword)).
		Order("id DESC").Limit(limit).Find(&articles).Error
	return articles, err
}

// Count 文章总数
func (r *ArticleRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&model.Article{}).Count(&count).Error
	return count, err
}
