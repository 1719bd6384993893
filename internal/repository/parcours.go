package repository

import (
	"context"
	"errors"

	"github.com/user/knowledger/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ParcoursRepository struct {
	db *gorm.DB
}

func NewParcoursRepository(db *gorm.DB) *ParcoursRepository {
	return &ParcoursRepository{db: db}
}

// Create 创建学习路径
func (r *ParcoursRepository) Create(ctx context.Context, p *model.Parcours) error {
	return conn(ctx, r.db).Create(p).Error
}

// FindByID 根据 ID 获取学习路径
func (r *ParcoursRepository) FindByID(ctx context.Context, id int) (*model.Parcours, error) {
	var p model.Parcours
	err := conn(ctx, r.db).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindBySlug 根据 slug 获取学习路径
func (r *ParcoursRepository) FindBySlug(ctx context.Context, slug string) (*model.Parcours, error) {
	var p model.Parcours
	err := conn(ctx, r.db).Where("slug = ?", slug).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// List 分页获取学习路径
func (r *ParcoursRepository) List(ctx context.Context, page, limit int) ([]*model.Parcours, Pagination, error) {
	var total int64
	if err := conn(ctx, r.db).Model(&model.Parcours{}).Count(&total).Error; err != nil {
		return nil, Pagination{}, err
	}
	pg := NewPagination(total, page, limit)

	var list []*model.Parcours
	err := conn(ctx, r.db).Order("created_at DESC, id DESC").Limit(limit).Offset(pg.Offset()).Find(&list).Error
	return list, pg, err
}

// AttachFormation 添加或更新路径中的课程顺序
func (r *ParcoursRepository) AttachFormation(ctx context.Context, fp *model.FormationParcours) error {
	return conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "parcours_id"}, {Name: "formation_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"order_index"}),
	}).Create(fp).Error
}

// Formations 按 order 排序返回路径中的课程
func (r *ParcoursRepository) Formations(ctx context.Context, parcoursID int) ([]*model.FormationParcours, error) {
	var rows []*model.FormationParcours
	err := conn(ctx, r.db).Preload("Formation").
		Where("parcours_id = ?", parcoursID).
		Order("order_index ASC, id ASC").
		Find(&rows).Error
	return rows, err
}
