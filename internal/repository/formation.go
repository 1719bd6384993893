package repository

import (
	"context"
	"errors"

	"github.com/user/knowledger/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FormationRepository struct {
	db *gorm.DB
}

func NewFormationRepository(db *gorm.DB) *FormationRepository {
	return &FormationRepository{db: db}
}

// Create 创建课程
func (r *FormationRepository) Create(ctx context.Context, f *model.Formation) error {
	return conn(ctx, r.db).Create(f).Error
}

// FindByID 根据 ID 获取课程
func (r *FormationRepository) FindByID(ctx context.Context, id int) (*model.Formation, error) {
	var f model.Formation
	err := conn(ctx, r.db).First(&f, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// FindBySlug 根据 slug 获取课程
func (r *FormationRepository) FindBySlug(ctx context.Context, slug string) (*model.Formation, error) {
	var f model.Formation
	err := conn(ctx, r.db).Where("slug = ?", slug).First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// List 分页获取课程
func (r *FormationRepository) List(ctx context.Context, page, limit int) ([]*model.Formation, Pagination, error) {
	var total int64
	if err := conn(ctx, r.db).Model(&model.Formation{}).Count(&total).Error; err != nil {
		return nil, Pagination{}, err
	}
	p := NewPagination(total, page, limit)

	var formations []*model.Formation
	err := conn(ctx, r.db).Order("created_at DESC, id DESC").Limit(limit).Offset(p.Offset()).Find(&formations).Error
	return formations, p, err
}

// Search 按标题模糊搜索
func (r *FormationRepository) Search(ctx context.Context, keyword string, limit int) ([]*model.Formation, error) {
	var formations []*model.Formation
	err := conn(ctx, r.db).Where("LOWER(title) LIKE ?", likePattern(keyword)).
		Order("id DESC").Limit(limit).Find(&formations).Error
	return formations, err
}

// Count 课程总数
func (r *FormationRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&model.Formation{}).Count(&count).Error
	return count, err
}

// AttachVideo 添加或更新课程中的视频（顺序与封面）
func (r *FormationRepository) AttachVideo(ctx context.Context, vf *model.VideoFormation) error {
	return conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "formation_id"}, {Name: "video_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"order_index", "cover_url"}),
	}).Create(vf).Error
}

// Videos 按 order 排序返回课程中的视频
func (r *FormationRepository) Videos(ctx context.Context, formationID int) ([]*model.VideoFormation, error) {
	var rows []*model.VideoFormation
	err := conn(ctx, r.db).Preload("Video").
		Where("formation_id = ?", formationID).
		Order("order_index ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

// VideosFor 批量获取多个课程的视频，按课程分组且组内有序
func (r *FormationRepository) VideosFor(ctx context.Context, formationIDs []int) (map[int][]*model.VideoFormation, error) {
	result := make(map[int][]*model.VideoFormation, len(formationIDs))
	if len(formationIDs) == 0 {
		return result, nil
	}
	var rows []*model.VideoFormation
	err := conn(ctx, r.db).Preload("Video").
		Where("formation_id IN ?", formationIDs).
		Order("formation_id ASC, order_index ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.FormationID] = append(result[row.FormationID], row)
	}
	return result, nil
}

// SearchVideoLinks 按视频标题搜索课程-视频关联
func (r *FormationRepository) SearchVideoLinks(ctx context.Context, keyword string, limit int) ([]*model.VideoFormation, error) {
	var rows []*model.VideoFormation
	err := conn(ctx, r.db).Preload("Video").
		Joins("JOIN videos ON videos.id = video_formations.video_id").
		Where("LOWER(videos.title) LIKE ?", likePattern(keyword)).
		Order("video_formations.id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
