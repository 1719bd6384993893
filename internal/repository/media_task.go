package repository

import (
	"context"
	"time"

	"github.com/user/knowledger/internal/model"
	"gorm.io/gorm"
)

type MediaTaskRepository struct {
	db *gorm.DB
}

func NewMediaTaskRepository(db *gorm.DB) *MediaTaskRepository {
	return &MediaTaskRepository{db: db}
}

// Enqueue 登记待删除的媒体文件，空 key 忽略
func (r *MediaTaskRepository) Enqueue(ctx context.Context, keys ...string) ([]int, error) {
	tasks := make([]*model.MediaCleanupTask, 0, len(keys))
	now := time.Now()
	for _, key := range keys {
		if key == "" {
			continue
		}
		tasks = append(tasks, &model.MediaCleanupTask{Key: key, CreatedAt: now, UpdatedAt: now})
	}
	if len(tasks) == 0 {
		return nil, nil
	}
	if err := conn(ctx, r.db).Create(&tasks).Error; err != nil {
		return nil, err
	}
	ids := make([]int, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return ids, nil
}

// ListPending 尝试次数未达上限且 ID 大于 afterID 的任务
func (r *MediaTaskRepository) ListPending(ctx context.Context, maxAttempts, afterID, limit int) ([]*model.MediaCleanupTask, error) {
	var tasks []*model.MediaCleanupTask
	err := conn(ctx, r.db).Where("attempts < ? AND id > ?", maxAttempts, afterID).
		Order("id ASC").
		Limit(limit).
		Find(&tasks).Error
	return tasks, err
}

// ListByIDs 按 ID 获取任务
func (r *MediaTaskRepository) ListByIDs(ctx context.Context, ids []int) ([]*model.MediaCleanupTask, error) {
	var tasks []*model.MediaCleanupTask
	if len(ids) == 0 {
		return tasks, nil
	}
	err := conn(ctx, r.db).Where("id IN ?", ids).Order("id ASC").Find(&tasks).Error
	return tasks, err
}

// Done 删除成功后移除任务
func (r *MediaTaskRepository) Done(ctx context.Context, id int) error {
	return conn(ctx, r.db).Delete(&model.MediaCleanupTask{}, id).Error
}

// Fail 记录失败
func (r *MediaTaskRepository) Fail(ctx context.Context, id int, cause string) error {
	return conn(ctx, r.db).Model(&model.MediaCleanupTask{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": cause,
			"updated_at": time.Now(),
		}).Error
}

// CountPending 队列长度
func (r *MediaTaskRepository) CountPending(ctx context.Context, maxAttempts int) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&model.MediaCleanupTask{}).Where("attempts < ?", maxAttempts).Count(&count).Error
	return count, err
}
