package service

import (
	"context"
	"log"

	"github.com/user/knowledger/internal/model"
	"github.com/user/knowledger/internal/repository"
	"github.com/user/knowledger/internal/storage"
)

const (
	// MaxCleanupAttempts 超过次数的任务不再重试
	MaxCleanupAttempts = 5
	cleanupBatchSize   = 100
)

// CleanupReport 一轮清理的结果
type CleanupReport struct {
	Deleted int `json:"deleted"`
	Missing int `json:"missing"` // 存储中已不存在，直接结束任务
	Failed  int `json:"failed"`
}

// MediaCleanupService 删除内容后清理远程媒体文件
type MediaCleanupService struct {
	repos *repository.Repositories
	store storage.Storage
}

func NewMediaCleanupService(repos *repository.Repositories, store storage.Storage) *MediaCleanupService {
	return &MediaCleanupService{repos: repos, store: store}
}

// Process 立即处理指定任务，失败只记录，由定时任务重试
func (s *MediaCleanupService) Process(ctx context.Context, taskIDs []int) CleanupReport {
	if len(taskIDs) == 0 {
		return CleanupReport{}
	}
	tasks, err := s.repos.MediaTask.ListByIDs(ctx, taskIDs)
	if err != nil {
		log.Printf("[MediaCleanup] 加载任务失败: %v", err)
		return CleanupReport{}
	}
	return s.run(ctx, tasks)
}

// Drain 处理队列中所有未超过重试次数的任务
func (s *MediaCleanupService) Drain(ctx context.Context) (CleanupReport, error) {
	var total CleanupReport
	lastID := 0
	for {
		tasks, err := s.repos.MediaTask.ListPending(ctx, MaxCleanupAttempts, lastID, cleanupBatchSize)
		if err != nil {
			return total, err
		}
		if len(tasks) == 0 {
			break
		}
		lastID = tasks[len(tasks)-1].ID

		r := s.run(ctx, tasks)
		total.Deleted += r.Deleted
		total.Failed += r.Failed
		if len(tasks) < cleanupBatchSize {
			break
		}
	}
	if total.Deleted > 0 || total.Failed > 0 {
		log.Printf("[MediaCleanup] 已删除 %d 个文件，失败 %d 个", total.Deleted, total.Failed)
	}
	return total, nil
}

// Pending 待处理任务数
func (s *MediaCleanupService) Pending(ctx context.Context) (int64, error) {
	return s.repos.MediaTask.CountPending(ctx, MaxCleanupAttempts)
}

func (s *MediaCleanupService) run(ctx context.Context, tasks []*model.MediaCleanupTask) CleanupReport {
	var r CleanupReport
	for _, t := range tasks {
		exists, err := s.store.Exists(ctx, t.Key)
		if err == nil && exists {
			err = s.store.Delete(ctx, t.Key)
		}
		if err != nil {
			r.Failed++
			log.Printf("[MediaCleanup] 删除 %s 失败（第 %d 次）: %v", t.Key, t.Attempts+1, err)
			if ferr := s.repos.MediaTask.Fail(ctx, t.ID, err.Error()); ferr != nil {
				log.Printf("[MediaCleanup] 记录失败状态出错: %v", ferr)
			}
			continue
		}
		if err := s.repos.MediaTask.Done(ctx, t.ID); err != nil {
			log.Printf("[MediaCleanup] 移除任务 %d 失败: %v", t.ID, err)
			continue
		}
		if exists {
			r.Deleted++
		} else {
			r.Missing++
		}
	}
	return r
}
