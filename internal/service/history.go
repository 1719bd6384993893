package service

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/user/knowledger/internal/model"
	"github.com/user/knowledger/internal/repository"
	"github.com/user/knowledger/internal/utils"
)

// HistoryPageSize 历史列表每页条数
const HistoryPageSize = 20

// HistoryService 播放进度记录
type HistoryService struct {
	repos *repository.Repositories
	now   func() time.Time
}

func NewHistoryService(repos *repository.Repositories) *HistoryService {
	return &HistoryService{repos: repos, now: time.Now}
}

// HistoryPage 分页历史
type HistoryPage struct {
	Items      []*model.History      `json:"items"`
	Pagination repository.Pagination `json:"pagination"`
}

func checkTrackable(t model.ContentType) error {
	if !t.Trackable() {
		return utils.InvalidField("type", "类型必须是 video 或 formation")
	}
	return nil
}

// RecordProgress 记录播放位置（秒），同一内容只保留一条
func (s *HistoryService) RecordProgress(ctx context.Context, userID, itemID int, t model.ContentType, timestamp float64) (*model.History, error) {
	if err := checkTrackable(t); err != nil {
		return nil, err
	}
	if timestamp < 0 || math.IsNaN(timestamp) || math.IsInf(timestamp, 0) {
		return nil, utils.InvalidField("timestamp", "播放位置不能为负数")
	}
	if err := s.ensureItem(ctx, itemID, t); err != nil {
		return nil, err
	}

	h := &model.History{
		UserID:       userID,
		ItemID:       itemID,
		Type:         t,
		Timestamp:    timestamp,
		LastViewedAt: s.now(),
	}
	if err := s.repos.History.Upsert(ctx, h); err != nil {
		return nil, fmt.Errorf("保存播放进度失败: %w", err)
	}
	saved, err := s.repos.History.Find(ctx, userID, itemID, t)
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (s *HistoryService) ensureItem(ctx context.Context, itemID int, t model.ContentType) error {
	var exists bool
	switch t {
	case model.TypeVideo:
		v, err := s.repos.Video.FindByID(ctx, itemID)
		if err != nil {
			return err
		}
		exists = v != nil
	case model.TypeFormation:
		f, err := s.repos.Formation.FindByID(ctx, itemID)
		if err != nil {
			return err
		}
		exists = f != nil
	}
	if !exists {
		return utils.NotFoundErr("内容不存在")
	}
	return nil
}

// Get 获取单条进度，没有记录时返回 nil
func (s *HistoryService) Get(ctx context.Context, userID, itemID int, t model.ContentType) (*model.History, error) {
	if err := checkTrackable(t); err != nil {
		return nil, err
	}
	return s.repos.History.Find(ctx, userID, itemID, t)
}

// List 分页获取历史，t 为空时返回全部类型
func (s *HistoryService) List(ctx context.Context, userID int, t model.ContentType, page int) (*HistoryPage, error) {
	if t != "" {
		if err := checkTrackable(t); err != nil {
			return nil, err
		}
	}
	total, err := s.repos.History.CountByUser(ctx, userID, t)
	if err != nil {
		return nil, err
	}
	p := repository.NewPagination(total, page, HistoryPageSize)
	items, err := s.repos.History.ListByUser(ctx, userID, t, HistoryPageSize, p.Offset())
	if err != nil {
		return nil, err
	}
	return &HistoryPage{Items: items, Pagination: p}, nil
}

// Delete 删除单条记录
func (s *HistoryService) Delete(ctx context.Context, userID, id int) error {
	ok, err := s.repos.History.Delete(ctx, userID, id)
	if err != nil {
		return err
	}
	if !ok {
		return utils.NotFoundErr("记录不存在")
	}
	return nil
}

// Clear 清空历史，t 为空时清空全部
func (s *HistoryService) Clear(ctx context.Context, userID int, t model.ContentType) (int64, error) {
	if t != "" {
		if err := checkTrackable(t); err != nil {
			return 0, err
		}
	}
	n, err := s.repos.History.Clear(ctx, userID, t)
	if err != nil {
		return 0, err
	}
	log.Printf("[HistoryService] 用户 %d 清空历史 %d 条", userID, n)
	return n, nil
}
