package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/user/knowledger/internal/model"
	"github.com/user/knowledger/internal/repository"
	"github.com/user/knowledger/internal/utils"
	"golang.org/x/sync/singleflight"
)

// RatingSummary 课程评分汇总
type RatingSummary struct {
	Average float64 `json:"average"`
	Total   int     `json:"total"`
}

// RatingResult 评分后的结果
type RatingResult struct {
	Rating  int     `json:"rating"`
	Average float64 `json:"average"`
	Total   int     `json:"total"`
}

// RatingService 课程评分，平均分每次都从全部评分重新计算
type RatingService struct {
	repos *repository.Repositories
	sf    singleflight.Group
}

func NewRatingService(repos *repository.Repositories) *RatingService {
	return &RatingService{repos: repos}
}

func summarize(values []int) RatingSummary {
	if len(values) == 0 {
		return RatingSummary{}
	}
	var sum int
	for _, v := range values {
		sum += v
	}
	return RatingSummary{Average: float64(sum) / float64(len(values)), Total: len(values)}
}

// Rate 创建或更新用户对课程的评分（0-5）
func (s *RatingService) Rate(ctx context.Context, userID, formationID, rating int) (*RatingResult, error) {
	if rating < 0 || rating > 5 {
		return nil, utils.InvalidField("rating", "评分必须在 0 到 5 之间")
	}
	user, err := s.repos.User.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, utils.NotFoundErr("用户不存在")
	}
	f, err := s.repos.Formation.FindByID(ctx, formationID)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, utils.NotFoundErr("课程不存在")
	}

	if err := s.repos.Rating.Upsert(ctx, &model.Rating{UserID: userID, FormationID: formationID, Rating: rating}); err != nil {
		return nil, fmt.Errorf("保存评分失败: %w", err)
	}

	// 写入后不走合并，直接读取最新数据
	values, err := s.repos.Rating.ListByFormation(ctx, formationID)
	if err != nil {
		return nil, err
	}
	sum := summarize(values)
	return &RatingResult{Rating: rating, Average: sum.Average, Total: sum.Total}, nil
}

// Summary 课程评分汇总，并发请求同一课程时只查询一次
func (s *RatingService) Summary(ctx context.Context, formationID int) (RatingSummary, error) {
	key := "rating:" + strconv.Itoa(formationID)
	val, err, _ := s.sf.Do(key, func() (interface{}, error) {
		values, err := s.repos.Rating.ListByFormation(ctx, formationID)
		if err != nil {
			return nil, err
		}
		return summarize(values), nil
	})
	if err != nil {
		return RatingSummary{}, err
	}
	return val.(RatingSummary), nil
}

// Summaries 批量获取评分汇总（列表页使用）
func (s *RatingService) Summaries(ctx context.Context, formationIDs []int) (map[int]RatingSummary, error) {
	grouped, err := s.repos.Rating.ListByFormations(ctx, formationIDs)
	if err != nil {
		return nil, err
	}
	result := make(map[int]RatingSummary, len(formationIDs))
	for _, id := range formationIDs {
		result[id] = summarize(grouped[id])
	}
	return result, nil
}

// UserRating 用户对课程的评分
func (s *RatingService) UserRating(ctx context.Context, userID, formationID int) (int, bool, error) {
	if userID == 0 {
		return 0, false, nil
	}
	return s.repos.Rating.GetByUserAndFormation(ctx, userID, formationID)
}
