package service

import (
	"context"
	"fmt"

	"github.com/user/knowledger/internal/model"
	"github.com/user/knowledger/internal/repository"
	"github.com/user/knowledger/internal/utils"
)

// VideoPercent 计算视频观看百分比
// 没有记录为 0；时长未知时开始播放即 100；否则按时长换算并封顶 100。
func VideoPercent(timestamp, durationMinutes float64, hasRow bool) float64 {
	if !hasRow || timestamp <= 0 {
		return 0
	}
	if durationMinutes <= 0 {
		return 100
	}
	p := timestamp / (durationMinutes * 60) * 100
	if p > 100 {
		return 100
	}
	return p
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// VideoProgress 单个视频进度
type VideoProgress struct {
	VideoID   int     `json:"videoId"`
	Title     string  `json:"title"`
	Order     int     `json:"order"`
	Timestamp float64 `json:"timestamp"`
	Percent   float64 `json:"percent"`
}

// FormationProgress 课程进度，Percent 为视频进度的平均值
type FormationProgress struct {
	FormationID int             `json:"formationId"`
	Title       string          `json:"title"`
	Order       int             `json:"order"`
	Percent     float64         `json:"percent"`
	Videos      []VideoProgress `json:"videos"`
}

// ParcoursProgress 学习路径进度，Percent 为课程进度的平均值
type ParcoursProgress struct {
	ParcoursID int                 `json:"parcoursId"`
	Title      string              `json:"title"`
	Percent    float64             `json:"percent"`
	Formations []FormationProgress `json:"formations"`
}

// ProgressService 进度汇总
type ProgressService struct {
	repos *repository.Repositories
}

func NewProgressService(repos *repository.Repositories) *ProgressService {
	return &ProgressService{repos: repos}
}

// Video 单个视频的进度
func (s *ProgressService) Video(ctx context.Context, userID, videoID int) (*VideoProgress, error) {
	v, err := s.repos.Video.FindByID(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, utils.NotFoundErr("视频不存在")
	}
	h, err := s.repos.History.Find(ctx, userID, videoID, model.TypeVideo)
	if err != nil {
		return nil, err
	}
	vp := &VideoProgress{VideoID: v.ID, Title: v.Title}
	if h != nil {
		vp.Timestamp = h.Timestamp
	}
	vp.Percent = VideoPercent(vp.Timestamp, v.Duration, h != nil)
	return vp, nil
}

// Formation 课程进度（按 order 排列视频）
func (s *ProgressService) Formation(ctx context.Context, userID, formationID int) (*FormationProgress, error) {
	f, err := s.repos.Formation.FindByID(ctx, formationID)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, utils.NotFoundErr("课程不存在")
	}
	links, err := s.repos.Formation.Videos(ctx, formationID)
	if err != nil {
		return nil, err
	}
	histories, err := s.repos.History.ListForItems(ctx, userID, model.TypeVideo, videoIDs(links))
	if err != nil {
		return nil, fmt.Errorf("加载播放记录失败: %w", err)
	}
	fp := buildFormationProgress(f, links, histories)
	return &fp, nil
}

// Parcours 学习路径进度（按 order 排列课程）
func (s *ProgressService) Parcours(ctx context.Context, userID, parcoursID int) (*ParcoursProgress, error) {
	p, err := s.repos.Parcours.FindByID(ctx, parcoursID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, utils.NotFoundErr("学习路径不存在")
	}
	members, err := s.repos.Parcours.Formations(ctx, parcoursID)
	if err != nil {
		return nil, err
	}

	formationIDs := make([]int, 0, len(members))
	for _, m := range members {
		formationIDs = append(formationIDs, m.FormationID)
	}
	linksByFormation, err := s.repos.Formation.VideosFor(ctx, formationIDs)
	if err != nil {
		return nil, err
	}
	var allVideos []int
	for _, links := range linksByFormation {
		allVideos = append(allVideos, videoIDs(links)...)
	}
	histories, err := s.repos.History.ListForItems(ctx, userID, model.TypeVideo, allVideos)
	if err != nil {
		return nil, fmt.Errorf("加载播放记录失败: %w", err)
	}

	pp := &ParcoursProgress{ParcoursID: p.ID, Title: p.Title, Formations: make([]FormationProgress, 0, len(members))}
	percents := make([]float64, 0, len(members))
	for _, m := range members {
		if m.Formation == nil {
			continue
		}
		fp := buildFormationProgress(m.Formation, linksByFormation[m.FormationID], histories)
		fp.Order = m.Order
		pp.Formations = append(pp.Formations, fp)
		percents = append(percents, fp.Percent)
	}
	pp.Percent = mean(percents)
	return pp, nil
}

func videoIDs(links []*model.VideoFormation) []int {
	ids := make([]int, 0, len(links))
	for _, l := range links {
		ids = append(ids, l.VideoID)
	}
	return ids
}

func buildFormationProgress(f *model.Formation, links []*model.VideoFormation, histories map[int]*model.History) FormationProgress {
	fp := FormationProgress{FormationID: f.ID, Title: f.Title, Videos: make([]VideoProgress, 0, len(links))}
	percents := make([]float64, 0, len(links))
	for _, l := range links {
		if l.Video == nil {
			continue
		}
		vp := VideoProgress{VideoID: l.VideoID, Title: l.Video.Title, Order: l.Order}
		h, ok := histories[l.VideoID]
		if ok {
			vp.Timestamp = h.Timestamp
		}
		vp.Percent = VideoPercent(vp.Timestamp, l.Video.Duration, ok)
		fp.Videos = append(fp.Videos, vp)
		percents = append(percents, vp.Percent)
	}
	fp.Percent = mean(percents)
	return fp
}
