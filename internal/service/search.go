package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/user/knowledger/internal/model"
	"github.com/user/knowledger/internal/repository"
	"github.com/user/knowledger/internal/utils"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	searchLimit    = 10
	searchCacheTTL = 30 * time.Second
	searchTimeout  = 10 * time.Second
)

// AdminSearchResult 后台搜索结果
type AdminSearchResult struct {
	Articles        []*model.Article        `json:"articles"`
	Videos          []*model.Video          `json:"videos"`
	Formations      []*model.Formation      `json:"formations"`
	Users           []*model.User           `json:"users"`
	Categories      []*model.Category       `json:"categories"`
	VideoFormations []*model.VideoFormation `json:"videoFormations"`
}

// SearchService 后台全局搜索
type SearchService struct {
	repos *repository.Repositories
	cache *utils.TTLCache[*AdminSearchResult]
	sf    singleflight.Group
}

func NewSearchService(repos *repository.Repositories) *SearchService {
	return &SearchService{
		repos: repos,
		cache: utils.NewTTLCache[*AdminSearchResult](256, searchCacheTTL),
	}
}

// Search 并发查询六类数据，任何一类失败整体返回错误
// 相同关键词 30 秒内直接走缓存，并发的相同请求只查询一次
func (s *SearchService) Search(ctx context.Context, keyword string) (*AdminSearchResult, error) {
	keyword = strings.TrimSpace(keyword)
	if utf8.RuneCountInString(keyword) < 2 {
		return nil, utils.InvalidField("q", "关键词至少 2 个字符")
	}
	key := strings.ToLower(keyword)
	if res, ok := s.cache.Get(key); ok {
		return res, nil
	}

	// 共享查询不跟随首个请求取消，调用方各自按自己的 ctx 放弃等待
	ch := s.sf.DoChan(key, func() (interface{}, error) {
		qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), searchTimeout)
		defer cancel()
		res, err := s.query(qctx, keyword)
		if err != nil {
			return nil, err
		}
		s.cache.Set(key, res)
		return res, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*AdminSearchResult), nil
	}
}

func (s *SearchService) query(ctx context.Context, keyword string) (*AdminSearchResult, error) {
	res := &AdminSearchResult{}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		res.Articles, err = s.repos.Article.Search(ctx, keyword, searchLimit)
		return
	})
	g.Go(func() (err error) {
		res.Videos, err = s.repos.Video.Search(ctx, keyword, searchLimit)
		return
	})
	g.Go(func() (err error) {
		res.Formations, err = s.repos.Formation.Search(ctx, keyword, searchLimit)
		return
	})
	g.Go(func() (err error) {
		res.Users, err = s.repos.User.Search(ctx, keyword, searchLimit)
		return
	})
	g.Go(func() (err error) {
		res.Categories, err = s.repos.Category.Search(ctx, keyword, searchLimit)
		return
	})
	g.Go(func() (err error) {
		res.VideoFormations, err = s.repos.Formation.SearchVideoLinks(ctx, keyword, searchLimit)
		return
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}

// Invalidate 内容变更后清空搜索缓存
func (s *SearchService) Invalidate() {
	s.cache.Clear()
}
