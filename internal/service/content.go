package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/user/knowledger/internal/model"
	"github.com/user/knowledger/internal/repository"
	"github.com/user/knowledger/internal/utils"
)

// CatalogPageSize 内容列表每页条数
const CatalogPageSize = 15

const categoriesCacheKey = "categories:all"

var validate = validator.New()

// Actor 当前操作的用户
type Actor struct {
	ID   int
	Role model.Role
}

// IsAdmin 是否管理员
func (a Actor) IsAdmin() bool {
	return a.Role == model.RoleAdmin
}

// ContentInput 文章/课程通用字段
type ContentInput struct {
	Title       string  `json:"title" validate:"required,min=2,max=200"`
	Description string  `json:"description" validate:"max=2000"`
	Content     string  `json:"content"`
	ImageURL    string  `json:"imageUrl" validate:"omitempty,url"`
	MediaKey    string  `json:"mediaKey" validate:"max=512"`
	IsPremium   bool    `json:"isPremium"`
	Price       float64 `json:"price" validate:"gte=0"`
	CategoryID  *int    `json:"categoryId"`
}

// VideoInput 视频字段，Duration 单位为分钟
type VideoInput struct {
	ContentInput
	VideoURL string  `json:"videoUrl" validate:"omitempty,url"`
	Duration float64 `json:"duration" validate:"gte=0"`
}

// ParcoursInput 学习路径字段
type ParcoursInput struct {
	Title       string `json:"title" validate:"required,min=2,max=200"`
	Description string `json:"description" validate:"max=2000"`
	ImageURL    string `json:"imageUrl" validate:"omitempty,url"`
	MediaKey    string `json:"mediaKey" validate:"max=512"`
}

// AttachVideoInput 课程中加入视频
type AttachVideoInput struct {
	VideoID  int    `json:"videoId" validate:"required,gt=0"`
	Order    int    `json:"order" validate:"gte=0"`
	CoverURL string `json:"coverUrl" validate:"omitempty,url"`
}

// AttachFormationInput 学习路径中加入课程
type AttachFormationInput struct {
	FormationID int `json:"formationId" validate:"required,gt=0"`
	Order       int `json:"order" validate:"gte=0"`
}

// CategoryInput 分类字段
type CategoryInput struct {
	Name string `json:"name" validate:"required,min=2,max=100"`
}

// FormationCard 列表中的课程
type FormationCard struct {
	*model.Formation
	AverageRating float64 `json:"averageRating"`
	TotalRatings  int     `json:"totalRatings"`
	HasPurchased  bool    `json:"hasPurchased"`
	CanAccess     bool    `json:"canAccess"`
	VideoCount    int     `json:"videoCount"`
}

// FormationList 课程分页列表
type FormationList struct {
	Items      []FormationCard       `json:"items"`
	Pagination repository.Pagination `json:"pagination"`
}

// FormationDetail 课程详情，无权限时隐藏正文和视频地址
type FormationDetail struct {
	*model.Formation
	Videos        []*model.VideoFormation `json:"videos"`
	CanAccess     bool                    `json:"canAccess"`
	HasPurchased  bool                    `json:"hasPurchased"`
	AverageRating float64                 `json:"averageRating"`
	TotalRatings  int                     `json:"totalRatings"`
	UserRating    *int                    `json:"userRating"`
}

// VideoCard 视频（列表与详情共用）
type VideoCard struct {
	*model.Video
	HasPurchased bool `json:"hasPurchased"`
	CanAccess    bool `json:"canAccess"`
}

// VideoList 视频分页列表
type VideoList struct {
	Items      []VideoCard           `json:"items"`
	Pagination repository.Pagination `json:"pagination"`
}

// ArticleCard 文章（列表与详情共用）
type ArticleCard struct {
	*model.Article
	HasPurchased bool `json:"hasPurchased"`
	CanAccess    bool `json:"canAccess"`
}

// ArticleList 文章分页列表
type ArticleList struct {
	Items      []ArticleCard         `json:"items"`
	Pagination repository.Pagination `json:"pagination"`
}

// ParcoursList 学习路径分页列表
type ParcoursList struct {
	Items      []*model.Parcours     `json:"items"`
	Pagination repository.Pagination `json:"pagination"`
}

// ParcoursFormation 学习路径中的课程
type ParcoursFormation struct {
	Order int `json:"order"`
	FormationCard
}

// ParcoursDetail 学习路径详情
type ParcoursDetail struct {
	*model.Parcours
	Formations []ParcoursFormation `json:"formations"`
}

// DeleteResult 删除结果
type DeleteResult struct {
	Removed      map[model.ContentType][]int `json:"removed"`
	MediaQueued  int                         `json:"mediaQueued"`
	MediaDeleted int                         `json:"mediaDeleted"`
}

// ContentService 内容目录：创建、查询、组织和级联删除
type ContentService struct {
	repos       *repository.Repositories
	entitlement *EntitlementService
	ratings     *RatingService
	cleanup     *MediaCleanupService
}

func NewContentService(repos *repository.Repositories, entitlement *EntitlementService, ratings *RatingService, cleanup *MediaCleanupService) *ContentService {
	return &ContentService{repos: repos, entitlement: entitlement, ratings: ratings, cleanup: cleanup}
}

func validateStruct(v interface{}) error {
	if err := validate.Struct(v); err != nil {
		return utils.ValidationErrors(err)
	}
	return nil
}

func (s *ContentService) checkContentInput(ctx context.Context, in *ContentInput) error {
	in.Title = strings.TrimSpace(in.Title)
	if err := validateStruct(in); err != nil {
		return err
	}
	if in.IsPremium && in.Price <= 0 {
		return utils.InvalidField("price", "付费内容的价格必须大于 0")
	}
	if in.CategoryID != nil {
		c, err := s.repos.Category.FindByID(ctx, *in.CategoryID)
		if err != nil {
			return err
		}
		if c == nil {
			return utils.InvalidField("categoryId", "分类不存在")
		}
	}
	return nil
}

func requirePublisher(actor Actor) error {
	if actor.ID == 0 {
		return utils.Unauthenticated("请先登录")
	}
	if !actor.Role.CanPublish() {
		return utils.Forbid("只有讲师或管理员可以发布内容")
	}
	return nil
}

func requireOwner(actor Actor, authorID int) error {
	if actor.IsAdmin() || actor.ID == authorID {
		return nil
	}
	return utils.Forbid("只能操作自己发布的内容")
}

// ==================== 创建 ====================

// CreateFormation 创建课程
func (s *ContentService) CreateFormation(ctx context.Context, actor Actor, in ContentInput) (*model.Formation, error) {
	if err := requirePublisher(actor); err != nil {
		return nil, err
	}
	if err := s.checkContentInput(ctx, &in); err != nil {
		return nil, err
	}
	now := time.Now()
	f := &model.Formation{
		Slug:        utils.UniqueSlug(in.Title),
		Title:       in.Title,
		Description: in.Description,
		Content:     in.Content,
		ImageURL:    in.ImageURL,
		MediaKey:    in.MediaKey,
		IsPremium:   in.IsPremium,
		Price:       in.Price,
		AuthorID:    actor.ID,
		CategoryID:  in.CategoryID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repos.Formation.Create(ctx, f); err != nil {
		return nil, fmt.Errorf("创建课程失败: %w", err)
	}
	return f, nil
}

// CreateVideo 创建视频
func (s *ContentService) CreateVideo(ctx context.Context, actor Actor, in VideoInput) (*model.Video, error) {
	if err := requirePublisher(actor); err != nil {
		return nil, err
	}
	if err := validate.StructPartial(&in, "VideoURL", "Duration"); err != nil {
		return nil, utils.ValidationErrors(err)
	}
	if err := s.checkContentInput(ctx, &in.ContentInput); err != nil {
		return nil, err
	}
	now := time.Now()
	v := &model.Video{
		Slug:        utils.UniqueSlug(in.Title),
		Title:       in.Title,
		Description: in.Description,
		VideoURL:    in.VideoURL,
		ImageURL:    in.ImageURL,
		MediaKey:    in.MediaKey,
		Duration:    in.Duration,
		IsPremium:   in.IsPremium,
		Price:       in.Price,
		AuthorID:    actor.ID,
		CategoryID:  in.CategoryID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repos.Video.Create(ctx, v); err != nil {
		return nil, fmt.Errorf("创建视频失败: %w", err)
	}
	return v, nil
}

// CreateArticle 创建文章
func (s *ContentService) CreateArticle(ctx context.Context, actor Actor, in ContentInput) (*model.Article, error) {
	if err := requirePublisher(actor); err != nil {
		return nil, err
	}
	if err := s.checkContentInput(ctx, &in); err != nil {
		return nil, err
	}
	now := time.Now()
	a := &model.Article{
		Slug:        utils.UniqueSlug(in.Title),
		Title:       in.Title,
		Description: in.Description,
		Content:     in.Content,
		ImageURL:    in.ImageURL,
		MediaKey:    in.MediaKey,
		IsPremium:   in.IsPremium,
		Price:       in.Price,
		AuthorID:    actor.ID,
		CategoryID:  in.CategoryID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repos.Article.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("创建文章失败: %w", err)
	}
	return a, nil
}

// CreateParcours 创建学习路径
func (s *ContentService) CreateParcours(ctx context.Context, actor Actor, in ParcoursInput) (*model.Parcours, error) {
	if err := requirePublisher(actor); err != nil {
		return nil, err
	}
	in.Title = strings.TrimSpace(in.Title)
	if err := validateStruct(&in); err != nil {
		return nil, err
	}
	now := time.Now()
	p := &model.Parcours{
		Slug:        utils.UniqueSlug(in.Title),
		Title:       in.Title,
		Description: in.Description,
		ImageURL:    in.ImageURL,
		MediaKey:    in.MediaKey,
		AuthorID:    actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repos.Parcours.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("创建学习路径失败: %w", err)
	}
	return p, nil
}

// AttachVideo 把视频加入课程，已存在时更新顺序和封面
func (s *ContentService) AttachVideo(ctx context.Context, actor Actor, formationSlug string, in AttachVideoInput) (*model.VideoFormation, error) {
	if err := validateStruct(&in); err != nil {
		return nil, err
	}
	f, err := s.repos.Formation.FindBySlug(ctx, formationSlug)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, utils.NotFoundErr("课程不存在")
	}
	if err := requireOwner(actor, f.AuthorID); err != nil {
		return nil, err
	}
	v, err := s.repos.Video.FindByID(ctx, in.VideoID)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, utils.InvalidField("videoId", "视频不存在")
	}
	link := &model.VideoFormation{FormationID: f.ID, VideoID: v.ID, Order: in.Order, CoverURL: in.CoverURL}
	if err := s.repos.Formation.AttachVideo(ctx, link); err != nil {
		return nil, fmt.Errorf("添加视频失败: %w", err)
	}
	link.Video = v
	return link, nil
}

// AttachFormation 把课程加入学习路径
func (s *ContentService) AttachFormation(ctx context.Context, actor Actor, parcoursSlug string, in AttachFormationInput) (*model.FormationParcours, error) {
	if err := validateStruct(&in); err != nil {
		return nil, err
	}
	p, err := s.repos.Parcours.FindBySlug(ctx, parcoursSlug)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, utils.NotFoundErr("学习路径不存在")
	}
	if err := requireOwner(actor, p.AuthorID); err != nil {
		return nil, err
	}
	f, err := s.repos.Formation.FindByID(ctx, in.FormationID)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, utils.InvalidField("formationId", "课程不存在")
	}
	link := &model.FormationParcours{ParcoursID: p.ID, FormationID: f.ID, Order: in.Order}
	if err := s.repos.Parcours.AttachFormation(ctx, link); err != nil {
		return nil, fmt.Errorf("添加课程失败: %w", err)
	}
	link.Formation = f
	return link, nil
}

// ==================== 查询 ====================

// formationCards 为课程列表补充评分、购买和权限信息
func (s *ContentService) formationCards(ctx context.Context, userID int, formations []*model.Formation) ([]FormationCard, error) {
	ids := make([]int, len(formations))
	refs := make([]model.ContentRef, len(formations))
	for i, f := range formations {
		ids[i] = f.ID
		refs[i] = f.Ref()
	}
	summaries, err := s.ratings.Summaries(ctx, ids)
	if err != nil {
		return nil, err
	}
	access, purchased, err := s.entitlement.AccessMap(ctx, userID, model.TypeFormation, refs)
	if err != nil {
		return nil, err
	}
	links, err := s.repos.Formation.VideosFor(ctx, ids)
	if err != nil {
		return nil, err
	}

	cards := make([]FormationCard, len(formations))
	for i, f := range formations {
		listed := *f
		listed.Content = ""
		cards[i] = FormationCard{
			Formation:     &listed,
			AverageRating: summaries[f.ID].Average,
			TotalRatings:  summaries[f.ID].Total,
			HasPurchased:  purchased[f.ID],
			CanAccess:     access[f.ID],
			VideoCount:    len(links[f.ID]),
		}
	}
	return cards, nil
}

// ListFormations 分页获取课程
func (s *ContentService) ListFormations(ctx context.Context, userID, page int) (*FormationList, error) {
	formations, p, err := s.repos.Formation.List(ctx, page, CatalogPageSize)
	if err != nil {
		return nil, err
	}
	cards, err := s.formationCards(ctx, userID, formations)
	if err != nil {
		return nil, err
	}
	return &FormationList{Items: cards, Pagination: p}, nil
}

// FormationBySlug 根据 slug 获取课程
func (s *ContentService) FormationBySlug(ctx context.Context, slug string) (*model.Formation, error) {
	f, err := s.repos.Formation.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, utils.NotFoundErr("课程不存在")
	}
	return f, nil
}

// GetFormation 课程详情（视频按 order 排序）
func (s *ContentService) GetFormation(ctx context.Context, userID int, slug string) (*FormationDetail, error) {
	f, err := s.FormationBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	canAccess, err := s.entitlement.CanAccess(ctx, userID, f.Ref())
	if err != nil {
		return nil, err
	}
	purchased := false
	if userID > 0 {
		if purchased, err = s.repos.Purchase.Exists(ctx, userID, f.ID, model.TypeFormation); err != nil {
			return nil, err
		}
	}
	videos, err := s.repos.Formation.Videos(ctx, f.ID)
	if err != nil {
		return nil, err
	}
	summary, err := s.ratings.Summary(ctx, f.ID)
	if err != nil {
		return nil, err
	}

	detail := &FormationDetail{
		Formation:     f,
		Videos:        videos,
		CanAccess:     canAccess,
		HasPurchased:  purchased,
		AverageRating: summary.Average,
		TotalRatings:  summary.Total,
	}
	if rating, ok, err := s.ratings.UserRating(ctx, userID, f.ID); err != nil {
		return nil, err
	} else if ok {
		detail.UserRating = &rating
	}

	if !canAccess {
		locked := *f
		locked.Content = ""
		detail.Formation = &locked
		for _, link := range videos {
			if link.Video != nil {
				hidden := *link.Video
				hidden.VideoURL = ""
				link.Video = &hidden
			}
		}
	}
	return detail, nil
}

// FormationVideos 课程中的视频（按 order 排序）
func (s *ContentService) FormationVideos(ctx context.Context, userID int, slug string) ([]*model.VideoFormation, error) {
	detail, err := s.GetFormation(ctx, userID, slug)
	if err != nil {
		return nil, err
	}
	return detail.Videos, nil
}

func (s *ContentService) videoCards(ctx context.Context, userID int, videos []*model.Video) ([]VideoCard, error) {
	refs := make([]model.ContentRef, len(videos))
	for i, v := range videos {
		refs[i] = v.Ref()
	}
	access, purchased, err := s.entitlement.AccessMap(ctx, userID, model.TypeVideo, refs)
	if err != nil {
		return nil, err
	}
	cards := make([]VideoCard, len(videos))
	for i, v := range videos {
		shown := *v
		if !access[v.ID] {
			shown.VideoURL = ""
		}
		cards[i] = VideoCard{Video: &shown, HasPurchased: purchased[v.ID], CanAccess: access[v.ID]}
	}
	return cards, nil
}

// ListVideos 分页获取视频
func (s *ContentService) ListVideos(ctx context.Context, userID, page int) (*VideoList, error) {
	videos, p, err := s.repos.Video.List(ctx, page, CatalogPageSize)
	if err != nil {
		return nil, err
	}
	cards, err := s.videoCards(ctx, userID, videos)
	if err != nil {
		return nil, err
	}
	return &VideoList{Items: cards, Pagination: p}, nil
}

// GetVideo 视频详情
func (s *ContentService) GetVideo(ctx context.Context, userID int, slug string) (*VideoCard, error) {
	v, err := s.repos.Video.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, utils.NotFoundErr("视频不存在")
	}
	cards, err := s.videoCards(ctx, userID, []*model.Video{v})
	if err != nil {
		return nil, err
	}
	return &cards[0], nil
}

func (s *ContentService) articleCards(ctx context.Context, userID int, articles []*model.Article, withContent bool) ([]ArticleCard, error) {
	refs := make([]model.ContentRef, len(articles))
	for i, a := range articles {
		refs[i] = a.Ref()
	}
	access, purchased, err := s.entitlement.AccessMap(ctx, userID, model.TypeArticle, refs)
	if err != nil {
		return nil, err
	}
	cards := make([]ArticleCard, len(articles))
	for i, a := range articles {
		shown := *a
		if !withContent || !access[a.ID] {
			shown.Content = ""
		}
		cards[i] = ArticleCard{Article: &shown, HasPurchased: purchased[a.ID], CanAccess: access[a.ID]}
	}
	return cards, nil
}

// ListArticles 分页获取文章（不含正文）
func (s *ContentService) ListArticles(ctx context.Context, userID, page int) (*ArticleList, error) {
	articles, p, err := s.repos.Article.List(ctx, page, CatalogPageSize)
	if err != nil {
		return nil, err
	}
	cards, err := s.articleCards(ctx, userID, articles, false)
	if err != nil {
		return nil, err
	}
	return &ArticleList{Items: cards, Pagination: p}, nil
}

// GetArticle 文章详情，无权限时不返回正文
func (s *ContentService) GetArticle(ctx context.Context, userID int, slug string) (*ArticleCard, error) {
	a, err := s.repos.Article.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, utils.NotFoundErr("文章不存在")
	}
	cards, err := s.articleCards(ctx, userID, []*model.Article{a}, true)
	if err != nil {
		return nil, err
	}
	return &cards[0], nil
}

// ListParcours 分页获取学习路径
func (s *ContentService) ListParcours(ctx context.Context, page int) (*ParcoursList, error) {
	list, p, err := s.repos.Parcours.List(ctx, page, CatalogPageSize)
	if err != nil {
		return nil, err
	}
	return &ParcoursList{Items: list, Pagination: p}, nil
}

// GetParcours 学习路径详情（课程按 order 排序）
func (s *ContentService) GetParcours(ctx context.Context, userID int, slug string) (*ParcoursDetail, error) {
	p, err := s.repos.Parcours.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, utils.NotFoundErr("学习路径不存在")
	}
	members, err := s.repos.Parcours.Formations(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	formations := make([]*model.Formation, 0, len(members))
	orders := make([]int, 0, len(members))
	for _, m := range members {
		if m.Formation != nil {
			formations = append(formations, m.Formation)
			orders = append(orders, m.Order)
		}
	}
	cards, err := s.formationCards(ctx, userID, formations)
	if err != nil {
		return nil, err
	}
	detail := &ParcoursDetail{Parcours: p, Formations: make([]ParcoursFormation, len(cards))}
	for i, card := range cards {
		detail.Formations[i] = ParcoursFormation{Order: orders[i], FormationCard: card}
	}
	return detail, nil
}

// ==================== 分类 ====================

// ListCategories 全部分类（缓存 1 分钟）
func (s *ContentService) ListCategories(ctx context.Context) ([]*model.Category, error) {
	if cached, ok := utils.CacheGet(categoriesCacheKey); ok {
		return cached.([]*model.Category), nil
	}
	categories, err := s.repos.Category.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	utils.CacheSet(categoriesCacheKey, categories, time.Minute)
	return categories, nil
}

// CreateCategory 创建分类，名称或 slug 重复时返回冲突
func (s *ContentService) CreateCategory(ctx context.Context, in CategoryInput) (*model.Category, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateStruct(&in); err != nil {
		return nil, err
	}
	slug := utils.Slugify(in.Name)
	if slug == "" {
		return nil, utils.InvalidField("name", "名称必须包含字母或数字")
	}
	existing, err := s.repos.Category.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, utils.Conflict("分类已存在")
	}
	c := &model.Category{Name: in.Name, Slug: slug, CreatedAt: time.Now()}
	if err := s.repos.Category.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("创建分类失败: %w", err)
	}
	utils.CacheDelete(categoriesCacheKey)
	return c, nil
}

// ==================== 删除 ====================

func (s *ContentService) authorOf(ctx context.Context, t model.ContentType, id int) (int, bool, error) {
	return contentAuthor(ctx, s.repos, t, id)
}

// contentAuthor 返回内容作者，内容不存在时 found 为 false
func contentAuthor(ctx context.Context, repos *repository.Repositories, t model.ContentType, id int) (int, bool, error) {
	switch t {
	case model.TypeArticle:
		a, err := repos.Article.FindByID(ctx, id)
		if err != nil || a == nil {
			return 0, false, err
		}
		return a.AuthorID, true, nil
	case model.TypeVideo:
		v, err := repos.Video.FindByID(ctx, id)
		if err != nil || v == nil {
			return 0, false, err
		}
		return v.AuthorID, true, nil
	case model.TypeFormation:
		f, err := repos.Formation.FindByID(ctx, id)
		if err != nil || f == nil {
			return 0, false, err
		}
		return f.AuthorID, true, nil
	case model.TypeParcours:
		p, err := repos.Parcours.FindByID(ctx, id)
		if err != nil || p == nil {
			return 0, false, err
		}
		return p.AuthorID, true, nil
	}
	return 0, false, utils.InvalidField("type", "未知的内容类型")
}

// Delete 级联删除内容
// 第一阶段在一个事务里删除所有引用并登记媒体清理任务；
// 第二阶段提交后尽力删除远程文件，失败的任务留给定时任务重试。
func (s *ContentService) Delete(ctx context.Context, actor Actor, t model.ContentType, id int) (*DeleteResult, error) {
	if actor.ID == 0 {
		return nil, utils.Unauthenticated("请先登录")
	}
	authorID, found, err := s.authorOf(ctx, t, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, utils.NotFoundErr("内容不存在")
	}
	if err := requireOwner(actor, authorID); err != nil {
		return nil, err
	}

	var (
		removed *repository.CascadeResult
		taskIDs []int
	)
	err = s.repos.Transaction(ctx, func(ctx context.Context) error {
		var err error
		removed, err = s.repos.ContentCascade.Delete(ctx, t, id)
		if err != nil {
			return err
		}
		if removed == nil {
			return utils.NotFoundErr("内容不存在")
		}
		taskIDs, err = s.repos.MediaTask.Enqueue(ctx, removed.MediaKeys...)
		return err
	})
	if err != nil {
		if _, ok := utils.AsAppError(err); ok {
			return nil, err
		}
		return nil, fmt.Errorf("删除内容失败: %w", err)
	}
	log.Printf("[ContentService] 用户 %d 删除 %s %d，待清理媒体 %d 个", actor.ID, t, id, len(taskIDs))

	result := &DeleteResult{Removed: removed.Removed, MediaQueued: len(taskIDs)}
	if s.cleanup != nil {
		report := s.cleanup.Process(ctx, taskIDs)
		result.MediaDeleted = report.Deleted
	}
	return result, nil
}
