package service

import (
	"context"
	"log"

	"github.com/user/knowledger/internal/model"
	"github.com/user/knowledger/internal/repository"
	"github.com/user/knowledger/internal/utils"
	"golang.org/x/sync/errgroup"
)

const AdminUserPageSize = 20

// AdminStats 后台统计
type AdminStats struct {
	Users               int64   `json:"users"`
	Articles            int64   `json:"articles"`
	Videos              int64   `json:"videos"`
	Formations          int64   `json:"formations"`
	Comments            int64   `json:"comments"`
	ActiveSubscriptions int64   `json:"activeSubscriptions"`
	Revenue             float64 `json:"revenue"`
	PendingMediaTasks   int64   `json:"pendingMediaTasks"`
}

// UserList 用户分页
type UserList struct {
	Items      []*model.User         `json:"items"`
	Pagination repository.Pagination `json:"pagination"`
}

// AdminService 后台管理
type AdminService struct {
	repos       *repository.Repositories
	entitlement *EntitlementService
	cleanup     *MediaCleanupService
}

func NewAdminService(repos *repository.Repositories, entitlement *EntitlementService, cleanup *MediaCleanupService) *AdminService {
	return &AdminService{repos: repos, entitlement: entitlement, cleanup: cleanup}
}

// Stats 汇总计数
func (s *AdminService) Stats(ctx context.Context) (*AdminStats, error) {
	st := &AdminStats{}
	g, ctx := errgroup.WithContext(ctx)
	count := func(dst *int64, fn func(context.Context) (int64, error)) {
		g.Go(func() (err error) {
			*dst, err = fn(ctx)
			return
		})
	}
	count(&st.Users, s.repos.User.Count)
	count(&st.Articles, s.repos.Article.Count)
	count(&st.Videos, s.repos.Video.Count)
	count(&st.Formations, s.repos.Formation.Count)
	count(&st.Comments, s.repos.Comment.Count)
	count(&st.ActiveSubscriptions, s.repos.Subscription.CountActive)
	count(&st.PendingMediaTasks, s.cleanup.Pending)
	g.Go(func() (err error) {
		st.Revenue, err = s.repos.Purchase.Revenue(ctx)
		return
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return st, nil
}

// Users 用户列表
func (s *AdminService) Users(ctx context.Context, page int) (*UserList, error) {
	users, p, err := s.repos.User.List(ctx, page, AdminUserPageSize)
	if err != nil {
		return nil, err
	}
	return &UserList{Items: users, Pagination: p}, nil
}

// SetRole 修改用户角色，管理员不能修改自己的角色
func (s *AdminService) SetRole(ctx context.Context, actor Actor, userID int, role model.Role) (*model.User, error) {
	if !actor.IsAdmin() {
		return nil, utils.Forbid("需要管理员权限")
	}
	if !role.Valid() {
		return nil, utils.InvalidField("role", "无效的角色")
	}
	if actor.ID == userID {
		return nil, utils.Invalid("不能修改自己的角色")
	}
	user, err := s.repos.User.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, utils.NotFoundErr("用户不存在")
	}
	if err := s.repos.User.UpdateRole(ctx, userID, role); err != nil {
		return nil, err
	}
	s.entitlement.Invalidate(userID)
	log.Printf("[AdminService] 管理员 %d 将用户 %d 的角色从 %s 改为 %s", actor.ID, userID, user.Role, role)
	user.Role = role
	return user, nil
}

// DrainMedia 立即处理媒体清理队列
func (s *AdminService) DrainMedia(ctx context.Context) (CleanupReport, error) {
	return s.cleanup.Drain(ctx)
}
