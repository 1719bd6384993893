package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/user/knowledger/internal/model"
	"github.com/user/knowledger/internal/repository"
	"github.com/user/knowledger/internal/utils"
)

const (
	CommentPageSize      = 20
	NotificationPageSize = 50
	maxCommentLength     = 2000
)

// CommentService 评论与站内通知
type CommentService struct {
	repos *repository.Repositories
}

func NewCommentService(repos *repository.Repositories) *CommentService {
	return &CommentService{repos: repos}
}

// List 内容下的评论，最新的在前
func (s *CommentService) List(ctx context.Context, t model.ContentType, itemID, page int) ([]*model.Comment, error) {
	if page < 1 {
		page = 1
	}
	return s.repos.Comment.ListByItem(ctx, itemID, t, CommentPageSize, (page-1)*CommentPageSize)
}

// Create 发表评论，并通知内容作者（作者自己评论时不通知）
func (s *CommentService) Create(ctx context.Context, actor Actor, t model.ContentType, itemID int, content string) (*model.Comment, error) {
	if actor.ID == 0 {
		return nil, utils.Unauthenticated("请先登录")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, utils.InvalidField("content", "评论内容不能为空")
	}
	if utf8.RuneCountInString(content) > maxCommentLength {
		return nil, utils.InvalidField("content", fmt.Sprintf("评论内容不能超过 %d 个字符", maxCommentLength))
	}
	authorID, found, err := contentAuthor(ctx, s.repos, t, itemID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, utils.NotFoundErr("内容不存在")
	}

	comment := &model.Comment{UserID: actor.ID, ItemID: itemID, Type: t, Content: content}
	err = s.repos.Transaction(ctx, func(ctx context.Context) error {
		if err := s.repos.Comment.Create(ctx, comment); err != nil {
			return err
		}
		if authorID == actor.ID {
			return nil
		}
		return s.repos.Notification.Create(ctx, &model.Notification{
			UserID:  authorID,
			ItemID:  itemID,
			Type:    t,
			Message: fmt.Sprintf("您的%s收到了新评论", typeLabel(t)),
		})
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[CommentService] 用户 %d 评论 %s #%d", actor.ID, t, itemID)
	return comment, nil
}

// Delete 删除评论，仅评论者本人或管理员
func (s *CommentService) Delete(ctx context.Context, actor Actor, id int) error {
	if actor.ID == 0 {
		return utils.Unauthenticated("请先登录")
	}
	comment, err := s.repos.Comment.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if comment == nil {
		return utils.NotFoundErr("评论不存在")
	}
	if comment.UserID != actor.ID && !actor.IsAdmin() {
		return utils.Forbid("只能删除自己的评论")
	}
	return s.repos.Comment.Delete(ctx, id)
}

// Notifications 用户最近的通知
func (s *CommentService) Notifications(ctx context.Context, userID int) ([]*model.Notification, error) {
	return s.repos.Notification.ListByUser(ctx, userID, NotificationPageSize)
}

// MarkRead 标记通知已读
func (s *CommentService) MarkRead(ctx context.Context, userID, id int) error {
	ok, err := s.repos.Notification.MarkRead(ctx, userID, id)
	if err != nil {
		return err
	}
	if !ok {
		return utils.NotFoundErr("通知不存在")
	}
	return nil
}

func typeLabel(t model.ContentType) string {
	switch t {
	case model.TypeArticle:
		return "文章"
	case model.TypeVideo:
		return "视频"
	case model.TypeFormation:
		return "课程"
	case model.TypeParcours:
		return "学习路径"
	}
	return "内容"
}
