package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/knowledger/internal/model"
	"github.com/user/knowledger/internal/testutil"
)

func TestEvaluate(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(24 * time.Hour)
	premium := model.ContentRef{ID: 1, Type: model.TypeFormation, IsPremium: true, Price: 9.99, AuthorID: 99}
	free := model.ContentRef{ID: 2, Type: model.TypeArticle, AuthorID: 99}

	tests := []struct {
		name   string
		viewer *Viewer
		item   model.ContentRef
		want   Access
	}{
		{"匿名访问免费内容", nil, free, FullAccess},
		{"匿名访问付费内容", nil, premium, Locked},
		{"普通用户免费内容", &Viewer{UserID: 1, Role: model.RoleNormal}, free, FullAccess},
		{"普通用户未购买", &Viewer{UserID: 1, Role: model.RoleNormal}, premium, Locked},
		{"普通用户已购买", &Viewer{UserID: 1, Role: model.RoleNormal, Purchased: true}, premium, FullAccess},
		{"管理员", &Viewer{UserID: 1, Role: model.RoleAdmin}, premium, FullAccess},
		{"讲师", &Viewer{UserID: 1, Role: model.RoleFormator}, premium, FullAccess},
		{"作者本人", &Viewer{UserID: 99, Role: model.RoleNormal}, premium, FullAccess},
		{"高级会员无订阅记录", &Viewer{UserID: 1, Role: model.RolePremium}, premium, FullAccess},
		{"高级会员订阅有效", &Viewer{UserID: 1, Role: model.RolePremium, Subscription: &model.Subscription{IsActive: true, EndDate: &future}}, premium, FullAccess},
		{"高级会员订阅过期", &Viewer{UserID: 1, Role: model.RolePremium, Subscription: &model.Subscription{IsActive: true, EndDate: &past}}, premium, Locked},
		{"高级会员订阅失效", &Viewer{UserID: 1, Role: model.RolePremium, Subscription: &model.Subscription{IsActive: false, EndDate: &future}}, premium, Locked},
		{"订阅过期但已购买", &Viewer{UserID: 1, Role: model.RolePremium, Subscription: &model.Subscription{IsActive: true, EndDate: &past}, Purchased: true}, premium, FullAccess},
		{"角色未同步但订阅有效", &Viewer{UserID: 1, Role: model.RoleNormal, Subscription: &model.Subscription{IsActive: true, EndDate: &future}}, premium, FullAccess},
		{"无到期时间的有效订阅", &Viewer{UserID: 1, Role: model.RoleNormal, Subscription: &model.Subscription{IsActive: true}}, premium, FullAccess},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.viewer, tt.item, now))
		})
	}
}

func TestEvaluateFreeContentAlwaysAccessible(t *testing.T) {
	now := time.Now()
	free := model.ContentRef{ID: 3, Type: model.TypeVideo}
	for _, role := range []model.Role{"", model.RoleNormal, model.RolePremium, model.RoleFormator, model.RoleAdmin} {
		assert.Equal(t, FullAccess, Evaluate(&Viewer{UserID: 5, Role: role}, free, now), role)
	}
}

func TestCanAccessAfterPurchase(t *testing.T) {
	repos := testutil.NewRepos(t)
	ctx := context.Background()
	author := testutil.User(t, repos, "author", model.RoleFormator)
	u := testutil.User(t, repos, "u", model.RoleNormal)
	f := testutil.Formation(t, repos, author.ID, true, 9.99)
	svc := NewEntitlementService(repos)

	ok, err := svc.CanAccess(ctx, u.ID, f.Ref())
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repos.Purchase.Create(ctx, &model.Purchase{UserID: u.ID, ItemID: f.ID, Type: model.TypeFormation, Price: f.Price})
	require.NoError(t, err)

	ok, err = svc.CanAccess(ctx, u.ID, f.Ref())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.CanAccess(ctx, 0, f.Ref())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCanAccessUsesSubscriptionExpiry(t *testing.T) {
	repos := testutil.NewRepos(t)
	ctx := context.Background()
	author := testutil.User(t, repos, "author", model.RoleFormator)
	u := testutil.User(t, repos, "u", model.RolePremium)
	f := testutil.Formation(t, repos, author.ID, true, 19)
	svc := NewEntitlementService(repos)

	past := time.Now().Add(-time.Hour)
	require.NoError(t, repos.Subscription.Upsert(ctx, &model.Subscription{UserID: u.ID, Plan: model.PlanMonthly, IsActive: true, EndDate: &past}))

	ok, err := svc.CanAccess(ctx, u.ID, f.Ref())
	require.NoError(t, err)
	assert.False(t, ok)

	// 续费后需要失效缓存
	future := time.Now().Add(time.Hour)
	require.NoError(t, repos.Subscription.Upsert(ctx, &model.Subscription{UserID: u.ID, Plan: model.PlanMonthly, IsActive: true, EndDate: &future}))
	ok, err = svc.CanAccess(ctx, u.ID, f.Ref())
	require.NoError(t, err)
	assert.False(t, ok)

	svc.Invalidate(u.ID)
	ok, err = svc.CanAccess(ctx, u.ID, f.Ref())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAccessMap(t *testing.T) {
	repos := testutil.NewRepos(t)
	ctx := context.Background()
	author := testutil.User(t, repos, "author", model.RoleFormator)
	u := testutil.User(t, repos, "u", model.RoleNormal)
	paid := testutil.Formation(t, repos, author.ID, true, 5)
	bought := testutil.Formation(t, repos, author.ID, true, 5)
	free := testutil.Formation(t, repos, author.ID, false, 0)
	_, err := repos.Purchase.Create(ctx, &model.Purchase{UserID: u.ID, ItemID: bought.ID, Type: model.TypeFormation})
	require.NoError(t, err)

	svc := NewEntitlementService(repos)
	access, purchased, err := svc.AccessMap(ctx, u.ID, model.TypeFormation, []model.ContentRef{paid.Ref(), bought.Ref(), free.Ref()})
	require.NoError(t, err)
	assert.Equal(t, map[int]bool{paid.ID: false, bought.ID: true, free.ID: true}, access)
	assert.True(t, purchased[bought.ID])
	assert.False(t, purchased[paid.ID])
}
