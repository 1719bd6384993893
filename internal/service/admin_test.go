package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/knowledger/internal/model"
	"github.com/user/knowledger/internal/testutil"
	"github.com/user/knowledger/internal/utils"
)

func TestAdminSearch(t *testing.T) {
	repos := testutil.NewRepos(t)
	ctx := context.Background()
	author := testutil.User(t, repos, "golang_author", model.RoleFormator)
	svc := NewSearchService(repos)
	content := newContentService(repos, &fakeStorage{})

	f, err := content.CreateFormation(ctx, Actor{ID: author.ID, Role: author.Role}, ContentInput{Title: "Golang pour débutants"})
	require.NoError(t, err)
	v, err := content.CreateVideo(ctx, Actor{ID: author.ID, Role: author.Role}, VideoInput{ContentInput: ContentInput{Title: "Installer Golang"}, Duration: 5})
	require.NoError(t, err)
	_, err = content.AttachVideo(ctx, Actor{ID: author.ID, Role: author.Role}, f.Slug, AttachVideoInput{VideoID: v.ID, Order: 1})
	require.NoError(t, err)

	_, err = svc.Search(ctx, "g")
	assert.True(t, utils.IsKind(err, utils.KindValidation))

	res, err := svc.Search(ctx, "GoLang")
	require.NoError(t, err)
	assert.Len(t, res.Formations, 1)
	assert.Len(t, res.Videos, 1)
	assert.Len(t, res.Users, 1)
	assert.Len(t, res.VideoFormations, 1)
	assert.Empty(t, res.Articles)

	// 缓存期内结果不变
	_, err = content.CreateArticle(ctx, Actor{ID: author.ID, Role: author.Role}, ContentInput{Title: "Golang et les interfaces"})
	require.NoError(t, err)
	cached, err := svc.Search(ctx, "golang")
	require.NoError(t, err)
	assert.Empty(t, cached.Articles)

	svc.Invalidate()
	fresh, err := svc.Search(ctx, "golang")
	require.NoError(t, err)
	assert.Len(t, fresh.Articles, 1)
}

func TestAdminSearchSurvivesCallerCancel(t *testing.T) {
	repos := testutil.NewRepos(t)
	testutil.User(t, repos, "golang_author", model.RoleFormator)
	svc := NewSearchService(repos)

	// 首个请求方已断开，共享查询仍完成并写入缓存
	gone, cancel := context.WithCancel(context.Background())
	cancel()
	_, _ = svc.Search(gone, "golang")
	require.Eventually(t, func() bool {
		_, ok := svc.cache.Get("golang")
		return ok
	}, 5*time.Second, 10*time.Millisecond)

	res, err := svc.Search(context.Background(), "golang")
	require.NoError(t, err)
	assert.Len(t, res.Users, 1)
}

func TestAdminStatsAndRoles(t *testing.T) {
	repos := testutil.NewRepos(t)
	ctx := context.Background()
	admin := testutil.User(t, repos, "admin", model.RoleAdmin)
	u := testutil.User(t, repos, "u", model.RoleNormal)
	f := testutil.Formation(t, repos, admin.ID, true, 10)
	_, err := repos.Purchase.Create(ctx, &model.Purchase{UserID: u.ID, ItemID: f.ID, Type: model.TypeFormation, Price: 10})
	require.NoError(t, err)
	_, err = repos.MediaTask.Enqueue(ctx, "covers/a.jpg")
	require.NoError(t, err)

	store := &fakeStorage{}
	svc := NewAdminService(repos, NewEntitlementService(repos), NewMediaCleanupService(repos, store))

	st, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, st.Users)
	assert.EqualValues(t, 1, st.Formations)
	assert.InDelta(t, 10.0, st.Revenue, 0.001)
	assert.EqualValues(t, 1, st.PendingMediaTasks)

	report, err := svc.DrainMedia(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Deleted)
	assert.Equal(t, []string{"covers/a.jpg"}, store.deleted)

	adminActor := Actor{ID: admin.ID, Role: admin.Role}
	_, err = svc.SetRole(ctx, Actor{ID: u.ID, Role: u.Role}, admin.ID, model.RoleNormal)
	assert.True(t, utils.IsKind(err, utils.KindAuthorization))
	_, err = svc.SetRole(ctx, adminActor, admin.ID, model.RoleNormal)
	assert.True(t, utils.IsKind(err, utils.KindValidation))
	_, err = svc.SetRole(ctx, adminActor, u.ID, model.Role("ROOT"))
	assert.True(t, utils.IsKind(err, utils.KindValidation))
	_, err = svc.SetRole(ctx, adminActor, 999, model.RoleFormator)
	assert.True(t, utils.IsKind(err, utils.KindNotFound))

	updated, err := svc.SetRole(ctx, adminActor, u.ID, model.RoleFormator)
	require.NoError(t, err)
	assert.Equal(t, model.RoleFormator, updated.Role)

	list, err := svc.Users(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list.Items, 2)
	assert.EqualValues(t, 2, list.Pagination.Total)
}
