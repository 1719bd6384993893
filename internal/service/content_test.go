package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/knowledger/internal/model"
	"github.com/user/knowledger/internal/repository"
	"github.com/user/knowledger/internal/testutil"
	"github.com/user/knowledger/internal/utils"
)

// fakeStorage 记录删除调用，failKeys 中的文件删除失败，missing 中的文件视为不存在
type fakeStorage struct {
	deleted  []string
	failKeys map[string]bool
	missing  map[string]bool
}

func (f *fakeStorage) Delete(ctx context.Context, key string) error {
	if f.failKeys[key] {
		return errors.New("storage unavailable")
	}
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeStorage) Exists(ctx context.Context, key string) (bool, error) {
	return !f.missing[key], nil
}

func newContentService(repos *repository.Repositories, store *fakeStorage) *ContentService {
	return NewContentService(repos, NewEntitlementService(repos), NewRatingService(repos), NewMediaCleanupService(repos, store))
}

func TestCreateFormationRules(t *testing.T) {
	repos := testutil.NewRepos(t)
	ctx := context.Background()
	formator := testutil.User(t, repos, "formator", model.RoleFormator)
	normal := testutil.User(t, repos, "normal", model.RoleNormal)
	svc := newContentService(repos, &fakeStorage{})

	_, err := svc.CreateFormation(ctx, Actor{ID: normal.ID, Role: normal.Role}, ContentInput{Title: "Go avancé"})
	assert.True(t, utils.IsKind(err, utils.KindAuthorization))

	_, err = svc.CreateFormation(ctx, Actor{}, ContentInput{Title: "Go avancé"})
	assert.True(t, utils.IsKind(err, utils.KindAuthentication))

	_, err = svc.CreateFormation(ctx, Actor{ID: formator.ID, Role: formator.Role}, ContentInput{Title: "Go avancé", IsPremium: true})
	appErr, ok := utils.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, utils.KindValidation, appErr.Kind)
	assert.Contains(t, appErr.Fields, "price")

	_, err = svc.CreateFormation(ctx, Actor{ID: formator.ID, Role: formator.Role}, ContentInput{Title: ""})
	appErr, ok = utils.AsAppError(err)
	require.True(t, ok)
	assert.Contains(t, appErr.Fields, "title")

	missing := 42
	_, err = svc.CreateFormation(ctx, Actor{ID: formator.ID, Role: formator.Role}, ContentInput{Title: "Go", CategoryID: &missing})
	assert.True(t, utils.IsKind(err, utils.KindValidation))

	f, err := svc.CreateFormation(ctx, Actor{ID: formator.ID, Role: formator.Role}, ContentInput{Title: "Go avancé", IsPremium: true, Price: 9.99})
	require.NoError(t, err)
	assert.Contains(t, f.Slug, "go-avance-")
	assert.Equal(t, formator.ID, f.AuthorID)
}

func TestGetFormationLockedUntilPurchase(t *testing.T) {
	repos := testutil.NewRepos(t)
	ctx := context.Background()
	author := testutil.User(t, repos, "author", model.RoleFormator)
	u := testutil.User(t, repos, "u", model.RoleNormal)
	svc := newContentService(repos, &fakeStorage{})

	f, err := svc.CreateFormation(ctx, Actor{ID: author.ID, Role: author.Role}, ContentInput{Title: "Premium", Content: "secret", IsPremium: true, Price: 9.99})
	require.NoError(t, err)
	v, err := svc.CreateVideo(ctx, Actor{ID: author.ID, Role: author.Role}, VideoInput{ContentInput: ContentInput{Title: "Intro"}, VideoURL: "https://cdn.example.com/v.mp4", Duration: 2})
	require.NoError(t, err)
	_, err = svc.AttachVideo(ctx, Actor{ID: author.ID, Role: author.Role}, f.Slug, AttachVideoInput{VideoID: v.ID, Order: 1})
	require.NoError(t, err)

	detail, err := svc.GetFormation(ctx, u.ID, f.Slug)
	require.NoError(t, err)
	assert.False(t, detail.CanAccess)
	assert.Empty(t, detail.Content)
	require.Len(t, detail.Videos, 1)
	assert.Empty(t, detail.Videos[0].Video.VideoURL)

	_, err = repos.Purchase.Create(ctx, &model.Purchase{UserID: u.ID, ItemID: f.ID, Type: model.TypeFormation, Price: 9.99})
	require.NoError(t, err)

	detail, err = svc.GetFormation(ctx, u.ID, f.Slug)
	require.NoError(t, err)
	assert.True(t, detail.CanAccess)
	assert.True(t, detail.HasPurchased)
	assert.Equal(t, "secret", detail.Content)
	assert.Equal(t, "https://cdn.example.com/v.mp4", detail.Videos[0].Video.VideoURL)
}

func TestListFormationsEnriched(t *testing.T) {
	repos := testutil.NewRepos(t)
	ctx := context.Background()
	author := testutil.User(t, repos, "author", model.RoleFormator)
	u := testutil.User(t, repos, "u", model.RoleNormal)
	f := testutil.Formation(t, repos, author.ID, true, 10)
	for i := 0; i < CatalogPageSize; i++ {
		testutil.Formation(t, repos, author.ID, false, 0)
	}
	require.NoError(t, repos.Rating.Upsert(ctx, &model.Rating{UserID: u.ID, FormationID: f.ID, Rating: 4}))
	_, err := repos.Purchase.Create(ctx, &model.Purchase{UserID: u.ID, ItemID: f.ID, Type: model.TypeFormation})
	require.NoError(t, err)

	svc := newContentService(repos, &fakeStorage{})
	list, err := svc.ListFormations(ctx, u.ID, 1)
	require.NoError(t, err)
	assert.Len(t, list.Items, CatalogPageSize)
	assert.EqualValues(t, CatalogPageSize+1, list.Pagination.Total)
	assert.Equal(t, 2, list.Pagination.Pages)
	assert.Equal(t, 15, list.Pagination.Limit)

	page2, err := svc.ListFormations(ctx, u.ID, 2)
	require.NoError(t, err)
	require.Len(t, page2.Items, 1)
	card := page2.Items[0]
	assert.Equal(t, f.ID, card.ID)
	assert.Equal(t, 4.0, card.AverageRating)
	assert.Equal(t, 1, card.TotalRatings)
	assert.True(t, card.HasPurchased)
	assert.True(t, card.CanAccess)
}

func TestDeleteFormationCascades(t *testing.T) {
	repos := testutil.NewRepos(t)
	ctx := context.Background()
	author := testutil.User(t, repos, "author", model.RoleFormator)
	other := testutil.User(t, repos, "other", model.RoleFormator)
	admin := testutil.User(t, repos, "admin", model.RoleAdmin)
	viewer := testutil.User(t, repos, "viewer", model.RoleNormal)
	store := &fakeStorage{failKeys: map[string]bool{"videos/v.mp4": true}}
	svc := newContentService(repos, store)

	a := Actor{ID: author.ID, Role: author.Role}
	f, err := svc.CreateFormation(ctx, a, ContentInput{Title: "Course", MediaKey: "covers/f.jpg", IsPremium: true, Price: 5})
	require.NoError(t, err)
	v, err := svc.CreateVideo(ctx, a, VideoInput{ContentInput: ContentInput{Title: "Lesson", MediaKey: "videos/v.mp4"}, Duration: 1})
	require.NoError(t, err)
	_, err = svc.AttachVideo(ctx, a, f.Slug, AttachVideoInput{VideoID: v.ID})
	require.NoError(t, err)
	_, err = repos.Purchase.Create(ctx, &model.Purchase{UserID: viewer.ID, ItemID: f.ID, Type: model.TypeFormation})
	require.NoError(t, err)
	require.NoError(t, repos.History.Upsert(ctx, &model.History{UserID: viewer.ID, ItemID: v.ID, Type: model.TypeVideo, Timestamp: 3, LastViewedAt: time.Now()}))

	_, err = svc.Delete(ctx, Actor{ID: other.ID, Role: other.Role}, model.TypeFormation, f.ID)
	assert.True(t, utils.IsKind(err, utils.KindAuthorization))

	_, err = svc.Delete(ctx, Actor{ID: admin.ID, Role: admin.Role}, model.TypeFormation, f.ID+100)
	assert.True(t, utils.IsKind(err, utils.KindNotFound))

	// 媒体删除失败不影响数据删除
	res, err := svc.Delete(ctx, Actor{ID: admin.ID, Role: admin.Role}, model.TypeFormation, f.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, res.MediaQueued)
	assert.Equal(t, 1, res.MediaDeleted)
	assert.Equal(t, []string{"covers/f.jpg"}, store.deleted)

	gone, err := repos.Formation.FindByID(ctx, f.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
	vgone, err := repos.Video.FindByID(ctx, v.ID)
	require.NoError(t, err)
	assert.Nil(t, vgone)
	owned, err := repos.Purchase.Exists(ctx, viewer.ID, f.ID, model.TypeFormation)
	require.NoError(t, err)
	assert.False(t, owned)

	pending, err := svc.cleanup.Pending(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, pending)

	// 存储恢复后由定时任务清理
	store.failKeys = nil
	report, err := svc.cleanup.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, CleanupReport{Deleted: 1}, report)
}

func TestMediaCleanupSkipsMissingFiles(t *testing.T) {
	repos := testutil.NewRepos(t)
	ctx := context.Background()
	_, err := repos.MediaTask.Enqueue(ctx, "videos/gone.mp4", "videos/here.mp4")
	require.NoError(t, err)

	store := &fakeStorage{missing: map[string]bool{"videos/gone.mp4": true}}
	report, err := NewMediaCleanupService(repos, store).Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, CleanupReport{Deleted: 1, Missing: 1}, report)
	assert.Equal(t, []string{"videos/here.mp4"}, store.deleted)

	pending, err := repos.MediaTask.CountPending(ctx, MaxCleanupAttempts)
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestCategories(t *testing.T) {
	utils.CacheClear()
	repos := testutil.NewRepos(t)
	ctx := context.Background()
	svc := newContentService(repos, &fakeStorage{})

	c, err := svc.CreateCategory(ctx, CategoryInput{Name: "Développement Web"})
	require.NoError(t, err)
	assert.Equal(t, "developpement-web", c.Slug)

	_, err = svc.CreateCategory(ctx, CategoryInput{Name: "développement web"})
	assert.True(t, utils.IsKind(err, utils.KindConflict))

	list, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	utils.CacheClear()
}

func TestGetParcoursOrdered(t *testing.T) {
	repos := testutil.NewRepos(t)
	ctx := context.Background()
	author := testutil.User(t, repos, "author", model.RoleFormator)
	svc := newContentService(repos, &fakeStorage{})
	a := Actor{ID: author.ID, Role: author.Role}

	p, err := svc.CreateParcours(ctx, a, ParcoursInput{Title: "Backend"})
	require.NoError(t, err)
	f1 := testutil.Formation(t, repos, author.ID, false, 0)
	f2 := testutil.Formation(t, repos, author.ID, false, 0)
	_, err = svc.AttachFormation(ctx, a, p.Slug, AttachFormationInput{FormationID: f2.ID, Order: 2})
	require.NoError(t, err)
	_, err = svc.AttachFormation(ctx, a, p.Slug, AttachFormationInput{FormationID: f1.ID, Order: 1})
	require.NoError(t, err)

	detail, err := svc.GetParcours(ctx, 0, p.Slug)
	require.NoError(t, err)
	require.Len(t, detail.Formations, 2)
	assert.Equal(t, f1.ID, detail.Formations[0].ID)
	assert.Equal(t, 1, detail.Formations[0].Order)
	assert.Equal(t, f2.ID, detail.Formations[1].ID)
}
