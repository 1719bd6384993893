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

func TestRecordProgressUpserts(t *testing.T) {
	repos := testutil.NewRepos(t)
	ctx := context.Background()
	u := testutil.User(t, repos, "u", model.RoleNormal)
	v := testutil.Video(t, repos, u.ID, 3)

	svc := NewHistoryService(repos)
	first := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return first }
	_, err := svc.RecordProgress(ctx, u.ID, v.ID, model.TypeVideo, 12)
	require.NoError(t, err)

	svc.now = func() time.Time { return first.Add(time.Minute) }
	h, err := svc.RecordProgress(ctx, u.ID, v.ID, model.TypeVideo, 48.5)
	require.NoError(t, err)
	assert.Equal(t, 48.5, h.Timestamp)
	assert.True(t, h.LastViewedAt.Equal(first.Add(time.Minute)))

	page, err := svc.List(ctx, u.ID, "", 1)
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.EqualValues(t, 1, page.Pagination.Total)
}

func TestRecordProgressValidation(t *testing.T) {
	repos := testutil.NewRepos(t)
	ctx := context.Background()
	u := testutil.User(t, repos, "u", model.RoleNormal)
	v := testutil.Video(t, repos, u.ID, 3)
	svc := NewHistoryService(repos)

	_, err := svc.RecordProgress(ctx, u.ID, v.ID, model.TypeArticle, 1)
	assert.True(t, utils.IsKind(err, utils.KindValidation))

	_, err = svc.RecordProgress(ctx, u.ID, v.ID, model.TypeVideo, -1)
	assert.True(t, utils.IsKind(err, utils.KindValidation))

	_, err = svc.RecordProgress(ctx, u.ID, 999, model.TypeVideo, 1)
	assert.True(t, utils.IsKind(err, utils.KindNotFound))
}

func TestHistoryDeleteAndClear(t *testing.T) {
	repos := testutil.NewRepos(t)
	ctx := context.Background()
	u := testutil.User(t, repos, "u", model.RoleNormal)
	v := testutil.Video(t, repos, u.ID, 3)
	f := testutil.Formation(t, repos, u.ID, false, 0)
	svc := NewHistoryService(repos)

	h, err := svc.RecordProgress(ctx, u.ID, v.ID, model.TypeVideo, 5)
	require.NoError(t, err)
	_, err = svc.RecordProgress(ctx, u.ID, f.ID, model.TypeFormation, 5)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, u.ID, h.ID))
	assert.True(t, utils.IsKind(svc.Delete(ctx, u.ID, h.ID), utils.KindNotFound))

	n, err := svc.Clear(ctx, u.ID, model.TypeFormation)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := svc.Get(ctx, u.ID, f.ID, model.TypeFormation)
	require.NoError(t, err)
	assert.Nil(t, got)
}
