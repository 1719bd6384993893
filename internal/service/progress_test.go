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

func TestVideoPercent(t *testing.T) {
	tests := []struct {
		name      string
		timestamp float64
		duration  float64
		hasRow    bool
		want      float64
	}{
		{"无记录", 60, 2, false, 0},
		{"时长未知已开始", 5, 0, true, 100},
		{"时长未知未开始", 0, 0, true, 0},
		{"一半", 60, 2, true, 50},
		{"超出时长封顶", 500, 2, true, 100},
		{"刚开始", 0, 2, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, VideoPercent(tt.timestamp, tt.duration, tt.hasRow), 1e-9)
		})
	}
}

func TestVideoPercentMonotonic(t *testing.T) {
	prev := -1.0
	for ts := 0.0; ts <= 400; ts += 7 {
		p := VideoPercent(ts, 5, true)
		assert.GreaterOrEqual(t, p, prev)
		assert.LessOrEqual(t, p, 100.0)
		prev = p
	}
}

func TestFormationProgressAveragesVideos(t *testing.T) {
	repos := testutil.NewRepos(t)
	ctx := context.Background()
	author := testutil.User(t, repos, "author", model.RoleFormator)
	u := testutil.User(t, repos, "u", model.RoleNormal)
	f := testutil.Formation(t, repos, author.ID, false, 0)
	v1 := testutil.Video(t, repos, author.ID, 2) // 120 秒
	v2 := testutil.Video(t, repos, author.ID, 5) // 300 秒
	testutil.Attach(t, repos, f.ID, v2.ID, 2)
	testutil.Attach(t, repos, f.ID, v1.ID, 1)

	require.NoError(t, repos.History.Upsert(ctx, &model.History{UserID: u.ID, ItemID: v1.ID, Type: model.TypeVideo, Timestamp: 60, LastViewedAt: time.Now()}))

	svc := NewProgressService(repos)
	fp, err := svc.Formation(ctx, u.ID, f.ID)
	require.NoError(t, err)
	assert.InDelta(t, 25.0, fp.Percent, 1e-9)
	require.Len(t, fp.Videos, 2)
	assert.Equal(t, v1.ID, fp.Videos[0].VideoID)
	assert.InDelta(t, 50.0, fp.Videos[0].Percent, 1e-9)
	assert.Zero(t, fp.Videos[1].Percent)

	vp, err := svc.Video(ctx, u.ID, v1.ID)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, vp.Percent, 1e-9)
}

func TestFormationProgressEmpty(t *testing.T) {
	repos := testutil.NewRepos(t)
	author := testutil.User(t, repos, "author", model.RoleFormator)
	f := testutil.Formation(t, repos, author.ID, false, 0)

	fp, err := NewProgressService(repos).Formation(context.Background(), author.ID, f.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, fp.Percent)
	assert.Empty(t, fp.Videos)
}

func TestParcoursProgress(t *testing.T) {
	repos := testutil.NewRepos(t)
	ctx := context.Background()
	author := testutil.User(t, repos, "author", model.RoleFormator)
	u := testutil.User(t, repos, "u", model.RoleNormal)

	f1 := testutil.Formation(t, repos, author.ID, false, 0)
	f2 := testutil.Formation(t, repos, author.ID, false, 0)
	v := testutil.Video(t, repos, author.ID, 1)
	testutil.Attach(t, repos, f1.ID, v.ID, 1)

	p := &model.Parcours{Slug: "path", Title: "Path", AuthorID: author.ID}
	require.NoError(t, repos.Parcours.Create(ctx, p))
	require.NoError(t, repos.Parcours.AttachFormation(ctx, &model.FormationParcours{ParcoursID: p.ID, FormationID: f2.ID, Order: 2}))
	require.NoError(t, repos.Parcours.AttachFormation(ctx, &model.FormationParcours{ParcoursID: p.ID, FormationID: f1.ID, Order: 1}))

	require.NoError(t, repos.History.Upsert(ctx, &model.History{UserID: u.ID, ItemID: v.ID, Type: model.TypeVideo, Timestamp: 600, LastViewedAt: time.Now()}))

	pp, err := NewProgressService(repos).Parcours(ctx, u.ID, p.ID)
	require.NoError(t, err)
	require.Len(t, pp.Formations, 2)
	assert.Equal(t, f1.ID, pp.Formations[0].FormationID)
	assert.Equal(t, 100.0, pp.Formations[0].Percent)
	assert.Equal(t, 0.0, pp.Formations[1].Percent)
	assert.Equal(t, 50.0, pp.Percent)
}

func TestProgressNotFound(t *testing.T) {
	repos := testutil.NewRepos(t)
	svc := NewProgressService(repos)
	_, err := svc.Parcours(context.Background(), 1, 42)
	assert.True(t, utils.IsKind(err, utils.KindNotFound))
	_, err = svc.Video(context.Background(), 1, 42)
	assert.True(t, utils.IsKind(err, utils.KindNotFound))
}
