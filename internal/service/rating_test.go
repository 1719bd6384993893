package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/knowledger/internal/model"
	"github.com/user/knowledger/internal/testutil"
	"github.com/user/knowledger/internal/utils"
)

func TestRateRecomputesAverage(t *testing.T) {
	repos := testutil.NewRepos(t)
	ctx := context.Background()
	author := testutil.User(t, repos, "author", model.RoleFormator)
	a := testutil.User(t, repos, "a", model.RoleNormal)
	b := testutil.User(t, repos, "b", model.RoleNormal)
	f := testutil.Formation(t, repos, author.ID, false, 0)
	svc := NewRatingService(repos)

	res, err := svc.Rate(ctx, a.ID, f.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, RatingResult{Rating: 4, Average: 4, Total: 1}, *res)

	res, err = svc.Rate(ctx, b.ID, f.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	assert.InDelta(t, 2.5, res.Average, 1e-9)

	// 同一用户重复评分不增加总数
	res, err = svc.Rate(ctx, a.ID, f.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	assert.InDelta(t, 3.0, res.Average, 1e-9)

	sum, err := svc.Summary(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, RatingSummary{Average: 3, Total: 2}, sum)

	mine, ok, err := svc.UserRating(ctx, a.ID, f.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 5, mine)
}

func TestRateValidation(t *testing.T) {
	repos := testutil.NewRepos(t)
	ctx := context.Background()
	u := testutil.User(t, repos, "u", model.RoleNormal)
	f := testutil.Formation(t, repos, u.ID, false, 0)
	svc := NewRatingService(repos)

	for _, bad := range []int{-1, 6} {
		_, err := svc.Rate(ctx, u.ID, f.ID, bad)
		assert.True(t, utils.IsKind(err, utils.KindValidation), bad)
	}
	_, err := svc.Rate(ctx, u.ID, f.ID+1000, 3)
	assert.True(t, utils.IsKind(err, utils.KindNotFound))
	_, err = svc.Rate(ctx, u.ID+1000, f.ID, 3)
	assert.True(t, utils.IsKind(err, utils.KindNotFound))

	res, err := svc.Rate(ctx, u.ID, f.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
}

func TestSummariesEmpty(t *testing.T) {
	repos := testutil.NewRepos(t)
	got, err := NewRatingService(repos).Summaries(context.Background(), []int{1, 2})
	require.NoError(t, err)
	assert.Equal(t, map[int]RatingSummary{1: {}, 2: {}}, got)
}
