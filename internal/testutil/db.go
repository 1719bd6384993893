// Package testutil 测试辅助：内存数据库与样例数据
package testutil

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/user/knowledger/internal/model"
	"github.com/user/knowledger/internal/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB 创建迁移好的内存 SQLite 数据库
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// 内存库只在单个连接内可见
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, repository.Migrate(db))
	return db
}

// NewRepos 创建基于内存库的仓库集合
func NewRepos(t *testing.T) *repository.Repositories {
	t.Helper()
	return repository.NewRepositories(NewDB(t))
}

// User 创建测试用户
func User(t *testing.T, repos *repository.Repositories, name string, role model.Role) *model.User {
	t.Helper()
	u, err := repos.User.Create(context.Background(), name+"@example.com", name, "password123", role)
	require.NoError(t, err)
	return u
}

// Formation 创建测试课程
func Formation(t *testing.T, repos *repository.Repositories, authorID int, premium bool, price float64) *model.Formation {
	t.Helper()
	f := &model.Formation{
		Slug:      "formation-" + uuid.NewString(),
		Title:     "Formation",
		IsPremium: premium,
		Price:     price,
		AuthorID:  authorID,
	}
	require.NoError(t, repos.Formation.Create(context.Background(), f))
	return f
}

// Video 创建测试视频，duration 单位为分钟
func Video(t *testing.T, repos *repository.Repositories, authorID int, duration float64) *model.Video {
	t.Helper()
	v := &model.Video{
		Slug:     "video-" + uuid.NewString(),
		Title:    "Video",
		Duration: duration,
		AuthorID: authorID,
	}
	require.NoError(t, repos.Video.Create(context.Background(), v))
	return v
}

// Attach 把视频加入课程
func Attach(t *testing.T, repos *repository.Repositories, formationID, videoID, order int) {
	t.Helper()
	require.NoError(t, repos.Formation.AttachVideo(context.Background(), &model.VideoFormation{
		FormationID: formationID,
		VideoID:     videoID,
		Order:       order,
	}))
}
