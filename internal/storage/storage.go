// Package storage 媒体文件存储（本地或 S3 兼容对象存储）
package storage

import (
	"context"
	"fmt"

	"github.com/user/knowledger/internal/config"
)

// Storage 远程媒体存储，删除不存在的文件视为成功
type Storage interface {
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// New 根据配置创建存储实现
func New(cfg config.StorageConfig) (Storage, error) {
	switch cfg.Type {
	case "s3", "r2":
		return NewS3Storage(cfg)
	case "local", "":
		return NewLocalStorage(cfg.BasePath)
	default:
		return nil, fmt.Errorf("不支持的存储类型: %s", cfg.Type)
	}
}
