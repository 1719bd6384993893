package service

import (
	"context"
	"log"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/user/knowledger/internal/config"
)

const (
	SpecExpireSubscriptions = "0 0 * * * *"   // 每小时
	SpecDrainMedia          = "0 */5 * * * *" // 每 5 分钟
)

// NewRedsync 配置了 Redis 时创建分布式锁，否则返回 nil
func NewRedsync(cfg config.RedisConfig) (*redsync.Redsync, *redis.Client) {
	if cfg.Addr == "" {
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	return redsync.New(goredis.NewPool(rdb)), rdb
}

// Jobs 后台定时任务：补偿过期订阅、重试媒体清理
// 多实例部署时通过 redsync 保证同一任务只在一个实例上执行
type Jobs struct {
	cron    *cron.Cron
	rs      *redsync.Redsync
	subs    *SubscriptionService
	cleanup *MediaCleanupService
}

func NewJobs(subs *SubscriptionService, cleanup *MediaCleanupService, rs *redsync.Redsync) *Jobs {
	return &Jobs{
		cron:    cron.New(cron.WithSeconds()),
		rs:      rs,
		subs:    subs,
		cleanup: cleanup,
	}
}

// Start 注册并启动定时任务
func (j *Jobs) Start() error {
	if _, err := j.cron.AddFunc(SpecExpireSubscriptions, func() {
		j.run("expire-subscriptions", 5*time.Minute, j.ExpireSubscriptions)
	}); err != nil {
		return err
	}
	if _, err := j.cron.AddFunc(SpecDrainMedia, func() {
		j.run("drain-media", 4*time.Minute, j.DrainMedia)
	}); err != nil {
		return err
	}
	j.cron.Start()
	log.Println("[CRON] 定时任务已启动: 订阅过期检查（每小时）, 媒体清理（每 5 分钟）")
	return nil
}

// Stop 停止调度，返回的 ctx 在运行中的任务结束后完成
func (j *Jobs) Stop() context.Context {
	return j.cron.Stop()
}

// ExpireSubscriptions 处理过期订阅
func (j *Jobs) ExpireSubscriptions(ctx context.Context) error {
	n, err := j.subs.ExpireStale(ctx)
	if err != nil {
		return err
	}
	log.Printf("[CRON] 订阅过期检查完成，处理 %d 条", n)
	return nil
}

// DrainMedia 重试待删除的媒体文件
func (j *Jobs) DrainMedia(ctx context.Context) error {
	report, err := j.cleanup.Drain(ctx)
	if err != nil {
		return err
	}
	if report.Deleted > 0 || report.Failed > 0 {
		log.Printf("[CRON] 媒体清理完成: 删除 %d, 失败 %d", report.Deleted, report.Failed)
	}
	return nil
}

// run 带超时执行任务；配置了 Redis 时先获取锁，拿不到锁说明其他实例正在执行
func (j *Jobs) run(name string, timeout time.Duration, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if j.rs != nil {
		mutex := j.rs.NewMutex("knowledger:job:"+name,
			redsync.WithExpiry(timeout),
			redsync.WithTries(1),
		)
		if err := mutex.LockContext(ctx); err != nil {
			log.Printf("[CRON] %s 获取锁失败，可能正在其他实例执行: %v", name, err)
			return
		}
		defer func() {
			if _, err := mutex.UnlockContext(context.Background()); err != nil {
				log.Printf("[CRON] %s 释放锁失败: %v", name, err)
			}
		}()
	}

	if err := fn(ctx); err != nil {
		log.Printf("[CRON] %s 执行失败: %v", name, err)
	}
}
