package redis

import (
	"context"
	"fmt"
	"time"

	"social-system/config"

	"github.com/redis/go-redis/v9"
)

var (
	client *redis.Client
	ctx    = context.Background()
)

// 缓存配置（从配置文件获取）
var (
	CommunityCacheTTL = 10 * time.Minute // 社区摘要缓存TTL
	UnreadCountTTL    = 24 * time.Hour   // 未读通知计数TTL
)

// InitRedis 初始化Redis连接
func InitRedis(cfg config.RedisConfig) error {
	c := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		// 连接池配置
		PoolSize:     10,              // 连接池大小
		MinIdleConns: 5,               // 最小空闲连接
		MaxRetries:   3,               // 最大重试次数
		DialTimeout:  5 * time.Second, // 连接超时
		ReadTimeout:  3 * time.Second, // 读超时
		WriteTimeout: 3 * time.Second, // 写超时
	})

	// 测试连接
	if _, err := c.Ping(ctx).Result(); err != nil {
		_ = c.Close()
		return fmt.Errorf("redis连接失败: %w", err)
	}

	if cfg.CommunityTTL > 0 {
		CommunityCacheTTL = cfg.CommunityTTL
	}
	if cfg.UnreadCountTTL > 0 {
		UnreadCountTTL = cfg.UnreadCountTTL
	}

	client = c
	return nil
}

// SetClient 替换全局客户端（测试中接入 miniredis，传 nil 表示禁用）
func SetClient(c *redis.Client) {
	client = c
}

// Enabled Redis是否可用，不可用时调用方走降级路径
func Enabled() bool {
	return client != nil
}

// Close 关闭Redis连接
func Close() error {
	if client != nil {
		err := client.Close()
		client = nil
		return err
	}
	return nil
}

// HealthCheck 检查Redis健康状态
func HealthCheck() error {
	if client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}

	_, err := client.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("redis连接异常: %w", err)
	}

	return nil
}
