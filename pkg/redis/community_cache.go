package redis

import (
	"encoding/json"
	"fmt"

	"social-system/internal/model"
)

// 社区缓存相关常量
const (
	CommunitySummaryKeyPrefix = "social:community:" // 社区摘要缓存key前缀
)

func communityKey(id uint) string {
	return fmt.Sprintf("%s%d", CommunitySummaryKeyPrefix, id)
}

// CacheCommunitySummaries 批量缓存社区摘要
func CacheCommunitySummaries(summaries []model.CommunitySummary) error {
	if client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}
	if len(summaries) == 0 {
		return nil
	}

	// 使用Pipeline批量写入
	pipe := client.Pipeline()
	for _, s := range summaries {
		data, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("序列化社区摘要失败: %w", err)
		}
		pipe.Set(ctx, communityKey(s.ID), data, CommunityCacheTTL)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("缓存社区摘要失败: %w", err)
	}

	return nil
}

// GetCachedCommunitySummaries 批量读取社区摘要
// 返回命中的摘要和未命中的ID，未命中的需回源数据库
func GetCachedCommunitySummaries(ids []uint) (map[uint]model.CommunitySummary, []uint, error) {
	if client == nil {
		return nil, ids, fmt.Errorf("redis客户端未初始化")
	}
	if len(ids) == 0 {
		return map[uint]model.CommunitySummary{}, nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = communityKey(id)
	}

	values, err := client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, ids, fmt.Errorf("获取社区摘要缓存失败: %w", err)
	}

	hits := make(map[uint]model.CommunitySummary, len(ids))
	var missing []uint
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			missing = append(missing, ids[i])
			continue
		}
		var s model.CommunitySummary
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			missing = append(missing, ids[i]) // 跳过无法解析的缓存
			continue
		}
		hits[ids[i]] = s
	}

	return hits, missing, nil
}

// InvalidateCommunity 社区信息变更后清除缓存
func InvalidateCommunity(id uint) error {
	if client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}
	return client.Del(ctx, communityKey(id)).Err()
}
