package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/domain"
)

func scheduleCacheKey(fingerprint string, strategy string, seed int64) string {
	return fmt.Sprintf("schedule:%s:%s:%d", fingerprint, strategy, seed)
}

// getCachedGenotype 缓存只是加速手段，redis 出错时当作未命中
func (h *Handler) getCachedGenotype(ctx context.Context, key string) (domain.Genotype, bool) {
	if h.redisClient == nil {
		return nil, false
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(h.config.Redis.OperationExpiration)*time.Second)
	defer cancel()

	val, err := h.redisClient.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("读取排程缓存失败", "key", key, "error", err)
		}
		return nil, false
	}

	var genotype domain.Genotype
	if err := json.Unmarshal(val, &genotype); err != nil {
		slog.Warn("排程缓存内容无效", "key", key, "error", err)
		return nil, false
	}

	return genotype, true
}

func (h *Handler) cacheGenotype(ctx context.Context, key string, genotype domain.Genotype) {
	if h.redisClient == nil {
		return
	}

	val, err := json.Marshal(genotype)
	if err != nil {
		slog.Warn("序列化排程失败", "key", key, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(h.config.Redis.OperationExpiration)*time.Second)
	defer cancel()

	if err := h.redisClient.Set(ctx, key, val, time.Duration(h.config.Cache.TTL)*time.Second).Err(); err != nil {
		slog.Warn("写入排程缓存失败", "key", key, "error", err)
	}
}
