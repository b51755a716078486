package cache

import (
	"context"
	"fmt"
	"time"

	"ocflprobe/pkg/core"
	"ocflprobe/pkg/storage"
	"ocflprobe/pkg/types"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// CachedStore 是一个装饰器，它为底层的 storage.Backend 添加 Redis 存在性缓存
// 只缓存 "对象存在" 这一事实，Blob 数据和引用 (HEAD) 都直接透传
type CachedStore struct {
	storage.Backend // 被装饰的底层存储 (如 S3)

	client *redis.Client
	ttl    time.Duration
	log    logrus.FieldLogger
}

type Config struct {
	RedisURL string        // 标准连接字符串: redis://<user>:<password>@<host>:<port>/<db>
	TTL      time.Duration // 过期时间
}

func NewCachedStore(backend storage.Backend, cfg Config, log logrus.FieldLogger) (*CachedStore, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	// Fail-fast 连接检查
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &CachedStore{
		Backend: backend,
		client:  client,
		ttl:     cfg.TTL,
		log:     log,
	}, nil
}

// Scope 返回同样带缓存的子命名空间
func (s *CachedStore) Scope(root string) storage.Backend {
	return &CachedStore{
		Backend: s.Backend.Scope(root),
		client:  s.client,
		ttl:     s.ttl,
		log:     s.log,
	}
}

// cacheKey 内容寻址只在同一个对象根目录内成立，所以 Key 里要带上位置
func (s *CachedStore) cacheKey(hash types.Hash) string {
	return "ocflprobe:obj:" + s.Backend.Location() + ":" + string(hash)
}

// Has 优先查 Redis
func (s *CachedStore) Has(ctx context.Context, hash types.Hash) (bool, error) {
	key := s.cacheKey(hash)

	val, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		// 缓存故障降级：Redis 挂了就直接查底层存储
		s.log.WithError(err).Warn("redis exists failed, falling back to backend")
	} else if val > 0 {
		return true, nil
	}

	found, err := s.Backend.Has(ctx, hash)
	if err != nil {
		return false, err
	}

	if found {
		if err := s.client.Set(ctx, key, "1", s.ttl).Err(); err != nil {
			s.log.WithError(err).Debug("redis cache fill failed")
		}
	}
	return found, nil
}

// Put 利用 Has 的缓存能力进行预检
func (s *CachedStore) Put(ctx context.Context, obj core.Object) error {
	exists, err := s.Has(ctx, obj.ID())
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	if err := s.Backend.Put(ctx, obj); err != nil {
		return err
	}

	// 只有底层上传成功了，才写 Redis
	if err := s.client.Set(ctx, s.cacheKey(obj.ID()), "1", s.ttl).Err(); err != nil {
		s.log.WithError(err).Debug("redis cache fill failed")
	}
	return nil
}

// Close 释放 Redis 连接
func (s *CachedStore) Close() error {
	return s.client.Close()
}
