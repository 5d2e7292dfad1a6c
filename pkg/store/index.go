package store

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Index remembers which digests are already stored so a backend round trip
// can be skipped. It is advisory: a missing entry only costs a lookup.
type Index interface {
	Has(ctx context.Context, d Digest) (bool, error)
	Add(ctx context.Context, d Digest, size int64) error
	Close() error
}

// RedisIndex keeps digests in the hash "<namespace>.fpcache", shared by every
// client writing to the same store.
type RedisIndex struct {
	rdb redis.UniversalClient
	key string
}

func NewRedisIndex(addr string, conf *Config) (*RedisIndex, error) {
	rdb, err := newUniversalRedisClient(addr, conf)
	if err != nil {
		return nil, err
	}
	return &RedisIndex{rdb: rdb, key: conf.Namespace + ".fpcache"}, nil
}

func (r *RedisIndex) Has(ctx context.Context, d Digest) (bool, error) {
	ok, err := r.rdb.HExists(ctx, r.key, d.String()).Result()
	if err != nil {
		return false, fmt.Errorf("failed to look up %s in %s: %w", d, r.key, err)
	}
	return ok, nil
}

// Add records d; an existing entry is left untouched.
func (r *RedisIndex) Add(ctx context.Context, d Digest, size int64) error {
	if err := r.rdb.HSetNX(ctx, r.key, d.String(), strconv.FormatInt(size, 10)).Err(); err != nil {
		return fmt.Errorf("failed to add %s to %s: %w", d, r.key, err)
	}
	return nil
}

// Scan calls fn for every digest in the index.
func (r *RedisIndex) Scan(ctx context.Context, fn func(Digest) error) error {
	iter := r.rdb.HScan(ctx, r.key, 0, "*", 1000).Iterator()
	field := true
	for iter.Next(ctx) {
		// HSCAN yields field, value, field, value...
		if field {
			d, err := ParseDigest(iter.Val())
			if err != nil {
				logger.Warnf("skipping bad entry in %s: %v", r.key, err)
			} else if err := fn(d); err != nil {
				return err
			}
		}
		field = !field
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan %s: %w", r.key, err)
	}
	return nil
}

func (r *RedisIndex) Close() error {
	return r.rdb.Close()
}

// redisOptions turns an address into client options. Supported forms are
// "host:port[/db]" for a single node, "h1:p1,h2:p2" for a cluster and
// "master,s1:p1,s2:p2" for sentinel. A password missing from the address is
// taken from REDIS_PASSWORD.
func redisOptions(addr string, conf *Config) (*redis.UniversalOptions, error) {
	u, err := url.Parse("redis://" + addr)
	if err != nil {
		return nil, fmt.Errorf("invalid redis address format: %w", err)
	}

	hosts := strings.Split(u.Host, ",")
	// ParseURL only understands a single host
	single := *u
	single.Host = hosts[len(hosts)-1]
	opt, err := redis.ParseURL(single.String())
	if err != nil {
		return nil, fmt.Errorf("could not parse redis URL: %w", err)
	}
	if opt.Password == "" {
		opt.Password = os.Getenv("REDIS_PASSWORD")
	}

	universalOptions := &redis.UniversalOptions{
		Addrs:        hosts,
		DB:           opt.DB,
		Password:     opt.Password,
		MaxRetries:   conf.Retries,
		PoolSize:     100,
		ReadTimeout:  conf.ReadTimeout,
		WriteTimeout: conf.WriteTimeout,
	}
	if universalOptions.MaxRetries == 0 {
		universalOptions.MaxRetries = -1 // disables retries
	}

	if len(hosts) > 1 && !strings.Contains(hosts[0], ":") {
		universalOptions.MasterName = hosts[0]
		universalOptions.Addrs = hosts[1:]
	}
	return universalOptions, nil
}

// newUniversalRedisClient connects to a single node, a cluster or a sentinel
// setup and pings it.
func newUniversalRedisClient(addr string, conf *Config) (redis.UniversalClient, error) {
	universalOptions, err := redisOptions(addr, conf)
	if err != nil {
		return nil, err
	}
	switch {
	case universalOptions.MasterName != "":
		logger.Infof("Connecting to Redis in Sentinel mode. Master: %s, Sentinels: %v", universalOptions.MasterName, universalOptions.Addrs)
	case len(universalOptions.Addrs) > 1:
		logger.Infof("Connecting to Redis in Cluster mode. Nodes: %v", universalOptions.Addrs)
	default:
		logger.Infof("Connecting to Redis in Single-node mode. Address: %s", universalOptions.Addrs[0])
	}

	rdb := redis.NewUniversalClient(universalOptions)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return rdb, nil
}
