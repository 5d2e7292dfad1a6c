package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"github.com/zhengshuai-xiao/xbackup/pkg/store"
)

func expandFlags(compoundFlags ...[]cli.Flag) []cli.Flag {
	var flags []cli.Flag
	for _, flag := range compoundFlags {
		flags = append(flags, flag...)
	}
	return flags
}

// storeFlags describe where chunks live. Defaults come from store.NewConfig.
func storeFlags() []cli.Flag {
	def := store.NewConfig()
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "store",
			Value: def.Backend,
			Usage: fmt.Sprintf("chunk store backend ('%s', '%s' or '%s')", store.BackendPOSIX, store.BackendS3, store.BackendAWS),
		},
		&cli.StringFlag{
			Name:  "repo",
			Value: def.Path,
			Usage: "repository directory for the posix store",
		},
		&cli.StringFlag{
			Name:  "endpoint",
			Value: "127.0.0.1:9000",
			Usage: "S3 endpoint for the s3 and aws stores",
		},
		&cli.StringFlag{
			Name:    "access-key",
			Usage:   "S3 access key",
			EnvVars: []string{"XBACKUP_ACCESS_KEY"},
		},
		&cli.StringFlag{
			Name:    "secret-key",
			Usage:   "S3 secret key",
			EnvVars: []string{"XBACKUP_SECRET_KEY"},
		},
		&cli.StringFlag{
			Name:  "region",
			Value: def.Region,
			Usage: "S3 region",
		},
		&cli.StringFlag{
			Name:  "bucket",
			Value: def.Bucket,
			Usage: "bucket holding the chunks",
		},
		&cli.BoolFlag{
			Name:  "secure",
			Usage: "use https for the S3 endpoint",
		},
		&cli.StringFlag{
			Name:  "compression",
			Value: def.Compression,
			Usage: "compress chunks with the specified algorithm: none/zlib/snappy/zstd",
		},
		&cli.StringFlag{
			Name:    "redis-addr",
			Usage:   "shared fingerprint index, e.g. 127.0.0.1:6379/1 (password from REDIS_PASSWORD)",
			EnvVars: []string{"XBACKUP_REDIS_ADDR"},
		},
		&cli.StringFlag{
			Name:  "namespace",
			Value: def.Namespace,
			Usage: "prefix of the redis keys",
		},
		&cli.IntFlag{
			Name:  "cache-size",
			Value: def.CacheSize,
			Usage: "number of digests cached locally, 0 disables the cache",
		},
		&cli.IntFlag{
			Name:  "retries",
			Value: def.Retries,
			Usage: "retries for S3 and redis requests",
		},
		&cli.DurationFlag{
			Name:  "io-timeout",
			Value: def.ReadTimeout,
			Usage: "read timeout for redis",
		},
	}
}

func storeConfig(c *cli.Context) *store.Config {
	conf := store.NewConfig()
	conf.Backend = c.String("store")
	conf.Path = c.String("repo")
	conf.Endpoint = c.String("endpoint")
	conf.AccessKey = c.String("access-key")
	conf.SecretKey = c.String("secret-key")
	conf.Region = c.String("region")
	conf.Bucket = c.String("bucket")
	conf.Secure = c.Bool("secure")
	conf.Compression = c.String("compression")
	conf.RedisAddr = c.String("redis-addr")
	conf.Namespace = c.String("namespace")
	conf.CacheSize = c.Int("cache-size")
	conf.Retries = c.Int("retries")
	if d := c.Duration("io-timeout"); d > 0 {
		conf.ReadTimeout = d
	}
	return conf
}

func openStore(c *cli.Context) (store.ChunkStore, error) {
	conf := storeConfig(c)
	st, err := store.Open(c.Context, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", conf.Backend, err)
	}
	logger.Debugf("opened %s store", st.Name())
	return st, nil
}
