package config

// This file builds the Redis client used for distributed rate limiting and
// HTTP response caching.  When Redis cannot be reached at startup the
// constructor returns nil and callers disable both features.

import (
    "context"
    "crypto/tls"
    "log"
    "time"

    "github.com/kelseyhightower/envconfig"
    "github.com/redis/go-redis/v9"
)

// RedisConfig is read from REDIS_* variables.  Addr wins over Host/Port when
// both are set.
type RedisConfig struct {
    Addr     string `envconfig:"ADDR"`
    Host     string `envconfig:"HOST"`
    Port     string `envconfig:"PORT"`
    Password string `envconfig:"PASSWORD"`
    DB       int    `envconfig:"DB" default:"0"`
    TLS      bool   `envconfig:"TLS" default:"false"`
}

// Address resolves the host:port pair to dial.
func (r RedisConfig) Address() string {
    if r.Addr != "" {
        return r.Addr
    }
    if r.Host != "" && r.Port != "" {
        return r.Host + ":" + r.Port
    }
    return "localhost:6379"
}

// LoadRedisConfig reads REDIS_* variables.
func LoadRedisConfig() RedisConfig {
    var rc RedisConfig
    if err := envconfig.Process("REDIS", &rc); err != nil {
        log.Printf("config: redis: %v", err)
    }
    return rc
}

// NewRedisClient connects to Redis and pings it with a short timeout.  The
// returned client is nil if the server is unreachable.
func NewRedisClient(rc RedisConfig) *redis.Client {
    var tlsConf *tls.Config
    if rc.TLS {
        tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
    }
    client := redis.NewClient(&redis.Options{
        Addr:      rc.Address(),
        Password:  rc.Password,
        DB:        rc.DB,
        TLSConfig: tlsConf,
    })
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        _ = client.Close()
        return nil
    }
    return client
}
