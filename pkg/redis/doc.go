// Package redis connects to Redis with go-redis/v9 and exposes a small
// namespaced byte store used for caching plan catalog lookups.
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	store := redis.NewStorage(client, cfg.KeyPrefix)
//
// Storage.Get reports a missing key with ErrCacheMiss. Healthcheck adapts a
// client to a readiness probe.
package redis
