// Package redis implements store.Store backed by Redis. Records are encoded
// with msgpack. Receipts and events are ordered through Sorted Sets, each
// event name also feeds a Stream that subscribers scan, and workflow
// histories are Hashes keyed by USN so HSETNX rejects duplicate archives.
//
// The caller owns the Redis client lifecycle; the store never closes it:
//
//	client := goredis.NewClient(&goredis.Options{Addr: "localhost:6379"})
//	s := redis.New(client)
//	if err := s.Ping(ctx); err != nil { ... }
package redis
