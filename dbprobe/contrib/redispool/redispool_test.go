package redispool

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/BigKAA/dbprobe/dbprobe"
)

func TestFromClient(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), DB: 0})
	defer func() { _ = client.Close() }()

	opt, ep := FromClient("sessions", client)
	if ep.Host != mr.Host() || ep.Port != mr.Port() {
		t.Errorf("endpoint address = %s:%s, expected %s", ep.Host, ep.Port, mr.Addr())
	}
	if ep.Database != "0" {
		t.Errorf("Database = %q, expected 0", ep.Database)
	}

	r := dbprobe.New(opt).Check(context.Background(), ep)
	if !r.Success {
		t.Fatalf("expected success, got %s: %s", r.ErrorKind, r.Message)
	}
	if r.Name != "sessions" {
		t.Errorf("Name = %q", r.Name)
	}
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Errorf("client should stay open after the probe: %v", err)
	}
}

func TestFromClient_UnsplittableAddr(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "cache.local"})
	defer func() { _ = client.Close() }()

	_, ep := FromClient("cache", client)
	if ep.Host != "cache.local" || ep.Port != "6379" {
		t.Errorf("endpoint = %s:%s, expected cache.local:6379", ep.Host, ep.Port)
	}
}
