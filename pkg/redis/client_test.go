package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/garageworks/garage-backend/pkg/config"
)

func TestIncrWithTTLStartsWindowOnFirstHit(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}
	key := client.RateLimitKey("ip:login:10.0.0.1")

	for want := int64(1); want <= 3; want++ {
		count, err := client.IncrWithTTL(ctx, key, time.Minute)
		require.NoError(t, err)
		require.Equal(t, want, count)
	}
	require.Equal(t, []time.Duration{time.Minute}, mock.expiries[key])
}

func TestDeleteIfValueOnlyRemovesOwnValue(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newMockCmdable()}
	key := client.LockKey("cron-worker")

	ok, err := client.SetNX(ctx, key, "worker-a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = client.SetNX(ctx, key, "worker-b", time.Minute)
	require.NoError(t, err)
	require.False(t, ok)

	deleted, err := client.DeleteIfValue(ctx, key, "worker-b")
	require.NoError(t, err)
	require.False(t, deleted)
	owner, err := client.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, "worker-a", owner)

	deleted, err = client.DeleteIfValue(ctx, key, "worker-a")
	require.NoError(t, err)
	require.True(t, deleted)
	_, err = client.Get(ctx, key)
	require.ErrorIs(t, err, redis.Nil)
}

func TestSessionSetMembers(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}
	key := client.UserSessionsKey("3b0f6c1e-user")

	require.NoError(t, client.AddMember(ctx, key, "jti-1", time.Hour))
	require.NoError(t, client.AddMember(ctx, key, "jti-2", 2*time.Hour))
	members, err := client.Members(ctx, key)
	require.NoError(t, err)
	sort.Strings(members)
	require.Equal(t, []string{"jti-1", "jti-2"}, members)
	require.Equal(t, []time.Duration{time.Hour, 2 * time.Hour}, mock.expiries[key])

	require.NoError(t, client.RemoveMembers(ctx, key, "jti-1"))
	require.NoError(t, client.RemoveMembers(ctx, key))
	members, err = client.Members(ctx, key)
	require.NoError(t, err)
	require.Equal(t, []string{"jti-2"}, members)
}

func TestUninitializedClient(t *testing.T) {
	client := &Client{}
	ctx := context.Background()
	require.Error(t, client.Ping(ctx))
	_, err := client.DeleteIfValue(ctx, "k", "v")
	require.Error(t, err)
	_, err = client.Members(ctx, "k")
	require.Error(t, err)
	require.NoError(t, client.Close())
}

func TestOptionsFromConfig(t *testing.T) {
	_, err := optionsFromConfig(config.RedisConfig{})
	require.Error(t, err)

	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://localhost:6380/2", PoolSize: 7, DialTimeout: 3 * time.Second})
	require.NoError(t, err)
	require.Equal(t, "localhost:6380", opts.Addr)
	require.Equal(t, 2, opts.DB)
	require.Equal(t, 7, opts.PoolSize)
	require.Equal(t, 3*time.Second, opts.DialTimeout)

	opts, err = optionsFromConfig(config.RedisConfig{Address: "cache:6379", DB: 4})
	require.NoError(t, err)
	require.Equal(t, "cache:6379", opts.Addr)
	require.Equal(t, 4, opts.DB)
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	require.Equal(t, "garage:idempotency:services:abc", client.IdempotencyKey("services", "abc"))
	require.Equal(t, "garage:rate_limit:login", client.RateLimitKey("login"))
	require.Equal(t, "garage:session:access:jti-1", client.AccessSessionKey("jti-1"))
	require.Equal(t, "garage:session:user:u-1", client.UserSessionsKey("u-1"))
	require.Equal(t, "garage:lock", client.LockKey(" "))

	staging := &Client{namespace: "garage-staging"}
	require.Equal(t, "garage-staging:lock:cron-worker", staging.LockKey("cron-worker"))
}

type mockCmdable struct {
	data     map[string]string
	sets     map[string]map[string]struct{}
	counters map[string]int64
	expiries map[string][]time.Duration
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		data:     make(map[string]string),
		sets:     make(map[string]map[string]struct{}),
		counters: make(map[string]int64),
		expiries: make(map[string][]time.Duration),
	}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) SetNX(_ context.Context, key string, value any, _ time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Incr(_ context.Context, key string) *redis.IntCmd {
	m.counters[key]++
	return redis.NewIntResult(m.counters[key], nil)
}

func (m *mockCmdable) Expire(_ context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	m.expiries[key] = append(m.expiries[key], ttl)
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, key := range keys {
		if _, ok := m.data[key]; ok {
			n++
		}
		delete(m.data, key)
		delete(m.sets, key)
	}
	return redis.NewIntResult(n, nil)
}

func (m *mockCmdable) SAdd(_ context.Context, key string, members ...any) *redis.IntCmd {
	set, ok := m.sets[key]
	if !ok {
		set = make(map[string]struct{})
		m.sets[key] = set
	}
	for _, member := range members {
		set[fmt.Sprint(member)] = struct{}{}
	}
	return redis.NewIntResult(int64(len(members)), nil)
}

func (m *mockCmdable) SRem(_ context.Context, key string, members ...any) *redis.IntCmd {
	for _, member := range members {
		delete(m.sets[key], fmt.Sprint(member))
	}
	return redis.NewIntResult(int64(len(members)), nil)
}

func (m *mockCmdable) SMembers(_ context.Context, key string) *redis.StringSliceCmd {
	out := make([]string, 0, len(m.sets[key]))
	for member := range m.sets[key] {
		out = append(out, member)
	}
	return redis.NewStringSliceResult(out, nil)
}

// Eval understands only the compare-and-delete script.
func (m *mockCmdable) Eval(_ context.Context, script string, keys []string, args ...any) *redis.Cmd {
	if script != compareAndDeleteScript || len(keys) != 1 || len(args) != 1 {
		return redis.NewCmdResult(nil, errors.New("unexpected script"))
	}
	if m.data[keys[0]] != fmt.Sprint(args[0]) {
		return redis.NewCmdResult(int64(0), nil)
	}
	delete(m.data, keys[0])
	return redis.NewCmdResult(int64(1), nil)
}
