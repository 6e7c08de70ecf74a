package store

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeu5/grid-rl-env/types"
)

func summary(ep int) types.EpisodeSummary {
	return types.EpisodeSummary{
		Experiment: "exp",
		Episode:    ep,
		Steps:      10 + ep,
		Return:     float64(ep) / 2,
		Truncated:  true,
		Duration:   time.Millisecond,
	}
}

func TestFileRecorder(t *testing.T) {
	p := path.Join(t.TempDir(), "nested", "episodes.jsonl")
	r, err := NewFileRecorder(p)
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, r.Record(ctx, summary(i)))
	}
	require.NoError(t, r.Close())
	assert.Error(t, r.Record(ctx, summary(4)))
	assert.NoError(t, r.Close())

	f, err := os.Open(p)
	require.NoError(t, err)
	defer f.Close()
	scanner := bufio.NewScanner(f)
	got := make([]types.EpisodeSummary, 0)
	for scanner.Scan() {
		var s types.EpisodeSummary
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &s))
		got = append(got, s)
	}
	require.Len(t, got, 3)
	assert.Equal(t, summary(2), got[2])
}

// fakeList keeps lists in memory
type fakeList struct {
	mu     sync.Mutex
	lists  map[string][]string
	err    error
	closed bool
}

func newFakeList() *fakeList {
	return &fakeList{lists: make(map[string][]string)}
}

func (f *fakeList) RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	for _, v := range values {
		f.lists[key] = append(f.lists[key], string(v.([]byte)))
	}
	return redis.NewIntResult(int64(len(f.lists[key])), nil)
}

func (f *fakeList) LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	return redis.NewStringSliceResult(append([]string(nil), f.lists[key]...), nil)
}

func (f *fakeList) Close() error {
	f.closed = true
	return nil
}

func TestRedisRecorder(t *testing.T) {
	client := newFakeList()
	r := NewRedisRecorder(client, DefaultRedisPrefix, "dqn")
	assert.Equal(t, "gridrl:dqn:episodes", r.Key())

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		require.NoError(t, r.Record(ctx, summary(i)))
	}
	got, err := r.Episodes(ctx)
	require.NoError(t, err)
	require.Len(t, got, 4)
	for i, s := range got {
		assert.Equal(t, summary(i), s)
	}

	client.err = errors.New("connection refused")
	err = r.Record(ctx, summary(5))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gridrl:dqn:episodes")

	require.NoError(t, r.Close())
	assert.True(t, client.closed)
}

func TestNewRecorder(t *testing.T) {
	p := path.Join(t.TempDir(), "out.jsonl")
	r, err := NewRecorder("file://"+p, "exp")
	require.NoError(t, err)
	fr, ok := r.(*FileRecorder)
	require.True(t, ok)
	assert.Equal(t, p, fr.Path())
	require.NoError(t, r.Close())

	r, err = NewRecorder(p, "exp")
	require.NoError(t, err)
	require.NoError(t, r.Close())

	r, err = NewRecorder("redis://127.0.0.1:6379/2?prefix=runs", "exp")
	require.NoError(t, err)
	rr, ok := r.(*RedisRecorder)
	require.True(t, ok)
	assert.Equal(t, "runs:exp:episodes", rr.Key())
	client, ok := rr.client.(*redis.Client)
	require.True(t, ok)
	assert.Equal(t, "127.0.0.1:6379", client.Options().Addr)
	assert.Equal(t, 2, client.Options().DB)
	require.NoError(t, r.Close())

	r, err = NewRecorder("redis://127.0.0.1:6379/0?prefix=runs&dial_timeout=3s", "exp")
	require.NoError(t, err)
	rr = r.(*RedisRecorder)
	assert.Equal(t, "runs:exp:episodes", rr.Key())
	assert.Equal(t, 3*time.Second, rr.client.(*redis.Client).Options().DialTimeout)
	require.NoError(t, r.Close())

	_, err = NewRecorder("redis://127.0.0.1:6379/0?unknown=1", "exp")
	assert.Error(t, err)

	_, err = NewRecorder("s3://bucket/key", "exp")
	assert.ErrorIs(t, err, ErrUnsupportedScheme)
}
