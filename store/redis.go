package store

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/zeu5/grid-rl-env/types"
)

const DefaultRedisPrefix = "gridrl"

// listClient is the part of the redis client the recorder uses
type listClient interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
	Close() error
}

// RedisRecorder pushes episode summaries onto the list
// <prefix>:<experiment>:episodes
type RedisRecorder struct {
	client listClient
	key    string
}

var _ types.Recorder = &RedisRecorder{}

func NewRedisRecorder(client listClient, prefix, experiment string) *RedisRecorder {
	return &RedisRecorder{
		client: client,
		key:    EpisodesKey(prefix, experiment),
	}
}

func EpisodesKey(prefix, experiment string) string {
	return prefix + ":" + experiment + ":episodes"
}

func (r *RedisRecorder) Key() string { return r.key }

func (r *RedisRecorder) Record(ctx context.Context, summary types.EpisodeSummary) error {
	bs, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	if err := r.client.RPush(ctx, r.key, bs).Err(); err != nil {
		return errors.Wrapf(err, "pushing to %s", r.key)
	}
	return nil
}

// Episodes reads back every recorded summary in order
func (r *RedisRecorder) Episodes(ctx context.Context) ([]types.EpisodeSummary, error) {
	raw, err := r.client.LRange(ctx, r.key, 0, -1).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", r.key)
	}
	out := make([]types.EpisodeSummary, 0, len(raw))
	for _, s := range raw {
		var summary types.EpisodeSummary
		if err := json.Unmarshal([]byte(s), &summary); err != nil {
			return nil, errors.Wrapf(err, "decoding %s", r.key)
		}
		out = append(out, summary)
	}
	return out, nil
}

func (r *RedisRecorder) Close() error {
	return r.client.Close()
}
