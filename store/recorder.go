package store

import (
	"net/url"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/zeu5/grid-rl-env/types"
)

var ErrUnsupportedScheme = errors.New("unsupported recorder scheme")

// NewRecorder builds a recorder from a URL: file:///path/episodes.jsonl
// or redis://host:port/db?prefix=name. The experiment name scopes redis keys.
func NewRecorder(rawURL, experiment string) (types.Recorder, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrapf(err, "recorder url %q", rawURL)
	}
	switch u.Scheme {
	case "file", "":
		p := u.Path
		if u.Host != "" {
			p = filepath.Join(u.Host, u.Path)
		}
		if p == "" {
			return nil, errors.Errorf("recorder url %q has no path", rawURL)
		}
		return NewFileRecorder(p)
	case "redis", "rediss":
		// prefix is ours, go-redis rejects query options it does not know
		q := u.Query()
		prefix := strings.Trim(q.Get("prefix"), ":")
		q.Del("prefix")
		u.RawQuery = q.Encode()
		opts, err := redis.ParseURL(u.String())
		if err != nil {
			return nil, errors.Wrapf(err, "recorder url %q", rawURL)
		}
		if prefix == "" {
			prefix = DefaultRedisPrefix
		}
		return NewRedisRecorder(redis.NewClient(opts), prefix, experiment), nil
	}
	return nil, errors.Wrapf(ErrUnsupportedScheme, "%q", u.Scheme)
}
