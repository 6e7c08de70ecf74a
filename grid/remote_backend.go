package grid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// RemoteOptions point the remote backend at a simulation service
type RemoteOptions struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

func DefaultRemoteOptions() RemoteOptions {
	return RemoteOptions{
		URL:     "http://127.0.0.1:7070",
		Timeout: 5 * time.Second,
	}
}

// RemoteBackend delegates flow computation to a simulation service speaking
// JSON over HTTP: POST /load, /apply and /seed.
type RemoteBackend struct {
	opts   RemoteOptions
	client *http.Client
}

var _ Backend = &RemoteBackend{}
var _ Seeder = &RemoteBackend{}

func NewRemoteBackend(opts RemoteOptions) (*RemoteBackend, error) {
	if opts.URL == "" {
		return nil, errors.New("remote backend requires an url")
	}
	return &RemoteBackend{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
	}, nil
}

func (r *RemoteBackend) post(path string, in, out any) error {
	bs, err := json.Marshal(in)
	if err != nil {
		return errors.Wrap(err, "encoding request")
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.opts.Timeout)
	defer cancel()

	url := strings.TrimRight(r.opts.URL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bs))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "calling %s", url)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "reading response")
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("simulation service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if out == nil {
		return nil
	}
	return errors.Wrap(json.Unmarshal(body, out), "decoding response")
}

func (r *RemoteBackend) Load(desc *Description) error {
	return r.post("/load", desc, nil)
}

func (r *RemoteBackend) Apply(in *BackendInput) (*BackendState, error) {
	state := &BackendState{}
	if err := r.post("/apply", in, state); err != nil {
		return nil, err
	}
	return state, nil
}

func (r *RemoteBackend) Seed(seed uint64) error {
	return r.post("/seed", map[string]uint64{"seed": seed}, nil)
}

func (r *RemoteBackend) Close() error {
	r.client.CloseIdleConnections()
	return nil
}
