package remote

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
	"github.com/zeu5/grid-rl-env/envshim"
	"github.com/zeu5/grid-rl-env/gymcompat"
	"github.com/zeu5/grid-rl-env/types"
)

// Client is an environment session hosted by a Server
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration

	info     SessionInfo
	obsSpace gymcompat.Space
	actSpace gymcompat.Space
}

var _ types.Environment = &Client{}

// Dial opens a new session on the server at baseURL
func Dial(baseURL string, config map[string]any, timeout time.Duration) (*Client, error) {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		timeout: timeout,
	}
	if config == nil {
		config = map[string]any{}
	}
	info := SessionInfo{}
	if err := c.do(http.MethodPost, "/envs", CreateRequest{Config: config}, &info); err != nil {
		return nil, err
	}
	if err := c.setInfo(info); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// Attach reuses an existing session
func Attach(baseURL, id string, timeout time.Duration) (*Client, error) {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		timeout: timeout,
	}
	info := SessionInfo{}
	if err := c.do(http.MethodGet, "/envs/"+id, nil, &info); err != nil {
		return nil, err
	}
	if err := c.setInfo(info); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) setInfo(info SessionInfo) error {
	obs, err := info.ObservationSpace.Space()
	if err != nil {
		return errors.Wrap(err, "observation space")
	}
	act, err := info.ActionSpace.Space()
	if err != nil {
		return errors.Wrap(err, "action space")
	}
	c.info = info
	c.obsSpace = obs
	c.actSpace = act
	return nil
}

func (c *Client) do(method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		bs, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "encoding request")
		}
		body = bytes.NewReader(bs)
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "calling %s", url)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "reading response")
	}
	if resp.StatusCode >= 300 {
		e := errorResponse{}
		if json.Unmarshal(data, &e) != nil || e.Error == "" {
			e.Error = fmt.Sprintf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		}
		return &RemoteError{Status: resp.StatusCode, Code: e.Code, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	return errors.Wrap(json.Unmarshal(data, out), "decoding response")
}

func (c *Client) ID() string { return c.info.ID }

func (c *Client) Config() envshim.Config { return c.info.Config }

func (c *Client) ObservationSpace() gymcompat.Space { return c.obsSpace }

func (c *Client) ActionSpace() gymcompat.Space { return c.actSpace }

func (c *Client) NoopAction() []float64 {
	return append([]float64(nil), c.info.NoopAction...)
}

func (c *Client) Reset(seed *int64, options map[string]any) ([]float64, gymcompat.ResetInfo, error) {
	resp := ResetResponse{}
	if err := c.do(http.MethodPost, "/envs/"+c.info.ID+"/reset", ResetRequest{Seed: seed, Options: options}, &resp); err != nil {
		return nil, gymcompat.ResetInfo{}, err
	}
	return resp.Observation, resp.Info, nil
}

func (c *Client) Step(action []float64) (*gymcompat.StepResult, error) {
	res := &gymcompat.StepResult{}
	if err := c.do(http.MethodPost, "/envs/"+c.info.ID+"/step", StepRequest{Action: action}, res); err != nil {
		return nil, err
	}
	return res, nil
}

// Close ends the session on the server
func (c *Client) Close() error {
	err := c.do(http.MethodDelete, "/envs/"+c.info.ID, nil, nil)
	c.http.CloseIdleConnections()
	return err
}
