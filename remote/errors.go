package remote

import (
	"net/http"

	"github.com/pkg/errors"
	"github.com/zeu5/grid-rl-env/envshim"
	"github.com/zeu5/grid-rl-env/grid"
	"github.com/zeu5/grid-rl-env/gymcompat"
)

var ErrUnknownSession = errors.New("unknown session")

// error codes carried in responses so clients can recover the sentinel
const (
	codeUnknownSession = "unknown_session"
	codeUnsupportedAct = "unsupported_act_type"
	codeUnknownEnv     = "unknown_environment"
	codeUnknownBackend = "unknown_backend"
	codeInvalidAction  = "invalid_action"
	codeNotReset       = "not_reset"
	codeEpisodeDone    = "episode_done"
	codeBadRequest     = "bad_request"
	codeInternal       = "internal"
)

var sentinels = map[string]error{
	codeUnknownSession: ErrUnknownSession,
	codeUnsupportedAct: envshim.ErrUnsupportedActType,
	codeUnknownEnv:     grid.ErrUnknownEnvironment,
	codeUnknownBackend: grid.ErrUnknownBackend,
	codeInvalidAction:  gymcompat.ErrInvalidAction,
	codeNotReset:       grid.ErrNotReset,
	codeEpisodeDone:    grid.ErrEpisodeDone,
}

// classify maps an error to its code and status
func classify(err error, fallback int) (string, int) {
	switch {
	case errors.Is(err, ErrUnknownSession):
		return codeUnknownSession, http.StatusNotFound
	case errors.Is(err, envshim.ErrUnsupportedActType):
		return codeUnsupportedAct, http.StatusBadRequest
	case errors.Is(err, grid.ErrUnknownEnvironment):
		return codeUnknownEnv, http.StatusBadRequest
	case errors.Is(err, grid.ErrUnknownBackend):
		return codeUnknownBackend, http.StatusBadRequest
	case errors.Is(err, gymcompat.ErrInvalidAction):
		return codeInvalidAction, http.StatusBadRequest
	case errors.Is(err, grid.ErrNotReset):
		return codeNotReset, http.StatusConflict
	case errors.Is(err, grid.ErrEpisodeDone):
		return codeEpisodeDone, http.StatusConflict
	}
	if fallback == http.StatusBadRequest {
		return codeBadRequest, fallback
	}
	return codeInternal, fallback
}

// errorResponse is the body of every failed request
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// RemoteError is returned by the client for failed requests. It unwraps to
// the matching sentinel when the server reported a known code.
type RemoteError struct {
	Status  int
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	return e.Message
}

func (e *RemoteError) Unwrap() error {
	return sentinels[e.Code]
}
