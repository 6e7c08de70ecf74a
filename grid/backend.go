package grid

import (
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
)

// AmpsPerMW converts an active power flow to a current on the 138kV level
// every synthetic grid is expressed in.
const AmpsPerMW = 4.1837

// BackendInput is the state of the grid the backend has to solve for
type BackendInput struct {
	Step         int       `json:"step"`
	LoadP        []float64 `json:"load_p"`
	GenP         []float64 `json:"gen_p"`
	StoragePower []float64 `json:"storage_power"`
	LineStatus   []bool    `json:"line_status"`
	TopoVect     []int     `json:"topo_vect"`
}

// BackendState is what the backend computed. Diverged means the grid cannot
// be operated anymore, which ends the episode.
type BackendState struct {
	POr      []float64 `json:"p_or"`
	PEx      []float64 `json:"p_ex"`
	AOr      []float64 `json:"a_or"`
	Rho      []float64 `json:"rho"`
	Diverged bool      `json:"diverged"`
	Reason   string    `json:"reason,omitempty"`
}

// Backend computes flows for a grid. The environment treats it as a black
// box and never looks into how flows are obtained.
type Backend interface {
	Load(desc *Description) error
	Apply(in *BackendInput) (*BackendState, error)
	Close() error
}

// Seeder is implemented by backends with their own source of randomness
type Seeder interface {
	Seed(seed uint64) error
}

const (
	BackendSandbox = "sandbox"
	BackendRemote  = "remote"
)

// NewBackend creates the backend registered under cls with the given
// construction options
func NewBackend(cls string, options map[string]any) (Backend, error) {
	switch cls {
	case "", BackendSandbox:
		opts := DefaultSandboxOptions()
		if err := decodeOptions(options, &opts); err != nil {
			return nil, errors.Wrap(err, "sandbox backend options")
		}
		return NewSandboxBackend(opts), nil
	case BackendRemote:
		opts := DefaultRemoteOptions()
		if err := decodeOptions(options, &opts); err != nil {
			return nil, errors.Wrap(err, "remote backend options")
		}
		return NewRemoteBackend(opts)
	}
	return nil, errors.Wrapf(ErrUnknownBackend, "%q", cls)
}

func decodeOptions(options map[string]any, out any) error {
	if len(options) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	return dec.Decode(options)
}
