package envshim

import (
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"github.com/zeu5/grid-rl-env/grid"
	"github.com/zeu5/grid-rl-env/gymcompat"
)

const (
	ActDiscrete      = "discrete"
	ActBox           = "box"
	ActMultiDiscrete = "multi_discrete"
)

var ErrUnsupportedActType = errors.New("unsupported act_type")

var DefaultObsAttrToKeep = []string{"rho", "p_or", "gen_p", "load_p"}

// DefaultActAttrToKeep holds the action attributes used when the
// configuration does not name any, per act_type
var DefaultActAttrToKeep = map[string][]string{
	ActDiscrete:      {"set_line_status_simple", "set_bus"},
	ActBox:           {"redispatch", "set_storage", "curtail"},
	ActMultiDiscrete: {"one_sub_set", "one_line_set"},
}

// Config is read once when the shim is built
type Config struct {
	BackendCls     string         `mapstructure:"backend_cls" json:"backend_cls" yaml:"backend_cls"`
	BackendOptions map[string]any `mapstructure:"backend_options" json:"backend_options" yaml:"backend_options"`
	EnvName        string         `mapstructure:"env_name" json:"env_name" yaml:"env_name"`
	EnvIsTest      bool           `mapstructure:"env_is_test" json:"env_is_test" yaml:"env_is_test"`
	ObsAttrToKeep  []string       `mapstructure:"obs_attr_to_keep" json:"obs_attr_to_keep" yaml:"obs_attr_to_keep"`
	ActType        string         `mapstructure:"act_type" json:"act_type" yaml:"act_type"`
	ActAttrToKeep  []string       `mapstructure:"act_attr_to_keep" json:"act_attr_to_keep" yaml:"act_attr_to_keep"`
	Reward         string         `mapstructure:"reward" json:"reward" yaml:"reward"`
	NbBins         int            `mapstructure:"nb_bins" json:"nb_bins" yaml:"nb_bins"`
	// used for the first reset when the caller gives no seed
	Seed *int64 `mapstructure:"seed" json:"seed,omitempty" yaml:"seed,omitempty"`
}

func DefaultConfig() Config {
	return Config{
		BackendCls:     grid.BackendSandbox,
		BackendOptions: map[string]any{},
		EnvName:        grid.Case14Name,
		EnvIsTest:      false,
		ObsAttrToKeep:  append([]string(nil), DefaultObsAttrToKeep...),
		ActType:        ActDiscrete,
		Reward:         "shaped",
		NbBins:         gymcompat.DefaultNbBins,
	}
}

// ParseConfig applies the mapping on top of the defaults. Unknown keys
// and unsupported act types are rejected.
func ParseConfig(raw map[string]any) (Config, error) {
	cfg := DefaultConfig()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		ZeroFields:       true,
		Result:           &cfg,
	})
	if err != nil {
		return cfg, err
	}
	if err := dec.Decode(raw); err != nil {
		return cfg, errors.Wrap(err, "env config")
	}
	defaults, ok := DefaultActAttrToKeep[cfg.ActType]
	if !ok {
		return cfg, errors.Wrapf(ErrUnsupportedActType, "%q", cfg.ActType)
	}
	if len(cfg.ActAttrToKeep) == 0 {
		cfg.ActAttrToKeep = append([]string(nil), defaults...)
	}
	if cfg.BackendOptions == nil {
		cfg.BackendOptions = map[string]any{}
	}
	return cfg, nil
}

// Map is the inverse of ParseConfig
func (c Config) Map() map[string]any {
	m := map[string]any{
		"backend_cls":      c.BackendCls,
		"backend_options":  c.BackendOptions,
		"env_name":         c.EnvName,
		"env_is_test":      c.EnvIsTest,
		"obs_attr_to_keep": c.ObsAttrToKeep,
		"act_type":         c.ActType,
		"act_attr_to_keep": c.ActAttrToKeep,
		"reward":           c.Reward,
		"nb_bins":          c.NbBins,
	}
	if c.Seed != nil {
		m["seed"] = *c.Seed
	}
	return m
}
