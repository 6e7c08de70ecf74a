package grid

import (
	"math"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
)

// SandboxOptions tune the synthetic backend
type SandboxOptions struct {
	// relative standard deviation of the noise added to every flow
	Noise float64 `mapstructure:"noise"`
	// multiplies every flow, >1 stresses the grid
	LoadScale float64 `mapstructure:"load_scale"`
}

func DefaultSandboxOptions() SandboxOptions {
	return SandboxOptions{
		Noise:     0.01,
		LoadScale: 1.0,
	}
}

// SandboxBackend produces flows from the nominal flows of the description,
// scaled with the consumption and reshaped by topology, redispatch and line
// outages. It is meant for tests and demos, not for studying a real grid.
type SandboxBackend struct {
	opts SandboxOptions
	desc *Description

	lock *sync.Mutex
	rand *rand.Rand
}

var _ Backend = &SandboxBackend{}
var _ Seeder = &SandboxBackend{}

func NewSandboxBackend(opts SandboxOptions) *SandboxBackend {
	return &SandboxBackend{
		opts: opts,
		lock: new(sync.Mutex),
		rand: rand.New(rand.NewSource(0)),
	}
}

func (s *SandboxBackend) Load(desc *Description) error {
	if desc == nil {
		return errors.Wrap(ErrInvalidDescription, "nil description")
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	s.desc = desc
	return nil
}

func (s *SandboxBackend) Seed(seed uint64) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.rand.Seed(seed)
	return nil
}

func (s *SandboxBackend) Close() error {
	return nil
}

func (s *SandboxBackend) Apply(in *BackendInput) (*BackendState, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	d := s.desc
	if d == nil {
		return nil, ErrBackendNotLoaded
	}
	if len(in.LoadP) != d.NLoad() || len(in.GenP) != d.NGen() || len(in.LineStatus) != d.NLine() ||
		len(in.TopoVect) != d.DimTopo() || len(in.StoragePower) != d.NStorage() {
		return nil, errors.New("backend input does not match the loaded grid")
	}

	state := &BackendState{
		POr: make([]float64, d.NLine()),
		PEx: make([]float64, d.NLine()),
		AOr: make([]float64, d.NLine()),
		Rho: make([]float64, d.NLine()),
	}

	for i := range d.Loads {
		if in.TopoVect[d.LoadPos(i)] < 1 {
			state.Diverged = true
			state.Reason = "load " + d.Loads[i].Name + " is disconnected"
			return state, nil
		}
	}

	offline := 0
	for _, st := range in.LineStatus {
		if !st {
			offline++
		}
	}
	if offline > d.NLine()/2 {
		state.Diverged = true
		state.Reason = "too many lines disconnected"
		return state, nil
	}

	total := 0.0
	for _, p := range in.LoadP {
		total += p
	}
	for _, p := range in.StoragePower {
		total += p
	}
	ratio := total / d.NominalLoad() * s.opts.LoadScale

	// lines connected at each substation
	subLines := make([][]int, d.NSub)
	for l, line := range d.Lines {
		if !in.LineStatus[l] {
			continue
		}
		subLines[line.Or] = append(subLines[line.Or], l)
		subLines[line.Ex] = append(subLines[line.Ex], l)
	}

	flows := make([]float64, d.NLine())
	for l, line := range d.Lines {
		if in.LineStatus[l] {
			flows[l] = line.BaseFlow * ratio
		}
	}

	// flows of lines out of service spread over their neighbours
	for l, line := range d.Lines {
		if in.LineStatus[l] {
			continue
		}
		neighbours := make([]int, 0)
		neighbours = append(neighbours, subLines[line.Or]...)
		neighbours = append(neighbours, subLines[line.Ex]...)
		if len(subLines[line.Or]) == 0 || len(subLines[line.Ex]) == 0 {
			state.Diverged = true
			state.Reason = "substation isolated after disconnecting line " + line.Name
			return state, nil
		}
		share := line.BaseFlow * ratio / float64(len(neighbours))
		for _, n := range neighbours {
			flows[n] += share
		}
	}

	// bus splits push flow away from the lines moved to bus 2
	for sub := 0; sub < d.NSub; sub++ {
		split := false
		for _, p := range d.SubElements(sub) {
			if in.TopoVect[p] == 2 {
				split = true
				break
			}
		}
		if !split {
			continue
		}
		for _, p := range d.SubElements(sub) {
			el := d.ElementAt(p)
			if !el.IsLine() || !in.LineStatus[el.Index] {
				continue
			}
			if in.TopoVect[p] == 2 {
				flows[el.Index] *= 0.8
			} else {
				flows[el.Index] *= 1.15
			}
		}
	}

	// generators away from their merit share load the lines around them
	pmaxTotal := 0.0
	for _, g := range d.Gens {
		pmaxTotal += g.PMax
	}
	for g, gen := range d.Gens {
		if pmaxTotal == 0 || len(subLines[gen.Sub]) == 0 {
			continue
		}
		delta := in.GenP[g] - gen.PMax/pmaxTotal*total
		for _, l := range subLines[gen.Sub] {
			flows[l] += 0.2 * delta / float64(len(subLines[gen.Sub]))
		}
	}
	for i, st := range d.Storages {
		if len(subLines[st.Sub]) == 0 {
			continue
		}
		for _, l := range subLines[st.Sub] {
			flows[l] += 0.5 * in.StoragePower[i] / float64(len(subLines[st.Sub]))
		}
	}

	for l, line := range d.Lines {
		if !in.LineStatus[l] {
			continue
		}
		f := flows[l]
		if s.opts.Noise > 0 {
			f *= 1 + s.opts.Noise*s.rand.NormFloat64()
		}
		state.POr[l] = f
		state.PEx[l] = -0.99 * f
		state.AOr[l] = math.Abs(f) * AmpsPerMW
		state.Rho[l] = math.Abs(f) / line.Capacity
	}
	return state, nil
}
