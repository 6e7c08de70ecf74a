package grid

import (
	"math"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
)

const (
	// a line above its limit for more steps than this is disconnected
	NbTimestepOverflowAllowed = 2
	// a line above this ratio is disconnected at once
	HardOverflowThreshold = 2.0

	maxCascadeDepth = 5
)

// ResetOptions select how the next episode starts
type ResetOptions struct {
	// scenario to play, the next one in order when nil
	TimeSerieID *int `mapstructure:"time_serie_id" json:"time_serie_id,omitempty"`
	// shortens the episode when positive
	MaxStep int `mapstructure:"max_step" json:"max_step,omitempty"`
	// skips the first steps of the scenario
	InitTS int `mapstructure:"init_ts" json:"init_ts,omitempty"`
}

// StepInfo reports what happened during a step besides the observation
type StepInfo struct {
	// level of the cascade that disconnected each line, -1 if it was not
	DiscLines            []int    `json:"disc_lines"`
	IsIllegal            bool     `json:"is_illegal"`
	IsAmbiguous          bool     `json:"is_ambiguous"`
	IsDispatchingIllegal bool     `json:"is_dispatching_illegal"`
	Exception            []string `json:"exception,omitempty"`
}

// HasError reports whether the step ended in a game over
func (i StepInfo) HasError() bool {
	return len(i.Exception) > 0
}

type Option func(*Environment)

func WithBackend(b Backend) Option {
	return func(e *Environment) { e.backend = b }
}

// WithTest plays the short test scenarios
func WithTest(test bool) Option {
	return func(e *Environment) { e.test = test }
}

func WithReward(r Reward) Option {
	return func(e *Environment) { e.reward = r }
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Environment) {
		if l != nil {
			e.logger = l
		}
	}
}

// Environment plays scenarios on a grid. It is not safe for concurrent use.
type Environment struct {
	desc     *Description
	obsSpace *ObservationSpace
	actSpace *ActionSpace
	backend  Backend
	reward   Reward
	logger   *zap.Logger
	test     bool
	rand     *rand.Rand

	nextChronic int
	chronics    *chronics
	maxStep     int

	// episode state
	isReset          bool
	done             bool
	step             int
	lineStatus       []bool
	topo             []int
	timestepOverflow []int
	targetDispatch   []float64
	actualDispatch   []float64
	curtailLimit     []float64
	storageCharge    []float64
	storagePower     []float64
	current          *Observation
}

// Make builds the environment of the named grid
func Make(name string, opts ...Option) (*Environment, error) {
	desc, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	e := &Environment{
		desc:     desc,
		obsSpace: NewObservationSpace(desc),
		actSpace: NewActionSpace(desc),
		logger:   zap.NewNop(),
		rand:     rand.New(rand.NewSource(0)),
	}
	for _, o := range opts {
		o(e)
	}
	if e.backend == nil {
		e.backend = NewSandboxBackend(DefaultSandboxOptions())
	}
	if e.reward == nil {
		e.reward = &ShapedReward{}
	}
	if err := e.backend.Load(desc); err != nil {
		return nil, errors.Wrapf(err, "loading grid %q in the backend", name)
	}
	e.reward.Initialize(e)
	e.logger = e.logger.With(zap.String("env", name))
	e.logger.Debug("environment created", zap.Bool("test", e.test), zap.Int("n_line", desc.NLine()))
	return e, nil
}

func (e *Environment) Name() string                        { return e.desc.Name }
func (e *Environment) Description() *Description           { return e.desc }
func (e *Environment) ObservationSpace() *ObservationSpace { return e.obsSpace }
func (e *Environment) ActionSpace() *ActionSpace           { return e.actSpace }
func (e *Environment) Reward() Reward                      { return e.reward }
func (e *Environment) MaxStep() int                        { return e.maxStep }
func (e *Environment) CurrentStep() int                    { return e.step }
func (e *Environment) Done() bool                          { return e.done }

// CurrentObservation is the last observation, nil before the first reset
func (e *Environment) CurrentObservation() *Observation {
	return e.current
}

func (e *Environment) Close() error {
	return e.backend.Close()
}

// Reset starts a new episode. A nil seed keeps the current random state.
func (e *Environment) Reset(seed *int64, opts ResetOptions) (*Observation, error) {
	id := e.nextChronic
	if opts.TimeSerieID != nil {
		id = *opts.TimeSerieID
	}
	if id < 0 {
		return nil, errors.Errorf("invalid time serie id %d", id)
	}
	id = id % nbChronics

	maxStep := defaultMaxStep
	if e.test {
		maxStep = testMaxStep
	}
	if opts.MaxStep > 0 && opts.MaxStep < maxStep {
		maxStep = opts.MaxStep
	}
	if opts.InitTS < 0 || opts.InitTS >= maxStep {
		return nil, errors.Errorf("init_ts %d outside of [0, %d)", opts.InitTS, maxStep)
	}

	// options are validated before any state changes
	if seed != nil {
		e.rand.Seed(uint64(*seed))
		if s, ok := e.backend.(Seeder); ok {
			if err := s.Seed(uint64(*seed)); err != nil {
				return nil, errors.Wrap(err, "seeding backend")
			}
		}
	}
	e.nextChronic = (id + 1) % nbChronics
	e.maxStep = maxStep
	e.chronics = newChronics(e.desc, id, e.maxStep)

	d := e.desc
	e.step = opts.InitTS
	e.done = false
	e.lineStatus = make([]bool, d.NLine())
	e.topo = make([]int, d.DimTopo())
	e.timestepOverflow = make([]int, d.NLine())
	e.targetDispatch = make([]float64, d.NGen())
	e.actualDispatch = make([]float64, d.NGen())
	e.curtailLimit = make([]float64, d.NGen())
	e.storageCharge = make([]float64, d.NStorage())
	e.storagePower = make([]float64, d.NStorage())
	for l := range e.lineStatus {
		e.lineStatus[l] = true
	}
	for p := range e.topo {
		e.topo[p] = 1
	}
	for g := range e.curtailLimit {
		e.curtailLimit[g] = 1
	}
	for i, st := range d.Storages {
		e.storageCharge[i] = st.EMax / 2
	}
	for l := range e.lineStatus {
		if e.chronics.inMaintenance(l, e.step) {
			e.disconnect(l)
		}
	}

	state, injections, err := e.solve()
	if err != nil {
		return nil, errors.Wrap(err, "initial state")
	}
	if state.Diverged {
		return nil, errors.Errorf("initial state diverged: %s", state.Reason)
	}
	e.current = e.observe(state, injections)
	e.isReset = true
	e.logger.Debug("environment reset",
		zap.Int("time_serie_id", id),
		zap.Int("max_step", e.maxStep),
		zap.Int("init_ts", opts.InitTS))
	return e.current.Copy(), nil
}

// Step plays action for one time step. Game overs do not return an error:
// they end the episode and are listed in StepInfo.Exception.
func (e *Environment) Step(action *Action) (*Observation, float64, bool, StepInfo, error) {
	info := StepInfo{DiscLines: make([]int, e.desc.NLine())}
	for l := range info.DiscLines {
		info.DiscLines[l] = -1
	}
	if !e.isReset {
		return nil, 0, false, info, ErrNotReset
	}
	if e.done {
		return nil, 0, true, info, ErrEpisodeDone
	}

	if err := e.actSpace.Check(action); err != nil {
		e.logger.Debug("ambiguous action replaced by do nothing", zap.Error(err))
		info.IsAmbiguous = true
		action = e.actSpace.DoNothing()
	} else if reason := e.illegal(action); reason != "" {
		e.logger.Debug("illegal action replaced by do nothing", zap.String("reason", reason))
		info.IsIllegal = true
		action = e.actSpace.DoNothing()
	}

	info.IsDispatchingIllegal = !e.applyDispatch(action)
	e.applyTopology(action)
	e.applyCurtailment(action)
	e.applyStorage(action)

	e.step++
	for l := range e.lineStatus {
		if e.chronics.inMaintenance(l, e.step) && e.lineStatus[l] {
			e.disconnect(l)
		}
	}

	hasError := false
	state, injections, err := e.solve()
	if err != nil {
		info.Exception = append(info.Exception, err.Error())
		hasError = true
	} else {
		for level := 0; level < maxCascadeDepth && !state.Diverged; level++ {
			tripped := e.protections(state)
			if len(tripped) == 0 {
				break
			}
			for _, l := range tripped {
				info.DiscLines[l] = level
			}
			e.logger.Debug("lines disconnected by protections",
				zap.Ints("lines", tripped), zap.Int("level", level), zap.Int("step", e.step))
			state, injections, err = e.solve()
			if err != nil {
				info.Exception = append(info.Exception, err.Error())
				hasError = true
				break
			}
		}
		if !hasError && state.Diverged {
			info.Exception = append(info.Exception, "game over: "+state.Reason)
			hasError = true
		}
	}

	if !hasError {
		e.current = e.observe(state, injections)
	}
	e.done = hasError || e.step >= e.maxStep
	reward := e.reward.Compute(action, e, hasError, e.done, info.IsIllegal, info.IsAmbiguous)
	if e.done {
		e.logger.Debug("episode over",
			zap.Int("step", e.step),
			zap.String("exception", strings.Join(info.Exception, "; ")))
	}
	return e.current.Copy(), reward, e.done, info, nil
}

// illegal returns why an action cannot be played now, "" when it can
func (e *Environment) illegal(a *Action) string {
	d := e.desc
	for l := range e.lineStatus {
		reconnects := a.SetLineStatus[l] == 1 ||
			(a.ChangeLineStatus[l] && !e.lineStatus[l]) ||
			(!e.lineStatus[l] && (a.SetBus[d.LineOrPos(l)] > 0 || a.SetBus[d.LineExPos(l)] > 0))
		if reconnects && e.chronics.inMaintenance(l, e.step) {
			return "line " + d.Lines[l].Name + " is in maintenance"
		}
	}
	return ""
}

func (e *Environment) disconnect(l int) {
	e.lineStatus[l] = false
	e.topo[e.desc.LineOrPos(l)] = -1
	e.topo[e.desc.LineExPos(l)] = -1
	e.timestepOverflow[l] = 0
}

// reconnect puts line l back in service, ends without an explicit bus keep
// their current one or go to bus 1
func (e *Environment) reconnect(l, busOr, busEx int) {
	or, ex := e.desc.LineOrPos(l), e.desc.LineExPos(l)
	if busOr <= 0 {
		busOr = max(e.topo[or], 1)
	}
	if busEx <= 0 {
		busEx = max(e.topo[ex], 1)
	}
	e.lineStatus[l] = true
	e.topo[or] = busOr
	e.topo[ex] = busEx
}

func (e *Environment) applyTopology(a *Action) {
	d := e.desc
	for l := range e.lineStatus {
		or, ex := d.LineOrPos(l), d.LineExPos(l)
		switch {
		case a.SetLineStatus[l] == -1 || a.SetBus[or] == -1 || a.SetBus[ex] == -1:
			e.disconnect(l)
		case a.SetLineStatus[l] == 1:
			e.reconnect(l, a.SetBus[or], a.SetBus[ex])
		case a.ChangeLineStatus[l]:
			if e.lineStatus[l] {
				e.disconnect(l)
			} else {
				e.reconnect(l, a.SetBus[or], a.SetBus[ex])
			}
		case !e.lineStatus[l] && (a.SetBus[or] > 0 || a.SetBus[ex] > 0):
			e.reconnect(l, a.SetBus[or], a.SetBus[ex])
		}
	}
	for p, bus := range a.SetBus {
		if bus == 0 {
			continue
		}
		if d.ElementAt(p).IsLine() {
			if e.lineStatus[d.ElementAt(p).Index] && bus > 0 {
				e.topo[p] = bus
			}
			continue
		}
		e.topo[p] = bus
	}
	for p, change := range a.ChangeBus {
		if !change {
			continue
		}
		switch e.topo[p] {
		case 1:
			e.topo[p] = 2
		case 2:
			e.topo[p] = 1
		}
	}
}

// applyDispatch updates targets and returns false when the redispatch
// could not be honoured
func (e *Environment) applyDispatch(a *Action) bool {
	legal := true
	for g, r := range a.Redispatch {
		if r == 0 {
			continue
		}
		gen := e.desc.Gens[g]
		target := e.targetDispatch[g] + r
		if math.Abs(target) > gen.PMax {
			legal = false
			continue
		}
		e.targetDispatch[g] = target
	}
	for g, gen := range e.desc.Gens {
		diff := e.targetDispatch[g] - e.actualDispatch[g]
		e.actualDispatch[g] += math.Max(-gen.RampDown, math.Min(gen.RampUp, diff))
	}
	return legal
}

func (e *Environment) applyCurtailment(a *Action) {
	for g, c := range a.Curtail {
		if c != -1 {
			e.curtailLimit[g] = c
		}
	}
}

func (e *Environment) applyStorage(a *Action) {
	hours := StepDuration.Hours()
	for i, st := range e.desc.Storages {
		p := math.Max(-st.MaxProduce, math.Min(st.MaxAbsorb, a.SetStorage[i]))
		charge := math.Max(0, math.Min(st.EMax, e.storageCharge[i]+p*hours))
		e.storagePower[i] = (charge - e.storageCharge[i]) / hours
		e.storageCharge[i] = charge
	}
}

// protections disconnects overloaded lines and returns them
func (e *Environment) protections(state *BackendState) []int {
	tripped := make([]int, 0)
	for l, rho := range state.Rho {
		if !e.lineStatus[l] {
			continue
		}
		switch {
		case rho > HardOverflowThreshold:
			tripped = append(tripped, l)
		case rho > 1:
			e.timestepOverflow[l]++
			if e.timestepOverflow[l] > NbTimestepOverflowAllowed {
				tripped = append(tripped, l)
			}
		default:
			e.timestepOverflow[l] = 0
		}
	}
	for _, l := range tripped {
		e.disconnect(l)
	}
	return tripped
}

type injections struct {
	loadP       []float64
	genP        []float64
	beforeCurt  []float64
	curtailedMW []float64
}

// solve computes injections for the current step and runs the backend
func (e *Environment) solve() (*BackendState, *injections, error) {
	d := e.desc
	inj := &injections{
		loadP:       append([]float64(nil), e.chronics.loadP[e.step]...),
		genP:        make([]float64, d.NGen()),
		beforeCurt:  make([]float64, d.NGen()),
		curtailedMW: make([]float64, d.NGen()),
	}

	demand := 0.0
	for _, p := range inj.loadP {
		demand += p
	}
	for _, p := range e.storagePower {
		demand += p
	}

	thermalPMax := 0.0
	slack := -1
	for g, gen := range d.Gens {
		if gen.Renewable {
			avail := e.chronics.renewable[e.step][g]
			produced := math.Min(avail, e.curtailLimit[g]*gen.PMax)
			inj.beforeCurt[g] = avail
			inj.curtailedMW[g] = avail - produced
			inj.genP[g] = produced
			demand -= produced
			continue
		}
		thermalPMax += gen.PMax
		if slack == -1 || gen.PMax > d.Gens[slack].PMax {
			slack = g
		}
	}

	produced := 0.0
	for g, gen := range d.Gens {
		if gen.Renewable || thermalPMax == 0 {
			continue
		}
		p := demand*gen.PMax/thermalPMax + e.actualDispatch[g]
		inj.genP[g] = math.Max(0, math.Min(gen.PMax, p))
		inj.beforeCurt[g] = inj.genP[g]
		produced += inj.genP[g]
	}
	if slack >= 0 {
		balanced := inj.genP[slack] + demand - produced
		inj.genP[slack] = math.Max(0, math.Min(d.Gens[slack].PMax, balanced))
		inj.beforeCurt[slack] = inj.genP[slack]
	}

	state, err := e.backend.Apply(&BackendInput{
		Step:         e.step,
		LoadP:        inj.loadP,
		GenP:         inj.genP,
		StoragePower: append([]float64(nil), e.storagePower...),
		LineStatus:   append([]bool(nil), e.lineStatus...),
		TopoVect:     append([]int(nil), e.topo...),
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, "backend")
	}
	return state, inj, nil
}

func (e *Environment) observe(state *BackendState, inj *injections) *Observation {
	d := e.desc
	ts := e.chronics.timeAt(e.step)
	weekday := (int(ts.Weekday()) + 6) % 7

	obs := &Observation{
		Year:                    ts.Year(),
		Month:                   int(ts.Month()),
		Day:                     ts.Day(),
		HourOfDay:               ts.Hour(),
		MinuteOfHour:            ts.Minute(),
		DayOfWeek:               weekday,
		GenP:                    inj.genP,
		LoadP:                   inj.loadP,
		POr:                     state.POr,
		PEx:                     state.PEx,
		AOr:                     state.AOr,
		Rho:                     state.Rho,
		LineStatus:              append([]bool(nil), e.lineStatus...),
		TimestepOverflow:        append([]int(nil), e.timestepOverflow...),
		TopoVect:                append([]int(nil), e.topo...),
		TimeNextMaintenance:     make([]int, d.NLine()),
		DurationNextMaintenance: make([]int, d.NLine()),
		TimeSinceLastAttack:     make([]int, d.NLine()),
		TargetDispatch:          append([]float64(nil), e.targetDispatch...),
		ActualDispatch:          append([]float64(nil), e.actualDispatch...),
		Curtailment:             make([]float64, d.NGen()),
		CurtailmentLimit:        append([]float64(nil), e.curtailLimit...),
		CurtailmentMW:           inj.curtailedMW,
		GenPBeforeCurtail:       inj.beforeCurt,
		StorageCharge:           append([]float64(nil), e.storageCharge...),
		StoragePower:            append([]float64(nil), e.storagePower...),
		ThermalLimit:            make([]float64, d.NLine()),
		CurrentStep:             e.step,
		MaxStep:                 e.maxStep,
	}
	for l, line := range d.Lines {
		obs.TimeNextMaintenance[l], obs.DurationNextMaintenance[l] = e.chronics.nextMaintenance(l, e.step)
		obs.TimeSinceLastAttack[l] = -1
		obs.ThermalLimit[l] = line.Capacity * AmpsPerMW
	}
	for g, gen := range d.Gens {
		if gen.PMax > 0 {
			obs.Curtailment[g] = inj.curtailedMW[g] / gen.PMax
		}
	}
	return obs
}

// TimeSerieID is the scenario played by the current episode, -1 before reset
func (e *Environment) TimeSerieID() int {
	if e.chronics == nil {
		return -1
	}
	return e.chronics.id
}
