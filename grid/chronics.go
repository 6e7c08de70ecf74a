package grid

import (
	"hash/fnv"
	"math"
	"time"

	"golang.org/x/exp/rand"
)

const (
	StepDuration   = 5 * time.Minute
	StepsPerDay    = 288
	testMaxStep    = StepsPerDay
	defaultMaxStep = 28 * StepsPerDay
	nbChronics     = 52

	maintenanceDuration = 12
)

// first chronic starts on a Monday
var chronicsOrigin = time.Date(2019, time.January, 7, 0, 0, 0, 0, time.UTC)

type maintenanceWindow struct {
	Line     int
	Start    int
	Duration int
}

// chronics hold the time series of one scenario. They only depend on the
// grid and the scenario id, never on the seed of the episode.
type chronics struct {
	id          int
	start       time.Time
	loadP       [][]float64
	renewable   [][]float64
	maintenance []maintenanceWindow
}

func chronicsSeed(name string, id int) uint64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return h.Sum64() ^ uint64(id+1)*0x9e3779b97f4a7c15
}

func newChronics(desc *Description, id, maxStep int) *chronics {
	r := rand.New(rand.NewSource(chronicsSeed(desc.Name, id)))
	c := &chronics{
		id:        id,
		start:     chronicsOrigin.Add(time.Duration(id) * 7 * 24 * time.Hour),
		loadP:     make([][]float64, maxStep+1),
		renewable: make([][]float64, maxStep+1),
	}
	windPhase := r.Float64() * 2 * math.Pi
	for t := 0; t <= maxStep; t++ {
		ts := c.timeAt(t)
		hour := float64(ts.Hour()) + float64(ts.Minute())/60
		daily := 1 + 0.2*math.Sin(2*math.Pi*(hour-8)/24)
		weekly := 1.0
		if ts.Weekday() == time.Saturday || ts.Weekday() == time.Sunday {
			weekly = 0.9
		}
		loads := make([]float64, desc.NLoad())
		for i, l := range desc.Loads {
			loads[i] = l.BaseP * daily * weekly * (1 + 0.02*r.NormFloat64())
		}
		c.loadP[t] = loads

		solar := math.Max(0, math.Sin(math.Pi*(hour-6)/12))
		avail := make([]float64, desc.NGen())
		for g, gen := range desc.Gens {
			if !gen.Renewable {
				continue
			}
			wind := 0.5 + 0.3*math.Sin(2*math.Pi*float64(t)/(3*StepsPerDay)+windPhase+float64(g))
			ratio := math.Min(math.Max(0.6*solar+0.3*wind+0.05*r.NormFloat64(), 0), 1)
			avail[g] = gen.PMax * ratio
		}
		c.renewable[t] = avail
	}

	// lines whose outage would isolate a substation are never maintained
	degree := make([]int, desc.NSub)
	for _, l := range desc.Lines {
		degree[l.Or]++
		degree[l.Ex]++
	}
	candidates := make([]int, 0)
	for i, l := range desc.Lines {
		if degree[l.Or] > 1 && degree[l.Ex] > 1 {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) > 0 && maxStep > 4*maintenanceDuration && r.Float64() < 0.5 {
		c.maintenance = append(c.maintenance, maintenanceWindow{
			Line:     candidates[r.Intn(len(candidates))],
			Start:    2*maintenanceDuration + r.Intn(maxStep-4*maintenanceDuration),
			Duration: maintenanceDuration,
		})
	}
	return c
}

func (c *chronics) timeAt(step int) time.Time {
	return c.start.Add(time.Duration(step) * StepDuration)
}

// inMaintenance reports whether line is under maintenance at step
func (c *chronics) inMaintenance(line, step int) bool {
	for _, m := range c.maintenance {
		if m.Line == line && step >= m.Start && step < m.Start+m.Duration {
			return true
		}
	}
	return false
}

// nextMaintenance returns the steps until the next maintenance of line (0
// while in maintenance, -1 if none is planned) and its remaining duration
func (c *chronics) nextMaintenance(line, step int) (int, int) {
	next, duration := -1, 0
	for _, m := range c.maintenance {
		if m.Line != line {
			continue
		}
		switch {
		case step >= m.Start && step < m.Start+m.Duration:
			return 0, m.Start + m.Duration - step
		case step < m.Start && (next == -1 || m.Start-step < next):
			next, duration = m.Start-step, m.Duration
		}
	}
	return next, duration
}
