package types

import (
	"encoding/json"
	"fmt"
	"path"
	"strconv"

	"github.com/zeu5/grid-rl-env/util"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// EpisodeReturns collects the return of every episode
type EpisodeReturns struct {
	returns []float64
}

var _ Analyzer = &EpisodeReturns{}

func NewEpisodeReturns() *EpisodeReturns {
	return &EpisodeReturns{returns: make([]float64, 0)}
}

func (e *EpisodeReturns) Analyze(_, _, _ int, _ string, t *Trace) {
	e.returns = append(e.returns, t.Return())
}

func (e *EpisodeReturns) DataSet() DataSet {
	return append([]float64(nil), e.returns...)
}

func (e *EpisodeReturns) Reset() {
	e.returns = make([]float64, 0)
}

// EpisodeLengths collects the number of steps of every episode
type EpisodeLengths struct {
	lengths []int
}

var _ Analyzer = &EpisodeLengths{}

func NewEpisodeLengths() *EpisodeLengths {
	return &EpisodeLengths{lengths: make([]int, 0)}
}

func (e *EpisodeLengths) Analyze(_, _, _ int, _ string, t *Trace) {
	e.lengths = append(e.lengths, t.Len())
}

func (e *EpisodeLengths) DataSet() DataSet {
	return append([]int(nil), e.lengths...)
}

func (e *EpisodeLengths) Reset() {
	e.lengths = make([]int, 0)
}

// toFloats accepts the datasets of EpisodeReturns and EpisodeLengths
func toFloats(ds DataSet) []float64 {
	switch v := ds.(type) {
	case []float64:
		return v
	case []int:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out
	}
	return nil
}

// movingAverage smooths values over a trailing window
func movingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		from := i - window + 1
		if from < 0 {
			from = 0
		}
		out[i] = stat.Mean(values[from:i+1], nil)
	}
	return out
}

// LinePlotter draws one smoothed line per experiment and saves it under
// plotPath as <run>_<name>.png
func LinePlotter(plotPath, name, yLabel string, window int) Comparator {
	return func(run, _ int, names []string, ds []DataSet) {
		p := plot.New()
		p.Title.Text = "Comparison"
		p.X.Label.Text = "Episode"
		p.Y.Label.Text = yLabel
		for i := 0; i < len(names); i++ {
			values := movingAverage(toFloats(ds[i]), window)
			if len(values) == 0 {
				continue
			}
			points := make(plotter.XYs, len(values))
			for j, v := range values {
				points[j] = plotter.XY{X: float64(j), Y: v}
			}
			line, err := plotter.NewLine(points)
			if err != nil {
				continue
			}
			line.Color = plotutil.Color(i)
			p.Add(line)
			p.Legend.Add(names[i], line)
			fmt.Printf("Mean %s: %.3f for experiment: %s\n", name, stat.Mean(toFloats(ds[i]), nil), names[i])
		}
		util.EnsureDir(plotPath)
		p.Save(8*vg.Inch, 8*vg.Inch, path.Join(plotPath, strconv.Itoa(run)+"_"+name+".png"))
	}
}

func ReturnsPlotter(plotPath string) Comparator {
	return LinePlotter(plotPath, "returns", "Episode return", 10)
}

func LengthsPlotter(plotPath string) Comparator {
	return LinePlotter(plotPath, "lengths", "Episode length", 10)
}

// JSONComparator dumps the datasets of a run keyed by experiment name
func JSONComparator(savePath, name string) Comparator {
	return func(run, _ int, names []string, ds []DataSet) {
		out := make(map[string]DataSet, len(names))
		for i, n := range names {
			out[n] = ds[i]
		}
		bs, err := json.Marshal(out)
		if err != nil {
			return
		}
		util.WriteToFile(path.Join(savePath, strconv.Itoa(run)+"_"+name+".json"), string(bs))
	}
}
