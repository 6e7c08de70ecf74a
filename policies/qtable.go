package policies

import (
	"encoding/json"
	"math"
	"os"

	"github.com/zeu5/grid-rl-env/util"
)

// QTable maps a state key and an action key to a value
type QTable struct {
	table map[string]map[string]float64
}

func NewQTable() *QTable {
	return &QTable{
		table: make(map[string]map[string]float64),
	}
}

// Get returns the value of (state, action), storing def when absent
func (q *QTable) Get(state, action string, def float64) float64 {
	if _, ok := q.table[state]; !ok {
		q.table[state] = make(map[string]float64)
	}
	if _, ok := q.table[state][action]; !ok {
		q.table[state][action] = def
	}
	return q.table[state][action]
}

func (q *QTable) Set(state, action string, val float64) {
	if _, ok := q.table[state]; !ok {
		q.table[state] = make(map[string]float64)
	}
	q.table[state][action] = val
}

func (q *QTable) HasState(state string) bool {
	_, ok := q.table[state]
	return ok
}

// Max returns the best known action of state, def when nothing is known
func (q *QTable) Max(state string, def float64) (string, float64) {
	maxAction := ""
	maxVal := math.Inf(-1)
	for a, val := range q.table[state] {
		if val > maxVal {
			maxAction = a
			maxVal = val
		}
	}
	if maxAction == "" {
		return "", def
	}
	return maxAction, maxVal
}

// MaxAmong returns the best of the given actions, storing def for the
// unknown ones. Ties go to the first action.
func (q *QTable) MaxAmong(state string, actions []string, def float64) (string, float64) {
	maxAction := ""
	maxVal := math.Inf(-1)
	for _, a := range actions {
		val := q.Get(state, a, def)
		if val > maxVal {
			maxAction = a
			maxVal = val
		}
	}
	return maxAction, maxVal
}

func (q *QTable) Len() int {
	return len(q.table)
}

// Record dumps the table as JSON
func (q *QTable) Record(path string) error {
	bs, err := json.Marshal(q.table)
	if err != nil {
		return err
	}
	return util.WriteToFile(path, string(bs))
}

// GetAll returns a copy of the values known for state
func (q *QTable) GetAll(state string) (map[string]float64, bool) {
	values, ok := q.table[state]
	if !ok {
		return nil, false
	}
	out := make(map[string]float64, len(values))
	for a, v := range values {
		out[a] = v
	}
	return out, true
}

// Read replaces the table with the one recorded at path
func (q *QTable) Read(path string) error {
	bs, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	table := make(map[string]map[string]float64)
	if err := json.Unmarshal(bs, &table); err != nil {
		return err
	}
	q.table = table
	return nil
}
