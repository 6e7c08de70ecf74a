package explorer

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/zeu5/grid-rl-env/types"
)

func readLine(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Interact runs the main interactive loop until quit or end of input
func (e *Explorer) Interact(in io.Reader, out io.Writer) {
	fmt.Fprintf(out, "%s", e.header())
	reader := bufio.NewReader(in)
	for {
		fmt.Fprintf(out, "%s", e.prompt())

		optionS, err := readLine(reader)
		if err == io.EOF {
			return
		} else if err != nil {
			fmt.Fprintln(out, "Invalid input! Try again")
			continue
		}
		option, err := strconv.Atoi(optionS)
		if err != nil {
			fmt.Fprintln(out, "Invalid input! Try again")
			continue
		}
		fmt.Fprintln(out, "------------------------------------")
		switch option {
		case 1:
			fmt.Fprintf(out, "%s", e.getInitialStates())
		case 2:
			fmt.Fprintf(out, "Enter the state key: ")
			stateK, err := readLine(reader)
			if err != nil {
				return
			}
			fmt.Fprintf(out, "%s", e.getQValues(stateK))
		case 3:
			fmt.Fprintf(out, "Enter the state key: ")
			stateK, err := readLine(reader)
			if err != nil {
				return
			}
			fmt.Fprintf(out, "%s", e.getFullState(stateK))
		case 4:
			fmt.Fprintf(out, "Enter trace number (1-%d): ", len(e.Traces))
			traceNoS, err := readLine(reader)
			if err != nil {
				return
			}
			traceNo, err := strconv.Atoi(traceNoS)
			if err != nil {
				fmt.Fprintln(out, "Invalid input! Not a number. Try again")
				continue
			}
			if traceNo < 1 || traceNo > len(e.Traces) {
				fmt.Fprintf(out, "Invalid input! Should be between (1-%d). Try again\n", len(e.Traces))
				continue
			}
			if !e.interactTrace(traceNo-1, reader, out) {
				return
			}
		case 5:
			fmt.Fprintln(out, "Quitting! Thank you")
			return
		default:
			fmt.Fprintln(out, "Wrong choice! Try again!")
		}
	}
}

func formatVector(v []float64) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = strconv.FormatFloat(f, 'g', 5, 64)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func (e *Explorer) getFullState(stateKey string) string {
	obs, ok := e.StateMap[stateKey]
	if !ok {
		return "No such state\n"
	}
	return fmt.Sprintf("State Key: %s\nObservation (%d values):\n %s\n", stateKey, len(obs), formatVector(obs))
}

func (e *Explorer) getQValues(state string) string {
	values, ok := e.QTable.GetAll(state)
	if !ok {
		return "No such state in the q table\n"
	}
	if len(values) == 0 {
		return "No values in the q table for the corresponding state\n"
	}
	actions := make([]string, 0, len(values))
	for a := range values {
		actions = append(actions, a)
	}
	sort.Strings(actions)
	out := "Q values are:\n"
	for _, a := range actions {
		out += fmt.Sprintf("%s: %f\n", a, values[a])
	}
	return out
}

func (e *Explorer) getInitialStates() string {
	initialStates := make(map[string]int)
	for _, t := range e.Traces {
		if t.Len() == 0 {
			continue
		}
		initialStates[e.quantize(t.Steps[0].Obs)] += 1
	}
	keys := make([]string, 0, len(initialStates))
	for k := range initialStates {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := "Initial States are:\n"
	for _, k := range keys {
		out += fmt.Sprintf("%s: %d\n", k, initialStates[k])
	}
	return out
}

func (e *Explorer) header() string {
	return fmt.Sprintf(`
Welcome to the q table explorer!
%d states in the q table, %d traces
`, e.QTable.Len(), len(e.Traces))
}

func (e *Explorer) prompt() string {
	return `
------------------------------------
Select one of the following options:
1. Show initial states
2. Show QValues
3. Show full state
4. Explore a trace
5. Quit
Enter your choice: `
}

func (e *Explorer) tracePrompt() string {
	return `
---------------------------------------------
Step(s) QValues(d) Prev(p) Last(l) Quit(q): `
}

func (e *Explorer) describeStep(i int, s types.TraceStep) string {
	out := fmt.Sprintf("For step %d\nState: %s\nAction: %s\nReward: %f\nNextState: %s\n",
		i+1, e.quantize(s.Obs), formatVector(s.Action), s.Reward, e.quantize(s.NextObs))
	switch {
	case s.Terminated:
		out += "Game over\n"
	case s.Truncated:
		out += "End of scenario\n"
	}
	return out
}

// interactTrace steps through a trace, false when the input ended
func (e *Explorer) interactTrace(traceNo int, reader *bufio.Reader, out io.Writer) bool {
	stepCount := 0
	trace := e.Traces[traceNo]
	if trace.Len() == 0 {
		fmt.Fprintln(out, "Empty trace!")
		return true
	}
	fmt.Fprintln(out, "---------------------------------------------")
	for {
		s, _ := trace.Get(stepCount)
		fmt.Fprintf(out, "%s", e.describeStep(stepCount, s))
		fmt.Fprintf(out, "%s", e.tracePrompt())
		option, err := readLine(reader)
		if err != nil {
			return false
		}
		fmt.Fprintln(out, "---------------------------------------------")
		switch option {
		case "s":
			if stepCount == trace.Len()-1 {
				fmt.Fprintln(out, "No more steps!")
				continue
			}
			stepCount += 1
		case "d":
			fmt.Fprintf(out, "%s", e.getQValues(e.quantize(s.Obs)))
		case "p":
			if stepCount == 0 {
				fmt.Fprintln(out, "No more steps!")
				continue
			}
			stepCount -= 1
		case "l":
			stepCount = trace.Len() - 1
		case "q":
			return true
		default:
			fmt.Fprintln(out, "Invalid option! Try again.")
		}
	}
}
