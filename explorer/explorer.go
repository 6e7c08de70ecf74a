package explorer

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/zeu5/grid-rl-env/policies"
	"github.com/zeu5/grid-rl-env/types"
)

// Explorer browses a recorded q table along with recorded traces. States
// are looked up in the table with the quantizer the policy learnt with.
type Explorer struct {
	PolicyFile string
	TracesFile string

	QTable *policies.QTable
	Traces []*types.Trace

	quantize policies.Quantizer
	StateMap map[string][]float64
}

// Create an explorer of q tables and trace
func NewExplorer(policyFile, tracesFile string, quantize policies.Quantizer) (*Explorer, error) {
	if quantize == nil {
		quantize = policies.RoundQuantizer(1)
	}
	e := &Explorer{
		PolicyFile: policyFile,
		TracesFile: tracesFile,
		QTable:     policies.NewQTable(),
		Traces:     make([]*types.Trace, 0),
		quantize:   quantize,
		StateMap:   make(map[string][]float64),
	}

	if err := e.QTable.Read(policyFile); err != nil {
		return nil, errors.Wrap(err, "reading policy")
	}
	var err error
	e.Traces, err = readTraces(e.TracesFile)
	if err != nil {
		return nil, err
	}

	for _, t := range e.Traces {
		for _, s := range t.Steps {
			for _, obs := range [][]float64{s.Obs, s.NextObs} {
				key := e.quantize(obs)
				if _, ok := e.StateMap[key]; !ok {
					e.StateMap[key] = obs
				}
			}
		}
	}
	return e, nil
}

func readTraces(path string) ([]*types.Trace, error) {
	traces := make([]*types.Trace, 0)
	file, err := os.Open(path)
	if err != nil {
		return traces, errors.Wrap(err, "error reading file")
	}
	defer file.Close()

	if !strings.HasSuffix(path, ".jsonl") {
		t := types.NewTrace()
		data, err := io.ReadAll(file)
		if err != nil {
			return traces, errors.Wrap(err, "error reading file")
		}
		if err := json.Unmarshal(data, t); err != nil {
			return traces, errors.Wrap(err, "error parsing file")
		}
		return append(traces, t), nil
	}

	scanner := bufio.NewScanner(file)
	maxTraceSize := 5 * 1024 * 1024
	scanner.Buffer(make([]byte, maxTraceSize), maxTraceSize)
	for scanner.Scan() {
		t := types.NewTrace()
		if err := json.Unmarshal(scanner.Bytes(), t); err != nil {
			return traces, errors.Wrap(err, "error reading file contents")
		}
		for i, s := range t.Steps {
			if len(s.Obs) != len(s.NextObs) {
				return traces, errors.Errorf("trace %d step %d: observation sizes mismatched", len(traces), i)
			}
		}
		traces = append(traces, t)
	}
	if err := scanner.Err(); err != nil {
		return traces, errors.Wrap(err, "failed to read traces")
	}
	return traces, nil
}

// Example invocation - gridrl explore [policy_output] [trace_output(.jsonl)]
func ExploreCommand() *cobra.Command {
	var decimals int
	cmd := &cobra.Command{
		Use:  "explore [policy_output] [trace_output]",
		Long: "Explore the choices of a q-table and the traces",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			exp, err := NewExplorer(args[0], args[1], policies.RoundQuantizer(decimals))
			if err != nil {
				return err
			}

			exp.Interact(cmd.InOrStdin(), cmd.OutOrStdout())
			return nil
		},
	}
	cmd.Flags().IntVar(&decimals, "decimals", 1, "Decimals the policy quantized observations with")
	return cmd
}
