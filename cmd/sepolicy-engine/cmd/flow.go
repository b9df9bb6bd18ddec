package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cici0602/sepolicy-engine/internal/ifa"
	"github.com/cici0602/sepolicy-engine/internal/policyview"
)

var (
	flowStartType string
	flowEndType   string
	flowMode      string
	flowDir       string
	flowMinWeight int
	flowRounds    int
)

var flowCmd = &cobra.Command{
	Use:   "flow",
	Short: "Trace information flow between types",
	Long: `Build the information-flow graph and run a direct, transitive, or
random-BFS multi-path query from --start.

--mode selects the query kind: "direct" (one-hop flows), "transitive"
(shortest path to every reachable type), or "multipath" (--rounds
rounds of randomized search toward --end, each adding any newly found
distinct paths).`,
	RunE: runFlow,
}

func init() {
	flowCmd.Flags().StringVar(&flowStartType, "start", "", "starting type name (required)")
	flowCmd.Flags().StringVar(&flowEndType, "end", "", "ending type name (required for multipath; optional filter otherwise)")
	flowCmd.Flags().StringVar(&flowMode, "mode", "direct", "query kind: direct, transitive, or multipath")
	flowCmd.Flags().StringVar(&flowDir, "dir", "out", "flow direction: in, out, both, or either (both/either only apply to direct)")
	flowCmd.Flags().IntVar(&flowMinWeight, "min-weight", 0, "minimum permission weight to include (0 uses the configured default)")
	flowCmd.Flags().IntVar(&flowRounds, "rounds", 5, "number of find_more rounds to run for --mode=multipath")
	rootCmd.AddCommand(flowCmd)
}

func parseDir(s string) (ifa.Dir, error) {
	switch s {
	case "in":
		return ifa.DirIn, nil
	case "out":
		return ifa.DirOut, nil
	case "both":
		return ifa.DirBoth, nil
	case "either":
		return ifa.DirEither, nil
	default:
		return 0, fmt.Errorf("--dir must be one of in/out/both/either, got %q", s)
	}
}

func runFlow(cmd *cobra.Command, args []string) error {
	if flowStartType == "" {
		return fmt.Errorf("--start is required")
	}
	view, err := requirePolicy()
	if err != nil {
		return err
	}

	ev := engineCfg.NewEvaluator()
	graph, err := ifa.BuildGraph(view, ev, ifa.BuildOptions{Logger: logger})
	if err != nil {
		return err
	}
	engine := ifa.NewEngine(graph, logger, engineMetrics)

	start, ok := view.TypeByName(flowStartType)
	if !ok {
		return fmt.Errorf("unknown type %q", flowStartType)
	}
	dir, err := parseDir(flowDir)
	if err != nil {
		return err
	}
	minWeight := flowMinWeight
	if minWeight == 0 {
		minWeight = engineCfg.IFA.MinWeight
	}
	var endTypes []int
	if flowEndType != "" {
		end, ok := view.TypeByName(flowEndType)
		if !ok {
			return fmt.Errorf("unknown type %q", flowEndType)
		}
		endTypes = []int{end.ID}
	}

	switch flowMode {
	case "direct":
		flows, err := engine.DirectFlows(view, start.ID, dir, ifa.DirectFilters{EndTypes: endTypes, MinWeight: minWeight})
		if err != nil {
			return err
		}
		printFlows(view, flows)
	case "transitive":
		paths, err := engine.TransitiveFlows(view, start.ID, dir, ifa.TransitiveFilters{EndTypes: endTypes, MinWeight: minWeight})
		if err != nil {
			return err
		}
		printPaths(view, paths)
	case "multipath":
		if flowEndType == "" {
			return fmt.Errorf("--mode=multipath requires --end")
		}
		it, err := engine.NewMultiPathIterator(view, start.ID, endTypes[0], dir, minWeight, time.Now().UnixNano())
		if err != nil {
			return err
		}
		var all []ifa.FlowPath
		for round := 0; round < flowRounds; round++ {
			all = append(all, engine.FindMore(it)...)
		}
		printPaths(view, all)
	default:
		return fmt.Errorf("--mode must be one of direct/transitive/multipath, got %q", flowMode)
	}
	return nil
}

func printFlows(view policyview.Interface, flows []ifa.IFlow) {
	if len(flows) == 0 {
		fmt.Println("no flows found")
		return
	}
	for _, f := range flows {
		for _, cf := range f.ByClass {
			fmt.Printf("%s -> %s  class=%s length=%d rules=%v\n",
				typeName(view, f.Start), typeName(view, f.End), className(view, cf.ClassID), cf.Length, cf.RuleIDs)
		}
	}
}

func printPaths(view policyview.Interface, paths []ifa.FlowPath) {
	if len(paths) == 0 {
		fmt.Println("no paths found")
		return
	}
	for _, p := range paths {
		fmt.Printf("-> %s  length=%d hops=%d\n", typeName(view, p.End), p.Length, len(p.Hops))
		for _, h := range p.Hops {
			fmt.Printf("     %s (class=%s)\n", typeName(view, h.Type), className(view, h.Class))
		}
	}
}

func className(view policyview.Interface, id int) string {
	if id < 0 {
		return "-"
	}
	if c, ok := view.Class(id); ok {
		return c.Name
	}
	return fmt.Sprintf("#%d", id)
}

