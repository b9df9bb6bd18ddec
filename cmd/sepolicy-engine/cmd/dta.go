package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cici0602/sepolicy-engine/internal/dta"
	"github.com/cici0602/sepolicy-engine/internal/policyview"
	"github.com/cici0602/sepolicy-engine/internal/ruleindex"
)

var (
	dtaStartType string
	dtaEndType   string
	dtaEPType    string
	dtaReverse   bool
	dtaValidOnly bool
)

var dtaCmd = &cobra.Command{
	Use:   "dta",
	Short: "Enumerate domain transitions",
	Long: `Build the domain-transition table and enumerate transitions reachable
from --start (forward) or --end (--reverse), or verify one specific
start/ep/end triple when --start, --ep, and --end are all given.`,
	RunE: runDTA,
}

func init() {
	dtaCmd.Flags().StringVar(&dtaStartType, "start", "", "starting domain type name")
	dtaCmd.Flags().StringVar(&dtaEndType, "end", "", "ending domain type name")
	dtaCmd.Flags().StringVar(&dtaEPType, "ep", "", "entrypoint file type name (required with --start and --end, to verify one exact triple)")
	dtaCmd.Flags().BoolVar(&dtaReverse, "reverse", false, "enumerate reverse transitions into --end instead of forward from --start")
	dtaCmd.Flags().BoolVar(&dtaValidOnly, "valid-only", false, "report only fully valid transitions")
	rootCmd.AddCommand(dtaCmd)
}

func runDTA(cmd *cobra.Command, args []string) error {
	view, err := requirePolicy()
	if err != nil {
		return err
	}

	ev := engineCfg.NewEvaluator()
	idx := ruleindex.Build(view, ruleindex.BuildOptions{
		NumBuckets: engineCfg.Index.HashBuckets,
		Logger:     logger,
		Metrics:    engineMetrics,
	})
	table, err := dta.BuildTable(view, idx, ev, dta.Options{Logger: logger})
	if err != nil {
		return err
	}

	var filters []dta.Filter
	if dtaValidOnly {
		filters = append(filters, dta.FilterValidOnly())
	}
	opts := dta.QueryOptions{Filters: filters, Logger: logger, Metrics: engineMetrics}

	switch {
	case dtaStartType != "" && dtaEndType != "":
		if dtaEPType == "" {
			return fmt.Errorf("--start and --end together require --ep to verify one exact triple")
		}
		start, ok := view.TypeByName(dtaStartType)
		if !ok {
			return fmt.Errorf("unknown type %q", dtaStartType)
		}
		end, ok := view.TypeByName(dtaEndType)
		if !ok {
			return fmt.Errorf("unknown type %q", dtaEndType)
		}
		ep, ok := view.TypeByName(dtaEPType)
		if !ok {
			return fmt.Errorf("unknown type %q", dtaEPType)
		}
		tr := table.Verify(start.ID, ep.ID, end.ID)
		printTransitions(view, []dta.Transition{tr})
	case dtaReverse:
		if dtaEndType == "" {
			return fmt.Errorf("--reverse requires --end")
		}
		end, ok := view.TypeByName(dtaEndType)
		if !ok {
			return fmt.Errorf("unknown type %q", dtaEndType)
		}
		printTransitions(view, table.ReverseTransitions(end.ID, opts))
	default:
		if dtaStartType == "" {
			return fmt.Errorf("--start is required unless --reverse --end is given")
		}
		start, ok := view.TypeByName(dtaStartType)
		if !ok {
			return fmt.Errorf("unknown type %q", dtaStartType)
		}
		printTransitions(view, table.ForwardTransitions(start.ID, opts))
	}
	return nil
}

func typeName(view policyview.Interface, id int) string {
	if id < 0 {
		return "-"
	}
	if t, ok := view.Type(id); ok {
		return t.Name
	}
	return fmt.Sprintf("#%d", id)
}

func printTransitions(view policyview.Interface, trs []dta.Transition) {
	if len(trs) == 0 {
		fmt.Println("no transitions found")
		return
	}
	for _, tr := range trs {
		status := "INVALID"
		if tr.Valid {
			status = "valid"
		}
		fmt.Printf("%-8s %s -> %s via %s (proc_trans=%d exec=%d entrypoint=%d type_trans=%d setexec=%d)\n",
			status,
			typeName(view, tr.StartType),
			typeName(view, tr.EndType),
			typeName(view, tr.EntrypointType),
			tr.ProcTransRuleID, tr.ExecRuleID, tr.EPRuleID, tr.TypeTransRuleID, tr.SetexecRuleID,
		)
	}
}
