package dta

import (
	"log/slog"
	"time"

	"github.com/cici0602/sepolicy-engine/internal/metrics"
)

// QueryOptions configures the enumeration entry points.
type QueryOptions struct {
	Filters []Filter
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Filter narrows a transition result set. Filters are applied in the
// order given (spec.md section 4.2, "the three composable filters in
// order"): a transition surviving filter N is the only kind passed to
// filter N+1.
type Filter func(Transition) bool

// FilterByEndTypes keeps only transitions whose end type is in types.
func FilterByEndTypes(types ...int) Filter {
	set := make(map[int]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return func(tr Transition) bool { return set[tr.EndType] }
}

// FilterByStartTypes keeps only transitions whose start type is in types.
func FilterByStartTypes(types ...int) Filter {
	set := make(map[int]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return func(tr Transition) bool { return set[tr.StartType] }
}

// FilterValidOnly keeps only fully valid transitions.
func FilterValidOnly() Filter {
	return func(tr Transition) bool { return tr.Valid }
}

func applyFilters(trs []Transition, filters []Filter) []Transition {
	for _, f := range filters {
		var kept []Transition
		for _, tr := range trs {
			if f(tr) {
				kept = append(kept, tr)
			}
		}
		trs = kept
	}
	return trs
}

// evaluate fills in every known rule id and the valid/missing verdict
// for one (start, entrypoint, end) candidate triplet.
func (t *Table) evaluate(start, ep, end int, procTransRuleID int) Transition {
	tr := Transition{StartType: start, EntrypointType: ep, EndType: end, ProcTransRuleID: procTransRuleID, ExecRuleID: -1, EPRuleID: -1, SetexecRuleID: -1, TypeTransRuleID: -1}

	hasProcTrans := procTransRuleID >= 0
	hasExec, hasExecNoTrans := false, false
	hasEntrypoint := false
	hasTypeTrans := false
	hasSetexec := false

	if en, ok := t.lookupExec(ep); ok {
		if i, ok := findRule(en.exec, start); ok {
			if en.exec[i].hasNoTrans {
				hasExecNoTrans = true
			} else {
				hasExec = true
			}
			tr.ExecRuleID = en.exec[i].ruleID
		}
		if i, ok := findRule(en.ep, end); ok {
			hasEntrypoint = true
			tr.EPRuleID = en.ep[i].ruleID
		}
	}

	if dn, ok := t.lookupDom(start); ok {
		if i, ok := findTypeTrans(dn.typeTrans, ep); ok && dn.typeTrans[i].defaultType == end {
			hasTypeTrans = true
			tr.TypeTransRuleID = dn.typeTrans[i].ruleID
		}
	}
	if dn, ok := t.lookupDom(end); ok {
		if i, ok := findRule(dn.setexec, end); ok {
			hasSetexec = true
			tr.SetexecRuleID = dn.setexec[i].ruleID
		}
	}

	execSatisfied := hasExec || hasExecNoTrans
	// spec.md section 4.2: type_transition is the default path; setexec
	// combined with execute_no_trans is the version>=15 alternative that
	// lets the end domain pick its own context instead.
	altSatisfied := hasExecNoTrans && hasSetexec && t.view.PolicyVersion() >= minSetexecVersion
	finalHop := hasTypeTrans || altSatisfied

	tr.Valid = hasProcTrans && hasEntrypoint && execSatisfied && finalHop

	missing := 0
	if !hasProcTrans {
		missing |= ProcTrans
	}
	if !hasEntrypoint {
		missing |= Entrypoint
	}
	if !execSatisfied {
		missing |= Exec | ExecNoTrans
	}
	if !finalHop {
		missing |= TypeTrans
		if hasExecNoTrans {
			missing |= Setexec
		}
	}
	tr.Missing = missing
	return tr
}

// ForwardTransitions enumerates every domain transition reachable from
// start (spec.md section 4.2, "forward enumeration"). It runs in two
// phases: first every type_transition rule with src=start is turned
// into a candidate keyed by its own tgt/default pair, then every
// proc_trans rule not already matched to one of those type_transition
// candidates is turned into a candidate per entrypoint type the end
// domain is allowed into. Each rule-list entry is marked used as it is
// consumed, so end==start self-transitions are skipped (spec.md section
// 4.2, step 2) and a later call without an intervening Reset only
// surfaces transitions not already emitted.
func (t *Table) ForwardTransitions(start int, opts QueryOptions) []Transition {
	logStart := time.Now()
	var out []Transition

	dn, ok := t.lookupDom(start)
	if !ok {
		return nil
	}

	for i := range dn.typeTrans {
		tte := &dn.typeTrans[i]
		if tte.used {
			continue
		}
		tte.used = true
		end := tte.defaultType
		if end == start {
			continue
		}
		procTransRuleID := -1
		if j, ok := findRule(dn.procTrans, end); ok {
			procTransRuleID = dn.procTrans[j].ruleID
			dn.procTrans[j].used = true
		}
		out = append(out, t.evaluate(start, tte.otherType, end, procTransRuleID))
	}

	for i := range dn.procTrans {
		pt := &dn.procTrans[i]
		if pt.used {
			continue
		}
		pt.used = true
		end := pt.otherType
		if end == start {
			continue
		}
		found := false
		if edn, ok := t.lookupDom(end); ok {
			for _, epEntry := range edn.ep {
				out = append(out, t.evaluate(start, epEntry.otherType, end, pt.ruleID))
				found = true
			}
		}
		if !found {
			out = append(out, t.evaluate(start, -1, end, pt.ruleID))
		}
	}

	out = applyFilters(out, opts.Filters)
	recordQuery(opts.Metrics, logStart, "forward", out)
	return out
}

// ReverseTransitions enumerates every domain transition that can reach
// end (spec.md section 4.2, "reverse enumeration"), mirroring
// ForwardTransitions's two phases over the reverse indices. Unlike the
// original apol implementation this never dereferences an absent
// reverse table entry: a type with no recorded incoming proc_trans or
// type_transition rule simply yields no results.
func (t *Table) ReverseTransitions(end int, opts QueryOptions) []Transition {
	logStart := time.Now()
	var out []Transition

	revTT := t.revTypeTrans[end]
	revPT := t.revProcTrans[end]

	for i := range revTT {
		rte := &revTT[i]
		if rte.used {
			continue
		}
		rte.used = true
		start := rte.startType
		if end == start {
			continue
		}
		procTransRuleID := -1
		if j, ok := findRuleLinear(revPT, start); ok {
			procTransRuleID = revPT[j].ruleID
			revPT[j].used = true
		}
		out = append(out, t.evaluate(start, rte.fileType, end, procTransRuleID))
	}

	for i := range revPT {
		pt := &revPT[i]
		if pt.used {
			continue
		}
		pt.used = true
		start := pt.otherType
		if end == start {
			continue
		}
		found := false
		if edn, ok := t.lookupDom(end); ok {
			for _, epEntry := range edn.ep {
				out = append(out, t.evaluate(start, epEntry.otherType, end, pt.ruleID))
				found = true
			}
		}
		if !found {
			out = append(out, t.evaluate(start, -1, end, pt.ruleID))
		}
	}

	out = applyFilters(out, opts.Filters)
	recordQuery(opts.Metrics, logStart, "reverse", out)
	return out
}

// Verify checks one specific (start, ep, end) transition triple directly
// (spec.md section 4.2, "Verify"; section 8, "table.verify(s, ep, e)
// returns 0 iff..."): it evaluates exactly the given entrypoint rather
// than searching for any entrypoint that happens to make the pair
// valid.
func (t *Table) Verify(start, ep, end int) Transition {
	procTransRuleID := -1
	if dn, ok := t.lookupDom(start); ok {
		if i, ok := findRule(dn.procTrans, end); ok {
			procTransRuleID = dn.procTrans[i].ruleID
		}
	}
	return t.evaluate(start, ep, end, procTransRuleID)
}

func recordQuery(m *metrics.Metrics, start time.Time, direction string, trs []Transition) {
	if m == nil {
		return
	}
	valid, invalid := 0, 0
	for _, tr := range trs {
		if tr.Valid {
			valid++
		} else {
			invalid++
		}
	}
	m.ObserveDTAQuery(time.Since(start), direction, valid, invalid)
}
