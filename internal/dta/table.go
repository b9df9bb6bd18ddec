// Package dta implements domain-transition analysis (spec.md section
// 4.2): a precomputed table over the rule index enumerating every valid
// or invalid domain transition reachable from a starting type, forward
// or reverse. Results can be filtered by validity, start type and end
// type (see Filter); there is no filter on the access the end domain is
// granted.
package dta

import (
	"log/slog"
	"time"

	"github.com/cici0602/sepolicy-engine/internal/diag"
	"github.com/cici0602/sepolicy-engine/internal/policyview"
	"github.com/cici0602/sepolicy-engine/internal/ruleindex"
)

// Missing-rule bitmask constants (spec.md section 6).
const (
	ProcTrans    = 1
	Exec         = 2
	ExecNoTrans  = 4
	Entrypoint   = 8
	TypeTrans    = 16
	Setexec      = 32
)

// minSetexecVersion is the policy version at or above which the setexec
// OR type_transition alternative applies (spec.md section 4.2).
const minSetexecVersion = 15

// ruleEntry is one sorted rule-list entry keyed by the "other type"
// (spec.md section 3, DTA table).
type ruleEntry struct {
	otherType  int
	ruleID     int
	used       bool
	hasNoTrans bool // exec-list only
}

// typeTransEntry additionally carries the rule's default type.
type typeTransEntry struct {
	otherType   int
	ruleID      int
	defaultType int
	used        bool
}

// revTypeTransEntry is a reverse-indexed type_transition edge: keyed by
// its default (end) type, it additionally carries the entrypoint file
// type so ReverseTransitions can still recover the whole triplet.
type revTypeTransEntry struct {
	startType int
	fileType  int
	ruleID    int
	used      bool
}

// domNode holds the four rule-lists for one domain type.
type domNode struct {
	procTrans []ruleEntry
	ep        []ruleEntry
	setexec   []ruleEntry
	typeTrans []typeTransEntry
}

// execNode holds the two rule-lists for one type used as a file/chr_file
// target.
type execNode struct {
	exec []ruleEntry
	ep   []ruleEntry
}

// ClassNames configures which object-class names the table build
// recognizes for process-domain rules and executable-file rules. Most
// policies only need "file", but chr_file executables are common enough
// in the original apol semantics to support as a second default.
type ClassNames struct {
	Process string
	Exec    []string
}

// DefaultClassNames returns the conventional SELinux class names.
func DefaultClassNames() ClassNames {
	return ClassNames{Process: "process", Exec: []string{"file", "chr_file"}}
}

// Options configures BuildTable. Query-time metrics are recorded
// separately via QueryOptions.Metrics, since building the table and
// running a query against it are independently timed operations.
type Options struct {
	Classes ClassNames
	Logger  *slog.Logger
}

// Table is the built domain-transition table (spec.md section 3, "DTA
// table"). It owns its rule-list arrays exclusively; used-bit mutation
// during traversal is the only permitted in-place change (spec.md
// section 5).
type Table struct {
	view policyview.Interface

	dom  map[int]*domNode
	exec map[int]*execNode

	// Reverse indices support ReverseTransitions without re-scanning
	// every domain's forward list (spec.md section 4.2, "forward/reverse
	// enumeration").
	revProcTrans map[int][]ruleEntry         // key: end type, other: start type
	revTypeTrans map[int][]revTypeTransEntry // key: end type (default), other: start type

	processClass int
	execClasses  []int

	permTransition    int
	permSetexec       int
	permExecute       int
	permExecuteNoTrans int
	permEntrypoint    int
}

// lookupDom returns a domain's rule-lists without creating a new entry.
func (t *Table) lookupDom(typ int) (*domNode, bool) {
	n, ok := t.dom[typ]
	return n, ok
}

// lookupExec returns a file type's rule-lists without creating a new
// entry.
func (t *Table) lookupExec(typ int) (*execNode, bool) {
	n, ok := t.exec[typ]
	return n, ok
}

func (t *Table) domFor(typ int) *domNode {
	n, ok := t.dom[typ]
	if !ok {
		n = &domNode{}
		t.dom[typ] = n
	}
	return n
}

func (t *Table) execFor(typ int) *execNode {
	n, ok := t.exec[typ]
	if !ok {
		n = &execNode{}
		t.exec[typ] = n
	}
	return n
}

func insertRuleSorted(list []ruleEntry, e ruleEntry) []ruleEntry {
	i := 0
	for i < len(list) && list[i].otherType < e.otherType {
		i++
	}
	list = append(list, ruleEntry{})
	copy(list[i+1:], list[i:])
	list[i] = e
	return list
}

func insertTypeTransSorted(list []typeTransEntry, e typeTransEntry) []typeTransEntry {
	i := 0
	for i < len(list) && list[i].otherType < e.otherType {
		i++
	}
	list = append(list, typeTransEntry{})
	copy(list[i+1:], list[i:])
	list[i] = e
	return list
}

func findRule(list []ruleEntry, other int) (int, bool) {
	lo, hi := 0, len(list)
	for lo < hi {
		mid := (lo + hi) / 2
		if list[mid].otherType < other {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(list) && list[lo].otherType == other {
		return lo, true
	}
	return -1, false
}

func findTypeTrans(list []typeTransEntry, other int) (int, bool) {
	lo, hi := 0, len(list)
	for lo < hi {
		mid := (lo + hi) / 2
		if list[mid].otherType < other {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(list) && list[lo].otherType == other {
		return lo, true
	}
	return -1, false
}

// BuildTable builds the DTA table from idx (spec.md section 4.2, "Table
// build"). Attributes on either side are already expanded by the rule
// index; BuildTable only needs to walk its canonical per-key nodes.
func BuildTable(view policyview.Interface, idx *ruleindex.Index, ev ruleindex.Evaluator, opts Options) (*Table, error) {
	classes := opts.Classes
	if classes.Process == "" {
		classes = DefaultClassNames()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	processClass, ok := view.ClassByName(classes.Process)
	if !ok {
		return nil, diag.New(diag.InvalidInput, "process class %q not found in policy view", classes.Process)
	}

	t := &Table{
		view:         view,
		dom:          make(map[int]*domNode),
		exec:         make(map[int]*execNode),
		revProcTrans: make(map[int][]ruleEntry),
		revTypeTrans: make(map[int][]revTypeTransEntry),
		processClass: processClass.ID,
	}

	t.permTransition = findPerm(view, processClass.ID, "transition")
	t.permSetexec = findPerm(view, processClass.ID, "setexec")
	if t.permTransition < 0 {
		return nil, diag.New(diag.InvalidInput, "process class missing transition permission")
	}

	for _, name := range classes.Exec {
		cls, ok := view.ClassByName(name)
		if !ok {
			continue
		}
		t.execClasses = append(t.execClasses, cls.ID)
		if t.permExecute < 0 || t.permExecute == 0 {
			t.permExecute = findPerm(view, cls.ID, "execute")
			t.permEntrypoint = findPerm(view, cls.ID, "entrypoint")
			t.permExecuteNoTrans = findPerm(view, cls.ID, "execute_no_trans")
		}
	}
	if len(t.execClasses) == 0 {
		return nil, diag.New(diag.InvalidInput, "no recognized executable-file classes found in policy view")
	}

	walkIndex(idx, view, func(n *ruleindex.Node) {
		if n.Key.Class != t.processClass {
			return
		}
		if !ruleindex.Enabled(view, ev, n) {
			return
		}
		switch n.Key.Kind {
		case policyview.RuleAllow:
			perms := n.Perms()
			if containsInt(perms, t.permTransition) {
				dn := t.domFor(n.Key.Src)
				dn.procTrans = insertRuleSorted(dn.procTrans, ruleEntry{otherType: n.Key.Tgt, ruleID: firstRuleID(n)})
				t.revProcTrans[n.Key.Tgt] = append(t.revProcTrans[n.Key.Tgt], ruleEntry{otherType: n.Key.Src, ruleID: firstRuleID(n)})
			}
			if containsInt(perms, t.permSetexec) && n.Key.Src == n.Key.Tgt {
				dn := t.domFor(n.Key.Src)
				dn.setexec = insertRuleSorted(dn.setexec, ruleEntry{otherType: n.Key.Src, ruleID: firstRuleID(n)})
			}
		case policyview.RuleTypeTransition:
			dflt, ok := n.DefaultType()
			if !ok {
				return
			}
			dn := t.domFor(n.Key.Src)
			dn.typeTrans = insertTypeTransSorted(dn.typeTrans, typeTransEntry{otherType: n.Key.Tgt, ruleID: firstRuleID(n), defaultType: dflt})
			t.revTypeTrans[dflt] = append(t.revTypeTrans[dflt], revTypeTransEntry{startType: n.Key.Src, fileType: n.Key.Tgt, ruleID: firstRuleID(n)})
		}
	})

	for _, classID := range t.execClasses {
		walkIndex(idx, view, func(n *ruleindex.Node) {
			if n.Key.Class != classID || n.Key.Kind != policyview.RuleAllow {
				return
			}
			if !ruleindex.Enabled(view, ev, n) {
				return
			}
			perms := n.Perms()
			hasExec := containsInt(perms, t.permExecute)
			hasNoTrans := t.permExecuteNoTrans >= 0 && containsInt(perms, t.permExecuteNoTrans)
			hasEntry := t.permEntrypoint >= 0 && containsInt(perms, t.permEntrypoint)
			if hasExec || hasNoTrans {
				en := t.execFor(n.Key.Tgt)
				en.exec = insertRuleSorted(en.exec, ruleEntry{otherType: n.Key.Src, ruleID: firstRuleID(n), hasNoTrans: hasNoTrans && !hasExec})
			}
			if hasEntry {
				dn := t.domFor(n.Key.Src)
				dn.ep = insertRuleSorted(dn.ep, ruleEntry{otherType: n.Key.Tgt, ruleID: firstRuleID(n)})
				en := t.execFor(n.Key.Tgt)
				en.ep = insertRuleSorted(en.ep, ruleEntry{otherType: n.Key.Src, ruleID: firstRuleID(n)})
			}
		})
	}

	logger.Debug("dta table built",
		slog.Int("domains", len(t.dom)),
		slog.Int("exec_types", len(t.exec)),
		slog.Duration("elapsed", time.Since(start)),
	)

	return t, nil
}

func findPerm(view policyview.Interface, classID int, name string) int {
	for _, pid := range view.ClassPerms(classID) {
		if p, ok := view.Permission(pid); ok && p.Name == name {
			return pid
		}
	}
	return -1
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

func firstRuleID(n *ruleindex.Node) int {
	prov := n.Provenance()
	if len(prov) == 0 {
		return -1
	}
	return prov[0].RuleID
}

// walkIndex enumerates every node in idx. The rule index does not expose
// a raw full-table walk in its public API (callers are meant to query by
// key or by src/tgt type), so BuildTable uses the src-type secondary
// index over every known type as its enumeration strategy -- exactly the
// access pattern index_by_src_type was built for.
func walkIndex(idx *ruleindex.Index, view policyview.Interface, fn func(n *ruleindex.Node)) {
	seen := make(map[*ruleindex.Node]bool)
	for typeID := 1; typeID < view.NumTypes(); typeID++ {
		for _, n := range idx.IndexBySrcType(typeID) {
			if seen[n] {
				continue
			}
			seen[n] = true
			fn(n)
		}
	}
}

// Reset clears every rule-list's used bit, starting a fresh enumeration
// session (spec.md section 4.2, "Reset"). ForwardTransitions and
// ReverseTransitions mark each proc_trans/type_transition entry used as
// they emit its candidate, so a second un-reset call only surfaces
// transitions discovered since the last Reset.
func (t *Table) Reset() {
	for _, dn := range t.dom {
		resetRuleUsed(dn.procTrans)
		resetRuleUsed(dn.ep)
		resetRuleUsed(dn.setexec)
		resetTypeTransUsed(dn.typeTrans)
	}
	for _, en := range t.exec {
		resetRuleUsed(en.exec)
		resetRuleUsed(en.ep)
	}
	for _, list := range t.revProcTrans {
		resetRuleUsed(list)
	}
	for _, list := range t.revTypeTrans {
		resetRevTypeTransUsed(list)
	}
}

func resetRuleUsed(list []ruleEntry) {
	for i := range list {
		list[i].used = false
	}
}

func resetTypeTransUsed(list []typeTransEntry) {
	for i := range list {
		list[i].used = false
	}
}

func resetRevTypeTransUsed(list []revTypeTransEntry) {
	for i := range list {
		list[i].used = false
	}
}

// findRuleLinear scans an unsorted rule list for other -- revProcTrans
// lists are appended in rule-index walk order, not sorted by otherType,
// unlike the forward dom/exec lists.
func findRuleLinear(list []ruleEntry, other int) (int, bool) {
	for i, e := range list {
		if e.otherType == other {
			return i, true
		}
	}
	return -1, false
}
