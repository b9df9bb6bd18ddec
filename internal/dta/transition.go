package dta

// Transition describes one candidate domain transition start -> end via
// an entrypoint file type (spec.md section 4.2, "Transition record").
// EntrypointType is -1 when no entrypoint candidate could be matched at
// all (the proc_trans rule exists but nothing else does).
type Transition struct {
	StartType      int
	EntrypointType int
	EndType        int

	ProcTransRuleID int
	EPRuleID        int
	ExecRuleID      int
	SetexecRuleID   int
	TypeTransRuleID int

	Valid   bool
	Missing int // bitmask of ProcTrans/Exec/ExecNoTrans/Entrypoint/TypeTrans/Setexec
}

