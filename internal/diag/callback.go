package diag

// WarningKind categorizes a non-fatal diagnostic raised while building an
// index or evaluating a query. Warnings never fail the call that raises
// them (spec.md section 7).
type WarningKind int

const (
	// ConflictingConditionalRule fires when the rule index finds two
	// same-keyed conditional TE rules that are neither non-conditional
	// nor opposite branches of the same expression; the later rule is
	// dropped (spec.md section 4.1, rule 5).
	ConflictingConditionalRule WarningKind = iota
	// UnmappedPermission fires when the information-flow graph builder
	// encounters a permission absent from the loaded permission map.
	UnmappedPermission
)

func (k WarningKind) String() string {
	switch k {
	case ConflictingConditionalRule:
		return "ConflictingConditionalRule"
	case UnmappedPermission:
		return "UnmappedPermission"
	default:
		return "Unknown"
	}
}

// Warning is a single diagnostic message delivered to a caller-supplied
// Callback in place of writing to stderr.
type Warning struct {
	Kind    WarningKind
	Message string
}

// Callback receives warnings raised during index/graph construction or
// query evaluation. A nil Callback means the caller opted out of
// diagnostics; emit must tolerate that silently.
type Callback func(Warning)

// Emit delivers w to cb if cb is non-nil.
func Emit(cb Callback, w Warning) {
	if cb != nil {
		cb(w)
	}
}
