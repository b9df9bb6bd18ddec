package policyview

// Interface is the read-only accessor every analysis engine borrows for
// the duration of a query (spec.md sections 5 and 6). Implementations
// must keep every id dense. Type ids are 1-based, with type id 0
// reserved for self; the other id spaces start at 0.
type Interface interface {
	NumTypes() int
	NumAttribs() int
	NumRoles() int
	NumUsers() int
	NumClasses() int
	NumPerms() int
	NumBools() int
	NumCondExprs() int

	PolicyVersion() int
	IsMLS() bool
	IsBinary() bool

	Type(id int) (Type, bool)
	TypeByName(name string) (Type, bool)
	Attribute(id int) (Attribute, bool)
	Class(id int) (Class, bool)
	ClassByName(name string) (Class, bool)
	Permission(id int) (Permission, bool)
	Role(id int) (Role, bool)
	User(id int) (User, bool)
	Bool(id int) (Bool, bool)
	CondExpr(id int) (CondExpr, bool)

	// ClassPerms returns the full permission id set for a class,
	// including any inherited from a common-permission set.
	ClassPerms(classID int) []int

	AVRules() []AVRule
	TERules() []TERule
	RoleTransitionRules() []RoleTransitionRule
	RoleAllowRules() []RoleAllowRule
	RangeTransitionRules() []RangeTransitionRule

	// PermissionMap returns the loaded permission map, if any.
	PermissionMap() (PermMap, bool)
}

// View is a concrete, in-memory Interface implementation: the thing a
// test fixture, the CLI's JSON demo loader, or a benchmark constructs
// directly rather than obtaining from a real binary-policy reader.
type View struct {
	version int
	mls     bool
	binary  bool

	types      []Type
	typeByName map[string]int
	attribs    []Attribute
	classes    []Class
	classByID  map[int]int
	classByName map[string]int
	perms      []Permission
	roles      []Role
	users      []User
	bools      []Bool
	boolByID   map[int]int
	condExprs  []CondExpr

	avRules    []AVRule
	teRules    []TERule
	roleTrans  []RoleTransitionRule
	roleAllow  []RoleAllowRule
	rangeTrans []RangeTransitionRule

	permMap   PermMap
	hasPermMap bool

	nextRuleID int
}

// New creates an empty View. version should be the SELinux policy-version
// number the view pretends to be loaded from (used by DTA to gate the
// setexec/type_transition either/or rule at version >= 15).
func New(version int) *View {
	v := &View{
		version:     version,
		typeByName:  make(map[string]int),
		classByID:   make(map[int]int),
		classByName: make(map[string]int),
		boolByID:    make(map[int]int),
	}
	// type id 0 is reserved for self; register it so lookups behave,
	// but it is never returned by attribute/wildcard expansion.
	v.types = append(v.types, Type{ID: SelfType, Name: "self"})
	return v
}

func (v *View) SetMLS(b bool)    { v.mls = b }
func (v *View) SetBinary(b bool) { v.binary = b }

// AddType registers a new type and returns its id.
func (v *View) AddType(name string, aliases ...string) int {
	id := len(v.types)
	v.types = append(v.types, Type{ID: id, Name: name, Aliases: aliases})
	v.typeByName[name] = id
	return id
}

// AddAttribute registers a new attribute over the given type ids.
func (v *View) AddAttribute(name string, typeIDs ...int) int {
	id := len(v.attribs)
	v.attribs = append(v.attribs, Attribute{ID: id, Name: name, TypeIDs: typeIDs})
	return id
}

// AddClass registers a new object class. commonPermID may be -1.
func (v *View) AddClass(name string, commonPermID int, ownPermIDs ...int) int {
	id := len(v.classes)
	v.classes = append(v.classes, Class{ID: id, Name: name, OwnPermIDs: ownPermIDs, CommonPermID: commonPermID})
	v.classByID[id] = len(v.classes) - 1
	v.classByName[name] = id
	return id
}

// AddPermission registers a new permission for a class and returns its id.
func (v *View) AddPermission(name string, classID int) int {
	id := len(v.perms)
	v.perms = append(v.perms, Permission{ID: id, Name: name, ClassID: classID, Direction: DirNone})
	return id
}

// AddRole registers a role.
func (v *View) AddRole(name string, typeIDs ...int) int {
	id := len(v.roles)
	v.roles = append(v.roles, Role{ID: id, Name: name, TypeIDs: typeIDs})
	return id
}

// AddUser registers a user.
func (v *View) AddUser(name string, roleIDs ...int) int {
	id := len(v.users)
	v.users = append(v.users, User{ID: id, Name: name, RoleIDs: roleIDs})
	return id
}

// AddBool registers a policy boolean.
func (v *View) AddBool(name string, defaultState bool) int {
	id := len(v.bools)
	v.bools = append(v.bools, Bool{ID: id, Name: name, DefaultState: defaultState, CurrentState: defaultState})
	v.boolByID[id] = len(v.bools) - 1
	return id
}

// SetBoolState mutates a boolean's current state in place. This is the
// only mutation permitted on a live View (spec.md section 5): it does
// not invalidate any index built over the view, since the rule index
// stores a pointer to the conditional annotation, not a copy of the
// truth value.
func (v *View) SetBoolState(id int, state bool) {
	if i, ok := v.boolByID[id]; ok {
		v.bools[i].CurrentState = state
	}
}

// AddCondExpr registers a conditional expression and returns its id.
func (v *View) AddCondExpr(tokens []CondToken, trueRules, falseRules []int) int {
	id := len(v.condExprs)
	v.condExprs = append(v.condExprs, CondExpr{ID: id, Tokens: tokens, TrueRuleIDs: trueRules, FalseRuleIDs: falseRules})
	return id
}

func (v *View) nextID() int {
	v.nextRuleID++
	return v.nextRuleID
}

// AddAVRule registers an access-vector rule and returns its assigned id.
func (v *View) AddAVRule(kind RuleKind, src, tgt TaSet, classes, perms []int, flags RuleFlags, cond CondRef) int {
	id := v.nextID()
	v.avRules = append(v.avRules, AVRule{ID: id, Kind: kind, Src: src, Tgt: tgt, Classes: classes, Perms: perms, Flags: flags, Cond: cond})
	return id
}

// AddTERule registers a type-enforcement rule and returns its assigned id.
func (v *View) AddTERule(kind RuleKind, src, tgt TaSet, classes []int, defaultIdx int, flags RuleFlags, cond CondRef) int {
	id := v.nextID()
	v.teRules = append(v.teRules, TERule{ID: id, Kind: kind, Src: src, Tgt: tgt, Classes: classes, DefaultIdx: defaultIdx, Flags: flags, Cond: cond})
	return id
}

// AddRoleTransitionRule registers a role_transition rule.
func (v *View) AddRoleTransitionRule(src, tgt, classes []int, defaultRole int) int {
	id := v.nextID()
	v.roleTrans = append(v.roleTrans, RoleTransitionRule{ID: id, Src: src, Tgt: tgt, Classes: classes, DefaultRole: defaultRole})
	return id
}

// AddRoleAllowRule registers an allow-role rule.
func (v *View) AddRoleAllowRule(src, tgt []int) int {
	id := v.nextID()
	v.roleAllow = append(v.roleAllow, RoleAllowRule{ID: id, Src: src, Tgt: tgt})
	return id
}

// AddRangeTransitionRule registers a range_transition rule.
func (v *View) AddRangeTransitionRule(src, tgt, classes []int, rng string) int {
	id := v.nextID()
	v.rangeTrans = append(v.rangeTrans, RangeTransitionRule{ID: id, Src: src, Tgt: tgt, Classes: classes, Range: rng})
	return id
}

// SetPermissionMap installs a permission map and copies its weights into
// the registered Permission records.
func (v *View) SetPermissionMap(pm PermMap) {
	v.permMap = pm
	v.hasPermMap = true
	for i := range v.perms {
		if e, ok := pm.Lookup(v.perms[i].ClassID, v.perms[i].ID); ok {
			v.perms[i].Weight = e.Weight
			v.perms[i].Direction = e.Direction
		}
	}
}

func (v *View) NumTypes() int      { return len(v.types) }
func (v *View) NumAttribs() int    { return len(v.attribs) }
func (v *View) NumRoles() int      { return len(v.roles) }
func (v *View) NumUsers() int      { return len(v.users) }
func (v *View) NumClasses() int    { return len(v.classes) }
func (v *View) NumPerms() int      { return len(v.perms) }
func (v *View) NumBools() int      { return len(v.bools) }
func (v *View) NumCondExprs() int  { return len(v.condExprs) }
func (v *View) PolicyVersion() int { return v.version }
func (v *View) IsMLS() bool        { return v.mls }
func (v *View) IsBinary() bool     { return v.binary }

func (v *View) Type(id int) (Type, bool) {
	if id < 0 || id >= len(v.types) {
		return Type{}, false
	}
	return v.types[id], true
}

func (v *View) TypeByName(name string) (Type, bool) {
	id, ok := v.typeByName[name]
	if !ok {
		return Type{}, false
	}
	return v.types[id], true
}

func (v *View) Attribute(id int) (Attribute, bool) {
	if id < 0 || id >= len(v.attribs) {
		return Attribute{}, false
	}
	return v.attribs[id], true
}

func (v *View) Class(id int) (Class, bool) {
	if id < 0 || id >= len(v.classes) {
		return Class{}, false
	}
	return v.classes[id], true
}

func (v *View) ClassByName(name string) (Class, bool) {
	id, ok := v.classByName[name]
	if !ok {
		return Class{}, false
	}
	return v.classes[id], true
}

func (v *View) Permission(id int) (Permission, bool) {
	if id < 0 || id >= len(v.perms) {
		return Permission{}, false
	}
	return v.perms[id], true
}

func (v *View) Role(id int) (Role, bool) {
	if id < 0 || id >= len(v.roles) {
		return Role{}, false
	}
	return v.roles[id], true
}

func (v *View) User(id int) (User, bool) {
	if id < 0 || id >= len(v.users) {
		return User{}, false
	}
	return v.users[id], true
}

func (v *View) Bool(id int) (Bool, bool) {
	if id < 0 || id >= len(v.bools) {
		return Bool{}, false
	}
	return v.bools[id], true
}

func (v *View) CondExpr(id int) (CondExpr, bool) {
	if id < 0 || id >= len(v.condExprs) {
		return CondExpr{}, false
	}
	return v.condExprs[id], true
}

func (v *View) ClassPerms(classID int) []int {
	cls, ok := v.Class(classID)
	if !ok {
		return nil
	}
	out := append([]int(nil), cls.OwnPermIDs...)
	if cls.CommonPermID >= 0 {
		if common, ok := v.Class(cls.CommonPermID); ok {
			out = append(out, common.OwnPermIDs...)
		}
	}
	return out
}

func (v *View) AVRules() []AVRule                             { return v.avRules }
func (v *View) TERules() []TERule                             { return v.teRules }
func (v *View) RoleTransitionRules() []RoleTransitionRule     { return v.roleTrans }
func (v *View) RoleAllowRules() []RoleAllowRule               { return v.roleAllow }
func (v *View) RangeTransitionRules() []RangeTransitionRule   { return v.rangeTrans }

func (v *View) PermissionMap() (PermMap, bool) { return v.permMap, v.hasPermMap }

var _ Interface = (*View)(nil)
