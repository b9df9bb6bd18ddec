package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cici0602/sepolicy-engine/internal/policyview"
)

// fixturePolicy is the on-disk shape of the demo JSON policy the CLI
// loads in place of a real binary policy reader (out of scope per the
// core packages). It covers enough of the policy language to exercise
// the rule index, DTA, and information-flow engines end to end:
// types, attributes, classes/permissions, a permission map, and AV/TE
// rules. Roles, users, conditionals, and range_transition are not
// represented here; the in-memory policyview.View builder supports them
// for tests, but the demo fixture format does not need them.
type fixturePolicy struct {
	Version int  `json:"version"`
	MLS     bool `json:"mls"`

	Types      []string             `json:"types"`
	Attributes []fixtureAttribute   `json:"attributes"`
	Classes    []fixtureClass       `json:"classes"`
	PermMap    []fixturePermMapItem `json:"perm_map"`
	AVRules    []fixtureAVRule      `json:"av_rules"`
	TERules    []fixtureTERule      `json:"te_rules"`
}

type fixtureAttribute struct {
	Name  string   `json:"name"`
	Types []string `json:"types"`
}

type fixtureClass struct {
	Name  string   `json:"name"`
	Perms []string `json:"perms"`
}

type fixturePermMapItem struct {
	Class     string `json:"class"`
	Perm      string `json:"perm"`
	Direction string `json:"direction"` // "read", "write", or "both"
	Weight    int    `json:"weight"`
}

// fixtureAVRule mirrors one allow/neverallow/auditallow/dontaudit rule.
// Src/Tgt list type names; "self" is recognized as the literal target
// self-reference. Perms "*" means every permission the listed classes
// define (PermStar).
type fixtureAVRule struct {
	Kind    string   `json:"kind"`
	Src     []string `json:"src"`
	Tgt     []string `json:"tgt"`
	Classes []string `json:"classes"`
	Perms   []string `json:"perms"`
}

// fixtureTERule mirrors one type_transition rule (the only TE kind the
// demo loader emits; type_member/type_change follow the same shape but
// DTA and IFA never consume them).
type fixtureTERule struct {
	Src     []string `json:"src"`
	Tgt     []string `json:"tgt"`
	Classes []string `json:"classes"`
	Default string   `json:"default"`
}

// loadFixture reads path and builds a policyview.View from it.
func loadFixture(path string) (*policyview.View, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy fixture: %w", err)
	}
	var fp fixturePolicy
	if err := json.Unmarshal(data, &fp); err != nil {
		return nil, fmt.Errorf("parse policy fixture: %w", err)
	}
	return buildView(fp)
}

func buildView(fp fixturePolicy) (*policyview.View, error) {
	version := fp.Version
	if version == 0 {
		version = 30
	}
	v := policyview.New(version)
	v.SetMLS(fp.MLS)

	typeIDs := make(map[string]int, len(fp.Types))
	for _, name := range fp.Types {
		typeIDs[name] = v.AddType(name)
	}
	for _, attr := range fp.Attributes {
		ids := make([]int, 0, len(attr.Types))
		for _, name := range attr.Types {
			id, ok := typeIDs[name]
			if !ok {
				return nil, fmt.Errorf("attribute %q references unknown type %q", attr.Name, name)
			}
			ids = append(ids, id)
		}
		v.AddAttribute(attr.Name, ids...)
	}

	// AddClass wants its own-permission ids up front, but AddPermission
	// wants a class id to stamp onto the permission -- so class ids are
	// predicted here (View assigns them densely in append order,
	// starting from the view's current class count) before either call
	// happens.
	classIDs := make(map[string]int, len(fp.Classes))
	permIDs := make(map[string]map[string]int, len(fp.Classes))
	classBase := v.NumClasses()
	for i, cls := range fp.Classes {
		classIDs[cls.Name] = classBase + i
	}
	for _, cls := range fp.Classes {
		classID := classIDs[cls.Name]
		permIDs[cls.Name] = make(map[string]int, len(cls.Perms))
		ownPerms := make([]int, 0, len(cls.Perms))
		for _, permName := range cls.Perms {
			id := v.AddPermission(permName, classID)
			permIDs[cls.Name][permName] = id
			ownPerms = append(ownPerms, id)
		}
		v.AddClass(cls.Name, -1, ownPerms...)
	}

	pm := policyview.NewPermMap()
	for _, item := range fp.PermMap {
		classID, ok := classIDs[item.Class]
		if !ok {
			return nil, fmt.Errorf("perm_map entry references unknown class %q", item.Class)
		}
		permID, ok := permIDs[item.Class][item.Perm]
		if !ok {
			return nil, fmt.Errorf("perm_map entry references unknown permission %q on class %q", item.Perm, item.Class)
		}
		dir, err := parseDirection(item.Direction)
		if err != nil {
			return nil, err
		}
		if err := pm.Set(classID, permID, dir, item.Weight); err != nil {
			return nil, err
		}
	}
	if len(fp.PermMap) > 0 {
		v.SetPermissionMap(pm)
	}

	for _, r := range fp.AVRules {
		kind, err := parseRuleKind(r.Kind)
		if err != nil {
			return nil, err
		}
		src, srcFlags, err := resolveTaSet(typeIDs, r.Src, policyview.SrcStar)
		if err != nil {
			return nil, err
		}
		tgt, tgtFlags, err := resolveTaSet(typeIDs, r.Tgt, policyview.TgtStar)
		if err != nil {
			return nil, err
		}
		classes := make([]int, 0, len(r.Classes))
		for _, name := range r.Classes {
			id, ok := classIDs[name]
			if !ok {
				return nil, fmt.Errorf("av_rules entry references unknown class %q", name)
			}
			classes = append(classes, id)
		}
		perms, permFlags, err := resolvePerms(permIDs, r.Classes, r.Perms)
		if err != nil {
			return nil, err
		}
		v.AddAVRule(kind, src, tgt, classes, perms, srcFlags|tgtFlags|permFlags, policyview.CondRef{ExprID: -1})
	}

	for _, r := range fp.TERules {
		src, srcFlags, err := resolveTaSet(typeIDs, r.Src, policyview.SrcStar)
		if err != nil {
			return nil, err
		}
		tgt, tgtFlags, err := resolveTaSet(typeIDs, r.Tgt, policyview.TgtStar)
		if err != nil {
			return nil, err
		}
		classes := make([]int, 0, len(r.Classes))
		for _, name := range r.Classes {
			id, ok := classIDs[name]
			if !ok {
				return nil, fmt.Errorf("te_rules entry references unknown class %q", name)
			}
			classes = append(classes, id)
		}
		defID, ok := typeIDs[r.Default]
		if !ok {
			return nil, fmt.Errorf("te_rules entry references unknown default type %q", r.Default)
		}
		v.AddTERule(policyview.RuleTypeTransition, src, tgt, classes, defID, srcFlags|tgtFlags, policyview.CondRef{ExprID: -1})
	}

	return v, nil
}

func parseDirection(s string) (policyview.Direction, error) {
	switch s {
	case "read":
		return policyview.DirRead, nil
	case "write":
		return policyview.DirWrite, nil
	case "both":
		return policyview.DirRead | policyview.DirWrite, nil
	default:
		return 0, fmt.Errorf("perm_map direction must be read/write/both, got %q", s)
	}
}

func parseRuleKind(s string) (policyview.RuleKind, error) {
	switch s {
	case "allow":
		return policyview.RuleAllow, nil
	case "neverallow":
		return policyview.RuleNeverAllow, nil
	case "auditallow":
		return policyview.RuleAuditAllow, nil
	case "dontaudit":
		return policyview.RuleDontAudit, nil
	default:
		return 0, fmt.Errorf("av_rules kind must be allow/neverallow/auditallow/dontaudit, got %q", s)
	}
}

// resolveTaSet turns a list of type names into a TaSet, recognizing the
// single-element forms "*" (star, reported via starFlag) and "self".
func resolveTaSet(typeIDs map[string]int, names []string, starFlag policyview.RuleFlags) (policyview.TaSet, policyview.RuleFlags, error) {
	if len(names) == 1 && names[0] == "*" {
		return policyview.TaSet{}, starFlag, nil
	}
	if len(names) == 1 && names[0] == "self" {
		return policyview.Self(), 0, nil
	}
	set := policyview.TaSet{}
	for _, name := range names {
		id, ok := typeIDs[name]
		if !ok {
			return policyview.TaSet{}, 0, fmt.Errorf("rule references unknown type %q", name)
		}
		set.Elems = append(set.Elems, policyview.TaElem{Kind: policyview.TaType, ID: id})
	}
	return set, 0, nil
}

// resolvePerms turns a permission-name list into ids, recognizing "*"
// (PermStar, every permission of the listed classes).
func resolvePerms(permIDs map[string]map[string]int, classNames, names []string) ([]int, policyview.RuleFlags, error) {
	if len(names) == 1 && names[0] == "*" {
		return nil, policyview.PermStar, nil
	}
	var out []int
	for _, permName := range names {
		found := false
		for _, className := range classNames {
			if id, ok := permIDs[className][permName]; ok {
				out = append(out, id)
				found = true
				break
			}
		}
		if !found {
			return nil, 0, fmt.Errorf("rule references unknown permission %q", permName)
		}
	}
	return out, 0, nil
}
