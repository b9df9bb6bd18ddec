package cmd

import (
	"testing"

	"github.com/cici0602/sepolicy-engine/internal/policyview"
)

func TestBuildViewResolvesTypesClassesAndRules(t *testing.T) {
	fp := fixturePolicy{
		Version: 30,
		Types:   []string{"init_t", "httpd_t", "httpd_exec_t"},
		Classes: []fixtureClass{
			{Name: "process", Perms: []string{"transition"}},
			{Name: "file", Perms: []string{"execute", "entrypoint"}},
		},
		PermMap: []fixturePermMapItem{
			{Class: "file", Perm: "execute", Direction: "read", Weight: 2},
		},
		AVRules: []fixtureAVRule{
			{Kind: "allow", Src: []string{"init_t"}, Tgt: []string{"httpd_t"}, Classes: []string{"process"}, Perms: []string{"transition"}},
			{Kind: "allow", Src: []string{"init_t"}, Tgt: []string{"httpd_exec_t"}, Classes: []string{"file"}, Perms: []string{"execute"}},
		},
		TERules: []fixtureTERule{
			{Src: []string{"init_t"}, Tgt: []string{"httpd_exec_t"}, Classes: []string{"process"}, Default: "httpd_t"},
		},
	}

	v, err := buildView(fp)
	if err != nil {
		t.Fatalf("buildView() error = %v", err)
	}

	if v.NumTypes() != 4 { // self + 3
		t.Errorf("NumTypes() = %d, want 4", v.NumTypes())
	}
	if v.NumClasses() != 2 {
		t.Errorf("NumClasses() = %d, want 2", v.NumClasses())
	}
	if len(v.AVRules()) != 2 {
		t.Errorf("len(AVRules()) = %d, want 2", len(v.AVRules()))
	}
	if len(v.TERules()) != 1 {
		t.Errorf("len(TERules()) = %d, want 1", len(v.TERules()))
	}

	fileClass, ok := v.ClassByName("file")
	if !ok {
		t.Fatalf("file class not found")
	}
	if perms := v.ClassPerms(fileClass.ID); len(perms) != 2 {
		t.Errorf("ClassPerms(file) = %v, want 2 perms", perms)
	}

	pm, ok := v.PermissionMap()
	if !ok {
		t.Fatalf("expected permission map to be set")
	}
	execPermID := -1
	for _, id := range v.ClassPerms(fileClass.ID) {
		p, _ := v.Permission(id)
		if p.Name == "execute" {
			execPermID = id
		}
	}
	if execPermID < 0 {
		t.Fatalf("execute permission not found on file class")
	}
	entry, ok := pm.Lookup(fileClass.ID, execPermID)
	if !ok || entry.Weight != 2 || !entry.Direction.HasRead() {
		t.Errorf("perm map entry = %+v ok=%v, want weight=2 read", entry, ok)
	}
}

func TestBuildViewRejectsUnknownType(t *testing.T) {
	fp := fixturePolicy{
		Types: []string{"init_t"},
		Classes: []fixtureClass{
			{Name: "process", Perms: []string{"transition"}},
		},
		AVRules: []fixtureAVRule{
			{Kind: "allow", Src: []string{"init_t"}, Tgt: []string{"nonexistent_t"}, Classes: []string{"process"}, Perms: []string{"transition"}},
		},
	}

	if _, err := buildView(fp); err == nil {
		t.Fatal("expected an error for a rule referencing an unknown type")
	}
}

func TestBuildViewStarSetsWildcardFlags(t *testing.T) {
	fp := fixturePolicy{
		Types: []string{"init_t", "httpd_t"},
		Classes: []fixtureClass{
			{Name: "process", Perms: []string{"transition"}},
		},
		AVRules: []fixtureAVRule{
			{Kind: "allow", Src: []string{"*"}, Tgt: []string{"self"}, Classes: []string{"process"}, Perms: []string{"*"}},
		},
	}

	v, err := buildView(fp)
	if err != nil {
		t.Fatalf("buildView() error = %v", err)
	}
	rules := v.AVRules()
	if len(rules) != 1 {
		t.Fatalf("len(AVRules()) = %d, want 1", len(rules))
	}
	if rules[0].Flags&policyview.SrcStar == 0 {
		t.Errorf("expected SrcStar flag set, got flags=%v", rules[0].Flags)
	}
	if rules[0].Flags&policyview.PermStar == 0 {
		t.Errorf("expected PermStar flag set, got flags=%v", rules[0].Flags)
	}
}
