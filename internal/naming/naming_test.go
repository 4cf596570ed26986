package naming

import "testing"

func TestMasterChildRoundTrip(t *testing.T) {
	master, err := MasterName("DEMO")
	if err != nil {
		t.Fatalf("MasterName: %v", err)
	}
	if master != "parallel_DEMO_task_master" {
		t.Fatalf("got %q", master)
	}

	parsed, ok := Parse(master)
	if !ok || parsed.Role != RoleMaster || parsed.ProjectID != "DEMO" {
		t.Fatalf("Parse(%q) = %+v, %v", master, parsed, ok)
	}

	child, err := ChildName("DEMO", "T1")
	if err != nil {
		t.Fatalf("ChildName: %v", err)
	}
	if child != "parallel_DEMO_task_child_T1" {
		t.Fatalf("got %q", child)
	}

	parsedChild, ok := Parse(child)
	if !ok || parsedChild.Role != RoleChild || parsedChild.ProjectID != "DEMO" || parsedChild.TaskID != "T1" {
		t.Fatalf("Parse(%q) = %+v, %v", child, parsedChild, ok)
	}
}

func TestParse_RejectsForeignNames(t *testing.T) {
	cases := []string{
		"",
		"random-tmux-session",
		"parallel_",
		"parallel_DEMO",
		"parallel_DEMO_task_child_",
	}
	for _, c := range cases {
		if _, ok := Parse(c); ok {
			t.Errorf("Parse(%q) unexpectedly succeeded", c)
		}
	}
}

func TestIsProjectSession(t *testing.T) {
	child, _ := ChildName("DEMO", "T1")
	if !IsProjectSession(child, "DEMO") {
		t.Fatalf("expected %q to belong to project DEMO", child)
	}
	if IsProjectSession(child, "OTHER") {
		t.Fatalf("expected %q to not belong to project OTHER", child)
	}
}

func TestValidateIdentifier_RejectsIllegalCharacters(t *testing.T) {
	badIDs := []string{"", " ", "has space", "has:colon", "has/slash", "has\\backslash", "trailing \t", "_task_master_spoof"}
	for _, id := range badIDs {
		if _, err := MasterName(id); err == nil {
			t.Errorf("MasterName(%q) expected ErrInvalidName, got nil", id)
		}
		if _, err := ChildName(id, "T1"); err == nil {
			t.Errorf("ChildName(%q, T1) expected ErrInvalidName, got nil", id)
		}
	}
}

func TestNameLengthLimit(t *testing.T) {
	long := make([]byte, 120)
	for i := range long {
		long[i] = 'a'
	}
	if _, err := MasterName(string(long)); err == nil {
		t.Fatalf("expected ErrInvalidName for an overlong project id")
	}
}
