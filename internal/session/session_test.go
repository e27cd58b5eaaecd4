package session

import "testing"

func TestValidateName(t *testing.T) {
	valid := []string{"main", "work", "a", "my-team_01"}
	for _, name := range valid {
		if err := ValidateName(name); err != nil {
			t.Errorf("ValidateName(%q) error = %v", name, err)
		}
	}

	invalid := []string{"", "UPPER", "has space", "dot.name", "x/y"}
	for _, name := range invalid {
		if err := ValidateName(name); err == nil {
			t.Errorf("ValidateName(%q) expected error", name)
		}
	}
}

func TestResolveFlagWins(t *testing.T) {
	if got := Resolve("override"); got != "override" {
		t.Errorf("Resolve() = %q, want override", got)
	}
}

func TestPathsAreSessionScoped(t *testing.T) {
	if Dir("a") == Dir("b") {
		t.Error("session dirs must differ per session")
	}
	if CacheDBPath("a") == CacheDBPath("b") {
		t.Error("cache paths must differ per session")
	}
}
