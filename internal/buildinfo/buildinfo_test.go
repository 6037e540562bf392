package buildinfo

import (
	"strings"
	"testing"
)

func TestInfo_HasEveryField(t *testing.T) {
	info := Info()
	for _, k := range Fields {
		if info[k] == "" {
			t.Errorf("Info()[%q] is empty", k)
		}
	}
	if len(info) != len(Fields) {
		t.Errorf("Info() has %d keys, Fields lists %d", len(info), len(Fields))
	}
}

func TestStampedVersionWins(t *testing.T) {
	old := Version
	t.Cleanup(func() { Version = old })
	Version = "v1.2.3"

	if got := Info()["version"]; got != "v1.2.3" {
		t.Errorf("version = %q, want stamped v1.2.3", got)
	}
	if got := UserAgent(); got != "hacheck/v1.2.3" {
		t.Errorf("UserAgent() = %q", got)
	}
	if !strings.HasPrefix(String(), "hacheck v1.2.3 (") {
		t.Errorf("String() = %q", String())
	}
}
