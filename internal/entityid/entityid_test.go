package entityid

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

// registryID mints an id in the dashless form Home Assistant uses for
// entity registry rows.
func registryID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Turn On Lights", "turn_on_lights"},
		{"My-Complex Automation Name!", "my_complex_automation_name"},
		{"  Living Room Temperature ", "living_room_temperature"},
		{"already_slugged", "already_slugged"},
		{"__Leading and trailing__", "leading_and_trailing"},
		{"multi   space -- dash", "multi_space_dash"},
		{"Work", "work"},
		{"!!!", ""},
		{"", ""},
		{"Café Lights", "caf_lights"},
	}

	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"light.kitchen", true},
		{"sensor.temp_2", true},
		{"light", false},
		{".kitchen", false},
		{"light.", false},
		{"Light.Kitchen", false},
		{"light.kitchen.extra", false},
		{"light.kitchen-lamp", false},
	}

	for _, tt := range tests {
		if got := IsValid(tt.in); got != tt.want {
			t.Errorf("IsValid(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestIsRegistryID(t *testing.T) {
	for i := 0; i < 20; i++ {
		id := registryID()
		if !IsRegistryID(id) {
			t.Errorf("IsRegistryID(%q) = false, want true", id)
		}
		if IsRegistryID(strings.ToUpper(id)) {
			t.Errorf("IsRegistryID(%q) = true for uppercase, want false", strings.ToUpper(id))
		}
	}

	for _, s := range []string{"abc123", uuid.NewString(), "light.kitchen", ""} {
		if IsRegistryID(s) {
			t.Errorf("IsRegistryID(%q) = true, want false", s)
		}
	}
}

func TestIsTemplate(t *testing.T) {
	if !IsTemplate("{{ trigger.entity_id }}") {
		t.Error("expected template to be detected")
	}
	if !IsTemplate("light.{{ room }}") {
		t.Error("expected embedded template to be detected")
	}
	if IsTemplate("light.kitchen") {
		t.Error("plain entity id detected as template")
	}
	if IsTemplate("{{ unterminated") {
		t.Error("unterminated braces detected as template")
	}
}

func TestBuiltinDomainsEmpty(t *testing.T) {
	if len(BuiltinDomains) != 0 {
		t.Fatalf("BuiltinDomains = %v, want empty", BuiltinDomains)
	}
	for _, id := range []string{"zone.some_zone", "persistent_notification.test", "sun.sun"} {
		if IsBuiltinDomain(id) {
			t.Errorf("IsBuiltinDomain(%q) = true, want false", id)
		}
	}
}

func TestSet(t *testing.T) {
	s := NewSet("b.two", "a.one")
	s.Add("c.three")
	s.Add("a.one")

	if len(s) != 3 {
		t.Fatalf("len = %d, want 3", len(s))
	}
	if !s.Has("b.two") || s.Has("d.four") {
		t.Error("Has returned wrong membership")
	}

	other := NewSet("d.four")
	s.Union(other)
	got := strings.Join(s.Sorted(), ",")
	if got != "a.one,b.two,c.three,d.four" {
		t.Errorf("Sorted = %s", got)
	}

	var empty Set
	if empty.Has("x.y") {
		t.Error("nil set reported membership")
	}
}
