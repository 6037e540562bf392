package validate

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/nugget/hacheck/internal/config"
	"github.com/nugget/hacheck/internal/derived"
	"github.com/nugget/hacheck/internal/registry"
	"github.com/nugget/hacheck/internal/value"
)

// fixture is a configuration directory with registry snapshots.
type fixture struct {
	t   *testing.T
	dir string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{t: t, dir: t.TempDir()}
	f.write(".storage/core.entity_registry", `{"data": {"entities": [
		{"entity_id": "light.kitchen", "id": "0123456789abcdef0123456789abcdef", "disabled_by": null},
		{"entity_id": "sensor.old_temp", "id": "fedcba9876543210fedcba9876543210", "disabled_by": "user"},
		{"entity_id": "binary_sensor.door", "id": "11111111111111111111111111111111"}
	]}}`)
	f.write(".storage/core.device_registry", `{"data": {"devices": [{"id": "dev_known"}]}}`)
	f.write(".storage/core.area_registry", `{"data": {"areas": [{"id": "kitchen"}]}}`)
	return f
}

func (f *fixture) write(name, content string) string {
	f.t.Helper()
	path := filepath.Join(f.dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		f.t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		f.t.Fatal(err)
	}
	return path
}

func (f *fixture) validator() *Validator {
	return New(Options{ConfigDir: f.dir, Workers: 2})
}

func containsText(list []string, sub string) bool {
	for _, s := range list {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func TestFile_UnknownZone(t *testing.T) {
	f := newFixture(t)
	path := f.write("automations.yaml", `
- alias: Arrive
  trigger:
    - platform: zone
      entity_id: person.nobody
      zone: zone.home
  condition:
    - condition: zone
      entity_id: zone.nonexistent_zone
  action:
    - service: light.turn_on
      target:
        entity_id: light.kitchen
`)
	r := f.validator().File(context.Background(), path)
	if !containsText(r.Errors, "zone.nonexistent_zone") {
		t.Errorf("errors = %v, want zone.nonexistent_zone", r.Errors)
	}
	if containsText(r.Errors, "light.kitchen") {
		t.Errorf("registered entity reported: %v", r.Errors)
	}
}

func TestFile_PersistentNotificationNotSkipped(t *testing.T) {
	f := newFixture(t)
	path := f.write("scripts.yaml", `
notify_me:
  sequence:
    - service: persistent_notification.dismiss
      target:
        entity_id: persistent_notification.fake_notification
`)
	r := f.validator().File(context.Background(), path)
	want := path + ": Unknown entity 'persistent_notification.fake_notification'"
	if len(r.Errors) != 1 || r.Errors[0] != want {
		t.Errorf("errors = %v, want [%s]", r.Errors, want)
	}
}

func TestFile_DisabledEntityWarns(t *testing.T) {
	f := newFixture(t)
	path := f.write("scenes.yaml", `
- name: Cozy
  entities:
    sensor.old_temp: {}
  entity_id: [sensor.old_temp]
`)
	r := f.validator().File(context.Background(), path)
	if len(r.Errors) != 0 {
		t.Errorf("errors = %v, want none", r.Errors)
	}
	want := path + ": References disabled entity 'sensor.old_temp'"
	if len(r.Warnings) != 1 || r.Warnings[0] != want {
		t.Errorf("warnings = %v, want [%s]", r.Warnings, want)
	}
}

func TestFile_ConfigDerivedResolves(t *testing.T) {
	f := newFixture(t)
	f.write("configuration.yaml", `
zone:
  - name: Work
    latitude: 40.0
    longitude: -74.0
    radius: 100
input_boolean:
  guest_mode: {}
`)
	f.write(".storage/core.zone", `{"data": {"items": [{"name": "Office"}]}}`)
	path := f.write("automations.yaml", `
- alias: Commute
  trigger:
    - platform: zone
      entity_id: zone.work
    - platform: state
      entity_id: [zone.office, input_boolean.guest_mode, sun.sun]
  action:
    - service: automation.trigger
      target:
        entity_id: automation.commute
`)
	r := f.validator().File(context.Background(), path)
	if len(r.Errors) != 0 {
		t.Errorf("errors = %v, want none", r.Errors)
	}
}

func TestFile_RestoreStateDiagnostic(t *testing.T) {
	f := newFixture(t)
	f.write(".storage/core.restore_state", `{"data": [{"state": {"entity_id": "switch.renamed"}}]}`)
	path := f.write("automations.yaml", `
- alias: Pump
  trigger: []
  action:
    - service: switch.turn_on
      entity_id: switch.renamed
`)
	r := f.validator().File(context.Background(), path)
	if !containsText(r.Errors, "Unknown entity 'switch.renamed'") {
		t.Errorf("errors = %v, want unknown switch.renamed", r.Errors)
	}
	if !containsText(r.Warnings, "Entity 'switch.renamed' not in registry but found in restore state") {
		t.Errorf("warnings = %v, want restore-state note", r.Warnings)
	}
}

func TestFile_RegistryIDs(t *testing.T) {
	f := newFixture(t)
	path := f.write("automations.yaml", `
- alias: Device automation
  trigger:
    - platform: device
      device_id: dev_known
      domain: light
      entity_id: 0123456789abcdef0123456789abcdef
      type: turned_on
  condition:
    - condition: device
      device_id: dev_known
      entity_id: fedcba9876543210fedcba9876543210
      domain: sensor
  action:
    - device_id: dev_missing
      domain: light
      entity_id: aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa
      type: turn_off
      area_id: nowhere
`)
	r := f.validator().File(context.Background(), path)

	wantErrors := []string{
		path + ": Unknown entity registry ID 'aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa'",
		path + ": Unknown device 'dev_missing'",
	}
	if !reflect.DeepEqual(r.Errors, wantErrors) {
		t.Errorf("errors = %v\nwant     %v", r.Errors, wantErrors)
	}
	wantWarnings := []string{
		path + ": Entity registry ID 'fedcba9876543210fedcba9876543210' references disabled entity 'sensor.old_temp'",
		path + ": Unknown area 'nowhere'",
	}
	if !reflect.DeepEqual(r.Warnings, wantWarnings) {
		t.Errorf("warnings = %v\nwant       %v", r.Warnings, wantWarnings)
	}
}

func TestFile_ParseFailureAndEmpty(t *testing.T) {
	f := newFixture(t)
	bad := f.write("broken.yaml", "key: [unclosed\n")
	empty := f.write("empty.yaml", "# nothing here\n")
	v := f.validator()

	r := v.File(context.Background(), bad)
	if len(r.Errors) != 1 || !strings.HasPrefix(r.Errors[0], bad+": Failed to load YAML - ") {
		t.Errorf("errors = %v", r.Errors)
	}
	if r := v.File(context.Background(), empty); !r.OK() || len(r.Warnings) != 0 {
		t.Errorf("empty file result = %+v, want clean", r)
	}
}

func TestFile_MultipleDocumentsRejected(t *testing.T) {
	f := newFixture(t)
	path := f.write("scripts.yaml", "a: {entity_id: light.kitchen}\n---\nb: {entity_id: light.does_not_exist}\n")

	r := f.validator().File(context.Background(), path)
	if len(r.Errors) != 1 || !strings.HasPrefix(r.Errors[0], path+": Failed to load YAML - ") {
		t.Errorf("errors = %v, want one load failure", r.Errors)
	}
}

func TestAutomationsYAML_AliasBomb(t *testing.T) {
	var b strings.Builder
	b.WriteString("- alias: &l0 [x, x, x, x, x, x, x, x, x, x]\n")
	for i := 1; i <= 7; i++ {
		fmt.Fprintf(&b, "- alias: &l%d [*l%d, *l%d, *l%d, *l%d, *l%d, *l%d, *l%d, *l%d, *l%d, *l%d]\n",
			i, i-1, i-1, i-1, i-1, i-1, i-1, i-1, i-1, i-1, i-1)
	}

	v := New(Options{Live: &registry.Static{}})
	r := v.AutomationsYAML(context.Background(), []byte(b.String()), "ui")
	if len(r.Errors) != 1 || !strings.HasPrefix(r.Errors[0], "ui: YAML validation error:") {
		t.Errorf("errors = %v, want one YAML validation error", r.Errors)
	}
}

func TestRun_MissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nope")
	rep := New(Options{ConfigDir: dir}).Run(context.Background())

	want := []string{"Config directory " + dir + " does not exist"}
	if !reflect.DeepEqual(rep.Errors, want) {
		t.Errorf("errors = %v, want %v", rep.Errors, want)
	}
	if len(rep.Files) != 0 {
		t.Errorf("files = %v, want none", rep.Files)
	}
}

func TestRun_NoYAMLFiles(t *testing.T) {
	rep := New(Options{ConfigDir: t.TempDir()}).Run(context.Background())
	if !rep.OK() {
		t.Errorf("errors = %v", rep.Errors)
	}
	if len(rep.Warnings) != 1 || rep.Warnings[0] != "No YAML files found in config directory" {
		t.Errorf("warnings = %v", rep.Warnings)
	}
}

func TestRun_OnlySecrets(t *testing.T) {
	f := newFixture(t)
	f.write("secrets.yaml", "token: abc\n")

	rep := f.validator().Run(context.Background())
	if len(rep.Files) != 0 {
		t.Errorf("files = %+v, want none", rep.Files)
	}
	if len(rep.Warnings) != 1 || rep.Warnings[0] != "No YAML files found in config directory" {
		t.Errorf("warnings = %v", rep.Warnings)
	}
}

func TestYAMLFiles_SkipsSecrets(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"secrets.yaml", "b.yml", "a.yaml", "c.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	got, err := YAMLFiles(dir)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(dir, "a.yaml"), filepath.Join(dir, "b.yml")}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("YAMLFiles = %v, want %v", got, want)
	}
}

func TestRun_Directory(t *testing.T) {
	f := newFixture(t)
	f.write("secrets.yaml", "entity_id: light.secret_not_checked\n")
	f.write("broken.yaml", "a: [\n")
	f.write("empty.yml", "")
	good := f.write("scripts.yaml", `
wake:
  sequence:
    - service: light.turn_on
      target:
        entity_id: light.kitchen
        area_id: kitchen
`)
	bad := f.write("automations.yaml", `
- alias: Bad
  trigger: []
  action:
    - service: light.turn_on
      target:
        entity_id: [light.missing_b, light.missing_a]
`)
	f.write("notes.txt", "entity_id: light.not_yaml\n")

	rep := f.validator().Run(context.Background())

	if len(rep.Files) != 4 {
		t.Fatalf("files = %d, want 4", len(rep.Files))
	}
	for _, fr := range rep.Files {
		if filepath.Base(fr.Path) == "secrets.yaml" {
			t.Errorf("secrets.yaml listed in files")
		}
	}
	for i := 1; i < len(rep.Files); i++ {
		if rep.Files[i-1].Path > rep.Files[i].Path {
			t.Errorf("files not sorted: %s before %s", rep.Files[i-1].Path, rep.Files[i].Path)
		}
	}

	wantErrors := []string{
		bad + ": Unknown entity 'light.missing_a'",
		bad + ": Unknown entity 'light.missing_b'",
	}
	var gotErrors []string
	for _, e := range rep.Errors {
		if !strings.Contains(e, "broken.yaml") {
			gotErrors = append(gotErrors, e)
		}
	}
	if !reflect.DeepEqual(gotErrors, wantErrors) {
		t.Errorf("errors = %v\nwant     %v", gotErrors, wantErrors)
	}
	if !containsText(rep.Errors, "broken.yaml: Failed to load YAML - ") {
		t.Errorf("parse failure not isolated to broken.yaml: %v", rep.Errors)
	}
	if containsText(rep.Errors, "secret_not_checked") || containsText(rep.Errors, "not_yaml") {
		t.Errorf("skipped files were checked: %v", rep.Errors)
	}
	for _, fr := range rep.Files {
		if fr.Path == good && (!fr.Result.OK() || len(fr.Result.Warnings) != 0) {
			t.Errorf("scripts.yaml result = %+v, want clean", fr.Result)
		}
	}
}

func TestRun_Deterministic(t *testing.T) {
	f := newFixture(t)
	for _, name := range []string{"a.yaml", "b.yaml", "c.yaml", "d.yaml"} {
		f.write(name, `
entity_id: [light.z, light.y, light.x]
device_id: [d3, d2, d1]
area_id: [a3, a2, a1]
`)
	}
	first := f.validator().Run(context.Background())
	for i := 0; i < 5; i++ {
		again := f.validator().Run(context.Background())
		if !reflect.DeepEqual(first.Result, again.Result) {
			t.Fatalf("run %d differs:\n%v\n%v", i, first.Result, again.Result)
		}
	}
}

func TestRun_MissingRegistriesFailLoud(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "automations.yaml"), []byte(`
- alias: Lights
  trigger: []
  action:
    - service: light.turn_on
      target:
        entity_id: light.kitchen
        device_id: dev1
        area_id: den
`), 0o644); err != nil {
		t.Fatal(err)
	}

	rep := New(Options{ConfigDir: dir}).Run(context.Background())

	for _, want := range []string{
		"Entity registry not found:",
		"Device registry not found:",
		"Unknown entity 'light.kitchen'",
		"Unknown device 'dev1'",
	} {
		if !containsText(rep.Errors, want) {
			t.Errorf("errors missing %q: %v", want, rep.Errors)
		}
	}
	for _, want := range []string{"Area registry not found:", "Unknown area 'den'"} {
		if !containsText(rep.Warnings, want) {
			t.Errorf("warnings missing %q: %v", want, rep.Warnings)
		}
	}
}

func TestAutomationsYAML_Structure(t *testing.T) {
	tests := []struct {
		name         string
		content      string
		wantErrors   int
		wantWarnings int
	}{
		{"missing alias only", `[{trigger: [], action: []}]`, 0, 1},
		{"alias without trigger or action", `[{alias: "x"}]`, 2, 0},
		{"plural keys", `[{alias: a, triggers: [], actions: []}]`, 0, 0},
		{"blueprint", `[{alias: b, use_blueprint: {path: motion.yaml}}]`, 0, 0},
		{"not a list", `alias: x`, 1, 0},
		{"item not a mapping", `[just a string]`, 1, 0},
		{"empty", ``, 0, 0},
		{"duplicate id", `[{id: "1", alias: a, trigger: [], action: []}, {id: "1", alias: b, trigger: [], action: []}]`, 0, 1},
		{"duplicate alias", `[{alias: Porch, trigger: [], action: []}, {alias: Porch, triggers: [], actions: []}]`, 0, 1},
		{"identical content", `[{trigger: [], action: []}, {trigger: [], action: []}]`, 0, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New(Options{Live: &registry.Static{}})
			r := v.AutomationsYAML(context.Background(), []byte(tt.content), "")
			if len(r.Errors) != tt.wantErrors {
				t.Errorf("errors = %v, want %d", r.Errors, tt.wantErrors)
			}
			if len(r.Warnings) != tt.wantWarnings {
				t.Errorf("warnings = %v, want %d", r.Warnings, tt.wantWarnings)
			}
			if r.Errors == nil || r.Warnings == nil {
				t.Error("result slices should be non-nil")
			}
		})
	}
}

func TestAutomations_DuplicateMessage(t *testing.T) {
	doc, err := value.Parse([]byte(`
- alias: Porch
  trigger: []
  action: []
- alias: Hall
  trigger: []
  action: []
- alias: Porch
  trigger: []
  action: []
`))
	if err != nil {
		t.Fatal(err)
	}
	r := Automations("automations.yaml", doc)
	want := []string{"automations.yaml: Automation 2 duplicates automation 0 (same alias 'Porch')"}
	if !reflect.DeepEqual(r.Warnings, want) {
		t.Errorf("warnings = %v, want %v", r.Warnings, want)
	}
}

func TestAutomationsYAML_References(t *testing.T) {
	live := &registry.Static{
		EntityList: []registry.Entity{{EntityID: "light.porch"}},
		DeviceList: []registry.Device{{ID: "dev1"}},
	}
	v := New(Options{Live: live})
	r := v.AutomationsYAML(context.Background(), []byte(`
- alias: Porch
  trigger:
    - platform: sun
      event: sunset
      entity_id: sun.sun
  action:
    - service: light.turn_on
      target:
        entity_id: [light.porch, light.garden]
        device_id: dev1
`), "ui")

	want := []string{"ui: Unknown entity 'light.garden'"}
	if !reflect.DeepEqual(r.Errors, want) {
		t.Errorf("errors = %v, want %v", r.Errors, want)
	}
}

func TestAutomationsYAML_ParseError(t *testing.T) {
	v := New(Options{Live: &registry.Static{}})
	r := v.AutomationsYAML(context.Background(), []byte("- alias: [\n"), "automations.yaml")
	if len(r.Errors) != 1 || !strings.HasPrefix(r.Errors[0], "automations.yaml: YAML validation error:") {
		t.Errorf("errors = %v", r.Errors)
	}
}

func TestCheck_NoDomainIsExempt(t *testing.T) {
	doc, err := value.Parse([]byte(`
entity_id:
  - zone.nonexistent_zone
  - persistent_notification.fake_notification
  - sun.sun
  - zone.home
`))
	if err != nil {
		t.Fatal(err)
	}
	r := Check("cfg", doc, &registry.Snapshot{}, derived.Derive(derived.Sources{}))
	want := []string{
		"cfg: Unknown entity 'persistent_notification.fake_notification'",
		"cfg: Unknown entity 'zone.nonexistent_zone'",
	}
	if !reflect.DeepEqual(r.Errors, want) {
		t.Errorf("errors = %v, want %v", r.Errors, want)
	}
}

func TestDocument_TraceLogging(t *testing.T) {
	f := newFixture(t)
	var buf bytes.Buffer
	logger := config.NewLogger(&buf, config.LevelTrace, config.LogFormatText)
	v := New(Options{ConfigDir: f.dir, Logger: logger})

	doc, err := value.Parse([]byte("entity_id: [light.kitchen, light.nowhere, sun.sun]\ndevice_id: dev_known\n"))
	if err != nil {
		t.Fatal(err)
	}
	r := v.Document(context.Background(), "trace.yaml", doc)
	if len(r.Errors) != 1 {
		t.Fatalf("errors = %v, want one unknown entity", r.Errors)
	}

	out := buf.String()
	for _, want := range []string{
		`msg="references extracted" file=trace.yaml kind=entity count=3`,
		`kind=device count=1`,
		`kind="entity registry id" count=0`,
		`entity=light.kitchen source=registry`,
		`entity=sun.sun source=derived`,
		`entity=light.nowhere source=unknown`,
		"level=TRACE",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("trace log missing %q:\n%s", want, out)
		}
	}
}

func TestDocument_Nil(t *testing.T) {
	v := New(Options{Live: &registry.Static{}})
	if r := v.Document(context.Background(), "label", nil); !r.OK() || len(r.Warnings) != 0 {
		t.Errorf("nil document result = %+v", r)
	}
}
