package validate

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/nugget/hacheck/internal/derived"
	"github.com/nugget/hacheck/internal/entityid"
	"github.com/nugget/hacheck/internal/refs"
	"github.com/nugget/hacheck/internal/registry"
	"github.com/nugget/hacheck/internal/value"
)

// secretsFile is never validated; it holds credentials, not references.
const secretsFile = "secrets.yaml"

// Options configures a Validator.
type Options struct {
	// ConfigDir is the Home Assistant configuration directory. Registry
	// snapshots are read from its .storage subdirectory. It may be empty
	// when a live provider supplies the registries.
	ConfigDir string

	// Live, when set, is tried before the on-disk registries.
	Live registry.Provider

	// Workers bounds the per-file fan-out of Run. Zero means GOMAXPROCS.
	Workers int

	Logger *slog.Logger
}

// Validator checks configuration documents against one registry
// snapshot. The snapshot and the config-derived entity set are loaded
// on first use and then shared read-only, so a Validator must not be
// used concurrently before its first call returns.
type Validator struct {
	configDir string
	storage   *registry.Storage
	loader    *registry.Loader
	workers   int
	logger    *slog.Logger

	snapshot *registry.Snapshot
	derived  entityid.Set
}

// New returns a Validator for opts.
func New(opts Options) *Validator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var storage *registry.Storage
	if opts.ConfigDir != "" {
		storage = registry.NewStorage(opts.ConfigDir)
	}

	return &Validator{
		configDir: opts.ConfigDir,
		storage:   storage,
		loader:    registry.NewLoader(opts.Live, storage, logger),
		workers:   workers,
		logger:    logger,
	}
}

// prepare loads the registries and the config-derived set once.
func (v *Validator) prepare(ctx context.Context) {
	if v.snapshot != nil {
		return
	}
	v.snapshot = v.loader.Load(ctx)
	if v.configDir != "" {
		v.derived = derived.Entities(v.configDir, v.storage, v.logger)
	} else {
		v.derived = derived.Derive(derived.Sources{})
	}
	v.logger.Debug("validator prepared",
		"entities", len(v.snapshot.Entities),
		"devices", len(v.snapshot.Devices),
		"areas", len(v.snapshot.Areas),
		"derived", len(v.derived),
	)
}

// Snapshot returns the registry snapshot, loading it if needed.
func (v *Validator) Snapshot(ctx context.Context) *registry.Snapshot {
	v.prepare(ctx)
	return v.snapshot
}

// Derived returns the config-derived entity set, loading it if needed.
func (v *Validator) Derived(ctx context.Context) entityid.Set {
	v.prepare(ctx)
	return v.derived
}

// Diagnostics returns registry load problems as a Result.
func (v *Validator) Diagnostics() Result {
	d := v.loader.Diagnostics()
	return Result{Errors: d.Errors, Warnings: d.Warnings}
}

// Document checks the references in one parsed document.
func (v *Validator) Document(ctx context.Context, label string, doc value.Value) Result {
	if doc == nil {
		return Result{}
	}
	v.prepare(ctx)
	return classify(ctx, v.logger, label, refs.Extract(doc), v.snapshot, v.derived)
}

// File parses path and checks its references. A parse failure is
// reported against path and nothing else is checked.
func (v *Validator) File(ctx context.Context, path string) Result {
	if filepath.Base(path) == secretsFile {
		return Result{}
	}
	doc, err := value.ParseFile(path)
	if err != nil {
		var r Result
		r.errorf("%s: Failed to load YAML - %v", path, err)
		return r
	}
	return v.Document(ctx, path, doc)
}

// AutomationsYAML validates an automations document held in memory: its
// structure, then its references. Registry load problems are included.
func (v *Validator) AutomationsYAML(ctx context.Context, content []byte, label string) Result {
	if label == "" {
		label = "automations.yaml"
	}
	var r Result
	doc, err := value.Parse(content)
	if err != nil {
		r.errorf("%s: YAML validation error: %v", label, err)
		r.normalize()
		return r
	}

	r.Merge(Automations(label, doc))
	if doc != nil {
		v.prepare(ctx)
		r.Merge(v.Diagnostics())
		r.Merge(classify(ctx, v.logger, label, refs.Extract(doc), v.snapshot, v.derived))
	}
	r.normalize()
	return r
}

// FileResult is the outcome for one file of a directory run.
type FileResult struct {
	Path   string `json:"path"`
	Result Result `json:"result"`
}

// Report is the outcome of a directory run. Result aggregates registry
// diagnostics followed by every file's findings in file order.
type Report struct {
	Result
	Files []FileResult `json:"files"`
}

func (r *Report) normalize() {
	r.Result.normalize()
	if r.Files == nil {
		r.Files = []FileResult{}
	}
	for i := range r.Files {
		r.Files[i].Result.normalize()
	}
}

// Run validates every YAML file directly inside the configuration
// directory. The registries are loaded once before files are checked
// in parallel.
func (v *Validator) Run(ctx context.Context) *Report {
	rep := &Report{}
	defer rep.normalize()

	info, err := os.Stat(v.configDir)
	if err != nil || !info.IsDir() {
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			v.logger.Debug("config directory stat failed", "dir", v.configDir, "error", err)
		}
		rep.errorf("Config directory %s does not exist", v.configDir)
		return rep
	}

	files, err := YAMLFiles(v.configDir)
	if err != nil {
		rep.errorf("Config directory %s could not be read: %v", v.configDir, err)
		return rep
	}
	if len(files) == 0 {
		rep.warnf("No YAML files found in config directory")
		return rep
	}

	v.prepare(ctx)
	rep.Merge(v.Diagnostics())

	rep.Files = make([]FileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.workers)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rep.Files[i] = FileResult{Path: path, Result: v.File(gctx, path)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		rep.errorf("Validation interrupted: %v", err)
	}

	for _, f := range rep.Files {
		rep.Merge(f.Result)
	}
	v.logger.Info("configuration checked",
		"dir", v.configDir,
		"files", len(files),
		"errors", len(rep.Errors),
		"warnings", len(rep.Warnings),
	)
	return rep
}

// YAMLFiles lists the *.yaml and *.yml files directly inside dir, sorted
// by path. secrets.yaml is never listed.
func YAMLFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || e.Name() == secretsFile {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".yaml", ".yml":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
