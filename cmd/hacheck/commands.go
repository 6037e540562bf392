package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nugget/hacheck/internal/buildinfo"
	"github.com/nugget/hacheck/internal/defaults"
	"github.com/nugget/hacheck/internal/report"
	"github.com/nugget/hacheck/internal/validate"
)

// configDir picks the directory argument, falling back to config_dir.
func (a *app) configDir(args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return a.cfg.ConfigDir
}

func (a *app) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [dir]",
		Short: "Validate every YAML file in a configuration directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			live, closeLive := a.liveProvider(ctx)
			defer closeLive()

			v := validate.New(validate.Options{
				ConfigDir: a.configDir(args),
				Live:      live,
				Workers:   a.cfg.Workers,
				Logger:    a.logger,
			})
			rep := v.Run(ctx)

			doc := report.Document{Result: rep.Result, Files: rep.Files}
			if len(rep.Files) > 0 {
				doc.Domains = report.Summarize(v.Snapshot(ctx).Entities)
			}
			if err := report.Write(a.stdout, a.format, doc); err != nil {
				return err
			}
			if !rep.OK() {
				return errFindings
			}
			return nil
		},
	}
}

func (a *app) automationsCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "automations <file|->",
		Short: "Validate a single automations document",
		Long: "Validate the structure and references of one automations document.\n" +
			"Use - to read the document from standard input.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var (
				content []byte
				label   string
				err     error
			)
			if args[0] == "-" {
				label = "automations.yaml"
				content, err = io.ReadAll(cmd.InOrStdin())
			} else {
				label = args[0]
				content, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read automations: %w", err)
			}

			if dir == "" {
				dir = a.cfg.ConfigDir
			}
			live, closeLive := a.liveProvider(ctx)
			defer closeLive()

			v := validate.New(validate.Options{ConfigDir: dir, Live: live, Logger: a.logger})
			r := v.AutomationsYAML(ctx, content, label)

			if err := report.Write(a.stdout, a.format, report.Document{Result: r}); err != nil {
				return err
			}
			if !r.OK() {
				return errFindings
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "config-dir", "", "Home Assistant configuration directory (default: config_dir)")
	return cmd
}

func (a *app) entitiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "entities [dir]",
		Short: "Summarize registered entities by domain",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			live, closeLive := a.liveProvider(ctx)
			defer closeLive()

			v := validate.New(validate.Options{ConfigDir: a.configDir(args), Live: live, Logger: a.logger})
			snap := v.Snapshot(ctx)
			for _, msg := range v.Diagnostics().Errors {
				a.logger.Error(msg)
			}
			for _, msg := range v.Diagnostics().Warnings {
				a.logger.Warn(msg)
			}
			return report.WriteDomains(a.stdout, a.format, report.Summarize(snap.Entities))
		},
	}
}

func (a *app) initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [dir]",
		Short: "Write an example hacheck.yaml",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return runInit(a.stdout, dir)
		},
	}
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and build information",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runVersion(a.stdout, a.format)
		},
	}
}

// runInit writes an example config into dir. An existing file is never
// overwritten.
func runInit(w io.Writer, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	path := filepath.Join(dir, "hacheck.yaml")
	written, err := writeIfMissing(path, defaults.ConfigYAML, 0o600)
	if err != nil {
		return err
	}
	if written {
		fmt.Fprintf(w, "  ✓ %s\n", path)
	} else {
		fmt.Fprintf(w, "  - %s (exists, left unchanged)\n", path)
	}
	return nil
}

// writeIfMissing writes content to path only if the file does not
// already exist, and reports whether it wrote.
func writeIfMissing(path string, content []byte, perm os.FileMode) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.WriteFile(path, content, perm); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}

// runVersion prints build metadata in the requested output format.
func runVersion(w io.Writer, f report.Format) error {
	info := buildinfo.Info()
	if f == report.FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintln(w, buildinfo.String())
	for _, k := range buildinfo.Fields {
		if v, ok := info[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}
