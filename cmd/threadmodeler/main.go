// Package main provides the threadmodeler binary entry point.
// Threadmodeler turns cosmetic thread annotations on a part into real
// helical geometry using a parametric profile template.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"text/tabwriter"

	"github.com/coolOrangeLabs/inventor-thread-modeler/internal/config"
	"github.com/coolOrangeLabs/inventor-thread-modeler/internal/logging"
	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/kernel/sdfx"
	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/template"
	"github.com/spf13/cobra"
)

const (
	Version = "0.1.0"
	appName = "threadmodeler"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	logLevel  string
	logFormat string
}

func rootCmd() *cobra.Command {
	g := &globalFlags{}
	cmd := &cobra.Command{
		Use:   appName,
		Short: "Model cosmetic threads as real geometry",
		Long: `Threadmodeler replaces thread annotations on cylindrical and conical
faces with helical solids swept from a parametric profile template.

A job file describes the part, its thread annotations and the template.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&g.logFormat, "log-format", "", "Log format (text, json)")

	cmd.AddCommand(modelizeCmd(g), inspectCmd(g), validateTemplateCmd(g))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
		},
	})
	return cmd
}

// loadJob reads the job file and lets flags override its log settings.
func (g *globalFlags) loadJob(cmd *cobra.Command, path string) (*config.Config, *App, error) {
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, nil, err
	}
	g.override(cfg)
	return cfg, g.app(cmd.ErrOrStderr(), cfg), nil
}

func (g *globalFlags) override(cfg *config.Config) {
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	if g.logFormat != "" {
		cfg.Log.Format = g.logFormat
	}
}

func (g *globalFlags) app(w io.Writer, cfg *config.Config) *App {
	logger := logging.Init(w, cfg.Log.Format, logging.ParseLevel(cfg.Log.Level))
	return NewApp(logger)
}

func modelizeCmd(g *globalFlags) *cobra.Command {
	var (
		extraPitch  float64
		tmpl        string
		output      string
		ascii       bool
		metricsFile string
		asJSON      bool
	)
	cmd := &cobra.Command{
		Use:   "modelize <job.yaml>",
		Short: "Modelize every thread of a job's part",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, app, err := g.loadJob(cmd, args[0])
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("extra-pitch") {
				cfg.Job.ExtraPitch = extraPitch
			}
			if tmpl != "" {
				cfg.Template.Path = tmpl
			}
			if output != "" {
				cfg.Output.STL = output
			}
			if flags.Changed("ascii") {
				cfg.Output.ASCII = ascii
			}
			if metricsFile != "" {
				cfg.Metrics.File = metricsFile
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			rep, runErr := app.Modelize(cmd.Context(), cfg)
			if cfg.Metrics.File != "" {
				if err := app.WriteMetrics(cfg.Metrics.File); err != nil {
					return err
				}
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(rep); err != nil {
					return err
				}
			} else {
				printReport(cmd.OutOrStdout(), rep)
			}
			return runErr
		},
	}
	f := cmd.Flags()
	f.Float64Var(&extraPitch, "extra-pitch", config.DefaultExtraPitch, "Extra coil pitch in percent, within [0.1, 10]")
	f.StringVar(&tmpl, "template", "", "Template file (name in \"Thread Templates\" next to the job, or absolute path)")
	f.StringVarP(&output, "output", "o", "", "Write the modelized part as STL")
	f.BoolVar(&ascii, "ascii", false, "Write ASCII STL instead of binary")
	f.StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile")
	f.BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}

func printReport(w io.Writer, rep *Report) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "THREAD\tOUTCOME\tSTAGE\tERROR")
	for _, f := range rep.Rejected {
		fmt.Fprintf(tw, "%s\t%s\t\t%s\n", f.Name, f.Outcome, f.Error)
	}
	for _, f := range rep.Features {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.Name, f.Outcome, f.Stage, f.Error)
	}
	tw.Flush()
	for _, m := range rep.Meshes {
		fmt.Fprintf(w, "body %s: %d triangles\n", m.Body, m.Triangles)
	}
}

func inspectCmd(g *globalFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "inspect <job.yaml>",
		Short: "Describe the thread annotations of a job's part",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, app, err := g.loadJob(cmd, args[0])
			if err != nil {
				return err
			}
			rows, err := app.Inspect(cfg)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "THREAD\tTYPE\tFACE\tPITCH\tSUPPRESSED\tNOTES")
			for _, r := range rows {
				notes := ""
				if r.MajorRadius != nil {
					notes = fmt.Sprintf("major radius %.4g", *r.MajorRadius)
				}
				for _, f := range r.Findings {
					if notes != "" {
						notes += "; "
					}
					notes += f
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%s\n", r.Name, r.Kind, r.Side, r.Pitch, r.Suppressed, notes)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func validateTemplateCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate-template <template.yaml>",
		Short: "Check that a template has the four tagged parameters and loads",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			g.override(cfg)
			logger := logging.Init(cmd.ErrOrStderr(), cfg.Log.Format, logging.ParseLevel(cfg.Log.Level))

			tpl, err := template.LoadFile(sdfx.New(sdfx.WithLogger(logger)), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "template %q is valid\n", tpl.Name)
			return nil
		},
	}
}
