package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/sadopc/somnus/internal/analytics"
	"github.com/sadopc/somnus/internal/api"
	"github.com/sadopc/somnus/internal/catalog"
	"github.com/sadopc/somnus/internal/export"
	"github.com/sadopc/somnus/internal/milestone"
	"github.com/sadopc/somnus/internal/sleep"
	"github.com/sadopc/somnus/internal/tui"
)

func runTUI(f *flags) error {
	a, err := openApp(f, true)
	if err != nil {
		return err
	}
	defer a.Close()

	p := tea.NewProgram(tui.NewApp(a.store, a.engine, a.log.Logger), tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func newTUICmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Run the terminal UI (default)",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runTUI(f)
		},
	}
}

func newStartCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start a sleep session now",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(f, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.engine.Start(); err != nil {
				return err
			}
			start, _ := a.engine.StartTime()
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "sleep started at %s\n", start.Local().Format("15:04"))
			return a.checkSaved()
		},
	}
}

func newEndCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "end",
		Short: "End the sleep session in progress",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(f, false)
			if err != nil {
				return err
			}
			defer a.Close()

			c, err := a.engine.End()
			if errors.Is(err, sleep.ErrInvalidState) {
				return fmt.Errorf("no sleep session in progress")
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "slept %.1fh, quality %d\n", c.Session.DurationHours(), c.Session.QualityScore())
			milestone.New(func() {
				_, _ = fmt.Fprintln(out, milestone.Message)
			}).Observe(c)
			return a.checkSaved()
		},
	}
}

func newStatusCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current sleep state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(f, false)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			if start, ok := a.engine.StartTime(); ok {
				_, _ = fmt.Fprintf(out, "sleeping since %s (%s)\n",
					start.Local().Format("2006-01-02 15:04"),
					a.engine.Elapsed().Truncate(time.Second))
			} else {
				_, _ = fmt.Fprintln(out, "awake")
			}
			stats := analytics.Summarize(a.engine.History())
			_, _ = fmt.Fprintf(out, "nights recorded: %d/%d\n", stats.Count, sleep.MilestoneThreshold)
			if err := a.engine.Degraded(); err != nil {
				_, _ = fmt.Fprintf(out, "warning: not saving (%v)\n", err)
			}
			return nil
		},
	}
}

type reportOutput struct {
	Summary   analytics.Stats     `json:"summary"`
	Remaining int                 `json:"remaining"`
	Analysis  *analytics.Snapshot `json:"analysis,omitempty"`
	Plan      string              `json:"recommendedPlan,omitempty"`
}

func newReportCmd(f *flags) *cobra.Command {
	var asJSON bool
	report := &cobra.Command{
		Use:   "report",
		Short: "Show averages and, after 30 nights, the sleep analysis",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(f, false)
			if err != nil {
				return err
			}
			defer a.Close()

			history := a.engine.History()
			r := reportOutput{
				Summary:   analytics.Summarize(history),
				Remaining: analytics.Remaining(history),
			}
			if snap, ok := analytics.Analyze(history); ok {
				r.Analysis = &snap
				if p, ok := catalog.ForCategory(snap.Category); ok {
					r.Plan = p.Name
				}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(r)
			}

			_, _ = fmt.Fprintf(out, "nights: %d  avg sleep: %.1fh  avg quality: %d\n",
				r.Summary.Count, r.Summary.AverageDurationHours, r.Summary.AverageQuality)
			if r.Analysis == nil {
				_, _ = fmt.Fprintf(out, "analysis available after %d more nights\n", r.Remaining)
				return nil
			}
			_, _ = fmt.Fprintf(out, "\n%s\n%s\n", r.Analysis.Summary, r.Analysis.Rationale)
			if r.Plan != "" {
				_, _ = fmt.Fprintf(out, "recommended plan: %s\n", r.Plan)
			}
			return nil
		},
	}
	report.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return report
}

func newExportCmd(f *flags) *cobra.Command {
	var format, outPath string
	exp := &cobra.Command{
		Use:   "export",
		Short: "Export sleep history as CSV or JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != "csv" && format != "json" {
				return fmt.Errorf("unknown format %q (want csv or json)", format)
			}
			a, err := openApp(f, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if outPath == "" {
				outPath = filepath.Join(".", fmt.Sprintf("somnus-export-%s.%s", time.Now().Format("2006-01-02"), format))
			}
			history := a.engine.History()
			if format == "csv" {
				err = export.ToCSV(history, outPath)
			} else {
				err = export.ToJSON(history, outPath)
			}
			if err != nil {
				return err
			}
			a.log.Info("history exported", "path", outPath, "sessions", len(history))
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "exported %d sessions to %s\n", len(history), outPath)
			return nil
		},
	}
	exp.Flags().StringVar(&format, "format", "csv", "csv|json")
	exp.Flags().StringVarP(&outPath, "out", "o", "", "output file")
	return exp
}

func newServeCmd(f *flags) *cobra.Command {
	var addr string
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Serve the sleep engine over a local JSON API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(f, true)
			if err != nil {
				return err
			}
			defer a.Close()

			if addr == "" {
				addr = a.cfg.Listen
			}
			notifier := milestone.New(func() {
				a.log.Info("sleep history reached the analysis milestone")
			})
			srv := &http.Server{
				Addr:              addr,
				Handler:           api.NewRouter(a.engine, a.log.Logger, api.OnCompletion(func(c sleep.Completion) { notifier.Observe(c) })),
				ReadHeaderTimeout: 5 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				a.log.Info("api listening", "addr", addr)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			a.log.Info("api shutting down")
			return srv.Shutdown(shutdownCtx)
		},
	}
	serve.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return serve
}
