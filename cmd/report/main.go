// Command paperlens-report analyzes a document from the terminal and prints
// its similarity report.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/okian/paperlens/internal/adapters/analysis"
	service "github.com/okian/paperlens/internal/app"
	"github.com/okian/paperlens/internal/config"
	"github.com/okian/paperlens/internal/domain/document"
	"github.com/okian/paperlens/internal/domain/render"
	"github.com/okian/paperlens/pkg/logger"
)

// errAnalysisFailed is returned after the failure message was printed.
var errAnalysisFailed = errors.New("analysis failed")

type rootFlags struct {
	apiBase string
	timeout time.Duration
}

type analyzeFlags struct {
	json    bool
	html    bool
	noColor bool
	width   int
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := logger.Init(logger.WithWriter(os.Stderr)); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	_ = logger.SetLevelString("warn")

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errAnalysisFailed) {
			_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1) //nolint:gocritic // exitAfterDefer: stop only releases the signal handler
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:   "paperlens-report",
		Short: "Analyze research papers for similarity from the terminal",
		Long: `Send a document to the analysis service and print the similarity report.

The analysis service address comes from PAPERLENS_API_BASE (or the file
named by PAPERLENS_CONFIG) unless --api-base is given.

Examples:
  paperlens-report analyze paper.pdf
  paperlens-report analyze paper.pdf --json
  paperlens-report analyze paper.pdf --html > report.html
  paperlens-report analyze paper.pdf --no-color --width 100
  paperlens-report health --api-base http://localhost:8000`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.apiBase, "api-base", "", "analysis service base URL")
	root.PersistentFlags().DurationVar(&flags.timeout, "timeout", 0, "bound on one analysis round trip (default from config)")

	root.AddCommand(newAnalyzeCmd(flags), newHealthCmd(flags))
	return root
}

func newAnalyzeCmd(root *rootFlags) *cobra.Command {
	flags := &analyzeFlags{}
	cmd := &cobra.Command{
		Use:   "analyze FILE",
		Short: "Analyze a document and print its report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, root, flags, args[0])
		},
	}
	cmd.Flags().BoolVar(&flags.json, "json", false, "print the report as JSON")
	cmd.Flags().BoolVar(&flags.html, "html", false, "print the report as an HTML fragment")
	cmd.MarkFlagsMutuallyExclusive("json", "html")
	cmd.Flags().BoolVar(&flags.noColor, "no-color", false, "disable coloured output")
	cmd.Flags().IntVar(&flags.width, "width", render.DefaultWidth, "wrap match titles at this width")
	return cmd
}

func newHealthCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the analysis service is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, client, err := newClient(cmd.Context(), root)
			if err != nil {
				return err
			}
			if err := client.Health(cmd.Context()); err != nil {
				cmd.PrintErrln(analysis.Message(err))
				return errAnalysisFailed
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "ok %s (timeout %s)\n", client.BaseURL(), client.Timeout())
			return err
		},
	}
}

func newClient(ctx context.Context, flags *rootFlags) (*config.Config, *analysis.Client, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	if flags.apiBase != "" {
		cfg.APIBase = flags.apiBase
	}
	timeout := cfg.RequestTimeout()
	if flags.timeout > 0 {
		timeout = flags.timeout
	}

	client, err := analysis.New(cfg.APIBase,
		analysis.WithTimeout(timeout),
		analysis.WithMaxResponseBytes(cfg.MaxResponseBytes),
	)
	if err != nil {
		return nil, nil, err
	}
	return cfg, client, nil
}

func runAnalyze(cmd *cobra.Command, root *rootFlags, flags *analyzeFlags, path string) error {
	ctx := cmd.Context()
	cfg, client, err := newClient(ctx, root)
	if err != nil {
		return err
	}

	doc, err := readDocument(path, cfg.MaxUploadBytes)
	if err != nil {
		return err
	}

	c := service.NewController(client)
	c.SelectFile(ctx, doc)
	if err := c.Analyze(ctx); err != nil && !errors.Is(err, service.ErrStale) {
		if st := c.Snapshot(); st.Message != "" {
			cmd.PrintErrln(st.Message)
			return errAnalysisFailed
		}
		return err
	}

	st := c.Snapshot()
	if st.Phase != service.PhaseSuccess {
		cmd.PrintErrln(st.Message)
		return errAnalysisFailed
	}

	out := cmd.OutOrStdout()
	switch {
	case flags.json:
		return writeJSON(out, st)
	case flags.html:
		return render.WriteHTML(out, render.Render(st.Report))
	}
	opts := render.TextOptions{
		Width: flags.width,
		Color: !flags.noColor && !color.NoColor,
	}
	return render.WriteText(out, render.Render(st.Report), opts)
}

func readDocument(path string, limit int64) (document.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return document.File{}, fmt.Errorf("open document: %w", err)
	}
	defer func() { _ = f.Close() }()
	return document.Read(path, f, limit)
}

func writeJSON(w io.Writer, st service.State) error { //nolint:gocritic // hugeParam: State is a snapshot copy
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(st.Report); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}
