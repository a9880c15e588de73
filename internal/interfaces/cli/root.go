// Package cli implements the archem command-line tool.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/turtacn/ARChemistry/internal/bootstrap"
	"github.com/turtacn/ARChemistry/internal/config"
	"github.com/turtacn/ARChemistry/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Output formats.
const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

// cliContextKey is the context key for CLIContext.
type cliContextKey struct{}

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath   string
	LogLevel     string
	LogFormat    string
	OutputFormat string
	Verbose      bool
	ShowLog      bool
	Timeout      time.Duration
}

// CLIContext carries the loaded config and the lazily built application
// through the command tree.
type CLIContext struct {
	Options *RootOptions
	Config  *config.Config

	mu  sync.Mutex
	app *bootstrap.App
}

// App builds the application on first use.
func (c *CLIContext) App(ctx context.Context) (*bootstrap.App, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.app != nil {
		return c.app, nil
	}
	if c.Config == nil {
		return nil, errors.New(errors.ErrCodeInternal, "configuration not loaded")
	}
	app, err := bootstrap.New(ctx, c.Config)
	if err != nil {
		return nil, err
	}
	c.app = app
	return app, nil
}

// Close releases the application, if one was built.
func (c *CLIContext) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.app == nil {
		return nil
	}
	err := c.app.Close()
	c.app = nil
	return err
}

// NewRootCommand creates the root cobra command with all global flags and subcommands.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}
	cliCtx := &CLIContext{Options: opts}

	cmd := &cobra.Command{
		Use:   "archem",
		Short: "Run addition reactions on molecular structures",
		Long: "archem recognizes a reactant from a photograph, applies a reagent's\n" +
			"addition reaction and renders or stores the product.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return persistentPreRun(cliCtx)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	// Subcommands inherit the root context when they have none of their own.
	cmd.SetContext(context.WithValue(context.Background(), cliContextKey{}, cliCtx))

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path")
	pf.StringVar(&opts.LogLevel, "log-level", "", "log level (debug, info, warn, error); overrides the config file")
	pf.StringVar(&opts.LogFormat, "log-format", "", "log format (json, console); overrides the config file")
	pf.StringVarP(&opts.OutputFormat, "output", "o", OutputText, "output format (text, json, yaml)")
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVar(&opts.ShowLog, "show-log", false, "print captured log entries after the command")
	pf.DurationVar(&opts.Timeout, "timeout", 60*time.Second, "operation timeout")

	cmd.AddCommand(
		NewReagentsCmd(),
		NewReactCmd(),
		NewRecognizeCmd(),
		NewInspectCmd(),
		NewGraphsCmd(),
		NewServeCmd(),
		NewVersionCmd(),
	)
	return cmd
}

// persistentPreRun loads the configuration.  Logs go to stderr so stdout
// carries only command output.
func persistentPreRun(cliCtx *CLIContext) error {
	opts := cliCtx.Options
	switch strings.ToLower(opts.OutputFormat) {
	case OutputText, OutputJSON, OutputYAML:
	default:
		return errors.New(errors.ErrCodeValidation, "invalid output format").
			WithDetail(fmt.Sprintf("output=%s; expected text, json or yaml", opts.OutputFormat))
	}

	overrides := map[string]interface{}{
		"log.output_paths": []string{"stderr"},
	}
	if opts.LogLevel != "" {
		overrides["log.level"] = opts.LogLevel
	}
	if opts.Verbose {
		overrides["log.level"] = "debug"
	}
	if opts.LogFormat != "" {
		overrides["log.format"] = opts.LogFormat
	}

	loadOpts := []config.LoadOption{config.WithOverrides(overrides)}
	if opts.ConfigPath != "" {
		loadOpts = append(loadOpts, config.WithConfigPath(opts.ConfigPath))
	}
	cfg, err := config.Load(loadOpts...)
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}
	cliCtx.Config = cfg
	return nil
}

// GetCLIContext extracts CLIContext from a cobra command's context.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.New(errors.ErrCodeInternal, "command context is nil")
	}
	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, errors.New(errors.ErrCodeInternal, "CLIContext not found in command context")
	}
	return cliCtx, nil
}

// commandApp returns the CLIContext and the built application for cmd.
func commandApp(cmd *cobra.Command) (*CLIContext, *bootstrap.App, error) {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return nil, nil, err
	}
	app, err := cliCtx.App(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	return cliCtx, app, nil
}

// withTimeout bounds ctx by the --timeout flag.
func withTimeout(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if cliCtx, err := GetCLIContext(cmd); err == nil && cliCtx.Options.Timeout > 0 {
		return context.WithTimeout(ctx, cliCtx.Options.Timeout)
	}
	return context.WithCancel(ctx)
}

// Execute is the main entry point for the CLI application.
func Execute() error {
	return Run(NewRootCommand())
}

// Run executes root, prints captured logs when --show-log is set, releases
// the application and reports any error on stderr.
func Run(root *cobra.Command) error {
	err := root.Execute()

	if cliCtx, ctxErr := GetCLIContext(root); ctxErr == nil {
		if cliCtx.Options.ShowLog {
			printLog(root, cliCtx)
		}
		if closeErr := cliCtx.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}

	if err != nil {
		PrintError(root, err)
		return err
	}
	return nil
}

func printLog(cmd *cobra.Command, cliCtx *CLIContext) {
	cliCtx.mu.Lock()
	app := cliCtx.app
	cliCtx.mu.Unlock()
	if app == nil || app.Sink == nil {
		return
	}
	w := cmd.ErrOrStderr()
	for _, e := range app.Sink.Entries() {
		fmt.Fprintf(w, "%s [%s] %s", e.Timestamp.Format(time.RFC3339), e.Level, e.Message)
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, " %s=%v", k, e.Fields[k])
		}
		fmt.Fprintln(w)
		if e.Stack != "" {
			fmt.Fprintln(w, e.Stack)
		}
	}
}

// PrintResult outputs data in the format selected by --output.
func PrintResult(cmd *cobra.Command, data interface{}) error {
	format := OutputText
	if cliCtx, err := GetCLIContext(cmd); err == nil {
		format = strings.ToLower(cliCtx.Options.OutputFormat)
	}

	switch format {
	case OutputJSON:
		return printJSON(cmd, data)
	case OutputYAML:
		return printYAML(cmd, data)
	default:
		return printText(cmd, data)
	}
}

// printJSON outputs data as indented JSON to stdout.
func printJSON(cmd *cobra.Command, data interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func printYAML(cmd *cobra.Command, data interface{}) error {
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return err
	}
	return enc.Close()
}

// printText renders tables for tableProvider values and falls back to
// Stringer or %+v.
func printText(cmd *cobra.Command, data interface{}) error {
	type tableProvider interface {
		TableHeaders() []string
		TableRows() [][]string
	}

	switch v := data.(type) {
	case tableProvider:
		fmt.Fprint(cmd.OutOrStdout(), FormatTable(v.TableHeaders(), v.TableRows()))
	case string:
		fmt.Fprintln(cmd.OutOrStdout(), v)
	case fmt.Stringer:
		fmt.Fprintln(cmd.OutOrStdout(), v.String())
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "%+v\n", v)
	}
	return nil
}

// PrintError writes a formatted error message to stderr.
func PrintError(cmd *cobra.Command, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", errorMessage(err))
}

// errorMessage prefers the AppError message and detail over the full chain.
func errorMessage(err error) string {
	if ae, ok := err.(*errors.AppError); ok {
		if ae.Detail != "" {
			return fmt.Sprintf("%s (%s)", ae.Message, ae.Detail)
		}
		return ae.Message
	}
	return err.Error()
}

// PrintSuccess writes a formatted success message to stdout.
func PrintSuccess(cmd *cobra.Command, msg string) {
	fmt.Fprintf(cmd.OutOrStdout(), "OK: %s\n", msg)
}

// FormatTable renders headers and rows as an aligned table.  Widths count
// runes so subscripted formulas line up.
func FormatTable(headers []string, rows [][]string) string {
	if len(headers) == 0 {
		return ""
	}

	colWidths := make([]int, len(headers))
	for i, h := range headers {
		colWidths[i] = runeLen(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(colWidths); i++ {
			if n := runeLen(row[i]); n > colWidths[i] {
				colWidths[i] = n
			}
		}
	}

	var sb strings.Builder
	writeRow := func(cells []string) {
		for i := range headers {
			if i > 0 {
				sb.WriteString("  ")
			}
			val := ""
			if i < len(cells) {
				val = cells[i]
			}
			if i == len(headers)-1 {
				sb.WriteString(val)
			} else {
				sb.WriteString(padRight(val, colWidths[i]))
			}
		}
		sb.WriteString("\n")
	}

	writeRow(headers)
	sep := make([]string, len(colWidths))
	for i, w := range colWidths {
		sep[i] = strings.Repeat("-", w)
	}
	writeRow(sep)
	for _, row := range rows {
		writeRow(row)
	}
	return sb.String()
}

func runeLen(s string) int { return len([]rune(s)) }

// padRight pads s with spaces to the given width.
func padRight(s string, width int) string {
	if n := runeLen(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}
