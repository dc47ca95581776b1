// Package main provides the CLI entrypoint for bfhl.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/bfhl/internal/config"
	"github.com/verte-zerg/bfhl/internal/form"
	"github.com/verte-zerg/bfhl/internal/model"
	"github.com/verte-zerg/bfhl/internal/payload"
	"github.com/verte-zerg/bfhl/internal/report"
	"github.com/verte-zerg/bfhl/internal/store"
	"github.com/verte-zerg/bfhl/internal/transport"
	"github.com/verte-zerg/bfhl/internal/tui"
)

const (
	defaultMode    = string(payload.ModeMultipart)
	defaultTimeout = transport.DefaultTimeout
	defaultOutput  = "text"
	debugEnv       = "BFHL_DEBUG"
)

var errSubmissionFailed = errors.New("submission failed")

var (
	clientURL     string
	clientMode    string
	clientTimeout time.Duration
	clientComment bool
	viewKeepStale bool
	viewFields    string
	noHistory     bool
	attachPath    string

	sendInput  string
	sendOutput string

	historyLast    int
	historySince   string
	historyOutcome string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "bfhl",
		Short:         "Terminal form client for the /bfhl endpoint",
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.NoArgs,
		RunE:          runFormCmd,
	}
	addClientFlags(rootCmd)

	rootCmd.AddCommand(newSendCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newFieldsCmd())

	return rootCmd
}

func addClientFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&clientURL, "url", transport.DefaultURL, "endpoint to POST to")
	cmd.Flags().StringVar(&clientMode, "mode", defaultMode, "request encoding: json or multipart")
	cmd.Flags().DurationVar(&clientTimeout, "timeout", defaultTimeout, "request timeout")
	cmd.Flags().BoolVar(&clientComment, "comments", false, "allow comments and trailing commas in the JSON input")
	cmd.Flags().BoolVar(&viewKeepStale, "keep-stale", false, "keep the last response visible after a failed submission")
	cmd.Flags().StringVar(&viewFields, "fields", "", "comma-separated fields to show (fuzzy matched, or 'all')")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "do not record submissions")
	cmd.Flags().StringVar(&attachPath, "file", "", "file to attach")
}

func runFormCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadClientConfig(cmd)
	if err != nil {
		return err
	}
	closeLog, err := setupDebugLog()
	if err != nil {
		return fmt.Errorf("failed to open debug log: %w", err)
	}
	defer closeLog()

	state, err := newFormState(cfg, form.DefaultInput)
	if err != nil {
		return err
	}

	st := openHistory(cfg)
	var recorder tui.Recorder
	if st != nil {
		recorder = st
		defer closeStore(st)
	}

	client := transport.New(cfg.URL, cfg.Timeout)
	m := tui.NewModel(state, client, recorder)
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newSendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "send",
		Short:         "Submit once and print the selected fields",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		RunE:          runSendCmd,
	}
	addClientFlags(cmd)
	cmd.Flags().StringVar(&sendInput, "input", "", "JSON input (read from stdin when empty)")
	cmd.Flags().StringVarP(&sendOutput, "output", "o", defaultOutput, "output format: text, json or yaml")
	return cmd
}

type sendResult struct {
	Status   int      `json:"status" yaml:"status"`
	Lines    []string `json:"lines" yaml:"lines"`
	Response any      `json:"response,omitempty" yaml:"response,omitempty"`
	Error    string   `json:"error,omitempty" yaml:"error,omitempty"`
}

func runSendCmd(cmd *cobra.Command, _ []string) error {
	if err := validateOutput(sendOutput); err != nil {
		logErrf("Error: %v\n", err)
		return err
	}
	cfg, err := loadClientConfig(cmd)
	if err != nil {
		logErrf("Error: %v\n", err)
		return err
	}
	if os.Getenv(debugEnv) == "" {
		log.SetOutput(io.Discard)
	}

	text := sendInput
	if strings.TrimSpace(text) == "" {
		raw, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			logErrf("Error: failed to read stdin: %v\n", err)
			return err
		}
		text = string(raw)
	}
	state, err := newFormState(cfg, text)
	if err != nil {
		logErrf("Error: %v\n", err)
		return err
	}

	state, pending, err := state.Begin()
	var result transport.Result
	if err == nil {
		client := transport.New(cfg.URL, cfg.Timeout)
		startedAt := time.Now()
		result, err = client.Post(cmd.Context(), pending.Request)
		endedAt := time.Now()
		if err != nil {
			state = state.Fail(err)
		} else {
			state = state.Succeed(result.Response)
		}
		recordSubmission(cfg, pending.Submission(cfg.URL, result.Status, result.Raw, err, startedAt, endedAt))
		log.Printf("send: status %d in %s", result.Status, transport.FormatDuration(result.Duration))
	}

	out := sendResult{Status: result.Status, Lines: state.Lines(), Error: state.Err}
	if out.Lines == nil {
		out.Lines = []string{}
	}
	if len(result.Raw) > 0 {
		var decoded any
		if jerr := json.Unmarshal(result.Raw, &decoded); jerr == nil {
			out.Response = decoded
		}
	}
	if werr := writeSendResult(cmd.OutOrStdout(), out, sendOutput); werr != nil {
		logErrf("Error: %v\n", werr)
		return werr
	}
	if state.Phase == form.PhaseFailed {
		if sendOutput == defaultOutput {
			logErrln(state.Err)
		}
		return errSubmissionFailed
	}
	return nil
}

func writeSendResult(w io.Writer, out sendResult, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "yaml":
		data, err := yaml.Marshal(out)
		if err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		_, err = w.Write(data)
		return err
	default:
		for _, line := range out.Lines {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
		}
		return nil
	}
}

func validateOutput(format string) error {
	switch format {
	case "text", "json", "yaml":
		return nil
	default:
		return fmt.Errorf("--output must be text, json or yaml")
	}
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded submissions",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().IntVar(&historyLast, "last", 20, "limit to last N submissions (0 for all)")
	cmd.Flags().StringVar(&historySince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&historyOutcome, "outcome", "", "filter by outcome: success or failure")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	filter := model.HistoryFilter{Last: historyLast}
	if historyLast < 0 {
		return fmt.Errorf("--last must be >= 0")
	}
	if historySince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", historySince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		filter.Since = &parsed
	}
	switch historyOutcome {
	case "", model.OutcomeSuccess, model.OutcomeFailure:
		filter.Outcome = historyOutcome
	default:
		return fmt.Errorf("--outcome must be success or failure")
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer closeStore(st)

	h, err := report.BuildHistory(cmd.Context(), st, filter)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	for _, line := range report.FormatHistory(h, report.TerminalWidth(os.Stdout)) {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), line); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newFieldsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fields",
		Short: "List response fields and their aliases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, f := range model.AllFields {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), strings.Join(model.FieldAliases(f), ", ")); err != nil {
					return fmt.Errorf("failed to write output: %w", err)
				}
			}
			return nil
		},
	}
}

func loadClientConfig(cmd *cobra.Command) (model.Config, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return model.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	return mergeConfig(cmd, fileCfg)
}

func mergeConfig(cmd *cobra.Command, fileCfg config.FileConfig) (model.Config, error) {
	applyStringConfig(cmd, "url", &clientURL, fileCfg.Client.URL)
	applyStringConfig(cmd, "mode", &clientMode, fileCfg.Client.Mode)
	applyBoolConfig(cmd, "comments", &clientComment, fileCfg.Client.AllowComments)
	applyBoolConfig(cmd, "keep-stale", &viewKeepStale, fileCfg.View.KeepStale)
	if fileCfg.Client.Timeout != nil && !cmd.Flags().Changed("timeout") {
		parsed, err := time.ParseDuration(*fileCfg.Client.Timeout)
		if err != nil {
			return model.Config{}, fmt.Errorf("invalid client.timeout: %w", err)
		}
		clientTimeout = parsed
	}
	fieldTokens := splitTokens(viewFields)
	if !cmd.Flags().Changed("fields") && len(fileCfg.View.Fields) > 0 {
		fieldTokens = fileCfg.View.Fields
	}
	history := !noHistory
	if fileCfg.History.Enabled != nil && !cmd.Flags().Changed("no-history") {
		history = *fileCfg.History.Enabled
	}

	fields, err := resolveFields(fieldTokens)
	if err != nil {
		return model.Config{}, err
	}
	cfg := model.Config{
		URL:              strings.TrimSpace(clientURL),
		Mode:             clientMode,
		Timeout:          clientTimeout,
		AllowComments:    clientComment,
		KeepStaleOnError: viewKeepStale,
		Fields:           fields,
		History:          history,
	}
	if err := validateConfig(cfg); err != nil {
		return model.Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg model.Config) error {
	if cfg.URL == "" {
		return fmt.Errorf("--url must not be empty")
	}
	parsed, err := url.Parse(cfg.URL)
	if err != nil {
		return fmt.Errorf("invalid --url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("--url must use http or https")
	}
	if parsed.Host == "" {
		return fmt.Errorf("--url must include a host")
	}
	if _, err := payload.ParseMode(cfg.Mode); err != nil {
		return fmt.Errorf("invalid --mode: %w", err)
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf("--timeout must be > 0")
	}
	return nil
}

func newFormState(cfg model.Config, input string) (form.State, error) {
	mode, err := payload.ParseMode(cfg.Mode)
	if err != nil {
		return form.State{}, err
	}
	state := form.New(form.Options{
		Mode:             mode,
		AllowComments:    cfg.AllowComments,
		KeepStaleOnError: cfg.KeepStaleOnError,
	}, input, cfg.Fields)
	if attachPath != "" {
		f, err := payload.LoadFile(attachPath)
		if err != nil {
			return form.State{}, fmt.Errorf("failed to attach file: %w", err)
		}
		state = state.AttachFile(f)
	}
	return state, nil
}

func openHistory(cfg model.Config) *store.Store {
	if !cfg.History {
		return nil
	}
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		logErrf("history disabled: failed to open db: %v\n", err)
		return nil
	}
	return st
}

func recordSubmission(cfg model.Config, sub model.Submission) {
	st := openHistory(cfg)
	if st == nil {
		return
	}
	defer closeStore(st)
	if _, err := st.InsertSubmission(context.Background(), sub); err != nil {
		logErrf("failed to record submission: %v\n", err)
	}
}

func closeStore(st *store.Store) {
	if cerr := st.Close(); cerr != nil {
		logErrf("failed to close db: %v\n", cerr)
	}
}

func setupDebugLog() (func(), error) {
	if os.Getenv(debugEnv) == "" {
		log.SetOutput(io.Discard)
		return func() {}, nil
	}
	path := config.DefaultDebugLogPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := tea.LogToFile(path, "bfhl")
	if err != nil {
		return nil, err
	}
	return func() {
		if cerr := f.Close(); cerr != nil {
			// Best-effort close of the debug log.
			_ = cerr
		}
	}, nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# bfhl configuration
# Uncomment a value to enable it. CLI flags override config values.

[client]
# url = %q
# mode = %q               # json or multipart
# timeout = %q              # Request timeout
# allow-comments = false      # Accept comments and trailing commas in the input

[view]
# keep-stale = false          # Keep the last response visible after a failure
# fields = ["Alphabets", "Numbers"]

[history]
# enabled = true              # Record submission outcomes
`,
		transport.DefaultURL,
		defaultMode,
		defaultTimeout.String(),
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
