package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	tea "github.com/charmbracelet/bubbletea"

	fwconfig "github.com/fwpull/fwpull/internal/config"
	"github.com/fwpull/fwpull/internal/downloader"
	"github.com/fwpull/fwpull/internal/fusinfo"
	"github.com/fwpull/fwpull/internal/historydb"
	"github.com/fwpull/fwpull/internal/log"
	"github.com/fwpull/fwpull/internal/orchestrator"
	"github.com/fwpull/fwpull/internal/progress"
	"github.com/fwpull/fwpull/internal/tui"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "query, download, verify, and decrypt one firmware artifact",
	Run:   runFetch,
}

func init() {
	fetchCmd.Flags().String("model", "", "device model (required)")
	fetchCmd.Flags().String("region", "", "sales region (required)")
	fetchCmd.Flags().String("version", "", "firmware version (required)")
	fetchCmd.Flags().String("query-url", "", "firmware metadata query endpoint")
	fetchCmd.Flags().StringP("output", "o", "", "output path (default: derived from firmware metadata)")
	fetchCmd.Flags().BoolP("force", "f", false, "overwrite an existing output file")
	fetchCmd.Flags().IntP("chunks", "c", 0, "number of concurrent byte ranges (0 = size-based default)")
	fetchCmd.Flags().Int("retries", 0, "max retries across all byte ranges of the download (0 = default)")
	fetchCmd.Flags().Bool("keep-encrypted", false, "keep the ciphertext file after a successful decrypt")
	fetchCmd.Flags().Bool("tui", false, "show a full-screen progress view instead of a plain line")
	fetchCmd.Flags().Bool("clipboard", false, "copy the absolute --output path to the clipboard on success (nothing is copied when --output is omitted)")
	fetchCmd.Flags().BoolP("verbose", "v", false, "write a debug trace to debug.log")

	_ = fetchCmd.MarkFlagRequired("model")
	_ = fetchCmd.MarkFlagRequired("region")
	_ = fetchCmd.MarkFlagRequired("version")
}

func runFetch(cmd *cobra.Command, args []string) {
	flags := cmd.Flags()
	model, _ := flags.GetString("model")
	region, _ := flags.GetString("region")
	version, _ := flags.GetString("version")
	queryURL, _ := flags.GetString("query-url")
	output, _ := flags.GetString("output")
	force, _ := flags.GetBool("force")
	chunks, _ := flags.GetInt("chunks")
	retries, _ := flags.GetInt("retries")
	keepEncrypted, _ := flags.GetBool("keep-encrypted")
	useTUI, _ := flags.GetBool("tui")
	useClipboard, _ := flags.GetBool("clipboard")
	verbose, _ := flags.GetBool("verbose")

	if verbose {
		log.EnableDebugFile()
	}

	cfg := fwconfig.Load()
	if chunks == 0 {
		chunks = cfg.Parallelism
	}
	if retries == 0 {
		retries = cfg.MaxRetries
	}
	if queryURL == "" {
		queryURL = os.Getenv("FWPULL_QUERY_URL")
	}

	client := fusinfo.NewHTTPClient(queryURL, model, region, version, cfg.UserAgent, 16)

	if err := os.MkdirAll(cfg.StateDir, 0755); err != nil {
		log.Warn("failed to create state directory %q: %v", cfg.StateDir, err)
	}

	hdb, err := historydb.Open(filepath.Join(cfg.StateDir, "history.sqlite"))
	if err != nil {
		log.Warn("history unavailable: %v", err)
		hdb = nil
	} else {
		defer hdb.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := orchestrator.Options{
		Client:        client,
		HistoryDB:     hdb,
		OutputPath:    output,
		Force:         force,
		Parallelism:   chunks,
		MinChunk:      cfg.MinChunk,
		MaxRetries:    retries,
		KeepEncrypted: keepEncrypted,
	}

	title := fmt.Sprintf("%s %s %s", model, region, version)

	if useTUI {
		runFetchWithTUI(ctx, title, opts)
	} else {
		runFetchPlain(ctx, opts)
	}

	if useClipboard && output != "" {
		path := output
		if abs, err := filepath.Abs(output); err == nil {
			path = abs
		}
		if err := clipboard.WriteAll(path); err != nil {
			log.Warn("failed to copy output path to clipboard: %v", err)
		}
	}
}

func runFetchPlain(ctx context.Context, opts orchestrator.Options) {
	printer := progress.NewPrinter(os.Stderr)
	opts.OnProgress = func(e progress.Event) {
		printer.Render(e)
	}

	err := orchestrator.Run(ctx, opts)
	if err != nil {
		fmt.Fprintln(os.Stderr)
	}
	exitOnError(err)
}

func runFetchWithTUI(ctx context.Context, title string, opts orchestrator.Options) {
	events := make(chan tui.EventMsg, downloader.ProgressChannelBuffer)
	opts.OnProgress = func(e progress.Event) {
		select {
		case events <- tui.EventMsg(e):
		default:
		}
	}

	tuiModel := tui.New(title, events)
	program := tea.NewProgram(tuiModel)

	var runErr error
	go func() {
		runErr = orchestrator.Run(ctx, opts)
		events <- tui.EventMsg(progress.Event{Done: true, Err: runErr})
		close(events)
	}()

	if _, err := program.Run(); err != nil {
		log.Error("tui error: %v", err)
	}
	exitOnError(runErr)
}
