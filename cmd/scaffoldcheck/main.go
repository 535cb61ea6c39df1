// Command scaffoldcheck validates a project scaffold against its expected
// files, configuration documents and tool behaviour.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/deixis/scaffoldcheck"
	"github.com/deixis/scaffoldcheck/internal/catalog"
	"github.com/deixis/scaffoldcheck/internal/config"
	"github.com/deixis/scaffoldcheck/internal/logging"
	scmcp "github.com/deixis/scaffoldcheck/internal/mcp"
	"github.com/deixis/scaffoldcheck/internal/report"
	"github.com/deixis/scaffoldcheck/internal/suite"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailed  = 1
	exitRuntime = 2
)

func main() {
	log := logging.New(logging.ProfileRuntime, os.Stderr)

	if len(os.Args) < 2 {
		usage()
		os.Exit(exitRuntime)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	code := exitOK
	var err error
	switch cmd {
	case "run":
		code, err = runMain(args, log)
	case "list":
		err = listMain(args)
	case "mcp":
		err = mcpMain(args, log)
	case "version":
		fmt.Println(scaffoldcheck.Version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "scaffoldcheck: unknown command %q\n", cmd)
		usage()
		os.Exit(exitRuntime)
	}

	if err != nil {
		log.Error().Err(err).Msg(cmd)
		os.Exit(exitRuntime)
	}
	os.Exit(code)
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: scaffoldcheck <command> [flags] [dir]

Commands:
  run         Run the validation scenarios against the project in dir
  list        List the scenarios a run would execute
  mcp         Start the MCP server
  version     Print the version
  help        Show this help

Exit status is 0 when every scenario passed, 1 when any failed and 2 when
the run could not complete.

Use "scaffoldcheck <command> -h" for command-specific flags.`)
}

// --- run ---

func runMain(args []string, log zerolog.Logger) (int, error) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	jsonFlag := fs.Bool("json", false, "output results as JSON")
	tableFlag := fs.Bool("table", false, "output results as a table")
	verboseFlag := fs.Bool("v", false, "include captured tool output for failures")
	timeoutFlag := fs.Duration("timeout", 0, "override the per-command timeout (e.g. 30s)")
	parallelFlag := fs.Int("parallel", 0, "override the number of concurrent scenarios")
	onlyFlag := fs.String("only", "", "comma-separated scenario names or groups to run")
	storeFlag := fs.String("store", "", "directory to save the run in for later inspection")
	_ = fs.Parse(args)

	loaded, err := load(fs.Arg(0))
	if err != nil {
		return exitRuntime, err
	}
	cfg := loaded.Config
	if *timeoutFlag > 0 {
		cfg.RawTimeout = timeoutFlag.String()
	}
	if *parallelFlag > 0 {
		cfg.RawParallel = *parallelFlag
	}

	scenarios := catalog.Select(catalog.Build(cfg), splitList(*onlyFlag))
	if len(scenarios) == 0 {
		return exitRuntime, fmt.Errorf("no scenarios match %q", *onlyFlag)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log.Debug().Str("root", loaded.Root).Str("config", loaded.Source).Int("scenarios", len(scenarios)).Msg("starting run")
	result, err := suite.New(loaded.Root, cfg, log).Run(ctx, scenarios)
	if err != nil {
		return exitRuntime, err
	}
	if ctx.Err() != nil {
		return exitRuntime, errors.New("interrupted")
	}

	if *storeFlag != "" {
		if err := report.NewDiskStore(*storeFlag).Save(result); err != nil {
			return exitRuntime, err
		}
		log.Info().Str("run_id", result.ID).Str("store", *storeFlag).Msg("run saved")
	}

	switch {
	case *jsonFlag:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return exitRuntime, err
		}
	case *tableFlag:
		report.FormatTable(os.Stdout, result, isatty.IsTerminal(os.Stdout.Fd()))
	default:
		fmt.Print(report.FormatText(result, *verboseFlag))
	}

	if !result.Passed() {
		return exitFailed, nil
	}
	return exitOK, nil
}

// --- list ---

func listMain(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	jsonFlag := fs.Bool("json", false, "output scenarios as JSON")
	onlyFlag := fs.String("only", "", "comma-separated scenario names or groups to list")
	_ = fs.Parse(args)

	loaded, err := load(fs.Arg(0))
	if err != nil {
		return err
	}

	scenarios := catalog.Select(catalog.Build(loaded.Config), splitList(*onlyFlag))
	if *jsonFlag {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(scenarios)
	}
	for _, sc := range scenarios {
		fmt.Printf("%-32s %-9s %s\n", sc.Name, sc.Kind, sc.Description)
	}
	return nil
}

// --- mcp ---

func mcpMain(args []string, log zerolog.Logger) error {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	instructions := fs.Bool("instructions", false, "print model instructions and exit")
	httpAddr := fs.String("http", "", "start HTTP server on address (e.g. :9090)")
	storeDir := fs.String("store", "", "directory holding saved runs (default: a temp dir removed on exit)")
	_ = fs.Parse(args)

	if *instructions {
		fmt.Print(scmcp.Instructions)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	loaded, err := load(fs.Arg(0))
	if err != nil {
		return err
	}

	disk := report.NewDiskStore(*storeDir)
	defer disk.Close()
	store := report.NewLRUStore(5, disk)

	server := scmcp.NewServer(loaded, store, log)
	if *httpAddr != "" {
		return serveHTTP(ctx, server, *httpAddr, log)
	}
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}

func serveHTTP(ctx context.Context, server *mcpsdk.Server, addr string, log zerolog.Logger) error {
	handler := mcpsdk.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcpsdk.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	log.Info().Str("addr", addr).Msg("listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// --- shared ---

func load(dir string) (*config.LoadResult, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("determining project directory: %w", err)
		}
		dir = wd
	}
	loaded, err := config.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return loaded, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
