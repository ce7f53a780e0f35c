package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mlukow/tabrefresh/internal/applog"
	"github.com/mlukow/tabrefresh/internal/core"
	"github.com/mlukow/tabrefresh/internal/history"
	"github.com/mlukow/tabrefresh/internal/registry"
	"github.com/mlukow/tabrefresh/internal/tui"
	"github.com/mlukow/tabrefresh/internal/types"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "scan":
			runScan(os.Args[2:])
			return
		case "refresh":
			runRefresh(os.Args[2:])
			return
		case "watch":
			runWatch(os.Args[2:])
			return
		case "history":
			runHistory(os.Args[2:])
			return
		case "help", "--help", "-h":
			printHelp()
			return
		}
	}

	fs := flag.NewFlagSet("tabrefresh", flag.ExitOnError)
	browser := fs.String("browser", "", "Browser type: chrome, firefox, edge, safari")
	config := fs.String("config", "", "Registry file path")
	cdpPort := fs.Int("cdp-port", 0, "Chrome DevTools port (0 disables)")
	interval := fs.Int("interval", types.DefaultIntervalSeconds, "Auto-refresh interval in seconds")
	auto := fs.Bool("auto", false, "Start with interval auto-refresh enabled")
	oneShot := fs.Bool("refresh", false, "Refresh every managed tab once and exit")
	probe := fs.Bool("probe", false, "Fetch page titles for nameless scan results")
	debug := fs.Bool("debug", false, "Enable debug logging")
	fs.Parse(os.Args[1:])

	configPath := resolveConfigPath(*config)
	initLog(configPath, *debug)
	defer applog.Close()

	db := openHistory()
	if db != nil {
		defer db.Close()
	}

	mgr := core.New(core.Options{
		ConfigPath: configPath,
		CDPPort:    *cdpPort,
		Probe:      *probe,
		History:    db,
		Config: types.SchedulerConfig{
			IntervalSeconds: *interval,
			IntervalEnabled: *auto,
		},
	})
	applyBrowserFlag(mgr, *browser)

	if *oneShot {
		printResults(mgr.RefreshAll(context.Background()))
		mgr.Save()
		return
	}

	// The scheduler runs beside the UI so timed entries fire while the
	// user navigates. The TUI re-reads registry state once a second.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mgr.Run(ctx)

	p := tea.NewProgram(tui.NewModel(mgr), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Print(`tabrefresh — keep browser tabs fresh on a schedule

Usage:
  tabrefresh                                  Start the TUI (default)
    --browser <type>       chrome, firefox, edge, or safari
    --config <path>        Registry file (default: ~/.local/share/tabrefresh/tab_handles.json)
    --cdp-port <n>         Chrome DevTools port for protocol reloads (0 disables)
    --interval <n>         Auto-refresh interval in seconds (default: 300, floor: 5)
    --auto                 Start with interval auto-refresh enabled
    --refresh              Refresh every managed tab once and exit
    --probe                Fetch page titles for nameless scan results
    --debug                Enable debug logging

  tabrefresh scan                             List open tabs for a browser
    --browser <type>       Browser to scan (default: registry selection)
    --cdp-port <n>         Chrome DevTools port (0 disables)

  tabrefresh refresh [id ...]                 Refresh managed tabs and exit
    With no ids, refreshes every managed tab.

  tabrefresh watch                            Run the scheduler headless
    --interval <n>         Auto-refresh interval in seconds
    --auto                 Enable interval auto-refresh

  tabrefresh history                          Show recent refresh attempts
    --limit <n>            Number of attempts to show (default: 20)

Environment:
  TABREFRESH_CONFIG      Registry file path (overridden by --config)
  TABREFRESH_BROWSER     Default browser type (overridden by --browser)
`)
}

func runScan(args []string) {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	browser := fs.String("browser", "", "Browser to scan")
	config := fs.String("config", "", "Registry file path")
	cdpPort := fs.Int("cdp-port", 0, "Chrome DevTools port (0 disables)")
	probe := fs.Bool("probe", false, "Fetch page titles for nameless results")
	fs.Parse(args)

	configPath := resolveConfigPath(*config)
	initLog(configPath, false)
	defer applog.Close()

	mgr := core.New(core.Options{ConfigPath: configPath, CDPPort: *cdpPort, Probe: *probe})
	b := resolveBrowser(*browser)
	if b == "" {
		b = mgr.Browser()
	}
	if !b.Valid() {
		fmt.Fprintf(os.Stderr, "Unknown browser %q. Use chrome, firefox, edge, or safari.\n", b)
		os.Exit(1)
	}

	wins := mgr.Scan(b)
	fmt.Printf("%-24s %s\n", "ID", "NAME")
	for _, w := range wins {
		fmt.Printf("%-24s %s\n", w.ID.Key(), w.Name)
	}
}

func runRefresh(args []string) {
	fs := flag.NewFlagSet("refresh", flag.ExitOnError)
	config := fs.String("config", "", "Registry file path")
	cdpPort := fs.Int("cdp-port", 0, "Chrome DevTools port (0 disables)")
	fs.Parse(args)

	configPath := resolveConfigPath(*config)
	initLog(configPath, false)
	defer applog.Close()

	db := openHistory()
	if db != nil {
		defer db.Close()
	}
	mgr := core.New(core.Options{ConfigPath: configPath, CDPPort: *cdpPort, History: db})

	var results []types.RefreshResult
	if fs.NArg() == 0 {
		results = mgr.RefreshAll(context.Background())
	} else {
		var ids []types.TabID
		for _, arg := range fs.Args() {
			id, err := registry.ParseKey(arg)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Invalid tab id %q\n", arg)
				os.Exit(1)
			}
			ids = append(ids, id)
		}
		results = mgr.RefreshMany(context.Background(), ids)
	}
	printResults(results)
}

func runWatch(args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	config := fs.String("config", "", "Registry file path")
	cdpPort := fs.Int("cdp-port", 0, "Chrome DevTools port (0 disables)")
	interval := fs.Int("interval", types.DefaultIntervalSeconds, "Auto-refresh interval in seconds")
	auto := fs.Bool("auto", false, "Enable interval auto-refresh")
	debug := fs.Bool("debug", false, "Enable debug logging")
	fs.Parse(args)

	configPath := resolveConfigPath(*config)
	initLog(configPath, *debug)
	defer applog.Close()

	db := openHistory()
	if db != nil {
		defer db.Close()
	}
	mgr := core.New(core.Options{
		ConfigPath: configPath,
		CDPPort:    *cdpPort,
		History:    db,
		Config: types.SchedulerConfig{
			IntervalSeconds: *interval,
			IntervalEnabled: *auto,
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "Watching %d managed tab(s). Ctrl-C to stop.\n", len(mgr.List()))
	mgr.Run(ctx)
	mgr.Save()
}

func runHistory(args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	limit := fs.Int("limit", 20, "Number of attempts to show")
	fs.Parse(args)

	path, err := history.DefaultDBPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	db, err := history.OpenDB(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening history: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	attempts, err := history.Recent(db, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(attempts) == 0 {
		fmt.Println("No refresh attempts recorded.")
		return
	}

	fmt.Printf("%-20s %-24s %-10s %-6s %-20s %s\n", "WHEN", "TAB", "BROWSER", "OK", "TIER", "NAME")
	for _, a := range attempts {
		ok := "no"
		if a.Success {
			ok = "yes"
		}
		fmt.Printf("%-20s %-24s %-10s %-6s %-20s %s\n",
			a.At.Local().Format("2006-01-02 15:04:05"),
			a.TabKey,
			a.Browser,
			ok,
			a.Tier,
			a.Name,
		)
	}
}

func printResults(results []types.RefreshResult) {
	for _, r := range results {
		if r.Success {
			fmt.Printf("ok    %-24s %s\n", r.ID.Key(), r.Name)
		} else {
			fmt.Printf("fail  %-24s %s\n", r.ID.Key(), r.Name)
		}
	}
}

// resolveConfigPath returns the registry file path: flag > env > default.
func resolveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("TABREFRESH_CONFIG"); env != "" {
		return env
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "tab_handles.json"
	}
	return filepath.Join(home, ".local", "share", "tabrefresh", "tab_handles.json")
}

// resolveBrowser returns the vendor selection: flag > env > "".
func resolveBrowser(flagValue string) types.BrowserType {
	if flagValue != "" {
		return types.BrowserType(flagValue)
	}
	return types.BrowserType(os.Getenv("TABREFRESH_BROWSER"))
}

func applyBrowserFlag(mgr *core.Manager, flagValue string) {
	b := resolveBrowser(flagValue)
	if b == "" {
		return
	}
	if !mgr.SetBrowserType(b) {
		fmt.Fprintf(os.Stderr, "Unknown browser %q. Use chrome, firefox, edge, or safari.\n", b)
		os.Exit(1)
	}
}

func initLog(configPath string, debug bool) {
	if err := applog.Init(filepath.Dir(configPath)); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
	}
	applog.SetDebug(debug)
}

func openHistory() *sql.DB {
	path, err := history.DefaultDBPath()
	if err != nil {
		applog.Warn("history.path", "err", err)
		return nil
	}
	db, err := history.OpenDB(path)
	if err != nil {
		applog.Warn("history.open", "err", err)
		return nil
	}
	return db
}
