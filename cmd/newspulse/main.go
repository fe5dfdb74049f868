package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/pders01/newspulse/internal/assistant"
	"github.com/pders01/newspulse/internal/config"
	"github.com/pders01/newspulse/internal/dashboard"
	"github.com/pders01/newspulse/internal/debuglog"
	"github.com/pders01/newspulse/internal/feed"
	"github.com/pders01/newspulse/internal/news"
	"github.com/pders01/newspulse/internal/plugins/builtin"
	"github.com/pders01/newspulse/internal/search"
	"github.com/pders01/newspulse/internal/server"
	"github.com/pders01/newspulse/internal/storage"
	"github.com/pders01/newspulse/internal/tui"
)

// Version is the version of the application, set at build time
var Version = "dev"

var (
	configPath string
	quiet      bool
	searchURL  string
	historyURL string
	logLevel   string

	searchJSON bool

	historyLimit int
	historyClear bool

	serveAddr  string
	serveDB    string
	serveFeeds []string
	serveForce bool
	servePriv  bool
)

var rootCmd = &cobra.Command{
	Use:          "newspulse",
	Short:        "Terminal news dashboard",
	Long:         "Search news topics, read articles and keep a history of your searches.",
	SilenceUsage: true,
	RunE:         runDashboard,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("newspulse %s\n", Version)
		fmt.Println("Terminal news dashboard")
		fmt.Println("github.com/pders01/newspulse")
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configGenCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate default config file",
	Run: func(cmd *cobra.Command, args []string) {
		home, _ := os.UserHomeDir()
		configFile := filepath.Join(home, ".config", "newspulse", "config.toml")

		if err := config.GenerateDefaultConfig(configFile); err != nil {
			log.Fatalf("Failed to generate config: %v", err)
		}
		fmt.Printf("Generated default configuration at: %s\n", configFile)
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <topic...>",
	Short: "Search a topic once and print the results",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent searches from the history service",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local history and feed search backend",
	RunE:  runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&searchURL, "search-url", "", "Search service base URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&historyURL, "history-url", "", "History service base URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: off, error, warn, info, debug")
	rootCmd.Flags().BoolVar(&quiet, "quiet", false, "Skip startup banner")

	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Print results as JSON")

	historyCmd.Flags().IntVar(&historyLimit, "limit", 0, "Number of entries to show (default from config)")
	historyCmd.Flags().BoolVar(&historyClear, "clear", false, "Delete all recorded searches")

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides config)")
	serveCmd.Flags().StringVar(&serveDB, "db", "", "Path to database file (overrides config)")
	serveCmd.Flags().StringSliceVar(&serveFeeds, "feed", nil, "Feed URL to index (repeatable)")
	serveCmd.Flags().BoolVar(&serveForce, "force-refresh", false, "Ignore refresh intervals and cache headers")
	serveCmd.Flags().BoolVar(&servePriv, "allow-private-feeds", false, "Allow feeds on localhost and private networks")

	configCmd.AddCommand(configGenCmd)
	rootCmd.AddCommand(versionCmd, configCmd, searchCmd, historyCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file, applies flag overrides and starts logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if searchURL != "" {
		cfg.API.SearchURL = searchURL
	}
	if historyURL != "" {
		cfg.API.HistoryURL = historyURL
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if err := debuglog.Setup(debuglog.ParseLogLevel(cfg.Log.Level), cfg.Log.File); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runDashboard(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer debuglog.Close()

	if !quiet {
		tui.ShowBanner(Version)
	}

	app := tui.NewApp(cfg, news.NewClient(cfg), assistant.NewRegistry())
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running dashboard: %w", err)
	}
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer debuglog.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := news.NewClient(cfg)
	registry := assistant.NewRegistry()
	notifier := dashboard.NotifierFunc(func(n dashboard.Notification) {
		printNotification(cmd.ErrOrStderr(), n)
	})
	dash := dashboard.New(client, client, notifier, registry)

	out, ok := dash.Search(ctx, strings.Join(args, " "))
	if !ok {
		return errors.New("empty topic")
	}
	if out.Status() == dashboard.StatusFailed {
		return fmt.Errorf("search failed: %w", out.FetchErr)
	}

	if searchJSON {
		fact, _ := registry.Lookup(dashboard.NewsFactKey)
		fmt.Fprintln(cmd.OutOrStdout(), fact.Value)
		return nil
	}
	printItems(cmd.OutOrStdout(), dash.News())
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer debuglog.Close()

	client := news.NewClient(cfg)
	if historyClear {
		if err := client.ClearHistory(cmd.Context()); err != nil {
			return fmt.Errorf("clearing history: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Search history cleared")
		return nil
	}

	limit := historyLimit
	if limit <= 0 {
		limit = cfg.Server.HistoryLimit
	}

	entries, err := client.RecentHistory(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}
	return printHistory(cmd.OutOrStdout(), entries)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer debuglog.Close()

	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if serveDB != "" {
		cfg.Server.DBPath = serveDB
	}
	cfg.Server.Feeds = append(cfg.Server.Feeds, serveFeeds...)

	store, err := storage.NewStore(cfg.Server.DBPath, cfg.Server.DBTimeout)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer store.Close()

	searcher, indexer, closeIndex := openSearch(store, cfg.Server.IndexPath)
	defer closeIndex()

	manager := newFeedManager(store, cfg, indexer)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "newspulse backend on http://%s (%d feeds)\n", cfg.Server.Addr, len(cfg.Server.Feeds))
	return server.New(cfg, store, searcher, manager).ListenAndServe(ctx)
}

// newFeedManager builds the feed manager with the serve flags applied.
func newFeedManager(store *storage.Store, cfg *config.Config, indexer feed.Indexer) *feed.Manager {
	manager := feed.NewManager(store, cfg, indexer)
	manager.SetForceRefresh(serveForce)
	manager.SetPermissiveValidation(servePriv)

	resolver := builtin.Registry()
	for _, p := range resolver.ListPlugins() {
		debuglog.Debugf("source plugin %s (priority %d)", p.Name(), p.Priority())
	}
	manager.SetResolver(resolver)
	return manager
}

// openSearch prefers the bleve index and falls back to scanning stored
// articles when the index cannot be opened.
func openSearch(store *storage.Store, indexPath string) (search.Searcher, feed.Indexer, func()) {
	engine, err := search.NewBleveEngine(store, indexPath)
	if err != nil {
		debuglog.Warnf("bleve index unavailable, using scan search: %v", err)
		return search.NewEngine(store), nil, func() {}
	}
	return engine, engine, func() {
		if err := engine.Close(); err != nil {
			debuglog.Warnf("closing index: %v", err)
		}
	}
}
