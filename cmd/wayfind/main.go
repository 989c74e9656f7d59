package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/spf13/cobra"

	"github.com/matijazezelj/wayfind/internal/alert"
	"github.com/matijazezelj/wayfind/internal/building"
	"github.com/matijazezelj/wayfind/internal/config"
	"github.com/matijazezelj/wayfind/internal/graph"
	"github.com/matijazezelj/wayfind/internal/hazard"
	"github.com/matijazezelj/wayfind/internal/mcp"
	"github.com/matijazezelj/wayfind/internal/metrics"
	"github.com/matijazezelj/wayfind/internal/navigation"
	"github.com/matijazezelj/wayfind/internal/server"
	"github.com/matijazezelj/wayfind/internal/wayfinder"
	"github.com/matijazezelj/wayfind/pkg/models"
)

var (
	version   = "dev"
	cfgFile   string
	dbPath    string
	logFormat string
	logLevel  string
	logger    *slog.Logger
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:          "wayfind",
		Short:        "wayfind: indoor wayfinding and evacuation routing",
		Long:         "Indoor navigation graph engine: shortest routes, turn-by-turn guidance, hazard tracking and evacuation to the nearest safe exit.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := parseLogLevel(logLevel)
			if err != nil {
				return err
			}
			opts := &slog.HandlerOptions{Level: level}
			switch logFormat {
			case "json":
				logger = slog.New(slog.NewJSONHandler(os.Stderr, opts))
			case "text":
				logger = slog.New(slog.NewTextHandler(os.Stderr, opts))
			default:
				return fmt.Errorf("invalid --log-format %q (use: text, json)", logFormat)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./wayfind.yaml)")
	root.PersistentFlags().StringVar(&dbPath, "db", "", "sqlite database path (overrides config)")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log output format (text, json)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		buildingCmd(),
		routeCmd(),
		evacuateCmd(),
		hazardCmd(),
		impactCmd(),
		serveCmd(),
		mcpCmd(),
		dbCmd(),
		versionCmd(),
		completionCmd(),
	)
	return root
}

// app bundles the components a command needs.
type app struct {
	cfg    *config.Config
	store  graph.Store
	engine graph.Engine
	svc    *wayfinder.Service
	synced bool
}

// Close releases the store and engine. A synced store owns the shared
// Memgraph driver, so the engine is left alone in that case.
func (a *app) Close() {
	if !a.synced {
		_ = a.engine.Close()
	}
	_ = a.store.Close()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if dbPath != "" {
		cfg.Storage.Driver = config.DriverSQLite
		cfg.Storage.Path = dbPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openStore opens and initializes the configured primary store.
func openStore(ctx context.Context, cfg *config.Config) (graph.Store, error) {
	var store graph.Store
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		pg, err := graph.NewPostgresStore(ctx, cfg.Storage.Postgres.DSN)
		if err != nil {
			return nil, fmt.Errorf("opening postgres: %w", err)
		}
		store = pg
	default:
		sq, err := graph.NewSQLiteStore(cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		store = sq
	}

	if err := store.Init(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("initializing database: %w", err)
	}
	return store, nil
}

// openApp wires store, engine, alerters and the wayfinder service.
// If Memgraph is configured and reachable, reads go through a
// MemgraphEngine and writes are mirrored; otherwise the local engine
// serves everything from the store. With seed set, an empty store gets
// the configured (or embedded) building imported first.
func openApp(ctx context.Context, seed bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	local := graph.NewLocalEngine(store)
	a := &app{cfg: cfg, store: store, engine: local}

	if cfg.Storage.Memgraph.Enabled {
		mg, err := graph.NewMemgraphEngine(
			cfg.Storage.Memgraph.URI,
			cfg.Storage.Memgraph.Username,
			cfg.Storage.Memgraph.Password,
			local,
			logger,
		)
		if err != nil {
			logger.Warn("memgraph unavailable, using local graph engine", "error", err)
		} else {
			a.engine = mg
			a.store = graph.NewSyncedStore(store, mg.Driver(), logger)
			a.synced = true
			logger.Info("memgraph connected", "uri", cfg.Storage.Memgraph.URI)
		}
	}

	ttl, err := cfg.Hazards.TTL()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.svc = wayfinder.New(a.store, a.engine, newAlerter(cfg, logger), wayfinder.Config{DefaultTTL: ttl}, logger)

	if seed {
		if err := ensureBuilding(ctx, a); err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

func newAlerter(cfg *config.Config, logger *slog.Logger) *alert.Multi {
	var alerters []alert.Alerter
	if cfg.Alerts.Stdout.Enabled {
		alerters = append(alerters, alert.NewStdoutAlerter())
	}
	if cfg.Alerts.Webhook.Enabled && cfg.Alerts.Webhook.URL != "" {
		alerters = append(alerters, alert.NewWebhookAlerter(cfg.Alerts.Webhook.URL, cfg.Alerts.Webhook.Headers))
	}
	m := alert.NewMulti(alerters...)
	if m.Len() == 0 {
		logger.Debug("no alert backends enabled")
	} else {
		logger.Debug("alerting configured", "backends", m.Len())
	}
	return m
}

// loadBuildingFile returns the building at path, the configured building
// file, or the embedded reference building, in that order.
func loadBuildingFile(cfg *config.Config, path string) (*building.File, string, error) {
	if path == "" {
		path = cfg.Building.File
	}
	if path == "" {
		return building.Default(), building.DefaultSource, nil
	}
	f, err := building.Load(path)
	if err != nil {
		return nil, "", err
	}
	return f, path, nil
}

func ensureBuilding(ctx context.Context, a *app) error {
	n, err := a.store.NodeCount(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	f, source, err := loadBuildingFile(a.cfg, "")
	if err != nil {
		return err
	}
	logger.Info("store is empty, importing building", "source", source)
	_, err = a.svc.Import(ctx, f, source)
	return err
}

// --- building ---

func buildingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "building",
		Short: "Manage the building model",
	}
	cmd.AddCommand(buildingImportCmd(), buildingShowCmd(), buildingNodesCmd(), buildingEdgesCmd(), buildingExportCmd(), buildingSyncCmd())
	return cmd
}

func buildingImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [file]",
		Short: "Import a building model (default: configured file or embedded reference building)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, false)
			if err != nil {
				return err
			}
			defer a.Close()

			var path string
			if len(args) == 1 {
				path = args[0]
			}
			f, source, err := loadBuildingFile(a.cfg, path)
			if err != nil {
				return err
			}

			res, err := a.svc.Import(ctx, f, source)
			if err != nil {
				return err
			}
			printImportResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
}

func printImportResult(w io.Writer, r *wayfinder.ImportResult) {
	_, _ = fmt.Fprintf(w, "Imported %q: %d nodes, %d edges\n", r.Name, r.NodesFound, r.EdgesFound)
	for _, warning := range r.Warnings {
		_, _ = fmt.Fprintf(w, "  warning: %s\n", warning)
	}
}

func buildingShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print building summary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.Close()

			nodeCount, _ := a.store.NodeCount(ctx)
			edgeCount, _ := a.store.EdgeCount(ctx)
			nodesByType, _ := a.store.NodeCountByType(ctx)
			edgesByType, _ := a.store.EdgeCountByType(ctx)
			hazards, _ := a.svc.ActiveHazards(ctx)

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Building Summary\n")
			_, _ = fmt.Fprintf(out, "  Places:         %d\n", nodeCount)
			_, _ = fmt.Fprintf(out, "  Connections:    %d\n", edgeCount)
			_, _ = fmt.Fprintf(out, "  Active hazards: %d\n\n", len(hazards))

			_, _ = fmt.Fprintf(out, "Places by type:\n")
			printCounts(out, nodesByType)
			_, _ = fmt.Fprintf(out, "\nConnections by type:\n")
			printCounts(out, edgesByType)
			return nil
		},
	}
}

func printCounts(w io.Writer, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		_, _ = fmt.Fprintf(w, "  %-20s %d\n", k, counts[k])
	}
}

func buildingNodesCmd() *cobra.Command {
	var nodeType, accessible string

	cmd := &cobra.Command{
		Use:   "nodes",
		Short: "List places",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			filter := graph.NodeFilter{Type: nodeType}
			if accessible != "" {
				b, err := strconv.ParseBool(accessible)
				if err != nil {
					return fmt.Errorf("invalid --accessible %q: %w", accessible, err)
				}
				filter.Accessible = &b
			}

			a, err := openApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.Close()

			nodes, err := a.store.ListNodes(ctx, filter)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tLABEL\tTYPE\tX\tY\tACCESSIBLE")
			for _, n := range nodes {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%g\t%g\t%t\n", n.ID, n.DisplayName(), n.Type, n.X, n.Y, n.Accessible)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&nodeType, "type", "", "filter by place type")
	cmd.Flags().StringVar(&accessible, "accessible", "", "filter by accessibility (true, false)")
	return cmd
}

func buildingEdgesCmd() *cobra.Command {
	var edgeType, node string

	cmd := &cobra.Command{
		Use:   "edges",
		Short: "List connections",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.Close()

			edges, err := a.store.ListEdges(ctx, graph.EdgeFilter{Type: edgeType, NodeID: node})
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "FROM\tTYPE\tTO\tACCESSIBLE")
			for _, e := range edges {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", e.From, e.Type, e.To, e.Accessible)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&edgeType, "type", "", "filter by connection type")
	cmd.Flags().StringVar(&node, "node", "", "only connections touching this place")
	return cmd
}

func buildingExportCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the building in various formats",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.Close()

			hazards, err := a.svc.ActiveHazards(ctx)
			if err != nil {
				return err
			}
			blocked := make([]models.BlockedEdge, 0, len(hazards))
			for _, h := range hazards {
				blocked = append(blocked, h.Blocked())
			}

			var output string
			switch format {
			case "json":
				output, err = graph.ExportJSON(ctx, a.store, blocked)
			case "dot":
				output, err = graph.ExportDOT(ctx, a.store, blocked)
			case "mermaid":
				output, err = graph.ExportMermaid(ctx, a.store, blocked)
			default:
				return fmt.Errorf("unsupported format %q (use: json, dot, mermaid)", format)
			}
			if err != nil {
				return err
			}

			_, _ = fmt.Fprint(cmd.OutOrStdout(), output)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "json", "export format: json, dot, mermaid")
	return cmd
}

func buildingSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Synchronize the building from the store to Memgraph",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cfg.Storage.Memgraph.Enabled {
				return fmt.Errorf("memgraph is not enabled in configuration (set storage.memgraph.enabled: true)")
			}

			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck // best-effort cleanup

			auth := neo4j.NoAuth()
			if cfg.Storage.Memgraph.Username != "" {
				auth = neo4j.BasicAuth(cfg.Storage.Memgraph.Username, cfg.Storage.Memgraph.Password, "")
			}
			driver, err := neo4j.NewDriverWithContext(cfg.Storage.Memgraph.URI, auth)
			if err != nil {
				return fmt.Errorf("connecting to memgraph: %w", err)
			}
			defer driver.Close(context.Background()) //nolint:errcheck // best-effort cleanup

			res, err := graph.SyncToMemgraph(ctx, store, driver, logger)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Synced %d places and %d connections to %s\n", res.Nodes, res.Edges, cfg.Storage.Memgraph.URI)
			return nil
		},
	}
}

// --- route / evacuate ---

func parseBlockFlags(items []string) ([]models.BlockedEdge, error) {
	var blocked []models.BlockedEdge
	for _, item := range items {
		list, err := models.ParseBlockedList(item)
		if err != nil {
			return nil, err
		}
		blocked = append(blocked, list...)
	}
	return blocked, nil
}

func routeCmd() *cobra.Command {
	var accessible, guidance bool
	var block []string

	cmd := &cobra.Command{
		Use:   "route <from> <to>",
		Short: "Find the shortest route between two places",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			blocked, err := parseBlockFlags(block)
			if err != nil {
				return err
			}

			a, err := openApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.svc.Route(ctx, wayfinder.RouteRequest{
				From:       args[0],
				To:         args[1],
				Accessible: accessible,
				Blocked:    blocked,
			})
			if err != nil {
				return explainNotFound(cmd.OutOrStdout(), err)
			}
			printRoute(cmd.OutOrStdout(), res, guidance)
			return nil
		},
	}

	cmd.Flags().BoolVar(&accessible, "accessible", false, "only use accessible connections")
	cmd.Flags().BoolVar(&guidance, "guidance", false, "print voice guidance steps instead of directions")
	cmd.Flags().StringSliceVar(&block, "block", nil, "extra connection to avoid, written A~B (repeatable)")
	return cmd
}

func evacuateCmd() *cobra.Command {
	var accessible, guidance bool
	var block []string

	cmd := &cobra.Command{
		Use:   "evacuate <from>",
		Short: "Find the nearest reachable exit (or refuge in accessible mode)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			blocked, err := parseBlockFlags(block)
			if err != nil {
				return err
			}

			a, err := openApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.svc.Evacuate(ctx, wayfinder.EvacuateRequest{
				From:       args[0],
				Accessible: accessible,
				Blocked:    blocked,
			})
			if err != nil {
				return explainNotFound(cmd.OutOrStdout(), err)
			}

			kind := "exit"
			if res.IsRefuge {
				kind = "refuge area"
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Nearest safe target: %s (%s)\n", res.TargetID, kind)
			printRoute(cmd.OutOrStdout(), &res.RouteResult, guidance)
			return nil
		},
	}

	cmd.Flags().BoolVar(&accessible, "accessible", false, "only use accessible connections and accept refuge areas")
	cmd.Flags().BoolVar(&guidance, "guidance", false, "print voice guidance steps instead of directions")
	cmd.Flags().StringSliceVar(&block, "block", nil, "extra connection to avoid, written A~B (repeatable)")
	return cmd
}

// explainNotFound prints a not-found outcome and returns an error so the
// command exits non-zero.
func explainNotFound(w io.Writer, err error) error {
	if navigation.IsNotFound(err) {
		_, _ = fmt.Fprintf(w, "No route: %v\n", err)
	}
	return err
}

func printRoute(w io.Writer, r *wayfinder.RouteResult, guidance bool) {
	from, to := r.Path[0], r.Path[len(r.Path)-1]
	_, _ = fmt.Fprintf(w, "Route: %s → %s (%.1f m, %d places)\n", from, to, r.Distance, len(r.Path))
	if r.Heading != "" {
		_, _ = fmt.Fprintf(w, "  %s\n", r.Heading)
	}
	_, _ = fmt.Fprintln(w)

	steps := r.Directions
	if guidance {
		steps = r.Guidance
	}
	for i, s := range steps {
		line := fmt.Sprintf("  %2d. %s", i+1, s.Text)
		if s.Distance > 0 {
			line += fmt.Sprintf(" (%.1f m)", s.Distance)
		}
		if guidance && s.Type != "" {
			line += fmt.Sprintf(" [%s]", s.Type)
		}
		_, _ = fmt.Fprintln(w, line)
	}
}

// --- hazard ---

func hazardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hazard",
		Short: "Declare and clear blocked connections",
	}
	cmd.AddCommand(hazardAddCmd(), hazardListCmd(), hazardClearCmd(), hazardClearAllCmd())
	return cmd
}

func hazardAddCmd() *cobra.Command {
	var reason string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "add <from> <to>",
		Short: "Block the connection between two places",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.Close()

			h, err := a.svc.DeclareHazard(ctx, wayfinder.HazardRequest{
				From:   args[0],
				To:     args[1],
				Reason: reason,
				TTL:    ttl,
			})
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Hazard %d declared on %s\n", h.ID, models.EdgeKey(h.From, h.To))
			if h.ExpiresAt != nil {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  expires %s\n", h.ExpiresAt.Local().Format(time.RFC3339))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "why the connection is blocked (e.g. smoke)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "lift the hazard automatically after this duration (default from config)")
	return cmd
}

func hazardListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active hazards",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.Close()

			hazards, err := a.svc.ActiveHazards(ctx)
			if err != nil {
				return err
			}
			if len(hazards) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No active hazards.")
				return nil
			}
			printHazards(cmd.OutOrStdout(), hazards)
			return nil
		},
	}
}

func printHazards(out io.Writer, hazards []models.Hazard) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tFROM\tTO\tREASON\tEXPIRES")
	for _, h := range hazards {
		expires := "-"
		if h.ExpiresAt != nil {
			expires = h.ExpiresAt.Local().Format("2006-01-02 15:04:05")
		}
		reason := h.Reason
		if reason == "" {
			reason = "-"
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", h.ID, h.From, h.To, reason, expires)
	}
	_ = w.Flush()
}

func hazardClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <id>",
		Short: "Lift one hazard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid hazard id %q", args[0])
			}

			ctx := cmd.Context()
			a, err := openApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.svc.ClearHazard(ctx, id); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Hazard %d cleared\n", id)
			return nil
		},
	}
}

func hazardClearAllCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clear-all",
		Short: "Lift every hazard",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !force && !confirm(cmd, "Clear every active hazard? [y/N]: ") {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
				return nil
			}

			ctx := cmd.Context()
			a, err := openApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.svc.ClearHazards(ctx)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d hazards\n", n)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "skip confirmation prompt")
	return cmd
}

func confirm(cmd *cobra.Command, prompt string) bool {
	_, _ = fmt.Fprint(cmd.OutOrStdout(), prompt)
	reader := bufio.NewReader(cmd.InOrStdin())
	answer, _ := reader.ReadString('\n')
	answer = strings.TrimSpace(strings.ToLower(answer))
	return answer == "y" || answer == "yes"
}

// --- impact ---

func impactCmd() *cobra.Command {
	var accessible bool

	cmd := &cobra.Command{
		Use:   "impact",
		Short: "Show which places the active hazards cut off from safety",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.svc.Impact(ctx, accessible)
			if err != nil {
				return err
			}
			b, err := a.svc.Building(ctx)
			if err != nil {
				return err
			}
			printImpact(cmd.OutOrStdout(), b, res)
			return nil
		},
	}

	cmd.Flags().BoolVar(&accessible, "accessible", false, "evaluate for wheelchair users (refuge areas count as safe)")
	return cmd
}

func printImpact(w io.Writer, b *navigation.Building, res *navigation.ImpactResult) {
	mode := "standard"
	if res.Accessible {
		mode = "accessible"
	}
	_, _ = fmt.Fprintf(w, "\nImpact Analysis (%s)\n", mode)
	_, _ = fmt.Fprintf(w, "   Blocked connections: %d\n", res.Blocked)
	_, _ = fmt.Fprintf(w, "   Places with a way out: %d\n", res.ReachableNodes)
	_, _ = fmt.Fprintf(w, "   Places cut off: %d\n\n", len(res.CutOff))

	label := func(id string) string {
		if n, ok := b.Node(id); ok {
			return fmt.Sprintf("%s (%s, %s)", id, n.DisplayName(), n.Type)
		}
		return id
	}
	for i, id := range res.CutOff {
		connector := "├── "
		if i == len(res.CutOff)-1 {
			connector = "└── "
		}
		_, _ = fmt.Fprintf(w, "   %s%s\n", connector, label(id))
	}

	if len(res.RefugeOnly) > 0 {
		_, _ = fmt.Fprintf(w, "\n   Refuge only (no accessible exit):\n")
		for _, id := range res.RefugeOnly {
			_, _ = fmt.Fprintf(w, "   - %s\n", label(id))
		}
	}
	_, _ = fmt.Fprintln(w)
}

// --- serve ---

func serveCmd() *cobra.Command {
	var listen string
	var readOnly, noMetrics bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := openApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.Close()

			if listen == "" {
				listen = a.cfg.Server.Listen
			}

			var metricsHandler http.Handler
			if !noMetrics {
				metricsHandler = metrics.EnablePrometheus()
			}

			sweeper, err := hazard.NewSweeper(a.svc, a.cfg.Hazards.SweepInterval, logger)
			if err != nil {
				logger.Error("invalid hazard sweep interval", "error", err)
			} else {
				sweeper.Sweep(ctx)
				sweeper.Start(ctx)
				defer sweeper.Stop()
			}

			srv := server.New(a.store, a.svc, logger, server.Config{
				Listen:     listen,
				ReadOnly:   readOnly || a.cfg.Server.ReadOnly,
				APIToken:   a.cfg.Server.APIToken,
				CORSOrigin: a.cfg.Server.CORSOrigin,
				Version:    version,
				Metrics:    metricsHandler,
			})

			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default from config or :8080)")
	cmd.Flags().BoolVar(&readOnly, "read-only", false, "disable hazard changes via API")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "do not expose Prometheus metrics on /metrics")
	return cmd
}

// --- mcp ---

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve wayfinding tools over the Model Context Protocol (stdio)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := openApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.Close()

			logger.Info("serving MCP tools on stdio")
			return mcp.NewServer(a.svc, a.store, logger, version).Run(ctx, &sdk.StdioTransport{})
		},
	}
}

// --- db ---

func dbCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management",
	}
	cmd.AddCommand(dbStatsCmd(), dbBackupCmd())
	return cmd
}

func dbStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, false)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			switch a.cfg.Storage.Driver {
			case config.DriverPostgres:
				_, _ = fmt.Fprintf(out, "Database: postgres\n\n")
			default:
				sizeStr := "unknown"
				if info, err := os.Stat(a.cfg.Storage.Path); err == nil {
					sizeStr = formatBytes(info.Size())
				}
				_, _ = fmt.Fprintf(out, "Database: %s (%s)\n\n", a.cfg.Storage.Path, sizeStr)
			}

			nodeCount, _ := a.store.NodeCount(ctx)
			edgeCount, _ := a.store.EdgeCount(ctx)
			nodesByType, _ := a.store.NodeCountByType(ctx)
			edgesByType, _ := a.store.EdgeCountByType(ctx)
			hazards, _ := a.store.ListHazards(ctx, time.Time{})
			imports, _ := a.store.ListImports(ctx, 100)

			_, _ = fmt.Fprintf(out, "Nodes: %d\n", nodeCount)
			printCounts(out, nodesByType)
			_, _ = fmt.Fprintf(out, "\nEdges: %d\n", edgeCount)
			printCounts(out, edgesByType)
			_, _ = fmt.Fprintf(out, "\nHazards: %d stored\n", len(hazards))

			statusCounts := make(map[string]int)
			for _, imp := range imports {
				statusCounts[imp.Status]++
			}
			_, _ = fmt.Fprintf(out, "\nImports: %d total\n", len(imports))
			printCounts(out, statusCounts)
			return nil
		},
	}
}

func dbBackupCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "backup <output-path>",
		Short: "Write a consistent copy of the sqlite database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Storage.Driver != config.DriverSQLite {
				return fmt.Errorf("backup supports the sqlite driver only (use pg_dump for postgres)")
			}

			dstPath := args[0]
			if _, err := os.Stat(dstPath); err == nil {
				if !force && !confirm(cmd, fmt.Sprintf("File %s already exists. Overwrite? [y/N]: ", dstPath)) {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return nil
				}
				if err := os.Remove(dstPath); err != nil {
					return fmt.Errorf("removing old backup: %w", err)
				}
			}
			if err := os.MkdirAll(filepath.Dir(dstPath), 0o750); err != nil {
				return fmt.Errorf("creating backup directory: %w", err)
			}

			store, err := graph.NewSQLiteStore(cfg.Storage.Path)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer store.Close() //nolint:errcheck // best-effort cleanup

			if err := store.Backup(ctx, dstPath); err != nil {
				return err
			}

			size := "unknown size"
			if info, err := os.Stat(dstPath); err == nil {
				size = formatBytes(info.Size())
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Backed up %s to %s (%s)\n", cfg.Storage.Path, dstPath, size)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing backup without asking")
	return cmd
}

func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}

// --- version ---

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wayfind %s\n", version)
		},
	}
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid --log-level %q (use: debug, info, warn, error)", s)
	}
}

func completionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for wayfind.

To load completions:

Bash:
  $ source <(wayfind completion bash)
  # To load completions for each session, execute once:
  # Linux:
  $ wayfind completion bash > /etc/bash_completion.d/wayfind
  # macOS:
  $ wayfind completion bash > $(brew --prefix)/etc/bash_completion.d/wayfind

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc
  # To load completions for each session, execute once:
  $ wayfind completion zsh > "${fpath[1]}/_wayfind"
  # You will need to start a new shell for this setup to take effect.

Fish:
  $ wayfind completion fish | source
  # To load completions for each session, execute once:
  $ wayfind completion fish > ~/.config/fish/completions/wayfind.fish

PowerShell:
  PS> wayfind completion powershell | Out-String | Invoke-Expression
  # To load completions for every new session, add the output to your profile:
  PS> wayfind completion powershell >> $PROFILE
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
	}
}
