package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"
	"golang.org/x/text/language"

	"github.com/lthms/fieldtree/internal/catalog"
	"github.com/lthms/fieldtree/internal/hierarchy"
)

// CLI is the top-level command structure for fieldtree.
type CLI struct {
	Debug bool   `env:"FIELDTREE_DEBUG" help:"Enable debug logging."`
	DB    string `type:"path" name:"db" help:"Catalog database (overrides catalog.path)."`

	Import      ImportCmd      `cmd:"" help:"Load catalog files (.yaml, .toml, .json, .ini) into the catalog."`
	AddCategory AddCategoryCmd `cmd:"" name:"add-category" help:"Declare a category."`
	AddField    AddFieldCmd    `cmd:"" name:"add-field" help:"Declare a field under one or more categories."`
	Show        ShowCmd        `cmd:"" help:"Print the category tree."`
	Browse      BrowseCmd      `cmd:"" help:"Browse the category tree interactively."`
	Path        PathCmd        `cmd:"" help:"Print the categories above a field or category."`
	Export      ExportCmd      `cmd:"" help:"Write the category tree as JSON."`
	Serve       ServeCmd       `cmd:"" help:"Serve the tree over HTTP and MCP (SSE)."`
	MCP         MCPCmd         `cmd:"" name:"mcp" help:"Serve the tree over MCP on stdio."`
}

// treeFlags are the build options shared by the commands that print a tree.
type treeFlags struct {
	Sort       bool   `help:"Order children by name."`
	Primary    bool   `help:"Show each field once, under its first category."`
	SingleRoot bool   `name:"single-root" help:"Fail unless exactly one top-level category has fields."`
	Locale     string `help:"Collation locale used with --sort (e.g. en, fr, sv)."`
}

// resolve merges the flags with the user config.
func (f treeFlags) resolve(cfg *UserConfig) (opts []hierarchy.Option, sortByName bool, err error) {
	policy, _ := hierarchy.ParseRootPolicy(cfg.Tree.RootPolicy)
	if f.SingleRoot {
		policy = hierarchy.ExpectExactlyOneRoot
	}
	opts = append(opts, hierarchy.WithRootPolicy(policy))

	locale := cfg.Tree.Locale
	if f.Locale != "" {
		locale = f.Locale
	}
	if locale != "" {
		tag, err := language.Parse(locale)
		if err != nil {
			return nil, false, fmt.Errorf("locale %q: %w", locale, err)
		}
		opts = append(opts, hierarchy.WithCollation(tag))
	}
	return opts, f.Sort || cfg.Tree.Sort, nil
}

// openCatalog opens the configured catalog, creating its directory.
func openCatalog(cfg *UserConfig) (*catalog.Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Catalog.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create catalog dir: %w", err)
	}
	s, err := catalog.Open(catalog.Config{DBPath: cfg.Catalog.Path})
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	return s, nil
}

// loadSnapshot reads the whole catalog once.
func loadSnapshot(ctx context.Context, cfg *UserConfig) (catalog.Snapshot, error) {
	s, err := openCatalog(cfg)
	if err != nil {
		return catalog.Snapshot{}, err
	}
	defer s.Close()
	return s.Snapshot(ctx)
}

func main() {
	cli := CLI{}
	parser, err := kong.New(&cli,
		kong.Name("fieldtree"),
		kong.Description("Build and inspect category/field trees from a data catalog."),
		kong.UsageOnError(),
		kong.Exit(func(code int) {
			os.Exit(code)
		}),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fieldtree: %v\n", err)
		os.Exit(1)
	}
	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	setupLogger(cli.Debug)

	cfg, err := loadUserConfig()
	ctx.FatalIfErrorf(err)
	if cli.DB != "" {
		cfg.Catalog.Path = cli.DB
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx.Bind(cfg)
	ctx.BindTo(runCtx, (*context.Context)(nil))

	err = ctx.Run()
	ctx.FatalIfErrorf(err)
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}
