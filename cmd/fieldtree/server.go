package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lthms/fieldtree/internal/catalog"
	"github.com/lthms/fieldtree/internal/hierarchy"
)

// catalogService answers tree and path queries from one catalog snapshot.
// Everything it holds is finalized at construction and only read afterwards,
// so handlers may share it across goroutines.
type catalogService struct {
	paths *hierarchy.CategoryTree
	trees map[bool]*viewNode // keyed by sortByName
}

func newCatalogService(snap catalog.Snapshot, opts []hierarchy.Option) (*catalogService, error) {
	ct, err := catalog.CategoryTree(snap, opts...)
	if err != nil {
		return nil, err
	}
	svc := &catalogService{paths: ct, trees: make(map[bool]*viewNode)}
	for _, sorted := range []bool{false, true} {
		tr, err := ct.Finalize(sorted)
		if err != nil {
			return nil, err
		}
		svc.trees[sorted] = toView(tr.Root(), func(m hierarchy.Meta) string { return m.ShortName })
	}
	return svc, nil
}

func (s *catalogService) tree(sortByName bool) *viewNode {
	return s.trees[sortByName]
}

// path returns the categories above id; ok is false for unknown ids.
func (s *catalogService) path(id string) (path []hierarchy.Meta, ok bool) {
	if !s.paths.Has(id) {
		return nil, false
	}
	path = s.paths.PathTo(id)
	if path == nil {
		path = []hierarchy.Meta{}
	}
	return path, true
}

// MCP tool args

type treeArgs struct {
	Sort bool `json:"sort,omitempty" jsonschema:"Order children by name"`
}

type pathArgs struct {
	ID string `json:"id" jsonschema:"Id of a field or category"`
}

// newMCPServer creates a fresh MCP server with the catalog tools registered.
// Called once per SSE connection so each session gets its own initialization lifecycle.
func newMCPServer(svc *catalogService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "fieldtree",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "catalog_tree",
		Description: "Return the catalog's category tree as JSON. Categories without fields are left out.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args treeArgs) (*mcp.CallToolResult, any, error) {
		slog.Debug("catalog_tree called", "sort", args.Sort)
		return jsonResult(svc.tree(args.Sort))
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "catalog_path",
		Description: "Return the categories above a field or category, outermost first, as a JSON array of {id, name}.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args pathArgs) (*mcp.CallToolResult, any, error) {
		slog.Debug("catalog_path called", "id", args.ID)
		path, ok := svc.path(args.ID)
		if !ok {
			return nil, nil, fmt.Errorf("unknown id %q", args.ID)
		}
		return jsonResult(path)
	})

	return server
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	out, err := json.Marshal(v)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(out)},
		},
	}, nil, nil
}

// setupHTTPMux creates an http.ServeMux with all routes registered.
func setupHTTPMux(svc *catalogService, keepalive time.Duration) *http.ServeMux {
	sseHandler := mcp.NewSSEHandler(func(r *http.Request) *mcp.Server {
		return newMCPServer(svc)
	}, nil)

	mux := http.NewServeMux()
	mux.Handle("/sse", sseWithKeepalive(sseHandler, keepalive))
	mux.HandleFunc("GET /api/tree", handleTree(svc))
	mux.HandleFunc("GET /api/path", handlePath(svc))
	return mux
}

func handleTree(svc *catalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sorted := r.URL.Query().Get("sort")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(svc.tree(sorted == "1" || sorted == "true"))
	}
}

func handlePath(svc *catalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id")
		if id == "" {
			http.Error(w, "missing id", http.StatusBadRequest)
			return
		}
		path, ok := svc.path(id)
		if !ok {
			http.Error(w, fmt.Sprintf("unknown id %q", id), http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(path)
	}
}

// ServeCmd serves the catalog over HTTP, with MCP over SSE at /sse.
type ServeCmd struct {
	Port       int    `short:"p" default:"2710" help:"Port for the HTTP server." name:"port"`
	Locale     string `help:"Collation locale for sorted trees."`
	SingleRoot bool   `name:"single-root" help:"Fail unless exactly one top-level category has fields."`
}

func (cmd *ServeCmd) Run(ctx context.Context, cfg *UserConfig) error {
	svc, err := loadService(ctx, cfg, treeFlags{Locale: cmd.Locale, SingleRoot: cmd.SingleRoot})
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", cmd.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	srv := &http.Server{Handler: setupHTTPMux(svc, defaultSSEKeepaliveInterval)}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("http server listening", "addr", addr)
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// MCPCmd serves the catalog tools over stdio.
type MCPCmd struct {
	Locale     string `help:"Collation locale for sorted trees."`
	SingleRoot bool   `name:"single-root" help:"Fail unless exactly one top-level category has fields."`
}

func (cmd *MCPCmd) Run(ctx context.Context, cfg *UserConfig) error {
	svc, err := loadService(ctx, cfg, treeFlags{Locale: cmd.Locale, SingleRoot: cmd.SingleRoot})
	if err != nil {
		return err
	}
	slog.Debug("starting MCP server")
	return newMCPServer(svc).Run(ctx, &mcp.StdioTransport{})
}

func loadService(ctx context.Context, cfg *UserConfig, flags treeFlags) (*catalogService, error) {
	opts, _, err := flags.resolve(cfg)
	if err != nil {
		return nil, err
	}
	snap, err := loadSnapshot(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return newCatalogService(snap, opts)
}
