package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"repocite/internal/chunker"
	"repocite/internal/index"
	"repocite/internal/rag"
	"repocite/internal/vectorindex"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP server exposing codebase search tools",
	Args:  cobra.NoArgs,
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	s, err := openSession(resolveIndexDir(wd), settings.Query.Root, false)
	if err != nil {
		return err
	}
	defer s.Close()

	srv := mcpserver.NewMCPServer("repocite", version, mcpserver.WithToolCapabilities(false))
	srv.AddTool(searchCodebaseTool(), makeSearchHandler(s.retriever, settings.Query.K))
	srv.AddTool(listIndexedFilesTool(), makeListFilesHandler(s.index))

	logger.Info("serving MCP on stdio", "vectors", s.index.Len())
	return mcpserver.ServeStdio(srv)
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

// --- Tool schema builders ---

var readOnlyAnnotation = mcp.ToolAnnotation{
	ReadOnlyHint:    mcp.ToBoolPtr(true),
	DestructiveHint: mcp.ToBoolPtr(false),
	IdempotentHint:  mcp.ToBoolPtr(true),
	OpenWorldHint:   mcp.ToBoolPtr(false),
}

func searchCodebaseTool() mcp.Tool {
	return mcp.NewTool("search_codebase",
		mcp.WithDescription("Semantically search the indexed codebase. Returns the most similar functions, classes and module sections with file paths and line ranges to cite."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural language question or description of the code to find"),
		),
		mcp.WithNumber("k",
			mcp.Description("Maximum number of snippets to return (default from configuration, usually 20)"),
		),
	)
}

func listIndexedFilesTool() mcp.Tool {
	return mcp.NewTool("list_indexed_files",
		mcp.WithDescription("List every indexed file with its chunk count and top-level symbols."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("prefix",
			mcp.Description("Optional path prefix filter, relative to the indexed root (e.g. 'src/api') or absolute"),
		),
	)
}

// --- Handler factories ---

type snippetRetriever interface {
	Retrieve(ctx context.Context, question string, k int) ([]rag.Snippet, error)
}

func makeSearchHandler(r snippetRetriever, defaultK int) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query := req.GetString("query", "")
		if query == "" {
			return mcp.NewToolResultError("query is required"), nil
		}
		k := req.GetInt("k", defaultK)
		if k <= 0 {
			k = defaultK
		}

		snippets, err := r.Retrieve(ctx, query, k)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
		}
		return mcp.NewToolResultText(formatSearchResults(query, snippets)), nil
	}
}

type recordLister interface {
	Records() []vectorindex.Record
	Root() string
}

func makeListFilesHandler(idx recordLister) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		prefix := req.GetString("prefix", "")
		return mcp.NewToolResultText(formatFileList(summarizeFiles(idx.Records(), idx.Root(), prefix), prefix)), nil
	}
}

// --- Formatting helpers ---

type fileSummary struct {
	Path    string
	Chunks  int
	Symbols []string
}

// summarizeFiles groups records by file, sorted by path. Module and
// module_body chunks count toward Chunks but are not listed as symbols.
func summarizeFiles(records []vectorindex.Record, root, prefix string) []fileSummary {
	prefix = strings.TrimPrefix(filepath.ToSlash(prefix), "./")
	byPath := make(map[string]*fileSummary)
	for _, r := range records {
		if !matchesPrefix(r.FilePath, root, prefix) {
			continue
		}
		fs, ok := byPath[r.FilePath]
		if !ok {
			fs = &fileSummary{Path: r.FilePath}
			byPath[r.FilePath] = fs
		}
		fs.Chunks++
		if r.SymbolType == chunker.TypeFunction || r.SymbolType == chunker.TypeClass {
			fs.Symbols = append(fs.Symbols, r.SymbolName)
		}
	}

	out := make([]fileSummary, 0, len(byPath))
	for _, fs := range byPath {
		out = append(out, *fs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// matchesPrefix reports whether path starts with prefix, either as stored or
// relative to root. Without a root, any path component boundary may start
// the match.
func matchesPrefix(path, root, prefix string) bool {
	if prefix == "" {
		return true
	}
	slashed := filepath.ToSlash(path)
	if strings.HasPrefix(slashed, prefix) {
		return true
	}
	if root != "" {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return false
		}
		rel = filepath.ToSlash(rel)
		return rel != ".." && !strings.HasPrefix(rel, "../") && strings.HasPrefix(rel, prefix)
	}
	return strings.Contains(slashed, "/"+prefix)
}

func formatFileList(files []fileSummary, prefix string) string {
	var sb strings.Builder
	if prefix != "" {
		fmt.Fprintf(&sb, "## Indexed files (%d, prefix: %s)\n\n", len(files), prefix)
	} else {
		fmt.Fprintf(&sb, "## Indexed files (%d)\n\n", len(files))
	}
	for _, f := range files {
		symbols := strings.Join(f.Symbols, ", ")
		if short := index.TruncateRunes(symbols, 120); short != symbols {
			symbols = short + "..."
		}
		if symbols == "" {
			symbols = "(no top-level definitions)"
		}
		fmt.Fprintf(&sb, "- **%s** (%d chunks): %s\n", f.Path, f.Chunks, symbols)
	}
	return sb.String()
}

func formatSearchResults(query string, snippets []rag.Snippet) string {
	if len(snippets) == 0 {
		return fmt.Sprintf("No results found for query: %q", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Search results for %q (%d snippets)\n\n", query, len(snippets))
	for i, s := range snippets {
		rec := s.Record
		fmt.Fprintf(&sb, "### Result %d: `%s:%d-%d`\n\n", i+1, rec.FilePath, rec.StartLine, rec.EndLine)
		fmt.Fprintf(&sb, "**Kind:** %s  \n**Name:** %s  \n**Score:** %.4f\n\n", rec.SymbolType, rec.SymbolName, s.Score)
		fmt.Fprintf(&sb, "```\n%s\n```\n\n", s.Text)
	}
	return sb.String()
}
