package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/Shimizu-Technology/pdf-highlight-api/internal/models"
	"github.com/Shimizu-Technology/pdf-highlight-api/internal/services/highlight"
	"github.com/Shimizu-Technology/pdf-highlight-api/internal/services/pdf"
	"github.com/Shimizu-Technology/pdf-highlight-api/internal/services/search"
	"github.com/Shimizu-Technology/pdf-highlight-api/internal/services/sidebar"
)

// watchSettle is how long the file must stay quiet before a re-run.
// Editors and exporters usually write a file in several steps.
const watchSettle = 200 * time.Millisecond

var watch bool

var searchCmd = &cobra.Command{
	Use:   "search <file.pdf> <query>",
	Short: "Search a PDF and print the matches",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		loader := pdf.NewLoader(pdf.NewExtractor(concurrency), 0, 0)
		path, query := args[0], args[1]

		if !watch {
			resp, err := runSearch(ctx, loader, path, query)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), resp, outputFormat)
		}
		return watchSearch(ctx, cmd.OutOrStdout(), loader, path, query)
	},
}

func init() {
	searchCmd.Flags().BoolVarP(&watch, "watch", "w", false, "re-run the search whenever the file changes")
}

// runSearch loads path and runs query over it.
func runSearch(ctx context.Context, loader *pdf.Loader, path, query string) (models.SearchResponse, error) {
	src := pdf.FileSource(path)
	doc, err := loader.Load(ctx, src)
	if err != nil {
		return models.SearchResponse{}, fmt.Errorf("failed to load %s: %w", path, err)
	}

	matches := search.Find(doc.Pages, search.Compile(query))
	return models.SearchResponse{
		Document: models.DocumentInfo{
			Source:        src.Location,
			Kind:          src.Kind,
			Name:          src.Name,
			PageCount:     doc.PageCount,
			FragmentCount: doc.FragmentCount(),
		},
		Query:      query,
		Matches:    matches,
		Highlights: highlight.ProjectAll(matches, doc.PageHeights(), query),
		Summary:    search.Summarize(matches),
	}, nil
}

// printResult writes resp as an indented JSON document or as one line per match.
func printResult(w io.Writer, resp models.SearchResponse, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	fmt.Fprintf(w, "%s: %s\n", resp.Document.Name, resp.Summary.Message)
	for i, m := range resp.Matches {
		fmt.Fprintf(w, "  [%d] page %d %s %q", i+1, m.PageNumber, sidebar.Coordinates(m.Position), m.MatchedText)
		if i < len(resp.Highlights) && resp.Highlights[i].Position.Viewport != nil {
			v := resp.Highlights[i].Position.Viewport
			fmt.Fprintf(w, "  top=%.1f left=%.1f w=%.1f h=%.1f", v.Top, v.Left, v.Width, v.Height)
		}
		fmt.Fprintln(w)
	}
	return nil
}

// watchSearch runs the search now and again after every change to path.
// Each change starts a new generation; a run that is overtaken by a newer
// change is cancelled and its output dropped.
func watchSearch(ctx context.Context, out io.Writer, loader *pdf.Loader, path, query string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: many writers replace the file instead of editing it.
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	r := &rerunner{ctx: ctx, out: out, loader: loader, path: path, query: query}
	r.trigger()
	log.Printf("👀 Watching %s (Ctrl+C to stop)", path)

	var settle *time.Timer
	defer func() {
		if settle != nil {
			settle.Stop()
		}
		r.cancelRunning()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			if settle != nil {
				settle.Stop()
			}
			settle = time.AfterFunc(watchSettle, r.trigger)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("⚠️  Watcher error: %v", err)
		}
	}
}

// rerunner owns the current search generation for watch mode.
type rerunner struct {
	ctx    context.Context
	out    io.Writer
	loader *pdf.Loader
	path   string
	query  string

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
}

func (r *rerunner) trigger() {
	r.mu.Lock()
	r.generation++
	gen := r.generation
	if r.cancel != nil {
		r.cancel()
	}
	ctx, cancel := context.WithCancel(r.ctx)
	r.cancel = cancel
	r.mu.Unlock()

	go func() {
		defer cancel()
		resp, err := runSearch(ctx, r.loader, r.path, r.query)

		r.mu.Lock()
		defer r.mu.Unlock()
		if gen != r.generation {
			return
		}
		if err != nil {
			log.Printf("❌ %v", err)
			return
		}
		if err := printResult(r.out, resp, outputFormat); err != nil {
			log.Printf("❌ Failed to print results: %v", err)
		}
	}()
}

func (r *rerunner) cancelRunning() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generation++
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}
