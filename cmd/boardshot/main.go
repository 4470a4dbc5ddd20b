// Command boardshot renders a board file to a PNG image.
//
// Usage:
//
//	boardshot -board board.json -images ./assets -output board.png
//
// Flags default to BOARDSHOT_* environment variables, which may also be
// set in a .env file in the working directory.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/ggboard"
	"github.com/gogpu/ggboard/geometry"
	"github.com/gogpu/ggboard/imagecache"
	"github.com/gogpu/ggboard/model"
	"github.com/gogpu/ggboard/render"
	"github.com/gogpu/ggboard/scheduler"
	"github.com/gogpu/ggboard/viewport"
)

// maxLoads bounds concurrent image loads before the frame is painted.
const maxLoads = 8

var errNoBoard = errors.New("boardshot: -board is required")

type config struct {
	board    string
	images   string
	output   string
	width    int
	height   int
	padding  float64
	logLevel slog.Level
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "boardshot: .env: %v\n", err)
	}
	if err := run(context.Background(), os.Args[1:], os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (config, error) {
	fs := flag.NewFlagSet("boardshot", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var cfg config
	level := envOr("BOARDSHOT_LOG_LEVEL", "info")
	fs.StringVar(&cfg.board, "board", envOr("BOARDSHOT_BOARD", ""), "board JSON file")
	fs.StringVar(&cfg.images, "images", envOr("BOARDSHOT_IMAGES", ""), "directory image ids resolve against")
	fs.StringVar(&cfg.output, "output", envOr("BOARDSHOT_OUTPUT", "board.png"), "output file")
	fs.IntVar(&cfg.width, "width", envInt("BOARDSHOT_WIDTH", ggboard.DefaultWidth), "image width")
	fs.IntVar(&cfg.height, "height", envInt("BOARDSHOT_HEIGHT", ggboard.DefaultHeight), "image height")
	fs.Float64Var(&cfg.padding, "padding", 32, "padding around the fitted board in pixels")
	fs.StringVar(&level, "loglevel", level, "log level (debug, info, warn, error)")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if cfg.board == "" {
		return cfg, errNoBoard
	}
	if err := cfg.logLevel.UnmarshalText([]byte(level)); err != nil {
		return cfg, fmt.Errorf("boardshot: log level: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	cfg, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	log := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.logLevel}))
	ggboard.SetLogger(log)
	defer ggboard.SetLogger(nil)

	board, err := loadBoard(cfg.board)
	if err != nil {
		return err
	}

	target, err := render.NewPixmapTarget(cfg.width, cfg.height)
	if err != nil {
		return err
	}
	eng, err := ggboard.New(board,
		ggboard.WithSize(cfg.width, cfg.height),
		ggboard.WithFetcher(imagecache.DirFetcher{Dir: cfg.images}),
		ggboard.WithFrameSource(&scheduler.ManualSource{}),
		ggboard.WithTarget(target),
	)
	if err != nil {
		return err
	}
	defer eng.Close()

	preload(ctx, eng.Images(), board.Objects(), log)

	eng.Viewport().SetTransform(viewport.Fit(contentBounds(board.Objects()),
		float64(cfg.width), float64(cfg.height), cfg.padding))
	stats := eng.Draw()

	f, err := os.Create(cfg.output)
	if err != nil {
		return fmt.Errorf("boardshot: %w", err)
	}
	if err := target.EncodePNG(f); err != nil {
		f.Close()
		return fmt.Errorf("boardshot: encode: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("boardshot: %w", err)
	}
	log.Info("board rendered",
		"output", cfg.output,
		"objects", stats.Objects,
		"connections", stats.Connections,
		"failed_images", stats.Failed)
	return target.Close()
}

func loadBoard(path string) (*model.Board, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("boardshot: %w", err)
	}
	board := model.NewBoard()
	if err := board.Restore(model.NewSnapshot(data, model.ActionInitial, path)); err != nil {
		return nil, fmt.Errorf("boardshot: load %s: %w", path, err)
	}
	return board, nil
}

// preload resolves every image reference so the single painted frame shows
// decoded images instead of loading skeletons. Failures render as
// placeholders and are only logged.
func preload(ctx context.Context, images *imagecache.Cache, objects []*model.Object, log *slog.Logger) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxLoads)
	seen := make(map[string]bool)
	for _, o := range objects {
		if o.Kind != model.KindImage || o.Image == nil {
			continue
		}
		for _, ref := range []string{o.Image.Source, o.Image.Preview} {
			if ref == "" || seen[ref] {
				continue
			}
			seen[ref] = true
			g.Go(func() error {
				if _, err := images.Resolve(ctx, ref); err != nil {
					log.Warn("image unavailable", "ref", ref, "err", err)
				}
				return nil
			})
		}
	}
	_ = g.Wait()
}

func contentBounds(objects []*model.Object) geometry.Rect {
	var r geometry.Rect
	for i, o := range objects {
		if i == 0 {
			r = o.Bounds()
			continue
		}
		r = r.Union(o.Bounds())
	}
	return r
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return def
	}
	return n
}
