package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/theirongolddev/ilbudget/internal/cli"
	"github.com/theirongolddev/ilbudget/internal/config"
	"github.com/theirongolddev/ilbudget/internal/logging"
	"github.com/theirongolddev/ilbudget/internal/model"
	"github.com/theirongolddev/ilbudget/internal/pipeline"
	"github.com/theirongolddev/ilbudget/internal/source"
	"github.com/theirongolddev/ilbudget/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	flagDataPath string
	flagSheet    string
	flagNoCache  bool
	flagQuiet    bool
	flagLogLevel string
)

var errNoDataset = errors.New("no dataset configured: pass --data, set ILBUDGET_DATA, or run `ilbudget setup`")

var rootCmd = &cobra.Command{
	Use:          "ilbudget",
	Short:        "Appropriations budget dashboard",
	Long:         "Explore a state appropriations dataset: category and fund rollups, what-if adjustments, and the resulting revenue, spending and deficit.",
	RunE:         runSummary,
	SilenceUsage: true,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagDataPath, "data", "f", "", "Dataset file (.xlsx or .csv)")
	rootCmd.PersistentFlags().StringVar(&flagSheet, "sheet", "", "Worksheet name (default: first sheet)")
	rootCmd.PersistentFlags().BoolVar(&flagNoCache, "no-cache", false, "Skip SQLite cache, reparse the dataset")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
}

// env is what every data command shares: config, logger, loader and the
// resolved load options. Close releases the cache and flushes the logger.
type env struct {
	cfg    config.Config
	log    *zap.Logger
	reg    *model.Registry
	cache  *store.Cache
	loader *pipeline.Loader
	opts   pipeline.LoadOptions
}

// newEnv applies flags over the config file. Full-screen commands pass
// logToFile so log lines do not land on the terminal.
func newEnv(logToFile bool) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level := cfg.Logging.Level
	if flagLogLevel != "" {
		level = flagLogLevel
	}
	file := cfg.Logging.File
	if logToFile && file == "" {
		file = logging.DefaultFile(pipeline.CacheDir())
	}
	log, err := logging.New(logging.Options{Level: level, File: file})
	if err != nil {
		return nil, err
	}

	var cache *store.Cache
	if !flagNoCache && !cfg.General.NoCache {
		c, err := store.Open(pipeline.CachePath())
		if err != nil {
			log.Warn("cache unavailable, parsing directly", zap.Error(err))
		} else {
			cache = c
		}
	}

	path := flagDataPath
	if path == "" {
		path = config.DataPath(cfg)
	}
	sheet := flagSheet
	if sheet == "" {
		sheet = cfg.General.Sheet
	}

	return &env{
		cfg:    cfg,
		log:    log,
		reg:    cfg.Registry(),
		cache:  cache,
		loader: pipeline.NewLoader(cache, log),
		opts: pipeline.LoadOptions{
			Path:    path,
			Sheet:   sheet,
			Columns: cfg.Columns(),
		},
	}, nil
}

func (e *env) Close() {
	if e.cache != nil {
		_ = e.cache.Close()
	}
	_ = e.log.Sync()
}

// load is the shared data loading path used by the report commands.
func (e *env) load() (*pipeline.LoadResult, pipeline.Aggregation, error) {
	if e.opts.Path == "" {
		return nil, pipeline.Aggregation{}, errNoDataset
	}
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, "  Loading %s...\n", filepath.Base(e.opts.Path))
	}

	res, err := e.loader.Load(e.opts)
	if err != nil {
		return nil, pipeline.Aggregation{}, err
	}

	if !flagQuiet {
		src := "parsed"
		if res.FromCache {
			src = "cached"
		}
		fmt.Fprintf(os.Stderr, "  %s rows (%s, %s)\n",
			cli.FormatCount(res.Report.Kept), src, res.LoadTime.Round(time.Millisecond))
		if w := dropWarning(res.Report); w != "" {
			fmt.Fprintln(os.Stderr, cli.RenderWarning(w))
		}
		fmt.Fprintln(os.Stderr)
	}

	return res, pipeline.Aggregate(res.Records), nil
}

func dropWarning(r source.DropReport) string {
	if r.Dropped() == 0 {
		return ""
	}
	return fmt.Sprintf("%s of %s rows dropped (%d missing a field, %d non-numeric amount)",
		cli.FormatCount(r.Dropped()), cli.FormatCount(r.TotalRows), r.Missing, r.NonNumeric)
}
