package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/nielsole/ppe_tile/ingest"
	"github.com/nielsole/ppe_tile/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	formatGeoJSON = "geojson"
	formatOSM     = "osm"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Import features from a file",
	Long: `Imports features into the feature database.

Accepted formats are the JSON bodies of POST /features (including GeoJSON)
and OpenStreetMap .osm.pbf extracts, where every node with a numeric "ppe"
tag becomes a feature. The format is guessed from the file extension unless
--format is given.

The server must not be running on the same database.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig()
		if err != nil {
			return err
		}
		path := viper.GetString("file")
		if path == "" {
			return fmt.Errorf("--file is required")
		}
		format := viper.GetString("format")
		if format == "" {
			format = formatForPath(path)
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		fi, err := f.Stat()
		if err != nil {
			return err
		}

		features, err := store.Open(config.DataPath)
		if err != nil {
			return err
		}
		defer features.Close()

		ingester, err := ingest.NewIngester(features, config.DedupeCacheSize)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		slog.Info("Loading features", "file", path, "format", format, "size", humanize.Bytes(uint64(fi.Size())))
		start := time.Now()
		var result ingest.Result
		switch format {
		case formatGeoJSON:
			var body []byte
			if body, err = io.ReadAll(f); err == nil {
				result, err = ingester.Ingest(ctx, body)
			}
		case formatOSM:
			result, err = loadOSM(ctx, f, ingester, viper.GetInt("batch-size"))
		default:
			err = fmt.Errorf("unknown format %q", format)
		}
		if err != nil {
			return err
		}

		slog.Info("Loaded features",
			"accepted", humanize.Comma(int64(result.Accepted)),
			"duplicates", humanize.Comma(int64(result.Duplicates)),
			"total", humanize.Comma(int64(features.Count())),
			"took", time.Since(start).Round(time.Millisecond))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loadCmd)

	flags := loadCmd.Flags()
	flags.String("file", "", "File to import")
	flags.String("format", "", "Input format: geojson or osm, guessed from the extension if empty")
	flags.Int("batch-size", 10_000, "Features written per transaction when importing OSM data")
}

func formatForPath(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".pbf") {
		return formatOSM
	}
	return formatGeoJSON
}

// submissionBatcher accumulates submissions and ingests them batchSize at a time.
type submissionBatcher struct {
	ingester  *ingest.Ingester
	batchSize int
	batch     []ingest.Submission
	total     ingest.Result
}

func (b *submissionBatcher) add(ctx context.Context, s ingest.Submission) error {
	b.batch = append(b.batch, s)
	if len(b.batch) < b.batchSize {
		return nil
	}
	return b.flush(ctx)
}

func (b *submissionBatcher) flush(ctx context.Context) error {
	if len(b.batch) == 0 {
		return nil
	}
	result, err := b.ingester.IngestSubmissions(ctx, b.batch)
	if err != nil {
		return err
	}
	b.total.Accepted += result.Accepted
	b.total.Duplicates += result.Duplicates
	slog.Debug("Wrote batch", "features", len(b.batch), "accepted", humanize.Comma(int64(b.total.Accepted)))
	b.batch = b.batch[:0]
	return nil
}

func loadOSM(ctx context.Context, r io.Reader, ingester *ingest.Ingester, batchSize int) (ingest.Result, error) {
	if batchSize <= 0 {
		batchSize = 1
	}
	b := &submissionBatcher{
		ingester:  ingester,
		batchSize: batchSize,
		batch:     make([]ingest.Submission, 0, batchSize),
	}
	skipped, err := ingest.ReadOSM(ctx, r, func(s ingest.Submission) error {
		return b.add(ctx, s)
	})
	if skipped > 0 {
		slog.Warn("Skipped nodes with an unusable ppe tag", "nodes", humanize.Comma(int64(skipped)))
	}
	if err != nil {
		return b.total, err
	}
	return b.total, b.flush(ctx)
}
