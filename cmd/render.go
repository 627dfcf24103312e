package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/nielsole/ppe_tile/renderer"
	"github.com/nielsole/ppe_tile/store"
	"github.com/nielsole/ppe_tile/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var renderCmd = &cobra.Command{
	Use:   "render [tiles/{z}/{x}/{y}.png]",
	Short: "Render a single tile to a file",
	Long: `Renders one tile from the feature database without starting the server.

The tile is given as a path argument, as --zoom with --x and --y, or as
--zoom with --at lon,lat to render the tile containing that point.`,
	Example: `  ppe_tile render tiles/12/1205/1539.png
  ppe_tile render --zoom 14 --at -74.006,40.7128 --out manhattan.png`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig()
		if err != nil {
			return err
		}
		tile, err := renderTarget(args, viper.GetString("at"),
			viper.GetUint32("zoom"), viper.GetUint32("x"), viper.GetUint32("y"),
			config.MinZoom, config.MaxZoom)
		if err != nil {
			return err
		}
		out := viper.GetString("out")
		if out == "" {
			out = fmt.Sprintf("%d-%d-%d.png", tile.Z, tile.X, tile.Y)
		}

		features, err := store.Open(config.DataPath, store.ReadOnly(), store.WithResolutionFilter(config.ResolutionFilter()))
		if err != nil {
			return err
		}
		defer features.Close()

		ctx := cmd.Context()
		bbox := renderer.TileToBoundingBox(tile)
		drawn, err := features.QueryFeatures(ctx, bbox, tile.Z)
		if err != nil {
			return err
		}
		png, err := renderer.NewRasterizer(config.MarkerRadius).Render(ctx, tile.Z, bbox, drawn)
		if err != nil {
			return err
		}
		if err := os.WriteFile(out, png, 0644); err != nil {
			return err
		}
		slog.Info("Rendered tile",
			"tile", fmt.Sprintf("%d/%d/%d", tile.Z, tile.X, tile.Y),
			"features", len(drawn),
			"size", humanize.Bytes(uint64(len(png))),
			"out", out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)

	flags := renderCmd.Flags()
	flags.Uint32("zoom", 0, "Zoom level of the tile")
	flags.Uint32("x", 0, "Tile column")
	flags.Uint32("y", 0, "Tile row")
	flags.String("at", "", "Render the tile containing this lon,lat")
	flags.String("out", "", "Output file, defaults to {z}-{x}-{y}.png")
}

func renderTarget(args []string, at string, zoom, x, y, minZoom, maxZoom uint32) (renderer.Tile, error) {
	if len(args) == 1 {
		return utils.ParsePath(args[0], minZoom, maxZoom)
	}
	tile := renderer.Tile{X: x, Y: y, Z: zoom}
	if at != "" {
		point, err := parseLonLat(at)
		if err != nil {
			return renderer.Tile{}, err
		}
		tile = renderer.LonLatToTile(point, zoom)
	}
	if err := utils.ValidateTile(tile, minZoom, maxZoom); err != nil {
		return renderer.Tile{}, err
	}
	return tile, nil
}

func parseLonLat(s string) (renderer.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return renderer.Point{}, fmt.Errorf("expected lon,lat but got %q", s)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return renderer.Point{}, fmt.Errorf("invalid longitude %q: %w", parts[0], err)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return renderer.Point{}, fmt.Errorf("invalid latitude %q: %w", parts[1], err)
	}
	if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
		return renderer.Point{}, fmt.Errorf("%q is outside the valid coordinate range", s)
	}
	return renderer.Point{Lon: lon, Lat: lat}, nil
}
