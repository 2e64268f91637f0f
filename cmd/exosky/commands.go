package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/litescript/exosky/internal/astro"
	"github.com/litescript/exosky/internal/sky"
	"github.com/litescript/exosky/internal/state"
)

func newPlanetsCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "planets",
		Short: "List exoplanets known to the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			planets, err := a.client.ListExoplanets(cmd.Context(), a.cfg.ExoplanetLimit)
			if err != nil {
				return fmt.Errorf("list exoplanets: %w", err)
			}
			if asJSON {
				return writeJSON(a.stdout, planets)
			}

			tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "PLANET\tHOST\tRA\tDEC\tDISTANCE")
			for _, p := range planets {
				fmt.Fprintf(tw, "%s\t%s\t%.3f\t%.3f\t%s\n", p.Name, p.HostName, p.RA, p.Dec, formatParsecs(p.Distance))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func newStarsCmd(a *app) *cobra.Command {
	var (
		asJSON bool
		top    int
	)

	cmd := &cobra.Command{
		Use:   "stars <planet>",
		Short: "Summarize the star field seen from an exoplanet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			planet, err := a.findPlanet(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			stars, constellations, err := a.loadSky(cmd.Context(), planet)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(a.stdout, stars)
			}

			fmt.Fprintf(a.stdout, "%s: %d stars brighter than G %.1f, %d constellations\n",
				planet.Name, len(stars), a.cfg.LimitingMagnitude, len(constellations))

			bright := brightest(stars, top)
			if len(bright) == 0 {
				return nil
			}
			fmt.Fprintln(a.stdout)
			tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tRA\tDEC\tG MAG\tPARALLAX")
			for _, s := range bright {
				fmt.Fprintf(tw, "%s\t%.3f\t%.3f\t%s\t%s\n", s.ID, s.RA, s.Dec,
					formatFloat(s.Magnitude, 2), formatFloat(s.Parallax, 3))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print every star as JSON")
	cmd.Flags().IntVar(&top, "top", 10, "Number of brightest stars to list")
	return cmd
}

func newConstellationsCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "constellations <planet>",
		Short: "List constellations authored for an exoplanet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			planet, err := a.findPlanet(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			stars, list, err := a.loadSky(cmd.Context(), planet)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(a.stdout, list)
			}
			if len(list) == 0 {
				fmt.Fprintf(a.stdout, "No constellations for %s yet\n", planet.Name)
				return nil
			}

			// Segment counts come from the same resolution the sky view draws.
			scene := state.NewScene(state.DefaultConfig(), a.logger)
			ticket, _ := scene.SelectPlanet(planet)
			scene.ApplyStars(ticket, stars, nil)
			scene.ApplyConstellations(ticket, list, nil)
			segments := make(map[sky.ConstellationKey]int, len(list))
			for _, line := range scene.Frame().Lines {
				segments[line.Key] = line.Segments()
			}

			tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tAUTHOR\tSTARS\tSEGMENTS")
			for _, c := range list {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", c.Name, c.Author, len(c.Stars), segments[c.Key()])
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func newSaveCmd(a *app) *cobra.Command {
	var (
		author string
		name   string
		ids    []string
	)

	cmd := &cobra.Command{
		Use:   "save <planet>",
		Short: "Save a constellation from a list of star ids",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			planet, err := a.findPlanet(ctx, args[0])
			if err != nil {
				return err
			}
			stars, err := a.client.FetchStars(ctx, planet, a.cfg.LimitingMagnitude)
			if err != nil {
				return fmt.Errorf("fetch stars: %w", err)
			}

			scene := state.NewScene(state.DefaultConfig(), a.logger)
			ticket, _ := scene.SelectPlanet(planet)
			scene.ApplyStars(ticket, stars, nil)

			byID := make(map[string]sky.Star, len(stars))
			for _, s := range stars {
				byID[s.ID] = s
			}
			seen := make(map[string]bool, len(ids))
			for _, id := range ids {
				id = strings.TrimSpace(id)
				star, ok := byID[id]
				if !ok {
					return fmt.Errorf("%w: %s", sky.ErrUnknownStar, id)
				}
				if seen[id] {
					return fmt.Errorf("star %s listed twice", id)
				}
				seen[id] = true
				scene.ToggleStar(star)
			}

			scene.Authoring().SetAuthor(author)
			scene.Authoring().SetName(name)
			req, ticket, err := scene.BeginSave()
			if err != nil {
				return err
			}

			record, err := a.client.SaveConstellation(ctx, req)
			scene.FinishSave(ticket, record, err)
			if err != nil {
				return fmt.Errorf("save constellation: %w", err)
			}

			fmt.Fprintf(a.stdout, "Saved %q by %s on %s (%d stars)\n",
				record.Name, record.Author, planet.Name, len(record.Stars))
			return nil
		},
	}
	cmd.Flags().StringVar(&author, "author", "", "Constellation author")
	cmd.Flags().StringVar(&name, "name", "", "Constellation name")
	cmd.Flags().StringSliceVar(&ids, "stars", nil, "Comma-separated star ids in drawing order")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "export <planet>",
		Short: "Download the rendered star map image for an exoplanet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				dir = a.cfg.DownloadDir
			}
			path, err := a.client.DownloadStarMap(cmd.Context(), args[0], dir)
			if err != nil {
				return fmt.Errorf("export star map: %w", err)
			}
			a.logger.Info("wrote star map %s", path)
			fmt.Fprintln(a.stdout, path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "o", "", "Output directory (default download_dir)")
	return cmd
}

func newGridCmd(a *app) *cobra.Command {
	var (
		frame  string
		radius float64
		points bool
	)

	cmd := &cobra.Command{
		Use:   "grid",
		Short: "Print the coordinate grid geometry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			frames, err := parseFrames(frame)
			if err != nil {
				return err
			}
			if radius <= 0 {
				return fmt.Errorf("radius must be positive, got %g", radius)
			}

			if !points {
				for _, f := range frames {
					fmt.Fprintf(a.stdout, "%s: %d points\n", f, len(astro.GenerateGrid(f, radius)))
				}
				return nil
			}

			w := csv.NewWriter(a.stdout)
			if err := w.Write([]string{"frame", "x", "y", "z"}); err != nil {
				return err
			}
			for _, f := range frames {
				for _, p := range astro.GenerateGrid(f, radius) {
					if err := w.Write([]string{f.String(), formatCoord(p.X), formatCoord(p.Y), formatCoord(p.Z)}); err != nil {
						return err
					}
				}
			}
			w.Flush()
			return w.Error()
		},
	}
	cmd.Flags().StringVar(&frame, "frame", "all", "Frame to print: equatorial, galactic or all")
	cmd.Flags().Float64Var(&radius, "radius", astro.SceneRadius, "Sphere radius")
	cmd.Flags().BoolVar(&points, "points", false, "Print every point as CSV")
	return cmd
}

// findPlanet looks an exoplanet up by name, ignoring case.
func (a *app) findPlanet(ctx context.Context, name string) (sky.Exoplanet, error) {
	planets, err := a.client.ListExoplanets(ctx, a.cfg.ExoplanetLimit)
	if err != nil {
		return sky.Exoplanet{}, fmt.Errorf("list exoplanets: %w", err)
	}
	for _, p := range planets {
		if strings.EqualFold(p.Name, strings.TrimSpace(name)) {
			return p, nil
		}
	}
	return sky.Exoplanet{}, fmt.Errorf("exoplanet %q not found in the first %d (see --exoplanet-limit)", name, a.cfg.ExoplanetLimit)
}

// loadSky fetches stars and constellations for planet concurrently.
func (a *app) loadSky(ctx context.Context, planet sky.Exoplanet) ([]sky.Star, []sky.Constellation, error) {
	var (
		stars []sky.Star
		list  []sky.Constellation
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stars, err = a.client.FetchStars(gctx, planet, a.cfg.LimitingMagnitude)
		if err != nil {
			return fmt.Errorf("fetch stars: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		list, err = a.client.FetchConstellations(gctx, planet.Name)
		if err != nil {
			return fmt.Errorf("fetch constellations: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	a.logger.With("main").Debug("%s: %d stars, %d constellations", planet.Name, len(stars), len(list))
	return stars, list, nil
}

// brightest returns up to n stars ordered by magnitude. Stars without a
// magnitude sort last.
func brightest(stars []sky.Star, n int) []sky.Star {
	out := make([]sky.Star, len(stars))
	copy(out, stars)
	sort.SliceStable(out, func(i, j int) bool {
		mi, mj := out[i].Magnitude, out[j].Magnitude
		switch {
		case mi == nil:
			return false
		case mj == nil:
			return true
		default:
			return *mi < *mj
		}
	})
	if n >= 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

func parseFrames(s string) ([]astro.GridFrame, error) {
	switch strings.ToLower(s) {
	case "all", "":
		return []astro.GridFrame{astro.FrameEquatorial, astro.FrameGalactic}, nil
	case "equatorial":
		return []astro.GridFrame{astro.FrameEquatorial}, nil
	case "galactic":
		return []astro.GridFrame{astro.FrameGalactic}, nil
	default:
		return nil, fmt.Errorf("unknown frame %q", s)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatParsecs(pc *float64) string {
	if pc == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.1f pc", *pc)
}

func formatFloat(v *float64, prec int) string {
	if v == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*v, 'f', prec, 64)
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
