// Package search provides the CLI hotspot search command.
package search

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/ringscout/internal/conf"
	"github.com/tphakala/ringscout/internal/datastore"
	"github.com/tphakala/ringscout/internal/edsm"
	"github.com/tphakala/ringscout/internal/query"
	"github.com/tphakala/ringscout/internal/reconcile"
	"github.com/tphakala/ringscout/internal/resolver"
	"github.com/tphakala/ringscout/internal/ring"
)

// Command creates the search subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	var (
		radius    float64
		material  string
		ringTypes []string
		minCount  int
		reserve   string
		limit     int
		stats     bool
	)

	cmd := &cobra.Command{
		Use:   "search [reference system]",
		Short: "Find mining hotspots near a system",
		Long: "Search the hotspot database for materials within a radius of a reference system. " +
			"Unknown reference systems are resolved through the remote lookup service.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if stats {
				return runStats(settings)
			}
			if len(args) == 0 {
				return fmt.Errorf("a reference system is required unless --stats is given")
			}
			return run(settings, &query.Request{
				ReferenceSystem: args[0],
				MaxDistanceLy:   radius,
				Material:        material,
				RingTypes:       parseRingTypes(ringTypes),
				MinHotspots:     minCount,
				Reserve:         ring.ParseReserveLevel(reserve),
				Limit:           limit,
			})
		},
	}

	cmd.Flags().Float64VarP(&radius, "radius", "r", viper.GetFloat64("search.maxdistancely"), "Search radius in light years")
	cmd.Flags().StringVarP(&material, "material", "m", "", "Only hotspots of this material")
	cmd.Flags().StringSliceVar(&ringTypes, "ring-type", nil, "Only these ring types (Metallic, Rocky, Icy, \"Metal Rich\")")
	cmd.Flags().IntVar(&minCount, "min-count", 0, "Minimum hotspot count per ring")
	cmd.Flags().StringVar(&reserve, "reserve", "", "Minimum reserve level annotation (e.g. Pristine)")
	cmd.Flags().IntVarP(&limit, "limit", "n", viper.GetInt("search.resultcap"), "Maximum result rows")
	cmd.Flags().BoolVar(&stats, "stats", false, "Print database statistics instead of searching")
	return cmd
}

func parseRingTypes(names []string) []ring.Type {
	var types []ring.Type
	for _, name := range names {
		if t := ring.ParseType(name); t.Known() {
			types = append(types, t)
		}
	}
	return types
}

func run(settings *conf.Settings, req *query.Request) error {
	store := datastore.New(settings, reconcile.New())
	if err := store.Open(); err != nil {
		return err
	}
	defer store.Close()

	remote := edsm.NewClient(edsm.Config{
		BaseURL:    settings.Resolver.RemoteURL,
		Timeout:    settings.Resolver.Timeout,
		CacheTTL:   settings.Resolver.CacheTTL,
		MaxRetries: settings.Resolver.MaxRetries,
	})
	res := resolver.New(store, remote, settings.Resolver.CacheTTL)
	engine := query.New(store, res, settings.Search, nil)

	resp, err := engine.FindHotspots(context.Background(), req)
	if err != nil {
		return err
	}
	if len(resp.Results) == 0 {
		fmt.Printf("no hotspots within %.0f ly of %s\n", req.MaxDistanceLy, req.ReferenceSystem)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DISTANCE\tSYSTEM\tRING\tMATERIAL\tCOUNT\tTYPE\tDENSITY")
	for i := range resp.Results {
		r := &resp.Results[i]
		h := &r.Hotspot
		density := ""
		if h.Density != nil {
			density = fmt.Sprintf("%.6f", *h.Density)
		}
		fmt.Fprintf(w, "%.2f ly\t%s\t%s %s\t%s\t%d\t%s\t%s\n",
			r.DistanceLy, h.SystemName,
			strings.TrimSpace(h.BodyName), h.RingName,
			h.Material, h.Count, h.RingType, density)
	}
	w.Flush()

	if resp.Truncated {
		fmt.Printf("(capped at %d rows, narrow the search to see more)\n", len(resp.Results))
	}
	return nil
}

func runStats(settings *conf.Settings) error {
	store := datastore.New(settings, reconcile.New())
	if err := store.Open(); err != nil {
		return err
	}
	defer store.Close()

	stats, err := store.GetStats()
	if err != nil {
		return err
	}

	fmt.Printf("hotspots:    %d\n", stats.Hotspots)
	fmt.Printf("systems:     %d\n", stats.Systems)
	fmt.Printf("coordinates: %d\n", stats.Coordinates)
	fmt.Printf("visits:      %d\n", stats.Visits)
	fmt.Printf("annotations: %d\n", stats.Annotations)

	if len(stats.ByRingType) > 0 {
		types := make([]string, 0, len(stats.ByRingType))
		for t := range stats.ByRingType {
			types = append(types, string(t))
		}
		sort.Strings(types)
		fmt.Println("by ring type:")
		for _, t := range types {
			name := t
			if name == "" {
				name = "(unknown)"
			}
			fmt.Printf("  %-12s %d\n", name, stats.ByRingType[ring.Type(t)])
		}
	}
	return nil
}
