package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"cd2md/internal/cddb"
	"cd2md/internal/disc"
)

func newLookupCommand(ctx *commandContext) *cobra.Command {
	var device string
	var noCache bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Resolve CD titles from CDDB without ripping",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			lookupCfg := *cfg
			if noCache {
				lookupCfg.Lookup.CacheEnabled = false
			}
			path := cfg.Drive.Device
			if device != "" {
				path = device
			}

			drive := disc.NewDevice(path)
			defer drive.Close()
			d, err := drive.Open(cmd.Context())
			if err != nil {
				return err
			}

			prompt := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
			resolver, err := ctx.resolver(&lookupCfg, prompt.choose)
			if err != nil {
				return err
			}
			titles, err := resolver.Resolve(cmd.Context(), d)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, map[string]any{
					"disc_id": d.HexID(),
					"disc":    titles.Disc,
					"tracks":  titles.Tracks,
				})
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTitles(d, titles))
			return nil
		},
	}
	cmd.Flags().StringVarP(&device, "device", "d", "", "Optical drive device")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Bypass the title cache")
	addJSONFlag(cmd, &asJSON)
	return cmd
}

func renderTitles(d disc.Disc, titles cddb.Titles) string {
	rows := make([][]string, 0, len(d.Tracks))
	for _, t := range d.Tracks {
		rows = append(rows, []string{
			strconv.Itoa(t.Ordinal),
			titles.Track(t.Ordinal),
			formatSeconds(t.DurationSeconds()),
		})
	}
	table := renderTable([]string{"#", "Title", "Length"}, rows,
		[]columnAlignment{alignRight, alignLeft, alignRight})
	return fmt.Sprintf("%s (%s)\n%s\n", titles.Disc, d.HexID(), table)
}
