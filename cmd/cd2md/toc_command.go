package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"cd2md/internal/cddb"
	"cd2md/internal/disc"
)

type tocTrackJSON struct {
	Ordinal     int    `json:"ordinal"`
	StartSector uint64 `json:"start_sector"`
	Sectors     uint64 `json:"sectors"`
	Seconds     uint64 `json:"seconds"`
	Bytes       uint64 `json:"bytes"`
}

type tocJSON struct {
	DiscID  string         `json:"disc_id"`
	Query   string         `json:"query"`
	Seconds uint64         `json:"seconds"`
	Tracks  []tocTrackJSON `json:"tracks"`
}

func newTOCCommand(ctx *commandContext) *cobra.Command {
	var device string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "toc",
		Short: "Print the table of contents of the inserted CD",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
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
			if asJSON {
				return writeJSON(cmd, tocView(d))
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTOC(d))
			return nil
		},
	}
	cmd.Flags().StringVarP(&device, "device", "d", "", "Optical drive device")
	addJSONFlag(cmd, &asJSON)
	return cmd
}

func tocView(d disc.Disc) tocJSON {
	view := tocJSON{
		DiscID:  d.HexID(),
		Query:   cddb.BuildQuery(d),
		Seconds: d.TotalSeconds(),
		Tracks:  make([]tocTrackJSON, 0, len(d.Tracks)),
	}
	for _, t := range d.Tracks {
		view.Tracks = append(view.Tracks, tocTrackJSON{
			Ordinal:     t.Ordinal,
			StartSector: t.StartSector,
			Sectors:     t.SectorCount,
			Seconds:     t.DurationSeconds(),
			Bytes:       t.ByteSize(),
		})
	}
	return view
}

func renderTOC(d disc.Disc) string {
	rows := make([][]string, 0, len(d.Tracks))
	for _, t := range d.Tracks {
		rows = append(rows, []string{
			strconv.Itoa(t.Ordinal),
			strconv.FormatUint(t.StartSector, 10),
			strconv.FormatUint(t.SectorCount, 10),
			formatSeconds(t.DurationSeconds()),
			humanize.IBytes(t.ByteSize()),
		})
	}
	table := renderTableWithFooter(
		[]string{"#", "Start", "Sectors", "Length", "Size"},
		rows,
		[]string{"", "", "Total", formatSeconds(d.TotalSeconds()), humanize.IBytes(d.TotalBytes())},
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight},
	)
	return fmt.Sprintf("%s\nDisc ID: %s\nQuery:   %s\n", table, d.HexID(), cddb.BuildQuery(d))
}

func formatSeconds(seconds uint64) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
