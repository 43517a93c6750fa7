package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"cd2md/internal/netmd"
)

func newMDCommand(ctx *commandContext) *cobra.Command {
	mdCmd := &cobra.Command{
		Use:   "md",
		Short: "Inspect the attached NetMD recorder",
	}
	mdCmd.AddCommand(newMDInfoCommand(ctx))
	return mdCmd
}

func newMDInfoCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show device and disc details",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := ctx.netmdClient(cfg)
			if err != nil {
				return err
			}
			info, err := client.Info(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, info)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderDeviceInfo(info, shouldColorize(cmd.OutOrStdout())))
			return nil
		},
	}
	addJSONFlag(cmd, &asJSON)
	return cmd
}

func renderDeviceInfo(info netmd.DeviceInfo, colorize bool) string {
	var b strings.Builder
	for _, line := range renderSectionHeader("NetMD Device", colorize) {
		b.WriteString(line + "\n")
	}
	lpKind := statusWarn
	if info.OnTheFlyLP {
		lpKind = statusOK
	}
	b.WriteString(renderStatusLine("Device", statusInfo, info.Name, colorize) + "\n")
	b.WriteString(renderStatusLine("LP encoder", lpKind, yesNo(info.OnTheFlyLP), colorize) + "\n")

	d := info.Disc
	title := d.Name
	if strings.TrimSpace(title) == "" {
		title = "<untitled>"
	}
	b.WriteString(renderStatusLine("Disc", statusInfo, title, colorize) + "\n")
	b.WriteString(renderStatusLine("Capacity", statusInfo, fmt.Sprintf("%s total, %s free (SP)",
		netmd.FormatDuration(d.TotalSeconds), netmd.FormatDuration(d.FreeSeconds)), colorize) + "\n")
	b.WriteString(renderStatusLine("Tracks", statusInfo, strconv.Itoa(d.TrackCount), colorize) + "\n")

	if len(d.Tracks) > 0 {
		groupOf := make(map[int]string)
		for _, g := range d.Groups {
			for _, t := range g.Tracks {
				groupOf[t.Number] = g.Name
			}
		}
		rows := make([][]string, 0, len(d.Tracks))
		for _, t := range d.Tracks {
			rows = append(rows, []string{strconv.Itoa(t.Number), t.Name, t.Length, t.Encoding, groupOf[t.Number]})
		}
		b.WriteString(renderTable([]string{"#", "Title", "Length", "Mode", "Group"}, rows,
			[]columnAlignment{alignRight, alignLeft, alignRight, alignCenter, alignLeft}))
		b.WriteString("\n")
	}
	return b.String()
}
