package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"cd2md/internal/deps"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check external tools and the optical drive",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			statuses := deps.CheckBinaries(deps.Requirements(cfg))
			statuses = append(statuses, deps.CheckDevice(cfg.Drive.Device))

			for _, line := range renderSectionHeader("Dependencies", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, s := range statuses {
				fmt.Fprintln(out, dependencyLine(s, colorize))
			}

			missing := deps.Missing(statuses)
			if len(missing) > 0 {
				names := make([]string, 0, len(missing))
				for _, m := range missing {
					names = append(names, m.Name)
				}
				return fmt.Errorf("missing required dependencies: %s", strings.Join(names, ", "))
			}
			return nil
		},
	}
}

func dependencyLine(s deps.Status, colorize bool) string {
	kind := statusOK
	detail := s.Command
	if !s.Available {
		kind = statusError
		if s.Optional {
			kind = statusWarn
		}
		detail = s.Detail
	}
	if s.Description != "" {
		detail = fmt.Sprintf("%s (%s)", detail, s.Description)
	}
	return renderStatusLine(s.Name, kind, detail, colorize)
}
