package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"cd2md/internal/config"
	"cd2md/internal/disc"
	"cd2md/internal/encoder"
	"cd2md/internal/history"
	"cd2md/internal/logging"
	"cd2md/internal/subprocess"
	"cd2md/internal/workflow"
)

type ripFlags struct {
	appendTracks bool
	noCDDB       bool
	noGroup      bool
	transferMode string
	externalMode string
	device       string
	keepTemp     bool
	verbose      bool
	wait         bool
}

func newRipCommand(ctx *commandContext) *cobra.Command {
	var flags ripFlags

	cmd := &cobra.Command{
		Use:   "rip",
		Short: "Rip the inserted CD onto the attached MiniDisc",
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cfg, err := applyRipFlags(cmd, base, flags)
			if err != nil {
				return err
			}
			return runRip(cmd, ctx, cfg, flags.wait)
		},
	}

	cmd.Flags().BoolVar(&flags.appendTracks, "append", false, "Append tracks instead of erasing the MiniDisc")
	cmd.Flags().BoolVar(&flags.noCDDB, "no-cddb", false, "Skip the CDDB title lookup")
	cmd.Flags().BoolVar(&flags.noGroup, "no-group", false, "Do not group LP tracks under the disc title")
	cmd.Flags().StringVarP(&flags.transferMode, "encode", "e", "", "On-the-fly transfer mode: sp, lp2, lp4")
	cmd.Flags().StringVarP(&flags.externalMode, "ext-encode", "x", "", "External ATRAC3 encoding: no, lp2, lp4")
	cmd.Flags().StringVarP(&flags.device, "device", "d", "", "Optical drive device")
	cmd.Flags().BoolVar(&flags.keepTemp, "keep-temp", false, "Keep temporary WAV files")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "Verbose tool output")
	cmd.Flags().BoolVar(&flags.wait, "wait", false, "Wait for a disc to be inserted")
	return cmd
}

// applyRipFlags returns a copy of base with the explicitly set flags applied.
func applyRipFlags(cmd *cobra.Command, base *config.Config, flags ripFlags) (*config.Config, error) {
	cfg := *base
	set := cmd.Flags().Changed
	if set("append") {
		cfg.Transfer.Append = flags.appendTracks
	}
	if set("no-cddb") {
		cfg.Lookup.Enabled = !flags.noCDDB
	}
	if set("no-group") {
		cfg.Transfer.Group = !flags.noGroup
	}
	if set("encode") {
		cfg.Encoding.TransferMode = strings.ToLower(strings.TrimSpace(flags.transferMode))
	}
	if set("ext-encode") {
		cfg.Encoding.ExternalMode = strings.ToLower(strings.TrimSpace(flags.externalMode))
	}
	if set("device") {
		cfg.Drive.Device = strings.TrimSpace(flags.device)
	}
	if set("keep-temp") {
		cfg.Diagnostics.KeepTemp = flags.keepTemp
	}
	if set("verbose") {
		cfg.Tools.Verbose = flags.verbose
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func runRip(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, wait bool) error {
	logger := ctx.ensureLogger()
	stdout := cmd.OutOrStdout()

	md, err := ctx.netmdClient(cfg)
	if err != nil {
		return err
	}

	prompt := newPrompter(cmd.InOrStdin(), stdout)
	interactive := term.IsTerminal(int(os.Stdin.Fd()))

	opts := []workflow.Option{
		workflow.WithLogger(logger),
		workflow.WithStatusOutput(stdout),
		workflow.WithToolOutput(cmd.ErrOrStderr()),
		workflow.WithWaitForMedia(wait),
	}
	if interactive {
		opts = append(opts, workflow.WithDecider(prompt.eraseDecision), workflow.WithConfirm(prompt.confirm))
	}
	if cfg.Encoding.ExternalMode != config.ModeNone || cfg.Encoding.TransferMode != config.ModeSP {
		// LP transfer may fall back to external encoding, so the encoder is
		// wired whenever an LP mode is requested.
		enc, err := encoder.New(cfg.Tools.EncoderBinary,
			encoder.WithRunner(subprocess.NewExec(logger)),
			encoder.WithKeepIntermediate(cfg.Tools.Verbose || cfg.Diagnostics.KeepTemp),
			encoder.WithLogger(logger),
		)
		if err != nil {
			return err
		}
		opts = append(opts, workflow.WithEncoder(enc))
	}
	if cfg.Lookup.Enabled {
		chooser := prompt.choose
		if !interactive {
			chooser = nil
		}
		resolver, err := ctx.resolver(cfg, chooser)
		if err != nil {
			return err
		}
		opts = append(opts, workflow.WithLookup(resolver))
	}

	store, err := ctx.openHistory(cfg)
	if err != nil {
		logging.WarnWithContext(logger, "run history unavailable", "history_unavailable",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run will not appear in cd2md history"),
			logging.String(logging.FieldErrorHint, "delete the history database if its schema is outdated"),
		)
	} else {
		defer store.Close()
		opts = append(opts, workflow.WithHistory(store))
	}

	drive := disc.NewDevice(cfg.Drive.Device)
	session, err := workflow.New(cfg, drive, md, opts...)
	if err != nil {
		return err
	}
	res, err := session.Run(cmd.Context())
	if err != nil {
		return err
	}
	printRipSummary(cmd, res)
	return nil
}

func printRipSummary(cmd *cobra.Command, res workflow.Result) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	s := res.Summary

	for _, line := range renderSectionHeader("Run Summary", colorize) {
		fmt.Fprintln(out, line)
	}
	title := res.Titles.Disc
	if strings.TrimSpace(title) == "" {
		title = "<untitled>"
	}
	fmt.Fprintln(out, renderStatusLine("Disc", statusInfo, fmt.Sprintf("%s (%s)", title, res.Disc.HexID()), colorize))
	fmt.Fprintln(out, renderStatusLine("Modes", statusInfo, describeModes(res), colorize))
	fmt.Fprintln(out, renderStatusLine("Extracted", trackCountKind(s.Extracted, len(res.Disc.Tracks)),
		fmt.Sprintf("%d/%d tracks, %s", s.Extracted, len(res.Disc.Tracks), humanize.IBytes(res.Disc.TotalBytes())), colorize))
	if res.Modes.External != config.ModeNone {
		fmt.Fprintln(out, renderStatusLine("Encoded", trackCountKind(s.Encoded, s.Extracted),
			fmt.Sprintf("%d/%d tracks", s.Encoded, s.Extracted), colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Transferred", trackCountKind(s.Transferred, len(res.Disc.Tracks)),
		fmt.Sprintf("%d/%d tracks", s.Transferred, len(res.Disc.Tracks)), colorize))
	fmt.Fprintln(out, renderStatusLine("Elapsed", statusInfo, res.Elapsed.Round(time.Second).String(), colorize))
	fmt.Fprintln(out, renderStatusLine("Run", statusInfo, res.RunID, colorize))
	if s.Failed() {
		fmt.Fprintln(out, renderStatusLine("Status", statusWarn,
			fmt.Sprintf("%s (see `cd2md history show %s`)", history.StatusPartial, shortID(res.RunID)), colorize))
	}
}

func describeModes(res workflow.Result) string {
	parts := []string{"transfer " + res.Modes.Transfer}
	if res.Modes.External != config.ModeNone {
		parts = append(parts, "atracdenc "+res.Modes.External)
	}
	if res.Modes.Fallback {
		parts = append(parts, "LP fallback")
	}
	if res.Append {
		parts = append(parts, "append")
	}
	return strings.Join(parts, ", ")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
