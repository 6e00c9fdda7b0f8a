package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-sizing/internal/datasource"
	"github.com/rxtech-lab/argo-sizing/internal/simulator"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// SummaryFileName is the summary written next to the journal.
const SummaryFileName = "summary.yaml"

func replayAction(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	simCfg, err := simulator.LoadConfig(configPath)
	if err != nil {
		return err
	}

	b, err := openBot(ctx, configPath, true)
	if err != nil {
		return err
	}
	defer b.close()

	journalDir := b.cfg.JournalDir
	if dir := cmd.String("journal"); dir != "" {
		journalDir = optional.Some(dir)
	}

	ds, err := datasource.Open(cmd.String("data"), b.log)
	if err != nil {
		return err
	}
	defer ds.Close()

	total, err := ds.Count(simCfg.Start, simCfg.End)
	if err != nil {
		return err
	}

	sim, err := simulator.New(simCfg, b.agent, b.log)
	if err != nil {
		return err
	}

	onTick := optional.None[simulator.OnTickCallback]()

	if !cmd.Bool("quiet") {
		bar := progressbar.NewOptions(total,
			progressbar.OptionSetDescription(fmt.Sprintf("Replaying %s", b.cfg.BotID)),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWriter(os.Stderr),
		)
		defer func() { _ = bar.Finish() }()

		onTick = optional.Some(simulator.OnTickCallback(func(_ int) {
			_ = bar.Add(1)
		}))
	}

	summary, err := sim.Run(ctx, ds.ReadAll(simCfg.Start, simCfg.End), onTick)
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(summary)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.Root().Writer, "\n%s", out)

	if journalDir.IsSome() {
		dir := journalDir.Unwrap()

		if err := b.journal.Unwrap().Write(dir); err != nil {
			return err
		}

		summaryPath := filepath.Join(dir, SummaryFileName)
		if err := simulator.WriteSummary(summaryPath, summary); err != nil {
			return err
		}

		b.log.Info("Replay results written", zap.String("dir", dir))
	}

	return nil
}
