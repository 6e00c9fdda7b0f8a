package main

import (
	"context"
	"fmt"
	"math"
	"text/tabwriter"

	"github.com/rxtech-lab/argo-sizing/internal/agent"
	strategyschema "github.com/rxtech-lab/argo-sizing/pkg/strategy"
	"github.com/urfave/cli/v3"
)

func inspectAction(ctx context.Context, cmd *cli.Command) error {
	b, err := openBot(ctx, cmd.String("config"), false)
	if err != nil {
		return err
	}
	defer b.close()

	s := b.agent.Strategy()
	out := cmd.Root().Writer

	fmt.Fprintf(out, "bot:      %s\n", b.cfg.BotID)
	fmt.Fprintf(out, "strategy: %s\n", s.ID())
	fmt.Fprintf(out, "valid:    %t\n", s.IsValid())

	if !s.IsValid() {
		return nil
	}

	budget := s.GetBudgetInfo()
	fmt.Fprintf(out, "budget:   %s (assets %s)\n\n", formatValue(budget.Total), formatValue(budget.Assets))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, e := range s.DumpStatePretty(b.cfg.Market) {
		fmt.Fprintf(w, "%s\t%s\n", e.Label, formatValue(e.Value))
	}

	return w.Flush()
}

func schemaAction(_ context.Context, cmd *cli.Command) error {
	if id := cmd.String("strategy"); id != "" {
		schema, err := strategyschema.ConfigSchema(id)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.Root().Writer, schema)

		return nil
	}

	var cfg agent.Config

	schema, err := cfg.GenerateSchemaJSON()
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.Root().Writer, schema)

	return nil
}

func formatValue(v float64) string {
	switch {
	case math.IsNaN(v):
		return "-"
	case math.IsInf(v, 1):
		return "∞"
	case math.IsInf(v, -1):
		return "-∞"
	default:
		return fmt.Sprintf("%.8g", v)
	}
}
