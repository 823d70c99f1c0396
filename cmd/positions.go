package cmd

import (
	"context"
	"fmt"
	"golang-autotrade/pkg/utils"
	"log"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var positionsCmd = &cobra.Command{
	Use:   "positions",
	Short: "List persisted open positions",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		appDep, err := NewAppDependency(ctx)
		if err != nil {
			log.Fatalf("Failed to create app dependency: %v", err)
		}
		defer appDep.Close()

		repo, services, err := appDep.buildServices(ctx)
		if err != nil {
			log.Fatalf("Failed to build services: %v", err)
		}
		defer repo.PositionStore.Close()

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SYMBOL\tQTY\tENTRY\tSTOP\tHIGH\tTRAILING\tTP HIT")
		for _, p := range services.PositionManager.List() {
			fmt.Fprintf(w, "%s\t%d/%d\t%s\t%s\t%s\t%t\t%v\n",
				p.Symbol,
				p.Quantity, p.OriginalQuantity,
				utils.FormatUSD(p.EntryPrice),
				utils.FormatUSD(p.CurrentStopLoss),
				utils.FormatUSD(p.HighestPrice),
				p.TrailingStopActive,
				[]int(p.TakeProfitLevelsHit),
			)
		}
		_ = w.Flush()
	},
}
