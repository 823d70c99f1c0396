package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var cycleCmd = &cobra.Command{
	Use:   "cycle",
	Short: "Run a single trading cycle and print its report",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

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

		report, err := services.TradingService.RunCycle(ctx)
		if report != nil {
			out, _ := json.MarshalIndent(report, "", "  ")
			fmt.Println(string(out))
		}
		if err != nil {
			log.Printf("Cycle finished with error: %v", err)
		}
	},
}
