package cmd

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:   "autotrade",
	Short: "Automated US equities trading loop",
}

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(cycleCmd)
	rootCmd.AddCommand(positionsCmd)
}

func Execute() error {
	return rootCmd.Execute()
}
