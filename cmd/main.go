package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "stock-scorer",
	Short: "A CLI for managing the Taiwan stock score services",
	Long: `Stock scorer computes daily fundamentals, chip, technical and news scores
of Taiwan-listed stocks. Use api-service to serve and warm up scores and
migrate to manage the database schema.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Whoops. There was an error while executing your CLI '%s'", err)
		os.Exit(1)
	}
}
