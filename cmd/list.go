package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imishinist/scibench/internal/benchmarks"
	_ "github.com/imishinist/scibench/internal/benchmarks/synthetic"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available benchmarks",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range benchmarks.Names() {
			fmt.Println(name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
