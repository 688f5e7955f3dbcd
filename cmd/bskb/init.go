package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"bskb/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration",
	Long:  `Write the default configuration to .bskb/config.json in the working directory.`,
	Run:   runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing configuration")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) {
	root, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving working directory: %v\n", err)
		os.Exit(1)
	}

	if !initForce {
		if _, err := os.Stat(config.Path(root)); err == nil {
			fmt.Fprintln(os.Stderr, "Configuration already exists; use --force to overwrite")
			os.Exit(1)
		}
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(root); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing configuration: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %s\n", config.Path(root))
}
