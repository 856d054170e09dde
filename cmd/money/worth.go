package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fevolq/money/internal/app"
	"github.com/fevolq/money/internal/core"
	"github.com/fevolq/money/internal/logger"
)

var worthCmd = &cobra.Command{
	Use:   "worth [class] [codes...]",
	Short: "Resolve current valuations",
	Long:  "Resolve current valuations for the given codes, or for the whole watch list when no codes are given.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runWorth,
}

func init() {
	rootCmd.AddCommand(worthCmd)
}

func runWorth(cmd *cobra.Command, args []string) error {
	class, err := core.ParseClass(args[0])
	if err != nil {
		return err
	}

	log := logger.Must(debug)
	defer log.Sync()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := app.New(cfg, log)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()

	_, msg, err := a.ResolveWorth(ctx, class, args[1:])
	if err != nil {
		return err
	}
	fmt.Println(msg)
	return nil
}
