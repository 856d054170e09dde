package main

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fevolq/money/internal/app"
	"github.com/fevolq/money/internal/core"
	"github.com/fevolq/money/internal/store"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Manage the valuation watch list",
}

var watchGetCmd = &cobra.Command{
	Use:   "get [class]",
	Short: "List watched codes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStores(args[0], func(class core.Class, stores *store.Stores) error {
			_, msg, err := stores.Worth.Get(class)
			if err != nil {
				return err
			}
			fmt.Println(msg)
			return nil
		})
	},
}

var watchAddCmd = &cobra.Command{
	Use:   "add [class] [code[:cost]...]",
	Short: "Watch codes, each with an optional cost basis",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := parseWatchEntries(args[1:])
		if err != nil {
			return err
		}
		return withStores(args[0], func(class core.Class, stores *store.Stores) error {
			_, msg, err := stores.Worth.Add(class, entries)
			if err != nil {
				return err
			}
			fmt.Println(msg)
			return nil
		})
	},
}

var watchDelCmd = &cobra.Command{
	Use:   "del [class] [codes...]",
	Short: "Stop watching codes",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStores(args[0], func(class core.Class, stores *store.Stores) error {
			_, msg, err := stores.Worth.Delete(class, args[1:])
			if err != nil {
				return err
			}
			fmt.Println(msg)
			return nil
		})
	},
}

func init() {
	watchCmd.AddCommand(watchGetCmd, watchAddCmd, watchDelCmd)
	rootCmd.AddCommand(watchCmd)
}

// withStores builds the application and hands the stores to fn.
func withStores(classArg string, fn func(core.Class, *store.Stores) error) error {
	class, err := core.ParseClass(classArg)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := app.New(cfg, zap.NewNop())
	if err != nil {
		return err
	}
	return fn(class, a.Stores())
}

func parseWatchEntries(args []string) ([]store.WorthEntry, error) {
	entries := make([]store.WorthEntry, 0, len(args))
	for _, arg := range args {
		code, costStr, found := strings.Cut(arg, ":")
		entry := store.WorthEntry{Code: code}
		if found {
			cost, err := decimal.NewFromString(costStr)
			if err != nil {
				return nil, fmt.Errorf("invalid cost in %q: %w", arg, err)
			}
			entry.Cost = &cost
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
