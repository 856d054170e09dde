package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fevolq/money/internal/core"
	"github.com/fevolq/money/internal/store"
)

var (
	historyCode    string
	historyWindows []string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage historical change monitor options",
}

var historyGetCmd = &cobra.Command{
	Use:   "get [class]",
	Short: "List history monitor options",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStores(args[0], func(class core.Class, stores *store.Stores) error {
			_, msg, err := stores.History.Get(class, historyCode)
			if err != nil {
				return err
			}
			fmt.Println(msg)
			return nil
		})
	},
}

var historyAddCmd = &cobra.Command{
	Use:   "add [class]",
	Short: "Add a history monitor option",
	Long: `Add a history monitor option. Each --window takes the form
window:growth[:lessen], e.g. --window 3:10 --window 7:0:5.
A zero threshold leaves that direction unset.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		windows, err := parseWindowRules(historyWindows)
		if err != nil {
			return err
		}
		opt := store.HistoryOption{Code: historyCode, Windows: windows}

		return withStores(args[0], func(class core.Class, stores *store.Stores) error {
			if err := stores.History.Add(class, opt); err != nil {
				return err
			}
			fmt.Printf("%s添加成功\n", opt.Code)
			return nil
		})
	},
}

var historyDelCmd = &cobra.Command{
	Use:   "del [class] [codes...]",
	Short: "Delete history monitor options by code",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStores(args[0], func(class core.Class, stores *store.Stores) error {
			_, msg, err := stores.History.Delete(class, args[1:])
			if err != nil {
				return err
			}
			fmt.Println(msg)
			return nil
		})
	},
}

func init() {
	historyGetCmd.Flags().StringVar(&historyCode, "code", "", "filter by code")

	historyAddCmd.Flags().StringVar(&historyCode, "code", "", "instrument code (required)")
	historyAddCmd.Flags().StringArrayVar(&historyWindows, "window", nil, "window rule window:growth[:lessen]")
	historyAddCmd.MarkFlagRequired("code")
	historyAddCmd.MarkFlagRequired("window")

	historyCmd.AddCommand(historyGetCmd, historyAddCmd, historyDelCmd)
	rootCmd.AddCommand(historyCmd)
}

func parseWindowRules(args []string) (map[int]store.WindowRule, error) {
	windows := make(map[int]store.WindowRule, len(args))
	for _, arg := range args {
		parts := strings.Split(arg, ":")
		if len(parts) < 2 || len(parts) > 3 {
			return nil, fmt.Errorf("invalid window rule %q, want window:growth[:lessen]", arg)
		}

		window, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("invalid window in %q: %w", arg, err)
		}

		var rule store.WindowRule
		if rule.Growth, err = optionalDecimal(parts[1]); err != nil {
			return nil, err
		}
		if rule.Growth != nil && rule.Growth.IsZero() {
			rule.Growth = nil
		}
		if len(parts) == 3 {
			if rule.Lessen, err = optionalDecimal(parts[2]); err != nil {
				return nil, err
			}
			if rule.Lessen != nil && rule.Lessen.IsZero() {
				rule.Lessen = nil
			}
		}
		windows[window] = rule
	}
	return windows, nil
}
