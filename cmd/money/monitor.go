package main

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/fevolq/money/internal/core"
	"github.com/fevolq/money/internal/store"
)

var (
	monitorCode   string
	monitorRemark string
	monitorWorth  string
	monitorCost   string
	monitorGrowth string
	monitorLessen string
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Manage threshold monitor options",
}

var monitorGetCmd = &cobra.Command{
	Use:   "get [class]",
	Short: "List monitor options",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStores(args[0], func(class core.Class, stores *store.Stores) error {
			_, msg, err := stores.Monitor.Get(class, monitorCode)
			if err != nil {
				return err
			}
			fmt.Println(msg)
			return nil
		})
	},
}

var monitorAddCmd = &cobra.Command{
	Use:   "add [class]",
	Short: "Add a monitor option",
	Long:  "Add a monitor option: a worth threshold, or a cost basis with growth and/or lessen percentages.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opt := store.MonitorOption{Code: monitorCode, Remark: monitorRemark}
		var err error
		if opt.Worth, err = optionalDecimal(monitorWorth); err != nil {
			return err
		}
		if opt.Cost, err = optionalDecimal(monitorCost); err != nil {
			return err
		}
		if opt.Growth, err = optionalDecimal(monitorGrowth); err != nil {
			return err
		}
		if opt.Lessen, err = optionalDecimal(monitorLessen); err != nil {
			return err
		}

		return withStores(args[0], func(class core.Class, stores *store.Stores) error {
			id, err := stores.Monitor.Add(class, opt)
			if err != nil {
				return err
			}
			fmt.Printf("【%s】添加成功\n", id)
			return nil
		})
	},
}

var monitorDelCmd = &cobra.Command{
	Use:   "del [class] [ids...]",
	Short: "Delete monitor options by id",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStores(args[0], func(class core.Class, stores *store.Stores) error {
			_, msg, err := stores.Monitor.Delete(class, args[1:])
			if err != nil {
				return err
			}
			fmt.Println(msg)
			return nil
		})
	},
}

func init() {
	monitorGetCmd.Flags().StringVar(&monitorCode, "code", "", "filter by code")

	monitorAddCmd.Flags().StringVar(&monitorCode, "code", "", "instrument code (required)")
	monitorAddCmd.Flags().StringVar(&monitorRemark, "remark", "", "free-form remark")
	monitorAddCmd.Flags().StringVar(&monitorWorth, "worth", "", "worth threshold, negative alerts below")
	monitorAddCmd.Flags().StringVar(&monitorCost, "cost", "", "cost basis for growth/lessen")
	monitorAddCmd.Flags().StringVar(&monitorGrowth, "growth", "", "growth percentage threshold")
	monitorAddCmd.Flags().StringVar(&monitorLessen, "lessen", "", "lessen percentage threshold")
	monitorAddCmd.MarkFlagRequired("code")

	monitorCmd.AddCommand(monitorGetCmd, monitorAddCmd, monitorDelCmd)
	rootCmd.AddCommand(monitorCmd)
}

func optionalDecimal(s string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	return &d, nil
}
