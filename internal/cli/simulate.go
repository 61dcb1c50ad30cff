package cli

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var simulatePrice float64

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "模拟一次价格并触发告警流程",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulatePrice <= 0 {
			return errors.New("--price 必须大于 0")
		}
		return getApp().SimulateAlert(cmd.Context(), decimal.NewFromFloat(simulatePrice))
	},
}

func init() {
	simulateCmd.Flags().Float64Var(&simulatePrice, "price", 0, "模拟的当前价格")
}
