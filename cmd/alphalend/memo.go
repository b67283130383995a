package main

import (
	"fmt"

	"github.com/DomeLiquid/alphalend"
	"github.com/DomeLiquid/alphalend/core"
	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func memoCommand() *cobra.Command {
	var (
		payee  string
		asset  string
		amount string
	)
	cmd := &cobra.Command{
		Use:   "memo <action>",
		Short: "Print the pay url carrying an action memo",
		Example: `  alphalend memo Deposit --payee <pool user> --asset <asset id> --amount 1.5
  alphalend memo "Claim Alpha" --payee <pool user>`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actionType, ok := core.ValidActionTypeString(args[0])
			if !ok {
				return errors.Wrapf(core.ErrInvalidMemo, "unknown action %q", args[0])
			}
			value := decimal.Zero
			if amount != "" {
				var err error
				if value, err = decimal.NewFromString(amount); err != nil {
					return errors.Wrapf(err, "amount %q", amount)
				}
			}

			memo, err := alphalend.EncodeAction(actionType, asset, value)
			if err != nil {
				return err
			}

			// deposits and repayments carry the funds, everything else only the memo
			payAmount := decimal.Zero
			switch actionType {
			case core.MATDeposit, core.MATRepayByAmount:
				payAmount = value
			}
			tx := core.PayTx{
				Trace:  uuid.Must(uuid.NewV4()).String(),
				Payee:  payee,
				Asset:  asset,
				Amount: payAmount,
				Memo:   memo,
			}
			fmt.Fprintln(cmd.OutOrStdout(), tx.URL())
			return nil
		},
	}
	cmd.Flags().StringVar(&payee, "payee", "", "user id of the pool")
	cmd.Flags().StringVar(&asset, "asset", "", "asset id of the pool")
	cmd.Flags().StringVar(&amount, "amount", "", "amount or shares as a decimal")
	_ = cmd.MarkFlagRequired("payee")
	return cmd
}
