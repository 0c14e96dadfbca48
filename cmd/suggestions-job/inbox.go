package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jhoicas/retail-suggestions/internal/bootstrap"
)

var (
	inboxRetailerID string
	inboxLimit      int64
)

// inboxCmd muestra los últimos avisos enviados a un minorista (requiere Redis).
var inboxCmd = &cobra.Command{
	Use:     "inbox",
	Short:   "Lista los últimos avisos de sugerencias enviados a un minorista",
	Example: `  suggestions-job inbox --retailer-id R-0001 --limit 10`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if inboxRetailerID == "" {
			return errors.New("--retailer-id es requerido")
		}
		ctx := context.Background()
		c, err := bootstrap.Build(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer c.Close()
		if c.Inbox == nil {
			return errors.New("REDIS_ADDR vacío: no hay bandeja de avisos")
		}

		msgs, err := c.Inbox.Inbox(ctx, inboxRetailerID, inboxLimit)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ENVIADO\tMENSAJE")
		fmt.Fprintln(w, "-------\t-------")
		for _, m := range msgs {
			fmt.Fprintf(w, "%s\t%s\n", m.SentAt.Format("2006-01-02 15:04:05"), m.Text)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(inboxCmd)
	inboxCmd.Flags().StringVar(&inboxRetailerID, "retailer-id", "", "minorista")
	inboxCmd.Flags().Int64Var(&inboxLimit, "limit", 20, "cantidad máxima de avisos")
}
