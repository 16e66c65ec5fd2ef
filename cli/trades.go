package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// newTradesCmd lists the recorded trades for a simulation from the durable
// store.
func newTradesCmd(rc *rootConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "trades <simulation-id>",
		Short: "List the trade history of a simulation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rc)
			if err != nil {
				return err
			}

			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			trades, err := st.ListTrades(context.Background(), args[0])
			if err != nil {
				return err
			}
			if len(trades) == 0 {
				fmt.Println("no trades recorded")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tSIDE\tQTY\tPRICE\tREALIZED P/L")
			for _, tr := range trades {
				realized := "-"
				if tr.RealizedPL != nil {
					realized = fmt.Sprintf("%.2f", *tr.RealizedPL)
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%.2f\t%s\n",
					tr.Time.Format("2006-01-02 15:04:05"), tr.Side, tr.Quantity, tr.Price, realized)
			}
			return w.Flush()
		},
	}
}
