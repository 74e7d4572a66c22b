package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/arloliu/hierfit"
	"github.com/arloliu/hierfit/regression"
)

func newCompareCmd(a *app) *cobra.Command {
	var dataPath string

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Rank the built-in mean functions by pooled least-squares fit",
		Long: `compare fits every built-in mean function to all observations, ignoring
groups, and prints them ranked by R². Use it to choose a preset before fitting
the hierarchical model.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := a.readData(dataPath)
			if err != nil {
				return err
			}
			res, err := hierfit.ComparePresets(data.Observations)
			if err != nil {
				return err
			}

			return writeRanking(cmd.OutOrStdout(), res)
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "", "CSV file of observations")
	_ = cmd.MarkFlagRequired("data")

	return cmd
}

func writeRanking(w io.Writer, res *regression.Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "rank\tpreset\tformula\tr2\trmse\tcoefficients")
	for i, m := range res.AllModels {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.4f\t%.4g\t%v\n",
			i+1, m.Type, m.Formula, m.RSquared, m.RMSE, coefficients(m))
	}

	return tw.Flush()
}

func coefficients(m *regression.Model) string {
	var s string
	for i, name := range m.Names {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%s=%.4g", name, m.Coefficients[i])
	}

	return s
}
