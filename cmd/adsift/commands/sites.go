package commands

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/adsift/pkg/site"
)

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "List the supported sites",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printSites(cmd.OutOrStdout(), site.Builtin().Profiles())
	},
}

func init() {
	rootCmd.AddCommand(sitesCmd)
}

func printSites(w io.Writer, profiles []site.Profile) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tDOMAIN\tSTRATEGY\tBLACKLIST")
	for _, p := range profiles {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Name, p.Domain, p.Strategy.Kind, strings.Join(p.Blacklist, ", "))
	}
	return tw.Flush()
}
