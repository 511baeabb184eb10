package cmd

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/niels/page-server/pkg/routes"
	"github.com/spf13/cobra"
)

func newRoutesCmd(opts *rootOptions) *cobra.Command {
	var noColor bool

	routesCmd := &cobra.Command{
		Use:   "routes",
		Short: "Print the route table and content types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			table := routes.NewTable(opts.cfg)
			out := cmd.OutOrStdout()

			method := color.New(color.FgCyan, color.Bold)
			kind := color.New(color.FgYellow)
			target := color.New(color.FgGreen)
			if noColor {
				method.DisableColor()
				kind.DisableColor()
				target.DisableColor()
			} else {
				method.EnableColor()
				kind.EnableColor()
				target.EnableColor()
			}

			fmt.Fprintln(out, "Routes:")
			for _, e := range table.Entries() {
				fmt.Fprintf(out, "  %s %-20s %s -> %s\n",
					method.Sprint(e.Method), e.Path, kind.Sprintf("%-8s", e.Kind), target.Sprint(e.Target))
			}

			exts := make([]string, 0, len(table.ContentTypes))
			for ext := range table.ContentTypes {
				exts = append(exts, ext)
			}
			sort.Strings(exts)

			fmt.Fprintln(out, "\nContent types:")
			for _, ext := range exts {
				fmt.Fprintf(out, "  %-8s %s\n", ext, target.Sprint(table.ContentTypes[ext]))
			}

			fmt.Fprintf(out, "\nStorage backend: %s\n", opts.cfg.Storage.Backend)
			return nil
		},
	}

	routesCmd.Flags().BoolVar(&noColor, "no-color", false, "Disable color output")

	return routesCmd
}
