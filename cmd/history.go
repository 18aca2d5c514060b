package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	fwconfig "github.com/fwpull/fwpull/internal/config"
	"github.com/fwpull/fwpull/internal/historydb"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "list previously completed fetches",
	Run:   runHistory,
}

func runHistory(cmd *cobra.Command, args []string) {
	cfg := fwconfig.Load()

	hdb, err := historydb.Open(filepath.Join(cfg.StateDir, "history.sqlite"))
	if err != nil {
		exitOnError(err)
		return
	}
	defer hdb.Close()

	entries, err := hdb.List()
	if err != nil {
		exitOnError(err)
		return
	}

	if len(entries) == 0 {
		fmt.Println("no completed fetches recorded")
		return
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MODEL\tREGION\tVERSION\tOUTPUT\tSIZE\tCOMPLETED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			e.Model, e.Region, e.Version, e.OutputPath, e.Size, e.CompletedAt.Format("2006-01-02 15:04:05"))
	}
	tw.Flush()
}
