package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	guda "github.com/LynnColeArt/gudascan"
)

func devicesCmd() *cli.Command {
	return &cli.Command{
		Name:  "devices",
		Usage: "List the available device profiles",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tNAME\tVENDOR\tTYPE\tMEMORY\tMAX GROUP\tLOCAL\tLOCKSTEP")
			for _, d := range guda.ListDevices() {
				_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%d\t%s\t%d\n",
					d.ID, d.Name, d.Vendor, d.Type, humanize.IBytes(d.TotalMem), d.MaxGroupSize,
					humanize.IBytes(uint64(d.LocalMemSize)), guda.LockstepFor(d))
			}
			_, _ = fmt.Fprintf(w, "\nhost: %s\n", guda.GetCPUInfo())
			return w.Flush()
		},
	}
}
