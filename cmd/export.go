package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/randalarm/randalarm/cmd/common"
	"github.com/randalarm/randalarm/pkg/alarmlib"
	"github.com/urfave/cli"
)

var exportFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "output, o",
		Usage: "write the calendar to this file instead of stdout",
	},
}

func export(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	snap, err := readSnapshot(ctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "export", "open", err)
		return nil
	}

	var w io.Writer = os.Stdout
	if path := ctx.String("output"); path != "" {
		f, err := appFs.Create(path)
		if err != nil {
			common.PrintRuntimeErr(ctx, "export", "create", err)
			return nil
		}
		defer f.Close()
		w = f
	}
	if err := alarmlib.WriteICal(w, snap.alarms, time.Now()); err != nil {
		common.PrintRuntimeErr(ctx, "export", "encode", err)
		return nil
	}
	if path := ctx.String("output"); path != "" {
		fmt.Printf("Exported alarms to %s\n", path)
	}
	return nil
}
