package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/randalarm/randalarm/cmd/common"
	"github.com/randalarm/randalarm/pkg/alarmlib"
	"github.com/urfave/cli"
)

var soundAddFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "name, n",
		Usage: "catalog name of the sound (default: file name)",
	},
}

func listSounds(ctx *cli.Context) error {
	snap, err := readSnapshot(ctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "sounds", "open", err)
		return nil
	}
	fmt.Println(soundTable(snap.sounds))
	return nil
}

func soundTable(sounds []alarmlib.Sound) string {
	txt := "Available sounds:\n"
	for i, s := range sounds {
		kind := "built-in"
		if s.Custom {
			kind = "custom"
		}
		txt += fmt.Sprintf("\n%2d. %-20s [%s] %s", i+1, s.Name, kind, s.File)
	}
	return txt
}

func addSound(ctx *cli.Context) error {
	src := ctx.Args().First()
	if src == "" || src == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	o, err := openOneShot(ctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "sounds", "open", err)
		return nil
	}
	defer o.close()

	s, err := alarmlib.ImportSound(appFs, o.cfg.SoundsDir(), src, ctx.String("name"))
	if err != nil {
		common.PrintRuntimeErr(ctx, "sounds", "import", err)
		return nil
	}
	if err := o.eng.AddSound(s); err != nil {
		_ = appFs.Remove(s.File)
		common.PrintRuntimeErr(ctx, "sounds", "add", err)
		return nil
	}
	fmt.Printf("Added sound %q\n", s.Name)
	return nil
}

func removeSound(ctx *cli.Context) error {
	key := ctx.Args().First()
	if key == "" || key == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	o, err := openOneShot(ctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "sounds", "open", err)
		return nil
	}
	defer o.close()

	s, err := o.eng.RemoveSound(key)
	if err != nil {
		common.PrintRuntimeErr(ctx, "sounds", "remove", err)
		return nil
	}
	// only files we imported are ours to delete
	if strings.HasPrefix(s.File, o.cfg.SoundsDir()+string(filepath.Separator)) {
		_ = appFs.Remove(s.File)
	}
	fmt.Printf("Removed sound %q\n", s.Name)
	o.finish()
	return nil
}
