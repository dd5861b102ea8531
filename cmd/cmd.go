package cmd

import (
	"fmt"
	"runtime"

	"github.com/randalarm/randalarm/cmd/common"
	"github.com/urfave/cli"
)

type BuildArgs struct {
	Version   string
	BuildType string
	Date      string
	Commit    string
}

func Execute(args []string, bArgs BuildArgs) error {
	app := cli.App{
		Name:                  "randalarm",
		HelpName:              "randalarm",
		Usage:                 "An alarm clock that rings at a random time in a window.",
		Version:               fmt.Sprintf("%s-%s", bArgs.Version, bArgs.BuildType),
		UsageText:             "randalarm <command> [arguments...]",
		Description:           DESCRIPTION,
		CustomAppHelpTemplate: appHelpTemplate,
		OnUsageError:          common.UsageErrorCallback,
		Flags:                 globalFlags,
		Commands: []cli.Command{
			{
				Name:               "daemon",
				Usage:              "runs the background alarm daemon",
				Description:        DaemonDescription,
				CustomHelpTemplate: commandHelpTemplate,
				Action:             getDaemonAction(),
			},
			{
				Name:   "stop-daemon",
				Usage:  "stops the background alarm daemon",
				Action: stopDaemon,
			},
			{
				Name:               "run",
				Aliases:            []string{"r"},
				Usage:              "opens an interactive alarm session",
				Description:        RunDescription,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: commandHelpTemplate,
				Action:             run,
				Flags:              runFlags,
			},
			{
				Name:                   "add",
				Aliases:                []string{"a"},
				Usage:                  "adds an alarm",
				Description:            AddDescription,
				OnUsageError:           common.UsageErrorCallback,
				CustomHelpTemplate:     commandHelpTemplate,
				Action:                 addAlarm,
				Flags:                  alarmFlags,
				UseShortOptionHandling: true,
			},
			{
				Name:               "edit",
				Aliases:            []string{"e"},
				Usage:              "changes an alarm",
				UsageText:          "<alarm id or name> [flags]",
				Description:        EditDescription,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: commandHelpTemplate,
				Action:             editAlarm,
				Flags:              alarmFlags,
			},
			{
				Name:               "list",
				Aliases:            []string{"l"},
				Usage:              "displays your alarms",
				Description:        ListDescription,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: commandHelpTemplate,
				Action:             list,
			},
			{
				Name:               "toggle",
				Aliases:            []string{"t"},
				Usage:              "turns an alarm on or off",
				UsageText:          "<alarm id or name>",
				Description:        ToggleDescription,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: commandHelpTemplate,
				Action:             toggleAlarm,
			},
			{
				Name:               "delete",
				Aliases:            []string{"rm"},
				Usage:              "deletes an alarm",
				UsageText:          "<alarm id or name>",
				Description:        DeleteDescription,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: commandHelpTemplate,
				Action:             deleteAlarm,
			},
			{
				Name:        "sounds",
				Usage:       "manages alarm sounds",
				Description: SoundsDescription,
				Action:      listSounds,
				Subcommands: []cli.Command{
					{
						Name:   "list",
						Usage:  "lists available sounds",
						Action: listSounds,
					},
					{
						Name:      "add",
						Usage:     "imports an audio file",
						UsageText: "<file> [--name NAME]",
						Action:    addSound,
						Flags:     soundAddFlags,
					},
					{
						Name:      "remove",
						Usage:     "removes a custom sound",
						UsageText: "<name>",
						Action:    removeSound,
					},
				},
			},
			{
				Name:               "export",
				Usage:              "exports alarms as an iCalendar file",
				Description:        ExportDescription,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: commandHelpTemplate,
				Action:             export,
				Flags:              exportFlags,
			},
			{
				Name:               "countdown",
				Aliases:            []string{"c"},
				Usage:              "shows the time left until each alarm rings",
				Description:        CountdownDescription,
				CustomHelpTemplate: commandHelpTemplate,
				Action:             countdown,
			},
			{
				Name:        "autostart",
				Usage:       "starts the daemon when you log in",
				Description: AutostartDescription,
				Subcommands: []cli.Command{
					{
						Name:   "enable",
						Usage:  "registers the daemon for login",
						Action: enableAutostart,
					},
					{
						Name:   "disable",
						Usage:  "removes the login registration",
						Action: disableAutostart,
					},
				},
			},
			{
				Name:    "help",
				Aliases: []string{"h"},
				Usage:   "prints the help message",
				Action:  common.Help,
			},
			{
				Name:               "version",
				Aliases:            []string{"v"},
				Usage:              "prints installed version of randalarm",
				UsageText:          " ",
				CustomHelpTemplate: commandHelpTemplate,
				Action:             common.GetVersion,
			},
		},
		Action:      run,
		HideHelp:    true,
		HideVersion: true,
	}
	app.Commands = append(app.Commands, getPlatformCommands()...)
	common.VersionCmdStr = fmt.Sprintf("%s %s (%s_%s)\nBuild: %s=%s\n",
		app.Name,
		app.Version,
		runtime.GOOS,
		runtime.GOARCH,
		bArgs.Date, bArgs.Commit,
	)
	return app.Run(args)
}
