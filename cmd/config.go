package cmd

// appHelpTemplate renders "randalarm help".
const appHelpTemplate = `{{.Name}} - {{.Usage}}
{{.Description}}
Usage:
        {{.UsageText}}
{{if .VisibleCommands}}
Commands:{{range .VisibleCommands}}
  {{join .Names ", "}}{{"\t"}}{{.Usage}}{{end}}{{end}}{{if .VisibleFlags}}

Global flags:{{range .VisibleFlags}}
  {{.}}{{end}}{{end}}

Run "{{.HelpName}} help <command>" to see the flags of a command.

`

// commandHelpTemplate renders "randalarm help <command>".
const commandHelpTemplate = `{{.HelpName}} - {{.Usage}}
{{if .Description}}
{{.Description}}{{end}}Usage:
        {{.HelpName}} {{if .UsageText}}{{.UsageText}}{{else}}[arguments...]{{end}}{{if .VisibleFlags}}

Flags:{{range .VisibleFlags}}
  {{.}}{{end}}{{end}}

`

const DESCRIPTION = `
randalarm rings each of your alarms at a random moment inside the
window you give it, on the weekdays you choose. A foreground session
plays the sound while a background daemon keeps every alarm armed and
raises a notification when no session is open.
`

const (
	RunDescription = `The run command opens an interactive alarm session. It plays
alarms as they ring and accepts commands on standard input:
snooze, stop, list, add, edit, toggle, delete, sounds and quit.

Example:
        randalarm run

`
	AddDescription = `The add command creates an alarm that rings once, at a random
moment between --start and --end, on every selected day.

Example:
        randalarm add --start 06:30 --end 07:15 --days weekdays
        randalarm add -n "Gym" -s 05:45 -e 06:00 -d mon,wed,fri

`
	EditDescription = `The edit command changes an alarm. Unset flags keep their current
value. Saving an edit activates the alarm.

Example:
        randalarm edit <alarm id> --end 08:00

`
	ListDescription = `The list command displays your alarms along with their ids and
the next instant each one will ring.

Example:
        randalarm list

`
	ToggleDescription = `The toggle command turns an alarm on or off.

Example:
        randalarm toggle <alarm id>

`
	DeleteDescription = `The delete command removes an alarm for good.

Example:
        randalarm delete <alarm id>

`
	SoundsDescription = `The sounds command manages the alarm sound catalog. Imported
files are copied into the randalarm data directory.

Example:
        randalarm sounds list
        randalarm sounds add ~/Music/rooster.ogg --name Rooster
        randalarm sounds remove Rooster

`
	ExportDescription = `The export command writes your alarms as an iCalendar file with
one weekly recurring event per alarm.

Example:
        randalarm export -o alarms.ics

`
	CountdownDescription = `The countdown command shows the time left until each active
alarm rings.

Example:
        randalarm countdown

`
	DaemonDescription = `The daemon command runs the background authority that keeps
alarms armed and shows notifications while no session is open.

Example:
        randalarm daemon

`
	AutostartDescription = `The autostart command registers the daemon to start when you
log in, or removes that registration.

Example:
        randalarm autostart enable

`
	ServiceDescription = `Installs the daemon as a Windows service that starts with the
machine. The service runs as LocalSystem and cannot read your keyring,
so the config file must set rpc_secret; sessions and the service then
share it. "install" records the config file path in the service
command line.

Example:
        randalarm service install
        randalarm service status

`
)
