// Command randalarmd runs the randalarm background daemon. Flags are the
// global flags of randalarm.
package main

import (
	"fmt"
	"os"

	"github.com/randalarm/randalarm/cmd"
)

var (
	version   string
	commit    string
	date      string
	buildType string = "unclassified"
)

func main() {
	args := append([]string{os.Args[0]}, os.Args[1:]...)
	args = append(args, "daemon")
	err := cmd.Execute(args, cmd.BuildArgs{
		Version:   version,
		Commit:    commit,
		Date:      date,
		BuildType: buildType,
	})
	if err != nil {
		fmt.Println("randalarmd:", err.Error())
		os.Exit(1)
	}
}
