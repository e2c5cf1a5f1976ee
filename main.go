// Command robonavctl is the operator dashboard: it connects to a
// robonavd monitoring endpoint and renders live session state.
package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/foundry9/robonav/tui"
)

var version = "dev"

func main() {
	fs := flag.NewFlagSet("robonavctl", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "robonavctl — watch robot sessions in real-time\n\nUsage:\n  robonavctl [flags] <monitor-addr>\n\nFlags:\n")
		fs.PrintDefaults()
	}

	showVersion := fs.Bool("version", false, "show version and exit")

	_ = fs.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("robonavctl %s\n", version)
		return
	}

	if fs.NArg() < 1 {
		fs.Usage()
		os.Exit(1)
	}

	if err := watch(fs.Arg(0)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func watch(addr string) error {
	p := tea.NewProgram(tui.New(addr), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
