package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/fbrelay/cmd/fbrelay/internal"
	"github.com/tinyland-inc/fbrelay/cmd/fbrelay/internal/serve"
	"github.com/tinyland-inc/fbrelay/cmd/fbrelay/internal/version"
)

func NewFbrelayCommand() *cobra.Command {
	short := fmt.Sprintf("fbrelay - Messenger to Teneo Engine relay v%s", internal.GetVersion())

	cmd := &cobra.Command{
		Use:     "fbrelay",
		Short:   short,
		Example: "fbrelay serve",
	}

	cmd.AddCommand(
		serve.NewServeCommand(),
		version.NewVersionCommand(),
	)

	return cmd
}

func main() {
	cmd := NewFbrelayCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
