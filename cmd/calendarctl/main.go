// Command calendarctl is the terminal client of the minimal calendar.
// It keeps anonymous events on this device, or talks to
// calendar-server for signed-in accounts.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "erro:", err)
		os.Exit(1)
	}
}

// rootFlags are the persistent flags of every command.
type rootFlags struct {
	configPath string
	anonymous  bool
	localAuth  bool
	ephemeral  bool
	verbose    bool
}

// NewRootCmd constructs the root CLI command; exposed for unit testing.
func NewRootCmd() *cobra.Command {
	var flags rootFlags
	a := &app{}

	root := &cobra.Command{
		Use:           "calendarctl",
		Short:         "Minimal calendar: month view, events per day, accounts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd, flags)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (default "+defaultConfigHint()+")")
	pf.BoolVar(&flags.anonymous, "anonymous", false, "use the anonymous calendar kept on this device")
	pf.BoolVar(&flags.localAuth, "local-auth", false, "use device-only demo accounts instead of the server")
	pf.BoolVar(&flags.ephemeral, "ephemeral", false, "keep state in memory for this run only")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "debug logging on stderr")

	root.AddCommand(
		newLoginCmd(a),
		newRegisterCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newAddCmd(a),
		newListCmd(a),
		newRemoveCmd(a),
		newMonthCmd(a),
		newExportCmd(a),
		newImportCmd(a),
		newClearCmd(a),
	)
	return root
}
