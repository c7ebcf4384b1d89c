package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"madamis/backend/internal/client"
	"madamis/backend/internal/logging"
)

type globalFlags struct {
	server   string
	token    string
	logLevel string
}

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "timerctl",
		Short:         "Control and display a session timer",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			logging.Setup(flags.logLevel, true, os.Stderr)
		},
	}
	root.PersistentFlags().StringVar(&flags.server, "server", envOr("TIMERCTL_SERVER", "http://localhost:8080"), "timer backend base URL")
	root.PersistentFlags().StringVar(&flags.token, "token", os.Getenv("TIMERCTL_TOKEN"), "bearer token for commands")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", envOr("LOG_LEVEL", "warn"), "log level")

	root.AddCommand(newLoginCmd(flags))
	root.AddCommand(newWhoamiCmd(flags))
	root.AddCommand(newSessionCmd(flags))
	root.AddCommand(newStatusCmd(flags))
	root.AddCommand(newStartCmd(flags))
	root.AddCommand(newSimpleCmd(flags, "pause", "Pause the timer"))
	root.AddCommand(newSimpleCmd(flags, "reset", "Reset the timer to zero"))
	root.AddCommand(newAddCmd(flags))
	root.AddCommand(newConfigCmd(flags))
	root.AddCommand(newDisplayCmd(flags))
	root.AddCommand(newControlCmd(flags))
	return root
}

func (f *globalFlags) client() *client.Client {
	return client.New(f.server, f.token)
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
