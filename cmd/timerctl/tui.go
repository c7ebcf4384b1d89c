package main

import (
	"context"
	"fmt"
	"net/url"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"madamis/backend/internal/logging"
	"madamis/backend/internal/ui/control"
	"madamis/backend/internal/ui/display"
)

func newDisplayCmd(flags *globalFlags) *cobra.Command {
	var options string
	cmd := &cobra.Command{
		Use:   "display <session-id>",
		Short: "Full-screen read-only countdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := url.ParseQuery(options)
			if err != nil {
				return fmt.Errorf("invalid --options: %w", err)
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			logging.Discard()
			events := flags.client().Watch(ctx, args[0])
			model := display.New(events, display.ParseOptions(values), nil)
			_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
			return err
		},
	}
	cmd.Flags().StringVar(&options, "options", "", "query-style options: theme=dark|light&scale=2&title=1&schedule=1&shadow=0")
	return cmd
}

func newControlCmd(flags *globalFlags) *cobra.Command {
	var themeName string
	cmd := &cobra.Command{
		Use:   "control <session-id>",
		Short: "Interactive phase editor and timer controls",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.token == "" {
				return fmt.Errorf("control needs a token: run timerctl login or set TIMERCTL_TOKEN")
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			logging.Discard()
			c := flags.client()
			model := control.New(args[0], c, c.Watch(ctx, args[0]), themeName, nil)
			_, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
			return err
		},
	}
	cmd.Flags().StringVar(&themeName, "theme", "dark", "dark or light")
	return cmd
}
