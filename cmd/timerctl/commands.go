package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"madamis/backend/internal/model"
	"madamis/backend/internal/realtime"
	"madamis/backend/internal/timer"
)

const requestTimeout = 15 * time.Second

func newLoginCmd(flags *globalFlags) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and print a token for TIMERCTL_TOKEN",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = os.Getenv("TIMERCTL_PASSWORD")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			result, err := flags.client().Login(ctx, email, password)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s\nexport TIMERCTL_TOKEN=%s\n", result.User.Email, result.Token)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (or TIMERCTL_PASSWORD)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newWhoamiCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the account behind the current token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			user, err := flags.client().Me(ctx)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", user.ID, user.Email)
			return nil
		},
	}
}

func newSessionCmd(flags *globalFlags) *cobra.Command {
	session := &cobra.Command{Use: "session", Short: "Manage game sessions"}
	session.AddCommand(&cobra.Command{
		Use:   "create <title>",
		Short: "Create a session owned by you",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			created, err := flags.client().CreateSession(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", created.ID, created.Title)
			return nil
		},
	})
	return session
}

func newStatusCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status <session-id>",
		Short: "Print the resolved timer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			state, err := flags.client().State(ctx, args[0])
			if err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), state.Snapshot.Document, state.View)
			return nil
		},
	}
}

func newStartCmd(flags *globalFlags) *cobra.Command {
	var title string
	cmd := &cobra.Command{
		Use:   "start <session-id>",
		Short: "Start or resume the timer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start := timer.Start{}
			if cmd.Flags().Changed("title") {
				start.Title = &title
			}
			return sendCommand(cmd, flags, args[0], timer.Request{Command: start})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "replace the timer title")
	return cmd
}

func newSimpleCmd(flags *globalFlags, action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <session-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var command timer.Command = timer.Pause{}
			if action == string(timer.ActionReset) {
				command = timer.Reset{}
			}
			return sendCommand(cmd, flags, args[0], timer.Request{Command: command})
		},
	}
}

func newAddCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "add <session-id> <seconds|duration>",
		Short: "Shift the flat duration, e.g. 300 or -5m",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			seconds, err := parseAddSeconds(args[1])
			if err != nil {
				return err
			}
			return sendCommand(cmd, flags, args[0], timer.Request{Command: timer.Add{Seconds: seconds}})
		},
	}
}

func newConfigCmd(flags *globalFlags) *cobra.Command {
	var file string
	var baseVersion int64
	cmd := &cobra.Command{
		Use:   "config <session-id>",
		Short: "Replace title and phases from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read %s: %w", file, err)
			}
			cfg, err := parseConfigFile(data)
			if err != nil {
				return err
			}
			return sendCommand(cmd, flags, args[0], timer.Request{Command: cfg, BaseVersion: baseVersion})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file with title, phases and agenda")
	cmd.Flags().Int64Var(&baseVersion, "base-version", 0, "reject the change if the timer is no longer at this version")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func sendCommand(cmd *cobra.Command, flags *globalFlags, sessionID string, req timer.Request) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
	defer cancel()

	snapshot, err := flags.client().Command(ctx, sessionID, req)
	if err != nil {
		return err
	}
	printStatus(cmd.OutOrStdout(), snapshot.Document, resolveSnapshot(*snapshot))
	return nil
}

func resolveSnapshot(snapshot realtime.Snapshot) timer.View {
	return timer.Resolve(snapshot.Document, snapshot.ServerTime)
}

func printStatus(out io.Writer, doc model.TimerDocument, view timer.View) {
	_, _ = fmt.Fprintf(out, "%s  [%s]  v%d\n", doc.Title, view.Status, doc.Version)
	_, _ = fmt.Fprintf(out, "phase %d/%d %s  %s left\n", view.Index+1, view.Count, view.Current.Name, timer.FormatRemaining(view.PhaseRemainingMs))
	_, _ = fmt.Fprintf(out, "total %s left of %s\n", timer.FormatRemaining(view.TotalRemainingMs), timer.FormatRemaining(view.TotalMs))
}

// parseAddSeconds accepts whole seconds ("300") or a Go duration ("-5m").
func parseAddSeconds(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if seconds, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return seconds, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: use seconds or a duration like 5m", raw)
	}
	return int64(d / time.Second), nil
}

type configFile struct {
	Title          string             `yaml:"title"`
	Phases         []phaseFile        `yaml:"phases"`
	Agenda         []model.AgendaItem `yaml:"agenda"`
	ShowPhaseStrip *bool              `yaml:"showPhaseStrip"`
}

type phaseFile struct {
	Name    string `yaml:"name"`
	Seconds *int64 `yaml:"seconds"`
	Minutes string `yaml:"minutes"`
	Note    string `yaml:"note"`
}

func parseConfigFile(data []byte) (timer.Config, error) {
	var file configFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return timer.Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := timer.Config{
		Title:          file.Title,
		Phases:         make([]model.Phase, 0, len(file.Phases)),
		Agenda:         file.Agenda,
		ShowPhaseStrip: file.ShowPhaseStrip,
	}
	for _, p := range file.Phases {
		phase := model.Phase{Name: p.Name, Note: p.Note}
		if p.Seconds != nil {
			phase.Seconds = *p.Seconds
		} else {
			phase.Seconds = timer.ParseMinutes(p.Minutes)
		}
		cfg.Phases = append(cfg.Phases, phase)
	}
	return cfg, nil
}
