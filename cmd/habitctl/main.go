package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/belphemur/habit-tracker/internal/cli"
	"github.com/belphemur/habit-tracker/internal/client"
	"github.com/belphemur/habit-tracker/internal/config"
	"github.com/belphemur/habit-tracker/internal/habits"
	"github.com/belphemur/habit-tracker/internal/logging"
)

var version = "dev"

var CLI struct {
	Version  kong.VersionFlag
	Server   string        `help:"Habit tracker server URL." env:"HABIT_SERVER_URL" default:"http://localhost:8080"`
	Token    string        `help:"Session token (see /api/session once signed in)." env:"HABIT_TOKEN"`
	Timezone string        `help:"Expected reference timezone; must match the server's." env:"HABIT_HEATMAP__TIMEZONE"`
	Timeout  time.Duration `help:"Request timeout." default:"10s"`
	LogFile  string        `help:"Write debug logs to this file." type:"path" env:"HABITCTL_LOG_FILE"`

	List   cli.ListCmd   `cmd:"" help:"List habits."`
	Add    cli.AddCmd    `cmd:"" help:"Create a habit."`
	Rename cli.RenameCmd `cmd:"" help:"Rename a habit."`
	Rm     cli.RmCmd     `cmd:"" help:"Delete a habit and its entries."`
	Toggle cli.ToggleCmd `cmd:"" help:"Mark or unmark a day."`
	Show   cli.ShowCmd   `cmd:"" help:"Print a habit's heatmap."`
	Tui    cli.TuiCmd    `cmd:"" help:"Launch the interactive heatmap." default:"1"`
}

func main() {
	// Environment files are optional on the command line
	_ = config.LoadDotEnv(".env")

	kctx := kong.Parse(&CLI,
		kong.Name("habitctl"),
		kong.Description("Track daily habits from the terminal"),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)

	// Log lines would corrupt the TUI, so they only go to a file
	logging.InitializeWithOutput(io.Discard, false)
	if CLI.LogFile != "" {
		closer, err := logging.EnableFileOutput(CLI.LogFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer closer.Close()
		logging.SetLogLevel("debug")
	}

	appCtx, err := connect()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := kctx.Run(appCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// connect resolves the session behind the token and builds the controller
func connect() (*cli.Context, error) {
	if CLI.Token == "" {
		return nil, fmt.Errorf("no session token: sign in on %s and pass --token or set HABIT_TOKEN", CLI.Server)
	}

	c, err := client.New(CLI.Server, client.WithTimeout(CLI.Timeout))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), CLI.Timeout)
	defer cancel()
	session, err := c.Session(ctx, CLI.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve session: %w", err)
	}
	// Day keys only line up with the server's when computed in its timezone
	loc, err := cli.ReferenceLocation(session.Timezone, CLI.Timezone)
	if err != nil {
		return nil, err
	}

	return &cli.Context{
		Ctrl:    habits.New(c, habits.Options{Location: loc}),
		Session: habits.Session{UserID: session.User.ID, Token: CLI.Token},
		Out:     os.Stdout,
		Timeout: CLI.Timeout,
	}, nil
}
