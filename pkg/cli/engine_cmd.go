package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/firebolt-db/firebolt-cli/internal/api"
	"github.com/firebolt-db/firebolt-cli/internal/domain"
)

const (
	maxEngineScale    = 128
	maxEngineAutoStop = 30 * 24 * 60
)

func newEngineCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "engine",
		Short: "Manage engines",
	}

	cmd.AddCommand(newEngineCreateCmd(g))
	cmd.AddCommand(newEngineListCmd(g))
	cmd.AddCommand(newEngineDescribeCmd(g))
	cmd.AddCommand(newEngineUpdateCmd(g))
	cmd.AddCommand(newEngineDropCmd(g))
	cmd.AddCommand(newEngineStatusCmd(g))
	for _, t := range engineTransitions {
		cmd.AddCommand(newEngineTransitionCmd(g, t))
	}

	return cmd
}

// engineRecord is the describe view of an engine.
func engineRecord(e *domain.Engine) record {
	return record{
		{"name", e.Name},
		{"description", e.Description},
		{"status", e.Status.String()},
		{"auto_stop", formatAutoStop(e.AutoStop)},
		{"type", e.Type},
		{"warm_up", e.Warmup},
		{"create_time", formatValue(e.CreateTime)},
		{"attached_to_database", e.Database},
		{"instance_type", e.Spec},
		{"scale", e.Scale},
	}
}

// formatAutoStop renders minutes as h:mm:ss, with a day prefix past 24 hours; zero is "off".
func formatAutoStop(minutes int) string {
	if minutes <= 0 {
		return "off"
	}
	d := time.Duration(minutes) * time.Minute
	days := int(d / (24 * time.Hour))
	d -= time.Duration(days) * 24 * time.Hour
	clock := fmt.Sprintf("%d:%02d:%02d", int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60)
	switch days {
	case 0:
		return clock
	case 1:
		return "1 day, " + clock
	default:
		return fmt.Sprintf("%d days, %s", days, clock)
	}
}

// engineFlags are the properties shared by create and update.
type engineFlags struct {
	spec        string
	description string
	engineType  string
	scale       int
	autoStop    int
	warmup      string
}

func (f *engineFlags) register(cmd *cobra.Command, create bool) {
	scale, autoStop, engineType, warmup := 0, 0, "", ""
	if create {
		scale, autoStop, engineType, warmup = 1, 20, "ro", "ind"
	}
	cmd.Flags().StringVar(&f.spec, "spec", "", "Engine spec, e.g. B2 or c5d.large")
	cmd.Flags().StringVar(&f.description, "description", "", "Engine description")
	cmd.Flags().StringVar(&f.engineType, "type", engineType, "Engine type: rw for general purpose, ro for data analytics")
	cmd.Flags().IntVar(&f.scale, "scale", scale, "Engine scale (1-128)")
	cmd.Flags().IntVar(&f.autoStop, "auto-stop", autoStop, "Stop the engine after this many idle minutes")
	cmd.Flags().StringVar(&f.warmup, "warmup", warmup, "Warmup method: min (minimal), ind (preload indexes), all (preload all data)")
}

// settings validates the flags and returns the properties to send.
// On update only flags set on the command line are included.
func (f *engineFlags) settings(cmd *cobra.Command, create bool) (domain.EngineSettings, error) {
	var s domain.EngineSettings
	include := func(name string) bool { return create || cmd.Flags().Changed(name) }

	if include("spec") {
		if !domain.ValidEngineSpec(f.spec) {
			return s, domain.ErrUsage("invalid --spec %q", f.spec)
		}
		spec := f.spec
		s.Spec = &spec
	}
	if include("description") {
		desc := f.description
		s.Description = &desc
	}
	if include("type") {
		t, ok := domain.EngineTypes[strings.ToLower(f.engineType)]
		if !ok {
			return s, domain.ErrUsage("invalid --type %q: use rw or ro", f.engineType)
		}
		s.Type = &t
	}
	if include("scale") {
		if f.scale < 1 || f.scale > maxEngineScale {
			return s, domain.ErrUsage("--scale must be between 1 and %d", maxEngineScale)
		}
		scale := f.scale
		s.Scale = &scale
	}
	if include("auto-stop") {
		if f.autoStop < 1 || f.autoStop > maxEngineAutoStop {
			return s, domain.ErrUsage("--auto-stop must be between 1 and %d minutes", maxEngineAutoStop)
		}
		autoStop := f.autoStop
		s.AutoStop = &autoStop
	}
	if include("warmup") {
		w, ok := domain.WarmupMethods[f.warmup]
		if !ok {
			return s, domain.ErrUsage("invalid --warmup %q: use min, ind or all", f.warmup)
		}
		s.Warmup = &w
	}
	return s, nil
}

func newEngineCreateCmd(g *globalOptions) *cobra.Command {
	var (
		name         string
		databaseName string
		flags        engineFlags
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an engine and attach it to a database as its default engine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := flags.settings(cmd, true)
			if err != nil {
				return err
			}
			client, err := g.apiClient()
			if err != nil {
				return err
			}
			ctx, cancel := g.context(cmd)
			defer cancel()

			db, err := client.GetDatabase(ctx, databaseName)
			if err != nil {
				return err
			}
			settings.Name = name
			settings.Region = db.Region
			engine, err := client.CreateEngine(ctx, settings)
			if err != nil {
				return err
			}
			if err := client.AttachEngine(ctx, db.Name, engine.Name, true); err != nil {
				g.logger.Warn("attach failed, dropping the new engine", "engine", engine.Name, "error", err)
				if derr := client.DeleteEngine(ctx, engine.Name); derr != nil {
					g.logger.Error("drop engine after failed attach", "engine", engine.Name, "error", derr)
				}
				return err
			}
			engine, err = client.GetEngine(ctx, engine.Name)
			if err != nil {
				return err
			}

			asJSON := getOutputFormat(cmd) == "json"
			if !asJSON {
				_, _ = fmt.Fprintf(os.Stdout, "Engine %s is successfully created and attached to the %s\n", engine.Name, db.Name)
			}
			return printRecord(os.Stdout, engineRecord(engine), asJSON)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Name of the engine")
	cmd.Flags().StringVar(&databaseName, "database-name", "", "Database the engine is attached to")
	flags.register(cmd, true)
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("database-name")
	_ = cmd.MarkFlagRequired("spec")

	return cmd
}

func newEngineUpdateCmd(g *globalOptions) *cobra.Command {
	var (
		name    string
		newName string
		flags   engineFlags
	)

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update engine properties; the engine should be stopped first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := flags.settings(cmd, false)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("new-engine-name") {
				settings.NewName = &newName
			}
			if settings.Empty() {
				return domain.ErrUsage("Nothing to update, at least one parameter should be provided")
			}
			client, err := g.apiClient()
			if err != nil {
				return err
			}
			ctx, cancel := g.context(cmd)
			defer cancel()

			engine, err := client.UpdateEngine(ctx, name, settings)
			if err != nil {
				return err
			}
			asJSON := getOutputFormat(cmd) == "json"
			if !asJSON {
				_, _ = fmt.Fprintf(os.Stdout, "Engine %s is successfully updated\n", engine.Name)
			}
			return printRecord(os.Stdout, engineRecord(engine), asJSON)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Engine to update")
	cmd.Flags().StringVar(&newName, "new-engine-name", "", "Rename the engine")
	flags.register(cmd, false)
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newEngineListCmd(g *globalOptions) *cobra.Command {
	var nameContains string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List existing engines",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := g.apiClient()
			if err != nil {
				return err
			}
			ctx, cancel := g.context(cmd)
			defer cancel()

			engines, err := client.ListEngines(ctx)
			if err != nil {
				return err
			}
			sort.Slice(engines, func(i, j int) bool { return engines[i].Name < engines[j].Name })

			var records []record
			for _, e := range engines {
				if nameContains != "" && !strings.Contains(e.Name, nameContains) {
					continue
				}
				records = append(records, record{
					{"name", e.Name},
					{"status", e.Status.String()},
					{"region", e.Region},
				})
			}

			asJSON := getOutputFormat(cmd) == "json"
			if !asJSON {
				_, _ = fmt.Fprintf(os.Stdout, "Found %d engines\n", len(records))
				if len(records) == 0 {
					return nil
				}
			}
			return printRecords(os.Stdout, []string{"name", "status", "region"}, records, asJSON)
		},
	}

	cmd.Flags().StringVar(&nameContains, "name-contains", "", "Only list engines whose name contains this text")

	return cmd
}

func newEngineDescribeCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "describe <engine_name>",
		Short: "Describe an engine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := g.apiClient()
			if err != nil {
				return err
			}
			ctx, cancel := g.context(cmd)
			defer cancel()

			engine, err := client.GetEngine(ctx, args[0])
			if err != nil {
				return err
			}
			return printRecord(os.Stdout, engineRecord(engine), getOutputFormat(cmd) == "json")
		},
	}
}

func newEngineStatusCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <engine_name>",
		Short: "Show the engine status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := g.apiClient()
			if err != nil {
				return err
			}
			ctx, cancel := g.context(cmd)
			defer cancel()

			engine, err := client.GetEngine(ctx, args[0])
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(os.Stdout, record{{"name", engine.Name}, {"status", engine.Status.String()}})
			}
			_, _ = fmt.Fprintf(os.Stdout, "Engine %s current status is: %s\n", engine.Name, engine.Status)
			return nil
		},
	}
}

func newEngineDropCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "drop <engine_name>",
		Short: "Drop an engine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := g.requireYesForJSON(cmd); err != nil {
				return err
			}
			client, err := g.apiClient()
			if err != nil {
				return err
			}
			ctx, cancel := g.context(cmd)
			defer cancel()

			engine, err := client.GetEngine(ctx, args[0])
			if err != nil {
				return err
			}
			ok, err := g.confirm(cmd, fmt.Sprintf("Do you really want to drop the engine %s?", engine.Name))
			if err != nil {
				return err
			}
			if !ok {
				_, _ = fmt.Fprintln(os.Stdout, "Drop request is aborted")
				return nil
			}
			if err := client.DeleteEngine(ctx, engine.Name); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(os.Stdout, map[string]string{"status": "dropped", "engine": engine.Name})
			}
			_, _ = fmt.Fprintf(os.Stdout, "Drop request for engine %s is successfully sent\n", engine.Name)
			return nil
		},
	}
}

// engineTransition describes the state rules of start, stop, and restart.
type engineTransition struct {
	action  api.EngineAction
	short   string
	initial []domain.EngineStatus
	final   []domain.EngineStatus
	noWait  []domain.EngineStatus

	wrongInitial  string
	success       string
	successNoWait string
	failure       string
	failedHint    bool
}

var engineTransitions = []engineTransition{
	{
		action:        api.ActionStart,
		short:         "Start a stopped engine",
		initial:       []domain.EngineStatus{domain.EngineStatusStopped, domain.EngineStatusStopping},
		final:         []domain.EngineStatus{domain.EngineStatusRunning},
		noWait:        []domain.EngineStatus{domain.EngineStatusStarting},
		wrongInitial:  "Engine %s is not in a stopped state, the current engine state is %s",
		success:       "Engine %s is successfully started",
		successNoWait: "Start request for engine %s is successfully sent",
		failure:       "Engine %s failed to start. Engine status: %s.",
		failedHint:    true,
	},
	{
		action:        api.ActionStop,
		short:         "Stop a running engine",
		initial:       []domain.EngineStatus{domain.EngineStatusRunning, domain.EngineStatusStarting},
		final:         []domain.EngineStatus{domain.EngineStatusStopped},
		noWait:        []domain.EngineStatus{domain.EngineStatusStopping, domain.EngineStatusStopped},
		wrongInitial:  "Engine %s is not in a running or starting state, the current engine state is %s",
		success:       "Engine %s is successfully stopped",
		successNoWait: "Stop request for engine %s is successfully sent",
		failure:       "Engine %s failed to stop. Engine status: %s.",
	},
	{
		action:        api.ActionRestart,
		short:         "Restart a running or failed engine",
		initial:       []domain.EngineStatus{domain.EngineStatusRunning, domain.EngineStatusFailed},
		final:         []domain.EngineStatus{domain.EngineStatusRunning},
		noWait:        []domain.EngineStatus{domain.EngineStatusStopping, domain.EngineStatusStarting},
		wrongInitial:  "Engine %s is not in a running or failed state, the current engine state is %s",
		success:       "Engine %s is successfully restarted",
		successNoWait: "Restart request for engine %s is successfully sent",
		failure:       "Engine %s failed to restart. Engine status: %s.",
	},
}

func newEngineTransitionCmd(g *globalOptions, t engineTransition) *cobra.Command {
	var (
		wait         bool
		pollInterval time.Duration
	)

	cmd := &cobra.Command{
		Use:   string(t.action) + " <engine_name>",
		Short: t.short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := g.apiClient()
			if err != nil {
				return err
			}
			ctx, cancel := g.context(cmd)
			defer cancel()

			msg, err := runEngineTransition(ctx, client, args[0], t, wait, pollInterval)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, msg)
			return nil
		},
	}

	cmd.Flags().BoolVar(&wait, "wait", false, "Wait until the operation completes")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", api.DefaultPollInterval, "Status polling interval with --wait")
	_ = cmd.Flags().MarkHidden("poll-interval")

	return cmd
}

// runEngineTransition checks the starting state, requests the action, and classifies the outcome.
func runEngineTransition(
	ctx context.Context,
	client *api.Client,
	name string,
	t engineTransition,
	wait bool,
	pollInterval time.Duration,
) (string, error) {
	engine, err := client.GetEngine(ctx, name)
	if err != nil {
		return "", err
	}
	initial := engine.Status
	if t.failedHint && initial == domain.EngineStatusFailed {
		return "", fmt.Errorf("Engine %s is in a failed state.\nYou need to restart an engine first:\n$ firebolt engine restart %s",
			engine.Name, engine.Name)
	}
	if !initial.OneOf(t.initial...) {
		return "", domain.ErrValidation(t.wrongInitial, engine.Name, initial)
	}

	engine, err = client.RunEngineAction(ctx, engine.Name, t.action)
	if err != nil {
		return "", err
	}
	if wait {
		engine, err = client.WaitForEngine(ctx, engine.Name, pollInterval, t.final...)
		if err != nil && engine == nil {
			return "", err
		}
	}

	switch {
	case !wait && engine.Status.OneOf(t.noWait...):
		return fmt.Sprintf(t.successNoWait, engine.Name), nil
	case engine.Status.OneOf(t.final...):
		return fmt.Sprintf(t.success, engine.Name), nil
	default:
		return "", fmt.Errorf(t.failure, engine.Name, engine.Status)
	}
}
