package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/bookshare/lending/config"
	"github.com/bookshare/lending/lending"
	"github.com/bookshare/lending/lending/sqlengine"
	"github.com/bookshare/lending/lending/workflow"
)

const (
	serviceName    = "lendingctl"
	serviceVersion = "dev"

	flagAs        = "as"
	flagEnvFile   = "env-file"
	flagTelemetry = "telemetry"
)

// app carries the wiring shared by all commands of one invocation.
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	envFile   string
	callerRaw string
	telemetry bool

	// started is set once cobra has parsed the command line and runs the command.
	started bool

	cfg        config.Config
	store      *sqlengine.Store
	engine     *workflow.Engine
	obs        *config.Observability
	closeStore func()
}

// run executes one lendingctl invocation and returns its exit code.
func run(args []string, in io.Reader, out io.Writer, errOut io.Writer) int {
	a := &app{in: in, out: out, errOut: errOut}

	root := a.rootCommand()
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	err := root.ExecuteContext(context.Background())
	a.close()

	if err != nil && !a.started {
		err = usageError(err)
	}

	if err != nil {
		writeFailure(errOut, err)
		return exitCode(err)
	}

	return 0
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           serviceName,
		Short:         "Operate the book lending workflow",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.started = true
			return a.open(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.printTelemetry(cmd.Context())
		},
	}

	root.PersistentFlags().StringVar(&a.callerRaw, flagAs, "", "id of the user the command acts for")
	root.PersistentFlags().StringVar(&a.envFile, flagEnvFile, "", "read configuration from this .env file")
	root.PersistentFlags().BoolVar(&a.telemetry, flagTelemetry, false, "print collected metrics to stderr after the command")
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return errors.Join(lending.ErrInvalidInput, err)
	})

	root.AddCommand(
		a.migrateCommand(),
		a.addUserCommand(),
		a.addBookCommand(),
		a.listCommand(),
		a.delistCommand(),
		a.requestCommand(),
		a.grantCommand(),
		a.rejectCommand(),
		a.deleteCommand(),
		a.showCommand(),
		a.requestsCommand(),
		a.booksCommand(),
		a.auditCommand(),
		a.simulateCommand(),
	)

	return root
}

// open loads the configuration and wires store and engine.
func (a *app) open(ctx context.Context) error {
	var envFiles []string
	if a.envFile != "" {
		envFiles = append(envFiles, a.envFile)
	}

	cfg, err := config.Load(envFiles...)
	if err != nil {
		return errors.Join(lending.ErrInvalidInput, err)
	}
	a.cfg = cfg

	logger := cfg.NewLogger()
	storeOptions := []sqlengine.Option{sqlengine.WithLogger(logger)}
	engineOptions := []workflow.Option{
		workflow.WithLogger(logger),
		workflow.WithRetryOptions(
			workflow.WithMaxAttempts(cfg.RetryMaxAttempts),
			workflow.WithBaseDelay(cfg.RetryBaseDelay),
		),
	}

	if a.telemetry {
		if a.obs, err = config.NewObservability(ctx, serviceName, serviceVersion); err != nil {
			return errors.Join(lending.ErrStoreFailure, err)
		}

		metrics := a.obs.MetricsCollector()
		contextual := a.obs.ContextualLogger(logger.Handler())
		storeOptions = append(storeOptions, sqlengine.WithMetrics(metrics), sqlengine.WithContextualLogger(contextual))
		engineOptions = append(engineOptions,
			workflow.WithMetrics(metrics),
			workflow.WithTracing(a.obs.TracingCollector()),
			workflow.WithContextualLogger(contextual),
		)
	}

	if a.store, a.closeStore, err = cfg.OpenStore(ctx, storeOptions...); err != nil {
		return errors.Join(lending.ErrStoreFailure, err)
	}

	a.engine, err = workflow.NewEngine(a.store, engineOptions...)

	return err
}

// usageError marks an error cobra returned before running a command, such as an unknown
// command or a wrong number of arguments, as invalid input.
func usageError(err error) error {
	if lending.OutcomeOf(err) != lending.OutcomeInfrastructure {
		return err
	}

	return errors.Join(lending.ErrInvalidInput, err)
}

func (a *app) close() {
	if a.closeStore != nil {
		a.closeStore()
	}

	if a.obs != nil {
		_ = a.obs.Shutdown()
	}
}

func (a *app) printTelemetry(ctx context.Context) error {
	if a.obs == nil {
		return nil
	}

	summaries, err := a.obs.MetricsSummary(ctx)
	if err != nil {
		return errors.Join(lending.ErrStoreFailure, err)
	}

	return writeJSON(a.errOut, summaries)
}

// caller returns the id given with --as.
func (a *app) caller() (uuid.UUID, error) {
	if a.callerRaw == "" {
		return uuid.Nil, fmt.Errorf("%w: --%s is required", lending.ErrInvalidInput, flagAs)
	}

	return parseID(flagAs, a.callerRaw)
}

func parseID(name string, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s: %w", lending.ErrInvalidInput, name, err)
	}

	return id, nil
}
