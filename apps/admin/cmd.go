package main

import (
	"context"
	"database/sql"
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/trezcool/examguard/core"
	"github.com/trezcool/examguard/core/exam"
	"github.com/trezcool/examguard/storage"
	"github.com/trezcool/examguard/storage/database"
)

var (
	openStoresFunc = storage.Open     // mockable
	openDBFunc     = openDB           // mockable
	migrateFunc    = database.Migrate // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf   *core.Config
	logger core.Logger
	stores *storage.Stores
}

func newCommandLine(conf *core.Config, logger core.Logger) *commandLine {
	return &commandLine{conf: conf, logger: logger}
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "ExamGuard operator commands",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Help()
			return errHelp
		},
	}
	root.AddCommand(
		cli.migrateCmd(),
		cli.addUserCmd(),
		cli.tokenCmd(),
		cli.importExamCmd(),
		cli.sweepCmd(),
		cli.overviewCmd(),
	)
	return root
}

// run executes the command line args (without program name), writing to stdout.
func (cli *commandLine) run(ctx context.Context, args []string, out ...io.Writer) error {
	if args == nil {
		args = []string{} // cobra falls back to os.Args on nil
	}
	root := cli.rootCmd()
	root.SetArgs(args)
	if len(out) > 0 {
		root.SetOut(out[0])
		root.SetErr(out[0])
	}
	return root.ExecuteContext(ctx)
}

// store opens the configured repositories on first use.
func (cli *commandLine) store(ctx context.Context) (*storage.Stores, error) {
	if cli.stores == nil {
		stores, err := openStoresFunc(ctx, cli.conf, false)
		if err != nil {
			return nil, err
		}
		cli.stores = stores
	}
	return cli.stores, nil
}

func (cli *commandLine) service(ctx context.Context) (*exam.Service, error) {
	stores, err := cli.store(ctx)
	if err != nil {
		return nil, err
	}
	return exam.NewService(exam.Deps{
		Attempts: stores.Attempts,
		Catalog:  stores.Catalog,
		Overview: stores.Overview,
		Logger:   cli.logger,
		Conf:     cli.conf,
	}), nil
}

func (cli *commandLine) close() {
	if cli.stores == nil {
		return
	}
	if err := cli.stores.Close(); err != nil {
		cli.logger.Error("failed to close database", err)
	}
	cli.stores = nil
}

func openDB(conf *core.Config) (*sql.DB, error) {
	if conf.Database.InMemory() {
		return nil, errors.New("migrations need a postgres database")
	}
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}
	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}
	return db.DB, nil
}
