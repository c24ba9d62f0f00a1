// Package cli implements the daod command line.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jbweber/homelab/dao"
	"github.com/jbweber/homelab/dao/internal/config"
	"github.com/spf13/cobra"
)

// Entity is the value type stored by the command line
type Entity = json.RawMessage

type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	envFiles []string
}

// NewRootCommand builds the daod command tree. Configuration is read from
// envFiles (.env when none is given) and DAO_* variables; flags win over both.
func NewRootCommand(envFiles ...string) *cobra.Command {
	a := &app{envFiles: envFiles}
	defaults := config.NewConfig()

	root := &cobra.Command{
		Use:          "daod",
		Short:        "Store and serve entities through one access contract",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.configure(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.String("backend", defaults.Backend, "store backend: memory, sqlite, postgres, bolt or remote")
	flags.String("db", defaults.DBPath, "database file of the sqlite and bolt backends")
	flags.String("dsn", "", "postgres connection string")
	flags.String("remote", "", "base URL of a daod server for the remote backend")
	flags.String("table", defaults.Table, "table or bucket holding the entities")
	flags.String("log-level", defaults.LogLevel, "log level: debug, info, warn or error")

	root.AddCommand(
		a.serveCommand(),
		a.addCommand(),
		a.addAllCommand(),
		a.getCommand(),
		a.existsCommand(),
		a.listCommand(),
		a.updateCommand(),
		a.deleteCommand(),
	)

	return root
}

func (a *app) configure(cmd *cobra.Command) error {
	cfg, err := config.Load(a.envFiles...)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	for name, field := range map[string]*string{
		"backend":   &cfg.Backend,
		"db":        &cfg.DBPath,
		"dsn":       &cfg.PostgresDSN,
		"remote":    &cfg.RemoteURL,
		"table":     &cfg.Table,
		"log-level": &cfg.LogLevel,
		"addr":      &cfg.Addr,
	} {
		f := flags.Lookup(name)
		if f != nil && f.Changed {
			*field = f.Value.String()
		}
	}

	logger, err := cfg.Logger()
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}

// withStore opens the configured store, runs fn and closes the store
func (a *app) withStore(cmd *cobra.Command, fn func(context.Context, dao.Store[Entity]) error) (err error) {
	ctx := cmd.Context()
	store, err := config.OpenStore[Entity](ctx, a.cfg, a.logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return fn(ctx, store)
}

func parseID(arg string) (int32, error) {
	id, err := strconv.ParseInt(arg, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid entity ID %q", arg)
	}
	return int32(id), nil
}

func parseEntity(arg string) (Entity, error) {
	if !json.Valid([]byte(arg)) {
		return nil, fmt.Errorf("invalid JSON value %q", arg)
	}
	return Entity(arg), nil
}
