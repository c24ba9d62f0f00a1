package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/jbweber/homelab/dao"
	"github.com/spf13/cobra"
)

func (a *app) addCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add <json>",
		Short: "Add an entity and print its identifier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseEntity(args[0])
			if err != nil {
				return err
			}
			return a.withStore(cmd, func(ctx context.Context, store dao.Store[Entity]) error {
				id, err := store.Add(ctx, value)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), id)
				return err
			})
		},
	}
}

func (a *app) addAllCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add-all <json>...",
		Short: "Add several entities at once",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values := make([]Entity, 0, len(args))
			for _, arg := range args {
				value, err := parseEntity(arg)
				if err != nil {
					return err
				}
				values = append(values, value)
			}
			return a.withStore(cmd, func(ctx context.Context, store dao.Store[Entity]) error {
				if err := store.AddAll(ctx, values); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "added %d entities\n", len(values))
				return err
			})
		},
	}
}

func (a *app) getCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Print the entity stored under an identifier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.withStore(cmd, func(ctx context.Context, store dao.Store[Entity]) error {
				m, ok, err := store.GetMapping(ctx, id)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("entity %d not found", id)
				}
				return printJSON(cmd, m)
			})
		},
	}
}

func (a *app) existsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "exists <id>",
		Short: "Print whether an identifier is in use",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.withStore(cmd, func(ctx context.Context, store dao.Store[Entity]) error {
				exists, err := store.Exists(ctx, id)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), exists)
				return err
			})
		},
	}
}

func (a *app) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print every entity, one per line, ordered by identifier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, store dao.Store[Entity]) error {
				m, err := store.GetMap(ctx)
				if err != nil {
					return err
				}
				ids := make([]int32, 0, len(m))
				for id := range m {
					ids = append(ids, id)
				}
				sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

				for _, id := range ids {
					if err := printJSON(cmd, dao.Mapping[Entity]{ID: id, Value: m[id]}); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func (a *app) updateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "update <id> <json>",
		Short: "Replace the entity stored under an identifier",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			value, err := parseEntity(args[1])
			if err != nil {
				return err
			}
			return a.withStore(cmd, func(ctx context.Context, store dao.Store[Entity]) error {
				return store.Update(ctx, id, value)
			})
		},
	}
}

func (a *app) deleteCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete the entity stored under an identifier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.withStore(cmd, func(ctx context.Context, store dao.Store[Entity]) error {
				if force {
					dao.New(store, dao.WithLogger(a.logger)).DeleteValue(ctx, id)
					return nil
				}
				return store.Delete(ctx, id)
			})
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "ignore failures such as a missing entity")
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
