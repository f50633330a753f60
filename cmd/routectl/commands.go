package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/route-registry/internal/app"
	domain "github.com/yungbote/route-registry/internal/domain/routing"
	"github.com/yungbote/route-registry/internal/platform/dbctx"
	"github.com/yungbote/route-registry/internal/platform/envutil"
	"github.com/yungbote/route-registry/internal/platform/logger"
)

type cli struct {
	logMode  string
	dbDriver string
	dsn      string
	app      *app.App
}

type entityFlags struct {
	class  string
	id     string
	locale string
	path   string
	attrs  map[string]string
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "routectl",
		Short:         "Manage the route path registry",
		Long:          "routectl creates, moves and resolves the public URL paths of routable entities.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" {
				return nil
			}
			return c.open(cmd.Context())
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().StringVar(&c.logMode, "log-mode", "", "log mode: development, production or test (default $LOG_MODE)")
	root.PersistentFlags().StringVar(&c.dbDriver, "db-driver", "", "postgres or sqlite (default $ROUTES_DB_DRIVER)")
	root.PersistentFlags().StringVar(&c.dsn, "dsn", "", "database DSN (default $ROUTES_DB_DSN)")

	root.AddCommand(
		c.migrateCmd(),
		c.createCmd(),
		c.updateCmd(),
		c.resolveCmd(),
		c.historyCmd(),
		c.warmCmd(),
	)
	return root
}

func (c *cli) open(ctx context.Context) error {
	mode := c.logMode
	if mode == "" {
		mode = envutil.String("LOG_MODE", "development", nil)
	}
	log, err := logger.New(mode)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	cfg := app.LoadConfig(log)
	if c.dbDriver != "" {
		cfg.DB.Driver = c.dbDriver
	}
	if c.dsn != "" {
		cfg.DB.DSN = c.dsn
	}
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := app.New(ctx, log, cfg)
	if err != nil {
		log.Sync()
		return err
	}
	c.app = a
	return nil
}

func (c *cli) close(ctx context.Context) {
	if c.app == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	c.app.Close(ctx)
	c.app = nil
}

// run closes the app after fn whether or not it failed.
func (c *cli) run(fn func(cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		defer c.close(cmd.Context())
		return fn(cmd, args)
	}
}

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the route table and its live path index",
		Args:  cobra.NoArgs,
		RunE: c.run(func(cmd *cobra.Command, args []string) error {
			if err := c.app.Migrate(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "route schema is up to date")
			return nil
		}),
	}
}

func (c *cli) createCmd() *cobra.Command {
	ef := &entityFlags{}
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Give an unrouted entity its first path",
		Args:  cobra.NoArgs,
		RunE: c.run(func(cmd *cobra.Command, args []string) error {
			entity, err := c.loadEntity(cmd.Context(), ef)
			if err != nil {
				return err
			}
			route, err := c.app.Services.Routes.Create(cmd.Context(), entity, ef.path)
			if err != nil {
				return err
			}
			return printJSON(cmd, route)
		}),
	}
	ef.bind(cmd, true)
	return cmd
}

func (c *cli) updateCmd() *cobra.Command {
	ef := &entityFlags{}
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Move a routed entity to a new path, keeping the old one as a redirect",
		Args:  cobra.NoArgs,
		RunE: c.run(func(cmd *cobra.Command, args []string) error {
			entity, err := c.loadEntity(cmd.Context(), ef)
			if err != nil {
				return err
			}
			route, err := c.app.Services.Routes.Update(cmd.Context(), entity, ef.path)
			if err != nil {
				return err
			}
			return printJSON(cmd, route)
		}),
	}
	ef.bind(cmd, true)
	return cmd
}

func (c *cli) resolveCmd() *cobra.Command {
	var locale string
	cmd := &cobra.Command{
		Use:   "resolve <path>",
		Short: "Show the route registered at a path and where it redirects",
		Args:  cobra.ExactArgs(1),
		RunE: c.run(func(cmd *cobra.Command, args []string) error {
			res, err := c.app.Services.Lookup.Resolve(cmd.Context(), args[0], locale)
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		}),
	}
	cmd.Flags().StringVar(&locale, "locale", "en", "locale of the path")
	return cmd
}

func (c *cli) historyCmd() *cobra.Command {
	ef := &entityFlags{}
	var routeID string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the old paths redirecting to an entity's live route",
		Args:  cobra.NoArgs,
		RunE: c.run(func(cmd *cobra.Command, args []string) error {
			id, err := c.historyTarget(cmd.Context(), ef, routeID)
			if err != nil {
				return err
			}
			hs, err := c.app.Services.Routes.History(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd, hs)
		}),
	}
	ef.bind(cmd, false)
	cmd.Flags().StringVar(&routeID, "route-id", "", "live route id (instead of --class/--id)")
	return cmd
}

func (c *cli) warmCmd() *cobra.Command {
	var locale string
	cmd := &cobra.Command{
		Use:   "warm",
		Short: "Load every live route of a locale into the lookup cache",
		Args:  cobra.NoArgs,
		RunE: c.run(func(cmd *cobra.Command, args []string) error {
			n, err := c.app.Services.Lookup.Warm(cmd.Context(), locale)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "warmed %d routes\n", n)
			return nil
		}),
	}
	cmd.Flags().StringVar(&locale, "locale", "en", "locale to warm")
	return cmd
}

func (ef *entityFlags) bind(cmd *cobra.Command, withPath bool) {
	cmd.Flags().StringVar(&ef.class, "class", "", "entity class, e.g. page or article")
	cmd.Flags().StringVar(&ef.id, "id", "", "entity id")
	cmd.Flags().StringVar(&ef.locale, "locale", "en", "entity locale")
	if withPath {
		cmd.Flags().StringVar(&ef.path, "path", "", "explicit path; generated from the class schema when empty")
		cmd.Flags().StringToStringVar(&ef.attrs, "attr", nil, "schema attribute, e.g. --attr title=Hello (repeatable)")
	}
}

// loadEntity builds the entity reference and binds its current live route, if any.
func (c *cli) loadEntity(ctx context.Context, ef *entityFlags) (*domain.EntityRef, error) {
	if strings.TrimSpace(ef.class) == "" || strings.TrimSpace(ef.id) == "" {
		return nil, domain.NewError(domain.CodeInvalidArgument, "routectl", "--class and --id are required", nil)
	}
	entity := &domain.EntityRef{
		Class:      ef.class,
		ID:         ef.id,
		Locale:     ef.locale,
		Attributes: ef.attrs,
	}
	current, err := c.app.Repos.Route.FindByEntity(dbctx.Context{Ctx: ctx}, ef.class, ef.id, ef.locale)
	if err != nil {
		return nil, err
	}
	entity.Route = current
	return entity, nil
}

func (c *cli) historyTarget(ctx context.Context, ef *entityFlags, routeID string) (uuid.UUID, error) {
	if routeID != "" {
		id, err := uuid.Parse(strings.TrimSpace(routeID))
		if err != nil {
			return uuid.Nil, domain.NewError(domain.CodeInvalidArgument, "routectl", "invalid --route-id", err)
		}
		return id, nil
	}
	entity, err := c.loadEntity(ctx, ef)
	if err != nil {
		return uuid.Nil, err
	}
	if entity.Route == nil {
		return uuid.Nil, domain.NewError(domain.CodeNotYetRouted, "routectl", "entity "+ef.class+"#"+ef.id+"@"+ef.locale+" has no route", nil)
	}
	return entity.Route.ID, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// exitCode maps error codes to distinct statuses so scripts can tell a conflict from an outage.
func exitCode(err error) int {
	switch domain.CodeOf(err) {
	case domain.CodeNotFound:
		return 3
	case domain.CodeAlreadyRouted, domain.CodeNotYetRouted, domain.CodeInvalidArgument:
		return 2
	case domain.CodePathTaken, domain.CodeConflictExhausted:
		return 4
	case domain.CodeStoreFailure:
		return 5
	default:
		return 1
	}
}
