// Package useradm implements the useradm operator CLI: applying migrations,
// bootstrapping admin accounts and changing roles. These are the account
// operations that are deliberately not exposed over HTTP.
package useradm

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"io"

	"github.com/dmitrijs2005/userkeeper/internal/buildinfo"
	"github.com/dmitrijs2005/userkeeper/internal/logging"
	"github.com/dmitrijs2005/userkeeper/internal/server/auth"
	"github.com/dmitrijs2005/userkeeper/internal/server/config"
	"github.com/dmitrijs2005/userkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/userkeeper/internal/server/services"
	"github.com/dmitrijs2005/userkeeper/internal/server/shared/db"
	"github.com/spf13/cobra"
)

type cli struct {
	driver string
	dsn    string

	cfg    *config.Config
	logger logging.Logger
	conn   *sql.DB
	repos  repomanager.RepositoryManager
}

// Run executes the command tree with args. Connection settings come from
// --driver/--dsn and fall back to the server's environment configuration.
// Logs go to stderr.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	return run(ctx, &cli{}, args, stdin, stdout, stderr)
}

func run(ctx context.Context, c *cli, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	// cobra skips post-run hooks when RunE fails
	defer c.close()

	root := c.rootCommand(stderr)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	return root.ExecuteContext(ctx)
}

func (c *cli) rootCommand(logOut io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:          "useradm",
		Short:        "Operator tool for userkeeper accounts",
		Version:      buildinfo.Version(),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "completion" || cmd.Name() == "help" {
				return nil
			}
			return c.open(cmd, logOut)
		},
	}

	root.PersistentFlags().StringVar(&c.driver, "driver", "", "database driver (postgres|sqlite)")
	root.PersistentFlags().StringVar(&c.dsn, "dsn", "", "database DSN")

	root.AddCommand(c.migrateCommand(), c.createAdminCommand(), c.setRoleCommand())

	return root
}

func (c *cli) close() {
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

func (c *cli) open(cmd *cobra.Command, logOut io.Writer) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	if c.driver != "" {
		cfg.DatabaseDriver = c.driver
	}
	if c.dsn != "" {
		cfg.DatabaseDSN = c.dsn
	}

	logger, err := logging.New(cfg.LogLevel, "text", logOut)
	if err != nil {
		return err
	}

	repos, err := repomanager.New(cfg.DatabaseDriver, logger)
	if err != nil {
		return err
	}

	conn, err := db.Open(cmd.Context(), cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	c.cfg, c.logger, c.repos, c.conn = cfg, logger, repos, conn
	return nil
}

func (c *cli) userService() (*services.UserService, error) {
	hasher, err := auth.NewHasher(c.cfg.PasswordHashAlgorithm, c.cfg.PasswordHashCost)
	if err != nil {
		return nil, err
	}
	tokens, err := auth.NewTokenService(c.signingKey(), c.logger)
	if err != nil {
		return nil, err
	}
	return services.NewUserService(c.conn, c.repos, hasher, tokens, c.cfg.TokenValidityDuration, c.logger), nil
}

// signingKey returns the configured secret, or a throwaway random key when
// none is set. Operator commands never issue tokens.
func (c *cli) signingKey() []byte {
	if c.cfg.SecretKey != "" {
		return []byte(c.cfg.SecretKey)
	}
	key := make([]byte, 32)
	_, _ = rand.Read(key)
	return key
}
