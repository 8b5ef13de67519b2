package useradm

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/userkeeper/internal/server/models"
	"github.com/dmitrijs2005/userkeeper/internal/server/services"
	"github.com/spf13/cobra"
)

func (c *cli) migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.repos.RunMigrations(cmd.Context(), c.conn); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func (c *cli) createAdminCommand() *cobra.Command {
	var (
		in            services.RegisterInput
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an ADMIN account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if passwordStdin {
				in.Password, err = readLine(bufio.NewReader(cmd.InOrStdin()))
			} else {
				in.Password, err = promptNewPassword(cmd.ErrOrStderr())
			}
			if err != nil {
				return err
			}

			svc, err := c.userService()
			if err != nil {
				return err
			}

			u, err := svc.CreateAdmin(cmd.Context(), in)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "created admin %s with id %d\n", u.Email, u.ID)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&in.Email, "email", "", "login email (required)")
	f.StringVar(&in.LName, "lname", "", "last name (required)")
	f.StringVar(&in.FName, "fname", "", "first name")
	f.StringVar(&in.Patronymic, "patronymic", "", "patronymic")
	f.StringVar(&in.Birthdate, "birthdate", "", "birthdate, YYYY-MM-DD")
	f.BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin instead of the terminal")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("lname")

	return cmd
}

func (c *cli) setRoleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set-role <id> <USER|ADMIN>",
		Short: "Change the role of an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid user id %q", args[0])
			}

			role, ok := models.ParseRole(strings.ToUpper(args[1]))
			if !ok {
				return fmt.Errorf("unknown role %q", args[1])
			}

			svc, err := c.userService()
			if err != nil {
				return err
			}

			u, err := svc.SetRole(cmd.Context(), id, role)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "user %d (%s) is now %s\n", u.ID, u.Email, u.Role)
			return nil
		},
	}
}
