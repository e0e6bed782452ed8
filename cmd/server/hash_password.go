package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"login-portal/internal/domain/auth"
	"login-portal/internal/repository"
)

type hashPasswordOptions struct {
	password    string
	username    string
	databaseURL string
}

// NewHashPasswordCmd creates the hash-password subcommand.
func NewHashPasswordCmd() *cobra.Command {
	opts := &hashPasswordOptions{}
	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Print a bcrypt hash, optionally storing it for a user",
		Long: `Print the bcrypt hash of a password for the postgres verifier. The
password is read from --password or the first line of stdin. With --username
and --database-url the hash is also written to the users table.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHashPassword(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.password, "password", "", "password to hash (default: read stdin)")
	cmd.Flags().StringVar(&opts.username, "username", "", "user to store the hash for")
	cmd.Flags().StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL URL of the users table")
	return cmd
}

func runHashPassword(cmd *cobra.Command, opts *hashPasswordOptions) error {
	password := opts.password
	if password == "" {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return oops.Code("INPUT_INVALID").Errorf("no password given")
		}
		password = strings.TrimRight(line, "\r\n")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return oops.Code("HASH_FAILED").Wrap(err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), hash)

	if opts.username == "" {
		return nil
	}
	if opts.databaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("--database-url is required with --username")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	pool, err := pgxpool.New(ctx, opts.databaseURL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()

	users := repository.NewUserRepository(pool)
	if err := users.EnsureSchema(ctx); err != nil {
		return oops.Code("DB_SCHEMA_FAILED").Wrap(err)
	}
	if err := users.UpsertUser(ctx, opts.username, hash); err != nil {
		return oops.Code("DB_WRITE_FAILED").With("username", opts.username).Wrap(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "stored hash for %s\n", opts.username)
	return nil
}
