package main

import (
	"context"
	"fmt"
	"os"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/erikbos/wavesync/auth"
	"github.com/erikbos/wavesync/config"
	"github.com/erikbos/wavesync/database"
	"github.com/erikbos/wavesync/logging"
)

func init() {
	config.Flags(rootCmd.PersistentFlags())

	userAddCmd.Flags().StringP("email", "e", "", "Email address of the new user")
	userAddCmd.Flags().StringP("password", "p", "", "Password of the new user")
	lo.Must0(userAddCmd.MarkFlagRequired("email"))
	lo.Must0(userAddCmd.MarkFlagRequired("password"))

	rootCmd.AddCommand(serveCmd, userAddCmd)
}

var rootCmd = &cobra.Command{
	Use:   "wavesync",
	Short: "Music playback and social server",
	// running without a subcommand serves
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the REST and websocket API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, closer, err := setup(cmd)
		if err != nil {
			return err
		}
		defer closer()
		return serve(cmd.Context(), cfg)
	},
}

var userAddCmd = &cobra.Command{
	Use:   "useradd",
	Short: "Create a user account",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, closer, err := setup(cmd)
		if err != nil {
			return err
		}
		defer closer()

		repo, err := database.New(&cfg.Database)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer repo.Close()

		provider := auth.New(&auth.Options{Repo: repo})
		s, err := provider.SignUp(cmd.Context(),
			lo.Must(cmd.Flags().GetString("email")),
			lo.Must(cmd.Flags().GetString("password")),
			auth.Client{DeviceName: "useradd"})
		if err != nil {
			return err
		}
		// sign up starts a session, useradd does not need it
		if err := provider.SignOut(cmd.Context(), s.AccessToken); err != nil {
			logrus.WithError(err).Warn("Could not end session of new user")
		}
		fmt.Printf("created user %s (%s)\n", s.Email, s.UserID)
		return nil
	},
}

// setup loads the configuration and configures logging.
func setup(cmd *cobra.Command) (*config.Config, func(), error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	logfile, err := logging.Setup(cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("logging: %w", err)
	}
	return cfg, func() { logfile.Close() }, nil
}

// Execute runs the command named on the command line.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
