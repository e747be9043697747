package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hermanshu/targ-site-sub000/internal/auth"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token <owner-id>",
		Short: "Mint a bearer token for an owner",
		Long: "Mint a bearer token signed with the server's key, for local\n" +
			"development and smoke tests against the API.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			duration := cfg.Auth.TokenDuration
			if cmd.Flags().Changed("duration") {
				duration, _ = cmd.Flags().GetDuration("duration")
			}

			keyHex, err := auth.LoadOrGenerateKey(cfg.Auth.KeyPath)
			if err != nil {
				return err
			}
			tokens, err := auth.NewTokenService(keyHex, duration)
			if err != nil {
				return err
			}

			token, err := tokens.Issue(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().Duration("duration", 0, "token lifetime (default: TOKEN_DURATION)")
	return cmd
}
