package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/easeaico/memorify/internal/app"
	"github.com/easeaico/memorify/internal/auth"
	"github.com/easeaico/memorify/internal/config"
	"github.com/easeaico/memorify/internal/logging"
	"github.com/easeaico/memorify/internal/types"
)

const runLoopEntryLimit = 200

func init() {
	var userID string
	runLoop := &cobra.Command{
		Use:   "run-loop",
		Short: "Run one agent loop for a user against stored diary entries",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.LoadFromEnv()
			if err != nil {
				exitErr("config", err)
			}
			logger, closer := logging.New(logging.Options{Level: logLevel})
			defer closer.Close()

			a, err := app.New(cmd.Context(), cfg, logger)
			if err != nil {
				exitErr("initialize", err)
			}
			defer a.Close()

			entries, err := a.Store.Diary.ListRecent(cmd.Context(), userID, runLoopEntryLimit)
			if err != nil {
				exitErr("load entries", err)
			}
			res := a.Companion.SafeRunAgentLoop(cmd.Context(), types.Identity{UserID: userID}, entries)
			b, _ := json.MarshalIndent(res, "", "  ")
			fmt.Println(string(b))
			if !res.OK() {
				exitErr("run loop", fmt.Errorf("%s", res.Error.Message))
			}
		},
	}
	runLoop.Flags().StringVar(&userID, "user", "", "Owner to run the loop for")
	_ = runLoop.MarkFlagRequired("user")

	var (
		tokenUser string
		ttl       time.Duration
	)
	issueToken := &cobra.Command{
		Use:   "issue-token",
		Short: "Issue a bearer token for the HTTP API",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.LoadFromEnv()
			if err != nil {
				exitErr("config", err)
			}
			verifier, err := auth.NewVerifier(cfg.JWTSecret)
			if err != nil {
				exitErr("verifier", err)
			}
			token, err := verifier.Issue(tokenUser, ttl)
			if err != nil {
				exitErr("issue token", err)
			}
			fmt.Println(token)
		},
	}
	issueToken.Flags().StringVar(&tokenUser, "user", "", "Subject of the token")
	issueToken.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	_ = issueToken.MarkFlagRequired("user")

	RootCmd.AddCommand(runLoop, issueToken)
}
