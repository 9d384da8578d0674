package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/codebot/internal/config"
)

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the bot token in the OS keyring",
	}
	cmd.AddCommand(tokenSetCmd())
	cmd.AddCommand(tokenDeleteCmd())
	return cmd
}

func tokenSetCmd() *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store the bot token in the OS keyring",
		Run: func(cmd *cobra.Command, args []string) {
			if token == "" {
				var err error
				token, err = promptSecret("Telegram bot token", "From @BotFather, e.g. 123456:ABC-DEF...", validateBotToken)
				if err != nil {
					exitErr("%v", err)
				}
			}
			token = strings.TrimSpace(token)
			if err := validateBotToken(token); err != nil {
				exitErr("%v", err)
			}
			if err := config.StoreToken(token); err != nil {
				exitErr("%v", err)
			}
			fmt.Println("Token saved to the OS keyring.")
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "token to store (skips the prompt)")
	return cmd
}

func tokenDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Remove the stored bot token",
		Run: func(cmd *cobra.Command, args []string) {
			if err := config.DeleteToken(); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s\n", err)
				os.Exit(1)
			}
			fmt.Println("Token removed.")
		},
	}
}

// validateBotToken checks the "<bot id>:<secret>" shape BotFather issues.
func validateBotToken(token string) error {
	id, secret, ok := strings.Cut(strings.TrimSpace(token), ":")
	if !ok || secret == "" {
		return errors.New("token must look like 123456:ABC-DEF")
	}
	if n, err := strconv.ParseInt(id, 10, 64); err != nil || n <= 0 {
		return errors.New("token must start with the numeric bot id")
	}
	if strings.ContainsAny(secret, " \t\n") {
		return errors.New("token must not contain spaces")
	}
	return nil
}
