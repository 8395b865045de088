package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/amgadabdelhafez/Dropbox-MCP-Server/cmd/backend/handlers"
	"github.com/spf13/cobra"
)

var hashKeyCmd = &cobra.Command{
	Use:   "hash-key <api-key>",
	Short: "Print the bcrypt hash to set as http.api_key_hash",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := strings.TrimSpace(args[0])
		if len(key) < 16 {
			return errors.New("api key must be at least 16 characters")
		}
		hash, err := handlers.HashAPIKey(key)
		if err != nil {
			return fmt.Errorf("failed to hash api key: %w", err)
		}
		fmt.Println(hash)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hashKeyCmd)
}
