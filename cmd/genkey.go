package main

import (
	"fmt"

	"github.com/roomkit/roomd/config"

	"github.com/spf13/cobra"
)

func genkeyCmd() *cobra.Command {
	var length int

	cmd := &cobra.Command{
		Use:   "genkey",
		Short: "Print a fresh auth key",
		Long:  `Generate a random alphanumeric key suitable for auth.key in the config file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := config.GenerateKey(length)
			if err != nil {
				return err
			}
			fmt.Println(key)
			return nil
		},
	}

	cmd.Flags().IntVarP(&length, "length", "n", 16, "Key length")

	return cmd
}
