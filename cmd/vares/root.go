package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/utils/logger"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "vares",
		Short: "Monte Carlo VaR and ES under Gaussian and stable-tail returns",

		// SilenceUsage is an option to silence usage when an error occurs.
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			dotenvFile, err := cmd.Flags().GetString("dotenv")
			if err != nil {
				return err
			}
			if _, err := os.Stat(dotenvFile); err == nil {
				if err := godotenv.Load(dotenvFile); err != nil {
					return err
				}
			}

			level, err := cmd.Flags().GetString("log-level")
			if err != nil {
				return err
			}
			logger.Init(level, "development")
			return nil
		},
	}

	root.PersistentFlags().String("dotenv", ".env.local", "dotenv file loaded before the configuration")
	root.PersistentFlags().String("log-level", "warn", "log level")

	root.AddCommand(newAnalyzeCmd())
	return root
}
