// contactsctl drives the contact governance workflow of one tenant from the
// command line: keys, filters, the contact list and duplicate resolution.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"contacts-backend/internal/env"
	"contacts-backend/internal/logger"

	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	serverURL string
	token     string
	tenant    string
	cacheDir  string
	timeout   string
	verbose   bool

	cfg Config
)

var rootCmd = &cobra.Command{
	Use:   "contactsctl",
	Short: "Contact governance from the command line",
	Long: `contactsctl manages the contact keys, filters, contact list and
duplicate resolution of one tenant against the contacts API.

Settings are read from ~/.contactsctl.toml and flags override them.
CONTACTSCTL_TOKEN supplies the token when neither sets one.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		env.Load()

		loaded, err := LoadConfig(cfgFile)
		if err != nil {
			return err
		}
		applyFlags(cmd, &loaded)
		cfg = loaded

		level := cfg.LogLevel
		if verbose {
			level = "debug"
		}
		logger.Init(level, env.GetOrDefault(env.LogFormat, "text"))
		return nil
	},
}

func applyFlags(cmd *cobra.Command, c *Config) {
	flags := cmd.Flags()
	if flags.Changed("server") {
		c.Server = serverURL
	}
	if flags.Changed("token") {
		c.Token = token
	}
	if flags.Changed("tenant") {
		c.Tenant = tenant
	}
	if flags.Changed("cache-dir") {
		c.CacheDir = cacheDir
	}
	if flags.Changed("timeout") {
		c.Timeout = timeout
	}
	if c.Token == "" {
		c.Token = os.Getenv("CONTACTSCTL_TOKEN")
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", DefaultConfigPath(), "Config file path")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Contacts API base URL")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "Access token")
	rootCmd.PersistentFlags().StringVar(&tenant, "tenant", "", "Tenant ID (defaults to the token's tenant)")
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "", "Column preference cache directory")
	rootCmd.PersistentFlags().StringVar(&timeout, "timeout", "", "Request timeout, e.g. 30s")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")

	rootCmd.AddCommand(keysCmd, filtersCmd, contactsCmd, duplicatesCmd, columnsCmd, watchCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		stop()
		os.Exit(1)
	}
}
