package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rowjay/lily-delivery/internal/app"
	"github.com/rowjay/lily-delivery/internal/config"
	"github.com/rowjay/lily-delivery/internal/cryptoutil"
	"github.com/rowjay/lily-delivery/internal/logging"
	"github.com/rowjay/lily-delivery/internal/version"
)

const defaultEnvironment = "integration"

type rootFlags struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:           "lily-delivery",
		Short:         "Publish versioned Angular builds to S3 and CloudFront",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&root.ConfigPath, "config", "", "Path to config file (default .lily_delivery.yaml)")
	rootCmd.PersistentFlags().StringVar(&root.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&root.LogFormat, "log-format", "", "Log format (console, json)")

	rootCmd.AddCommand(newDeployCmd(root))
	rootCmd.AddCommand(newValidateCmd(root))
	rootCmd.AddCommand(newReleasesCmd(root))
	rootCmd.AddCommand(newConfigCmd(root))
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

func newDeployCmd(root *rootFlags) *cobra.Command {
	var projectName, environment string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Build a versioned release and publish it",
		RunE: func(cmd *cobra.Command, args []string) error {
			if projectName == "" {
				return fmt.Errorf("--project is required")
			}
			cfg, logger, err := loadConfig(root)
			if err != nil {
				return err
			}
			appSvc, err := app.Open(cfg, environment, logger)
			if err != nil {
				return err
			}
			ctx, cancel := operationContext(cfg)
			defer cancel()

			res, err := appSvc.Deploy(ctx, app.DeployOptions{Project: projectName, DryRun: dryRun})
			if err != nil {
				return err
			}
			out := res.Outcome
			event := logger.Info().
				Str("project", res.Project).
				Str("environment", res.Environment).
				Str("version", res.Version).
				Str("entry", out.EntryDocument)
			switch {
			case out.Skipped:
				event.Bool("entry_exists", out.EntryExists).Bool("assets_exist", out.AssetsExist).Msg("release already published, nothing to do")
			case out.DryRun:
				for _, key := range out.Uploaded {
					fmt.Fprintln(cmd.OutOrStdout(), key)
				}
				event.Int("files", len(out.Uploaded)).Msg("dry run completed")
			default:
				event.Int("files", len(out.Uploaded)).Str("invalidation", out.InvalidationID).Msg("deploy completed")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&projectName, "project", "p", "", "Angular project name from angular.json")
	cmd.Flags().StringVarP(&environment, "environment", "e", defaultEnvironment, "Target environment from the dependencies section")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Build and check the release without uploading")
	return cmd
}

func newValidateCmd(root *rootFlags) *cobra.Command {
	var environment string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and remote credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(root)
			if err != nil {
				return err
			}
			appSvc, err := app.Open(cfg, environment, logger)
			if err != nil {
				return err
			}
			ctx, cancel := operationContext(cfg)
			defer cancel()

			results, err := appSvc.Validate(ctx)
			for _, r := range results {
				logger.Info().Str("check", r.Name).Bool("ok", r.OK).AnErr("error", r.Err).Msg("validation")
			}
			if err != nil {
				return err
			}
			logger.Info().Str("environment", environment).Msg("validation succeeded")
			return nil
		},
	}
	cmd.Flags().StringVarP(&environment, "environment", "e", defaultEnvironment, "Target environment")
	return cmd
}

func newReleasesCmd(root *rootFlags) *cobra.Command {
	var environment string

	cmd := &cobra.Command{
		Use:   "releases",
		Short: "List published releases",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(root)
			if err != nil {
				return err
			}
			appSvc, err := app.Open(cfg, environment, logger)
			if err != nil {
				return err
			}
			ctx, cancel := operationContext(cfg)
			defer cancel()

			items, err := appSvc.Releases(ctx)
			if err != nil {
				return err
			}
			for _, item := range items {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", item.Version, item.EntryDocument, item.Modified.Format(time.RFC3339))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&environment, "environment", "e", defaultEnvironment, "Target environment")
	return cmd
}

func newConfigCmd(root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Config utilities",
	}

	var environment string
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(root)
			if err != nil {
				return err
			}
			redacted := cfg.Redacted()
			if environment != "" {
				env, err := cfg.Environment(environment)
				if err != nil {
					return err
				}
				redacted.Dependencies = map[string]config.DependenciesConfig{env.Name: redacted.Dependencies[env.Name]}
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(redacted); err != nil {
				return err
			}
			return enc.Close()
		},
	}
	show.Flags().StringVarP(&environment, "environment", "e", "", "Only show this environment")

	var input, output, key string
	encrypt := &cobra.Command{
		Use:   "encrypt",
		Short: "Encrypt a config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if input == "" || output == "" || key == "" {
				return fmt.Errorf("--input, --output, and --key are required")
			}
			return config.EncryptConfigFile(input, output, key)
		},
	}
	encrypt.Flags().StringVar(&input, "input", "", "Input config file")
	encrypt.Flags().StringVar(&output, "output", "", "Output encrypted config file (e.g. .lily_delivery.yaml.enc)")
	encrypt.Flags().StringVar(&key, "key", "", "Encryption key (base64 or hex)")

	keygen := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a config encryption key",
		RunE: func(cmd *cobra.Command, args []string) error {
			generated, err := cryptoutil.GenerateKey()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), generated)
			return nil
		},
	}

	cmd.AddCommand(show, encrypt, keygen)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "lily-delivery %s (commit %s, built %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}

func loadConfig(root *rootFlags) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(root.ConfigPath)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if root.LogLevel != "" {
		cfg.Global.LogLevel = root.LogLevel
	}
	if root.LogFormat != "" {
		cfg.Global.LogFormat = root.LogFormat
	}
	return cfg, logging.Configure(cfg.Global.LogLevel, cfg.Global.LogFormat), nil
}

func operationContext(cfg *config.Config) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, cfg.Global.OperationTimeout)
	return ctx, func() {
		cancel()
		stop()
	}
}
