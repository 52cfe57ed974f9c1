package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/artpar/sfadvisor/internal/core/auth"
	"github.com/artpar/sfadvisor/internal/core/catalog"
	"github.com/artpar/sfadvisor/internal/shell/store"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdin, stdout)
	cmd.SetArgs(args)
	cmd.SetErr(stderr)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		var sErr *ServerError
		if errors.As(err, &sErr) {
			return sErr.ExitCode
		}
		return ExitConfigError
	}
	return ExitSuccess
}

// =============================================================================
// Commands
// =============================================================================

func newRootCmd(stdin io.Reader, stdout io.Writer) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "advisor",
		Short:         "Salesforce implementation advisor",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")

	loadConfig := func() (*Config, error) {
		cfg, err := LoadConfig(configPath)
		if err != nil {
			return nil, &ServerError{Op: "LoadConfig", Err: err, ExitCode: ExitConfigError}
		}
		return cfg, nil
	}

	root.AddCommand(
		newServeCmd(loadConfig),
		newVersionCmd(),
		newCatalogCmd(loadConfig),
		newAdminCmd(),
	)
	return root
}

func newServeCmd(loadConfig func() (*Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, web wizard and deployment runner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			logger := SetupLogger(cfg)
			logger.Info("starting advisor", "version", Version, "database", cfg.Database.DSN)

			ctx := cmd.Context()
			server, err := NewServer(ctx, cfg, logger)
			if err != nil {
				return err
			}
			return server.Start(ctx)
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and exit",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "advisor %s (built %s)\n", Version, BuildTime)
		},
	}
}

func newCatalogCmd(loadConfig func() (*Config, error)) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Export or import the recommendation catalog",
	}

	var outPath string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write the stored catalog as a JSON snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			data, err := exportCatalog(cmd.Context(), cfg, time.Now())
			if err != nil {
				return err
			}
			if outPath == "" {
				_, err = cmd.OutOrStdout().Write(append(data, '\n'))
				return err
			}
			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return &ServerError{Op: "export", Err: err, ExitCode: ExitCatalogError}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "catalog written to %s\n", outPath)
			return nil
		},
	}
	exportCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")

	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Merge a JSON snapshot into the stored catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return &ServerError{Op: "import", Err: err, ExitCode: ExitCatalogError}
			}
			cat, err := importCatalog(cmd.Context(), cfg, data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "catalog imported: %d domains, %d modules\n", len(cat.Domains), cat.ModuleCount())
			return nil
		},
	}

	catalogCmd.AddCommand(exportCmd, importCmd)
	return catalogCmd
}

func newAdminCmd() *cobra.Command {
	adminCmd := &cobra.Command{
		Use:   "admin",
		Short: "Admin account helpers",
	}

	hashCmd := &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print the argon2id hash for auth.admin_password_hash",
		Long:  "Hashes the password given as argument, or the first line of stdin when omitted.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd.InOrStdin(), args)
			if err != nil {
				return &ServerError{Op: "hash-password", Err: err, ExitCode: ExitConfigError}
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return &ServerError{Op: "hash-password", Err: err, ExitCode: ExitConfigError}
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}

	adminCmd.AddCommand(hashCmd)
	return adminCmd
}

// =============================================================================
// Command Helpers
// =============================================================================

func exportCatalog(ctx context.Context, cfg *Config, now time.Time) ([]byte, error) {
	s, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	cat, err := s.LoadCatalog(ctx)
	if err != nil {
		return nil, &ServerError{Op: "export", Err: err, ExitCode: ExitDatabaseError}
	}
	data, err := catalog.EncodeSnapshot(cat.Export(now))
	if err != nil {
		return nil, &ServerError{Op: "export", Err: err, ExitCode: ExitCatalogError}
	}
	return data, nil
}

// importCatalog merges the snapshot into the stored catalog in one transaction.
// An empty database starts from the default catalog.
func importCatalog(ctx context.Context, cfg *Config, data []byte) (catalog.Catalog, error) {
	snap, err := catalog.DecodeSnapshot(data)
	if err != nil {
		return catalog.Catalog{}, &ServerError{Op: "import", Err: err, ExitCode: ExitCatalogError}
	}

	s, err := openStore(cfg)
	if err != nil {
		return catalog.Catalog{}, err
	}
	defer s.Close()

	if _, err := s.SeedCatalog(ctx, catalog.Default()); err != nil {
		return catalog.Catalog{}, &ServerError{Op: "import", Err: err, ExitCode: ExitDatabaseError}
	}

	var out catalog.Catalog
	err = s.WithTx(ctx, func(tx store.Store) error {
		cat, err := tx.LoadCatalog(ctx)
		if err != nil {
			return err
		}
		if out, err = cat.Import(snap); err != nil {
			return err
		}
		return tx.SaveCatalog(ctx, out)
	})
	if err != nil {
		code := ExitCatalogError
		var storeErr *store.StoreError
		if errors.As(err, &storeErr) {
			code = ExitDatabaseError
		}
		return catalog.Catalog{}, &ServerError{Op: "import", Err: err, ExitCode: code}
	}
	return out, nil
}

func readPassword(in io.Reader, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("password is required")
	}
	return password, nil
}
