package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"sports-spaces-backend/pkg/config"
	"sports-spaces-backend/pkg/database"
	"sports-spaces-backend/pkg/logger"
	"sports-spaces-backend/pkg/utils"
)

var (
	migrateDSN   string
	migratePrint bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the tables and seed the weekday lookup",
	Long: `Applies the embedded schema to PostgreSQL (POSTGRES_DSN or --dsn),
or migrates the local SQLite store when USE_LOCAL_DB is set.
With --print the schema is written to stdout for the Supabase SQL editor.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if migratePrint {
			fmt.Fprint(cmd.OutOrStdout(), database.Schema())
			return nil
		}

		cfg := config.LoadConfig()
		log, err := logger.NewLogger(cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return err
		}
		defer log.Sync()
		jwtService := utils.NewJWTService(cfg.JWTSecret)

		dsn := migrateDSN
		if dsn == "" {
			dsn = cfg.PostgresDSN
		}

		if dsn == "" && cfg.UseLocalDB {
			local, err := database.NewLocalDatabase(cfg.LocalDBPath, jwtService, cfg.Debug)
			if err != nil {
				return err
			}
			defer local.Close()
			log.Info("local database migrated", zap.String("path", cfg.LocalDBPath))
			return nil
		}
		if dsn == "" {
			return fmt.Errorf("no database to migrate: set POSTGRES_DSN, pass --dsn, or use --print for Supabase")
		}

		log.Info("connecting", zap.String("dsn", maskPassword(dsn)))
		pg, err := database.NewPostgresDatabase(dsn, jwtService, log)
		if err != nil {
			return err
		}
		defer pg.Close()

		if err := pg.Migrate(cmd.Context()); err != nil {
			return err
		}
		counts, err := pg.TableCounts(cmd.Context())
		if err != nil {
			return err
		}
		for table, n := range counts {
			log.Info("table ready", zap.String("table", table), zap.Int64("rows", n))
		}
		return nil
	},
}

func init() {
	migrateCmd.Flags().StringVar(&migrateDSN, "dsn", "", "PostgreSQL DSN (overrides POSTGRES_DSN)")
	migrateCmd.Flags().BoolVar(&migratePrint, "print", false, "print the schema instead of applying it")
}

// maskPassword hides the password part of a URL DSN
func maskPassword(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return "***"
	}
	userinfo := dsn[scheme+3 : at]
	if colon := strings.Index(userinfo, ":"); colon >= 0 {
		userinfo = userinfo[:colon] + ":***"
	}
	return dsn[:scheme+3] + userinfo + dsn[at:]
}
