package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/abhisek/lingua/internal/app"
	"github.com/abhisek/lingua/internal/httpapi"
	"github.com/abhisek/lingua/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}
		log, err := logger.New(cfg.Log.Mode, cfg.Log.Level)
		if err != nil {
			return err
		}
		defer log.Sync()

		a, err := app.New(cfg, log, app.Options{})
		if err != nil {
			return fmt.Errorf("init: %w", err)
		}
		defer a.Close()

		if a.Verifier == nil {
			log.Warn("auth.jwt_secret not set: every request is anonymous and writes will be rejected")
		}
		if cfg.Log.Mode == "prod" {
			gin.SetMode(gin.ReleaseMode)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		router := httpapi.NewRouter(httpapi.RouterConfig{App: a, CORSOrigins: cfg.Server.CORSOrigins})
		return httpapi.Serve(ctx, cfg.Server.Addr, router, log)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
}
