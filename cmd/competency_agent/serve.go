package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/competency-mapper/internal/server"
	"github.com/jonathan/competency-mapper/internal/server/ratelimit"
)

var (
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start an HTTP server exposing POST /analyze, GET /reports, GET /reports/{id},
GET /profiles and GET /health. The catalog and embedding index are built once at startup.
Reports are archived when a database URL is configured.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := resolveConfig(cmd, true)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	st, err := loadSetup(cfg)
	if err != nil {
		return err
	}
	enc, err := newEncoder(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = enc.Close() }()
	engine, err := st.newEngine(ctx, cfg, enc, log, false)
	if err != nil {
		return err
	}

	narratives, release, err := newNarrativeService(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer release()

	srvCfg := server.Config{
		Port:       servePort,
		Engine:     engine,
		Profiles:   st.registry,
		Narratives: narratives,
		RateLimit:  ratelimit.LoadConfig(),
		Logger:     log,
	}
	database, err := openArchive(ctx, cfg)
	if err != nil {
		return err
	}
	if database != nil {
		defer database.Close()
		srvCfg.Archive = database
	} else {
		log.Info("no database configured, report archive disabled")
	}

	srv, err := server.New(srvCfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	return srv.Start()
}
