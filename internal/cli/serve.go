package cli

import (
	"github.com/spf13/cobra"

	"resumeagent/internal/agent"
	"resumeagent/internal/config"
	"resumeagent/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for gap scans and resume optimization",
	Long: `Start an HTTP server that provides REST API endpoints for the resume agent.

Available endpoints:
- POST /scan: List skills the job requires that the resume lacks
- POST /optimize: Improve the resume, review it and write a cover letter
- GET /artifacts/{runID}/{name}: Download exported documents (when export is enabled)
- GET /health: Health check endpoint
- GET /stats: Server statistics and rate limiting info`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var (
	servePort string
	serveHost string
)

func init() {
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	if servePort != "" {
		cfg.Server.Port = servePort
	}
	if serveHost != "" {
		cfg.Server.Host = serveHost
	}

	a, err := agent.NewFromConfig(cmd.Context(), remoteCallerConfig(cfg), logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.LogError(err, "Failed to close agent")
		}
	}()

	backend := server.Backend{Agent: a}
	if svc := a.Service(); svc != nil {
		backend.Health = svc
	}
	if x := a.Exporter(); x != nil {
		backend.Artifacts = x
	}

	serverCfg := server.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		Version:        Version,
		APIKeys:        cfg.Server.APIKeys,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxRequestSize: cfg.App.MaxFileSize,
		RateLimit:      &cfg.Server.RateLimit,
	}
	return server.NewServer(cfg, serverCfg, backend, logger).Start(cmd.Context())
}

// remoteCallerConfig returns a copy of cfg whose loader treats PDF paths as
// text, since HTTP callers must not read files on this host
func remoteCallerConfig(cfg *config.Config) *config.Config {
	c := *cfg
	c.Loader.AllowLocalFiles = false
	return &c
}
