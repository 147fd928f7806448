package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	pgguard "github.com/fuzzybassoon/pgguard"
)

func runServe() error {
	ctx := context.Background()

	config, err := pgguard.FromEnv()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := setupLogger(config.Logging)

	// Password may come from the environment or, on a terminal, a prompt.
	// Never from a command-line argument.
	if config.Connection.Password == "" && term.IsTerminal(int(os.Stdin.Fd())) {
		config.Connection.Password = promptPassword(fmt.Sprintf("Password for %s@%s: ", config.Connection.User, config.Connection.Host))
	}

	var opts []pgguard.Option
	if config.Policy.AuditEnabled && config.AuditPath != "" {
		f, err := os.OpenFile(config.AuditPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open audit log %s: %w", config.AuditPath, err)
		}
		defer f.Close()
		opts = append(opts, pgguard.WithAuditLogger(zerolog.New(f)))
	}

	guard, err := pgguard.New(ctx, config.Connection.ConnString(), *config, logger, opts...)
	if err != nil {
		return fmt.Errorf("failed to create guard: %w", err)
	}
	defer guard.Close(ctx)

	logger.Info().Msg("testing database connection")
	if err := guard.Ping(ctx); err != nil {
		logger.Error().Err(err).Msg("database connection test failed")
		return fmt.Errorf("database connection test failed: %w", err)
	}
	logger.Info().Msg("database connection test successful")

	hooks := &server.Hooks{}
	hooks.AddAfterInitialize(func(ctx context.Context, id any, req *mcp.InitializeRequest, result *mcp.InitializeResult) {
		logger.Info().
			Str("client_name", req.Params.ClientInfo.Name).
			Str("client_version", req.Params.ClientInfo.Version).
			Msg("AI agent connected (MCP initialize)")
	})

	mcpServer := server.NewMCPServer("pgguard", "1.0.0",
		server.WithToolCapabilities(true),
		server.WithHooks(hooks),
	)

	pgguard.RegisterMCPTools(mcpServer, guard)

	if config.HTTPPort <= 0 {
		logger.Info().Msg("starting pgguard server on stdio")
		return server.ServeStdio(mcpServer)
	}

	addr := fmt.Sprintf(":%d", config.HTTPPort)
	mux := http.NewServeMux()

	// Health check endpoint (process liveness only, not DB connectivity)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	httpSrv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	streamableServer := server.NewStreamableHTTPServer(mcpServer,
		server.WithEndpointPath("/mcp"),
		server.WithStateLess(true),
		server.WithStreamableHTTPServer(httpSrv),
	)

	// Manually register the MCP handler — Start() does NOT register
	// when a custom *http.Server is provided via WithStreamableHTTPServer.
	mux.Handle("/mcp", streamableServer)

	logger.Info().Int("port", config.HTTPPort).Msg("starting pgguard server")
	return streamableServer.Start(addr)
}

func setupLogger(config pgguard.LoggingConfig) zerolog.Logger {
	level := zerolog.InfoLevel
	switch strings.ToLower(config.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	var output io.Writer = os.Stderr
	if config.Output == "stdout" {
		output = os.Stdout
	} else if config.Output != "" && config.Output != "stderr" {
		f, err := os.OpenFile(config.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err == nil {
			output = f
		}
	}

	if config.Format == "text" {
		output = zerolog.ConsoleWriter{Out: output}
	}

	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}

func promptPassword(prompt string) string {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return ""
	}
	return string(password)
}
