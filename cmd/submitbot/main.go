// Command submitbot serves the activity submission API: it extracts
// structured activity records from URLs or uploaded files with a
// language model and proposes them as pull requests against the
// dataset repository.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"google.golang.org/genai"

	"github.com/openevents/submitbot/internal/config"
	"github.com/openevents/submitbot/internal/dataset"
	"github.com/openevents/submitbot/internal/extract"
	"github.com/openevents/submitbot/internal/fetch"
	"github.com/openevents/submitbot/internal/github"
	"github.com/openevents/submitbot/internal/server"
)

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel()}))
	slog.SetDefault(log)

	cfg := config.FromEnv()

	srv := server.New(
		dataset.NewReader(cfg.DataDir, log),
		fetch.New(nil, log),
		buildOptions(cfg, log)...,
	)

	log.Info("activity submission bot starting",
		"port", cfg.Port,
		"provider", cfg.Provider,
		"model", cfg.Model,
		"repo", cfg.GitHubOwner+"/"+cfg.GitHubRepo,
		"data_dir", cfg.DataDir)

	if err := http.ListenAndServe(":"+cfg.Port, srv.Handler()); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// buildOptions constructs the extractor and publisher. Missing
// credentials are recorded as per-component configuration errors that
// surface on the requests needing them; the server still starts.
func buildOptions(cfg *config.Config, log *slog.Logger) []server.Option {
	var opts []server.Option

	if err := cfg.ValidateModel(); err != nil {
		log.Warn("extraction engine unavailable", "error", err)
		opts = append(opts, server.WithExtractorError(err))
	} else {
		invoker, err := buildInvoker(cfg, log)
		if err == nil {
			var extractor *extract.Extractor
			extractor, err = extract.New(invoker, cfg.Model, log)
			if err == nil {
				opts = append(opts, server.WithExtractor(extractor))
			}
		}
		if err != nil {
			log.Warn("extraction engine unavailable", "error", err)
			opts = append(opts, server.WithExtractorError(err))
		}
	}

	if err := cfg.ValidateGitHub(); err != nil {
		log.Warn("publisher unavailable", "error", err)
		opts = append(opts, server.WithPublisherError(err))
	} else {
		clientOpts := []github.ClientOption{github.WithLogger(log)}
		if cfg.ProxyURL != "" {
			log.Info("routing GitHub traffic through proxy", "proxy", cfg.ProxyURL)
			clientOpts = append(clientOpts, github.WithProxy(cfg.ProxyURL))
		}
		client := github.NewClient(cfg.GitHubToken, cfg.GitHubOwner, cfg.GitHubRepo, clientOpts...)
		publisher, err := github.NewPublisher(client, cfg.DefaultBranch, log)
		if err != nil {
			log.Warn("publisher unavailable", "error", err)
			opts = append(opts, server.WithPublisherError(err))
		} else {
			opts = append(opts, server.WithPublisher(publisher))
		}
	}

	return append(opts, server.WithLogger(log))
}

func buildInvoker(cfg *config.Config, log *slog.Logger) (extract.Invoker, error) {
	if cfg.Provider == config.ProviderGemini {
		client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
			APIKey:  cfg.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, err
		}
		return extract.NewGeminiInvoker(client, log)
	}
	return &extract.ChatInvoker{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Log:     log,
	}, nil
}

func logLevel() slog.Level {
	if os.Getenv("LOG_LEVEL") == "debug" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
