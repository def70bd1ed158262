package main

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/seq2seq/internal/api"
	"github.com/samcharles93/seq2seq/internal/logger"
)

func serveCmd() *cli.Command {
	var (
		addr        string
		name        string
		readTimeout time.Duration
		rateLimit   float64
		rateBurst   int
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the forward-pass REST API",
		Flags: append(modelFlags(),
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.StringFlag{
				Name:        "name",
				Usage:       "model id reported by /v1/model",
				Value:       "seq2seq",
				Destination: &name,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read timeout for request headers and bodies",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
			&cli.Float64Flag{
				Name:        "rate-limit",
				Usage:       "requests per second (0 disables limiting)",
				Value:       20,
				Destination: &rateLimit,
			},
			&cli.IntFlag{
				Name:        "rate-burst",
				Usage:       "burst size for the rate limiter",
				Value:       40,
				Destination: &rateBurst,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyServeConfig(cmd, fileCfg, &addr, &rateLimit, &rateBurst)

			m, err := buildModel(ctx, cmd)
			if err != nil {
				return err
			}
			server := api.NewServer(m, api.WithLogger(log), api.WithModelName(name))

			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			e.Use(api.RateLimit(api.NewLimiter(rateLimit, rateBurst)))
			server.Register(e)
			log.Info("starting server", "address", addr, "parameters", m.NumParameters(), "rate_limit", rateLimit)
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					setReadTimeout(srv, readTimeout)
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}

// setReadTimeout bounds both the header read and the full request read.
func setReadTimeout(srv *http.Server, d time.Duration) {
	srv.ReadHeaderTimeout = d
	srv.ReadTimeout = d
}
