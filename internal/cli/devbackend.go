package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/MrEthical07/hrdesk/internal/fakebackend"
	"github.com/MrEthical07/hrdesk/internal/rate"
)

func newDevBackendCmd(a *app) *cobra.Command {
	var addr, redisAddr, secret string
	var withRedis bool
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "dev-backend",
		Short: "Run an in-memory HR desk backend for local development",
		Long: `Run an in-memory backend that speaks the HR desk API.

Two accounts are seeded: E1 (HR administrator) and E2 (developer), both
with password "Passw0rd!". With --redis an in-process Redis server is
started as well, for trying the redis persistence backend, and the backend
throttles failed logins and refresh calls through it.`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationNoClient: ""},
		RunE: func(cmd *cobra.Command, args []string) error {
			w := out(cmd)
			opts := fakebackend.Options{
				Secret:    []byte(secret),
				AccessTTL: ttl,
				Logger:    a.logger,
			}

			if withRedis {
				mr := miniredis.NewMiniRedis()
				if err := mr.StartAddr(redisAddr); err != nil {
					return fmt.Errorf("start redis: %w", err)
				}
				defer mr.Close()
				rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
				defer rdb.Close()
				opts.Limiter = rate.New(rdb, rate.DefaultConfig())

				fmt.Fprintf(w, "redis listening on %s (login and refresh throttling enabled)\n", mr.Addr())
				fmt.Fprintf(w, "  export HRDESK_PERSISTENCE=redis HRDESK_REDIS_ADDR=%s\n", mr.Addr())
			}

			backend := fakebackend.New(opts)
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "backend listening on http://%s\n", ln.Addr())
			return serve(cmd.Context(), ln, backend)
		},
	}
	f := cmd.Flags()
	f.StringVar(&addr, "addr", "127.0.0.1:8080", "Listen address")
	f.StringVar(&secret, "secret", "", "HMAC secret for issued tokens (built-in default when empty)")
	f.DurationVar(&ttl, "access-ttl", 15*time.Minute, "Lifetime of issued access tokens")
	f.BoolVar(&withRedis, "redis", false, "Also start an in-process Redis server")
	f.StringVar(&redisAddr, "redis-addr", "127.0.0.1:0", "Listen address of the Redis server")
	return cmd
}

func serve(ctx context.Context, ln net.Listener, h http.Handler) error {
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
