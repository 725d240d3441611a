package main

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
)

const (
	timeout time.Duration = 10 * time.Second
)

func securityHeaders(w http.ResponseWriter) {
	w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
	w.Header().Set("Cross-Origin-Resource-Policy", "same-site")
	w.Header().Set("Permissions-Policy", "geolocation=(), midi=(), sync-xhr=(), microphone=(), camera=(), magnetometer=(), gyroscope=(), fullscreen=(), payment=()")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'unsafe-inline' 'self'; style-src 'unsafe-inline'; img-src 'self' data:; connect-src 'self'")
}

func realIP(r *http.Request) string {
	host, port, _ := net.SplitHostPort(r.RemoteAddr)
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	}
	if net.ParseIP(host) != nil && strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port != "" {
		return host + ":" + port
	}
	return host
}

func newRouter(cfg *Config, h *Host) *httprouter.Router {
	mux := httprouter.New()

	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, i any) {
		h.log.Error().Interface("panic", i).Str("path", r.URL.Path).Msg("dashboard handler panicked")

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(w)
		w.WriteHeader(http.StatusInternalServerError)

		_, _ = io.WriteString(w, "An error has occurred. Please try again.\n")
	}

	mux.GET("/", serveHomePage(h))
	mux.GET("/healthz", serveHealthCheck(h))
	mux.GET("/robots.txt", serveRobots(h))
	mux.GET("/version", serveVersion(h))
	mux.GET("/status", serveStatus(h))
	mux.GET("/qr", serveQR(h))
	mux.GET("/ws", serveFeed(h.feed))

	if cfg.profile {
		registerProfileHandlers(mux)
	}

	return mux
}

// serveDashboard runs the host dashboard until ctx is done.
func serveDashboard(ctx context.Context, cfg *Config, h *Host) error {
	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.dashboardBind, strconv.Itoa(cfg.dashboardPort)),
		Handler:           newRouter(cfg, h),
		IdleTimeout:       10 * time.Minute,
		ReadTimeout:       timeout,
		ReadHeaderTimeout: timeout,
	}

	errs := make(chan error, 1)

	go func() {
		h.log.Info().Str("url", "http://"+srv.Addr+"/").Msg("dashboard listening")

		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
