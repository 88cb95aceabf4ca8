package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"sketchboard/server"
)

func main() {
	if err := mainInner(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func mainInner() error {
	addrVar := flag.String("addr", ":3001", "the address to listen on")
	staticVar := flag.String("static", "", "directory of browser assets to serve (optional)")
	flag.Parse()

	gin.SetMode(gin.ReleaseMode)

	board := server.NewBoard()
	httpServer := &http.Server{Addr: *addrVar, Handler: server.Router(board, *staticVar)}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("relay listening", "addr", *addrVar)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	exit := make(chan os.Signal, 1) // buffered so the notifier never blocks
	signal.Notify(exit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-exit:
		slog.Info("signal caught", "sig", sig)
	case err := <-errCh:
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(ctx)
}
