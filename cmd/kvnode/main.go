// cmd/kvnode is the main entrypoint for one replica of the causally
// consistent key-value store.
//
// Configuration is read from SOCKET_ADDRESS/VIEW (§6), with flags
// available for local runs so a single binary can be started with no
// environment at all.
//
// Example — 3-replica cluster on one machine:
//
//	SOCKET_ADDRESS=localhost:8090 VIEW=localhost:8090,localhost:8091,localhost:8092 ./kvnode
//	SOCKET_ADDRESS=localhost:8091 VIEW=localhost:8090,localhost:8091,localhost:8092 ./kvnode
//	SOCKET_ADDRESS=localhost:8092 VIEW=localhost:8090,localhost:8091,localhost:8092 ./kvnode
package main

import (
	"context"
	"distributed-kvstore/internal/api"
	"distributed-kvstore/internal/config"
	"distributed-kvstore/internal/replica"
	"distributed-kvstore/internal/store"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
)

func main() {
	addrFlag := flag.String("addr", "", "this replica's identity, host:port (overrides SOCKET_ADDRESS)")
	viewFlag := flag.String("view", "", "comma-separated replica identities, including self (overrides VIEW)")
	dataDir := flag.String("data-dir", "", "optional directory for the write-ahead log; empty disables persistence")
	flag.Parse()

	logger := log.New(os.Stdout, "", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load(*addrFlag, *viewFlag)
	if err != nil {
		logger.Fatalf("config: %v", err)
	}

	s, err := store.New(*dataDir)
	if err != nil {
		logger.Fatalf("open store: %v", err)
	}
	defer s.Close()

	engine := replica.New(cfg.Self, cfg.Seeds, s, logger)
	replica.Bootstrap(engine)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(api.Logger(cfg.Self, logger), api.Recovery(logger))
	api.NewHandler(engine).Register(router)

	srv := &http.Server{
		Addr:         listenAddr(cfg.Self),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Printf("replica=%s listening on %s (view=%v)", cfg.Self, srv.Addr, engine.ListView())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Printf("replica=%s shutting down", cfg.Self)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Printf("server shutdown error: %v", err)
	}
}

// listenAddr binds on all interfaces on self's port, the way §6 requires
// ("listens on 8090 on all interfaces"), while the replica's identity
// (used for view membership and message routing) keeps its full host:port
// form.
func listenAddr(self string) string {
	if i := strings.LastIndex(self, ":"); i >= 0 {
		return ":" + self[i+1:]
	}
	return self
}
