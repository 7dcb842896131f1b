package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fishnet/internal/config"
	"fishnet/internal/net"
	"fishnet/internal/server"
)

func main() {
	config.InitConfig()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	codec, err := net.CodecByName(cfg.WireCodec)
	if err != nil {
		log.Fatal(err)
	}
	logger := log.New(os.Stderr, "", log.LstdFlags)

	hub := server.NewHub(codec, cfg.MaxPlayers, logger)
	driver := server.NewDriver(hub, server.Options{
		TickHz:               cfg.TickHz,
		MaxPlayers:           cfg.MaxPlayers,
		RejectDuplicateSpawn: cfg.RejectDuplicateSpawn,
	}, logger)

	// Items exist before any peer joins, so they reach clients through catch-up.
	for _, it := range cfg.ItemSpawns {
		id := driver.SpawnItem(it.Script, it.Pos)
		logger.Printf("Spawned item %q as net id %d at %v", it.Script, id, it.Pos)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go driver.Run(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", server.HandleWebSocket(hub))
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdown)
	}()

	log.Printf("Server starting on :%s (codec %s, %d Hz, %d players)", cfg.Port, codec.Name(), cfg.TickHz, cfg.MaxPlayers)
	log.Printf("WebSocket endpoint: ws://localhost:%s/ws", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("Server error:", err)
	}
}
