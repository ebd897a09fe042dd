package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coursechat/internal/common"
	"coursechat/internal/config"
	"coursechat/internal/dbmongo"
	"coursechat/internal/dbmysql"
	"coursechat/internal/gateway"
	"coursechat/internal/media"
)

func main() {
	log.Println("Starting coursechat gateway...")

	cfg := config.LoadConfig()

	store, storage, cleanup, err := buildBackend(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize backend: %v", err)
	}
	defer cleanup()

	users := gateway.NewUserDirectory()
	seedUsers(users)

	server := gateway.NewServer(cfg, store, storage, users)

	httpServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      server,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Printf("Gateway running on %s (backend: %s)", httpServer.Addr, cfg.Server.Backend)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down gateway...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
	log.Println("Gateway stopped")
}

// buildBackend wires persistence according to GATEWAY_BACKEND: everything
// in memory for development, or MySQL messages plus GridFS attachments.
func buildBackend(cfg *config.Config) (gateway.MessageStore, media.Storage, func(), error) {
	if cfg.Server.Backend != "mysql" {
		return gateway.NewMemoryStore(), media.NewMemoryStorage(), func() {}, nil
	}

	db, err := dbmysql.NewMySQL(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	mongoClient, err := dbmongo.NewMongoConnection(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		mongoClient.Close(ctx)
	}

	return dbmysql.NewMessageRepository(db), dbmongo.NewMediaStorage(mongoClient), cleanup, nil
}

// seedUsers registers the development accounts.
func seedUsers(users *gateway.UserDirectory) {
	seed := []struct {
		id, name, password string
		role               common.SenderRole
	}{
		{"alice", "Alice", "alice123", common.RoleStudent},
		{"bob", "Bob", "bob123", common.RoleStudent},
		{"carol", "Dr. Carol", "carol123", common.RoleInstructor},
	}
	for _, u := range seed {
		if err := users.Register(u.id, u.name, u.password, u.role); err != nil {
			log.Fatalf("Failed to seed user %s: %v", u.id, err)
		}
	}
	log.Println("✅ Seeded development users: alice, bob, carol")
}
