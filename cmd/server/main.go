package main

import (
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/rjsanjaymandal/uno/server"
	"github.com/rjsanjaymandal/uno/store"
)

type config struct {
	Addr     string `env:"UNO_ADDR,default=:8000"`
	RedisURL string `env:"UNO_REDIS_URL"`
	LogLevel string `env:"UNO_LOG_LEVEL,default=info"`
	LogJSON  bool   `env:"UNO_LOG_JSON,default=false"`
}

func main() {
	// .env is optional; real deployments set the environment directly
	godotenv.Load()

	var cfg config
	if err := envdecode.Decode(&cfg); err != nil {
		log.Fatalf("config: %v", err)
	}

	if cfg.LogJSON {
		log.SetFormatter(&log.JSONFormatter{})
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	log.SetLevel(level)

	var gameStore store.GameStore
	if cfg.RedisURL != "" {
		rs, err := store.NewRedisGameStore(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		gameStore = rs
		log.WithField("url", cfg.RedisURL).Info("using redis game store")
	} else {
		gameStore = store.NewInMemoryGameStore()
		log.Info("using in-memory game store")
	}

	s := server.NewServer(gameStore)

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)

	log.WithField("addr", cfg.Addr).Info("listening")
	log.Fatal(http.ListenAndServe(cfg.Addr, handlers.LoggingHandler(os.Stdout, cors(s))))
}
