package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/taller-ot/productos-api/internal/config"
	"github.com/taller-ot/productos-api/internal/database"
	"github.com/taller-ot/productos-api/internal/handler"
	"github.com/taller-ot/productos-api/internal/repository"
	"github.com/taller-ot/productos-api/internal/router"
)

const version = "1.0.0"

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName,
		database.Pool{MaxOpen: cfg.DBMaxOpen, MaxIdle: cfg.DBMaxIdle, MaxLifetime: cfg.DBConnLifetime})
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// nil when redis is unreachable; cache, rate limiting and the health
	// probe all degrade gracefully.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, cache and rate limiting disabled")
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	ah := handler.NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db))
	ph := handler.NewProductoHandler(repository.NewProductoRepo(db))
	hh := handler.NewHealthHandler(db, rdb, version)
	router.Register(e, cfg, rdb, ah, ph, hh)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
