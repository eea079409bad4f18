package main

import (
	"database/sql"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

/* ======================
   Request Types
   ====================== */

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LogoutRequest struct {
	SessionToken string `json:"sessionToken"`
}

type FarmItemRequest struct {
	UserID      int     `json:"userId"`
	ItemType    string  `json:"itemType"`
	ItemName    string  `json:"itemName"`
	PositionX   float64 `json:"positionX"`
	PositionY   float64 `json:"positionY"`
	GrowthStage int     `json:"growthStage"`
}

type PlayerPositionRequest struct {
	UserID    int     `json:"userId"`
	PositionX float64 `json:"positionX"`
	PositionY float64 `json:"positionY"`
}

type ResourcesRequest struct {
	UserID int `json:"userId"`
	Coins  int `json:"coins"`
	Gems   int `json:"gems"`
}

type SeedData struct {
	SeedType string `json:"seedType"`
	Quantity int    `json:"quantity"`
}

type InventoryRequest struct {
	UserID int        `json:"userId"`
	Seeds  []SeedData `json:"seeds"`
}

type ChatSendRequest struct {
	UserID   int    `json:"userId"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

/* ======================
   main()
   ====================== */

func main() {
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatal("failed to open database:", err)
	}
	db.SetMaxOpenConns(parseEnvInt("DB_MAX_OPEN_CONNS", 5))
	db.SetMaxIdleConns(parseEnvInt("DB_MAX_IDLE_CONNS", 5))
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		log.Fatal("failed to ping database:", err)
	}
	log.Println("Connected to PostgreSQL")

	if err := ensureSchema(db); err != nil {
		log.Fatal("Failed to ensure schema:", err)
	}

	store := NewPostgresStore(db)
	hub := newHub()

	mux := http.NewServeMux()
	registerRoutes(mux, store, hub)

	port := os.Getenv("PORT")
	if port == "" {
		port = "5000"
	}

	addr := "0.0.0.0:" + port
	log.Println("Listening on", addr)
	if err := http.ListenAndServe(addr, withCORS(mux)); err != nil {
		log.Fatal("server failed:", err)
	}
}

/* ======================
   Routes
   ====================== */

func registerRoutes(mux *http.ServeMux, store Store, hub *Hub) {
	authLimiter := newIPRateLimiter(
		parseEnvInt("AUTH_RATE_LIMIT", 30),
		parseEnvInt("AUTH_RATE_BURST", 10),
	)

	mux.HandleFunc("GET /health", healthHandler)

	mux.HandleFunc("POST /api/auth/register", registerHandler(store, authLimiter))
	mux.HandleFunc("POST /api/auth/login", loginHandler(store, authLimiter))
	mux.HandleFunc("POST /api/auth/logout", logoutHandler(store))

	mux.HandleFunc("GET /api/farm/{userId}", getFarmHandler(store))
	mux.HandleFunc("POST /api/farm/items/save", saveFarmItemHandler(store))
	mux.HandleFunc("GET /api/farm/items/{userId}", getFarmItemsHandler(store))
	mux.HandleFunc("DELETE /api/farm/items/{itemId}", deleteFarmItemHandler(store))
	mux.HandleFunc("POST /api/farm/position/save", savePlayerPositionHandler(store))
	mux.HandleFunc("GET /api/farm/position/{userId}", getPlayerPositionHandler(store))
	mux.HandleFunc("POST /api/farm/resources/update", updateResourcesHandler(store))
	mux.HandleFunc("POST /api/farm/inventory/save", saveInventoryHandler(store))
	mux.HandleFunc("GET /api/farm/inventory/{userId}", getInventoryHandler(store))

	mux.HandleFunc("GET /api/chat/history", chatHistoryHandler(store))
	mux.HandleFunc("GET /api/chat/online-users", onlineUsersHandler(store))
	mux.HandleFunc("POST /api/chat/send", chatSendHandler(store))

	mux.HandleFunc("/gamehub", hub.serveWS())
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func parseEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
