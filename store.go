package main

import (
	"context"
	"errors"
	"time"
)

// timeFormat matches the timestamp strings the game client parses.
const timeFormat = "2006-01-02 15:04:05"

var (
	// ErrNotFound is the expected negative for lookups (missing farm,
	// position, user). Not an infrastructure failure.
	ErrNotFound = errors.New("not found")

	// ErrEmailTaken is returned by RegisterUser when the normalized email
	// already has a user row.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials covers both unknown email and wrong password so
	// callers cannot tell registered emails apart from unregistered ones.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type Farm struct {
	FarmID   int    `json:"farm_id"`
	FarmName string `json:"farm_name"`
	Level    int    `json:"level"`
	Coins    int    `json:"coins"`
	Gems     int    `json:"gems"`
}

type FarmItem struct {
	ItemID      int     `json:"item_id"`
	ItemType    string  `json:"item_type"`
	ItemName    string  `json:"item_name"`
	PositionX   float64 `json:"position_x"`
	PositionY   float64 `json:"position_y"`
	GrowthStage int     `json:"growth_stage"`
	PlantedAt   string  `json:"planted_at"`
}

type PlayerPosition struct {
	PositionX   float64 `json:"position_x"`
	PositionY   float64 `json:"position_y"`
	LastSavedAt string  `json:"last_saved_at"`
}

type ChatMessage struct {
	MessageID int    `json:"message_id"`
	SenderID  int    `json:"sender_id"`
	Username  string `json:"username"`
	// The client parses "messageText"; the column stays message_text.
	MessageText string `json:"messageText"`
	SentAt      string `json:"sent_at"`
}

type OnlineUser struct {
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Store is the persistence handle the handlers are built against. The
// production implementation is PostgresStore; tests use an in-memory double.
type Store interface {
	// RegisterUser creates a user plus their default farm in one
	// transaction. The email must not be registered under any casing.
	RegisterUser(ctx context.Context, email, password string) error

	// LoginUser returns the user id on a credential match and flips the
	// user online. Unknown email and wrong password are indistinguishable.
	LoginUser(ctx context.Context, email, password string) (int, error)

	// CreateSession issues an opaque token for a logged-in user.
	CreateSession(ctx context.Context, userID int) (string, time.Time, error)

	// Logout revokes a session token and clears is_online. Revoking an
	// unknown token is a no-op.
	Logout(ctx context.Context, sessionToken string) error

	GetFarm(ctx context.Context, userID int) (*Farm, error)

	// SaveFarmItem upserts a planted object keyed by its farm grid slot;
	// on conflict only growth stage and position change.
	SaveFarmItem(ctx context.Context, userID int, itemType, itemName string, x, y float64, growthStage int) error
	GetFarmItems(ctx context.Context, userID int) ([]FarmItem, error)

	// DeleteFarmItem is idempotent; deleting an unknown id succeeds.
	DeleteFarmItem(ctx context.Context, itemID int) error

	SavePlayerPosition(ctx context.Context, userID int, x, y float64) error
	GetPlayerPosition(ctx context.Context, userID int) (*PlayerPosition, error)

	// UpdateFarmResources overwrites coins and gems; it never increments.
	UpdateFarmResources(ctx context.Context, userID, coins, gems int) error

	// SaveInventorySeeds upserts one row per seed type, last write wins.
	SaveInventorySeeds(ctx context.Context, userID int, seeds map[string]int) error
	GetInventorySeeds(ctx context.Context, userID int) (map[string]int, error)

	SaveChatMessage(ctx context.Context, userID int, text string) error

	// GetChatHistory returns the `limit` most recent messages in
	// chronological order, usernames resolved at read time.
	GetChatHistory(ctx context.Context, limit int) ([]ChatMessage, error)

	GetOnlineUsers(ctx context.Context) ([]OnlineUser, error)
}
