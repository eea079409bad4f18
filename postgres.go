package main

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/lib/pq"
)

// PostgresStore implements Store over a *sql.DB pool.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func isUniqueViolation(err error) bool {
	pqErr, ok := err.(*pq.Error)
	return ok && pqErr.Code == "23505"
}

func (s *PostgresStore) RegisterUser(ctx context.Context, email, password string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM users WHERE lower(email) = lower($1))
	`, email).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return ErrEmailTaken
	}

	hash, err := hashPassword(password)
	if err != nil {
		return err
	}

	var userID int
	err = tx.QueryRowContext(ctx, `
		INSERT INTO users (email, password_hash, username, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING user_id
	`, email, hash, localPart(email)).Scan(&userID)
	if err != nil {
		// Two registrations can pass the pre-check at once; the unique
		// index on lower(email) decides the winner.
		if isUniqueViolation(err) {
			return ErrEmailTaken
		}
		return err
	}

	if err := createFarmTx(ctx, tx, userID); err != nil {
		return err
	}

	return tx.Commit()
}

// createFarmTx gives a user their default farm. Idempotent so it doubles as a
// self-healing pass for a user row that somehow lost its farm.
func createFarmTx(ctx context.Context, tx *sql.Tx, userID int) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO farms (user_id, farm_name, level, coins, gems)
		VALUES ($1, 'My Farm', 1, 1000, 50)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	return err
}

func (s *PostgresStore) LoginUser(ctx context.Context, email, password string) (int, error) {
	var userID int
	var hash string
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, password_hash
		FROM users
		WHERE lower(email) = lower($1)
	`, email).Scan(&userID, &hash)
	if err == sql.ErrNoRows {
		return 0, ErrInvalidCredentials
	}
	if err != nil {
		return 0, err
	}

	if !verifyPassword(hash, password) {
		return 0, ErrInvalidCredentials
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE users
		SET last_login = NOW(), is_online = TRUE
		WHERE user_id = $1
	`, userID)
	if err != nil {
		return 0, err
	}

	return userID, nil
}

func (s *PostgresStore) CreateSession(ctx context.Context, userID int) (string, time.Time, error) {
	token, err := randomToken(24)
	if err != nil {
		return "", time.Time{}, err
	}

	expiresAt := time.Now().UTC().Add(sessionTTL)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, user_id, expires_at)
		VALUES ($1, $2, $3)
	`, token, userID, expiresAt)
	if err != nil {
		return "", time.Time{}, err
	}

	return token, expiresAt, nil
}

func (s *PostgresStore) Logout(ctx context.Context, sessionToken string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET is_online = FALSE
		WHERE user_id = (SELECT user_id FROM sessions WHERE session_id = $1)
	`, sessionToken)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		DELETE FROM sessions
		WHERE session_id = $1
	`, sessionToken)
	return err
}

func (s *PostgresStore) GetFarm(ctx context.Context, userID int) (*Farm, error) {
	var farm Farm
	err := s.db.QueryRowContext(ctx, `
		SELECT farm_id, farm_name, level, coins, gems
		FROM farms
		WHERE user_id = $1
	`, userID).Scan(&farm.FarmID, &farm.FarmName, &farm.Level, &farm.Coins, &farm.Gems)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &farm, nil
}

func (s *PostgresStore) farmIDByUserID(ctx context.Context, userID int) (int, error) {
	var farmID int
	err := s.db.QueryRowContext(ctx, `
		SELECT farm_id FROM farms WHERE user_id = $1
	`, userID).Scan(&farmID)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return farmID, nil
}

func (s *PostgresStore) SaveFarmItem(ctx context.Context, userID int, itemType, itemName string, x, y float64, growthStage int) error {
	farmID, err := s.farmIDByUserID(ctx, userID)
	if err != nil {
		return err
	}

	// Keyed by grid slot; type and name are immutable once planted.
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO farm_items (farm_id, item_type, item_name, position_x, position_y, growth_stage, planted_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (farm_id, position_x, position_y) DO UPDATE
		SET growth_stage = EXCLUDED.growth_stage,
			position_x = EXCLUDED.position_x,
			position_y = EXCLUDED.position_y
	`, farmID, itemType, itemName, x, y, growthStage)
	return err
}

func (s *PostgresStore) GetFarmItems(ctx context.Context, userID int) ([]FarmItem, error) {
	farmID, err := s.farmIDByUserID(ctx, userID)
	if err == ErrNotFound {
		return []FarmItem{}, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT item_id, item_type, item_name, position_x, position_y, growth_stage, planted_at
		FROM farm_items
		WHERE farm_id = $1
	`, farmID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []FarmItem{}
	for rows.Next() {
		var item FarmItem
		var plantedAt time.Time
		if err := rows.Scan(&item.ItemID, &item.ItemType, &item.ItemName, &item.PositionX, &item.PositionY, &item.GrowthStage, &plantedAt); err != nil {
			return nil, err
		}
		item.PlantedAt = plantedAt.Format(timeFormat)
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *PostgresStore) DeleteFarmItem(ctx context.Context, itemID int) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM farm_items WHERE item_id = $1
	`, itemID)
	return err
}

func (s *PostgresStore) SavePlayerPosition(ctx context.Context, userID int, x, y float64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET position_x = $2, position_y = $3, last_saved_at = NOW()
		WHERE user_id = $1
	`, userID, x, y)
	return err
}

func (s *PostgresStore) GetPlayerPosition(ctx context.Context, userID int) (*PlayerPosition, error) {
	var pos PlayerPosition
	var lastSavedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT position_x, position_y, last_saved_at
		FROM users
		WHERE user_id = $1
	`, userID).Scan(&pos.PositionX, &pos.PositionY, &lastSavedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if lastSavedAt.Valid {
		pos.LastSavedAt = lastSavedAt.Time.Format(timeFormat)
	}
	return &pos, nil
}

func (s *PostgresStore) UpdateFarmResources(ctx context.Context, userID, coins, gems int) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE farms
		SET coins = $2, gems = $3
		WHERE user_id = $1
	`, userID, coins, gems)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SaveInventorySeeds(ctx context.Context, userID int, seeds map[string]int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for seedType, quantity := range seeds {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO inventory_seeds (user_id, seed_type, quantity, updated_at)
			VALUES ($1, $2, $3, NOW())
			ON CONFLICT (user_id, seed_type) DO UPDATE
			SET quantity = EXCLUDED.quantity, updated_at = NOW()
		`, userID, seedType, quantity)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *PostgresStore) GetInventorySeeds(ctx context.Context, userID int) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seed_type, quantity
		FROM inventory_seeds
		WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seeds := map[string]int{}
	for rows.Next() {
		var seedType string
		var quantity int
		if err := rows.Scan(&seedType, &quantity); err != nil {
			return nil, err
		}
		seeds[seedType] = quantity
	}
	return seeds, rows.Err()
}

func (s *PostgresStore) SaveChatMessage(ctx context.Context, userID int, text string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_messages (sender_id, message_text, message_type, sent_at)
		VALUES ($1, $2, 'global', NOW())
	`, userID, text)
	return err
}

func (s *PostgresStore) GetChatHistory(ctx context.Context, limit int) ([]ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cm.message_id, cm.sender_id, COALESCE(u.username, ''), cm.message_text, cm.sent_at
		FROM chat_messages cm
		JOIN users u ON cm.sender_id = u.user_id
		ORDER BY cm.sent_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []ChatMessage{}
	for rows.Next() {
		var msg ChatMessage
		var sentAt time.Time
		if err := rows.Scan(&msg.MessageID, &msg.SenderID, &msg.Username, &msg.MessageText, &sentAt); err != nil {
			return nil, err
		}
		if msg.Username == "" {
			msg.Username = "User" + strconv.Itoa(msg.SenderID)
		}
		msg.SentAt = sentAt.Format(timeFormat)
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Query fetched newest-first; the client wants oldest-first.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (s *PostgresStore) GetOnlineUsers(ctx context.Context) ([]OnlineUser, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, username, email
		FROM users
		WHERE is_online = TRUE
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []OnlineUser{}
	for rows.Next() {
		var user OnlineUser
		if err := rows.Scan(&user.UserID, &user.Username, &user.Email); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}
