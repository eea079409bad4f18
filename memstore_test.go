package main

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"
)

// memStore is the in-memory Store double the handler and semantics tests run
// against. It mirrors the database constraints: one user per normalized
// email, one farm per user, one item per farm grid slot, one seed row per
// (user, seed type).
type memStore struct {
	mu         sync.Mutex
	nextUserID int
	nextFarmID int
	nextItemID int
	nextMsgID  int

	users    map[int]*memUser
	farms    map[int]*Farm // keyed by user id
	items    map[int][]*memFarmItem
	seeds    map[int]map[string]int
	messages []memChatMessage
	sessions map[string]int
}

type memUser struct {
	id           int
	email        string
	passwordHash string
	username     string
	isOnline     bool
	lastLogin    time.Time
	posX, posY   float64
	lastSavedAt  time.Time
	positionSet  bool
}

type memFarmItem struct {
	id          int
	itemType    string
	itemName    string
	x, y        float64
	growthStage int
	plantedAt   time.Time
}

type memChatMessage struct {
	id       int
	senderID int
	text     string
	sentAt   time.Time
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[int]*memUser),
		farms:    make(map[int]*Farm),
		items:    make(map[int][]*memFarmItem),
		seeds:    make(map[int]map[string]int),
		sessions: make(map[string]int),
	}
}

func (m *memStore) findByEmail(email string) *memUser {
	for _, u := range m.users {
		if strings.EqualFold(u.email, email) {
			return u
		}
	}
	return nil
}

func (m *memStore) RegisterUser(ctx context.Context, email, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.findByEmail(email) != nil {
		return ErrEmailTaken
	}

	hash, err := hashPassword(password)
	if err != nil {
		return err
	}

	m.nextUserID++
	user := &memUser{
		id:           m.nextUserID,
		email:        email,
		passwordHash: hash,
		username:     localPart(email),
	}
	m.users[user.id] = user
	m.ensureFarm(user.id)
	return nil
}

// ensureFarm is the idempotent farm-creation step: a second call for the
// same user is a no-op.
func (m *memStore) ensureFarm(userID int) {
	if _, ok := m.farms[userID]; ok {
		return
	}
	m.nextFarmID++
	m.farms[userID] = &Farm{
		FarmID:   m.nextFarmID,
		FarmName: "My Farm",
		Level:    1,
		Coins:    1000,
		Gems:     50,
	}
}

func (m *memStore) LoginUser(ctx context.Context, email, password string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user := m.findByEmail(email)
	if user == nil {
		return 0, ErrInvalidCredentials
	}
	if !verifyPassword(user.passwordHash, password) {
		return 0, ErrInvalidCredentials
	}
	user.isOnline = true
	user.lastLogin = time.Now()
	return user.id, nil
}

func (m *memStore) CreateSession(ctx context.Context, userID int) (string, time.Time, error) {
	token, err := randomToken(24)
	if err != nil {
		return "", time.Time{}, err
	}
	m.mu.Lock()
	m.sessions[token] = userID
	m.mu.Unlock()
	return token, time.Now().UTC().Add(sessionTTL), nil
}

func (m *memStore) Logout(ctx context.Context, sessionToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if userID, ok := m.sessions[sessionToken]; ok {
		if user, ok := m.users[userID]; ok {
			user.isOnline = false
		}
		delete(m.sessions, sessionToken)
	}
	return nil
}

func (m *memStore) GetFarm(ctx context.Context, userID int) (*Farm, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	farm, ok := m.farms[userID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *farm
	return &copied, nil
}

func (m *memStore) SaveFarmItem(ctx context.Context, userID int, itemType, itemName string, x, y float64, growthStage int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	farm, ok := m.farms[userID]
	if !ok {
		return ErrNotFound
	}

	for _, item := range m.items[farm.FarmID] {
		if item.x == x && item.y == y {
			item.growthStage = growthStage
			return nil
		}
	}

	m.nextItemID++
	m.items[farm.FarmID] = append(m.items[farm.FarmID], &memFarmItem{
		id:          m.nextItemID,
		itemType:    itemType,
		itemName:    itemName,
		x:           x,
		y:           y,
		growthStage: growthStage,
		plantedAt:   time.Now(),
	})
	return nil
}

func (m *memStore) GetFarmItems(ctx context.Context, userID int) ([]FarmItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := []FarmItem{}
	farm, ok := m.farms[userID]
	if !ok {
		return items, nil
	}
	for _, item := range m.items[farm.FarmID] {
		items = append(items, FarmItem{
			ItemID:      item.id,
			ItemType:    item.itemType,
			ItemName:    item.itemName,
			PositionX:   item.x,
			PositionY:   item.y,
			GrowthStage: item.growthStage,
			PlantedAt:   item.plantedAt.Format(timeFormat),
		})
	}
	return items, nil
}

func (m *memStore) DeleteFarmItem(ctx context.Context, itemID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for farmID, items := range m.items {
		kept := items[:0]
		for _, item := range items {
			if item.id != itemID {
				kept = append(kept, item)
			}
		}
		m.items[farmID] = kept
	}
	return nil
}

func (m *memStore) SavePlayerPosition(ctx context.Context, userID int, x, y float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user, ok := m.users[userID]; ok {
		user.posX = x
		user.posY = y
		user.lastSavedAt = time.Now()
		user.positionSet = true
	}
	return nil
}

func (m *memStore) GetPlayerPosition(ctx context.Context, userID int) (*PlayerPosition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	pos := &PlayerPosition{PositionX: user.posX, PositionY: user.posY}
	if user.positionSet {
		pos.LastSavedAt = user.lastSavedAt.Format(timeFormat)
	}
	return pos, nil
}

func (m *memStore) UpdateFarmResources(ctx context.Context, userID, coins, gems int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	farm, ok := m.farms[userID]
	if !ok {
		return ErrNotFound
	}
	farm.Coins = coins
	farm.Gems = gems
	return nil
}

func (m *memStore) SaveInventorySeeds(ctx context.Context, userID int, seeds map[string]int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seeds[userID] == nil {
		m.seeds[userID] = make(map[string]int)
	}
	for seedType, quantity := range seeds {
		m.seeds[userID][seedType] = quantity
	}
	return nil
}

func (m *memStore) GetInventorySeeds(ctx context.Context, userID int) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seeds := map[string]int{}
	for seedType, quantity := range m.seeds[userID] {
		seeds[seedType] = quantity
	}
	return seeds, nil
}

func (m *memStore) SaveChatMessage(ctx context.Context, userID int, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextMsgID++
	m.messages = append(m.messages, memChatMessage{
		id:       m.nextMsgID,
		senderID: userID,
		text:     text,
		sentAt:   time.Now(),
	})
	return nil
}

func (m *memStore) GetChatHistory(ctx context.Context, limit int) ([]ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := len(m.messages) - limit
	if start < 0 {
		start = 0
	}

	messages := []ChatMessage{}
	for _, msg := range m.messages[start:] {
		username := "User" + strconv.Itoa(msg.senderID)
		if user, ok := m.users[msg.senderID]; ok {
			username = user.username
		}
		messages = append(messages, ChatMessage{
			MessageID:   msg.id,
			SenderID:    msg.senderID,
			Username:    username,
			MessageText: msg.text,
			SentAt:      msg.sentAt.Format(timeFormat),
		})
	}
	return messages, nil
}

func (m *memStore) GetOnlineUsers(ctx context.Context) ([]OnlineUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := []OnlineUser{}
	for _, user := range m.users {
		if user.isOnline {
			users = append(users, OnlineUser{
				UserID:   user.id,
				Username: user.username,
				Email:    user.email,
			})
		}
	}
	return users, nil
}
