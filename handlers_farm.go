package main

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
)

func pathID(r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(r.PathValue(name))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func getFarmHandler(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := pathID(r, "userId")
		if !ok {
			writeError(w, http.StatusBadRequest, "Invalid user id")
			return
		}

		farm, err := store.GetFarm(r.Context(), userID)
		if err == ErrNotFound {
			writeError(w, http.StatusNotFound, "Farm not found")
			return
		}
		if err != nil {
			log.Println("get farm failed:", err)
			writeError(w, http.StatusInternalServerError, "Failed to load farm")
			return
		}

		writeSuccess(w, envelope{"farm": farm})
	}
}

func saveFarmItemHandler(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req FarmItemRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.UserID <= 0 || req.ItemType == "" || req.ItemName == "" {
			writeError(w, http.StatusBadRequest, "userId, itemType and itemName are required")
			return
		}

		err := store.SaveFarmItem(r.Context(), req.UserID, req.ItemType, req.ItemName, req.PositionX, req.PositionY, req.GrowthStage)
		if err == ErrNotFound {
			writeError(w, http.StatusNotFound, "Farm not found")
			return
		}
		if err != nil {
			log.Println("save farm item failed:", err)
			writeError(w, http.StatusInternalServerError, "Failed to save farm item")
			return
		}

		writeSuccess(w, envelope{"message": "Farm item saved"})
	}
}

func getFarmItemsHandler(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := pathID(r, "userId")
		if !ok {
			writeError(w, http.StatusBadRequest, "Invalid user id")
			return
		}

		items, err := store.GetFarmItems(r.Context(), userID)
		if err != nil {
			log.Println("get farm items failed:", err)
			writeError(w, http.StatusInternalServerError, "Failed to load farm items")
			return
		}

		writeSuccess(w, envelope{"items": items})
	}
}

func deleteFarmItemHandler(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, ok := pathID(r, "itemId")
		if !ok {
			writeError(w, http.StatusBadRequest, "Invalid item id")
			return
		}

		if err := store.DeleteFarmItem(r.Context(), itemID); err != nil {
			log.Println("delete farm item failed:", err)
			writeError(w, http.StatusInternalServerError, "Failed to delete farm item")
			return
		}

		writeSuccess(w, envelope{"message": "Farm item deleted"})
	}
}

func savePlayerPositionHandler(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PlayerPositionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.UserID <= 0 {
			writeError(w, http.StatusBadRequest, "userId is required")
			return
		}

		if err := store.SavePlayerPosition(r.Context(), req.UserID, req.PositionX, req.PositionY); err != nil {
			log.Println("save player position failed:", err)
			writeError(w, http.StatusInternalServerError, "Failed to save player position")
			return
		}

		writeSuccess(w, envelope{"message": "Player position saved"})
	}
}

func getPlayerPositionHandler(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := pathID(r, "userId")
		if !ok {
			writeError(w, http.StatusBadRequest, "Invalid user id")
			return
		}

		position, err := store.GetPlayerPosition(r.Context(), userID)
		if err == ErrNotFound {
			writeError(w, http.StatusNotFound, "Player position not found")
			return
		}
		if err != nil {
			log.Println("get player position failed:", err)
			writeError(w, http.StatusInternalServerError, "Failed to load player position")
			return
		}

		writeSuccess(w, envelope{"position": position})
	}
}

func updateResourcesHandler(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ResourcesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.UserID <= 0 {
			writeError(w, http.StatusBadRequest, "userId is required")
			return
		}

		// Overwrite, not increment; the client owns the running totals.
		err := store.UpdateFarmResources(r.Context(), req.UserID, req.Coins, req.Gems)
		if err == ErrNotFound {
			writeError(w, http.StatusNotFound, "Farm not found")
			return
		}
		if err != nil {
			log.Println("update resources failed:", err)
			writeError(w, http.StatusInternalServerError, "Failed to update resources")
			return
		}

		writeSuccess(w, envelope{"message": "Resources updated"})
	}
}

func saveInventoryHandler(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req InventoryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.UserID <= 0 || req.Seeds == nil {
			writeError(w, http.StatusBadRequest, "userId and seeds are required")
			return
		}

		seeds := make(map[string]int, len(req.Seeds))
		for _, seed := range req.Seeds {
			seeds[seed.SeedType] = seed.Quantity
		}

		if err := store.SaveInventorySeeds(r.Context(), req.UserID, seeds); err != nil {
			log.Println("save inventory failed:", err)
			writeError(w, http.StatusInternalServerError, "Failed to save inventory")
			return
		}

		writeSuccess(w, envelope{"message": "Inventory saved"})
	}
}

func getInventoryHandler(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := pathID(r, "userId")
		if !ok {
			writeError(w, http.StatusBadRequest, "Invalid user id")
			return
		}

		seeds, err := store.GetInventorySeeds(r.Context(), userID)
		if err != nil {
			log.Println("get inventory failed:", err)
			writeError(w, http.StatusInternalServerError, "Failed to load inventory")
			return
		}

		writeSuccess(w, envelope{"seeds": seeds})
	}
}
