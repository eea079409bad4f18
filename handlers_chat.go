package main

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
)

const defaultChatHistoryLimit = 50

func chatHistoryHandler(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultChatHistoryLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
				limit = parsed
			}
		}

		messages, err := store.GetChatHistory(r.Context(), limit)
		if err != nil {
			log.Println("chat history failed:", err)
			writeError(w, http.StatusInternalServerError, "Failed to load chat history")
			return
		}

		writeSuccess(w, envelope{"messages": messages})
	}
}

func onlineUsersHandler(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := store.GetOnlineUsers(r.Context())
		if err != nil {
			log.Println("online users failed:", err)
			writeError(w, http.StatusInternalServerError, "Failed to load online users")
			return
		}

		writeSuccess(w, envelope{"users": users})
	}
}

func chatSendHandler(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ChatSendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.Message == "" {
			writeError(w, http.StatusBadRequest, "Message cannot be empty")
			return
		}
		if req.UserID <= 0 {
			writeError(w, http.StatusBadRequest, "userId is required")
			return
		}

		// req.Username is a hint only; history re-resolves the sender's
		// current username by join.
		if err := store.SaveChatMessage(r.Context(), req.UserID, req.Message); err != nil {
			log.Println("chat send failed:", err)
			writeError(w, http.StatusInternalServerError, "Failed to send message")
			return
		}

		writeSuccess(w, envelope{"message": "Message sent"})
	}
}
