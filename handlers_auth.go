package main

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
)

func registerHandler(store Store, limiter *ipRateLimiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !limiter.allow(getClientIP(r)) {
			writeError(w, http.StatusTooManyRequests, "Too many requests, try again later")
			return
		}

		var req RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		// Never trust client-side trimming.
		email := strings.TrimSpace(req.Email)
		password := req.Password

		if email == "" || password == "" {
			writeError(w, http.StatusBadRequest, "Email and password are required")
			return
		}
		if len(password) < minPasswordLength {
			writeError(w, http.StatusBadRequest, "Password must be at least 6 characters")
			return
		}

		if err := store.RegisterUser(r.Context(), email, password); err != nil {
			if err == ErrEmailTaken {
				writeError(w, http.StatusBadRequest, "Email already registered")
				return
			}
			log.Println("register failed:", err)
			writeError(w, http.StatusInternalServerError, "Registration failed")
			return
		}

		log.Printf("registered user email=%s", email)
		writeSuccess(w, envelope{"message": "Registration successful"})
	}
}

func loginHandler(store Store, limiter *ipRateLimiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !limiter.allow(getClientIP(r)) {
			writeError(w, http.StatusTooManyRequests, "Too many requests, try again later")
			return
		}

		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		email := strings.TrimSpace(req.Email)
		password := req.Password

		if email == "" || password == "" {
			writeError(w, http.StatusBadRequest, "Email and password are required")
			return
		}

		userID, err := store.LoginUser(r.Context(), email, password)
		if err != nil {
			if err == ErrInvalidCredentials {
				// Same outcome for unknown email and wrong password.
				writeError(w, http.StatusUnauthorized, "Invalid email or password")
				return
			}
			log.Println("login failed:", err)
			writeError(w, http.StatusInternalServerError, "Login failed")
			return
		}

		token, _, err := store.CreateSession(r.Context(), userID)
		if err != nil {
			log.Println("session create failed:", err)
			writeError(w, http.StatusInternalServerError, "Login failed")
			return
		}

		writeSuccess(w, envelope{
			"userId":       userID,
			"sessionToken": token,
			"message":      "Login successful",
		})
	}
}

func logoutHandler(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LogoutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.SessionToken == "" {
			writeError(w, http.StatusBadRequest, "Session token is required")
			return
		}

		if err := store.Logout(r.Context(), req.SessionToken); err != nil {
			log.Println("logout failed:", err)
			writeError(w, http.StatusInternalServerError, "Logout failed")
			return
		}

		writeSuccess(w, envelope{"message": "Logged out"})
	}
}
