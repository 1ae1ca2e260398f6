// Package server exposes the word-server REST API: languages, learned
// words, scores and vocabulary lists, plus a websocket feed of progress
// events.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"lexilens/internal/domain"
	"lexilens/internal/store/sqlite"
)

const (
	pointsNewWord   = 10
	pointsRecapWord = 5
)

// Server holds the handlers' dependencies.
type Server struct {
	store  *sqlite.Store
	hub    *Hub
	logger *slog.Logger
}

func New(store *sqlite.Store, hub *Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{store: store, hub: hub, logger: logger}
}

// Routes builds the API mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/languages", s.handleLanguages)
	mux.HandleFunc("POST /api/users", s.handleCreateUser)
	mux.HandleFunc("GET /api/users/{userId}/score", s.handleUserScore)
	mux.HandleFunc("GET /api/users/{userId}/words", s.handleLearnedWords)
	mux.HandleFunc("POST /api/users/{userId}/words", s.handleAddLearnedWord)
	mux.HandleFunc("GET /api/users/{userId}/vocabulary-lists", s.handleVocabularyLists)
	mux.HandleFunc("POST /api/users/{userId}/vocabulary-lists", s.handleCreateVocabularyList)
	mux.HandleFunc("GET /api/vocabulary-lists/{listId}", s.handleVocabularyList)
	mux.HandleFunc("PATCH /api/vocabulary-lists/{listId}", s.handleUpdateVocabularyList)
	mux.HandleFunc("DELETE /api/vocabulary-lists/{listId}", s.handleDeleteVocabularyList)
	mux.HandleFunc("GET /api/vocabulary-lists/{listId}/words", s.handleVocabularyListWords)
	mux.HandleFunc("POST /api/vocabulary-lists/{listId}/words", s.handleAddWordToList)
	mux.HandleFunc("DELETE /api/vocabulary-lists/{listId}/words/{wordId}", s.handleRemoveWordFromList)
	if s.hub != nil {
		mux.Handle("GET /ws", s.hub)
	}

	return mux
}

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	languages, err := s.store.Languages()
	if err != nil {
		s.serverError(w, "Failed to fetch languages", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"languages": languages})
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Username) == "" {
		writeError(w, http.StatusBadRequest, "Invalid user data")
		return
	}

	if _, err := s.store.UserByUsername(body.Username); err == nil {
		writeError(w, http.StatusConflict, "Username already exists")
		return
	} else if !errors.Is(err, sqlite.ErrNotFound) {
		s.serverError(w, "Failed to create user", err)
		return
	}

	user, err := s.store.CreateUser(body.Username, body.Password)
	if err != nil {
		s.serverError(w, "Failed to create user", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"user":    user,
		"message": "User created successfully",
	})
}

func (s *Server) handleUserScore(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathInt(w, r, "userId", "Invalid user ID")
	if !ok {
		return
	}

	score, err := s.store.UserScore(userID)
	if errors.Is(err, sqlite.ErrNotFound) {
		writeError(w, http.StatusNotFound, "User score not found")
		return
	}
	if err != nil {
		s.serverError(w, "Failed to fetch user score", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"userScore": score})
}

func (s *Server) handleLearnedWords(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathInt(w, r, "userId", "Invalid user ID")
	if !ok {
		return
	}

	words, err := s.store.LearnedWords(userID)
	if err != nil {
		s.serverError(w, "Failed to fetch learned words", err)
		return
	}
	if words == nil {
		words = []domain.LearnedWord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"learnedWords": words})
}

// handleAddLearnedWord records a word and awards points: a first-time word
// is worth more than a recap of one already learned (compared
// case-insensitively). The word row is stored either way, so recaps keep
// their own timestamps.
func (s *Server) handleAddLearnedWord(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathInt(w, r, "userId", "Invalid user ID")
	if !ok {
		return
	}

	var body struct {
		Word        string `json:"word"`
		Translation string `json:"translation"`
		LanguageID  int    `json:"languageId"`
		LearnedAt   string `json:"learnedAt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid word data")
		return
	}
	if strings.TrimSpace(body.Word) == "" || body.LanguageID <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid word data")
		return
	}
	if _, err := s.store.Language(body.LanguageID); errors.Is(err, sqlite.ErrNotFound) {
		writeError(w, http.StatusBadRequest, "Unknown language")
		return
	} else if err != nil {
		s.serverError(w, "Failed to add learned word", err)
		return
	}
	if body.LearnedAt == "" {
		body.LearnedAt = time.Now().UTC().Format(time.RFC3339)
	}

	isRecap, err := s.store.HasLearnedWord(userID, body.Word)
	if err != nil {
		s.serverError(w, "Failed to add learned word", err)
		return
	}

	learnedWord, err := s.store.AddLearnedWord(domain.LearnedWord{
		UserID:      userID,
		Word:        body.Word,
		Translation: body.Translation,
		LanguageID:  body.LanguageID,
		LearnedAt:   body.LearnedAt,
	})
	if err != nil {
		s.serverError(w, "Failed to add learned word", err)
		return
	}

	points := pointsNewWord
	if isRecap {
		points = pointsRecapWord
	}
	score, err := s.store.IncrementUserScore(userID, points)
	if err != nil {
		s.serverError(w, "Failed to update score", err)
		return
	}

	if s.hub != nil {
		s.hub.BroadcastEvent("word_learned", map[string]any{
			"userId": userID,
			"word":   learnedWord.Word,
			"score":  score.Score,
			"level":  score.Level,
			"recap":  isRecap,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"learnedWord": learnedWord,
		"score":       score.Score,
		"level":       score.Level,
	})
}

func (s *Server) handleVocabularyLists(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathInt(w, r, "userId", "Invalid user ID")
	if !ok {
		return
	}

	lists, err := s.store.VocabularyLists(userID)
	if err != nil {
		s.serverError(w, "Failed to fetch vocabulary lists", err)
		return
	}
	if lists == nil {
		lists = []domain.VocabularyList{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"vocabularyLists": lists})
}

func (s *Server) handleCreateVocabularyList(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathInt(w, r, "userId", "Invalid user ID")
	if !ok {
		return
	}

	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Icon        string `json:"icon"`
		Color       string `json:"color"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Name) == "" {
		writeError(w, http.StatusBadRequest, "Invalid list data")
		return
	}
	if body.Icon == "" {
		body.Icon = "folder"
	}
	if body.Color == "" {
		body.Color = "#8F87F1"
	}

	now := time.Now().UTC().Format(time.RFC3339)
	list, err := s.store.CreateVocabularyList(domain.VocabularyList{
		UserID:      userID,
		Name:        body.Name,
		Description: body.Description,
		Icon:        body.Icon,
		Color:       body.Color,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		s.serverError(w, "Failed to create vocabulary list", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success":        true,
		"vocabularyList": list,
	})
}

func (s *Server) handleVocabularyList(w http.ResponseWriter, r *http.Request) {
	listID, ok := pathInt(w, r, "listId", "Invalid list ID")
	if !ok {
		return
	}

	list, err := s.store.VocabularyList(listID)
	if errors.Is(err, sqlite.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Vocabulary list not found")
		return
	}
	if err != nil {
		s.serverError(w, "Failed to fetch vocabulary list", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"list": list})
}

func (s *Server) handleUpdateVocabularyList(w http.ResponseWriter, r *http.Request) {
	listID, ok := pathInt(w, r, "listId", "Invalid list ID")
	if !ok {
		return
	}

	var updates domain.VocabularyList
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid list data")
		return
	}
	updates.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

	list, err := s.store.UpdateVocabularyList(listID, updates)
	if errors.Is(err, sqlite.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Vocabulary list not found")
		return
	}
	if err != nil {
		s.serverError(w, "Failed to update vocabulary list", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"vocabularyList": list,
	})
}

func (s *Server) handleDeleteVocabularyList(w http.ResponseWriter, r *http.Request) {
	listID, ok := pathInt(w, r, "listId", "Invalid list ID")
	if !ok {
		return
	}

	deleted, err := s.store.DeleteVocabularyList(listID)
	if err != nil {
		s.serverError(w, "Failed to delete vocabulary list", err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "Vocabulary list not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Vocabulary list deleted successfully",
	})
}

func (s *Server) handleVocabularyListWords(w http.ResponseWriter, r *http.Request) {
	listID, ok := pathInt(w, r, "listId", "Invalid list ID")
	if !ok {
		return
	}

	words, err := s.store.VocabularyListWords(listID)
	if err != nil {
		s.serverError(w, "Failed to fetch vocabulary list words", err)
		return
	}
	if words == nil {
		words = []domain.VocabularyListWord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"words": words})
}

func (s *Server) handleAddWordToList(w http.ResponseWriter, r *http.Request) {
	listID, ok := pathInt(w, r, "listId", "Invalid list ID")
	if !ok {
		return
	}

	var body struct {
		WordID int    `json:"wordId"`
		Notes  string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.WordID <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid word ID")
		return
	}

	listWord, err := s.store.AddWordToVocabularyList(domain.VocabularyListWord{
		ListID:  listID,
		WordID:  body.WordID,
		AddedAt: time.Now().UTC().Format(time.RFC3339),
		Notes:   body.Notes,
	})
	if err != nil {
		s.serverError(w, "Failed to add word to vocabulary list", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success":  true,
		"listWord": listWord,
	})
}

func (s *Server) handleRemoveWordFromList(w http.ResponseWriter, r *http.Request) {
	listID, ok := pathInt(w, r, "listId", "Invalid list ID")
	if !ok {
		return
	}
	wordID, ok := pathInt(w, r, "wordId", "Invalid word ID")
	if !ok {
		return
	}

	removed, err := s.store.RemoveWordFromVocabularyList(listID, wordID)
	if err != nil {
		s.serverError(w, "Failed to remove word from vocabulary list", err)
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "Word not found in vocabulary list")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Word removed from vocabulary list",
	})
}

func (s *Server) serverError(w http.ResponseWriter, message string, err error) {
	s.logger.Error(message, "error", err)
	writeError(w, http.StatusInternalServerError, message)
}

func pathInt(w http.ResponseWriter, r *http.Request, key, message string) (int, bool) {
	value, err := strconv.Atoi(r.PathValue(key))
	if err != nil || value <= 0 {
		writeError(w, http.StatusBadRequest, message)
		return 0, false
	}
	return value, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
