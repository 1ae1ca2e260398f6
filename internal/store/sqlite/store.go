package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"lexilens/internal/domain"
)

// ErrNotFound marks a missing row across all repositories.
var ErrNotFound = errors.New("not found")

// Store groups all word-server persistence behind one handle.
type Store struct {
	db *DB
}

func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// Languages returns the catalog in insertion order.
func (s *Store) Languages() ([]domain.Language, error) {
	rows, err := s.db.Conn().Query(`SELECT id, name, code, word_count FROM languages ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query languages: %w", err)
	}
	defer rows.Close()

	var languages []domain.Language
	for rows.Next() {
		var lang domain.Language
		if err := rows.Scan(&lang.ID, &lang.Name, &lang.Code, &lang.WordCount); err != nil {
			return nil, fmt.Errorf("failed to scan language: %w", err)
		}
		languages = append(languages, lang)
	}
	return languages, rows.Err()
}

func (s *Store) Language(id int) (domain.Language, error) {
	var lang domain.Language
	err := s.db.Conn().QueryRow(
		`SELECT id, name, code, word_count FROM languages WHERE id = ?`, id,
	).Scan(&lang.ID, &lang.Name, &lang.Code, &lang.WordCount)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Language{}, ErrNotFound
	}
	if err != nil {
		return domain.Language{}, fmt.Errorf("failed to query language: %w", err)
	}
	return lang, nil
}

// CreateUser inserts the user and their initial zero score.
func (s *Store) CreateUser(username, password string) (domain.User, error) {
	result, err := s.db.Conn().Exec(
		`INSERT INTO users (username, password) VALUES (?, ?)`, username, password,
	)
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return domain.User{}, err
	}
	if _, err := s.db.Conn().Exec(
		`INSERT INTO user_scores (user_id, score, level) VALUES (?, 0, 1)`, id,
	); err != nil {
		return domain.User{}, fmt.Errorf("failed to insert initial score: %w", err)
	}
	return domain.User{ID: int(id), Username: username}, nil
}

func (s *Store) UserByUsername(username string) (domain.User, error) {
	var user domain.User
	err := s.db.Conn().QueryRow(
		`SELECT id, username, password FROM users WHERE username = ?`, username,
	).Scan(&user.ID, &user.Username, &user.Password)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, ErrNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to query user: %w", err)
	}
	return user, nil
}

// LearnedWords returns the user's vocabulary, newest first.
func (s *Store) LearnedWords(userID int) ([]domain.LearnedWord, error) {
	rows, err := s.db.Conn().Query(`
		SELECT id, user_id, word, translation, language_id, learned_at
		FROM learned_words WHERE user_id = ? ORDER BY id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query learned words: %w", err)
	}
	defer rows.Close()

	var words []domain.LearnedWord
	for rows.Next() {
		var word domain.LearnedWord
		if err := rows.Scan(&word.ID, &word.UserID, &word.Word, &word.Translation, &word.LanguageID, &word.LearnedAt); err != nil {
			return nil, fmt.Errorf("failed to scan learned word: %w", err)
		}
		words = append(words, word)
	}
	return words, rows.Err()
}

// HasLearnedWord reports whether the user already learned word, compared
// case-insensitively.
func (s *Store) HasLearnedWord(userID int, word string) (bool, error) {
	var count int
	err := s.db.Conn().QueryRow(
		`SELECT COUNT(*) FROM learned_words WHERE user_id = ? AND LOWER(word) = LOWER(?)`,
		userID, word,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to count learned words: %w", err)
	}
	return count > 0, nil
}

func (s *Store) AddLearnedWord(word domain.LearnedWord) (domain.LearnedWord, error) {
	result, err := s.db.Conn().Exec(`
		INSERT INTO learned_words (user_id, word, translation, language_id, learned_at)
		VALUES (?, ?, ?, ?, ?)
	`, word.UserID, word.Word, word.Translation, word.LanguageID, word.LearnedAt)
	if err != nil {
		return domain.LearnedWord{}, fmt.Errorf("failed to insert learned word: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return domain.LearnedWord{}, err
	}
	word.ID = int(id)
	return word, nil
}

func (s *Store) UserScore(userID int) (domain.UserScore, error) {
	var score domain.UserScore
	err := s.db.Conn().QueryRow(
		`SELECT id, user_id, score, level FROM user_scores WHERE user_id = ?`, userID,
	).Scan(&score.ID, &score.UserID, &score.Score, &score.Level)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.UserScore{}, ErrNotFound
	}
	if err != nil {
		return domain.UserScore{}, fmt.Errorf("failed to query user score: %w", err)
	}
	return score, nil
}

// IncrementUserScore adds points and recomputes the level, one level per
// 100 points. A user without a score row gets one.
func (s *Store) IncrementUserScore(userID int, points int) (domain.UserScore, error) {
	current, err := s.UserScore(userID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return domain.UserScore{}, err
	}

	newScore := current.Score + points
	level := newScore/100 + 1

	if errors.Is(err, ErrNotFound) {
		result, err := s.db.Conn().Exec(
			`INSERT INTO user_scores (user_id, score, level) VALUES (?, ?, ?)`,
			userID, newScore, level,
		)
		if err != nil {
			return domain.UserScore{}, fmt.Errorf("failed to insert score: %w", err)
		}
		id, _ := result.LastInsertId()
		return domain.UserScore{ID: int(id), UserID: userID, Score: newScore, Level: level}, nil
	}

	if _, err := s.db.Conn().Exec(
		`UPDATE user_scores SET score = ?, level = ? WHERE user_id = ?`,
		newScore, level, userID,
	); err != nil {
		return domain.UserScore{}, fmt.Errorf("failed to update score: %w", err)
	}
	current.Score = newScore
	current.Level = level
	return current, nil
}

func (s *Store) VocabularyLists(userID int) ([]domain.VocabularyList, error) {
	rows, err := s.db.Conn().Query(`
		SELECT id, user_id, name, COALESCE(description, ''), icon, color, created_at, updated_at
		FROM vocabulary_lists WHERE user_id = ? ORDER BY id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query vocabulary lists: %w", err)
	}
	defer rows.Close()

	var lists []domain.VocabularyList
	for rows.Next() {
		var list domain.VocabularyList
		if err := rows.Scan(&list.ID, &list.UserID, &list.Name, &list.Description, &list.Icon, &list.Color, &list.CreatedAt, &list.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan vocabulary list: %w", err)
		}
		lists = append(lists, list)
	}
	return lists, rows.Err()
}

func (s *Store) VocabularyList(id int) (domain.VocabularyList, error) {
	var list domain.VocabularyList
	err := s.db.Conn().QueryRow(`
		SELECT id, user_id, name, COALESCE(description, ''), icon, color, created_at, updated_at
		FROM vocabulary_lists WHERE id = ?
	`, id).Scan(&list.ID, &list.UserID, &list.Name, &list.Description, &list.Icon, &list.Color, &list.CreatedAt, &list.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.VocabularyList{}, ErrNotFound
	}
	if err != nil {
		return domain.VocabularyList{}, fmt.Errorf("failed to query vocabulary list: %w", err)
	}
	return list, nil
}

func (s *Store) CreateVocabularyList(list domain.VocabularyList) (domain.VocabularyList, error) {
	result, err := s.db.Conn().Exec(`
		INSERT INTO vocabulary_lists (user_id, name, description, icon, color, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, list.UserID, list.Name, list.Description, list.Icon, list.Color, list.CreatedAt, list.UpdatedAt)
	if err != nil {
		return domain.VocabularyList{}, fmt.Errorf("failed to insert vocabulary list: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return domain.VocabularyList{}, err
	}
	list.ID = int(id)
	return list, nil
}

// UpdateVocabularyList applies non-empty fields from updates.
func (s *Store) UpdateVocabularyList(id int, updates domain.VocabularyList) (domain.VocabularyList, error) {
	existing, err := s.VocabularyList(id)
	if err != nil {
		return domain.VocabularyList{}, err
	}
	if updates.Name != "" {
		existing.Name = updates.Name
	}
	if updates.Description != "" {
		existing.Description = updates.Description
	}
	if updates.Icon != "" {
		existing.Icon = updates.Icon
	}
	if updates.Color != "" {
		existing.Color = updates.Color
	}
	existing.UpdatedAt = updates.UpdatedAt

	if _, err := s.db.Conn().Exec(`
		UPDATE vocabulary_lists SET name = ?, description = ?, icon = ?, color = ?, updated_at = ?
		WHERE id = ?
	`, existing.Name, existing.Description, existing.Icon, existing.Color, existing.UpdatedAt, id); err != nil {
		return domain.VocabularyList{}, fmt.Errorf("failed to update vocabulary list: %w", err)
	}
	return existing, nil
}

func (s *Store) DeleteVocabularyList(id int) (bool, error) {
	result, err := s.db.Conn().Exec(`DELETE FROM vocabulary_lists WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete vocabulary list: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *Store) VocabularyListWords(listID int) ([]domain.VocabularyListWord, error) {
	rows, err := s.db.Conn().Query(`
		SELECT id, list_id, word_id, added_at, COALESCE(notes, '')
		FROM vocabulary_list_words WHERE list_id = ? ORDER BY id
	`, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to query list words: %w", err)
	}
	defer rows.Close()

	var words []domain.VocabularyListWord
	for rows.Next() {
		var word domain.VocabularyListWord
		if err := rows.Scan(&word.ID, &word.ListID, &word.WordID, &word.AddedAt, &word.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan list word: %w", err)
		}
		words = append(words, word)
	}
	return words, rows.Err()
}

func (s *Store) AddWordToVocabularyList(word domain.VocabularyListWord) (domain.VocabularyListWord, error) {
	result, err := s.db.Conn().Exec(`
		INSERT INTO vocabulary_list_words (list_id, word_id, added_at, notes)
		VALUES (?, ?, ?, ?)
	`, word.ListID, word.WordID, word.AddedAt, word.Notes)
	if err != nil {
		return domain.VocabularyListWord{}, fmt.Errorf("failed to insert list word: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return domain.VocabularyListWord{}, err
	}
	word.ID = int(id)
	return word, nil
}

func (s *Store) RemoveWordFromVocabularyList(listID, wordID int) (bool, error) {
	result, err := s.db.Conn().Exec(
		`DELETE FROM vocabulary_list_words WHERE list_id = ? AND word_id = ?`, listID, wordID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete list word: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
