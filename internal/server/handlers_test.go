package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"lexilens/internal/store/sqlite"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	db, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	srv := New(sqlite.NewStore(db), nil, nil)
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, payload any) map[string]any {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("encode payload: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		t.Fatalf("post %s returned %d", url, resp.StatusCode)
	}
	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return decoded
}

func getJSON(t *testing.T, url string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp.StatusCode, decoded
}

func createUser(t *testing.T, ts *httptest.Server, username string) int {
	t.Helper()
	response := postJSON(t, ts.URL+"/api/users", map[string]any{
		"username": username,
		"password": "secret",
	})
	user := response["user"].(map[string]any)
	return int(user["id"].(float64))
}

func TestLanguagesSeeded(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	status, body := getJSON(t, ts.URL+"/api/languages")
	if status != http.StatusOK {
		t.Fatalf("unexpected status: %d", status)
	}
	languages := body["languages"].([]any)
	if len(languages) != 8 {
		t.Fatalf("expected 8 seeded languages, got %d", len(languages))
	}
	first := languages[0].(map[string]any)
	if first["code"] != "es" || first["name"] != "Spanish" {
		t.Fatalf("unexpected first language: %+v", first)
	}
}

func TestScoringNewWordAndRecap(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	userID := createUser(t, ts, "learner")

	wordsURL := fmt.Sprintf("%s/api/users/%d/words", ts.URL, userID)

	first := postJSON(t, wordsURL, map[string]any{
		"word": "Cup", "translation": "taza", "languageId": 1,
	})
	if first["score"].(float64) != 10 || first["level"].(float64) != 1 {
		t.Fatalf("expected 10 points for a new word, got %+v", first)
	}

	// A recap matches case-insensitively and is worth fewer points.
	recap := postJSON(t, wordsURL, map[string]any{
		"word": "cup", "translation": "taza", "languageId": 1,
	})
	if recap["score"].(float64) != 15 {
		t.Fatalf("expected 15 points after a recap, got %+v", recap)
	}

	other := postJSON(t, wordsURL, map[string]any{
		"word": "Dog", "translation": "perro", "languageId": 1,
	})
	if other["score"].(float64) != 25 {
		t.Fatalf("expected 25 points after a second new word, got %+v", other)
	}

	status, body := getJSON(t, fmt.Sprintf("%s/api/users/%d/score", ts.URL, userID))
	if status != http.StatusOK {
		t.Fatalf("unexpected score status: %d", status)
	}
	score := body["userScore"].(map[string]any)
	if score["score"].(float64) != 25 || score["level"].(float64) != 1 {
		t.Fatalf("unexpected persisted score: %+v", score)
	}
}

func TestLevelAdvancesEveryHundredPoints(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	userID := createUser(t, ts, "grinder")

	wordsURL := fmt.Sprintf("%s/api/users/%d/words", ts.URL, userID)
	var last map[string]any
	for i := 0; i < 10; i++ {
		last = postJSON(t, wordsURL, map[string]any{
			"word": fmt.Sprintf("word%d", i), "translation": "x", "languageId": 1,
		})
	}
	if last["score"].(float64) != 100 || last["level"].(float64) != 2 {
		t.Fatalf("expected level 2 at 100 points, got %+v", last)
	}
}

func TestAddWordValidation(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	userID := createUser(t, ts, "strict")

	cases := []struct {
		name    string
		url     string
		payload map[string]any
		want    int
	}{
		{"bad user id", ts.URL + "/api/users/abc/words", map[string]any{"word": "Cup", "languageId": 1}, http.StatusBadRequest},
		{"empty word", fmt.Sprintf("%s/api/users/%d/words", ts.URL, userID), map[string]any{"word": " ", "languageId": 1}, http.StatusBadRequest},
		{"unknown language", fmt.Sprintf("%s/api/users/%d/words", ts.URL, userID), map[string]any{"word": "Cup", "languageId": 99}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		raw, _ := json.Marshal(tc.payload)
		resp, err := http.Post(tc.url, "application/json", bytes.NewReader(raw))
		if err != nil {
			t.Fatalf("%s: post failed: %v", tc.name, err)
		}
		resp.Body.Close()
		if resp.StatusCode != tc.want {
			t.Errorf("%s: got %d, want %d", tc.name, resp.StatusCode, tc.want)
		}
	}
}

func TestDuplicateUsernameRejected(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	createUser(t, ts, "taken")

	raw, _ := json.Marshal(map[string]any{"username": "taken", "password": "x"})
	resp, err := http.Post(ts.URL+"/api/users", "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("post failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate username, got %d", resp.StatusCode)
	}
}

func TestVocabularyListLifecycle(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	userID := createUser(t, ts, "collector")

	word := postJSON(t, fmt.Sprintf("%s/api/users/%d/words", ts.URL, userID), map[string]any{
		"word": "Chair", "translation": "silla", "languageId": 1,
	})
	wordID := int(word["learnedWord"].(map[string]any)["id"].(float64))

	created := postJSON(t, fmt.Sprintf("%s/api/users/%d/vocabulary-lists", ts.URL, userID), map[string]any{
		"name": "Furniture",
	})
	list := created["vocabularyList"].(map[string]any)
	listID := int(list["id"].(float64))
	if list["icon"] != "folder" || list["color"] != "#8F87F1" {
		t.Fatalf("expected default icon and color, got %+v", list)
	}

	postJSON(t, fmt.Sprintf("%s/api/vocabulary-lists/%d/words", ts.URL, listID), map[string]any{
		"wordId": wordID,
	})

	status, body := getJSON(t, fmt.Sprintf("%s/api/vocabulary-lists/%d/words", ts.URL, listID))
	if status != http.StatusOK {
		t.Fatalf("unexpected status: %d", status)
	}
	if words := body["words"].([]any); len(words) != 1 {
		t.Fatalf("expected 1 word in list, got %d", len(words))
	}

	req, _ := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/api/vocabulary-lists/%d/words/%d", ts.URL, listID, wordID), nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected delete status: %d", resp.StatusCode)
	}

	req, _ = http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/api/vocabulary-lists/%d", ts.URL, listID), nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete list failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected delete list status: %d", resp.StatusCode)
	}

	status, _ = getJSON(t, fmt.Sprintf("%s/api/vocabulary-lists/%d", ts.URL, listID))
	if status != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", status)
	}
}
