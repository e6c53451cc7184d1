package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"blog-chat/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type brokenStore struct{}

func (brokenStore) FindArticles(context.Context) ([]store.Article, error) {
	return nil, errors.New("down")
}

func (brokenStore) FindAllOnlineUsers(context.Context) ([]store.OnlineUser, error) {
	return nil, errors.New("down")
}

func newTestRouter(s Store) *gin.Engine {
	socket := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	return NewRouter(Options{Store: s, Socket: socket, Timeout: time.Second})
}

func serve(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestListArticles(t *testing.T) {
	mem := store.NewMemory()
	mem.AddArticle(store.Article{Title: "First post", Author: "Alice", Body: "hello"})

	rec := serve(t, newTestRouter(mem), "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Title    string          `json:"title"`
		Articles []store.Article `json:"articles"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Title != "Articles" || len(body.Articles) != 1 || body.Articles[0].Title != "First post" {
		t.Errorf("body = %+v", body)
	}
}

func TestListOnline(t *testing.T) {
	mem := store.NewMemory()
	userID := primitive.NewObjectID()
	_ = mem.InsertOnlineUser(context.Background(), store.OnlineUser{SocketID: "s1", UserID: userID})

	rec := serve(t, newTestRouter(mem), "/chat/online")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Users []onlineUser `json:"users"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Users) != 1 || body.Users[0].SocketID != "s1" || body.Users[0].UserID != userID.Hex() {
		t.Errorf("users = %+v", body.Users)
	}
}

func TestStoreFailures(t *testing.T) {
	router := newTestRouter(brokenStore{})
	for _, path := range []string{"/", "/chat/online"} {
		if rec := serve(t, router, path); rec.Code != http.StatusInternalServerError {
			t.Errorf("GET %s status = %d, want 500", path, rec.Code)
		}
	}
}

func TestChatGroupMountsSocket(t *testing.T) {
	if rec := serve(t, newTestRouter(store.NewMemory()), "/chat/ws"); rec.Code != http.StatusTeapot {
		t.Errorf("GET /chat/ws status = %d, want socket handler's 418", rec.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	router := NewServer(":0", newTestRouter(store.NewMemory())).Handler

	if rec := serve(t, router, "/health"); rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("GET /health = %d %q", rec.Code, rec.Body.String())
	}
	if rec := serve(t, router, "/metrics"); rec.Code != http.StatusOK {
		t.Errorf("GET /metrics status = %d, want 200", rec.Code)
	}
}
