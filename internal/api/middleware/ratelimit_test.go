package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func post(handler http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiter_FailOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	handler := NewRateLimiter(client, 1, time.Minute, testLogger()).Limit("login")(okHandler())
	for i := 0; i < 3; i++ {
		if rec := post(handler, "10.0.0.1:5000"); rec.Code != http.StatusOK {
			t.Fatalf("запрос %d: статус %d, при недоступном Redis запрос должен проходить", i+1, rec.Code)
		}
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		remote string
		want   string
	}{
		{"10.0.0.1:5000", "10.0.0.1"},
		{"[::1]:8080", "::1"},
		{"no-port", "no-port"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tt.remote
		if got := clientIP(req); got != tt.want {
			t.Errorf("clientIP(%q) = %q, ожидалось %q", tt.remote, got, tt.want)
		}
	}
}

// setupRedis запускает Redis в Docker-контейнере через testcontainers.
func setupRedis(t *testing.T) *redis.Client {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "docker.io/redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Не удалось запустить Redis контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Не удалось получить адрес Redis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRateLimiter_Redis(t *testing.T) {
	client := setupRedis(t)
	handler := NewRateLimiter(client, 2, time.Minute, testLogger()).Limit("login")(okHandler())

	for i := 0; i < 2; i++ {
		if rec := post(handler, "10.0.0.1:5000"); rec.Code != http.StatusOK {
			t.Fatalf("запрос %d: статус %d", i+1, rec.Code)
		}
	}

	rec := post(handler, "10.0.0.1:5001")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("третий запрос: статус %d, ожидался 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("нет заголовка Retry-After")
	}

	// другой IP считается отдельно
	if rec := post(handler, "10.0.0.2:5000"); rec.Code != http.StatusOK {
		t.Errorf("другой IP: статус %d", rec.Code)
	}

	ttl, err := client.TTL(context.Background(), "rate_limit:login:10.0.0.1").Result()
	if err != nil || ttl <= 0 || ttl > time.Minute {
		t.Errorf("TTL ключа = %v, %v", ttl, err)
	}
}

func TestRateLimiter_RestoresMissingExpiry(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()
	key := "rate_limit:login:10.0.0.3"

	// Счётчик без срока, оставшийся после сбоя EXPIRE
	if err := client.Set(ctx, key, 5, 0).Err(); err != nil {
		t.Fatalf("Set: %v", err)
	}

	handler := NewRateLimiter(client, 2, time.Minute, testLogger()).Limit("login")(okHandler())
	if rec := post(handler, "10.0.0.3:5000"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("статус %d, ожидался 429", rec.Code)
	}

	ttl, err := client.TTL(ctx, key).Result()
	if err != nil || ttl <= 0 || ttl > time.Minute {
		t.Errorf("TTL ключа = %v, %v; ожидался срок окна", ttl, err)
	}
}

func TestRateLimiter_KeepsWindowExpiry(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()
	handler := NewRateLimiter(client, 5, time.Minute, testLogger()).Limit("register")(okHandler())
	key := "rate_limit:register:10.0.0.4"

	post(handler, "10.0.0.4:5000")
	if err := client.Expire(ctx, key, 10*time.Second).Err(); err != nil {
		t.Fatalf("Expire: %v", err)
	}
	post(handler, "10.0.0.4:5000")

	// Повторные запросы не продлевают окно
	ttl, err := client.TTL(ctx, key).Result()
	if err != nil || ttl <= 0 || ttl > 10*time.Second {
		t.Errorf("TTL ключа = %v, %v; ожидалось не больше 10s", ttl, err)
	}
}
