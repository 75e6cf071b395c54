package server

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/troydota/api.opinion.komodohype.dev/auth"
	"github.com/troydota/api.opinion.komodohype.dev/models"
	"github.com/troydota/api.opinion.komodohype.dev/redis"
	"github.com/troydota/api.opinion.komodohype.dev/server/gql"
	"github.com/troydota/api.opinion.komodohype.dev/server/gql/resolvers"
	"github.com/troydota/api.opinion.komodohype.dev/services"
	"github.com/troydota/api.opinion.komodohype.dev/store/memory"
)

func newApp(t *testing.T) (*fiber.App, *auth.Authenticator, *models.User) {
	t.Helper()
	ctx := context.Background()

	mr := miniredis.RunT(t)
	rc, err := redis.Connect(ctx, "redis://"+mr.Addr())
	if err != nil {
		t.Fatal(err)
	}
	pubsub := rc.Subscribe(ctx)
	t.Cleanup(func() {
		pubsub.Close()
		rc.Close()
	})

	st := memory.New()
	user := &models.User{Name: "ada", Email: "ada@example.com", Energy: 5, Level: 2}
	if err = st.InsertUser(ctx, user); err != nil {
		t.Fatal(err)
	}

	svc := services.New(st, rc, services.WithCacheSemantics(redis.ErrNil, redis.KeepTTL))
	schema, err := gql.Schema(resolvers.New(svc, pubsub))
	if err != nil {
		t.Fatal(err)
	}

	authn := auth.New("user-secret", "admin-secret")
	return New(schema, authn), authn, user
}

func do(t *testing.T, app *fiber.App, method, path, body string, header map[string]string) (int, string) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, string(b)
}

func TestRoutes(t *testing.T) {
	app, authn, user := newApp(t)
	token, err := authn.SignUser(user.ID, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	query := `{"query":"{ nextPoll { id } weights { weight } }"}`
	jsonHeader := map[string]string{fiber.HeaderContentType: fiber.MIMEApplicationJSON}

	if code, body := do(t, app, fiber.MethodGet, "/health-check", "", nil); code != fiber.StatusOK || body != `{"status":200}` {
		t.Fatalf("health-check %d %s", code, body)
	}

	if code, _ := do(t, app, fiber.MethodGet, "/metrics", "", nil); code != fiber.StatusOK {
		t.Fatalf("metrics %d", code)
	}

	if code, body := do(t, app, fiber.MethodGet, "/nowhere", "", nil); code != fiber.StatusNotFound || !strings.Contains(body, "We don't know what you're looking for.") {
		t.Fatalf("unknown route %d %s", code, body)
	}

	if code, _ := do(t, app, fiber.MethodGet, "/gql", "", nil); code != fiber.StatusUpgradeRequired {
		t.Fatalf("plain GET on /gql %d", code)
	}

	code, body := do(t, app, fiber.MethodPost, "/gql", query, jsonHeader)
	if code != fiber.StatusBadRequest || !strings.Contains(body, "UNAUTHORIZED") {
		t.Fatalf("anonymous %d %s", code, body)
	}

	jsonHeader[fiber.HeaderAuthorization] = "Bearer " + token
	code, body = do(t, app, fiber.MethodPost, "/gql", query, jsonHeader)
	if code != fiber.StatusOK || body != `{"data":{"nextPoll":null,"weights":[]}}` {
		t.Fatalf("signed in %d %s", code, body)
	}
}
