package auth

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestVerifyRoundTrip(t *testing.T) {
	a := New("user-secret", "admin-secret")
	id := primitive.NewObjectID()

	token, err := a.SignUser(id, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	got, err := a.VerifyUser(token)
	if err != nil {
		t.Fatal(err)
	}
	if got != id {
		t.Fatalf("got %s, want %s", got.Hex(), id.Hex())
	}

	if _, err = a.VerifyAdmin(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("user token accepted as admin: %v", err)
	}
}

func TestVerifyRejects(t *testing.T) {
	a := New("user-secret", "admin-secret")
	id := primitive.NewObjectID()

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:           id.Hex(),
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))},
	}).SignedString(a.userSecret)
	if err != nil {
		t.Fatal(err)
	}

	other, err := New("another-secret", "").SignUser(id, 0)
	if err != nil {
		t.Fatal(err)
	}

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: id.Hex()}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}

	badSubject, err := sign(a.userSecret, Claims{UserID: "not-an-id"}, 0)
	if err != nil {
		t.Fatal(err)
	}

	cases := map[string]string{
		"expired":      expired,
		"wrong secret": other,
		"alg none":     none,
		"bad subject":  badSubject,
		"garbage":      "a.b.c",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := a.VerifyUser(token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}

	if _, err = New("user-secret", "").VerifyAdmin(expired); !errors.Is(err, ErrInvalidToken) {
		t.Fatal("empty secret must reject everything")
	}
}

func TestMiddleware(t *testing.T) {
	a := New("user-secret", "admin-secret")
	user, admin := primitive.NewObjectID(), primitive.NewObjectID()
	userToken, err := a.SignUser(user, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	adminToken, err := a.SignAdmin(admin, time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	app := fiber.New()
	app.Use(a.Middleware())
	app.Get("/", func(c *fiber.Ctx) error {
		ctx := Context(context.Background(), c)
		u, okU := UserFrom(ctx)
		ad, okA := AdminFrom(ctx)
		return c.JSON(fiber.Map{
			"user":  okU && u == user,
			"admin": okA && ad == admin,
			"anon":  !okU && !okA,
		})
	})

	cases := []struct {
		name   string
		header string
		cookie string
		want   string
	}{
		{"anonymous", "", "", `{"admin":false,"anon":true,"user":false}`},
		{"user bearer", "Bearer " + userToken, "", `{"admin":false,"anon":false,"user":true}`},
		{"admin bearer", "Bearer " + adminToken, "", `{"admin":true,"anon":false,"user":false}`},
		{"admin cookie", "", AdminCookie + "=" + adminToken, `{"admin":true,"anon":false,"user":false}`},
		{"both", "Bearer " + userToken, AdminCookie + "=" + adminToken, `{"admin":true,"anon":false,"user":true}`},
		{"invalid bearer", "Bearer nope", "", `{"admin":false,"anon":true,"user":false}`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if c.header != "" {
				req.Header.Set("Authorization", c.header)
			}
			if c.cookie != "" {
				req.Header.Set("Cookie", c.cookie)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			body, err := io.ReadAll(resp.Body)
			if err != nil {
				t.Fatal(err)
			}
			if got := string(body); got != c.want {
				t.Fatalf("got %s, want %s", got, c.want)
			}
		})
	}
}
