// Package auth verifies the HS256 access tokens users and admins carry and
// puts the ids they name into the request context.
package auth

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/troydota/api.opinion.komodohype.dev/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	UserCookie  = "userAccessToken"
	AdminCookie = "adminAccessToken"
)

const (
	userKey  = utils.Key("userId")
	adminKey = utils.Key("adminId")
)

var ErrInvalidToken = errors.New("invalid access token")

type Claims struct {
	UserID  string `json:"userId,omitempty"`
	AdminID string `json:"adminId,omitempty"`
	jwt.RegisteredClaims
}

type Authenticator struct {
	userSecret  []byte
	adminSecret []byte
	parser      *jwt.Parser
}

func New(userSecret, adminSecret string) *Authenticator {
	return &Authenticator{
		userSecret:  []byte(userSecret),
		adminSecret: []byte(adminSecret),
		parser:      jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}
}

func sign(secret []byte, claims Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// SignUser issues a user access token valid for ttl, or forever when ttl is 0.
func (a *Authenticator) SignUser(id primitive.ObjectID, ttl time.Duration) (string, error) {
	return sign(a.userSecret, Claims{UserID: id.Hex()}, ttl)
}

func (a *Authenticator) SignAdmin(id primitive.ObjectID, ttl time.Duration) (string, error) {
	return sign(a.adminSecret, Claims{AdminID: id.Hex()}, ttl)
}

func (a *Authenticator) parse(token string, secret []byte) (*Claims, error) {
	if len(secret) == 0 {
		return nil, ErrInvalidToken
	}
	claims := &Claims{}
	_, err := a.parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return nil, errors.Wrap(ErrInvalidToken, err.Error())
	}
	return claims, nil
}

func objectID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, errors.Wrap(ErrInvalidToken, "malformed subject")
	}
	return id, nil
}

// VerifyUser returns the user id of a valid user access token.
func (a *Authenticator) VerifyUser(token string) (primitive.ObjectID, error) {
	claims, err := a.parse(token, a.userSecret)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return objectID(claims.UserID)
}

// VerifyAdmin returns the admin id of a valid admin access token.
func (a *Authenticator) VerifyAdmin(token string) (primitive.ObjectID, error) {
	claims, err := a.parse(token, a.adminSecret)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return objectID(claims.AdminID)
}

func bearer(c *fiber.Ctx) string {
	h := c.Get(fiber.HeaderAuthorization)
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// Middleware resolves the caller from the access token cookies and the
// Authorization header. A bearer token counts as whichever kind it verifies
// as. Requests without a valid token pass through anonymous; resolvers decide
// what needs a caller.
func (a *Authenticator) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token := c.Cookies(UserCookie); token != "" {
			if id, err := a.VerifyUser(token); err == nil {
				c.Locals(string(userKey), id)
			}
		}
		if token := c.Cookies(AdminCookie); token != "" {
			if id, err := a.VerifyAdmin(token); err == nil {
				c.Locals(string(adminKey), id)
			}
		}
		if token := bearer(c); token != "" {
			if id, err := a.VerifyUser(token); err == nil {
				c.Locals(string(userKey), id)
			} else if id, err := a.VerifyAdmin(token); err == nil {
				c.Locals(string(adminKey), id)
			}
		}
		return c.Next()
	}
}

// Context copies the caller ids the middleware found into ctx.
func Context(ctx context.Context, c *fiber.Ctx) context.Context {
	if id, ok := c.Locals(string(userKey)).(primitive.ObjectID); ok {
		ctx = WithUser(ctx, id)
	}
	if id, ok := c.Locals(string(adminKey)).(primitive.ObjectID); ok {
		ctx = WithAdmin(ctx, id)
	}
	return ctx
}

func WithUser(ctx context.Context, id primitive.ObjectID) context.Context {
	return context.WithValue(ctx, userKey, id)
}

func WithAdmin(ctx context.Context, id primitive.ObjectID) context.Context {
	return context.WithValue(ctx, adminKey, id)
}

func UserFrom(ctx context.Context) (primitive.ObjectID, bool) {
	id, ok := ctx.Value(userKey).(primitive.ObjectID)
	return id, ok
}

func AdminFrom(ctx context.Context) (primitive.ObjectID, bool) {
	id, ok := ctx.Value(adminKey).(primitive.ObjectID)
	return id, ok
}
