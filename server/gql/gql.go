package gql

import (
	"context"
	"sync"
	"time"

	"github.com/gobuffalo/packr/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/graph-gophers/graphql-go"
	jsoniter "github.com/json-iterator/go"
	"github.com/troydota/api.opinion.komodohype.dev/auth"
	"github.com/troydota/api.opinion.komodohype.dev/server/gql/resolvers"
	"github.com/troydota/api.opinion.komodohype.dev/utils"

	log "github.com/sirupsen/logrus"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const heartbeat = 60 * time.Second

const ctxKey = "ctx"

type GQLRequest struct {
	Query          string                 `json:"query"`
	Variables      map[string]interface{} `json:"variables"`
	OperationName  string                 `json:"operation_name"`
	RequestID      string                 `json:"request_id"`
	SubscriptionID string                 `json:"subscription_id"`
}

type WSResponse struct {
	Payload        interface{} `json:"payload,omitempty"`
	Error          string      `json:"error,omitempty"`
	RequestID      string      `json:"request_id,omitempty"`
	SubscriptionID string      `json:"sub_id,omitempty"`
}

// Schema reads the packed schema and binds it to root.
func Schema(root *resolvers.RootResolver) (*graphql.Schema, error) {
	box := packr.New("gql", "./schema")

	s, err := box.FindString("schema.gql")
	if err != nil {
		return nil, err
	}

	return graphql.ParseSchema(s, root, graphql.UseFieldResolvers())
}

func GQL(app fiber.Router, schema *graphql.Schema) {
	gql := app.Group("/gql")

	gql.Use(func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodGet {
			return c.Next()
		}
		// IsWebSocketUpgrade returns true if the client
		// requested upgrade to the WebSocket protocol.
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals(ctxKey, auth.Context(context.Background(), c))
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})

	gql.Post("/", func(c *fiber.Ctx) error {
		req := &GQLRequest{}
		if err := c.BodyParser(req); err != nil {
			log.Errorf("gql req, err=%v", err)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"status":  fiber.StatusBadRequest,
				"message": "Invalid GraphQL Request.",
			})
		}

		result := schema.Exec(auth.Context(c.UserContext(), c), req.Query, req.OperationName, req.Variables)

		status := fiber.StatusOK
		if len(result.Errors) > 0 {
			status = fiber.StatusBadRequest
		}

		return c.Status(status).JSON(result)
	})

	gql.Get("/", websocket.New(func(c *websocket.Conn) {
		base, ok := c.Locals(ctxKey).(context.Context)
		if !ok {
			base = context.Background()
		}

		closeChan := make(chan struct{})
		mtx := &sync.Mutex{}
		events := map[string]chan struct{}{}

		write := func(v WSResponse) error {
			data, err := json.Marshal(v)
			if err != nil {
				log.Errorf("json, err=%v", err)
				return nil
			}
			mtx.Lock()
			defer mtx.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		go func() {
			for {
				select {
				case <-time.After(heartbeat):
					mtx.Lock()
					err := c.WriteMessage(websocket.TextMessage, utils.S2B("HEARTBEAT"))
					mtx.Unlock()
					if err != nil {
						return
					}
				case <-closeChan:
					return
				}
			}
		}()
		defer close(closeChan)

		for {
			mt, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			if mt != websocket.TextMessage {
				continue
			}

			req := &GQLRequest{}
			if err = json.Unmarshal(msg, req); err != nil {
				if err = write(WSResponse{Error: "invalid request"}); err != nil {
					break
				}
				continue
			}

			if req.SubscriptionID != "" && req.OperationName == "unsubscribe" {
				mtx.Lock()
				if v, ok := events[req.SubscriptionID]; ok {
					close(v)
					delete(events, req.SubscriptionID)
				}
				mtx.Unlock()
				continue
			}

			go func() {
				queryCtx, cancel := context.WithCancel(base)
				result, err := schema.Subscribe(queryCtx, req.Query, req.OperationName, req.Variables)
				if err != nil {
					log.Errorf("gql, err=%v", err)
					cancel()
					_ = write(WSResponse{Error: "invalid request", RequestID: req.RequestID})
					return
				}

				id := uuid.NewString()
				unsub := make(chan struct{})
				mtx.Lock()
				events[id] = unsub
				mtx.Unlock()

				ended := make(chan struct{})
				defer close(ended)
				defer func() {
					mtx.Lock()
					delete(events, id)
					mtx.Unlock()
				}()
				go func() {
					select {
					case <-closeChan:
					case <-ended:
					case <-unsub:
					}
					cancel()
				}()

				for val := range result {
					if err := write(WSResponse{
						Payload:        val,
						RequestID:      req.RequestID,
						SubscriptionID: id,
					}); err != nil {
						cancel()
						break
					}
				}
			}()
		}
	}))
}
