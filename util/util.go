package util

import (
	"encoding/json"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/nilotpaul/meetsync/setting"
)

type WebsocketFunc func(*websocket.Conn) error

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func GetEnv(key string, fallback ...string) string {
	v := os.Getenv(key)
	if len(v) == 0 && len(fallback) > 0 {
		return fallback[0]
	}

	return v
}

func IsProduction() bool {
	e := GetEnv("ENVIRONMENT")

	return e == "PROD"
}

func DecodeJSON(r io.Reader, target interface{}) error {
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(target); err != nil {
		return err
	}

	return nil
}

func Ptr[T any](v T) *T {
	return &v
}

// ParseAndValidate decodes the request body into target and runs the struct
// validation tags on it.
func ParseAndValidate(c *fiber.Ctx, target interface{}) error {
	if err := c.BodyParser(target); err != nil {
		return NewAppError(
			http.StatusBadRequest,
			"invalid request body",
			err,
		)
	}

	validateOnce.Do(func() {
		validate = validator.New()
	})
	if err := validate.Struct(target); err != nil {
		return NewAppError(
			http.StatusBadRequest,
			err.Error(),
		)
	}

	return nil
}

// writeErrorResponse writes an error response to the WebSocket connection.
func writeErrorResponse(c *websocket.Conn, err error) {
	if appErr, ok := err.(*AppError); ok {
		slog.Error("WS error", "errMsg", appErr.Error(), "status", appErr.Status, "err", appErr.Err)
		if err := c.WriteJSON(fiber.Map{"status": appErr.Status, "errMsg": appErr.Msg}); err != nil {
			log.Printf("failed to write error response: %v", err)
		}
	} else {
		slog.Error("WS error", "err", err)
		if err := c.WriteMessage(websocket.TextMessage, []byte("something went wrong")); err != nil {
			log.Printf("failed to write error response: %v", err)
		}
	}

	if err := c.Close(); err != nil {
		log.Printf("failed to close the ws connection: %v", err)
	}
}

// MakeWebsocketHandler creates a Fiber handler that wraps
// a WebSocket handler function.
func MakeWebsocketHandler(h WebsocketFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return websocket.New(func(conn *websocket.Conn) {
				log.Println("new incoming ws connection", conn.NetConn().RemoteAddr())

				if err := h(conn); err != nil {
					writeErrorResponse(conn, err)
				}
			})(c)
		}
		return fiber.ErrUpgradeRequired
	}
}

func MakeURL(url string) string {
	return setting.APIPrefix + url
}
