// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package maskslog

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	return record
}

type credentials struct {
	token string
}

func (c credentials) LogValue() slog.Value {
	return slog.GroupValue(slog.String("token", c.token), slog.String("user", "gopher"))
}

func TestHandler_Handle(t *testing.T) {
	t.Run("will not mask attrs", func(t *testing.T) {
		t.Run("if no masking funcs are registered", func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(NewHandler(slog.NewJSONHandler(&buf, nil)))

			logger.Info("hello world", slog.String("secret", "super duper secret value"))

			record := decode(t, &buf)
			assert.Equal(t, "hello world", record["msg"])
			assert.Equal(t, "super duper secret value", record["secret"])
		})

		t.Run("if the attr key does not match a masking func", func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(NewHandler(slog.NewJSONHandler(&buf, nil), Keys("random")))

			logger.Info("hello world", slog.String("secret", "super duper secret value"))

			record := decode(t, &buf)
			assert.Equal(t, "super duper secret value", record["secret"])
		})
	})

	t.Run("will mask attrs", func(t *testing.T) {
		t.Run("if the key matches", func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(NewHandler(slog.NewJSONHandler(&buf, nil), Keys("secret")))

			logger.Info("hello world", slog.Int("secret", 42), slog.String("public", "ok"))

			record := decode(t, &buf)
			assert.Equal(t, Masked, record["secret"])
			assert.Equal(t, "ok", record["public"])
		})

		t.Run("if the key is nested in a group", func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(NewHandler(slog.NewJSONHandler(&buf, nil), Keys("authorization")))

			logger.Info(
				"request",
				slog.Group("headers", slog.String("authorization", "Bearer abc"), slog.String("accept", "*/*")),
			)

			record := decode(t, &buf)
			headers, ok := record["headers"].(map[string]any)
			require.True(t, ok)
			assert.Equal(t, Masked, headers["authorization"])
			assert.Equal(t, "*/*", headers["accept"])
		})

		t.Run("if the key comes from a LogValuer", func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(NewHandler(slog.NewJSONHandler(&buf, nil), Keys("token")))

			logger.Info("login", slog.Any("creds", credentials{token: "abc"}))

			record := decode(t, &buf)
			creds, ok := record["creds"].(map[string]any)
			require.True(t, ok)
			assert.Equal(t, Masked, creds["token"])
			assert.Equal(t, "gopher", creds["user"])
		})

		t.Run("if a custom masking func is registered", func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(NewHandler(
				slog.NewJSONHandler(&buf, nil),
				Attr("card", func(a slog.Attr) slog.Attr {
					s := a.Value.String()
					return slog.String(a.Key, strings.Repeat("*", len(s)-4)+s[len(s)-4:])
				}),
			))

			logger.Info("charged", slog.String("card", "4111111111111111"))

			record := decode(t, &buf)
			assert.Equal(t, "************1111", record["card"])
		})
	})

	t.Run("will mask the message", func(t *testing.T) {
		t.Run("if a message func is registered", func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(NewHandler(
				slog.NewJSONHandler(&buf, nil),
				Message(func(s string) string {
					return strings.ReplaceAll(s, "hunter2", Masked)
				}),
			))

			logger.Info("password is hunter2")

			record := decode(t, &buf)
			assert.Equal(t, "password is ****", record["msg"])
		})
	})
}

func TestHandler_WithAttrs(t *testing.T) {
	t.Run("will mask attrs", func(t *testing.T) {
		t.Run("if they are added to the logger", func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(NewHandler(slog.NewJSONHandler(&buf, nil), Keys("secret")))

			logger.With(slog.String("secret", "abc")).Info("hello", slog.String("secret", "def"))

			assert.Equal(t, 2, strings.Count(buf.String(), `"secret":"****"`))
		})

		t.Run("if later records are logged through the derived handler", func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(NewHandler(slog.NewJSONHandler(&buf, nil), Keys("secret")))

			logger.With(slog.String("user", "gopher")).Info("hello", slog.String("secret", "def"))

			record := decode(t, &buf)
			assert.Equal(t, Masked, record["secret"])
			assert.Equal(t, "gopher", record["user"])
		})
	})
}

func TestHandler_WithGroup(t *testing.T) {
	t.Run("will keep masking", func(t *testing.T) {
		t.Run("if records are logged in a group", func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(NewHandler(slog.NewJSONHandler(&buf, nil), Keys("secret")))

			logger.WithGroup("db").Info("connected", slog.String("secret", "abc"))

			record := decode(t, &buf)
			db, ok := record["db"].(map[string]any)
			require.True(t, ok)
			assert.Equal(t, Masked, db["secret"])
		})
	})
}

func TestHandler_Enabled(t *testing.T) {
	h := NewHandler(slog.NewJSONHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn}))

	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}
