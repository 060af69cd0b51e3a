package notifier

import (
	"context"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// CommandHandler answers a chat command. An empty reply sends nothing.
type CommandHandler func(ctx context.Context, command string) string

const (
	pollTimeout = 30 * time.Second
	pollBackoff = 5 * time.Second
)

type getUpdatesRequest struct {
	Offset  int64 `json:"offset"`
	Timeout int   `json:"timeout"`
}

type chatUpdate struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

// StartPolling long-polls getUpdates and dispatches each text message from
// the configured chat to handler. It returns when ctx is done.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler, logger zerolog.Logger) {
	// The long-poll holds the connection open for pollTimeout, so the shared
	// client's deadline would cut it short.
	client := *t.Client
	client.Timeout = pollTimeout + 5*time.Second

	var next int64
	for ctx.Err() == nil {
		var updates []chatUpdate
		req := getUpdatesRequest{Offset: next, Timeout: int(pollTimeout / time.Second)}
		if err := t.call(ctx, &client, "getUpdates", req, &updates); err != nil {
			if ctx.Err() != nil {
				break
			}
			logger.Warn().Err(err).Msg("telegram poll failed")
			wait(ctx, pollBackoff)
			continue
		}
		for _, u := range updates {
			next = u.UpdateID + 1
			t.dispatch(ctx, u, handler, logger)
		}
	}
	logger.Info().Msg("telegram polling stopped")
}

func (t *TelegramNotifier) dispatch(ctx context.Context, u chatUpdate, handler CommandHandler, logger zerolog.Logger) {
	if u.Message == nil {
		return
	}
	cmd := strings.TrimSpace(u.Message.Text)
	if cmd == "" {
		return
	}
	if strconv.FormatInt(u.Message.Chat.ID, 10) != t.ChatID {
		logger.Debug().Int64("chat_id", u.Message.Chat.ID).Msg("command from foreign chat ignored")
		return
	}
	logger.Info().Str("command", cmd).Msg("command received")
	reply := handler(ctx, cmd)
	if reply == "" {
		return
	}
	if err := t.sendHTML(ctx, html.EscapeString(reply)); err != nil {
		logger.Error().Err(err).Msg("reply failed")
	}
}

func wait(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
