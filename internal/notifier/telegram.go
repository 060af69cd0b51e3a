package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"time"
)

const telegramAPI = "https://api.telegram.org"

// TelegramNotifier delivers alerts to one chat through the Bot API.
type TelegramNotifier struct {
	BotToken string
	ChatID   string
	APIBase  string
	Client   *http.Client
}

// NewTelegramNotifier routes Bot API traffic through proxyURL when it is set.
func NewTelegramNotifier(botToken, chatID, proxyURL string) *TelegramNotifier {
	var transport http.RoundTripper = http.DefaultTransport
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport = &http.Transport{Proxy: http.ProxyURL(u)}
		}
	}
	return &TelegramNotifier{
		BotToken: botToken,
		ChatID:   chatID,
		APIBase:  telegramAPI,
		Client:   &http.Client{Timeout: 30 * time.Second, Transport: transport},
	}
}

func (t *TelegramNotifier) Name() string { return "telegram" }

// Send renders the subject as a bold headline above the body.
func (t *TelegramNotifier) Send(ctx context.Context, subject, body string) error {
	msg := "<b>" + html.EscapeString(subject) + "</b>\n\n" + html.EscapeString(body)
	if err := t.sendHTML(ctx, msg); err != nil {
		return &NotificationError{Channel: t.Name(), Err: err}
	}
	return nil
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

func (t *TelegramNotifier) sendHTML(ctx context.Context, msg string) error {
	req := sendMessageRequest{ChatID: t.ChatID, Text: msg, ParseMode: "HTML"}
	return t.call(ctx, t.Client, "sendMessage", req, nil)
}

// apiEnvelope is the wrapper every Bot API response arrives in.
type apiEnvelope struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

// call invokes a Bot API method with a JSON body and decodes the result
// into out when out is non-nil.
func (t *TelegramNotifier) call(ctx context.Context, client *http.Client, method string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s: %w", method, err)
	}
	endpoint := t.APIBase + "/bot" + t.BotToken + "/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read %s response: %w", method, err)
	}
	var env apiEnvelope
	if jerr := json.Unmarshal(raw, &env); jerr != nil || resp.StatusCode != http.StatusOK || !env.OK {
		detail := env.Description
		if detail == "" {
			detail = string(raw)
		}
		return fmt.Errorf("%s rejected with status %d: %s", method, resp.StatusCode, detail)
	}
	if out == nil || len(env.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}
