// Package telegramchannel реализует канал уведомлений оператора через
// Telegram Bot API: исходящие заявки уходят в sendMessage, решения
// принимаются длинным опросом getUpdates.
package telegramchannel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/basimtrading/auth-gate/internal/models"
	"github.com/basimtrading/auth-gate/internal/notify"
)

type Client struct {
	token      string
	chatID     int64
	apiURL     string
	httpClient *http.Client
}

// NewClient создаёт клиент Telegram Bot API.
func NewClient(token string, chatID int64) *Client {
	return &Client{
		token:      token,
		chatID:     chatID,
		apiURL:     "https://api.telegram.org",
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) newRequest(ctx context.Context, method string, body interface{}) (*http.Request, error) {
	url := c.apiURL + "/bot" + c.token + "/" + method
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) call(ctx context.Context, method string, body, out interface{}) error {
	req, err := c.newRequest(ctx, method, body)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Notify отправляет оператору заявку с кнопками одобрения и отказа.
// Для новых учётных записей кнопки одобрения нет: её одобряют только текстом
// с указанием срока подписки.
func (c *Client) Notify(ctx context.Context, req *models.PendingApprovalRequest) error {
	const op = "telegramchannel.Client.Notify"

	msg := sendMessageRequest{
		ChatID: c.chatID,
		Text:   requestText(req),
	}
	msg.ReplyMarkup = &inlineKeyboardMarkup{
		InlineKeyboard: [][]inlineKeyboardButton{keyboardRow(req)},
	}

	if err := c.call(ctx, "sendMessage", msg, nil); err != nil {
		return fmt.Errorf("%s: %w: %v", op, notify.ErrChannelUnavailable, err)
	}
	return nil
}

func requestText(req *models.PendingApprovalRequest) string {
	switch req.Kind {
	case models.KindNewAccount:
		return fmt.Sprintf(
			"Новая учётная запись: %s\nЗаявка: %s\n\nОтветьте: approve %s <дней> или reject %s",
			req.Subject, req.RequestID, req.RequestID, req.RequestID)
	case models.KindSuperuserLogin:
		return fmt.Sprintf("Вход суперпользователя: %s\nЗаявка: %s", req.Subject, req.RequestID)
	case models.KindRenewal:
		return fmt.Sprintf(
			"Продление подписки: %s\nТранзакция: %s\nЗаявка: %s\n\nОтветьте: approve %s <дней> или reject %s",
			req.Subject, req.TxID, req.RequestID, req.RequestID, req.RequestID)
	default:
		return fmt.Sprintf("Заявка %s (%s): %s", req.RequestID, req.Kind, req.Subject)
	}
}

func keyboardRow(req *models.PendingApprovalRequest) []inlineKeyboardButton {
	reject := inlineKeyboardButton{Text: "Отклонить", CallbackData: "reject_" + req.RequestID}
	// Одобрение без срока допустимо только для входа суперпользователя.
	if req.Kind == models.KindSuperuserLogin {
		approve := inlineKeyboardButton{Text: "Одобрить", CallbackData: "approve_" + req.RequestID}
		return []inlineKeyboardButton{approve, reject}
	}
	return []inlineKeyboardButton{reject}
}
