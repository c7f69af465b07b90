package telegram

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"gharsense/internal/training"
)

const defaultAPIBase = "https://api.telegram.org"

// Service posts pipeline notifications to a Telegram chat. When the
// bot token is empty the service is disabled and every send is a
// silent no-op.
type Service struct {
	logger   *logrus.Logger
	client   *http.Client
	apiBase  string
	botToken string
	chatID   string
}

func NewService(botToken, chatID string, logger *logrus.Logger) *Service {
	return &Service{
		logger: logger,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		apiBase:  defaultAPIBase,
		botToken: botToken,
		chatID:   chatID,
	}
}

// Enabled reports whether a bot token is configured.
func (s *Service) Enabled() bool {
	return s.botToken != ""
}

// SendMessage sends a message to the configured Telegram chat
func (s *Service) SendMessage(message string) error {
	if !s.Enabled() {
		return nil
	}

	if s.chatID == "" {
		return errors.New("Telegram chat ID is not configured")
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.apiBase, s.botToken)
	payload := map[string]interface{}{
		"chat_id":    s.chatID,
		"text":       message,
		"parse_mode": "HTML",
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message payload: %v", err)
	}

	resp, err := s.client.Post(url, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to send message to Telegram API: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return errors.New("invalid bot token - please check your token from @BotFather")
		case http.StatusBadRequest:
			return fmt.Errorf("invalid chat ID or message format: %s", string(body))
		case http.StatusForbidden:
			return errors.New("bot was blocked by the user or chat")
		default:
			return fmt.Errorf("Telegram API error (status %d): %s", resp.StatusCode, string(body))
		}
	}

	return nil
}

// NotifyTrainingComplete sends a summary of a finished training run.
// Failures are logged and swallowed so a Telegram outage never fails
// the pipeline.
func (s *Service) NotifyTrainingComplete(result *training.TrainResult) {
	if !s.Enabled() {
		return
	}

	best := result.Best()
	message := fmt.Sprintf(
		"🏠 <b>Model training complete</b>\n\n"+
			"Trained on %d rows, evaluated on %d.\n"+
			"Best model: <b>%s</b>\n"+
			"R²: %.4f | RMSE: %.2f | MAE: %.2f",
		result.TrainRows, result.TestRows,
		best.Name, best.Score.R2, best.Score.RMSE, best.Score.MAE,
	)

	if err := s.SendMessage(message); err != nil {
		s.logger.WithError(err).Warn("Failed to send training notification")
	}
}

// NotifyIngestComplete reports an ingestion run.
func (s *Service) NotifyIngestComplete(inserted, skipped int) {
	if !s.Enabled() {
		return
	}

	message := fmt.Sprintf(
		"📥 <b>Ingestion complete</b>\n\nInserted %d listings, skipped %d invalid rows.",
		inserted, skipped,
	)
	if err := s.SendMessage(message); err != nil {
		s.logger.WithError(err).Warn("Failed to send ingestion notification")
	}
}
