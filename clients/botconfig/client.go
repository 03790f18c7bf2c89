package botconfig

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"render-bot/config"
)

var httpClient = &http.Client{Timeout: 30 * time.Second}

// Client kapselt die Aufrufe gegen den Bot-Config-File-Dienst, in dem
// hochgeladene Template-Dateien pro Journal abgelegt sind.
type Client struct {
	Config *config.Config
	Logger *zap.Logger
}

// NewClient erstellt einen neuen Bot-Config-File-Client.
func NewClient(cfg *config.Config, logger *zap.Logger) *Client {
	return &Client{Config: cfg, Logger: logger}
}

// ConfigFile ist ein Eintrag aus der Datei-Liste des Dienstes.
type ConfigFile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// GetFileContent holt den Rohtext einer Template-Datei anhand ihrer ID.
func (c *Client) GetFileContent(ctx context.Context, fileID string) (string, error) {
	url := fmt.Sprintf("%s/bot-config-files/%s/content", strings.TrimRight(c.Config.BotConfigServiceURL, "/"), fileID)
	log := c.Logger.With(zap.String("file_id", fileID))
	log.Debug("Hole Template-Inhalt vom Bot-Config-Dienst.")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("bot-config-file request failed with status: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ListTemplateFiles listet alle Dateien der Kategorie "template" für den Bot.
func (c *Client) ListTemplateFiles(ctx context.Context, botID string) ([]ConfigFile, error) {
	url := fmt.Sprintf("%s/bot-config-files/%s/files?category=template", strings.TrimRight(c.Config.BotConfigServiceURL, "/"), botID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bot-config-file listing failed with status: %d", resp.StatusCode)
	}

	var listResp struct {
		Files []ConfigFile `json:"files"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listResp); err != nil {
		return nil, err
	}
	return listResp.Files, nil
}
