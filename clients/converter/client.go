package converter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"render-bot/config"
	"render-bot/models"
)

// Konvertierungen können lange dauern (LaTeX-Läufe), daher großzügiges Timeout.
var httpClient = &http.Client{Timeout: 180 * time.Second}

// Client kapselt die Aufrufe gegen den externen Konvertierungsdienst.
// Der Dienst ist zustandslos: alles, was er braucht (Markdown, Template,
// Variablen, Bibliographie, Assets), steckt in einem einzigen Request.
type Client struct {
	Config *config.Config
	Logger *zap.Logger
}

// NewClient erstellt einen neuen Konvertierungs-Client.
func NewClient(cfg *config.Config, logger *zap.Logger) *Client {
	return &Client{Config: cfg, Logger: logger}
}

// Request ist der Body für POST /convert.
type Request struct {
	Markdown      string             `json:"markdown"`
	Engine        string             `json:"engine"`
	Template      string             `json:"template,omitempty"`
	Variables     map[string]any     `json:"variables,omitempty"`
	Metadata      map[string]any     `json:"metadata,omitempty"`
	OutputFormat  string             `json:"outputFormat,omitempty"`
	Bibliography  string             `json:"bibliography,omitempty"`
	Assets        []models.AssetFile `json:"assets,omitempty"`
	SelfContained bool               `json:"selfContained,omitempty"`
}

// Convert schickt den Request an den Dienst und gibt die rohe Antwort
// zurück (Text bei HTML, Binärdaten bei PDF). Bei einem Fehler enthält
// die Fehlermeldung Status und Fehlertext des Dienstes.
func (c *Client) Convert(ctx context.Context, convReq Request) ([]byte, error) {
	payload, err := json.Marshal(convReq)
	if err != nil {
		return nil, err
	}

	url := strings.TrimRight(c.Config.ConversionServiceURL, "/") + "/convert"
	log := c.Logger.With(
		zap.String("engine", convReq.Engine),
		zap.String("output_format", convReq.OutputFormat),
		zap.Int("asset_count", len(convReq.Assets)))
	log.Info("Rufe Konvertierungsdienst auf.")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("conversion service unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		// Fehlerantworten kommen als {error} JSON, sonst Rohtext übernehmen.
		var errResp struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(body))
		if jsonErr := json.Unmarshal(body, &errResp); jsonErr == nil && errResp.Error != "" {
			msg = errResp.Error
		}
		return nil, fmt.Errorf("conversion failed with status %d: %s", resp.StatusCode, msg)
	}

	log.Info("Konvertierung abgeschlossen", zap.Int("size", len(body)))
	return body, nil
}
