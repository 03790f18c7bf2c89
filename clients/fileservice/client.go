package fileservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"render-bot/config"
	"render-bot/models"
)

var httpClient = &http.Client{Timeout: 60 * time.Second}

// Client kapselt die Aufrufe gegen den File-Storage-Dienst der Plattform.
// Authentifiziert wird über den Service-Token im x-bot-token-Header.
type Client struct {
	Config *config.Config
	Logger *zap.Logger
}

// NewClient erstellt einen neuen File-Storage-Client.
func NewClient(cfg *config.Config, logger *zap.Logger) *Client {
	return &Client{Config: cfg, Logger: logger}
}

// UploadedFile ist die Antwort des Dienstes auf einen Upload.
type UploadedFile struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	DownloadURL string `json:"downloadUrl"`
}

// ResolveURL macht aus einer relativen Download-URL eine absolute.
func (c *Client) ResolveURL(rawURL string) string {
	if strings.HasPrefix(rawURL, "http://") || strings.HasPrefix(rawURL, "https://") {
		return rawURL
	}
	return strings.TrimRight(c.Config.FileServiceURL, "/") + "/" + strings.TrimLeft(rawURL, "/")
}

// ListFiles holt alle Dateien eines Manuskripts.
func (c *Client) ListFiles(ctx context.Context, manuscriptID, token string) ([]models.ManuscriptFile, error) {
	url := fmt.Sprintf("%s/files?manuscriptId=%s", strings.TrimRight(c.Config.FileServiceURL, "/"), manuscriptID)
	var files []models.ManuscriptFile
	if err := c.getJSON(ctx, url, token, &files); err != nil {
		return nil, fmt.Errorf("listing manuscript files: %w", err)
	}
	return files, nil
}

// GetManuscript holt die Metadaten eines Manuskripts.
func (c *Client) GetManuscript(ctx context.Context, manuscriptID, token string) (*models.Manuscript, error) {
	url := fmt.Sprintf("%s/manuscripts/%s", strings.TrimRight(c.Config.FileServiceURL, "/"), manuscriptID)
	var m models.Manuscript
	if err := c.getJSON(ctx, url, token, &m); err != nil {
		return nil, fmt.Errorf("fetching manuscript metadata: %w", err)
	}
	return &m, nil
}

// Download lädt den Rohinhalt einer Datei. Relative URLs werden gegen
// die Basis-URL des Dienstes aufgelöst.
func (c *Client) Download(ctx context.Context, downloadURL, token string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ResolveURL(downloadURL), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-bot-token", token)

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status: %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// Upload lädt eine gerenderte Datei zum Manuskript hoch und gibt die
// angelegte Datei zurück.
func (c *Client) Upload(ctx context.Context, manuscriptID, filename string, data []byte, fileType, token string) (*UploadedFile, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("files", filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	_ = writer.WriteField("manuscriptId", manuscriptID)
	_ = writer.WriteField("fileType", fileType)
	if err := writer.Close(); err != nil {
		return nil, err
	}

	url := strings.TrimRight(c.Config.FileServiceURL, "/") + "/files"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("x-bot-token", token)

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("upload failed with status: %d", resp.StatusCode)
	}

	var uploadResp struct {
		Files []UploadedFile `json:"files"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&uploadResp); err != nil {
		return nil, err
	}
	if len(uploadResp.Files) == 0 {
		return nil, fmt.Errorf("upload response contained no files")
	}

	c.Logger.Info("Datei hochgeladen",
		zap.String("manuscript_id", manuscriptID),
		zap.String("filename", filename),
		zap.Int("size", len(data)))
	return &uploadResp.Files[0], nil
}

func (c *Client) getJSON(ctx context.Context, url, token string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("x-bot-token", token)

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request failed with status: %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
