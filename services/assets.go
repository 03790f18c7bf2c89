package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
	"go.uber.org/zap"

	"render-bot/clients/fileservice"
	"render-bot/models"
)

// refPattern matcht Bild- und Link-Referenzen in einem Rutsch;
// Gruppe 1 unterscheidet Bild (!) von Link.
var refPattern = regexp.MustCompile(`(!?)\[([^\]]*)\]\(([^)\s]+)(?:\s+"[^"]*")?\)`)

// markdownConverter rendert GitHub-flavored Markdown; harte Zeilenumbrüche
// bleiben Absatz-relevant, wie es die Manuskript-Quellen erwarten.
var markdownConverter = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(
		goldmarkhtml.WithHardWraps(),
		goldmarkhtml.WithUnsafe(),
	),
)

// sanitizer entfernt ausführbare Inhalte aus dem erzeugten HTML.
// Das HTML landet direkt in Browser-Seiten, Sanitizing ist Pflicht.
var sanitizer = bluemonday.UGCPolicy()

// ProcessedContent bündelt das Ergebnis der Markdown-Verarbeitung.
type ProcessedContent struct {
	HTML            string   `json:"html"`
	Markdown        string   `json:"markdown"`
	ProcessedAssets int      `json:"processedAssets"`
	Warnings        []string `json:"warnings"`
}

// AssetProcessor schreibt Asset-Referenzen in Markdown auf den File-Store
// um und sammelt Binär-Assets für zustandslose Konvertierungs-Aufrufe ein.
type AssetProcessor struct {
	Logger *zap.Logger
	Files  *fileservice.Client
}

// NewAssetProcessor erstellt einen neuen Asset-Prozessor.
func NewAssetProcessor(logger *zap.Logger, files *fileservice.Client) *AssetProcessor {
	return &AssetProcessor{Logger: logger, Files: files}
}

// ProcessMarkdownContent schreibt Bild- und Link-Referenzen auf absolute
// Download-URLs um und konvertiert das Dokument zu sanitisiertem HTML.
// Fehlende Assets erzeugen Warnungen, brechen aber nie ab.
func (ap *AssetProcessor) ProcessMarkdownContent(content string, files []models.ManuscriptFile, includeAssets bool) ProcessedContent {
	result := ProcessedContent{Markdown: content, Warnings: []string{}}

	if includeAssets {
		result.Markdown = refPattern.ReplaceAllStringFunc(content, func(ref string) string {
			parts := refPattern.FindStringSubmatch(ref)
			if parts == nil {
				return ref
			}
			isImage, altText, target := parts[1] == "!", parts[2], parts[3]

			// Externe URLs und Daten-URIs bleiben unangetastet.
			if hasURLScheme(target) {
				return ref
			}

			asset := matchAssetFile(files, target)
			if asset == nil {
				if isImage {
					result.Warnings = append(result.Warnings,
						fmt.Sprintf("Image asset %q referenced in the manuscript was not found among the uploaded files", stripRefPrefix(target)))
				}
				// Nicht auflösbare Links sind kein Fehler: Link-Ziele müssen
				// keine lokalen Assets sein.
				return ref
			}

			resolved := ap.Files.ResolveURL(asset.DownloadURL)
			if isImage {
				// inline=true erlaubt das öffentliche Anzeigen im erzeugten HTML.
				resolved = appendInlineParam(resolved)
				result.ProcessedAssets++
				return fmt.Sprintf("![%s](%s)", altText, resolved)
			}
			return fmt.Sprintf("[%s](%s)", altText, resolved)
		})
	}

	var buf bytes.Buffer
	if err := markdownConverter.Convert([]byte(result.Markdown), &buf); err != nil {
		ap.Logger.Error("Markdown-Konvertierung fehlgeschlagen", zap.Error(err))
		result.Warnings = append(result.Warnings, "Markdown could not be converted to HTML")
		return result
	}
	result.HTML = sanitizer.Sanitize(buf.String())
	return result
}

// CollectAssetFiles lädt alle im Markdown referenzierten Bild-Assets
// herunter und kodiert sie base64 für den Konvertierungs-Request.
// Fehlgeschlagene Downloads werden geloggt und übersprungen.
func (ap *AssetProcessor) CollectAssetFiles(ctx context.Context, markdown string, files []models.ManuscriptFile, token string) []models.AssetFile {
	var collected []models.AssetFile
	seen := map[string]bool{}

	for _, parts := range refPattern.FindAllStringSubmatch(markdown, -1) {
		if parts[1] != "!" {
			continue
		}
		target := parts[3]
		if hasURLScheme(target) {
			continue
		}
		name := stripRefPrefix(target)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		asset := matchAssetFile(files, target)
		if asset == nil {
			continue
		}

		data, err := ap.Files.Download(ctx, asset.DownloadURL, token)
		if err != nil {
			ap.Logger.Warn("Asset-Download fehlgeschlagen, überspringe Asset",
				zap.String("filename", asset.OriginalName),
				zap.Error(err))
			continue
		}
		collected = append(collected, models.AssetFile{
			Filename: asset.OriginalName,
			Content:  base64.StdEncoding.EncodeToString(data),
			Encoding: "base64",
		})
	}
	return collected
}

// matchAssetFile sucht ein ASSET zu einer Markdown-Referenz: erst exakter
// Name, dann Pfad-Suffix (Manuskripte referenzieren oft "figures/x.png",
// während der Store nur "x.png" kennt).
func matchAssetFile(files []models.ManuscriptFile, target string) *models.ManuscriptFile {
	name := stripRefPrefix(target)
	if name == "" {
		return nil
	}
	for i := range files {
		if files[i].FileType != models.FileTypeAsset {
			continue
		}
		if files[i].OriginalName == name {
			return &files[i]
		}
	}
	for i := range files {
		if files[i].FileType != models.FileTypeAsset {
			continue
		}
		if strings.HasSuffix(files[i].Path, name) || strings.HasSuffix(files[i].OriginalName, name) {
			return &files[i]
		}
	}
	return nil
}

func stripRefPrefix(target string) string {
	target = strings.TrimPrefix(target, "./")
	return strings.TrimPrefix(target, "/")
}

func hasURLScheme(target string) bool {
	return strings.HasPrefix(target, "http://") ||
		strings.HasPrefix(target, "https://") ||
		strings.HasPrefix(target, "data:") ||
		strings.HasPrefix(target, "mailto:")
}

func appendInlineParam(url string) string {
	if strings.Contains(url, "?") {
		return url + "&inline=true"
	}
	return url + "?inline=true"
}
