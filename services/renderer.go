package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"render-bot/clients/converter"
	"render-bot/clients/fileservice"
	"render-bot/config"
	"render-bot/models"
	"render-bot/storage"
)

// RenderService orchestriert einen kompletten Render-Lauf: Dateien und
// Metadaten holen, Template auflösen, Inhalt und Autoren aufbereiten,
// pro Ausgabeformat konvertieren und das Ergebnis zurückspielen.
type RenderService struct {
	Config    *config.Config
	Logger    *zap.Logger
	Files     *fileservice.Client
	Templates *TemplateResolver
	Assets    *AssetProcessor
	Authors   *AuthorNormalizer
	Converter *converter.Client
	Archive   *storage.Archive
}

// NewRenderService erstellt einen neuen Render-Service. Archive darf nil
// sein, dann wird nichts archiviert.
func NewRenderService(cfg *config.Config, logger *zap.Logger, files *fileservice.Client, templates *TemplateResolver, assets *AssetProcessor, authors *AuthorNormalizer, conv *converter.Client, archive *storage.Archive) *RenderService {
	return &RenderService{
		Config:    cfg,
		Logger:    logger,
		Files:     files,
		Templates: templates,
		Assets:    assets,
		Authors:   authors,
		Converter: conv,
		Archive:   archive,
	}
}

// Render führt einen Render-Auftrag aus. Die Methode liefert immer genau
// ein Ergebnis mit genau einer Message; Fehler aus den Zwischenschritten
// werden hier in eine Fehlermeldung umgewandelt und nie weitergereicht.
func (rs *RenderService) Render(ctx context.Context, req models.RenderRequest) *models.RenderResult {
	log := rs.Logger.With(zap.String("manuscript_id", req.ManuscriptID))

	result, err := rs.render(ctx, req, log)
	if err != nil {
		log.Error("Render-Lauf fehlgeschlagen", zap.Error(err))
		return &models.RenderResult{
			Success: false,
			Message: fmt.Sprintf("Failed to render manuscript: %s", err),
		}
	}
	return result
}

func (rs *RenderService) render(ctx context.Context, req models.RenderRequest, log *zap.Logger) (*models.RenderResult, error) {
	// 1. Ohne Service-Token geht nichts.
	token := req.Token
	if token == "" {
		token = rs.Config.ServiceToken
	}
	if token == "" {
		return &models.RenderResult{
			Success: false,
			Message: "Authentication failed: no service token is configured for this bot.",
		}, nil
	}

	// 2. Manuskript-Dateien holen und die Markdown-Quelle finden.
	files, err := rs.Files.ListFiles(ctx, req.ManuscriptID, token)
	if err != nil {
		return nil, err
	}
	source := findMarkdownFile(files)
	if source == nil {
		log.Info("Kein Markdown-Manuskript gefunden", zap.Int("file_count", len(files)))
		return &models.RenderResult{
			Success: false,
			Message: "No Markdown file found for this manuscript. Upload a Markdown source file and try again.",
		}, nil
	}

	// 3. Template für die konfigurierte Engine auflösen.
	templateName := firstNonEmpty(req.Template, req.Config.Template, rs.Config.DefaultTemplate)
	engine := firstNonEmpty(req.Engine, req.Config.RenderEngine, rs.Config.DefaultEngine)
	tmpl := rs.Templates.GetTemplate(ctx, templateName, engine, req.Config)

	// 4. Markdown laden und Asset-Referenzen auflösen.
	raw, err := rs.Files.Download(ctx, source.DownloadURL, token)
	if err != nil {
		return nil, fmt.Errorf("downloading markdown source %s: %w", source.OriginalName, err)
	}
	processed := rs.Assets.ProcessMarkdownContent(string(raw), files, true)

	// 5. Optionale Bibliographie.
	bibliography := ""
	if bibFile := findBibliographyFile(files); bibFile != nil {
		data, err := rs.Files.Download(ctx, bibFile.DownloadURL, token)
		if err != nil {
			log.Warn("Bibliographie nicht ladbar, rendere ohne",
				zap.String("filename", bibFile.OriginalName), zap.Error(err))
			processed.Warnings = append(processed.Warnings,
				fmt.Sprintf("Bibliography file %s could not be loaded", bibFile.OriginalName))
		} else {
			bibliography = string(data)
		}
	}

	// 6. Metadaten und Autoren aufbereiten.
	manuscript, err := rs.Files.GetManuscript(ctx, req.ManuscriptID, token)
	if err != nil {
		return nil, fmt.Errorf("fetching manuscript metadata: %w", err)
	}
	authorData := rs.Authors.PrepareAuthorData(manuscript)
	vars := buildTemplateVariables(manuscript, authorData, processed.HTML)

	// 7. Pro Ausgabeformat konvertieren und hochladen.
	formats := req.OutputFormats
	if len(formats) == 0 {
		formats = req.Config.OutputFormats
	}
	if len(formats) == 0 {
		formats = []string{models.OutputPDF}
	}
	// PDF vor HTML rendern, damit die HTML-Ausgabe auf das fertige PDF
	// verlinken kann.
	sort.SliceStable(formats, func(i, j int) bool {
		return strings.EqualFold(formats[i], models.OutputPDF) && !strings.EqualFold(formats[j], models.OutputPDF)
	})
	baseName := strings.TrimSuffix(source.OriginalName, filepath.Ext(source.OriginalName))

	var outputs []models.RenderOutput
	for _, format := range formats {
		var (
			data    []byte
			outName string
			outType string
		)
		switch strings.ToLower(format) {
		case models.OutputHTML:
			// HTML-Ausgabe nutzt immer das html-Engine-Template, auch wenn
			// das PDF über LaTeX oder Typst läuft.
			htmlTmpl := rs.Templates.GetTemplate(ctx, templateName, models.EngineHTML, req.Config)
			data, err = rs.generateHTML(ctx, processed.Markdown, htmlTmpl, vars, bibliography, files, token)
			outName, outType = baseName+".html", "HTML"
		case models.OutputPDF:
			pdfTmpl := rs.Templates.GetTemplate(ctx, templateName, engine, req.Config)
			data, err = rs.generatePDF(ctx, processed.Markdown, pdfTmpl, vars, engine, bibliography, files, token)
			outName, outType = baseName+".pdf", "PDF"
		default:
			log.Warn("Unbekanntes Ausgabeformat, überspringe", zap.String("format", format))
			continue
		}
		if err != nil {
			return nil, err
		}

		uploaded, err := rs.Files.Upload(ctx, req.ManuscriptID, outName, data, models.FileTypeRendered, token)
		if err != nil {
			return nil, fmt.Errorf("uploading %s: %w", outName, err)
		}
		if outType == "PDF" {
			vars.PDFURL = rs.Files.ResolveURL(uploaded.DownloadURL)
		}
		outputs = append(outputs, models.RenderOutput{
			Type:        outType,
			ID:          uploaded.ID,
			Filename:    outName,
			Size:        len(data),
			DownloadURL: uploaded.DownloadURL,
		})

		if rs.Archive != nil {
			if _, err := rs.Archive.Store(ctx, req.ManuscriptID, outName, data); err != nil {
				// Archivierung ist Komfort, nie Render-kritisch.
				log.Warn("Archivierung fehlgeschlagen", zap.String("filename", outName), zap.Error(err))
			}
		}
	}

	log.Info("Render-Lauf abgeschlossen",
		zap.String("template", tmpl.Name),
		zap.String("engine", engine),
		zap.Int("outputs", len(outputs)),
		zap.Int("processed_assets", processed.ProcessedAssets))

	return &models.RenderResult{
		Success:         true,
		Message:         composeSuccessMessage(source.OriginalName, tmpl, engine, outputs, processed),
		Outputs:         outputs,
		Warnings:        processed.Warnings,
		ProcessedAssets: processed.ProcessedAssets,
	}, nil
}

// findMarkdownFile sucht die Markdown-Quelle in zwei Stufen: SOURCE-Datei
// mit Markdown-Kennzeichen, danach jede Datei mit Markdown-Kennzeichen,
// egal ob erkanntes Format oder nur die Dateiendung.
func findMarkdownFile(files []models.ManuscriptFile) *models.ManuscriptFile {
	for i := range files {
		if files[i].FileType == models.FileTypeSource && files[i].IsMarkdown() {
			return &files[i]
		}
	}
	for i := range files {
		if files[i].IsMarkdown() {
			return &files[i]
		}
	}
	return nil
}

// findBibliographyFile sucht eine Bibliographie über Dateityp, Endung
// oder erkanntes Format. Keine zu finden ist kein Fehler.
func findBibliographyFile(files []models.ManuscriptFile) *models.ManuscriptFile {
	for i := range files {
		if files[i].FileType == models.FileTypeBibliography {
			return &files[i]
		}
	}
	for i := range files {
		name := strings.ToLower(files[i].OriginalName)
		if strings.HasSuffix(name, ".bib") || strings.HasSuffix(name, ".bibtex") || files[i].DetectedFormat == "bibtex" {
			return &files[i]
		}
	}
	return nil
}

// buildTemplateVariables baut den kanonischen Variablensatz aus Metadaten,
// normalisierten Autoren und dem gerenderten Inhalt.
func buildTemplateVariables(m *models.Manuscript, authors models.AuthorData, contentHTML string) models.TemplateVariables {
	return models.TemplateVariables{
		Title:               m.Title,
		Authors:             authors.AuthorsString,
		AuthorList:          authors.AuthorList,
		CorrespondingAuthor: authors.CorrespondingAuthor,
		Abstract:            m.Abstract,
		Content:             contentHTML,
		JournalName:         m.JournalName,
		Keywords:            m.Keywords,
		DOI:                 m.DOI,
		ISSN:                m.ISSN,
		Volume:              m.Volume,
		Issue:               m.Issue,
		ElocationID:         m.ElocationID,
		SubmittedDate:       m.SubmittedDate,
		AcceptedDate:        m.AcceptedDate,
		PublishedDate:       m.PublishedDate,
	}
}

// composeSuccessMessage baut die eine nutzersichtbare Erfolgsmeldung.
func composeSuccessMessage(sourceName string, tmpl *models.RenderedTemplate, engine string, outputs []models.RenderOutput, processed ProcessedContent) string {
	var b strings.Builder
	b.WriteString("Manuscript rendered successfully.\n\n")
	fmt.Fprintf(&b, "Source: %s\n", sourceName)
	fmt.Fprintf(&b, "Template: %s (%s engine)\n", tmpl.Title, engine)

	b.WriteString("\nOutputs:\n")
	for _, out := range outputs {
		fmt.Fprintf(&b, "- %s: %s (%s)", out.Type, out.Filename, humanSize(out.Size))
		if out.DownloadURL != "" {
			fmt.Fprintf(&b, ", %s", out.DownloadURL)
		}
		b.WriteString("\n")
	}

	if processed.ProcessedAssets > 0 {
		fmt.Fprintf(&b, "\nProcessed %d asset reference(s).\n", processed.ProcessedAssets)
	}
	if len(processed.Warnings) > 0 {
		b.WriteString("\nWarnings:\n")
		for _, w := range processed.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func humanSize(size int) string {
	switch {
	case size >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(size)/(1<<20))
	case size >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(size)/(1<<10))
	default:
		return fmt.Sprintf("%d B", size)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
