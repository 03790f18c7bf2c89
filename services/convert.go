package services

import (
	"context"

	"render-bot/clients/converter"
	"render-bot/models"
)

// generateHTML baut den HTML-Konvertierungs-Request: flache Metadaten,
// selfContained, HTML-Template-Body und alle eingesammelten Assets.
func (rs *RenderService) generateHTML(ctx context.Context, markdown string, tmpl *models.RenderedTemplate, vars models.TemplateVariables, bibliography string, files []models.ManuscriptFile, token string) ([]byte, error) {
	assets := rs.Assets.CollectAssetFiles(ctx, markdown, files, token)
	return rs.Converter.Convert(ctx, converter.Request{
		Markdown:      markdown,
		Engine:        models.EngineHTML,
		Template:      tmpl.HTMLTemplate,
		Metadata:      converter.HTMLMetadata(vars, tmpl),
		Bibliography:  bibliography,
		Assets:        assets,
		SelfContained: true,
	})
}

// generatePDF baut den PDF-Konvertierungs-Request: Template-Body und
// Variablenprofil richten sich nach der gewünschten Engine.
func (rs *RenderService) generatePDF(ctx context.Context, markdown string, tmpl *models.RenderedTemplate, vars models.TemplateVariables, engine, bibliography string, files []models.ManuscriptFile, token string) ([]byte, error) {
	assets := rs.Assets.CollectAssetFiles(ctx, markdown, files, token)
	return rs.Converter.Convert(ctx, converter.Request{
		Markdown:     markdown,
		Engine:       engine,
		Template:     tmpl.EngineTemplate(engine),
		Variables:    converter.PDFVariables(vars, engine),
		OutputFormat: models.OutputPDF,
		Bibliography: bibliography,
		Assets:       assets,
	})
}
