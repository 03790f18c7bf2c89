package converter

import (
	"encoding/json"
	"strings"

	"render-bot/models"
)

// Default-Linkziele für den Citation-Hover, wenn das Template nur
// "citationHover: true" deklariert.
var defaultCitationLinks = []string{"doi", "crossref", "google-scholar"}

// HTMLMetadata baut die flache Metadaten-Map für die HTML-Engine.
// Die HTML-Engine erwartet eine schmalere Form als LaTeX/Typst:
// Autoren als String, Keywords als Liste, plus den Citation-Hover-Block
// aus den Template-Metadaten.
func HTMLMetadata(vars models.TemplateVariables, tmpl *models.RenderedTemplate) map[string]any {
	meta := map[string]any{
		"title":         vars.Title,
		"authors":       vars.Authors,
		"abstract":      vars.Abstract,
		"journalName":   vars.JournalName,
		"keywords":      vars.Keywords,
		"doi":           vars.DOI,
		"issn":          vars.ISSN,
		"volume":        vars.Volume,
		"issue":         vars.Issue,
		"elocationId":   vars.ElocationID,
		"submittedDate": vars.SubmittedDate,
		"acceptedDate":  vars.AcceptedDate,
		"publishedDate": vars.PublishedDate,
		"pdfUrl":        vars.PDFURL,
	}
	if hover := citationHoverBlock(tmpl); hover != nil {
		meta["citationHover"] = hover
	}
	return meta
}

// PDFVariables baut den Variablensatz für die PDF-Erzeugung.
// LaTeX und Typst bekommen den vollen Autoren- und Metadatensatz,
// die HTML-Engine die vereinfachte Form.
func PDFVariables(vars models.TemplateVariables, engine string) map[string]any {
	if engine == models.EngineHTML {
		out := map[string]any{
			"title":         vars.Title,
			"authors":       vars.Authors,
			"authorList":    vars.AuthorList,
			"abstract":      vars.Abstract,
			"content":       vars.Content,
			"journalName":   vars.JournalName,
			"doi":           vars.DOI,
			"publishedDate": vars.PublishedDate,
		}
		return out
	}

	out := map[string]any{
		"title":         vars.Title,
		"authors":       vars.Authors,
		"authorList":    vars.AuthorList,
		"abstract":      vars.Abstract,
		"journalName":   vars.JournalName,
		"keywords":      vars.Keywords,
		"doi":           vars.DOI,
		"issn":          vars.ISSN,
		"volume":        vars.Volume,
		"issue":         vars.Issue,
		"elocationId":   vars.ElocationID,
		"submittedDate": vars.SubmittedDate,
		"acceptedDate":  vars.AcceptedDate,
		"publishedDate": vars.PublishedDate,
	}
	if vars.CorrespondingAuthor != nil {
		out["correspondingAuthor"] = vars.CorrespondingAuthor
	}
	return out
}

// citationHoverBlock leitet den Feature-Block aus den Template-Metadaten ab.
// Unterstützt wird die Bool-Kurzform ("citationHover": true) und die
// explizite Objektform mit enabled/links/customLinks.
func citationHoverBlock(tmpl *models.RenderedTemplate) map[string]any {
	if tmpl == nil || tmpl.Metadata == nil {
		return nil
	}
	raw, ok := tmpl.Metadata["citationHover"]
	if !ok {
		return nil
	}

	switch v := raw.(type) {
	case bool:
		if !v {
			return nil
		}
		return map[string]any{
			"enabled": true,
			"links":   quoteEmbed(defaultCitationLinks),
		}
	case map[string]any:
		enabled, _ := v["enabled"].(bool)
		if !enabled {
			return nil
		}
		block := map[string]any{"enabled": true}
		if links, ok := v["links"]; ok {
			block["links"] = quoteEmbed(links)
		} else {
			block["links"] = quoteEmbed(defaultCitationLinks)
		}
		if custom, ok := v["customLinks"]; ok {
			block["customLinks"] = quoteEmbed(custom)
		}
		return block
	default:
		return nil
	}
}

// quoteEmbed serialisiert Link-Listen/Maps als JSON mit einfachen
// Anführungszeichen, damit der String gefahrlos in HTML-Attribute
// eingebettet werden kann.
func quoteEmbed(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return strings.ReplaceAll(string(data), `"`, `'`)
}
