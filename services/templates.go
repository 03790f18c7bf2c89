package services

import (
	"context"
	"encoding/json"
	"io/fs"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"render-bot/clients/botconfig"
	"render-bot/config"
	"render-bot/models"
	"render-bot/templates"
)

// Name des eingebauten Templates, auf das die Legacy-Dateiauflösung
// zurückfällt.
const fallbackBuiltinName = "academic-standard"

const legacyFilePrefix = "file:"

// BuiltinRegistry hält die mitgelieferten Templates aus dem Binary.
// Geladen wird genau einmal pro Prozess; danach ist die Registry ein
// unveränderlicher Read-Through-Cache.
type BuiltinRegistry struct {
	fsys   fs.FS
	logger *zap.Logger

	once      sync.Once
	templates map[string]*models.RenderedTemplate
}

// NewBuiltinRegistry erstellt die Registry über den eingebetteten
// Template-Baum.
func NewBuiltinRegistry(logger *zap.Logger) *BuiltinRegistry {
	sub, err := fs.Sub(templates.Builtin, "builtin")
	if err != nil {
		// Der eingebettete Baum existiert immer; ein Fehler hier wäre ein Build-Defekt.
		logger.Error("Eingebettete Templates nicht lesbar", zap.Error(err))
		sub = templates.Builtin
	}
	return &BuiltinRegistry{fsys: sub, logger: logger}
}

// NewBuiltinRegistryFromFS erstellt eine Registry über ein beliebiges
// Dateisystem; Tests können so eigene Template-Bäume einspielen.
func NewBuiltinRegistryFromFS(fsys fs.FS, logger *zap.Logger) *BuiltinRegistry {
	return &BuiltinRegistry{fsys: fsys, logger: logger}
}

// builtinMeta ist das Schema von template.json.
type builtinMeta struct {
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	DefaultEngine string         `json:"defaultEngine"`
	Engines       []string       `json:"engines"`
	Metadata      map[string]any `json:"metadata"`
}

func (r *BuiltinRegistry) load() {
	r.templates = map[string]*models.RenderedTemplate{}

	entries, err := fs.ReadDir(r.fsys, ".")
	if err != nil {
		r.logger.Error("Eingebaute Templates konnten nicht geladen werden", zap.Error(err))
		return
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		tmpl := &models.RenderedTemplate{Name: name, Title: name, DefaultEngine: models.EngineHTML}

		if data, err := fs.ReadFile(r.fsys, name+"/template.json"); err == nil {
			var meta builtinMeta
			if err := json.Unmarshal(data, &meta); err != nil {
				r.logger.Warn("Ungültige Template-Metadaten, nutze Defaults",
					zap.String("template", name), zap.Error(err))
			} else {
				if meta.Title != "" {
					tmpl.Title = meta.Title
				}
				tmpl.Description = meta.Description
				if meta.DefaultEngine != "" {
					tmpl.DefaultEngine = meta.DefaultEngine
				}
				tmpl.Engines = meta.Engines
				tmpl.Metadata = meta.Metadata
			}
		}

		// Alle vorhandenen Engine-Varianten auf einmal laden.
		variants := map[string]string{
			models.EngineHTML:  "/template.html",
			models.EngineLaTeX: "/template.tex",
			models.EngineTypst: "/template.typ",
		}
		var found []string
		for engine, filename := range variants {
			if data, err := fs.ReadFile(r.fsys, name+filename); err == nil {
				tmpl.SetEngineTemplate(engine, string(data))
				found = append(found, engine)
			}
		}
		if len(tmpl.Engines) == 0 {
			sort.Strings(found)
			tmpl.Engines = found
		}

		r.templates[name] = tmpl
	}
	r.logger.Info("Eingebaute Templates geladen", zap.Int("count", len(r.templates)))
}

// Get liefert ein eingebautes Template oder nil.
func (r *BuiltinRegistry) Get(name string) *models.RenderedTemplate {
	r.once.Do(r.load)
	return r.templates[name]
}

// All liefert alle eingebauten Templates, alphabetisch nach Name.
func (r *BuiltinRegistry) All() []*models.RenderedTemplate {
	r.once.Do(r.load)
	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]*models.RenderedTemplate, 0, len(names))
	for _, name := range names {
		out = append(out, r.templates[name])
	}
	return out
}

// TemplateResolver löst einen Template-Namen plus Engine gegen die
// konkurrierenden Quellen auf. Die Quellen werden der Reihe nach
// probiert; der erste Treffer gewinnt, Fehler einer Quelle sind immer
// nur ein "tier miss".
type TemplateResolver struct {
	Config   *config.Config
	Logger   *zap.Logger
	BotFiles *botconfig.Client
	Registry *BuiltinRegistry
}

// NewTemplateResolver erstellt einen neuen Template-Resolver.
func NewTemplateResolver(cfg *config.Config, logger *zap.Logger, botFiles *botconfig.Client, registry *BuiltinRegistry) *TemplateResolver {
	return &TemplateResolver{Config: cfg, Logger: logger, BotFiles: botFiles, Registry: registry}
}

type templateSource func(ctx context.Context, name, engine string, jc models.JournalConfig) *models.RenderedTemplate

// GetTemplate liefert garantiert ein Template: Datei-ID-Registry des
// Journals → eingebaute Templates → Legacy-Dateiauflösung ("file:") →
// Legacy-Config-Templates → minimales Fallback.
func (tr *TemplateResolver) GetTemplate(ctx context.Context, name, engine string, jc models.JournalConfig) *models.RenderedTemplate {
	sources := []templateSource{
		tr.fromFileRegistry,
		tr.fromBuiltin,
		tr.fromLegacyFile,
		tr.fromCustomConfig,
	}
	for _, source := range sources {
		if tmpl := source(ctx, name, engine, jc); tmpl != nil {
			return tmpl
		}
	}
	tr.Logger.Warn("Template in keiner Quelle gefunden, nutze Fallback",
		zap.String("template", name), zap.String("engine", engine))
	return FallbackTemplate()
}

// fromFileRegistry löst über die pro Journal registrierten Template-Dateien
// auf und holt den Inhalt vom Bot-Config-Dienst.
func (tr *TemplateResolver) fromFileRegistry(ctx context.Context, name, engine string, jc models.JournalConfig) *models.RenderedTemplate {
	def, ok := jc.Templates[name]
	if !ok {
		return nil
	}
	log := tr.Logger.With(zap.String("template", name), zap.String("engine", engine))

	file, ok := def.FileForEngine(engine)
	if !ok {
		// Deklariert, aber keine Datei für diese Engine: stiller tier miss.
		log.Warn("Registriertes Template hat keine Datei für die Engine")
		return nil
	}

	content, err := tr.BotFiles.GetFileContent(ctx, file.FileID)
	if err != nil {
		log.Warn("Template-Inhalt nicht abrufbar, probiere nächste Quelle", zap.Error(err))
		return nil
	}

	tmpl := &models.RenderedTemplate{
		Name:          name,
		Title:         def.Title,
		Description:   def.Description,
		Engines:       def.Engines(),
		DefaultEngine: def.DefaultEngine,
		Metadata:      def.Metadata,
	}
	if tmpl.Title == "" {
		tmpl.Title = name
	}
	tmpl.SetEngineTemplate(engine, content)
	return tmpl
}

// fromBuiltin schlägt in den mitgelieferten Templates nach.
func (tr *TemplateResolver) fromBuiltin(_ context.Context, name, engine string, _ models.JournalConfig) *models.RenderedTemplate {
	tmpl := tr.Registry.Get(name)
	if tmpl == nil {
		return nil
	}
	if !tmpl.SupportsEngine(engine) {
		// Engine-Mismatch ist hier nicht fatal; der Aufrufer behandelt
		// fehlenden Template-Inhalt.
		tr.Logger.Warn("Eingebautes Template deklariert die Engine nicht",
			zap.String("template", name), zap.String("engine", engine))
	}
	return tmpl
}

// fromLegacyFile behandelt "file:"-Namen: Auflösung über die als
// category=template hochgeladenen Dateien des Bots, optional mit
// gleichnamiger CSS-Datei. Schlägt irgendetwas fehl, fällt die Quelle
// auf das eingebaute Standard-Template zurück und terminiert die Kette.
func (tr *TemplateResolver) fromLegacyFile(ctx context.Context, name, _ string, _ models.JournalConfig) *models.RenderedTemplate {
	if !strings.HasPrefix(name, legacyFilePrefix) {
		return nil
	}
	base := strings.TrimPrefix(name, legacyFilePrefix)
	log := tr.Logger.With(zap.String("template_file", base))

	files, err := tr.BotFiles.ListTemplateFiles(ctx, tr.Config.BotID)
	if err != nil {
		log.Warn("Template-Dateiliste nicht abrufbar, nutze Standard-Template", zap.Error(err))
		return tr.legacyFallback()
	}

	var match *botconfig.ConfigFile
	for i := range files {
		if files[i].Name == base || files[i].Name == base+".html" {
			match = &files[i]
			break
		}
	}
	if match == nil {
		log.Warn("Keine passende Template-Datei gefunden, nutze Standard-Template")
		return tr.legacyFallback()
	}

	content, err := tr.BotFiles.GetFileContent(ctx, match.ID)
	if err != nil {
		log.Warn("Template-Datei nicht lesbar, nutze Standard-Template", zap.Error(err))
		return tr.legacyFallback()
	}

	tmpl := &models.RenderedTemplate{
		Name:          name,
		Title:         strings.TrimSuffix(base, ".html"),
		Engines:       []string{models.EngineHTML},
		DefaultEngine: models.EngineHTML,
		HTMLTemplate:  content,
	}

	// Optionale CSS-Datei mit gleichem Basisnamen.
	cssName := strings.TrimSuffix(base, ".html") + ".css"
	for i := range files {
		if files[i].Name != cssName {
			continue
		}
		css, err := tr.BotFiles.GetFileContent(ctx, files[i].ID)
		if err != nil {
			log.Warn("CSS-Datei nicht lesbar, Template bleibt ohne Stylesheet", zap.Error(err))
			break
		}
		tmpl.CSSTemplate = css
		break
	}
	return tmpl
}

func (tr *TemplateResolver) legacyFallback() *models.RenderedTemplate {
	if tmpl := tr.Registry.Get(fallbackBuiltinName); tmpl != nil {
		return tmpl
	}
	return FallbackTemplate()
}

// fromCustomConfig liefert Legacy-Templates, die komplett in der
// Journal-Konfiguration stecken, unverändert aus.
func (tr *TemplateResolver) fromCustomConfig(_ context.Context, name, _ string, jc models.JournalConfig) *models.RenderedTemplate {
	if tmpl, ok := jc.CustomTemplates[name]; ok {
		out := tmpl
		if out.Name == "" {
			out.Name = name
		}
		return &out
	}
	return nil
}

// ListTemplates liefert die für ein Journal sichtbaren Templates:
// registrierte Templates überdecken gleichnamige eingebaute.
func (tr *TemplateResolver) ListTemplates(jc models.JournalConfig) []models.RenderedTemplate {
	byName := map[string]models.RenderedTemplate{}

	for _, tmpl := range tr.Registry.All() {
		entry := *tmpl
		// Nur die Beschreibung nach außen geben, nicht die Template-Texte.
		entry.HTMLTemplate, entry.LaTeXTemplate, entry.TypstTemplate, entry.CSSTemplate = "", "", "", ""
		byName[tmpl.Name] = entry
	}
	for name, def := range jc.Templates {
		title := def.Title
		if title == "" {
			title = name
		}
		byName[name] = models.RenderedTemplate{
			Name:          name,
			Title:         title,
			Description:   def.Description,
			Engines:       def.Engines(),
			DefaultEngine: def.DefaultEngine,
			Metadata:      def.Metadata,
		}
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]models.RenderedTemplate, 0, len(names))
	for _, name := range names {
		out = append(out, byName[name])
	}
	return out
}

// FallbackTemplate ist das hart kodierte Minimal-Template. Es deklariert
// alle drei Engines und garantiert, dass die Auflösung nie leer ausgeht.
func FallbackTemplate() *models.RenderedTemplate {
	return &models.RenderedTemplate{
		Name:          "fallback",
		Title:         "Fallback",
		Description:   "Minimal built-in fallback used when no other template source matches.",
		Engines:       []string{models.EngineHTML, models.EngineLaTeX, models.EngineTypst},
		DefaultEngine: models.EngineHTML,
		HTMLTemplate: `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>$title$</title></head>
<body>
<h1>$title$</h1>
<p><em>$authors$</em></p>
$body$
</body>
</html>
`,
		LaTeXTemplate: `\documentclass{article}
\usepackage[utf8]{inputenc}
\title{$title$}
\author{$authors$}
\begin{document}
\maketitle
$body$
\end{document}
`,
		TypstTemplate: `#align(center)[#text(size: 16pt, weight: "bold")[$title$]]
#align(center)[$authors$]

$body$
`,
	}
}
