package models

// Unterstützte Engines des Konvertierungsdienstes.
const (
	EngineHTML  = "html"
	EngineLaTeX = "latex"
	EngineTypst = "typst"
)

// TemplateFile verweist auf eine hinterlegte Template-Datei einer Engine.
type TemplateFile struct {
	FileID   string `json:"fileId"`
	Filename string `json:"filename"`
	Engine   string `json:"engine"`
}

// TemplateDefinition ist ein benanntes Template, wie es in der
// Journal-Konfiguration registriert wird.
type TemplateDefinition struct {
	Name          string         `json:"name"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	DefaultEngine string         `json:"defaultEngine"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	Files         []TemplateFile `json:"files"`
}

// FileForEngine liefert den ersten Datei-Eintrag für die gewünschte Engine.
// Bei mehreren Einträgen pro Engine gewinnt der erste.
func (d *TemplateDefinition) FileForEngine(engine string) (TemplateFile, bool) {
	for _, f := range d.Files {
		if f.Engine == engine {
			return f, true
		}
	}
	return TemplateFile{}, false
}

// Engines listet alle Engines, für die Dateien hinterlegt sind.
func (d *TemplateDefinition) Engines() []string {
	seen := map[string]bool{}
	var engines []string
	for _, f := range d.Files {
		if !seen[f.Engine] {
			seen[f.Engine] = true
			engines = append(engines, f.Engine)
		}
	}
	return engines
}

// RenderedTemplate ist das aufgelöste Ergebnis der Template-Suche.
// Es lebt nur im Speicher eines Render-Aufrufs und wird nie gecacht,
// weil sich die entfernten Quellen zwischen Aufrufen ändern können.
type RenderedTemplate struct {
	Name          string         `json:"name"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	Engines       []string       `json:"engines"`
	DefaultEngine string         `json:"defaultEngine"`
	HTMLTemplate  string         `json:"htmlTemplate,omitempty"`
	LaTeXTemplate string         `json:"latexTemplate,omitempty"`
	TypstTemplate string         `json:"typstTemplate,omitempty"`
	CSSTemplate   string         `json:"cssTemplate,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// EngineTemplate liefert den Template-Text für eine Engine
// (leerer String, wenn nichts hinterlegt ist).
func (t *RenderedTemplate) EngineTemplate(engine string) string {
	switch engine {
	case EngineLaTeX:
		return t.LaTeXTemplate
	case EngineTypst:
		return t.TypstTemplate
	default:
		return t.HTMLTemplate
	}
}

// SetEngineTemplate hinterlegt den Template-Text für eine Engine.
func (t *RenderedTemplate) SetEngineTemplate(engine, content string) {
	switch engine {
	case EngineLaTeX:
		t.LaTeXTemplate = content
	case EngineTypst:
		t.TypstTemplate = content
	default:
		t.HTMLTemplate = content
	}
}

// SupportsEngine prüft die deklarierte Engine-Liste.
// Eine leere Liste gilt als "keine Einschränkung".
func (t *RenderedTemplate) SupportsEngine(engine string) bool {
	if len(t.Engines) == 0 {
		return true
	}
	for _, e := range t.Engines {
		if e == engine {
			return true
		}
	}
	return false
}
