package models

// Ausgabeformate eines Render-Laufs.
const (
	OutputHTML = "html"
	OutputPDF  = "pdf"
)

// JournalConfig ist die pro Journal gespeicherte Bot-Konfiguration,
// wie die Plattform sie mit jedem Render-Auftrag mitschickt.
type JournalConfig struct {
	Template        string                        `json:"template"`
	RenderEngine    string                        `json:"renderEngine"`
	OutputFormats   []string                      `json:"outputFormats"`
	Templates       map[string]TemplateDefinition `json:"templates"`
	CustomTemplates map[string]RenderedTemplate   `json:"customTemplates"`
}

// RenderRequest ist der Auftrag, ein Manuskript zu rendern.
type RenderRequest struct {
	ManuscriptID  string        `json:"manuscriptId" binding:"required"`
	Token         string        `json:"-"`
	Config        JournalConfig `json:"config"`
	Template      string        `json:"template,omitempty"`
	Engine        string        `json:"engine,omitempty"`
	OutputFormats []string      `json:"outputFormats,omitempty"`
}

// TemplateVariables ist der kanonische Variablensatz für die Templates.
// Engine-spezifische Teilmengen werden daraus abgeleitet.
type TemplateVariables struct {
	Title               string         `json:"title"`
	Authors             string         `json:"authors"`
	AuthorList          []AuthorRecord `json:"authorList"`
	CorrespondingAuthor *AuthorRecord  `json:"correspondingAuthor,omitempty"`
	Abstract            string         `json:"abstract"`
	Content             string         `json:"content"`
	JournalName         string         `json:"journalName"`
	Keywords            []string       `json:"keywords"`
	DOI                 string         `json:"doi"`
	ISSN                string         `json:"issn"`
	Volume              string         `json:"volume"`
	Issue               string         `json:"issue"`
	ElocationID         string         `json:"elocationId"`
	SubmittedDate       string         `json:"submittedDate"`
	AcceptedDate        string         `json:"acceptedDate"`
	PublishedDate       string         `json:"publishedDate"`
	PDFURL              string         `json:"pdfUrl"`
}

// AssetFile ist eine für den Konvertierungsdienst eingesammelte Binärdatei.
type AssetFile struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

// RenderOutput beschreibt eine erzeugte Ausgabedatei.
type RenderOutput struct {
	Type        string `json:"type"`
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	Size        int    `json:"size"`
	DownloadURL string `json:"downloadUrl"`
}

// RenderResult ist das einzige Ergebnis eines Render-Versuchs.
// Genau eine Message pro Versuch; Fehler werden nie als Exception
// nach außen gereicht.
type RenderResult struct {
	Success         bool           `json:"success"`
	Message         string         `json:"message"`
	Outputs         []RenderOutput `json:"outputs,omitempty"`
	Warnings        []string       `json:"warnings,omitempty"`
	ProcessedAssets int            `json:"processedAssets"`
}
