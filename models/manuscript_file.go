package models

import "strings"

// Dateitypen, wie sie der File-Storage-Dienst vergibt.
const (
	FileTypeSource       = "SOURCE"
	FileTypeAsset        = "ASSET"
	FileTypeBibliography = "BIBLIOGRAPHY"
	FileTypeRendered     = "RENDERED"
)

// ManuscriptFile repräsentiert eine Datei, die an einem Manuskript hängt.
// Die Daten gehören dem File-Storage-Dienst; der Bot liest sie nur.
type ManuscriptFile struct {
	ID             string `json:"id"`
	OriginalName   string `json:"originalName"`
	Mimetype       string `json:"mimetype"`
	FileType       string `json:"fileType"`
	DetectedFormat string `json:"detectedFormat"`
	DownloadURL    string `json:"downloadUrl"`
	Path           string `json:"path"`
}

// IsMarkdown prüft anhand von Format, Mimetype und Dateiendung,
// ob die Datei Markdown enthält.
func (f *ManuscriptFile) IsMarkdown() bool {
	return f.HasMarkdownFormat() || f.HasMarkdownExtension()
}

// HasMarkdownFormat prüft nur erkannte Formate und Mimetype.
func (f *ManuscriptFile) HasMarkdownFormat() bool {
	return f.DetectedFormat == "markdown" || strings.Contains(f.Mimetype, "markdown")
}

// HasMarkdownExtension prüft nur die Dateiendung.
func (f *ManuscriptFile) HasMarkdownExtension() bool {
	name := strings.ToLower(f.OriginalName)
	return strings.HasSuffix(name, ".md") || strings.HasSuffix(name, ".markdown")
}

// AuthorRelation ist ein strukturierter Autoren-Eintrag aus den
// Manuskript-Metadaten.
type AuthorRelation struct {
	Order           int        `json:"order"`
	IsCorresponding bool       `json:"isCorresponding"`
	User            AuthorUser `json:"user"`
}

// AuthorUser sind die Nutzerdaten innerhalb einer AuthorRelation.
type AuthorUser struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	GivenNames  string `json:"givenNames"`
	Surname     string `json:"surname"`
	Email       string `json:"email"`
	OrcidID     string `json:"orcidId"`
	Affiliation string `json:"affiliation"`
}

// Manuscript bündelt die Metadaten eines Manuskripts, wie sie der
// File-Storage-Dienst unter /manuscripts/:id liefert. Autoren kommen
// entweder strukturiert (AuthorRelations) oder als flache Namensliste.
type Manuscript struct {
	ID              string           `json:"id"`
	Title           string           `json:"title"`
	Abstract        string           `json:"abstract"`
	AuthorRelations []AuthorRelation `json:"authorRelations"`
	Authors         []string         `json:"authors"`
	JournalName     string           `json:"journalName"`
	Keywords        []string         `json:"keywords"`
	DOI             string           `json:"doi"`
	ISSN            string           `json:"issn"`
	Volume          string           `json:"volume"`
	Issue           string           `json:"issue"`
	ElocationID     string           `json:"elocationId"`
	SubmittedDate   string           `json:"submittedDate"`
	AcceptedDate    string           `json:"acceptedDate"`
	PublishedDate   string           `json:"publishedDate"`
}
