package models

// AuthorRecord ist ein normalisierter Autor, wie ihn die Templates erwarten.
type AuthorRecord struct {
	ID              string `json:"id,omitempty"`
	Name            string `json:"name"`
	GivenNames      string `json:"givenNames"`
	Surname         string `json:"surname"`
	Email           string `json:"email,omitempty"`
	ORCID           string `json:"orcid,omitempty"`
	Affiliation     string `json:"affiliation,omitempty"`
	IsCorresponding bool   `json:"isCorresponding"`
	Order           int    `json:"order"`
	IsRegistered    bool   `json:"isRegistered"`
}

// AuthorData bündelt das Ergebnis der Autoren-Normalisierung.
type AuthorData struct {
	AuthorsString       string         `json:"authorsString"`
	AuthorList          []AuthorRecord `json:"authorList"`
	AuthorCount         int            `json:"authorCount"`
	CorrespondingAuthor *AuthorRecord  `json:"correspondingAuthor,omitempty"`
}
