package services

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"render-bot/models"
)

// AuthorNormalizer converts heterogeneous manuscript author metadata into
// the stable author shape the templates expect. Irregular metadata never
// blocks a render; the worst case is an empty author list.
type AuthorNormalizer struct {
	Logger *zap.Logger
}

// NewAuthorNormalizer creates a new author normalizer.
func NewAuthorNormalizer(logger *zap.Logger) *AuthorNormalizer {
	return &AuthorNormalizer{Logger: logger}
}

// PrepareAuthorData builds the normalized author data from manuscript
// metadata. Structured authorRelations win over the flat name list; with
// a flat list the first author is corresponding by convention.
func (an *AuthorNormalizer) PrepareAuthorData(m *models.Manuscript) models.AuthorData {
	data := models.AuthorData{AuthorList: []models.AuthorRecord{}}
	if m == nil {
		return data
	}

	switch {
	case len(m.AuthorRelations) > 0:
		data.AuthorList = an.fromRelations(m.AuthorRelations)
	case len(m.Authors) > 0:
		data.AuthorList = an.fromNameList(m.Authors)
	}

	names := make([]string, 0, len(data.AuthorList))
	for i := range data.AuthorList {
		names = append(names, data.AuthorList[i].Name)
		if data.AuthorList[i].IsCorresponding && data.CorrespondingAuthor == nil {
			data.CorrespondingAuthor = &data.AuthorList[i]
		}
	}
	data.AuthorsString = strings.Join(names, ", ")
	data.AuthorCount = len(data.AuthorList)
	return data
}

func (an *AuthorNormalizer) fromRelations(relations []models.AuthorRelation) []models.AuthorRecord {
	sorted := make([]models.AuthorRelation, len(relations))
	copy(sorted, relations)
	// Missing order counts as 0; stable sort keeps input order for ties.
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Order < sorted[j].Order
	})

	records := make([]models.AuthorRecord, 0, len(sorted))
	for _, rel := range sorted {
		name := strings.TrimSpace(rel.User.Name)
		given := strings.TrimSpace(rel.User.GivenNames)
		surname := strings.TrimSpace(rel.User.Surname)
		if given == "" && surname == "" {
			given, surname = ParseNameParts(name)
		}
		if name == "" {
			name = strings.TrimSpace(given + " " + surname)
		}
		records = append(records, models.AuthorRecord{
			ID:              rel.User.ID,
			Name:            name,
			GivenNames:      given,
			Surname:         surname,
			Email:           rel.User.Email,
			ORCID:           rel.User.OrcidID,
			Affiliation:     rel.User.Affiliation,
			IsCorresponding: rel.IsCorresponding,
			Order:           rel.Order,
			IsRegistered:    rel.User.ID != "",
		})
	}
	return records
}

func (an *AuthorNormalizer) fromNameList(names []string) []models.AuthorRecord {
	records := make([]models.AuthorRecord, 0, len(names))
	for i, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			an.Logger.Warn("Skipping empty author name entry", zap.Int("index", i))
			continue
		}
		given, surname := ParseNameParts(name)
		records = append(records, models.AuthorRecord{
			Name:            name,
			GivenNames:      given,
			Surname:         surname,
			IsCorresponding: len(records) == 0,
			Order:           i,
		})
	}
	return records
}

// ParseNameParts splits a full name into given names and surname.
// A comma means "Surname, Given Names"; otherwise the last whitespace
// token is the surname. A single token is a bare surname.
func ParseNameParts(full string) (givenNames, surname string) {
	full = strings.TrimSpace(full)
	if full == "" {
		return "", ""
	}
	if idx := strings.Index(full, ","); idx >= 0 {
		surname = strings.TrimSpace(full[:idx])
		givenNames = strings.TrimSpace(full[idx+1:])
		return givenNames, surname
	}
	tokens := strings.Fields(full)
	if len(tokens) == 1 {
		return "", tokens[0]
	}
	return strings.Join(tokens[:len(tokens)-1], " "), tokens[len(tokens)-1]
}
