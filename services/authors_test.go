package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"render-bot/models"
)

func TestParseNameParts(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		givenNames string
		surname    string
	}{
		{"comma separated", "Smith, John A.", "John A.", "Smith"},
		{"plain order", "John Smith", "John", "Smith"},
		{"middle names", "Anna Maria Weber", "Anna Maria", "Weber"},
		{"single token", "Prince", "", "Prince"},
		{"empty", "", "", ""},
		{"whitespace only", "   ", "", ""},
		{"comma with spaces", " Müller ,  Hans Peter ", "Hans Peter", "Müller"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			given, surname := ParseNameParts(tt.input)
			assert.Equal(t, tt.givenNames, given)
			assert.Equal(t, tt.surname, surname)
		})
	}
}

func TestPrepareAuthorData_RelationsTakePrecedence(t *testing.T) {
	normalizer := NewAuthorNormalizer(zap.NewNop())

	m := &models.Manuscript{
		AuthorRelations: []models.AuthorRelation{
			{
				Order:           2,
				IsCorresponding: false,
				User:            models.AuthorUser{ID: "u2", Name: "Jane Roe", GivenNames: "Jane", Surname: "Roe"},
			},
			{
				Order:           1,
				IsCorresponding: true,
				User:            models.AuthorUser{ID: "u1", Name: "John Smith", Email: "js@example.org", OrcidID: "0000-0001-2345-6789"},
			},
		},
		// Die flache Liste darf nie gewinnen, wenn Relationen da sind.
		Authors: []string{"A One", "B Two", "C Three"},
	}

	data := normalizer.PrepareAuthorData(m)

	require.Equal(t, 2, data.AuthorCount)
	assert.Equal(t, "John Smith", data.AuthorList[0].Name)
	assert.Equal(t, "Jane Roe", data.AuthorList[1].Name)
	assert.Equal(t, "John Smith, Jane Roe", data.AuthorsString)

	// Name ohne strukturierte Teile wird geparst.
	assert.Equal(t, "John", data.AuthorList[0].GivenNames)
	assert.Equal(t, "Smith", data.AuthorList[0].Surname)

	require.NotNil(t, data.CorrespondingAuthor)
	assert.Equal(t, "John Smith", data.CorrespondingAuthor.Name)
	assert.True(t, data.AuthorList[0].IsRegistered)
}

func TestPrepareAuthorData_FlatNameList(t *testing.T) {
	normalizer := NewAuthorNormalizer(zap.NewNop())

	m := &models.Manuscript{
		Authors: []string{"  Smith, John  ", "Jane Roe", ""},
	}

	data := normalizer.PrepareAuthorData(m)

	require.Equal(t, 2, data.AuthorCount)
	assert.Equal(t, "Smith, John", data.AuthorList[0].Name)
	assert.Equal(t, "John", data.AuthorList[0].GivenNames)
	assert.Equal(t, "Smith", data.AuthorList[0].Surname)

	// Erster Autor ist per Konvention corresponding.
	require.NotNil(t, data.CorrespondingAuthor)
	assert.Equal(t, "Smith, John", data.CorrespondingAuthor.Name)
	assert.False(t, data.AuthorList[1].IsCorresponding)
}

func TestPrepareAuthorData_EmptyMetadata(t *testing.T) {
	normalizer := NewAuthorNormalizer(zap.NewNop())

	data := normalizer.PrepareAuthorData(&models.Manuscript{})
	assert.Equal(t, 0, data.AuthorCount)
	assert.Empty(t, data.AuthorsString)
	assert.Empty(t, data.AuthorList)
	assert.Nil(t, data.CorrespondingAuthor)

	data = normalizer.PrepareAuthorData(nil)
	assert.Equal(t, 0, data.AuthorCount)
	assert.Empty(t, data.AuthorsString)
}
