package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"render-bot/clients/botconfig"
	"render-bot/clients/converter"
	"render-bot/clients/fileservice"
	"render-bot/config"
	"render-bot/models"
)

// fakePlatform spielt den File-Storage-Dienst für einen Render-Lauf nach.
type fakePlatform struct {
	files       []models.ManuscriptFile
	manuscript  models.Manuscript
	contents    map[string]string
	uploadNames []string
}

func (fp *fakePlatform) server(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/files" && r.Method == http.MethodGet:
			_ = json.NewEncoder(w).Encode(fp.files)
		case r.URL.Path == "/files" && r.Method == http.MethodPost:
			require.NoError(t, r.ParseMultipartForm(32<<20))
			fh := r.MultipartForm.File["files"][0]
			fp.uploadNames = append(fp.uploadNames, fh.Filename)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"files": []map[string]string{
					{"id": "out-1", "filename": fh.Filename, "downloadUrl": "/files/out-1"},
				},
			})
		case r.URL.Path == "/manuscripts/m1":
			_ = json.NewEncoder(w).Encode(fp.manuscript)
		default:
			if content, ok := fp.contents[r.URL.Path]; ok {
				_, _ = w.Write([]byte(content))
				return
			}
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newRenderService(t *testing.T, fileURL, convURL string) *RenderService {
	t.Helper()
	cfg := &config.Config{
		BotID:                "markdown-renderer",
		FileServiceURL:       fileURL,
		BotConfigServiceURL:  "http://localhost:0",
		ConversionServiceURL: convURL,
		DefaultTemplate:      "academic-standard",
		DefaultEngine:        models.EngineLaTeX,
	}
	logger := zap.NewNop()
	fileClient := fileservice.NewClient(cfg, logger)
	registry := NewBuiltinRegistry(logger)
	resolver := NewTemplateResolver(cfg, logger, botconfig.NewClient(cfg, logger), registry)
	return NewRenderService(cfg, logger,
		fileClient,
		resolver,
		NewAssetProcessor(logger, fileClient),
		NewAuthorNormalizer(logger),
		converter.NewClient(cfg, logger),
		nil)
}

func happyPlatform() *fakePlatform {
	return &fakePlatform{
		files: []models.ManuscriptFile{
			{ID: "src", OriginalName: "paper.md", FileType: models.FileTypeSource, DetectedFormat: "markdown", DownloadURL: "/files/src"},
			{ID: "abc", OriginalName: "chart.png", FileType: models.FileTypeAsset, DownloadURL: "/files/abc"},
		},
		manuscript: models.Manuscript{
			ID:      "m1",
			Title:   "A Study of Things",
			Authors: []string{"John Smith", "Jane Roe"},
			DOI:     "10.1234/demo",
		},
		contents: map[string]string{
			"/files/src": "# Heading\n\n![chart](chart.png)\n",
			"/files/abc": "PNGDATA",
		},
	}
}

func TestRender_HappyPathHTML(t *testing.T) {
	fp := happyPlatform()
	fileSrv := fp.server(t)
	defer fileSrv.Close()

	var convReq converter.Request
	convSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&convReq))
		_, _ = w.Write([]byte("<html>rendered</html>"))
	}))
	defer convSrv.Close()

	rs := newRenderService(t, fileSrv.URL, convSrv.URL)
	result := rs.Render(context.Background(), models.RenderRequest{
		ManuscriptID:  "m1",
		Token:         "tok",
		OutputFormats: []string{models.OutputHTML},
	})

	require.True(t, result.Success, result.Message)
	require.Len(t, result.Outputs, 1)
	assert.Equal(t, "HTML", result.Outputs[0].Type)
	assert.Equal(t, "paper.html", result.Outputs[0].Filename)
	assert.Equal(t, len("<html>rendered</html>"), result.Outputs[0].Size)

	// Genau ein Upload mit dem Basisnamen der Quelle.
	assert.Equal(t, []string{"paper.html"}, fp.uploadNames)

	assert.Equal(t, 1, result.ProcessedAssets)
	assert.Contains(t, result.Message, "paper.md")
	assert.Contains(t, result.Message, "Processed 1 asset")
	assert.Empty(t, result.Warnings)

	// Der Konvertierungs-Request trägt Template, Metadaten und das Asset.
	assert.Equal(t, models.EngineHTML, convReq.Engine)
	assert.True(t, convReq.SelfContained)
	assert.NotEmpty(t, convReq.Template)
	assert.Equal(t, "A Study of Things", convReq.Metadata["title"])
	assert.Equal(t, "John Smith, Jane Roe", convReq.Metadata["authors"])
	require.Len(t, convReq.Assets, 1)
	assert.Equal(t, "chart.png", convReq.Assets[0].Filename)
	assert.Contains(t, convReq.Markdown, "?inline=true")
}

func TestRender_PDFAndHTML(t *testing.T) {
	fp := happyPlatform()
	fileSrv := fp.server(t)
	defer fileSrv.Close()

	var convReqs []converter.Request
	convSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req converter.Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		convReqs = append(convReqs, req)
		_, _ = w.Write([]byte("%PDF-or-html"))
	}))
	defer convSrv.Close()

	rs := newRenderService(t, fileSrv.URL, convSrv.URL)
	result := rs.Render(context.Background(), models.RenderRequest{
		ManuscriptID:  "m1",
		Token:         "tok",
		OutputFormats: []string{models.OutputPDF, models.OutputHTML},
	})

	require.True(t, result.Success, result.Message)
	require.Len(t, result.Outputs, 2)
	assert.Equal(t, []string{"paper.pdf", "paper.html"}, fp.uploadNames)

	// PDF läuft über die konfigurierte Engine, HTML immer über html.
	require.Len(t, convReqs, 2)
	assert.Equal(t, models.EngineLaTeX, convReqs[0].Engine)
	assert.Equal(t, models.EngineHTML, convReqs[1].Engine)

	// Die HTML-Ausgabe kennt das vorher hochgeladene PDF.
	assert.Equal(t, fileSrv.URL+"/files/out-1", convReqs[1].Metadata["pdfUrl"])
}

func TestRender_PDFRunsBeforeHTMLRegardlessOfRequestOrder(t *testing.T) {
	fp := happyPlatform()
	fileSrv := fp.server(t)
	defer fileSrv.Close()

	var convReqs []converter.Request
	convSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req converter.Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		convReqs = append(convReqs, req)
		_, _ = w.Write([]byte("payload"))
	}))
	defer convSrv.Close()

	rs := newRenderService(t, fileSrv.URL, convSrv.URL)
	result := rs.Render(context.Background(), models.RenderRequest{
		ManuscriptID:  "m1",
		Token:         "tok",
		OutputFormats: []string{models.OutputHTML, models.OutputPDF},
	})

	require.True(t, result.Success, result.Message)
	assert.Equal(t, []string{"paper.pdf", "paper.html"}, fp.uploadNames)
	require.Len(t, convReqs, 2)
	assert.NotEmpty(t, convReqs[1].Metadata["pdfUrl"])
}

func TestRender_NoMarkdownFile(t *testing.T) {
	fp := &fakePlatform{
		files: []models.ManuscriptFile{
			{ID: "x", OriginalName: "scan.pdf", FileType: models.FileTypeSource, DownloadURL: "/files/x"},
		},
	}
	fileSrv := fp.server(t)
	defer fileSrv.Close()

	rs := newRenderService(t, fileSrv.URL, "http://localhost:0")
	result := rs.Render(context.Background(), models.RenderRequest{ManuscriptID: "m1", Token: "tok"})

	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "No Markdown file")
	assert.Empty(t, fp.uploadNames)
}

func TestFindMarkdownFile_SecondStageKeepsListOrder(t *testing.T) {
	// Ohne SOURCE-Treffer zählt jede Markdown-Kennzeichnung gleich; die
	// Datei mit bloßer .md-Endung steht vor der mit erkanntem Format.
	files := []models.ManuscriptFile{
		{ID: "a", OriginalName: "notes.md", FileType: models.FileTypeAsset},
		{ID: "b", OriginalName: "paper.txt", FileType: models.FileTypeAsset, DetectedFormat: "markdown"},
	}

	found := findMarkdownFile(files)
	require.NotNil(t, found)
	assert.Equal(t, "notes.md", found.OriginalName)
}

func TestFindMarkdownFile_PrefersMarkdownSource(t *testing.T) {
	files := []models.ManuscriptFile{
		{ID: "a", OriginalName: "appendix.md", FileType: models.FileTypeAsset},
		{ID: "b", OriginalName: "paper.md", FileType: models.FileTypeSource},
	}

	found := findMarkdownFile(files)
	require.NotNil(t, found)
	assert.Equal(t, "paper.md", found.OriginalName)
}

func TestRender_ConversionFailureBecomesMessage(t *testing.T) {
	fp := happyPlatform()
	fileSrv := fp.server(t)
	defer fileSrv.Close()

	convSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"pandoc exploded"}`))
	}))
	defer convSrv.Close()

	rs := newRenderService(t, fileSrv.URL, convSrv.URL)
	result := rs.Render(context.Background(), models.RenderRequest{
		ManuscriptID:  "m1",
		Token:         "tok",
		OutputFormats: []string{models.OutputHTML},
	})

	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "Failed")
	assert.Contains(t, result.Message, "pandoc exploded")
}

func TestRender_MissingToken(t *testing.T) {
	rs := newRenderService(t, "http://localhost:0", "http://localhost:0")
	result := rs.Render(context.Background(), models.RenderRequest{ManuscriptID: "m1"})

	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "Authentication failed")
}

func TestRender_BibliographyIncluded(t *testing.T) {
	fp := happyPlatform()
	fp.files = append(fp.files, models.ManuscriptFile{
		ID: "bib", OriginalName: "refs.bib", FileType: models.FileTypeBibliography, DownloadURL: "/files/bib",
	})
	fp.contents["/files/bib"] = "@article{demo}"
	fileSrv := fp.server(t)
	defer fileSrv.Close()

	var convReq converter.Request
	convSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&convReq))
		_, _ = w.Write([]byte("ok"))
	}))
	defer convSrv.Close()

	rs := newRenderService(t, fileSrv.URL, convSrv.URL)
	result := rs.Render(context.Background(), models.RenderRequest{
		ManuscriptID:  "m1",
		Token:         "tok",
		OutputFormats: []string{models.OutputHTML},
	})

	require.True(t, result.Success, result.Message)
	assert.Equal(t, "@article{demo}", convReq.Bibliography)
}
