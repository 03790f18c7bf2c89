package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"render-bot/clients/botconfig"
	"render-bot/config"
	"render-bot/models"
	"render-bot/services"
)

func newTemplateRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := zap.NewNop()
	cfg := &config.Config{DefaultTemplate: "academic-standard", DefaultEngine: models.EngineLaTeX}
	registry := services.NewBuiltinRegistry(log)
	resolver := services.NewTemplateResolver(cfg, log, botconfig.NewClient(cfg, log), registry)

	router := gin.New()
	setupTemplateRoutes(router, resolver, log)
	return router
}

func TestTemplateRoutes_GetByName(t *testing.T) {
	router := newTemplateRouter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/templates/academic-standard", nil)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var tmpl models.RenderedTemplate
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tmpl))
	assert.Equal(t, "academic-standard", tmpl.Name)
	assert.Equal(t, "Academic Standard", tmpl.Title)
	assert.NotEmpty(t, tmpl.Engines)
	assert.Empty(t, tmpl.HTMLTemplate)
	assert.Empty(t, tmpl.LaTeXTemplate)
}

func TestTemplateRoutes_GetByNameUnknown(t *testing.T) {
	router := newTemplateRouter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/templates/no-such-template", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "no-such-template")
}
