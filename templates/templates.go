// Package templates bündelt die mitgelieferten Templates im Binary.
// Jedes Unterverzeichnis von builtin/ ist ein Template: template.html,
// template.tex und template.typ sind die Engine-Varianten, template.json
// enthält Titel, Beschreibung und Feature-Metadaten.
package templates

import "embed"

//go:embed builtin
var Builtin embed.FS
