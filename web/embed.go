package web

import "embed"

// TemplatesFS holds the dashboard page templates.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the stylesheet and the sheet picker script.
//
//go:embed static/*
var StaticFS embed.FS
