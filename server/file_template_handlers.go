package server

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
)

//go:embed templates/*
var templateFiles embed.FS

func TemplateFilesFS() fs.FS {
	subFS, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		panic("Failed to create templates sub filesystem: " + err.Error())
	}
	return subFS
}

// ParseTemplate parses a page template from the embedded filesystem
func ParseTemplate(name string) (*template.Template, error) {
	tmpl, err := template.ParseFS(TemplateFilesFS(), name)
	if err != nil {
		return nil, fmt.Errorf("[server ParseTemplate] %s: %w", name, err)
	}
	return tmpl, nil
}
