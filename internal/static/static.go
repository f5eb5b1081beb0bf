package static

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed static/*
var StaticFS embed.FS

// DefaultImageName is the file name of the image used for stories without their own.
const DefaultImageName = "wanderlust.jpeg"

// Assets returns the embedded assets rooted at the asset directory.
func Assets() fs.FS {
	sub, err := fs.Sub(StaticFS, "static")
	if err != nil {
		panic(fmt.Sprintf("embedded static directory missing: %v", err))
	}
	return sub
}

// GetDefaultImage reads the default story image from the embedded static files.
func GetDefaultImage() ([]byte, error) {
	data, err := StaticFS.ReadFile("static/" + DefaultImageName)
	if err != nil {
		return nil, fmt.Errorf("failed to read default image from embedded files: %w", err)
	}
	return data, nil
}
