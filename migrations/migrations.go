// Package migrations embeds the SQL schema for the approval engine.
package migrations

import (
	"embed"
	"io/fs"
	"sort"
)

//go:embed *.sql
var sqlFiles embed.FS

// File is a single named schema script.
type File struct {
	Name string
	SQL  string
}

// Files returns the embedded scripts sorted by name.
func Files() ([]File, error) {
	names, err := fs.Glob(sqlFiles, "*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	files := make([]File, 0, len(names))
	for _, name := range names {
		raw, err := sqlFiles.ReadFile(name)
		if err != nil {
			return nil, err
		}
		files = append(files, File{Name: name, SQL: string(raw)})
	}
	return files, nil
}
