package batch

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// ManifestEntry represents one baked texture in the output manifest.
type ManifestEntry struct {
	Expr   string `json:"expr"`
	ID     uint32 `json:"id"`
	Image  string `json:"image"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// WriteManifest writes the successful results as JSON.
func WriteManifest(path string, results []Result) error {
	entries := make([]ManifestEntry, 0, len(results))
	for _, r := range results {
		if !r.Success {
			continue
		}
		entries = append(entries, ManifestEntry{
			Expr:   r.Expr,
			ID:     uint32(r.ID),
			Image:  filepath.ToSlash(r.File),
			Width:  r.Size.X,
			Height: r.Size.Y,
		})
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
