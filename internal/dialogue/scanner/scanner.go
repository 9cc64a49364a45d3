package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ScriptEntry is a dialogue script found in the source directory
type ScriptEntry struct {
	Lang string // Language directory name (e.g. "en")
	Name string // Script name without extension
	Path string // Full path to the .xml file
}

// ArtifactPath returns where the compiled chapter for this script lives under outDir
func (e ScriptEntry) ArtifactPath(outDir string) string {
	return filepath.Join(outDir, e.Lang, e.Name+ArtifactExt)
}

// ArtifactExt is the file extension of compiled chapters
const ArtifactExt = ".chap"

// ScanSourceDirectory scans the dialogue source directory for scripts.
// Scripts live one level down, in a directory per language: <root>/<lang>/<name>.xml
func ScanSourceDirectory(root string) ([]ScriptEntry, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read dialogue source directory: %w", err)
	}

	var scripts []ScriptEntry

	for _, entry := range entries {
		// Skip non-directories and hidden directories
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		lang := entry.Name()
		found, err := scanScripts(filepath.Join(root, lang), lang)
		if err != nil {
			// Skip directories that can't be read
			continue
		}
		scripts = append(scripts, found...)
	}

	sort.Slice(scripts, func(i, j int) bool {
		if scripts[i].Lang != scripts[j].Lang {
			return scripts[i].Lang < scripts[j].Lang
		}
		return scripts[i].Name < scripts[j].Name
	})
	return scripts, nil
}

// scanScripts finds all .xml scripts in a language directory
func scanScripts(langPath, lang string) ([]ScriptEntry, error) {
	entries, err := os.ReadDir(langPath)
	if err != nil {
		return nil, err
	}

	var scripts []ScriptEntry
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		ext := filepath.Ext(name)
		if strings.ToLower(ext) != ".xml" || strings.HasPrefix(name, ".") {
			continue
		}

		scripts = append(scripts, ScriptEntry{
			Lang: lang,
			Name: strings.TrimSuffix(name, ext),
			Path: filepath.Join(langPath, name),
		})
	}

	return scripts, nil
}

// NeedsCompile reports whether the artifact for a script is missing or older
// than the script itself.
func NeedsCompile(e ScriptEntry, outDir string) (bool, error) {
	src, err := os.Stat(e.Path)
	if err != nil {
		return false, err
	}
	dst, err := os.Stat(e.ArtifactPath(outDir))
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return dst.ModTime().Before(src.ModTime()), nil
}
