package document

import (
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// extToLang maps file extensions to language names.
var extToLang = map[string]string{
	".go":  "go",
	".py":  "python",
	".pyi": "python",
	".js":  "javascript",
	".jsx": "javascript",
	".mjs": "javascript",
	".cjs": "javascript",
	".ts":  "typescript",
	".tsx": "tsx",
}

// grammars maps language names to tree-sitter grammars.
var grammars = map[string]*sitter.Language{
	"go":         golang.GetLanguage(),
	"python":     python.GetLanguage(),
	"javascript": javascript.GetLanguage(),
	"typescript": typescript.GetLanguage(),
	"tsx":        tsx.GetLanguage(),
}

// LanguageForPath returns the language name for a file path based on its
// extension, and whether the language is supported.
func LanguageForPath(path string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	lang, ok := extToLang[ext]
	return lang, ok
}

// SupportedExtensions returns the extensions the parser understands.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(extToLang))
	for ext := range extToLang {
		exts = append(exts, ext)
	}
	return exts
}

// grammarFor returns the tree-sitter grammar for a language name.
func grammarFor(language string) (*sitter.Language, bool) {
	g, ok := grammars[language]
	return g, ok
}
