package document

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/srcmetrics/srcmetrics/internal/errors"
)

// Parser turns raw source bytes into Documents using tree-sitter.
// A Parser is not safe for concurrent use; the pipeline is single-threaded.
type Parser struct {
	parser *sitter.Parser
}

// NewParser creates a parser supporting the built-in language grammars.
func NewParser() *Parser {
	return &Parser{parser: sitter.NewParser()}
}

// Parse parses source into a Document. The language is detected from the
// path extension. Unsupported extensions and parser failures return a
// recoverable parse error; callers skip the document and continue.
func (p *Parser) Parse(ctx context.Context, path string, source []byte) (*Document, error) {
	language, ok := LanguageForPath(path)
	if !ok {
		return nil, errors.New(errors.ErrCodeUnsupportedLanguage,
			fmt.Sprintf("no grammar for %s", path), nil).WithDetail("path", path)
	}
	grammar, ok := grammarFor(language)
	if !ok {
		return nil, errors.New(errors.ErrCodeUnsupportedLanguage,
			fmt.Sprintf("no grammar for language %s", language), nil).WithDetail("path", path)
	}

	p.parser.SetLanguage(grammar)
	tree, err := p.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, errors.ParseError(fmt.Sprintf("parse %s: %v", path, err), err).
			WithDetail("path", path)
	}
	if tree == nil {
		return nil, errors.ParseError(fmt.Sprintf("parse %s: nil tree", path), nil).
			WithDetail("path", path)
	}
	defer tree.Close()

	return &Document{
		hash:     HashBytes(source),
		path:     path,
		language: language,
		source:   source,
		root:     convertNode(tree.RootNode()),
	}, nil
}

// Close releases parser resources.
func (p *Parser) Close() {
	if p.parser != nil {
		p.parser.Close()
	}
}

// convertNode copies a tree-sitter node into the owned Node representation,
// decoupling the Document from the C-backed tree lifetime.
func convertNode(tsNode *sitter.Node) *Node {
	if tsNode == nil {
		return nil
	}

	node := &Node{
		Type:      tsNode.Type(),
		StartByte: tsNode.StartByte(),
		EndByte:   tsNode.EndByte(),
		Named:     tsNode.IsNamed(),
	}

	count := int(tsNode.ChildCount())
	if count > 0 {
		node.Children = make([]*Node, 0, count)
		for i := 0; i < count; i++ {
			if child := tsNode.Child(i); child != nil {
				node.Children = append(node.Children, convertNode(child))
			}
		}
	}
	return node
}
