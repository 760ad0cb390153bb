package mutagens

import (
	"go/ast"
	"go/token"

	"mutago.dev/pkg/mutago/internal/domain/tree"
)

// IsMetaString reports whether n is a string literal that configures code
// rather than being evaluated by it: an import path or a struct field tag.
// The check walks parent links, so it fails on a tree without markers.
func IsMetaString(t *tree.Tree, n tree.Node) (bool, error) {
	lit, ok := n.AST.(*ast.BasicLit)
	if !ok || lit.Kind != token.STRING {
		return false, nil
	}

	parent, err := t.Parent(n.Marker)
	if err != nil {
		return false, err
	}

	switch p := parent.AST.(type) {
	case *ast.ImportSpec:
		return p.Path == lit, nil
	case *ast.Field:
		if p.Tag != lit {
			return false, nil
		}

		grandparent, err := t.Grandparent(n.Marker)
		if err != nil {
			return false, err
		}

		_, ok := grandparent.AST.(*ast.FieldList)

		return ok, nil
	}

	return false, nil
}
