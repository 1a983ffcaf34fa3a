package countdown

import (
	"go/ast"
	"go/parser"
	"go/token"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportedIdentifiersDocumented(t *testing.T) {
	files, err := filepath.Glob("*.go")
	require.NoError(t, err)

	fset := token.NewFileSet()
	for _, name := range files {
		if strings.HasSuffix(name, "_test.go") {
			continue
		}
		f, err := parser.ParseFile(fset, name, nil, parser.ParseComments)
		require.NoError(t, err)
		for _, decl := range f.Decls {
			switch d := decl.(type) {
			case *ast.FuncDecl:
				if d.Name.IsExported() && d.Name.Name != "String" {
					assert.NotNil(t, d.Doc, "%s: func %s", name, d.Name.Name)
				}
			case *ast.GenDecl:
				for _, spec := range d.Specs {
					switch s := spec.(type) {
					case *ast.TypeSpec:
						if s.Name.IsExported() {
							assert.True(t, d.Doc != nil || s.Doc != nil, "%s: type %s", name, s.Name.Name)
						}
					case *ast.ValueSpec:
						// Grouped enum values share the group's doc.
						if d.Lparen.IsValid() {
							continue
						}
						for _, n := range s.Names {
							if n.IsExported() {
								assert.True(t, d.Doc != nil || s.Doc != nil, "%s: %s", name, n.Name)
							}
						}
					}
				}
			}
		}
	}
}
