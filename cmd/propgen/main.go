// Command propgen writes the property name table from the Code constants
// declared in a Go source file.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"

	"golang.org/x/tools/imports"
)

func main() {
	in := flag.String("in", "codes.go", "source file declaring the Code constants")
	out := flag.String("out", "codes_gen.go", "generated file")
	typeName := flag.String("type", "Code", "constant type to collect")
	flag.Parse()

	if err := run(*in, *out, *typeName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(in, out, typeName string) error {
	src, err := os.ReadFile(in)
	if err != nil {
		return fmt.Errorf("reading %s: %w", in, err)
	}
	code, err := generate(filepath.Base(in), src, typeName)
	if err != nil {
		return err
	}
	if err := writeFormatted(out, code); err != nil {
		return err
	}
	fmt.Printf("  generated %s\n", out)
	return nil
}

// collect returns the package name and the constants of type typeName in
// declaration order. A const block counts when its first typed spec has
// that type; the specs after it repeat the type implicitly.
func collect(filename string, src []byte, typeName string) (string, []string, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, filename, src, parser.SkipObjectResolution)
	if err != nil {
		return "", nil, fmt.Errorf("parsing %s: %w", filename, err)
	}

	var names []string
	for _, decl := range f.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.CONST {
			continue
		}
		typed := false
		for _, spec := range gd.Specs {
			vs := spec.(*ast.ValueSpec)
			if vs.Type != nil {
				id, ok := vs.Type.(*ast.Ident)
				typed = ok && id.Name == typeName
			} else if len(vs.Values) > 0 {
				// an untyped value restarts the block
				typed = false
			}
			if !typed {
				continue
			}
			for _, n := range vs.Names {
				if n.Name != "_" {
					names = append(names, n.Name)
				}
			}
		}
	}
	if len(names) == 0 {
		return "", nil, fmt.Errorf("%s: no %s constants", filename, typeName)
	}
	return f.Name.Name, names, nil
}

func generate(filename string, src []byte, typeName string) (string, error) {
	pkg, names, err := collect(filename, src, typeName)
	if err != nil {
		return "", err
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "// Code generated by propgen from %s. DO NOT EDIT.\n\n", filename)
	fmt.Fprintf(&b, "package %s\n\n", pkg)
	fmt.Fprintf(&b, "var codeTable = [...]struct {\n\tcode %s\n\tname string\n}{\n", typeName)
	for _, n := range names {
		fmt.Fprintf(&b, "\t{%s, %q},\n", n, n)
	}
	b.WriteString("}\n")
	return b.String(), nil
}

// writeFormatted formats Go source code with goimports and writes it to a file.
func writeFormatted(path string, code string) error {
	formatted, err := imports.Process(path, []byte(code), nil)
	if err != nil {
		// Write unformatted so you can debug the generator output
		_ = os.WriteFile(path+".broken", []byte(code), 0o644)
		return fmt.Errorf("goimports %s: %w", filepath.Base(path), err)
	}
	return os.WriteFile(path, formatted, 0o644)
}
