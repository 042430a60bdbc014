package main

import (
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const moduleName = "rankit"

type violation struct {
	File   string
	Line   int
	Import string
	Rule   string
}

func main() {
	violations := collectViolations("contexts")
	if len(violations) == 0 {
		fmt.Println("boundary checks passed")
		return
	}

	sort.Slice(violations, func(i, j int) bool {
		if violations[i].File == violations[j].File {
			if violations[i].Line == violations[j].Line {
				return violations[i].Import < violations[j].Import
			}
			return violations[i].Line < violations[j].Line
		}
		return violations[i].File < violations[j].File
	})

	fmt.Println("boundary violations found:")
	for _, v := range violations {
		fmt.Printf("- %s:%d imports %q (%s)\n", v.File, v.Line, v.Import, v.Rule)
	}
	os.Exit(1)
}

func collectViolations(root string) []violation {
	var violations []violation

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}

		normalized := filepath.ToSlash(path)
		parts := strings.Split(normalized, "/")
		if len(parts) < 4 || parts[0] != "contexts" {
			return nil
		}

		contextName := parts[1]
		serviceName := parts[2]
		layer := parts[3]
		modulePrefix := fmt.Sprintf("%s/contexts/%s/%s", moduleName, contextName, serviceName)

		fileViolations := validateFile(path, normalized, layer, modulePrefix)
		violations = append(violations, fileViolations...)
		return nil
	})

	return violations
}

func validateFile(path string, normalizedPath string, layer string, modulePrefix string) []violation {
	var violations []violation

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
	if err != nil {
		return append(violations, violation{
			File: normalizedPath,
			Line: 1,
			Rule: "file must parse",
		})
	}

	for _, imp := range file.Imports {
		importPath := strings.Trim(imp.Path.Value, "\"")
		line := fset.Position(imp.Pos()).Line

		if strings.HasPrefix(importPath, moduleName+"/contexts/") && !hasPrefix(importPath, modulePrefix) {
			violations = append(violations, violation{
				File:   normalizedPath,
				Line:   line,
				Import: importPath,
				Rule:   "cross-module imports are forbidden",
			})
		}

		rule, ok := layerRules[layer]
		if !ok {
			continue
		}
		for _, message := range rule.check(importPath, modulePrefix) {
			violations = append(violations, violation{
				File:   normalizedPath,
				Line:   line,
				Import: importPath,
				Rule:   layer + " " + message,
			})
		}
	}

	return violations
}

// layerRule lists the module-relative prefixes a layer may import. Standard
// library imports are always allowed.
type layerRule struct {
	allowed        []string
	allowContracts bool
}

// Adapters and module.go are the composition edge and are not listed.
var layerRules = map[string]layerRule{
	"domain":      {allowed: []string{"/domain"}},
	"ports":       {allowed: []string{"/domain"}, allowContracts: true},
	"application": {allowed: []string{"/application", "/domain", "/ports"}, allowContracts: true},
	"transport":   {allowed: []string{"/transport"}},
}

func (r layerRule) check(importPath string, modulePrefix string) []string {
	var messages []string
	if strings.Contains(importPath, "/adapters/") {
		messages = append(messages, "must not import adapters")
	}
	if strings.HasPrefix(importPath, moduleName+"/internal/") || strings.HasPrefix(importPath, moduleName+"/cmd/") {
		messages = append(messages, "must not import runtime infrastructure")
	}
	if isStdlib(importPath) {
		return messages
	}
	if !strings.HasPrefix(importPath, moduleName+"/") {
		return append(messages, "must not import third-party packages")
	}

	allowed := make([]string, 0, len(r.allowed)+1)
	for _, suffix := range r.allowed {
		allowed = append(allowed, modulePrefix+suffix)
	}
	if r.allowContracts {
		allowed = append(allowed, moduleName+"/contracts")
	}
	if !isAllowed(importPath, allowed) {
		messages = append(messages, "import is outside explicit allowlist")
	}
	return messages
}

func hasPrefix(path string, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func isAllowed(importPath string, allowedPrefixes []string) bool {
	for _, p := range allowedPrefixes {
		if hasPrefix(importPath, p) {
			return true
		}
	}
	return false
}

func isStdlib(importPath string) bool {
	if strings.HasPrefix(importPath, moduleName+"/") {
		return false
	}
	first := importPath
	if idx := strings.Index(first, "/"); idx != -1 {
		first = first[:idx]
	}
	return !strings.Contains(first, ".")
}
