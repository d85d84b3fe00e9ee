package main

import (
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
)

const modulePath = "tokenvest"

// pureLibraries are value-level third-party packages the inner layers may use.
// Anything doing I/O stays out.
var pureLibraries = []string{
	"github.com/cockroachdb/errors",
	"github.com/shopspring/decimal",
	"github.com/deckarep/golang-set/v2",
}

// domainOrder ranks the domain packages. A package may import only packages
// ranked below it, which keeps the schedule generator free of entity state.
var domainOrder = []string{"errors", "valueobjects", "schedule", "entities", "services"}

type violation struct {
	File   string
	Line   int
	Import string
	Rule   string
}

// target is one parsed source file and the layer it belongs to.
type target struct {
	path         string
	layer        string
	sublayer     string
	modulePrefix string
}

func main() {
	violations := collectViolations("contexts")
	violations = append(violations, collectContractViolations("contracts")...)
	if len(violations) == 0 {
		fmt.Println("boundary checks passed")
		return
	}

	sort.Slice(violations, func(i, j int) bool {
		if violations[i].File != violations[j].File {
			return violations[i].File < violations[j].File
		}
		if violations[i].Line != violations[j].Line {
			return violations[i].Line < violations[j].Line
		}
		return violations[i].Import < violations[j].Import
	})

	fmt.Println("boundary violations found:")
	for _, v := range violations {
		fmt.Printf("- %s:%d imports %q (%s)\n", v.File, v.Line, v.Import, v.Rule)
	}
	os.Exit(1)
}

// collectViolations checks every bounded context under root, laid out as
// contexts/<context>/<service>/<layer>/...
func collectViolations(root string) []violation {
	var violations []violation
	walkSources(root, func(path string, parts []string) {
		if len(parts) < 4 || parts[0] != "contexts" {
			return
		}
		t := target{
			path:         path,
			layer:        parts[3],
			modulePrefix: fmt.Sprintf("%s/contexts/%s/%s", modulePath, parts[1], parts[2]),
		}
		if len(parts) > 5 {
			t.sublayer = parts[4]
		}
		violations = append(violations, checkFile(t, contextRule)...)
	})
	return violations
}

// collectContractViolations keeps the published event contracts importable by
// any consumer: stdlib and pure libraries only.
func collectContractViolations(root string) []violation {
	var violations []violation
	walkSources(root, func(path string, parts []string) {
		violations = append(violations, checkFile(target{path: path, layer: "contracts"}, contractRule)...)
	})
	return violations
}

func walkSources(root string, visit func(path string, parts []string)) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		normalized := filepath.ToSlash(path)
		visit(path, strings.Split(normalized, "/"))
		return nil
	})
}

type ruleFunc func(t target, importPath string) []string

func checkFile(t target, rule ruleFunc) []violation {
	normalized := filepath.ToSlash(t.path)
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, t.path, nil, parser.ImportsOnly)
	if err != nil {
		return []violation{{File: normalized, Line: 1, Rule: "file must parse"}}
	}

	var violations []violation
	for _, imp := range file.Imports {
		importPath := strings.Trim(imp.Path.Value, "\"")
		for _, broken := range rule(t, importPath) {
			violations = append(violations, violation{
				File:   normalized,
				Line:   fset.Position(imp.Pos()).Line,
				Import: importPath,
				Rule:   broken,
			})
		}
	}
	return violations
}

func contextRule(t target, importPath string) []string {
	var broken []string
	if strings.HasPrefix(importPath, modulePath+"/contexts/") && !hasPrefix(importPath, t.modulePrefix) {
		broken = append(broken, "cross-module imports are forbidden")
	}

	var allowed []string
	switch t.layer {
	case "domain":
		broken = append(broken, domainOrderRule(t, importPath)...)
		allowed = []string{t.modulePrefix + "/domain"}
	case "application":
		allowed = []string{
			t.modulePrefix + "/application",
			t.modulePrefix + "/domain",
			t.modulePrefix + "/ports",
			modulePath + "/contracts",
		}
	case "ports":
		allowed = []string{t.modulePrefix + "/domain", modulePath + "/contracts"}
	case "transport":
		allowed = []string{}
	default:
		return broken
	}

	if strings.Contains(importPath, "/adapters/") {
		broken = append(broken, t.layer+" must not import adapters")
	}
	if isInfrastructure(importPath) {
		broken = append(broken, t.layer+" must not import runtime infrastructure")
	}
	if !isStdlib(importPath) && !isAllowed(importPath, append(allowed, pureLibraries...)) {
		broken = append(broken, t.layer+" import is outside explicit allowlist")
	}
	return broken
}

func domainOrderRule(t target, importPath string) []string {
	domainPrefix := t.modulePrefix + "/domain/"
	if t.sublayer == "" || !strings.HasPrefix(importPath, domainPrefix) {
		return nil
	}
	imported := strings.SplitN(strings.TrimPrefix(importPath, domainPrefix), "/", 2)[0]
	from := slices.Index(domainOrder, t.sublayer)
	to := slices.Index(domainOrder, imported)
	if from == -1 || to == -1 {
		return []string{fmt.Sprintf("domain/%s or domain/%s is not ranked", t.sublayer, imported)}
	}
	if to >= from {
		return []string{fmt.Sprintf("domain/%s must not import domain/%s", t.sublayer, imported)}
	}
	return nil
}

func contractRule(_ target, importPath string) []string {
	if isStdlib(importPath) || isAllowed(importPath, pureLibraries) {
		return nil
	}
	return []string{"contracts may import only stdlib and pure libraries"}
}

func isInfrastructure(importPath string) bool {
	return strings.HasPrefix(importPath, modulePath+"/internal/") ||
		strings.HasPrefix(importPath, modulePath+"/cmd/")
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
	if strings.HasPrefix(importPath, modulePath+"/") {
		return false
	}
	first, _, _ := strings.Cut(importPath, "/")
	return !strings.Contains(first, ".")
}
