// Package validate holds the acceptance rules applied to generated output
// before it is allowed to continue through the pipeline. Rules run in a
// fixed order and the first violation stops the pass, so a retry always
// reports the most fundamental problem first.
package validate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/slipwaylabs/slipway/project"
)

// Rule names, stable across releases so logs and stored runs stay greppable.
const (
	RuleEmptyCollection = "empty_collection"
	RuleEmptyPath       = "empty_path"
	RuleEmptyContent    = "empty_content"
	RuleDuplicatePath   = "duplicate_path"
	RuleForbiddenMarker = "forbidden_marker"
	RuleMissingFile     = "missing_file"
	RulePackageInvalid  = "package_invalid"
	RulePackageName     = "package_name"
	RulePackageScripts  = "package_scripts"
	RulePackageDeps     = "package_deps"

	RuleManifestName  = "manifest_name"
	RuleManifestStack = "manifest_stack"
	RuleManifestSpecs = "manifest_specs"
)

// Error describes a single rule violation.
type Error struct {
	Rule   string
	Path   string
	Detail string
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("validation failed (%s) at %s: %s", e.Rule, e.Path, e.Detail)
	}
	return fmt.Sprintf("validation failed (%s): %s", e.Rule, e.Detail)
}

// Rules configures the output validation pass.
type Rules struct {
	// PackageFile is the path of the npm manifest within the collection.
	PackageFile string
	// RequiredFiles must all be present in the collection.
	RequiredFiles []string
	// ForbiddenMarkers are matched case-insensitively against file bodies.
	ForbiddenMarkers []string
	// RequiredScripts must exist under "scripts" in the package file.
	RequiredScripts []string
	// RequiredDeps must exist under "dependencies".
	RequiredDeps []string
	// RequiredDevDeps must exist under "devDependencies".
	RequiredDevDeps []string
}

// DefaultRules returns the acceptance rules for the Vite/React/Tailwind
// output the generation prompt asks for.
func DefaultRules() Rules {
	return Rules{
		PackageFile: "package.json",
		RequiredFiles: []string{
			"package.json",
			"index.html",
			"vite.config.js",
			"tailwind.config.js",
			"postcss.config.js",
			"src/main.jsx",
			"src/App.jsx",
			"src/index.css",
		},
		ForbiddenMarkers: []string{
			"your code here",
			"rest of the code",
			"placeholder content",
			"implement this later",
			"lorem ipsum",
			"todo: add",
		},
		RequiredScripts: []string{"dev", "build", "preview"},
		RequiredDeps:    []string{"react", "react-dom"},
		RequiredDevDeps: []string{
			"vite",
			"@vitejs/plugin-react",
			"tailwindcss",
			"postcss",
			"autoprefixer",
		},
	}
}

type packageJSON struct {
	Name            string            `json:"name"`
	Scripts         map[string]string `json:"scripts"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// Apply checks files against the rules, in order, and returns the first
// violation. The manifest supplies the expected package name.
func (r Rules) Apply(files project.Collection, manifest *project.Manifest) error {
	if len(files) == 0 {
		return &Error{Rule: RuleEmptyCollection, Detail: "no files were generated"}
	}

	for i, f := range files {
		if strings.TrimSpace(f.Path) == "" {
			return &Error{
				Rule:   RuleEmptyPath,
				Detail: fmt.Sprintf("file %d has an empty path", i),
			}
		}
		if strings.TrimSpace(f.Content) == "" {
			return &Error{Rule: RuleEmptyContent, Path: f.Path, Detail: "file has no content"}
		}
	}

	seen := make(map[string]struct{}, len(files))
	for _, f := range files {
		if _, dup := seen[f.Path]; dup {
			return &Error{Rule: RuleDuplicatePath, Path: f.Path, Detail: "path appears more than once"}
		}
		seen[f.Path] = struct{}{}
	}

	for _, f := range files {
		body := strings.ToLower(f.Content)
		for _, marker := range r.ForbiddenMarkers {
			if strings.Contains(body, marker) {
				return &Error{
					Rule:   RuleForbiddenMarker,
					Path:   f.Path,
					Detail: fmt.Sprintf("contains placeholder marker %q", marker),
				}
			}
		}
	}

	for _, required := range r.RequiredFiles {
		if _, ok := seen[required]; !ok {
			return &Error{Rule: RuleMissingFile, Path: required, Detail: "required file is missing"}
		}
	}

	return r.checkPackageFile(files, manifest)
}

func (r Rules) checkPackageFile(files project.Collection, manifest *project.Manifest) error {
	if r.PackageFile == "" {
		return nil
	}
	pkgFile, ok := files.Get(r.PackageFile)
	if !ok {
		// Reachable only when the package file is not in RequiredFiles.
		return &Error{Rule: RuleMissingFile, Path: r.PackageFile, Detail: "required file is missing"}
	}

	var pkg packageJSON
	if err := json.Unmarshal([]byte(pkgFile.Content), &pkg); err != nil {
		return &Error{
			Rule:   RulePackageInvalid,
			Path:   r.PackageFile,
			Detail: fmt.Sprintf("package file is not valid JSON: %v", err),
		}
	}

	if manifest != nil && pkg.Name != manifest.ProjectName {
		return &Error{
			Rule:   RulePackageName,
			Path:   r.PackageFile,
			Detail: fmt.Sprintf("package name %q does not match project name %q", pkg.Name, manifest.ProjectName),
		}
	}

	for _, script := range r.RequiredScripts {
		if _, ok := pkg.Scripts[script]; !ok {
			return &Error{
				Rule:   RulePackageScripts,
				Path:   r.PackageFile,
				Detail: fmt.Sprintf("missing script %q", script),
			}
		}
	}

	for _, dep := range r.RequiredDeps {
		if _, ok := pkg.Dependencies[dep]; !ok {
			return &Error{
				Rule:   RulePackageDeps,
				Path:   r.PackageFile,
				Detail: fmt.Sprintf("missing dependency %q", dep),
			}
		}
	}
	for _, dep := range r.RequiredDevDeps {
		if _, ok := pkg.DevDependencies[dep]; !ok {
			return &Error{
				Rule:   RulePackageDeps,
				Path:   r.PackageFile,
				Detail: fmt.Sprintf("missing dev dependency %q", dep),
			}
		}
	}

	return nil
}

// ManifestRules configures the plan validation pass.
type ManifestRules struct {
	MinSpecs int
	MaxSpecs int
}

// DefaultManifestRules bounds a plan to something the generation phase can
// realistically complete in one response.
func DefaultManifestRules() ManifestRules {
	return ManifestRules{MinSpecs: 5, MaxSpecs: 15}
}

// Apply checks a planned manifest, in order: name shape, stack completeness,
// then file spec count and paths.
func (r ManifestRules) Apply(m *project.Manifest) error {
	if !project.NameRe.MatchString(m.ProjectName) {
		return &Error{
			Rule:   RuleManifestName,
			Detail: fmt.Sprintf("project name %q must be lowercase kebab-case", m.ProjectName),
		}
	}

	if strings.TrimSpace(m.Stack.Framework) == "" ||
		strings.TrimSpace(m.Stack.Language) == "" ||
		strings.TrimSpace(m.Stack.Styling) == "" {
		return &Error{Rule: RuleManifestStack, Detail: "stack must name a framework, language and styling"}
	}

	if len(m.FileSpecs) < r.MinSpecs || len(m.FileSpecs) > r.MaxSpecs {
		return &Error{
			Rule: RuleManifestSpecs,
			Detail: fmt.Sprintf("plan lists %d files, want between %d and %d",
				len(m.FileSpecs), r.MinSpecs, r.MaxSpecs),
		}
	}

	seen := make(map[string]struct{}, len(m.FileSpecs))
	for i, spec := range m.FileSpecs {
		if strings.TrimSpace(spec.Path) == "" {
			return &Error{
				Rule:   RuleManifestSpecs,
				Detail: fmt.Sprintf("file spec %d has an empty path", i),
			}
		}
		if _, dup := seen[spec.Path]; dup {
			return &Error{
				Rule:   RuleManifestSpecs,
				Path:   spec.Path,
				Detail: "file spec path appears more than once",
			}
		}
		seen[spec.Path] = struct{}{}
	}

	return nil
}
