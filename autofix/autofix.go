// Package autofix applies known, mechanical repairs to generated output
// after it has passed validation. The fixes target defect patterns the
// completion backend produces reliably: a tailwind config missing its
// export, and source files importing a utility library that package.json
// never declares. Fixes are best-effort and never fail the pipeline; they
// only ever add content, never remove it.
package autofix

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/slipwaylabs/slipway/logger"
	"github.com/slipwaylabs/slipway/project"
)

const tailwindExport = `module.exports = {
  content: ["./index.html", "./src/**/*.{js,jsx,ts,tsx}"],
  theme: {
    extend: {},
  },
  plugins: [],
};`

// Config selects the files the fixer touches and the library catalog it may
// pin versions from.
type Config struct {
	// ExportFile is the config file that must end up assigning
	// module.exports; ExportStmt is appended when it does not.
	ExportFile string
	ExportStmt string
	// PackageFile is the npm manifest that missing dependencies are
	// spliced into.
	PackageFile string
	// SourceExts are the extensions scanned for import/require references.
	SourceExts []string
	// KnownLibs maps importable package names to pinned versions. Only
	// libraries listed here are ever added.
	KnownLibs map[string]string
}

// DefaultConfig covers the Vite/React/Tailwind output the generator asks
// for, with the optional utility libraries models reach for most often.
func DefaultConfig() Config {
	return Config{
		ExportFile:  "tailwind.config.js",
		ExportStmt:  tailwindExport,
		PackageFile: "package.json",
		SourceExts:  []string{".js", ".jsx", ".ts", ".tsx"},
		KnownLibs: map[string]string{
			"axios":            "^1.6.8",
			"clsx":             "^2.1.0",
			"react-router-dom": "^6.22.3",
			"framer-motion":    "^11.0.8",
			"zustand":          "^4.5.2",
			"date-fns":         "^3.6.0",
			"lucide-react":     "^0.356.0",
			"recharts":         "^2.12.2",
			"uuid":             "^9.0.1",
		},
	}
}

// Fixer applies the configured fixes to a collection in place.
type Fixer struct {
	cfg Config
	log logger.Logger
}

func New(cfg Config, l logger.Logger) *Fixer {
	if l == nil {
		l = logger.NewNullLogger()
	}
	return &Fixer{cfg: cfg, log: l}
}

// Apply runs every fix and returns the same collection. Files are visited
// in collection order so the result is reproducible.
func (f *Fixer) Apply(files project.Collection) project.Collection {
	f.fixExport(files)
	f.fixDependencies(files)
	return files
}

// exportRe matches a real module.exports assignment anchored to a line
// start, so a commented-out or quoted occurrence does not count.
var exportRe = regexp.MustCompile(`(?m)^\s*module\.exports\s*=`)

func (f *Fixer) fixExport(files project.Collection) {
	if f.cfg.ExportFile == "" || f.cfg.ExportStmt == "" {
		return
	}
	file, ok := files.Get(f.cfg.ExportFile)
	if !ok {
		return
	}
	if exportRe.MatchString(file.Content) {
		return
	}
	fixed := strings.TrimRight(file.Content, "\n") + "\n\n" + f.cfg.ExportStmt + "\n"
	files.Replace(f.cfg.ExportFile, fixed)
	f.log.WithField("file", f.cfg.ExportFile).Info("appended missing module.exports")
}

var (
	importFromRe = regexp.MustCompile(`(?m)^\s*import\s+[^;]*?from\s+['"]([^'"]+)['"]`)
	importBareRe = regexp.MustCompile(`(?m)^\s*import\s+['"]([^'"]+)['"]`)
	requireRe    = regexp.MustCompile(`require\(\s*['"]([^'"]+)['"]\s*\)`)
)

func (f *Fixer) fixDependencies(files project.Collection) {
	libs := f.referencedLibs(files)
	if len(libs) == 0 {
		return
	}

	pkgFile, ok := files.Get(f.cfg.PackageFile)
	if !ok {
		return
	}
	var pkg struct {
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if err := json.Unmarshal([]byte(pkgFile.Content), &pkg); err != nil {
		f.log.WithField("file", f.cfg.PackageFile).Warn("dependency fix skipped: " + err.Error())
		return
	}

	content := pkgFile.Content
	changed := false
	for _, lib := range libs {
		if _, declared := pkg.Dependencies[lib]; declared {
			continue
		}
		if _, declared := pkg.DevDependencies[lib]; declared {
			continue
		}
		next, err := insertDependency(content, lib, f.cfg.KnownLibs[lib])
		if err != nil {
			f.log.WithField("lib", lib).Warn("dependency fix skipped: " + err.Error())
			continue
		}
		if !json.Valid([]byte(next)) {
			f.log.WithField("lib", lib).Warn("dependency fix skipped: splice broke the file")
			continue
		}
		content = next
		changed = true
		f.log.WithField("lib", lib).Info("declared referenced dependency")
	}
	if changed {
		files.Replace(f.cfg.PackageFile, content)
	}
}

// referencedLibs returns the catalog libraries referenced by source files,
// in first-reference order.
func (f *Fixer) referencedLibs(files project.Collection) []string {
	var ordered []string
	seen := make(map[string]struct{})
	patterns := []*regexp.Regexp{importFromRe, importBareRe, requireRe}

	for _, file := range files {
		if !f.sourceLike(file.Path) {
			continue
		}
		for _, re := range patterns {
			for _, m := range re.FindAllStringSubmatch(file.Content, -1) {
				lib := basePackage(m[1])
				if lib == "" {
					continue
				}
				if _, known := f.cfg.KnownLibs[lib]; !known {
					continue
				}
				if _, dup := seen[lib]; dup {
					continue
				}
				seen[lib] = struct{}{}
				ordered = append(ordered, lib)
			}
		}
	}
	return ordered
}

func (f *Fixer) sourceLike(path string) bool {
	ext := filepath.Ext(path)
	for _, allowed := range f.cfg.SourceExts {
		if ext == allowed {
			return true
		}
	}
	return false
}

// basePackage reduces an import specifier to its installable package name:
// "date-fns/format" -> "date-fns", "@scope/pkg/sub" -> "@scope/pkg".
// Relative and absolute specifiers return "".
func basePackage(spec string) string {
	if spec == "" || strings.HasPrefix(spec, ".") || strings.HasPrefix(spec, "/") {
		return ""
	}
	parts := strings.Split(spec, "/")
	if strings.HasPrefix(spec, "@") {
		if len(parts) < 2 {
			return ""
		}
		return parts[0] + "/" + parts[1]
	}
	return parts[0]
}

// insertDependency splices `"lib": "version"` into the dependencies object,
// keeping every existing byte of the file. The new entry adopts whatever
// whitespace follows the opening brace.
func insertDependency(content, lib, version string) (string, error) {
	at := strings.Index(content, `"dependencies"`)
	if at < 0 {
		return "", fmt.Errorf("no dependencies section")
	}
	open := strings.IndexByte(content[at:], '{')
	if open < 0 {
		return "", fmt.Errorf("dependencies section has no object")
	}
	open += at

	rest := content[open+1:]
	trimmed := strings.TrimLeft(rest, " \t\r\n")
	ws := rest[:len(rest)-len(trimmed)]

	insert := ws + fmt.Sprintf("%q: %q", lib, version)
	if !strings.HasPrefix(trimmed, "}") {
		insert += ","
	}
	return content[:open+1] + insert + content[open+1:], nil
}
