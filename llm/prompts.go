package llm

import (
	"fmt"
	"strings"

	"github.com/slipwaylabs/slipway/project"
	"github.com/slipwaylabs/slipway/validate"
)

func planningSystemPrompt() string {
	return `You are an expert frontend architect. You plan small, self-contained web applications that a single generation pass can implement completely.

You always answer with a single JSON object and nothing else: no markdown fences, no commentary before or after the JSON. Keys and string values use double quotes.`
}

func planningPrompt(brief string, rules validate.ManifestRules) string {
	return fmt.Sprintf(`Plan a Vite + React + Tailwind CSS single-page application for this brief: "%s"

Respond with one JSON object of this exact shape:

{
  "projectName": "kebab-case-name",
  "stack": {"framework": "React", "language": "JavaScript", "styling": "Tailwind CSS"},
  "fileSpecs": [{"path": "relative/path", "purpose": "one line"}],
  "features": ["short feature descriptions"]
}

Planning rules:
1. "projectName" must be lowercase kebab-case (letters, digits, single hyphens).
2. "fileSpecs" must list between %d and %d files and must include: package.json, index.html, vite.config.js, tailwind.config.js, postcss.config.js, src/main.jsx, src/App.jsx, src/index.css.
3. Every fileSpec path is unique and relative to the project root.
4. Plan only files the application actually needs. No tests, no CI, no documentation.
5. Keep "features" to the 3-6 things the user will notice.`, brief, rules.MinSpecs, rules.MaxSpecs)
}

func generationSystemPrompt() string {
	return `You are an expert React developer. You write complete, production-quality code for small web applications: every file fully implemented, no placeholders, no abbreviated sections.

You always answer with a single JSON object and nothing else: no markdown fences, no commentary before or after the JSON. Inside "content" string values, escape every double quote, backslash and newline so the JSON stays valid.`
}

func generationPrompt(m *project.Manifest, rules validate.Rules) string {
	var specs strings.Builder
	for _, s := range m.FileSpecs {
		fmt.Fprintf(&specs, "- %s: %s\n", s.Path, s.Purpose)
	}
	features := "- (none listed)"
	if len(m.Features) > 0 {
		features = "- " + strings.Join(m.Features, "\n- ")
	}

	return fmt.Sprintf(`Generate the complete source code for this planned project.

Project name: %s
Stack: %s, %s, %s

Features:
%s

Files to produce:
%s
Respond with one JSON object of this exact shape:

{"files": [{"path": "relative/path", "content": "entire file content"}]}

Generation rules:
1. Produce every planned file, fully implemented. Copy each "path" exactly as planned.
2. These paths MUST be present: %s.
3. package.json must set "name" to exactly "%s", define the scripts %s, declare %s under "dependencies", and declare %s under "devDependencies".
4. Never emit placeholder text such as "your code here" or "rest of the code". Every file must run as written.
5. tailwind.config.js must end with a module.exports assignment.
6. Declare every npm package your code imports in package.json.
7. Output raw JSON only, starting with { and ending with }.`,
		m.ProjectName,
		m.Stack.Framework, m.Stack.Language, m.Stack.Styling,
		features,
		specs.String(),
		strings.Join(rules.RequiredFiles, ", "),
		m.ProjectName,
		quotedList(rules.RequiredScripts),
		quotedList(rules.RequiredDeps),
		quotedList(rules.RequiredDevDeps),
	)
}

func quotedList(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = fmt.Sprintf("%q", item)
	}
	return strings.Join(quoted, ", ")
}
