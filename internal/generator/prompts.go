package generator

import (
	_ "embed"
	"strings"

	"dealbrief-backend/internal/shared/util"
)

var (
	//go:embed prompts/system.txt
	systemTemplate string
	//go:embed prompts/schema.txt
	schemaTemplate string
	//go:embed prompts/extraction.txt
	extractionTemplate string
	//go:embed prompts/repair.txt
	repairTemplate string
)

// Prompt is the rendered instruction pair sent to a model.
type Prompt struct {
	System string
	User   string
}

// BuildPrompt renders the system and user instructions for req. Repair
// requests swap the extraction instruction for the repair instruction.
func BuildPrompt(req Request) Prompt {
	schema := req.Schema
	if req.Repair != nil && strings.TrimSpace(req.Repair.Schema) != "" {
		schema = req.Repair.Schema
	}

	system := strings.TrimSpace(systemTemplate)
	if strings.TrimSpace(schema) != "" {
		system += "\n\n" + strings.TrimSpace(strings.ReplaceAll(schemaTemplate, "{{SCHEMA}}", schema))
	}

	var user string
	if req.Repair != nil {
		user = strings.NewReplacer(
			"{{ERROR}}", req.Repair.ValidationError,
			"{{SCHEMA}}", schema,
			"{{TEXT}}", req.RawText,
		).Replace(repairTemplate)
	} else {
		user = strings.ReplaceAll(extractionTemplate, "{{TEXT}}", req.RawText)
	}

	return Prompt{System: system, User: strings.TrimSpace(user)}
}

// Hash returns a stable hex digest of the rendered prompt for log correlation.
func (p Prompt) Hash() string {
	return util.HashHex("system: " + p.System + "\n\nuser: " + p.User)
}
