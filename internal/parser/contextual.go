package parser

import "strings"

// Object-level contextualization replies use labeled sections instead of
// delimited blocks. Sections continue across lines until the next label.
const (
	fieldObjectName   = "OBJECT_NAME:"
	fieldDetailedDesc = "DETAILED_DESCRIPTION:"
	fieldContextual   = "CONTEXTUAL_ANALYSIS:"
)

// Contextual holds the parsed object-level analysis of one landmark frame.
type Contextual struct {
	Name        string
	Description string
	Analysis    string
}

// defaultContextual is used when a reply is empty or carries none of the
// expected sections.
var defaultContextual = Contextual{
	Name:        "Unidentified object",
	Description: "N/A",
	Analysis:    "Contextual analysis not available",
}

// ParseContextual extracts the name, description, and analysis sections from
// an object-level reply. Markdown code fences are stripped first. Missing
// sections keep their defaults; the function never fails.
func (p *Parser) ParseContextual(text string) Contextual {
	result := defaultContextual

	clean := strings.TrimSpace(text)
	if strings.HasPrefix(clean, "```") && strings.HasSuffix(clean, "```") {
		clean = strings.TrimSpace(clean[3 : len(clean)-3])
		clean = strings.TrimSpace(strings.TrimPrefix(clean, "json"))
	}

	var desc, analysis []string
	section := ""

	for _, line := range strings.Split(clean, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, fieldObjectName):
			result.Name = strings.TrimSpace(strings.TrimPrefix(line, fieldObjectName))
			section = "name"
		case strings.HasPrefix(line, fieldDetailedDesc):
			if rest := strings.TrimSpace(strings.TrimPrefix(line, fieldDetailedDesc)); rest != "" {
				desc = append(desc, rest)
			}
			section = "description"
		case strings.HasPrefix(line, fieldContextual):
			if rest := strings.TrimSpace(strings.TrimPrefix(line, fieldContextual)); rest != "" {
				analysis = append(analysis, rest)
			}
			section = "analysis"
		case line != "" && section == "description":
			desc = append(desc, line)
		case line != "" && section == "analysis":
			analysis = append(analysis, line)
		}
	}

	if len(desc) > 0 {
		result.Description = strings.Join(desc, "\n")
	}
	if len(analysis) > 0 {
		result.Analysis = strings.Join(analysis, "\n")
	}
	if result.Name == "" {
		result.Name = defaultContextual.Name
	}

	return result
}
