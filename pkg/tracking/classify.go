package tracking

import "strings"

// Query structure tags
const (
	StructureQuestion   = "question"
	StructureBoolean    = "boolean"
	StructureQuoted     = "quoted"
	StructureSingleTerm = "single_term"
	StructureKeyword    = "keyword"
)

var questionWords = map[string]bool{
	"who": true, "what": true, "when": true, "where": true, "why": true, "which": true, "how": true,
	"is": true, "are": true, "can": true, "does": true, "do": true, "should": true, "will": true,
}

var booleanOperators = map[string]bool{"AND": true, "OR": true, "NOT": true}

// ClassifyQuery tags the shape of a search query
func ClassifyQuery(text string) string {
	text = strings.TrimSpace(text)
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return StructureKeyword
	}

	if strings.HasSuffix(text, "?") || questionWords[strings.ToLower(fields[0])] {
		return StructureQuestion
	}
	for _, f := range fields {
		if booleanOperators[f] || (len(f) > 1 && (f[0] == '+' || f[0] == '-')) {
			return StructureBoolean
		}
	}
	if strings.Count(text, `"`) >= 2 {
		return StructureQuoted
	}
	if len(fields) == 1 {
		return StructureSingleTerm
	}
	return StructureKeyword
}
