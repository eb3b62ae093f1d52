package domain

// SymptomCategory groups reference entries by how often they occur.
type SymptomCategory string

const (
	SymptomCommon     SymptomCategory = "common"
	SymptomLessCommon SymptomCategory = "less_common"
	// SymptomPattern marks disease-course patterns such as relapsing-remitting.
	SymptomPattern SymptomCategory = "pattern"
)

// SymptomEntry is a read-only row of the symptom reference table.
type SymptomEntry struct {
	Name        string
	Description string
	Category    SymptomCategory
	// Pattern optionally ties a symptom to a disease course.
	Pattern  string
	Keywords []string
}
