package survey

import "strings"

// Stage is a coarse year-group bucket.
type Stage string

const (
	StageS1S2   Stage = "S1 & S2"
	StageS3     Stage = "S3"
	StageSenior Stage = "Senior Phase"
	StageOther  Stage = "Other"

	// AllStages disables the stage filter when used in a Selection.
	AllStages = "All Years"
)

// FacultyOther is assigned when no faculty keyword matches a subject.
const FacultyOther = "Other"

// ClassifyStage maps a raw year-group value to a stage bucket. The
// value is upper-cased and trimmed, then tested against the profile's
// stage rules in order; the first token match wins, so a value holding
// several tokens resolves predictably.
func ClassifyStage(p *Profile, yearValue string) Stage {
	value := strings.ToUpper(strings.TrimSpace(yearValue))
	for _, rule := range p.Stages {
		for _, token := range rule.Tokens {
			if strings.Contains(value, strings.ToUpper(token)) {
				return rule.Stage
			}
		}
	}
	return StageOther
}

// ClassifyFaculty maps a subject to the first faculty whose keyword
// list has a case-insensitive substring match. Ties are broken by
// table order alone; match length and count are irrelevant.
func ClassifyFaculty(p *Profile, subjectValue string) string {
	value := strings.ToLower(strings.TrimSpace(subjectValue))
	for _, rule := range p.Faculties {
		for _, keyword := range rule.Keywords {
			if strings.Contains(value, strings.ToLower(keyword)) {
				return rule.Name
			}
		}
	}
	return FacultyOther
}
