package survey

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

// StageRule maps a stage bucket to the year-group tokens that select it.
// Rules are evaluated in slice order; the first token match wins.
type StageRule struct {
	Stage  Stage    `yaml:"stage"`
	Tokens []string `yaml:"tokens"`
}

// FacultyRule maps a faculty name to its subject keywords. Rules are
// evaluated in slice order; the first keyword match wins, so the order
// of the table is part of the configuration.
type FacultyRule struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// CategoryRule groups survey questions by column-name prefix.
type CategoryRule struct {
	Name     string   `yaml:"name"`
	Prefixes []string `yaml:"prefixes"`
}

// Profile parameterizes the survey pipeline. A single profile replaces
// the keyword lists, category tables and answer sets that would
// otherwise be duplicated per report variant.
type Profile struct {
	// YearKeywords and SubjectKeywords drive column auto-detection.
	YearKeywords    []string `yaml:"year_keywords"`
	SubjectKeywords []string `yaml:"subject_keywords"`

	Stages     []StageRule    `yaml:"stages"`
	Faculties  []FacultyRule  `yaml:"faculties"`
	Categories []CategoryRule `yaml:"categories"`

	// PositiveAnswers are matched exactly after lower-casing and
	// trimming a response value.
	PositiveAnswers []string `yaml:"positive_answers"`
}

// DefaultProfile returns the built-in profile for a Scottish secondary
// school survey export.
func DefaultProfile() *Profile {
	return &Profile{
		YearKeywords:    []string{"year group", "grade", "stage"},
		SubjectKeywords: []string{"which subject", "subject answering", "subject"},
		Stages: []StageRule{
			{Stage: StageS1S2, Tokens: []string{"S1", "S2"}},
			{Stage: StageS3, Tokens: []string{"S3"}},
			{Stage: StageSenior, Tokens: []string{"S4", "S5", "S6"}},
		},
		Faculties: []FacultyRule{
			{Name: "Science", Keywords: []string{"physics", "chemistry", "biology", "science"}},
			{Name: "Mathematics", Keywords: []string{"math", "numeracy"}},
			{Name: "English", Keywords: []string{"english", "literacy"}},
			{Name: "Languages", Keywords: []string{"french", "german", "spanish", "gaelic", "language"}},
			{Name: "Social Subjects", Keywords: []string{"history", "geography", "modern studies", "rmps", "politics"}},
			{Name: "Expressive Arts", Keywords: []string{"art", "music", "drama", "photography"}},
			{Name: "Technologies", Keywords: []string{"computing", "engineering", "graphic", "design", "technology", "business"}},
			{Name: "Health & Wellbeing", Keywords: []string{"pe", "physical education", "home economics", "hospitality", "dance"}},
		},
		Categories: []CategoryRule{
			{Name: "Learning & Teaching", Prefixes: []string{"The teaching", "Lessons"}},
			{Name: "Support & Feedback", Prefixes: []string{"I receive", "Feedback", "My teacher"}},
			{Name: "Environment & Relationships", Prefixes: []string{"The classroom", "I feel", "Relationships"}},
			{Name: "Progress & Confidence", Prefixes: []string{"I am making", "I know", "My progress"}},
		},
		PositiveAnswers: []string{"agree", "strongly agree"},
	}
}

// LoadProfile reads a profile from a YAML file. Missing sections fall
// back to the defaults so a site only overrides what it needs. An
// empty path returns the defaults unchanged.
func LoadProfile(path string) (*Profile, error) {
	if path == "" {
		return DefaultProfile(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}

	var loaded Profile
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("parse profile %s: %w", path, err)
	}

	p := DefaultProfile()
	if len(loaded.YearKeywords) > 0 {
		p.YearKeywords = loaded.YearKeywords
	}
	if len(loaded.SubjectKeywords) > 0 {
		p.SubjectKeywords = loaded.SubjectKeywords
	}
	if len(loaded.Stages) > 0 {
		p.Stages = loaded.Stages
	}
	if len(loaded.Faculties) > 0 {
		p.Faculties = loaded.Faculties
	}
	if len(loaded.Categories) > 0 {
		p.Categories = loaded.Categories
	}
	if len(loaded.PositiveAnswers) > 0 {
		p.PositiveAnswers = loaded.PositiveAnswers
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("profile %s: %w", path, err)
	}
	return p, nil
}

// Validate checks that the profile can drive a full pipeline run.
func (p *Profile) Validate() error {
	if len(p.YearKeywords) == 0 {
		return fmt.Errorf("profile has no year-group keywords")
	}
	if len(p.SubjectKeywords) == 0 {
		return fmt.Errorf("profile has no subject keywords")
	}
	if len(p.Stages) == 0 {
		return fmt.Errorf("profile has no stage rules")
	}
	if len(p.Categories) == 0 {
		return fmt.Errorf("profile has no question categories")
	}
	if len(p.PositiveAnswers) == 0 {
		return fmt.Errorf("profile has no positive answers")
	}
	for _, c := range p.Categories {
		if c.Name == "" || len(c.Prefixes) == 0 {
			return fmt.Errorf("category %q has no prefixes", c.Name)
		}
	}
	return nil
}

// positiveSet returns the lower-cased positive answers for lookup.
func (p *Profile) positiveSet() map[string]struct{} {
	set := make(map[string]struct{}, len(p.PositiveAnswers))
	for _, a := range p.PositiveAnswers {
		set[strings.ToLower(strings.TrimSpace(a))] = struct{}{}
	}
	return set
}

// CategoryColumns maps each category to the table columns whose names
// start with one of the category's prefixes, preserving header order.
func (p *Profile) CategoryColumns(headers []string) map[string][]string {
	out := make(map[string][]string, len(p.Categories))
	for _, cat := range p.Categories {
		var cols []string
		for _, h := range headers {
			for _, prefix := range cat.Prefixes {
				if strings.HasPrefix(h, prefix) {
					cols = append(cols, h)
					break
				}
			}
		}
		if len(cols) > 0 {
			out[cat.Name] = cols
		}
	}
	return out
}
