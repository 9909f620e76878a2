package domain

import "time"

// Registry filter keys understood by the import engine.
const (
	FilterNAFCode    = "codeNaf"
	FilterDepartment = "codeDepartementEtablissement"
)

type Site struct {
	ID            int64             `json:"id"`
	Name          string            `json:"name"`
	Slug          string            `json:"slug"`
	Description   string            `json:"description,omitempty"`
	SireneFilters map[string]string `json:"sirene_filters,omitempty"`
	OpenAIPrompt  string            `json:"openai_prompt,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// NAFCode returns the activity code filter, if any.
func (s Site) NAFCode() string {
	return s.SireneFilters[FilterNAFCode]
}

// Department returns the department filter, if any.
func (s Site) Department() string {
	return s.SireneFilters[FilterDepartment]
}

type SiteCreate struct {
	Name          string            `json:"name" validate:"required"`
	Slug          string            `json:"slug" validate:"required,slug"`
	Description   string            `json:"description,omitempty"`
	SireneFilters map[string]string `json:"sirene_filters,omitempty"`
	OpenAIPrompt  string            `json:"openai_prompt,omitempty"`
}
