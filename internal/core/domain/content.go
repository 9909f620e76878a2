package domain

import "time"

type ManualPage struct {
	ID             int64     `json:"id"`
	SiteID         int64     `json:"site_id"`
	Title          string    `json:"title"`
	Slug           string    `json:"slug"`
	Content        string    `json:"content"`
	SEODescription string    `json:"seo_description,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type ManualPageCreate struct {
	Title          string `json:"title" validate:"required"`
	Slug           string `json:"slug" validate:"required,slug"`
	Content        string `json:"content" validate:"required"`
	SEODescription string `json:"seo_description,omitempty"`
}

// ManualPageUpdate is a partial update; nil fields are left unchanged.
type ManualPageUpdate struct {
	Title          *string `json:"title,omitempty"`
	Slug           *string `json:"slug,omitempty" validate:"omitempty,slug"`
	Content        *string `json:"content,omitempty"`
	SEODescription *string `json:"seo_description,omitempty"`
}

type PromptScope string

const (
	ScopeCity       PromptScope = "city"
	ScopePostalCode PromptScope = "postal_code"
	ScopeCustom     PromptScope = "custom"
)

type PromptTemplate struct {
	ID        int64       `json:"id"`
	SiteID    int64       `json:"site_id"`
	Label     string      `json:"label"`
	Prompt    string      `json:"prompt"`
	Scope     PromptScope `json:"scope"`
	CreatedAt time.Time   `json:"created_at"`
}

type PromptTemplateCreate struct {
	Label  string      `json:"label" validate:"required"`
	Prompt string      `json:"prompt" validate:"required"`
	Scope  PromptScope `json:"scope" validate:"required,oneof=city postal_code custom"`
}

type GenerationRequest struct {
	TemplateID int64             `json:"template_id"`
	Variables  map[string]string `json:"variables"`
}

// GenerationResult is the rendered prompt and the generated content.
// It is never cached; the next generation replaces it.
type GenerationResult struct {
	Prompt  string `json:"prompt"`
	Content string `json:"content"`
}
