package usecase

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/kirillkom/directory-console/internal/core/domain"
)

// DefaultVariablesText prefills the generation form.
const DefaultVariablesText = `{"ville": "Paris"}`

// SiteForm holds the transient fields of the site creation form.
type SiteForm struct {
	Name         string
	Slug         string
	Description  string
	NAFCode      string
	Department   string
	OpenAIPrompt string
}

func (f *SiteForm) Reset() { *f = SiteForm{} }

// Payload trims the fields and keeps only the registry filters that are set.
func (f *SiteForm) Payload() domain.SiteCreate {
	filters := map[string]string{}
	if v := strings.TrimSpace(f.NAFCode); v != "" {
		filters[domain.FilterNAFCode] = v
	}
	if v := strings.TrimSpace(f.Department); v != "" {
		filters[domain.FilterDepartment] = v
	}
	if len(filters) == 0 {
		filters = nil
	}
	return domain.SiteCreate{
		Name:          strings.TrimSpace(f.Name),
		Slug:          strings.TrimSpace(f.Slug),
		Description:   strings.TrimSpace(f.Description),
		SireneFilters: filters,
		OpenAIPrompt:  strings.TrimSpace(f.OpenAIPrompt),
	}
}

// SiteFormFrom prefills an edit form from an existing site.
func SiteFormFrom(site domain.Site) SiteForm {
	return SiteForm{
		Name:         site.Name,
		Slug:         site.Slug,
		Description:  site.Description,
		NAFCode:      site.NAFCode(),
		Department:   site.Department(),
		OpenAIPrompt: site.OpenAIPrompt,
	}
}

type ImportForm struct {
	NAFCode    string
	Department string
	City       string
}

func (f *ImportForm) Reset() { *f = ImportForm{} }

func (f *ImportForm) Payload() domain.ImportJobCreate {
	return domain.ImportJobCreate{
		NAFCode:    strings.TrimSpace(f.NAFCode),
		Department: strings.TrimSpace(f.Department),
		City:       strings.TrimSpace(f.City),
	}
}

// ImportFormFor starts an import form from the site's registry filters.
func ImportFormFor(site domain.Site) ImportForm {
	return ImportForm{NAFCode: site.NAFCode(), Department: site.Department()}
}

type PageForm struct {
	Title          string
	Slug           string
	Content        string
	SEODescription string
}

func (f *PageForm) Reset() { *f = PageForm{} }

func (f *PageForm) Payload() domain.ManualPageCreate {
	return domain.ManualPageCreate{
		Title:          strings.TrimSpace(f.Title),
		Slug:           strings.TrimSpace(f.Slug),
		Content:        f.Content,
		SEODescription: strings.TrimSpace(f.SEODescription),
	}
}

type PromptForm struct {
	Label  string
	Prompt string
	Scope  domain.PromptScope
}

func NewPromptForm() PromptForm { return PromptForm{Scope: domain.ScopeCity} }

func (f *PromptForm) Reset() { *f = NewPromptForm() }

func (f *PromptForm) Payload() domain.PromptTemplateCreate {
	scope := f.Scope
	if scope == "" {
		scope = domain.ScopeCity
	}
	return domain.PromptTemplateCreate{
		Label:  strings.TrimSpace(f.Label),
		Prompt: f.Prompt,
		Scope:  scope,
	}
}

// GenerateForm keeps the selected template, the raw variables text and the
// last result. A successful generation only replaces Result so the operator
// can iterate on the same variables.
type GenerateForm struct {
	TemplateID    int64
	VariablesText string
	Result        *domain.GenerationResult
}

func NewGenerateForm() GenerateForm { return GenerateForm{VariablesText: DefaultVariablesText} }

func (f *GenerateForm) Reset() { *f = NewGenerateForm() }

// Request builds the generation payload. A missing template is checked
// before the variables text is parsed.
func (f *GenerateForm) Request() (domain.GenerationRequest, error) {
	if f.TemplateID <= 0 {
		return domain.GenerationRequest{}, domain.ErrNoTemplateSelected
	}
	vars, err := ParseVariables(f.VariablesText)
	if err != nil {
		return domain.GenerationRequest{}, err
	}
	return domain.GenerationRequest{TemplateID: f.TemplateID, Variables: vars}, nil
}

// ParseVariables decodes a JSON object of string values. Numbers and booleans
// are accepted and kept in their JSON text form; nested values are rejected.
func ParseVariables(text string) (map[string]string, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidVariables, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: expected a JSON object", domain.ErrInvalidVariables)
	}

	vars := make(map[string]string, len(raw))
	for name, value := range raw {
		trimmed := strings.TrimSpace(string(value))
		if trimmed == "" || trimmed == "null" || trimmed[0] == '{' || trimmed[0] == '[' {
			return nil, fmt.Errorf("%w: %q must be a string", domain.ErrInvalidVariables, name)
		}
		var s string
		if err := json.Unmarshal(value, &s); err == nil {
			vars[name] = s
			continue
		}
		vars[name] = trimmed
	}
	return vars, nil
}

var placeholderPattern = regexp.MustCompile(`\{\{|\}\}|\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Placeholders lists the {name} tokens of a prompt in first-seen order.
// Doubled braces are literal and ignored.
func Placeholders(prompt string) []string {
	seen := map[string]struct{}{}
	var names []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(prompt, -1) {
		if m[1] == "" {
			continue
		}
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		names = append(names, m[1])
	}
	return names
}

// MissingVariables returns the placeholders of prompt that vars does not bind.
func MissingVariables(prompt string, vars map[string]string) []string {
	var missing []string
	for _, name := range Placeholders(prompt) {
		if _, ok := vars[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// VariablesSkeleton renders a JSON object with one empty entry per placeholder.
func VariablesSkeleton(prompt string) string {
	names := Placeholders(prompt)
	if len(names) == 0 {
		return "{}"
	}
	parts := make([]string, 0, len(names))
	for _, name := range names {
		key, _ := json.Marshal(name)
		parts = append(parts, fmt.Sprintf("%s: \"\"", key))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
