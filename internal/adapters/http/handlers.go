package httpadapter

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/kirillkom/directory-console/internal/core/domain"
	"github.com/kirillkom/directory-console/internal/core/usecase"
)

type siteRequest struct {
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	Description  string `json:"description"`
	NAFCode      string `json:"naf_code"`
	Department   string `json:"department"`
	OpenAIPrompt string `json:"openai_prompt"`
}

func (req siteRequest) form() usecase.SiteForm {
	return usecase.SiteForm{
		Name:         req.Name,
		Slug:         req.Slug,
		Description:  req.Description,
		NAFCode:      req.NAFCode,
		Department:   req.Department,
		OpenAIPrompt: req.OpenAIPrompt,
	}
}

type generateRequest struct {
	TemplateID int64           `json:"template_id"`
	Variables  json.RawMessage `json:"variables"`
}

func (rt *Router) listSites(w http.ResponseWriter, r *http.Request) {
	view, err := rt.views.Sites(r.Context())
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (rt *Router) createSite(w http.ResponseWriter, r *http.Request) {
	var req siteRequest
	if err := decodeBody(w, r, &req); err != nil {
		rt.writeError(w, r, err)
		return
	}
	form := req.form()
	site, err := rt.directory.CreateSite(r.Context(), &form, nil)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, site)
}

func (rt *Router) sitePanel(w http.ResponseWriter, r *http.Request) {
	siteID, err := pathID(r, "site_id")
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	panel, err := rt.views.SitePanel(r.Context(), siteID)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, panel)
}

func (rt *Router) updateSite(w http.ResponseWriter, r *http.Request) {
	siteID, err := pathID(r, "site_id")
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	var req siteRequest
	if err := decodeBody(w, r, &req); err != nil {
		rt.writeError(w, r, err)
		return
	}
	form := req.form()
	site, err := rt.directory.UpdateSite(r.Context(), siteID, &form)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, site)
}

func (rt *Router) deleteSite(w http.ResponseWriter, r *http.Request) {
	siteID, err := pathID(r, "site_id")
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	if err := rt.directory.DeleteSite(r.Context(), siteID); err != nil {
		rt.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) importBoard(w http.ResponseWriter, r *http.Request) {
	siteID, err := pathID(r, "site_id")
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	board, err := rt.monitor.Board(r.Context(), siteID)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (rt *Router) createImport(w http.ResponseWriter, r *http.Request) {
	siteID, err := pathID(r, "site_id")
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	var req struct {
		NAFCode    string `json:"naf_code"`
		Department string `json:"department"`
		City       string `json:"city"`
	}
	if r.ContentLength != 0 {
		if err := decodeBody(w, r, &req); err != nil {
			rt.writeError(w, r, err)
			return
		}
	}
	form := usecase.ImportForm{NAFCode: req.NAFCode, Department: req.Department, City: req.City}
	job, err := rt.directory.CreateImport(r.Context(), siteID, &form)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

func (rt *Router) siteMap(w http.ResponseWriter, r *http.Request) {
	siteID, err := pathID(r, "site_id")
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	view, err := rt.views.Map(r.Context(), siteID)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (rt *Router) listPages(w http.ResponseWriter, r *http.Request) {
	siteID, err := pathID(r, "site_id")
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	view, err := rt.views.Pages(r.Context(), siteID)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (rt *Router) createPage(w http.ResponseWriter, r *http.Request) {
	siteID, err := pathID(r, "site_id")
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	var req struct {
		Title          string `json:"title"`
		Slug           string `json:"slug"`
		Content        string `json:"content"`
		SEODescription string `json:"seo_description"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		rt.writeError(w, r, err)
		return
	}
	form := usecase.PageForm{Title: req.Title, Slug: req.Slug, Content: req.Content, SEODescription: req.SEODescription}
	page, err := rt.directory.CreatePage(r.Context(), siteID, &form)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, page)
}

func (rt *Router) getPage(w http.ResponseWriter, r *http.Request) {
	siteID, err := pathID(r, "site_id")
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	pageID, err := pathID(r, "page_id")
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	page, err := rt.directory.Page(r.Context(), siteID, pageID)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (rt *Router) updatePage(w http.ResponseWriter, r *http.Request) {
	siteID, err := pathID(r, "site_id")
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	pageID, err := pathID(r, "page_id")
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	var update domain.ManualPageUpdate
	if err := decodeBody(w, r, &update); err != nil {
		rt.writeError(w, r, err)
		return
	}
	page, err := rt.directory.UpdatePage(r.Context(), siteID, pageID, update)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (rt *Router) deletePage(w http.ResponseWriter, r *http.Request) {
	siteID, err := pathID(r, "site_id")
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	pageID, err := pathID(r, "page_id")
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	if err := rt.directory.DeletePage(r.Context(), siteID, pageID); err != nil {
		rt.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) listPrompts(w http.ResponseWriter, r *http.Request) {
	siteID, err := pathID(r, "site_id")
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	view, err := rt.views.Prompts(r.Context(), siteID)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (rt *Router) createPrompt(w http.ResponseWriter, r *http.Request) {
	siteID, err := pathID(r, "site_id")
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	var req struct {
		Label  string             `json:"label"`
		Prompt string             `json:"prompt"`
		Scope  domain.PromptScope `json:"scope"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		rt.writeError(w, r, err)
		return
	}
	form := usecase.PromptForm{Label: req.Label, Prompt: req.Prompt, Scope: req.Scope}
	prompt, err := rt.directory.CreatePrompt(r.Context(), siteID, &form)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, prompt)
}

func (rt *Router) deletePrompt(w http.ResponseWriter, r *http.Request) {
	siteID, err := pathID(r, "site_id")
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	promptID, err := pathID(r, "prompt_id")
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	if err := rt.directory.DeletePrompt(r.Context(), siteID, promptID); err != nil {
		rt.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// generate takes the variables as a JSON value and hands its text to the
// form, so the same parsing rules apply as for typed-in variables.
func (rt *Router) generate(w http.ResponseWriter, r *http.Request) {
	siteID, err := pathID(r, "site_id")
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	var req generateRequest
	if err := decodeBody(w, r, &req); err != nil {
		rt.writeError(w, r, err)
		return
	}
	text := strings.TrimSpace(string(req.Variables))
	if text == "" {
		text = "{}"
	}
	form := usecase.GenerateForm{TemplateID: req.TemplateID, VariablesText: text}
	result, err := rt.directory.Generate(r.Context(), siteID, &form)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) export(w http.ResponseWriter, r *http.Request) {
	siteID, err := pathID(r, "site_id")
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	var filter domain.EstablishmentFilter
	query := r.URL.Query()
	if raw := query.Get("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			rt.writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "parse active", err))
			return
		}
		filter.Active = &active
	}
	filter.PostalCode = query.Get("postal_code")

	result, err := rt.exports.Export(r.Context(), siteID, filter)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}
