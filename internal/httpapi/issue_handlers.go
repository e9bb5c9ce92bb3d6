package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"voiceup.org/internal/auth"
	"voiceup.org/internal/issues"
)

// multipart forms are parsed into memory up to this many bytes before
// spilling to disk.
const maxPhotoMemory = 10 << 20

func (a *API) handleIssuesCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listIssues(w, r)
	case http.MethodPost:
		a.authorize(a.createIssue, auth.RoleUser)(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleIssueResource(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/issues/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "resource not found")
		return
	}
	if !validIssueID(id) {
		writeError(w, http.StatusBadRequest, "invalid issue id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.getIssue(w, r, id)
	case http.MethodPatch:
		a.authorize(func(w http.ResponseWriter, r *http.Request) {
			a.updateIssue(w, r, id)
		})(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPatch)
	}
}

// createIssue accepts a multipart form: text fields plus up to five
// "photos" parts.
func (a *API) createIssue(w http.ResponseWriter, r *http.Request) {
	account, ok := auth.AccountFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := r.ParseMultipartForm(maxPhotoMemory); err != nil {
		writeError(w, http.StatusBadRequest, "multipart form is required")
		return
	}

	lng, lngErr := strconv.ParseFloat(r.FormValue("lng"), 64)
	lat, latErr := strconv.ParseFloat(r.FormValue("lat"), 64)
	if lngErr != nil || latErr != nil {
		writeError(w, http.StatusBadRequest, "lng and lat are required numbers")
		return
	}

	input := issues.CreateInput{
		Title:       strings.TrimSpace(r.FormValue("title")),
		Description: strings.TrimSpace(r.FormValue("description")),
		Category:    issues.Category(r.FormValue("category")),
		Address:     strings.TrimSpace(r.FormValue("address")),
		Location:    issues.NewLocation(lng, lat),
	}
	if msg, ok := validateStruct(input); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	photos := r.MultipartForm.File["photos"]
	if len(photos) > issues.MaxPhotos {
		writeError(w, http.StatusBadRequest, "at most 5 photos are allowed")
		return
	}
	for _, header := range photos {
		file, err := header.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, "unreadable photo upload")
			return
		}
		defer file.Close()
		input.Photos = append(input.Photos, issues.Upload{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Content:     file,
		})
	}

	issue, err := a.issues.Create(r.Context(), account, input)
	if err != nil {
		a.handleIssueError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Issue created successfully",
		"issue":   issue,
	})
}

func (a *API) listIssues(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := issues.Filter{
		Sort: issues.ParseSort(query.Get("sort")),
	}

	if raw := query.Get("category"); raw != "" {
		category := issues.Category(raw)
		if !category.Valid() {
			writeError(w, http.StatusBadRequest, "invalid category")
			return
		}
		filter.Category = category
	}
	if raw := query.Get("status"); raw != "" {
		status := issues.Status(raw)
		if !status.Valid() {
			writeError(w, http.StatusBadRequest, "invalid status")
			return
		}
		filter.Status = status
	}
	if raw := query.Get("bbox"); raw != "" {
		box, err := issues.ParseBBox(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.BBox = box
	}

	listed, err := a.issues.List(r.Context(), filter)
	if err != nil {
		a.handleIssueError(w, err)
		return
	}
	if listed == nil {
		listed = []*issues.Issue{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":  listed,
		"count": len(listed),
	})
}

func (a *API) getIssue(w http.ResponseWriter, r *http.Request, id string) {
	issue, err := a.issues.Get(r.Context(), id)
	if err != nil {
		a.handleIssueError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"issue": issue})
}

func (a *API) updateIssue(w http.ResponseWriter, r *http.Request, id string) {
	account, ok := auth.AccountFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	// Unknown and non-patchable fields are dropped on the floor, so the
	// strict decoder is not used here.
	var patch issues.Patch
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	if err := json.NewDecoder(reader).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	issue, changed, err := a.issues.Update(r.Context(), account, id, patch)
	if err != nil {
		a.handleIssueError(w, err)
		return
	}

	message := "Issue updated successfully"
	if !changed {
		message = "No changes applied"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": message,
		"issue":   issue,
	})
}

func (a *API) handleIssueError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, issues.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, issues.ErrInvalidPatch):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, issues.ErrNotFound):
		writeError(w, http.StatusNotFound, "issue not found")
	case errors.Is(err, issues.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// validIssueID accepts ULIDs: 26 characters from Crockford's base32.
func validIssueID(id string) bool {
	if len(id) != 26 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'A' && r <= 'Z' && r != 'I' && r != 'L' && r != 'O' && r != 'U':
		default:
			return false
		}
	}
	return true
}
