package httpapi

import (
	"net/http"

	"github.com/refsync/refsync/internal/server/models"
	"github.com/refsync/refsync/internal/server/services"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type popRequest struct {
	Max int `json:"max"`
}

type wireItem struct {
	ID            string `json:"id"`
	LibraryID     int64  `json:"libraryId"`
	AttachmentKey string `json:"attachmentKey"`
	UploadURL     string `json:"uploadUrl"`
	FileHash      string `json:"fileHash"`
	Attempts      int    `json:"attempts"`
}

type popResponse struct {
	Items  []wireItem         `json:"items"`
	Status models.QueueCounts `json:"status"`
}

type completeRequest struct {
	ID        string `json:"id"`
	PageCount int    `json:"pageCount"`
}

type failRequest struct {
	ID       string `json:"id"`
	FileHash string `json:"fileHash"`
}

type resetRequest struct {
	ID string `json:"id"`
}

type enqueueRequest struct {
	LibraryID     int64  `json:"libraryId"`
	AttachmentKey string `json:"attachmentKey"`
	FileHash      string `json:"fileHash"`
}

type enqueueResponse struct {
	ID string `json:"id"`
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (a *API) registerHandler(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password required")
		return
	}

	if _, err := a.users.Register(r.Context(), req.Username, []byte(req.Password)); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (a *API) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decode(w, r, &req) {
		return
	}

	pair, err := a.users.Login(r.Context(), req.Username, []byte(req.Password))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (a *API) refreshHandler(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decode(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refreshToken required")
		return
	}

	pair, err := a.users.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (a *API) popHandler(w http.ResponseWriter, r *http.Request) {
	var req popRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Max <= 0 {
		writeError(w, http.StatusBadRequest, "max must be positive")
		return
	}

	items, counts, err := a.queue.Pop(r.Context(), userIDFrom(r), req.Max)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}

	resp := popResponse{Items: make([]wireItem, 0, len(items)), Status: counts}
	for _, it := range items {
		resp.Items = append(resp.Items, wireItem{
			ID:            it.ID,
			LibraryID:     it.LibraryID,
			AttachmentKey: it.AttachmentKey,
			UploadURL:     it.UploadURL,
			FileHash:      it.FileHash,
			Attempts:      it.Attempts,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) completeHandler(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if !decode(w, r, &req) {
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "id required")
		return
	}

	if err := a.queue.Complete(r.Context(), userIDFrom(r), req.ID, req.PageCount); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (a *API) failHandler(w http.ResponseWriter, r *http.Request) {
	var req failRequest
	if !decode(w, r, &req) {
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "id required")
		return
	}

	if err := a.queue.Fail(r.Context(), userIDFrom(r), req.ID, req.FileHash); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (a *API) resetHandler(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if !decode(w, r, &req) {
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "id required")
		return
	}

	if err := a.queue.Reset(r.Context(), userIDFrom(r), req.ID); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (a *API) enqueueHandler(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if !decode(w, r, &req) {
		return
	}
	if req.LibraryID <= 0 || req.AttachmentKey == "" {
		writeError(w, http.StatusBadRequest, "libraryId and attachmentKey required")
		return
	}

	id, err := a.queue.Enqueue(r.Context(), userIDFrom(r), req.LibraryID, req.AttachmentKey, req.FileHash)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, enqueueResponse{ID: id})
}

func (a *API) statusHandler(w http.ResponseWriter, r *http.Request) {
	counts, err := a.queue.Status(r.Context(), userIDFrom(r))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

// Compile-time checks that the concrete services satisfy the handler
// interfaces.
var (
	_ UserProvider  = (*services.UserService)(nil)
	_ QueueProvider = (*services.QueueService)(nil)
)
