package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"

	"github.com/markdave123-py/botdesk/internal/core/ingestion_engine"
	"github.com/markdave123-py/botdesk/internal/core/retrieval"
	"github.com/markdave123-py/botdesk/internal/services"
)

const (
	maxUploadBytes = 50 << 20
	maxBatchBytes  = 200 << 20
)

type DocumentHandler struct {
	docs        *services.DocumentService
	attachments *services.AttachmentService
	searcher    retrieval.Searcher
	topK        int
}

func NewDocumentHandler(docs *services.DocumentService, attachments *services.AttachmentService, searcher retrieval.Searcher, topK int) *DocumentHandler {
	return &DocumentHandler{docs: docs, attachments: attachments, searcher: searcher, topK: topK}
}

// UploadDocument stores one file and returns the document while it is still
// processing.
func (h *DocumentHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		badRequest(w, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		badRequest(w, "invalid file")
		return
	}
	defer file.Close()

	up, err := readUpload(file, header)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	up.OwnerID = userID
	if kb := strings.TrimSpace(r.FormValue("knowledge_base_id")); kb != "" {
		up.KnowledgeBaseID = &kb
	}

	doc, err := h.docs.Upload(r.Context(), up)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, doc)
}

// UploadBatch stores every "files" part for the knowledge base in the route.
func (h *DocumentHandler) UploadBatch(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBatchBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		badRequest(w, "invalid multipart form")
		return
	}

	var uploads []ingestion_engine.Upload
	for _, fh := range r.MultipartForm.File["files"] {
		f, err := fh.Open()
		if err != nil {
			badRequest(w, "invalid file")
			return
		}
		up, err := readUpload(f, fh)
		f.Close()
		if err != nil {
			badRequest(w, err.Error())
			return
		}
		uploads = append(uploads, up)
	}

	batch, err := h.docs.UploadBatch(r.Context(), userID, chi.URLParam(r, "id"), uploads)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, batch)
}

func (h *DocumentHandler) CancelBatch(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(w, r)
	if !ok {
		return
	}
	if err := h.docs.CancelBatch(userID, chi.URLParam(r, "batchID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DocumentHandler) GetDocuments(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(w, r)
	if !ok {
		return
	}
	documents, err := h.docs.ListByUser(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, documents)
}

func (h *DocumentHandler) GetChunks(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(w, r)
	if !ok {
		return
	}
	chunks, err := h.docs.Chunks(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chunks)
}

func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(w, r)
	if !ok {
		return
	}
	if err := h.docs.Delete(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DocumentHandler) Reprocess(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(w, r)
	if !ok {
		return
	}
	doc, err := h.docs.Reprocess(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, doc)
}

type searchRequest struct {
	Query string `json:"query"`
	K     int    `json:"k"`
}

// Search runs owner-scoped retrieval over the caller's documents.
func (h *DocumentHandler) Search(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(w, r)
	if !ok {
		return
	}
	var req searchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		badRequest(w, "query is required")
		return
	}
	k := req.K
	if k <= 0 {
		k = h.topK
	}
	matches := h.searcher.Search(r.Context(), req.Query, k, retrieval.OwnerScope(userID))
	writeJSON(w, http.StatusOK, map[string]any{"results": matches})
}

// ExtractAttachment returns the text of a file dropped into the chat box.
func (h *DocumentHandler) ExtractAttachment(w http.ResponseWriter, r *http.Request) {
	if _, ok := ownerID(w, r); !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		badRequest(w, "invalid file")
		return
	}
	defer file.Close()

	up, err := readUpload(file, header)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	text, err := h.attachments.Extract(r.Context(), up.ContentType, up.Data)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"file_name": up.FileName, "text": text})
}

func readUpload(f multipart.File, header *multipart.FileHeader) (ingestion_engine.Upload, error) {
	data, err := io.ReadAll(f)
	if err != nil {
		return ingestion_engine.Upload{}, fmt.Errorf("could not read %s", header.Filename)
	}
	return ingestion_engine.Upload{
		FileName:    filepath.Base(header.Filename),
		ContentType: detectContentType(header.Header.Get("Content-Type"), data),
		Data:        data,
	}, nil
}

// detectContentType trusts a specific declared type and sniffs otherwise.
func detectContentType(declared string, data []byte) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && !strings.HasPrefix(declared, "application/octet-stream") {
		return declared
	}
	return mimetype.Detect(data).String()
}
