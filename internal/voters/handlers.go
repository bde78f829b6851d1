package voters

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/EmpoweredVote/ward-backend/internal/pdftext"
	"github.com/EmpoweredVote/ward-backend/internal/rollparse"
	"github.com/EmpoweredVote/ward-backend/internal/utils"
)

const (
	searchLimit  = 50
	importsLimit = 20

	maxVerifyBody = 16 << 10
	maxNameRunes  = 200
	maxEPICRunes  = 32
)

type Handlers struct {
	matcher  *Matcher
	importer *Importer
	store    Store
	log      *zap.Logger
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

type verifyRequest struct {
	Name       string `json:"name"`
	EPICNumber string `json:"epic_number"`
}

type verifyResponse struct {
	Success bool `json:"success"`
	Result
}

// VerifyHandler checks a registrant's name and optional EPIC number against
// the roll.
func (h *Handlers) VerifyHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxVerifyBody)

	var input verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if utf8.RuneCountInString(input.Name) > maxNameRunes || utf8.RuneCountInString(input.EPICNumber) > maxEPICRunes {
		writeError(w, http.StatusBadRequest, "Name or EPIC number is too long")
		return
	}

	res, err := h.matcher.Verify(r.Context(), input.Name, input.EPICNumber)
	if errors.Is(err, ErrNameRequired) {
		writeError(w, http.StatusBadRequest, "Name is required for voter verification")
		return
	}
	if err != nil {
		h.log.Error("voter verification failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Verification failed. Please try again.")
		return
	}

	writeJSON(w, http.StatusOK, verifyResponse{Success: res.Verified, Result: res})
}

// SearchHandler looks voters up by name or EPIC prefix for the admin roll view.
func (h *Handlers) SearchHandler(w http.ResponseWriter, r *http.Request) {
	voters, err := h.store.SearchVoters(r.Context(), r.URL.Query().Get("query"), searchLimit)
	if err != nil {
		h.log.Error("voter search failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Search failed")
		return
	}
	if voters == nil {
		voters = []Voter{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "voters": voters})
}

// ImportHandler accepts a roll PDF as a multipart "file" or, on the legacy
// path, a "pdf_url" to download.
func (h *Handlers) ImportHandler(w http.ResponseWriter, r *http.Request) {
	adminID, _ := utils.GetAdminIDFromContext(r.Context())

	var (
		data []byte
		name string
	)
	file, header, err := r.FormFile("file")
	switch {
	case err == nil:
		defer file.Close()
		if data, err = io.ReadAll(file); err != nil {
			writeError(w, http.StatusBadRequest, "Failed to read upload")
			return
		}
		name = header.Filename
	case r.FormValue("pdf_url") != "":
		name = r.FormValue("pdf_url")
		if data, err = h.importer.FetchPDF(r.Context(), name); err != nil {
			h.writeImportError(w, err)
			return
		}
	default:
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}

	sum, err := h.importer.Import(r.Context(), Source{Data: data, Name: name, AdminID: adminID})
	if err != nil {
		h.writeImportError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		Summary
	}{true, sum})
}

func (h *Handlers) writeImportError(w http.ResponseWriter, err error) {
	var parseErr *pdftext.ParseError
	switch {
	case errors.As(err, &parseErr):
		writeError(w, http.StatusBadRequest, "Failed to parse PDF: "+parseErr.Err.Error())
	case errors.Is(err, rollparse.ErrNoVotersFound):
		writeError(w, http.StatusBadRequest, "No voter data found. Please ensure the PDF is a text-based voter list.")
	case errors.Is(err, ErrPDFTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, ErrFetch):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error("voter import failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error during processing")
	}
}

func (h *Handlers) ImportsHandler(w http.ResponseWriter, r *http.Request) {
	limit := importsLimit
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 100 {
		limit = v
	}
	runs, err := h.store.ListImports(r.Context(), limit)
	if err != nil {
		h.log.Error("list imports failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to list imports")
		return
	}
	if runs == nil {
		runs = []ImportRun{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "imports": runs})
}

func (h *Handlers) StatsHandler(w http.ResponseWriter, r *http.Request) {
	total, err := h.store.CountVoters(r.Context())
	if err != nil {
		h.log.Error("count voters failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to count voters")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "total": total})
}
