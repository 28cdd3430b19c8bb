package http

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/mind-engage/assessment-engine/internal/questionbank"
	"github.com/mind-engage/assessment-engine/internal/storage"
)

const maxQuestionUpload = 16 << 20

// POST /questions/import (multipart: file=<.xlsx|.csv|.yaml>, sheet=optional)
// The upload is archived in the blob store before it is parsed.
func ImportQuestionsHandler(repo *questionbank.Repository, bs storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxQuestionUpload)
		f, hdr, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "file required")
			return
		}
		defer f.Close()
		format, err := questionbank.FormatFromName(hdr.Filename)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		data, err := io.ReadAll(f)
		if err != nil {
			writeError(w, http.StatusBadRequest, "read upload")
			return
		}

		key := fmt.Sprintf("questions/%d-%s", time.Now().UTC().Unix(), filepath.Base(hdr.Filename))
		key, err = bs.Put(key, bytes.NewReader(data))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "archive upload: "+err.Error())
			return
		}

		im := questionbank.NewImporter(repo)
		im.Sheet = r.FormValue("sheet")
		res, err := im.Import(r.Context(), bytes.NewReader(data), format)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"archived_as": key, "result": res})
	}
}

// GET /questions/stats
func QuestionStatsHandler(repo *questionbank.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counts, err := repo.Counts(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, counts)
	}
}
