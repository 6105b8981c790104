package web

import (
	"errors"
	"io/fs"
	"net/http"

	"github.com/vitos/sentiment_mint/internal/domain"
	"github.com/vitos/sentiment_mint/internal/usecase"
	"go.uber.org/zap"
)

const maxMultipartMemory = 32 << 20

func (s *Server) handleLanding(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("Backend is running!"))
}

func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	// A body that is not multipart simply has no file part; validation reports it.
	if err := r.ParseMultipartForm(s.maxMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		s.logger.Warn("Multipart parse failed", zap.Error(err))
		s.writeError(w, multipartError(err))
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	req := usecase.MintRequest{Category: r.FormValue("nft_type")}

	file, header, err := r.FormFile("file")
	if err == nil {
		defer file.Close()
		req.Content = file
		req.Filename = header.Filename
	}

	record, err := s.service.Mint(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, record)
}

// multipartError separates a failure to spool the upload to disk from a
// malformed request body.
func multipartError(err error) error {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return domain.StorageError("Failed to buffer uploaded file", err)
	}
	return domain.ValidationError("Malformed multipart body")
}

func (s *Server) handleListAll(w http.ResponseWriter, r *http.Request) {
	records, err := s.service.ListAll(r.Context())
	if err != nil {
		s.logger.Error("Failed to list mints", zap.Error(err))
		s.writeError(w, err)
		return
	}
	if records == nil {
		records = []*domain.MintRecord{}
	}
	s.writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	s.serveResolved(w, r, s.service.ResolveArtifact)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	s.serveResolved(w, r, s.service.ResolveUpload)
}

func (s *Server) serveResolved(w http.ResponseWriter, r *http.Request, resolve func(string) (string, error)) {
	p, err := resolve(r.PathValue("filename"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	http.ServeFile(w, r, p)
}

func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.service.CurrentMarket())
}
