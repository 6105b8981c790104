package web

import (
	"context"
	"fmt"
	"net/http"

	"github.com/vitos/sentiment_mint/internal/usecase"
	"go.uber.org/zap"
)

// APIPrefix roots every mint route.
const APIPrefix = "/api/nft"

type Server struct {
	router  *http.ServeMux
	server  *http.Server
	service *usecase.MintService
	feed    *MintFeed
	logger  *zap.Logger

	// maxMemory bounds the multipart bytes held in memory; the rest spools to disk.
	maxMemory int64
}

func NewServer(
	port int,
	service *usecase.MintService,
	feed *MintFeed,
	logger *zap.Logger,
) *Server {
	s := &Server{
		router:    http.NewServeMux(),
		service:   service,
		feed:      feed,
		logger:    logger,
		maxMemory: maxMultipartMemory,
	}
	s.routes()
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.Handler(),
	}
	return s
}

func (s *Server) routes() {
	// Health
	s.router.HandleFunc("GET /{$}", s.handleLanding)

	// Mint
	s.router.HandleFunc("POST "+APIPrefix+"/mint", s.handleMint)
	s.router.HandleFunc("GET "+APIPrefix+"/all", s.handleListAll)

	// Files
	s.router.HandleFunc("GET "+APIPrefix+"/generated_gifs/{filename...}", s.handleArtifact)
	s.router.HandleFunc("GET "+APIPrefix+"/uploads/{filename...}", s.handleUpload)

	// Market
	s.router.HandleFunc("GET "+APIPrefix+"/prices", s.handlePrices)

	// Live mint feed
	if s.feed != nil {
		s.router.HandleFunc("GET "+APIPrefix+"/stream", s.feed.ServeWS)
	}
}

// Handler is the full middleware-wrapped handler tree.
func (s *Server) Handler() http.Handler {
	return requestLogger(s.logger, s.router)
}

func (s *Server) Start() error {
	s.logger.Info("Starting web server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.feed != nil {
		s.feed.Close()
	}
	return s.server.Shutdown(ctx)
}
