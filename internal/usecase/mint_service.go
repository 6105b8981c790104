package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vitos/sentiment_mint/internal/domain"
	"github.com/vitos/sentiment_mint/internal/infrastructure/files"
)

// AllowedExtensions are the upload extensions accepted by Mint.
var AllowedExtensions = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
}

const (
	UploadsRoute   = "uploads"
	GeneratedRoute = "generated_gifs"
)

// AnimationSynthesizer turns an intake file into a published animation.
type AnimationSynthesizer interface {
	Synthesize(ctx context.Context, sourcePath, baseName string, opts AnimationOptions) (*Artifact, error)
}

type MintServiceConfig struct {
	UploadsDir   string
	GeneratedDir string
	// URLPrefix is prepended to the public file routes, e.g. "/api/nft".
	URLPrefix string
	Animation AnimationOptions
}

// MintRequest is one upload as received from the client. Content is nil when
// no file part was sent.
type MintRequest struct {
	Filename string
	Content  io.Reader
	Category string
}

type MintService struct {
	cfg       MintServiceConfig
	repo      domain.MintRepository
	synth     AnimationSynthesizer
	prices    domain.PriceSource
	evaluator *SentimentEvaluator
	publisher domain.MintPublisher
	logger    *zap.Logger

	timeNow func() time.Time
	newID   func() string
}

func NewMintService(
	cfg MintServiceConfig,
	repo domain.MintRepository,
	synth AnimationSynthesizer,
	prices domain.PriceSource,
	evaluator *SentimentEvaluator,
	logger *zap.Logger,
) *MintService {
	return &MintService{
		cfg:       cfg,
		repo:      repo,
		synth:     synth,
		prices:    prices,
		evaluator: evaluator,
		logger:    logger,
		timeNow:   time.Now,
		newID:     uuid.NewString,
	}
}

// SetPublisher registers a listener for newly appended records.
func (s *MintService) SetPublisher(p domain.MintPublisher) {
	s.publisher = p
}

// EnsureDirectories creates the intake and output directories.
func (s *MintService) EnsureDirectories() error {
	for _, dir := range []string{s.cfg.UploadsDir, s.cfg.GeneratedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

func validate(req MintRequest) (domain.Category, string, error) {
	if req.Content == nil {
		return "", "", domain.ValidationError("No file part")
	}
	category, ok := domain.ParseCategory(req.Category)
	if !ok {
		return "", "", domain.ValidationError("Missing or invalid nft_type. Must be 'short' or 'long'.")
	}
	if req.Filename == "" {
		return "", "", domain.ValidationError("No selected file")
	}
	if _, ext := files.SplitExt(req.Filename); !AllowedExtensions[ext] {
		return "", "", domain.ValidationError("File type not allowed")
	}

	name := files.SecureFilename(req.Filename)
	if _, ext := files.SplitExt(name); !AllowedExtensions[ext] {
		return "", "", domain.ValidationError("File type not allowed")
	}
	return category, name, nil
}

// Mint validates the upload, stores it in the intake directory, synthesizes
// the animation and records the result. Every input check runs before the
// filesystem is touched. If synthesis fails the stored upload is removed.
func (s *MintService) Mint(ctx context.Context, req MintRequest) (*domain.MintRecord, error) {
	category, name, err := validate(req)
	if err != nil {
		s.logger.Info("Mint rejected", zap.String("filename", req.Filename), zap.Error(err))
		return nil, err
	}

	uploadPath := filepath.Join(s.cfg.UploadsDir, name)
	err = files.WriteAtomic(uploadPath, func(w io.Writer) error {
		_, err := io.Copy(w, req.Content)
		return err
	})
	if err != nil {
		s.logger.Error("Failed to save upload", zap.String("path", uploadPath), zap.Error(err))
		return nil, domain.StorageError(fmt.Sprintf("Failed to save uploaded file: %v", err), err)
	}

	base, _ := files.SplitExt(name)
	artifact, err := s.synth.Synthesize(ctx, uploadPath, base, s.cfg.Animation)
	if err != nil {
		s.discard(uploadPath)
		s.logger.Error("Synthesis failed", zap.String("upload", name), zap.Error(err))
		return nil, domain.SynthesisError("Failed to create GIF", err)
	}

	record := &domain.MintRecord{
		ID:               s.newID(),
		GifURL:           path.Join(s.cfg.URLPrefix, GeneratedRoute, filepath.Base(artifact.Path)),
		OriginalImageURL: path.Join(s.cfg.URLPrefix, UploadsRoute, name),
		Category:         category,
		CreatedAt:        domain.NewTimestamp(s.timeNow()),
		PriceA:           artifact.Prices.AssetA,
		PriceB:           artifact.Prices.AssetB,
		ArtifactPath:     artifact.Path,
		SourcePath:       uploadPath,
	}

	if err := s.repo.Append(ctx, record); err != nil {
		s.discard(uploadPath)
		s.discard(artifact.Path)
		s.logger.Error("Failed to record mint", zap.String("id", record.ID), zap.Error(err))
		return nil, domain.StorageError("Failed to record mint", err)
	}

	s.logger.Info("Minted",
		zap.String("id", record.ID),
		zap.String("category", string(record.Category)),
		zap.String("gif", record.GifURL),
		zap.Float64("price_a", record.PriceA),
		zap.Float64("price_b", record.PriceB),
	)

	if s.publisher != nil {
		s.publisher.Publish(record)
	}
	return record, nil
}

func (s *MintService) discard(p string) {
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("Failed to remove file", zap.String("path", p), zap.Error(err))
	}
}

func (s *MintService) ListAll(ctx context.Context) ([]*domain.MintRecord, error) {
	return s.repo.ListAll(ctx)
}

// ResolveUpload maps a requested name to a file inside the intake directory.
func (s *MintService) ResolveUpload(name string) (string, error) {
	return resolveExisting(s.cfg.UploadsDir, name)
}

// ResolveArtifact maps a requested name to a file inside the output directory.
func (s *MintService) ResolveArtifact(name string) (string, error) {
	return resolveExisting(s.cfg.GeneratedDir, name)
}

func resolveExisting(dir, name string) (string, error) {
	p, err := files.Resolve(dir, name)
	if err != nil {
		return "", domain.ErrNotFound
	}
	info, err := os.Stat(p)
	if err != nil || info.IsDir() {
		return "", domain.ErrNotFound
	}
	return p, nil
}

// MarketView is the price state a mint would currently be painted with.
type MarketView struct {
	Prices     domain.PriceSnapshot `json:"prices"`
	Sentiment  domain.Sentiment     `json:"sentiment"`
	Thresholds domain.Thresholds    `json:"thresholds"`
}

func (s *MintService) CurrentMarket() MarketView {
	snap := s.prices.GetPrices()
	return MarketView{
		Prices:     snap,
		Sentiment:  s.evaluator.Evaluate(snap),
		Thresholds: s.evaluator.Thresholds(),
	}
}
