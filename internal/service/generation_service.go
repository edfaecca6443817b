package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"adgen/internal/domain"
	"adgen/internal/metrics"
	"adgen/internal/models"
	"adgen/internal/repository"
	"adgen/pkg/aigen"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// GenerateParams is one photo or video request after input binding.
type GenerateParams struct {
	Kind           string // domain.AssetKindPhoto or domain.AssetKindVideo
	TemplateID     string
	Title          string
	Prompt         string
	Aspect         string
	TemplateConfig aigen.TemplateConfig
}

// GeneratedMedia is the hosted result of a generation.
type GeneratedMedia struct {
	URL          string
	ThumbURL     string
	PublicID     string // empty when the media is not stored by us
	ResourceType string
}

// Generator produces hosted media. Discard removes media that could not be attached to an asset.
type Generator interface {
	Generate(ctx context.Context, req aigen.Request) (*GeneratedMedia, error)
	Discard(ctx context.Context, m *GeneratedMedia) error
}

// AssetNotifier receives every asset state change.
type AssetNotifier interface {
	PublishAsset(a *models.Asset)
}

type GenerationService struct {
	userRepo   *repository.UserRepository
	ledgerRepo *repository.LedgerRepository
	assetRepo  *repository.AssetRepository
	refundRepo *repository.PendingRefundRepository
	generator  Generator
	notifier   AssetNotifier
	timeout    time.Duration
	log        *logrus.Entry
	newID      func() string
}

func NewGenerationService(
	userRepo *repository.UserRepository,
	ledgerRepo *repository.LedgerRepository,
	assetRepo *repository.AssetRepository,
	refundRepo *repository.PendingRefundRepository,
	generator Generator,
	timeout time.Duration,
	log *logrus.Entry,
) *GenerationService {
	return &GenerationService{
		userRepo:   userRepo,
		ledgerRepo: ledgerRepo,
		assetRepo:  assetRepo,
		refundRepo: refundRepo,
		generator:  generator,
		timeout:    timeout,
		log:        log,
		newID:      uuid.NewString,
	}
}

// SetNotifier attaches the realtime asset feed.
func (s *GenerationService) SetNotifier(n AssetNotifier) {
	s.notifier = n
}

// charge tracks one debit until it is settled.
type charge struct {
	userID        uint
	cost          int
	kind          string
	correlationID string
	asset         *models.Asset
	log           *logrus.Entry
}

// ChargeAndGenerate debits cost tokens, creates a PROCESSING asset and calls the generator.
// On success the asset becomes READY and its id is returned. Any failure after the debit
// refunds the tokens and marks the asset FAILED.
func (s *GenerationService) ChargeAndGenerate(ctx context.Context, userID uint, cost int, p GenerateParams) (string, error) {
	if userID == 0 {
		return "", ErrNotAuthenticated
	}
	if cost <= 0 {
		return "", fmt.Errorf("%w: cost must be positive", ErrValidationFailed)
	}
	if p.Kind != domain.AssetKindPhoto && p.Kind != domain.AssetKindVideo {
		return "", fmt.Errorf("%w: unknown kind %q", ErrValidationFailed, p.Kind)
	}
	log := s.log.WithFields(logrus.Fields{"user_id": userID, "kind": p.Kind, "cost": cost})

	balance, err := s.userRepo.TokenBalance(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			metrics.ObserveGeneration(p.Kind, "insufficient")
			return "", ErrInsufficientTokens
		}
		log.WithError(err).Error("read balance")
		return "", fmt.Errorf("%w: %w", ErrUnexpected, err)
	}
	if balance < cost {
		metrics.ObserveGeneration(p.Kind, "insufficient")
		return "", ErrInsufficientTokens
	}

	correlationID := s.newID()
	if err := s.ledgerRepo.Debit(ctx, userID, cost, correlationID); err != nil {
		if errors.Is(err, repository.ErrInsufficientTokens) || errors.Is(err, repository.ErrUserNotFound) {
			metrics.ObserveGeneration(p.Kind, "insufficient")
			return "", ErrInsufficientTokens
		}
		log.WithError(err).Error("debit tokens")
		metrics.ObserveGeneration(p.Kind, "ledger_error")
		return "", fmt.Errorf("%w: %w", ErrLedgerWriteFailed, err)
	}
	metrics.AddTokensDebited(cost)

	ch := &charge{
		userID:        userID,
		cost:          cost,
		kind:          p.Kind,
		correlationID: correlationID,
		log:           log.WithField("correlation_id", correlationID),
	}
	// The debit is committed. Settling must finish even if the caller goes away.
	settleCtx := context.WithoutCancel(ctx)

	brand, err := s.brandFor(settleCtx, userID)
	if err != nil {
		return "", s.fail(settleCtx, ch, fmt.Errorf("load brand: %w", err))
	}
	asset, err := s.newAsset(userID, cost, correlationID, p, brand)
	if err != nil {
		return "", s.fail(settleCtx, ch, err)
	}
	if err := s.assetRepo.Create(settleCtx, asset); err != nil {
		return "", s.fail(settleCtx, ch, fmt.Errorf("create asset: %w", err))
	}
	ch.asset = asset
	ch.log = ch.log.WithField("asset_id", asset.ID)
	s.publish(asset)

	req := aigen.Request{
		Kind:           p.Kind,
		Prompt:         p.Prompt,
		Width:          asset.Width,
		Height:         asset.Height,
		AspectRatio:    domain.AspectRatio(p.Aspect),
		TemplateConfig: p.TemplateConfig,
		Brand:          brand,
	}
	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	start := time.Now()
	media, genErr := s.generator.Generate(genCtx, req)
	cancel()
	metrics.ObserveProviderDuration(p.Kind, time.Since(start))
	if genErr == nil && (media == nil || media.URL == "") {
		genErr = errors.New("generator returned no media")
	}
	if genErr != nil {
		return "", s.fail(settleCtx, ch, genErr)
	}

	if err := s.assetRepo.MarkReady(settleCtx, asset, media.URL, media.ThumbURL); err != nil {
		if dErr := s.generator.Discard(settleCtx, media); dErr != nil {
			ch.log.WithError(dErr).Warn("discard orphaned media")
		}
		return "", s.fail(settleCtx, ch, fmt.Errorf("mark ready: %w", err))
	}
	asset.Status = domain.AssetStatusReady
	asset.URL = media.URL
	asset.ThumbURL = media.ThumbURL
	s.publish(asset)

	metrics.ObserveGeneration(p.Kind, "ready")
	ch.log.Info("generation complete")
	return asset.ID, nil
}

// fail refunds a debited charge. It returns ErrGenerationFailed when the tokens are back, or
// ErrRefundFailed after queuing the refund for the reconciler.
func (s *GenerationService) fail(ctx context.Context, ch *charge, cause error) error {
	ch.log.WithError(cause).Warn("generation failed, refunding")

	applied, err := s.ledgerRepo.Refund(ctx, repository.RefundParams{
		UserID:        ch.userID,
		CorrelationID: ch.correlationID,
		Amount:        ch.cost,
		Reason:        cause.Error(),
	})
	if err != nil {
		metrics.IncRefundFailures()
		metrics.ObserveGeneration(ch.kind, "refund_failed")
		ch.log.WithError(err).WithFields(logrus.Fields{
			"event":  "refund_lost",
			"amount": ch.cost,
		}).Error("refund transaction failed")

		pr := &models.PendingRefund{
			UserID:        ch.userID,
			CorrelationID: ch.correlationID,
			Amount:        ch.cost,
			Reason:        cause.Error(),
			LastError:     err.Error(),
		}
		if ch.asset != nil {
			pr.AssetID = ch.asset.ID
		}
		if qErr := s.refundRepo.Enqueue(ctx, pr); qErr != nil {
			// Still recoverable: the orphan sweep finds the pending debit.
			ch.log.WithError(qErr).WithField("event", "refund_lost").Error("enqueue pending refund")
		}
		return fmt.Errorf("%w: %w", ErrRefundFailed, err)
	}
	if applied {
		metrics.AddTokensRefunded(ch.cost)
	}
	if ch.asset != nil {
		ch.asset.Status = domain.AssetStatusFailed
		ch.asset.FailureReason = cause.Error()
		s.publish(ch.asset)
	}
	metrics.ObserveGeneration(ch.kind, "refunded")
	return fmt.Errorf("%w: %w", ErrGenerationFailed, cause)
}

func (s *GenerationService) brandFor(ctx context.Context, userID uint) (aigen.Brand, error) {
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return aigen.Brand{}, err
	}
	b := aigen.Brand{Name: u.BrandName, Logo: u.BrandLogo}
	if len(u.BrandColors) > 0 {
		// malformed colours are ignored rather than failing the generation
		_ = json.Unmarshal(u.BrandColors, &b.Colors)
	}
	return b, nil
}

func (s *GenerationService) newAsset(userID uint, cost int, correlationID string, p GenerateParams, brand aigen.Brand) (*models.Asset, error) {
	meta, err := json.Marshal(map[string]interface{}{
		"templateConfig": p.TemplateConfig,
		"brand":          brand,
	})
	if err != nil {
		return nil, fmt.Errorf("encode meta: %w", err)
	}
	aspect := p.Aspect
	if aspect == "" {
		aspect = domain.AspectSquare
	}
	w, h := domain.Dimensions(aspect)
	a := &models.Asset{
		ID:            s.newID(),
		UserID:        userID,
		Kind:          p.Kind,
		Title:         titleFor(p),
		Prompt:        p.Prompt,
		Width:         w,
		Height:        h,
		Aspect:        aspect,
		CostTokens:    cost,
		Status:        domain.AssetStatusProcessing,
		Meta:          datatypes.JSON(meta),
		CorrelationID: correlationID,
	}
	if p.TemplateID != "" {
		tid := p.TemplateID
		a.TemplateID = &tid
	}
	return a, nil
}

func titleFor(p GenerateParams) string {
	if t := strings.TrimSpace(p.Title); t != "" {
		return t
	}
	if t := strings.TrimSpace(p.TemplateConfig.Headline); t != "" {
		return t
	}
	if p.Kind == domain.AssetKindVideo {
		return "Video Ad"
	}
	return "Photo Ad"
}

func (s *GenerationService) publish(a *models.Asset) {
	if s.notifier == nil {
		return
	}
	cp := *a
	s.notifier.PublishAsset(&cp)
}
