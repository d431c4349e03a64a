package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"strings"

	"github.com/BradenHooton/warden/internal/models"
	pkglogger "github.com/BradenHooton/warden/pkg/logger"
)

// DenyListRepository defines the interface for deny list persistence
type DenyListRepository interface {
	List(ctx context.Context) ([]models.DenyListEntry, error)
	Apply(ctx context.Context, req models.DenialRequest) error
}

// DenyFileSyncer mirrors the deny list into the web-server configuration
type DenyFileSyncer interface {
	Sync(entries []models.DenyListEntry) error
}

// DenyListService manages the IP deny list when the feature is switched on.
type DenyListService struct {
	repo    DenyListRepository
	file    DenyFileSyncer
	audit   *pkglogger.AuditLogger
	logger  *slog.Logger
	enabled bool
}

func NewDenyListService(repo DenyListRepository, file DenyFileSyncer, audit *pkglogger.AuditLogger, logger *slog.Logger, enabled bool) *DenyListService {
	return &DenyListService{
		repo:    repo,
		file:    file,
		audit:   audit,
		logger:  logger,
		enabled: enabled,
	}
}

// Enabled reports whether deny list management is switched on
func (s *DenyListService) Enabled() bool {
	return s.enabled
}

// List returns the current deny list
func (s *DenyListService) List(ctx context.Context) ([]models.DenyListEntry, error) {
	entries, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list deny list", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return entries, nil
}

// Process applies one submission of the deny access form and re-syncs the deny file.
// clientIP is the address of the acting principal, which may not deny itself.
func (s *DenyListService) Process(ctx context.Context, actor models.Principal, req models.DenialRequest, clientIP string) error {
	if !s.enabled {
		return models.ErrForbidden
	}

	req, err := s.normalize(req, clientIP)
	if err != nil {
		return err
	}
	if req.Add == nil && len(req.RemoveIPs) == 0 {
		return nil
	}

	if err := s.repo.Apply(ctx, req); err != nil {
		if errors.Is(err, models.ErrConflict) {
			return models.NewValidationError("ip_address", "That address is already denied")
		}
		s.logger.Error("failed to apply denial", slog.Any("error", err))
		s.auditDenial(ctx, actor, req, clientIP, err)
		return models.ErrInternalServer
	}

	s.auditDenial(ctx, actor, req, clientIP, nil)

	if err := s.SyncFile(ctx); err != nil {
		// the database is authoritative; the maintenance loop retries the file
		s.logger.Error("failed to sync deny file after change", slog.Any("error", err))
	}
	return nil
}

// SyncFile rewrites the deny file from the repository
func (s *DenyListService) SyncFile(ctx context.Context) error {
	entries, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("list deny entries: %w", err)
	}
	return s.file.Sync(entries)
}

func (s *DenyListService) normalize(req models.DenialRequest, clientIP string) (models.DenialRequest, error) {
	out := models.DenialRequest{}

	if req.Add != nil {
		addr, err := NormalizeDenyAddress(req.Add.IPAddress)
		if err != nil {
			return out, models.NewValidationError("ip_address", "Enter a valid IP address or CIDR block")
		}
		if _, ok := models.DenyReasons[req.Add.ReasonCode]; !ok {
			return out, models.NewValidationError("reason_code", "Select a reason")
		}
		if coversAddress(addr, clientIP) {
			return out, models.NewValidationError("ip_address", "You cannot deny your own IP address")
		}
		out.Add = &models.DenyListEntry{IPAddress: addr, ReasonCode: req.Add.ReasonCode}
	}

	for _, raw := range req.RemoveIPs {
		if raw = strings.TrimSpace(raw); raw != "" {
			out.RemoveIPs = append(out.RemoveIPs, raw)
		}
	}

	return out, nil
}

func (s *DenyListService) auditDenial(ctx context.Context, actor models.Principal, req models.DenialRequest, clientIP string, err error) {
	log := func(eventType, addresses string) {
		event := pkglogger.AuditEvent{
			EventType: eventType,
			ActorID:   actor.UserID,
			IPAddress: clientIP,
			Success:   err == nil,
			Metadata:  map[string]string{"addresses": addresses},
		}
		if err != nil {
			event.FailureReason = err.Error()
		}
		s.audit.Log(ctx, event)
	}

	if req.Add != nil {
		log(models.AuditEventTypeDenyAdd, req.Add.IPAddress)
	}
	if len(req.RemoveIPs) > 0 {
		log(models.AuditEventTypeDenyRemove, strings.Join(req.RemoveIPs, ","))
	}
}

// NormalizeDenyAddress accepts an IP address or CIDR block and returns its canonical form.
// CIDR blocks are masked so 10.1.2.3/8 is stored as 10.0.0.0/8.
func NormalizeDenyAddress(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if strings.Contains(raw, "/") {
		prefix, err := netip.ParsePrefix(raw)
		if err != nil {
			return "", err
		}
		return prefix.Masked().String(), nil
	}

	addr, err := netip.ParseAddr(raw)
	if err != nil {
		return "", err
	}
	return addr.Unmap().String(), nil
}

// coversAddress reports whether the normalized deny address matches ip
func coversAddress(deny, ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()

	if prefix, err := netip.ParsePrefix(deny); err == nil {
		return prefix.Contains(addr)
	}
	return deny == addr.String()
}
