package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/classboard/notify-worker/internal/domain"
	"github.com/classboard/notify-worker/internal/repository"
)

// QueueService exposes the read-side inspection operations and the
// account-deletion cleanup fan-out. Dispatching lives in the dispatcher
// package; HTTP handlers depend on this service, not on the repository.
type QueueService struct {
	repo   repository.QueueRepository
	logger *zap.Logger
}

func NewQueueService(repo repository.QueueRepository, logger *zap.Logger) *QueueService {
	return &QueueService{repo: repo, logger: logger}
}

func (s *QueueService) GetByID(ctx context.Context, id string) (*domain.QueueItem, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *QueueService) List(ctx context.Context, filter domain.ListFilter) ([]*domain.QueueItem, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *QueueService) Stats(ctx context.Context) (map[domain.Status]int, error) {
	return s.repo.CountByStatus(ctx)
}

// CancelForRecipient cancels every still-pending notification addressed to
// the given email. Called when an account is deleted upstream; rows already
// claimed or in a terminal state are untouched.
func (s *QueueService) CancelForRecipient(ctx context.Context, req domain.CancelRequest) (int, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}

	n, err := s.repo.CancelPendingForRecipient(ctx, req.RecipientEmail)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("cancelled pending notifications for recipient",
			zap.String("recipient", req.RecipientEmail), zap.Int("count", n))
	}
	return n, nil
}
