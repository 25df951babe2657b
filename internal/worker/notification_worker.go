package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/profile-support/internal/service"
	"github.com/spec-kit/profile-support/internal/shell"
)

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService, logger *zap.Logger) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
	logger.Info("notification worker started")
}

// StartSessionSweeper evicts idle sessions in the background until ctx ends.
func StartSessionSweeper(ctx context.Context, registry *shell.Registry, logger *zap.Logger) {
	if registry == nil {
		return
	}
	go func() {
		registry.Run(ctx)
		logger.Info("session sweeper stopped")
	}()
}
