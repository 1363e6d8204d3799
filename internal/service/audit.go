package service

import (
	"context"

	"github.com/alphaani/marks-management-api/internal/models"
)

// auditLogger is the slice of the user repository the services need to
// persist audit trail entries.
type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}
