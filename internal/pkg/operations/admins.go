package operations

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ManuelReschke/ChurchDesk/app/models"
	"github.com/ManuelReschke/ChurchDesk/app/repository"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/apperror"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/audit"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/guard"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/metrics/counter"
)

// ListSystemAdmins returns every SUPERADMIN account.
func ListSystemAdmins() guard.Action {
	return func(ctx context.Context, s *guard.Scope) (*guard.Result, error) {
		users, err := s.Repos.User.ListByRole(ctx, models.RoleSuperAdmin)
		if err != nil {
			return nil, err
		}
		return &guard.Result{Entity: users}, nil
	}
}

// DeleteSystemAdmin soft deletes a SUPERADMIN account. The target must be a
// SUPERADMIN; other users are reported as not found. Pair it with
// guard.ForbidSelf so callers cannot remove themselves.
func DeleteSystemAdmin(userID uint) guard.Action {
	return func(ctx context.Context, s *guard.Scope) (*guard.Result, error) {
		target, err := s.Repos.User.GetByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		if target.Role != models.RoleSuperAdmin {
			return nil, apperror.New(apperror.KindNotFound, "system admin not found")
		}
		if err := s.Repos.User.Delete(ctx, target.ID); err != nil {
			return nil, err
		}

		return &guard.Result{
			Entity: target,
			Audit: &audit.Entry{
				Action:      audit.ActionSystemAdminDeleted,
				EntityType:  audit.EntityUser,
				EntityID:    strconv.FormatUint(uint64(target.ID), 10),
				EntityName:  target.Name,
				Description: fmt.Sprintf("System admin %s (%s) was deleted", target.Name, target.Email),
				Metadata: models.Metadata{
					"email": models.String(target.Email),
					"role":  models.String(string(target.Role)),
				},
			},
		}, nil
	}
}

// AuditPage is a page of audit entries.
type AuditPage struct {
	Entries []models.AuditLogEntry `json:"entries"`
	Total   int64                  `json:"total"`
}

// ListAuditLogs returns audit entries newest first.
func ListAuditLogs(filter repository.AuditFilter) guard.Action {
	return func(ctx context.Context, s *guard.Scope) (*guard.Result, error) {
		entries, total, err := s.Repos.AuditLog.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		return &guard.Result{Entity: AuditPage{Entries: entries, Total: total}}, nil
	}
}

// OutcomeCounters reads the guard outcome counters.
type OutcomeCounters interface {
	Snapshot(ctx context.Context) ([]counter.Count, error)
	Drain(ctx context.Context) ([]counter.Count, error)
}

// OutcomeMetrics returns the guard outcome counters, resetting them when
// reset is set.
func OutcomeMetrics(counters OutcomeCounters, reset bool) guard.Action {
	return func(ctx context.Context, _ *guard.Scope) (*guard.Result, error) {
		if counters == nil {
			return &guard.Result{Entity: []counter.Count{}}, nil
		}
		read := counters.Snapshot
		if reset {
			read = counters.Drain
		}
		counts, err := read(ctx)
		if err != nil {
			return nil, apperror.Wrap(apperror.KindPersistenceFailure, err, "read outcome counters")
		}
		return &guard.Result{Entity: counts}, nil
	}
}
