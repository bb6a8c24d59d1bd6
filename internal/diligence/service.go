package diligence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bizmatch/deal-engine-backend/internal/deals"
	"bizmatch/deal-engine-backend/internal/party"
	"bizmatch/deal-engine-backend/pkg/dealerr"
	"bizmatch/deal-engine-backend/pkg/lifecycle"
)

// Lifecycle is the slice of the deal orchestrator the diligence engine
// drives.
type Lifecycle interface {
	GetTransaction(ctx context.Context, id uuid.UUID, caller party.Caller) (*deals.Transaction, error)
	AdvanceStage(ctx context.Context, id uuid.UUID, target lifecycle.Stage, actor deals.Actor, reason string) (*deals.Transaction, *deals.Activity, error)
	AppendActivity(ctx context.Context, transactionID uuid.UUID, activityType deals.ActivityType, title, description string, actor deals.Actor) (*deals.Activity, error)
}

// Service manages due-diligence reviews.
type Service struct {
	repo      Repository
	lifecycle Lifecycle
	logger    *zap.Logger
}

// NewService creates a new diligence service
func NewService(repo Repository, lc Lifecycle, logger *zap.Logger) *Service {
	return &Service{
		repo:      repo,
		lifecycle: lc,
		logger:    logger,
	}
}

// CreateProjectRequest opens a review on a transaction.
type CreateProjectRequest struct {
	TransactionID uuid.UUID  `json:"transaction_id" binding:"required"`
	Deadline      *time.Time `json:"deadline,omitempty"`
}

// RecordFindingRequest files an issue against a review.
type RecordFindingRequest struct {
	TaskID      *uuid.UUID `json:"task_id,omitempty"`
	Severity    Severity   `json:"severity" binding:"required"`
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
}

// CreateProject opens the review, seeds the standard checklist and moves
// the deal into its diligence stage.
func (s *Service) CreateProject(ctx context.Context, caller party.Caller, req *CreateProjectRequest) (*Project, error) {
	tx, err := s.lifecycle.GetTransaction(ctx, req.TransactionID, caller)
	if err != nil {
		return nil, err
	}
	if tx.Stage != lifecycle.StageLOISigned && tx.Stage != lifecycle.StageDDInProgress {
		return nil, dealerr.InvalidState("due diligence cannot start from stage %s", tx.Stage)
	}

	existing, err := s.repo.GetProjectByTransaction(ctx, req.TransactionID)
	if err != nil {
		return nil, dealerr.Internal("failed to check for existing review", err)
	}
	if existing != nil {
		return nil, dealerr.InvalidState("transaction already has a due-diligence review")
	}

	now := time.Now()
	project := &Project{
		ID:            uuid.New(),
		TransactionID: req.TransactionID,
		Deadline:      req.Deadline,
		CreatedBy:     caller.UserID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	tasks := BuildChecklist(project.ID, now)

	if err := s.repo.CreateProject(ctx, project, tasks); err != nil {
		return nil, dealerr.Internal("failed to create review", err)
	}

	actor := deals.ActorFor(caller, tx)
	if _, _, err := s.lifecycle.AdvanceStage(ctx, tx.ID, lifecycle.StageDDInProgress, actor, "due diligence opened"); err != nil {
		return nil, err
	}
	if _, err := s.lifecycle.AppendActivity(ctx, tx.ID, deals.ActivityDDProjectCreated,
		"Due diligence opened",
		fmt.Sprintf("Review opened with %d checklist items", len(tasks)),
		actor); err != nil {
		s.logger.Warn("Failed to log review creation activity", zap.Error(err))
	}

	s.logger.Info("Due diligence review created",
		zap.String("project_id", project.ID.String()),
		zap.String("transaction_id", tx.ID.String()))

	return project, nil
}

// GetProject returns the review, gated on deal membership.
func (s *Service) GetProject(ctx context.Context, id uuid.UUID, caller party.Caller) (*Project, error) {
	project, _, err := s.loadProject(ctx, id, caller)
	return project, err
}

// ListTasks returns the review checklist grouped by category.
func (s *Service) ListTasks(ctx context.Context, projectID uuid.UUID, caller party.Caller) ([]Task, error) {
	if _, _, err := s.loadProject(ctx, projectID, caller); err != nil {
		return nil, err
	}
	tasks, err := s.repo.ListTasks(ctx, projectID)
	if err != nil {
		return nil, dealerr.Internal("failed to list tasks", err)
	}
	return tasks, nil
}

// UpdateTaskStatus moves a checklist item. The buyer side runs the review,
// so only the buyer or an advisor touches tasks.
func (s *Service) UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, caller party.Caller, status TaskStatus) (*Task, error) {
	switch status {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusWaived:
	default:
		return nil, dealerr.Validation("unknown task status %q", status)
	}

	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return nil, dealerr.Internal("failed to load task", err)
	}
	if task == nil {
		return nil, dealerr.NotFound("task %s not found", taskID)
	}

	_, tx, err := s.loadProject(ctx, task.ProjectID, caller)
	if err != nil {
		return nil, err
	}
	if err := s.requireReviewer(tx, caller); err != nil {
		return nil, err
	}

	now := time.Now()
	task.Status = status
	if status == TaskStatusCompleted {
		task.CompletedBy = &caller.UserID
		task.CompletedAt = &now
	} else {
		task.CompletedBy = nil
		task.CompletedAt = nil
	}
	task.UpdatedAt = now

	if err := s.repo.UpdateTask(ctx, task); err != nil {
		return nil, dealerr.Internal("failed to update task", err)
	}

	return task, nil
}

// RecordFinding files an issue against the review.
func (s *Service) RecordFinding(ctx context.Context, projectID uuid.UUID, caller party.Caller, req *RecordFindingRequest) (*Finding, error) {
	switch req.Severity {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
	default:
		return nil, dealerr.Validation("unknown severity %q", req.Severity)
	}

	_, tx, err := s.loadProject(ctx, projectID, caller)
	if err != nil {
		return nil, err
	}
	if err := s.requireReviewer(tx, caller); err != nil {
		return nil, err
	}

	now := time.Now()
	finding := &Finding{
		ID:          uuid.New(),
		ProjectID:   projectID,
		TaskID:      req.TaskID,
		Severity:    req.Severity,
		Title:       req.Title,
		Description: req.Description,
		Status:      FindingStatusOpen,
		RaisedBy:    caller.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.CreateFinding(ctx, finding); err != nil {
		return nil, dealerr.Internal("failed to record finding", err)
	}

	actor := deals.ActorFor(caller, tx)
	if _, err := s.lifecycle.AppendActivity(ctx, tx.ID, deals.ActivityDDFindingRecorded,
		"Finding recorded",
		fmt.Sprintf("%s finding: %s", finding.Severity, finding.Title),
		actor); err != nil {
		s.logger.Warn("Failed to log finding activity", zap.Error(err))
	}

	return finding, nil
}

// ResolveFinding closes a finding. Accepted findings stay on the record as
// risks the buyer chose to live with.
func (s *Service) ResolveFinding(ctx context.Context, findingID uuid.UUID, caller party.Caller, resolution string, accepted bool) (*Finding, error) {
	if resolution == "" {
		return nil, dealerr.Validation("a resolution note is required")
	}

	finding, err := s.repo.GetFinding(ctx, findingID)
	if err != nil {
		return nil, dealerr.Internal("failed to load finding", err)
	}
	if finding == nil {
		return nil, dealerr.NotFound("finding %s not found", findingID)
	}
	if finding.Status != FindingStatusOpen {
		return nil, dealerr.InvalidState("finding is already %s", finding.Status)
	}

	_, tx, err := s.loadProject(ctx, finding.ProjectID, caller)
	if err != nil {
		return nil, err
	}
	if err := s.requireReviewer(tx, caller); err != nil {
		return nil, err
	}

	now := time.Now()
	if accepted {
		finding.Status = FindingStatusAccepted
	} else {
		finding.Status = FindingStatusResolved
	}
	finding.ResolvedBy = &caller.UserID
	finding.ResolvedAt = &now
	finding.Resolution = &resolution
	finding.UpdatedAt = now

	if err := s.repo.UpdateFinding(ctx, finding); err != nil {
		return nil, dealerr.Internal("failed to resolve finding", err)
	}

	return finding, nil
}

// ListFindings returns all findings, open and closed.
func (s *Service) ListFindings(ctx context.Context, projectID uuid.UUID, caller party.Caller) ([]Finding, error) {
	if _, _, err := s.loadProject(ctx, projectID, caller); err != nil {
		return nil, err
	}
	findings, err := s.repo.ListFindings(ctx, projectID)
	if err != nil {
		return nil, dealerr.Internal("failed to list findings", err)
	}
	return findings, nil
}

// GetMetrics aggregates checklist progress and the review's risk grade.
func (s *Service) GetMetrics(ctx context.Context, projectID uuid.UUID, caller party.Caller) (*Metrics, error) {
	if _, _, err := s.loadProject(ctx, projectID, caller); err != nil {
		return nil, err
	}

	tasks, err := s.repo.ListTasks(ctx, projectID)
	if err != nil {
		return nil, dealerr.Internal("failed to list tasks", err)
	}
	findings, err := s.repo.ListFindings(ctx, projectID)
	if err != nil {
		return nil, dealerr.Internal("failed to list findings", err)
	}

	metrics := &Metrics{
		ProjectID:     projectID,
		TotalTasks:    len(tasks),
		TotalFindings: len(findings),
		RiskLevel:     ComputeRiskLevel(findings),
	}
	now := time.Now()
	for _, t := range tasks {
		if t.Status == TaskStatusCompleted || t.Status == TaskStatusWaived {
			metrics.CompletedTasks++
		}
		if t.IsOverdue(now) {
			metrics.OverdueTaskCount++
		}
	}
	if metrics.TotalTasks > 0 {
		metrics.CompletionPercent = float64(metrics.CompletedTasks) / float64(metrics.TotalTasks) * 100
	}
	for _, f := range findings {
		if f.Status == FindingStatusOpen {
			metrics.OpenFindings++
		}
	}

	return metrics, nil
}

func (s *Service) loadProject(ctx context.Context, id uuid.UUID, caller party.Caller) (*Project, *deals.Transaction, error) {
	project, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return nil, nil, dealerr.Internal("failed to load review", err)
	}
	if project == nil {
		return nil, nil, dealerr.NotFound("review %s not found", id)
	}
	tx, err := s.lifecycle.GetTransaction(ctx, project.TransactionID, caller)
	if err != nil {
		return nil, nil, err
	}
	return project, tx, nil
}

func (s *Service) requireReviewer(tx *deals.Transaction, caller party.Caller) error {
	role := tx.RoleOf(caller.UserID)
	if role == deals.DealRoleBuyer || role == deals.DealRoleAdvisor || caller.Roles.Has(party.RoleAdmin) {
		return nil
	}
	return dealerr.Forbidden("only the buyer side runs the due-diligence review")
}
