package dto

import "github.com/mawebyasmu/jurnal-aliyah-sub000/internal/models"

// ReportRequest captures POST /reports/export payload.
type ReportRequest struct {
	Type     models.ReportType   `json:"type" binding:"required"`
	DateFrom string              `json:"dateFrom" binding:"required"`
	DateTo   string              `json:"dateTo" binding:"required"`
	UserID   *string             `json:"userId,omitempty"`
	ClassID  *string             `json:"classId,omitempty"`
	Format   models.ReportFormat `json:"format" binding:"required"`
}

// ReportJobResponse is returned after enqueueing a report.
type ReportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ReportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ReportStatusResponse exposes job progress metadata.
type ReportStatusResponse struct {
	ID        string              `json:"id"`
	Status    models.ReportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	ResultURL *string             `json:"resultUrl,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
