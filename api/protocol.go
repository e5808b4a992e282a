package api

import "kanban-api/domain"

const boardSnapshotMaxSize = 256 * 1024 // 256 KiB

// PUT /api/workspaces/:id request body
type replaceBoardRequest struct {
	Columns []domain.ColumnSnapshot `json:"columns"`
}

// mutation response body
type successResponse struct {
	Success bool `json:"success"`
}
