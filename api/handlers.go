package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"kanban-api/board"
	"kanban-api/domain"
)

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, engine Engine, auth Authenticator, logger *log.Logger) {
	e.GET("/api/workspaces/:id", getBoard(engine, auth, logger))
	e.PUT("/api/workspaces/:id", putBoard(engine, auth), GzipRequestMiddleware())
	e.DELETE("/api/workspaces/:id/cards/:cardId", deleteCard(engine, auth))
	e.GET("/api/me", getMe(engine, auth))
	e.GET("/healthz", healthz())
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

func getBoard(engine Engine, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newBoardRequestMetrics(ctx, logger)
		if spanCtx != nil {
			c.SetRequest(c.Request().WithContext(spanCtx))
			ctx = spanCtx
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		authStart := time.Now()
		callerID, authErr := auth.UserIDFromRequest(c.Request())
		metrics.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			metrics.SetErrorStage("auth")
			err = c.String(http.StatusUnauthorized, authErr.Error())
			return err
		}

		workspaceID := domain.NormalizeID(c.Param("id"))
		fetchStart := time.Now()
		view, fetchErr := engine.Project(ctx, callerID, workspaceID)
		metrics.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			status, msg := statusForError(fetchErr)
			metrics.SetErrorStage(stageForStatus(status))
			if status == http.StatusInternalServerError {
				c.Logger().Error(fetchErr)
			}
			err = c.String(status, msg)
			return err
		}
		metrics.SetBoardSize(len(view.Workspace.Columns), countCards(view))

		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, view)
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

func putBoard(engine Engine, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		callerID, err := auth.UserIDFromRequest(c.Request())
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}

		lr := io.LimitReader(c.Request().Body, boardSnapshotMaxSize)
		dec := sonic.ConfigStd.NewDecoder(lr)
		dec.DisallowUnknownFields()

		var req replaceBoardRequest
		if err := dec.Decode(&req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if req.Columns == nil {
			return c.String(http.StatusBadRequest, "columns must be a list")
		}

		workspaceID := domain.NormalizeID(c.Param("id"))
		if err := engine.Reconcile(ctx, callerID, workspaceID, req.Columns); err != nil {
			status, msg := statusForError(err)
			if status == http.StatusInternalServerError {
				c.Logger().Error(err)
			}
			return c.String(status, msg)
		}
		return c.JSON(http.StatusOK, successResponse{Success: true})
	}
}

func deleteCard(engine Engine, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		callerID, err := auth.UserIDFromRequest(c.Request())
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}

		workspaceID := domain.NormalizeID(c.Param("id"))
		cardID := domain.NormalizeID(c.Param("cardId"))
		if err := engine.DeleteCard(ctx, callerID, workspaceID, cardID); err != nil {
			status, msg := statusForError(err)
			if status == http.StatusInternalServerError {
				c.Logger().Error(err)
			}
			return c.String(status, msg)
		}
		return c.JSON(http.StatusOK, successResponse{Success: true})
	}
}

func getMe(engine Engine, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		callerID, err := auth.UserIDFromRequest(c.Request())
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		user, err := engine.Identity(ctx, callerID)
		if err != nil {
			status, msg := statusForError(err)
			if status == http.StatusInternalServerError {
				c.Logger().Error(err)
			}
			return c.String(status, msg)
		}
		return c.JSON(http.StatusOK, user)
	}
}

// statusForError maps core errors to boundary statuses without leaking
// internal detail.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, board.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, board.ErrUnknownColumn):
		return http.StatusNotFound, "unknown column"
	case errors.Is(err, board.ErrForbidden):
		return http.StatusForbidden, "access denied"
	}
	var pae board.PartialApplyError
	if errors.As(err, &pae) {
		return http.StatusInternalServerError, "partial failure: resubmit the full board"
	}
	return http.StatusInternalServerError, "internal error"
}

func stageForStatus(status int) string {
	switch status {
	case http.StatusNotFound:
		return "not_found"
	case http.StatusForbidden:
		return "forbidden"
	default:
		return "storage"
	}
}

func countCards(view domain.BoardView) int {
	total := 0
	for _, col := range view.Workspace.Columns {
		total += len(col.Cards)
	}
	return total
}
