package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jerome00253/RIB-Factory/internal/domain"
	"github.com/jerome00253/RIB-Factory/internal/service"
	"github.com/jerome00253/RIB-Factory/pkg/logger"
)

type ScanHandler struct {
	service service.ScanService
	logger  *logger.Logger
}

func NewScanHandler(service service.ScanService, log *logger.Logger) *ScanHandler {
	return &ScanHandler{
		service: service,
		logger:  log,
	}
}

// Upload accepts a multipart batch (repeated "files" parts), queues it and
// returns the created scan ids. Processing is asynchronous; clients poll the
// list or status endpoints for progress.
func (h *ScanHandler) Upload(c echo.Context) error {
	ctx := c.Request().Context()

	form, err := c.MultipartForm()
	if err != nil {
		h.logger.Error(ctx, "Failed to parse multipart form",
			"error", err,
		)
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "multipart form is required",
		})
	}

	parts := form.File["files"]
	if len(parts) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "at least one file is required",
		})
	}

	files := make([]domain.SourceFile, 0, len(parts))
	for _, part := range parts {
		src, err := part.Open()
		if err != nil {
			h.logger.Error(ctx, "Failed to open uploaded file",
				"file", part.Filename,
				"error", err,
			)
			return c.JSON(http.StatusInternalServerError, map[string]string{
				"error": "failed to read uploaded file",
			})
		}

		data, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			h.logger.Error(ctx, "Failed to read uploaded file",
				"file", part.Filename,
				"error", err,
			)
			return c.JSON(http.StatusInternalServerError, map[string]string{
				"error": "failed to read uploaded file",
			})
		}

		files = append(files, domain.SourceFile{
			Name:        part.Filename,
			Size:        int64(len(data)),
			ContentType: part.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	ids, err := h.service.SubmitBatch(ctx, files)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrBatchTooLarge):
			return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{
				"error": err.Error(),
			})
		case errors.Is(err, domain.ErrUnsupportedFileType), errors.Is(err, domain.ErrEmptyBatch):
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": err.Error(),
			})
		}

		h.logger.Error(ctx, "Failed to submit batch",
			"error", err,
		)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to submit batch",
		})
	}

	return c.JSON(http.StatusAccepted, map[string]interface{}{
		"scan_ids": ids,
		"status":   "queued",
	})
}

func (h *ScanHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	filter, err := domain.ParseFilter(c.QueryParam("filter"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "filter must be detected, not-detected or all",
		})
	}

	items := h.service.ListScans(ctx, filter)
	status := h.service.Status(ctx)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"items":  items,
		"count":  len(items),
		"total":  status.Total,
		"filter": filter,
		"busy":   status.Busy,
	})
}

func (h *ScanHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()

	item, err := h.service.GetScan(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrScanNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": "scan not found",
			})
		}

		h.logger.Error(ctx, "Failed to get scan",
			"error", err,
		)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to get scan",
		})
	}

	return c.JSON(http.StatusOK, item)
}

func (h *ScanHandler) Delete(c echo.Context) error {
	h.service.DeleteScan(c.Request().Context(), c.Param("id"))
	return c.NoContent(http.StatusNoContent)
}

func (h *ScanHandler) DeleteAll(c echo.Context) error {
	h.service.DeleteAll(c.Request().Context())
	return c.NoContent(http.StatusNoContent)
}

func (h *ScanHandler) DeleteNotDetected(c echo.Context) error {
	removed := h.service.DeleteNotDetected(c.Request().Context())

	return c.JSON(http.StatusOK, map[string]interface{}{
		"removed": removed,
	})
}

func (h *ScanHandler) Export(c echo.Context) error {
	ctx := c.Request().Context()

	filter, err := domain.ParseFilter(c.QueryParam("filter"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "filter must be detected, not-detected or all",
		})
	}

	data, filename, err := h.service.Export(ctx, filter)
	if err != nil {
		h.logger.Error(ctx, "Failed to export scans",
			"error", err,
		)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to export scans",
		})
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename=%q`, filename))
	return c.Blob(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func (h *ScanHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, h.service.Status(c.Request().Context()))
}
