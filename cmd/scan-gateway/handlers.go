package main

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/scan-gateway/internal/application"
	"github.com/wms-platform/scan-gateway/internal/domain"
	"github.com/wms-platform/scan-gateway/internal/infrastructure/serialport"
	"github.com/wms-platform/scan-gateway/pkg/errors"
	"github.com/wms-platform/scan-gateway/pkg/logging"
)

// HTTP Handlers

func statusHandler(service *application.ScanService, reader *serialport.Reader) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := service.Status()
		c.JSON(http.StatusOK, gin.H{
			"mode":             status.Mode,
			"busy":             status.Busy,
			"pendingContainer": status.Pending,
			"rejectedCount":    status.Rejected,
			"assignmentCount":  status.Assignments,
			"failureCount":     status.Failures,
			"scannerConnected": reader.Connected(),
		})
	}
}

func setModeHandler(service *application.ScanService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Mode string `json:"mode" binding:"required"`
		}

		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := service.SetMode(domain.Mode(req.Mode)); err != nil {
			appErr := errors.ErrValidation("invalid operating mode").WithDetail("mode", req.Mode)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		c.JSON(http.StatusOK, gin.H{"mode": service.Mode()})
	}
}

func resetCountersHandler(service *application.ScanService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Counter string `json:"counter"`
		}

		// An empty body resets everything
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}

		if err := service.ResetCounter(req.Counter); err != nil {
			appErr := errors.ErrValidation(err.Error()).WithDetail("counter", req.Counter)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		logger.Info("Counters reset", "counter", req.Counter)
		c.JSON(http.StatusOK, service.Status())
	}
}

// injectScanHandler feeds a barcode line into the pipeline as if the scanner
// had read it. Useful for bench testing without a serial device.
func injectScanHandler(service *application.ScanService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Line string `json:"line" binding:"required"`
		}

		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		// Detached from the request: the pipelines this feeds outlive the
		// 202 response, same as a scan read from the serial port.
		service.OnScanLine(context.WithoutCancel(c.Request.Context()), req.Line)
		c.JSON(http.StatusAccepted, gin.H{"accepted": true})
	}
}

func connectScannerHandler(reader *serialport.Reader) gin.HandlerFunc {
	return func(c *gin.Context) {
		// The read loop must outlive this request
		if err := reader.Connect(context.Background()); err != nil {
			appErr := mapScannerError(err)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}
		c.JSON(http.StatusOK, gin.H{"connected": true})
	}
}

func disconnectScannerHandler(reader *serialport.Reader) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := reader.Disconnect(); err != nil {
			appErr := mapScannerError(err)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}
		c.JSON(http.StatusOK, gin.H{"connected": false})
	}
}

func listAssignmentsHandler(history domain.AssignmentHistory, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if history == nil {
			appErr := errors.ErrUnavailable(domain.ErrHistoryDisabled.Error())
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		limit := 20
		if limitStr := c.Query("limit"); limitStr != "" {
			if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
				limit = parsed
				if limit > 200 {
					limit = 200
				}
			}
		}

		records, err := history.Recent(c.Request.Context(), limit)
		if err != nil {
			logger.WithError(err).Error("Assignment history query failed")
			appErr := errors.ErrInternal("failed to query assignment history")
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		c.JSON(http.StatusOK, gin.H{"assignments": records, "total": len(records)})
	}
}

func mapScannerError(err error) *errors.AppError {
	switch err {
	case domain.ErrAlreadyOpen:
		return errors.ErrConflict(err.Error())
	case domain.ErrNotConnected:
		return errors.ErrConflict(err.Error())
	default:
		return errors.ErrDevice(err.Error())
	}
}
