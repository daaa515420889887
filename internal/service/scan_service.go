package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/jerome00253/RIB-Factory/internal/domain"
	"github.com/jerome00253/RIB-Factory/internal/export"
	"github.com/jerome00253/RIB-Factory/internal/storage"
	"github.com/jerome00253/RIB-Factory/pkg/logger"
)

// Queue is the part of the processing queue the service drives.
type Queue interface {
	Submit(ctx context.Context, files []domain.SourceFile) []string
	Busy() bool
	Pending() int
}

// QueueStatus is the snapshot surfaced to clients polling for progress.
type QueueStatus struct {
	Busy      bool `json:"busy"`
	Pending   int  `json:"pending"`
	Total     int  `json:"total"`
	Completed int  `json:"completed"`
}

type ScanService interface {
	SubmitBatch(ctx context.Context, files []domain.SourceFile) ([]string, error)
	ListScans(ctx context.Context, filter domain.Filter) []domain.WorkItem
	GetScan(ctx context.Context, id string) (domain.WorkItem, error)
	DeleteScan(ctx context.Context, id string)
	DeleteAll(ctx context.Context)
	DeleteNotDetected(ctx context.Context) int
	Export(ctx context.Context, filter domain.Filter) ([]byte, string, error)
	Status(ctx context.Context) QueueStatus
}

type scanService struct {
	store        *storage.ResultStore
	queue        Queue
	logger       *logger.Logger
	maxBatchSize int
}

func NewScanService(store *storage.ResultStore, queue Queue, log *logger.Logger, maxBatchSize int) ScanService {
	return &scanService{
		store:        store,
		queue:        queue,
		logger:       log,
		maxBatchSize: maxBatchSize,
	}
}

// SubmitBatch enforces the submission-boundary policy (batch size cap and
// media types) and hands the accepted files to the queue. The queue and the
// analysis client perform no checks of their own.
func (s *scanService) SubmitBatch(ctx context.Context, files []domain.SourceFile) ([]string, error) {
	if len(files) == 0 {
		return nil, domain.ErrEmptyBatch
	}
	if s.maxBatchSize > 0 && len(files) > s.maxBatchSize {
		return nil, fmt.Errorf("%w: %d files, maximum is %d", domain.ErrBatchTooLarge, len(files), s.maxBatchSize)
	}

	for i := range files {
		detected := mimetype.Detect(files[i].Data)
		if !detected.Is("application/pdf") && !strings.HasPrefix(detected.String(), "image/") {
			return nil, fmt.Errorf("%w: %s (%s)", domain.ErrUnsupportedFileType, files[i].Name, detected.String())
		}
		if files[i].ContentType == "" {
			files[i].ContentType = detected.String()
		}
	}

	ids := s.queue.Submit(ctx, files)

	s.logger.Info(ctx, "Batch submitted",
		"file_count", len(files),
		"queue_busy", s.queue.Busy(),
	)

	return ids, nil
}

func (s *scanService) ListScans(ctx context.Context, filter domain.Filter) []domain.WorkItem {
	s.logger.Debug(ctx, "Listing scans",
		"filter", string(filter),
	)

	return s.store.Filter(filter.Matches)
}

func (s *scanService) GetScan(ctx context.Context, id string) (domain.WorkItem, error) {
	ctx = logger.WithScanID(ctx, id)

	item, err := s.store.Get(id)
	if err != nil {
		s.logger.Debug(ctx, "Scan lookup failed",
			"error", err,
		)
		return domain.WorkItem{}, err
	}

	return item, nil
}

func (s *scanService) DeleteScan(ctx context.Context, id string) {
	ctx = logger.WithScanID(ctx, id)

	s.store.Remove(id)
	s.logger.Info(ctx, "Scan removed")
}

func (s *scanService) DeleteAll(ctx context.Context) {
	s.store.Clear()
	s.logger.Info(ctx, "All scans removed")
}

// DeleteNotDetected removes completed rows without an IBAN. Rows still
// pending, processing or errored are kept.
func (s *scanService) DeleteNotDetected(ctx context.Context) int {
	removed := s.store.RemoveMatching(domain.FilterNotDetected.Matches)

	s.logger.Info(ctx, "Scans without IBAN removed",
		"removed", removed,
	)

	return removed
}

func (s *scanService) Export(ctx context.Context, filter domain.Filter) ([]byte, string, error) {
	rows := s.store.Filter(filter.Matches)

	data, err := export.Workbook(rows)
	if err != nil {
		s.logger.Error(ctx, "Failed to build export workbook",
			"error", err,
		)
		return nil, "", err
	}

	filename := export.Filename(filter, time.Now())

	s.logger.Info(ctx, "Export generated",
		"rows", len(rows),
		"filename", filename,
	)

	return data, filename, nil
}

func (s *scanService) Status(ctx context.Context) QueueStatus {
	completed := len(s.store.Filter(func(item domain.WorkItem) bool {
		return item.Status == domain.ItemStatusDone || item.Status == domain.ItemStatusError
	}))

	return QueueStatus{
		Busy:      s.queue.Busy(),
		Pending:   s.queue.Pending(),
		Total:     s.store.Len(),
		Completed: completed,
	}
}
