// Package analysis is the HTTP client for the remote RIB extraction
// endpoint. One call submits one file and streams the decoded records back
// to the caller as they arrive.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/jerome00253/RIB-Factory/internal/domain"
	"github.com/jerome00253/RIB-Factory/internal/metrics"
	"github.com/jerome00253/RIB-Factory/internal/ndjson"
	"github.com/jerome00253/RIB-Factory/pkg/logger"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logger.Logger
	metrics    *metrics.Metrics
}

// New builds a client for the analyzer at baseURL. A zero timeout means the
// client waits indefinitely for the streamed response; a hung request then
// stalls the processing queue, which is the accepted trade-off here.
func New(baseURL string, timeout time.Duration, log *logger.Logger, m *metrics.Metrics) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     log,
		metrics:    m,
	}
}

// Analyze submits one file as multipart form data and forwards every decoded
// record to sink. It returns only once the response stream is fully drained.
// A request that yields zero records is a valid outcome. No size or type
// checks happen here; the submission boundary owns those. No retry either:
// a failure is reported once and marks only this file.
func (c *Client) Analyze(ctx context.Context, file domain.SourceFile, sink func(domain.ExtractionResult)) error {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := createFilePart(writer, file)
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return fmt.Errorf("write form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/analyze", body)
	if err != nil {
		return fmt.Errorf("create analyze request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return requestError(resp)
	}

	dec := ndjson.NewDecoder(resp.Body, ndjson.WithWarningHandler(func(line []byte, err error) {
		c.metrics.AddDecodeWarnings(1)
		c.logger.Warn(ctx, "Dropped malformed analyzer record",
			"file", file.Name,
			"line", string(line),
			"error", err,
		)
	}))

	for {
		var rec domain.ExtractionResult
		err := dec.Next(&rec)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			// Records already forwarded to the sink stand.
			return &domain.NetworkError{Err: err}
		}
		sink(rec)
	}
}

func createFilePart(writer *multipart.Writer, file domain.SourceFile) (io.Writer, error) {
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, file.Name))
	header.Set("Content-Type", contentType)
	return writer.CreatePart(header)
}

// requestError builds an AnalysisRequestError from a non-2xx response. The
// analyzer reports failures as a JSON body with a "detail" field that may be
// a plain string or a structured value; anything else falls back to a
// status-derived message.
func requestError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	message := ""
	var errBody struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(raw, &errBody) == nil && len(errBody.Detail) > 0 && string(errBody.Detail) != "null" {
		var detail string
		if json.Unmarshal(errBody.Detail, &detail) == nil {
			message = fmt.Sprintf("server error: %s", detail)
		} else {
			message = fmt.Sprintf("server error: %s", string(errBody.Detail))
		}
	}
	if message == "" {
		message = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	return &domain.AnalysisRequestError{
		StatusCode: resp.StatusCode,
		Message:    message,
	}
}
