package analysis

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jerome00253/RIB-Factory/internal/domain"
	"github.com/jerome00253/RIB-Factory/pkg/logger"
)

func testFile() domain.SourceFile {
	data := []byte("%PDF-1.4 fake")
	return domain.SourceFile{
		Name:        "releve.pdf",
		Size:        int64(len(data)),
		ContentType: "application/pdf",
		Data:        data,
	}
}

func collect(sink *[]domain.ExtractionResult) func(domain.ExtractionResult) {
	return func(res domain.ExtractionResult) {
		*sink = append(*sink, res)
	}
}

func TestClient_AnalyzeStreamsRecordsInOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/analyze", r.URL.Path)

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()

		assert.Equal(t, "releve.pdf", header.Filename)
		mediaType, _, err := mime.ParseMediaType(header.Header.Get("Content-Type"))
		require.NoError(t, err)
		assert.Equal(t, "application/pdf", mediaType)

		payload, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, []byte("%PDF-1.4 fake"), payload)

		flusher := w.(http.Flusher)
		fmt.Fprintln(w, `{"status":"valid","confidence_score":95,"checksum_valid":true,"page_number":1,"data":{"iban":"FR7630001007941234567890185","bic":"BDFEFRPP","owner_name":"JEAN DUPONT","bank_name":"Banque de France"}}`)
		flusher.Flush()
		fmt.Fprintln(w, `{"status":"warning","confidence_score":60,"checksum_valid":false,"page_number":2,"data":{"iban":"","bic":"","owner_name":"","bank_name":""}}`)
		flusher.Flush()
	}))
	defer server.Close()

	client := New(server.URL, 0, logger.NewNop(), nil)

	var records []domain.ExtractionResult
	err := client.Analyze(context.Background(), testFile(), collect(&records))
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, domain.ExtractionStatusValid, records[0].Status)
	assert.Equal(t, 1, records[0].PageNumber)
	assert.Equal(t, "FR7630001007941234567890185", records[0].Data.IBAN)
	assert.Equal(t, domain.ExtractionStatusWarning, records[1].Status)
	assert.Equal(t, 2, records[1].PageNumber)
}

func TestClient_ZeroRecordsIsSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(server.URL, 0, logger.NewNop(), nil)

	var records []domain.ExtractionResult
	err := client.Analyze(context.Background(), testFile(), collect(&records))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestClient_MalformedLinesDoNotAbortStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"status":"valid","checksum_valid":true,"data":{"iban":"FR76","bic":"","owner_name":"","bank_name":""}}`)
		fmt.Fprintln(w, `garbage line`)
		fmt.Fprintln(w, `{"status":"invalid","checksum_valid":false,"data":{"iban":"","bic":"","owner_name":"","bank_name":""}}`)
	}))
	defer server.Close()

	client := New(server.URL, 0, logger.NewNop(), nil)

	var records []domain.ExtractionResult
	err := client.Analyze(context.Background(), testFile(), collect(&records))
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, domain.ExtractionStatusValid, records[0].Status)
	assert.Equal(t, domain.ExtractionStatusInvalid, records[1].Status)
}

func TestClient_RequestErrorWithStringDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"detail":"document illisible"}`)
	}))
	defer server.Close()

	client := New(server.URL, 0, logger.NewNop(), nil)

	err := client.Analyze(context.Background(), testFile(), func(domain.ExtractionResult) {})
	require.Error(t, err)

	var reqErr *domain.AnalysisRequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusUnprocessableEntity, reqErr.StatusCode)
	assert.Equal(t, "server error: document illisible", reqErr.Message)
}

func TestClient_RequestErrorWithStructuredDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"detail":{"field":"file","reason":"too large"}}`)
	}))
	defer server.Close()

	client := New(server.URL, 0, logger.NewNop(), nil)

	err := client.Analyze(context.Background(), testFile(), func(domain.ExtractionResult) {})

	var reqErr *domain.AnalysisRequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, `server error: {"field":"file","reason":"too large"}`, reqErr.Message)
}

func TestClient_RequestErrorWithoutBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(server.URL, 0, logger.NewNop(), nil)

	err := client.Analyze(context.Background(), testFile(), func(domain.ExtractionResult) {})

	var reqErr *domain.AnalysisRequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, "HTTP 500: Internal Server Error", reqErr.Message)
}

func TestClient_TransportFailureIsNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused

	client := New(server.URL, 0, logger.NewNop(), nil)

	err := client.Analyze(context.Background(), testFile(), func(domain.ExtractionResult) {})

	var netErr *domain.NetworkError
	require.ErrorAs(t, err, &netErr)
}

func TestClient_MidStreamFailureKeepsDeliveredRecords(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"status":"valid","checksum_valid":true,"data":{"iban":"FR76","bic":"","owner_name":"","bank_name":""}}`)
		w.(http.Flusher).Flush()

		// Drop the connection mid-body so the client sees a read error
		// after the first record.
		conn, _, err := w.(http.Hijacker).Hijack()
		require.NoError(t, err)
		conn.Close()
	}))
	defer server.Close()

	client := New(server.URL, 0, logger.NewNop(), nil)

	var records []domain.ExtractionResult
	err := client.Analyze(context.Background(), testFile(), collect(&records))

	var netErr *domain.NetworkError
	require.ErrorAs(t, err, &netErr)
	require.Len(t, records, 1)
	assert.Equal(t, "FR76", records[0].Data.IBAN)
}
