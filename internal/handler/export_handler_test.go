package handler

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/perf-review-api/internal/dto"
	"github.com/noah-isme/perf-review-api/internal/models"
	"github.com/noah-isme/perf-review-api/internal/service"
	appErrors "github.com/noah-isme/perf-review-api/pkg/errors"
)

type fakeExportSrv struct {
	lastReq dto.ExportRequest
	file    string
}

func (f *fakeExportSrv) CreateJob(_ context.Context, reviewID string, req dto.ExportRequest, actor *service.Actor) (*dto.ExportJobResponse, error) {
	f.lastReq = req
	return &dto.ExportJobResponse{ID: "job-1", ReviewID: reviewID, Status: models.ExportStatusQueued}, nil
}

func (f *fakeExportSrv) GetStatus(_ context.Context, id string) (*dto.ExportStatusResponse, error) {
	return &dto.ExportStatusResponse{ID: id, Status: models.ExportStatusFinished}, nil
}

func (f *fakeExportSrv) ResolveDownload(_ context.Context, token string) (*service.ExportDownload, error) {
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	file, err := os.Open(f.file)
	if err != nil {
		return nil, err
	}
	return &service.ExportDownload{File: file, Filename: "review.csv", Format: models.ExportFormatCSV}, nil
}

func TestExportHandlerDisabled(t *testing.T) {
	c, rec := newTestContext(http.MethodPost, "/reviews/r1/exports", nil)
	NewExportHandler(nil).Create(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "FEATURE_DISABLED", decodeEnvelope(t, rec).Error["code"])
}

func TestExportHandlerCreateAcceptsEmptyBody(t *testing.T) {
	srv := &fakeExportSrv{}
	c, rec := newTestContext(http.MethodPost, "/reviews/r1/exports", nil)
	c.Params = gin.Params{{Key: "id", Value: "r1"}}

	NewExportHandler(srv).Create(c)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Empty(t, srv.lastReq.Format)
}

func TestExportHandlerDownload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "review.csv")
	require.NoError(t, os.WriteFile(path, []byte("Order,Prompt\n1,Q\n"), 0o600))
	srv := &fakeExportSrv{file: path}

	c, rec := newTestContext(http.MethodGet, "/exports/download/good", nil)
	c.Params = gin.Params{{Key: "token", Value: "good"}}
	NewExportHandler(srv).Download(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "review.csv")
	assert.Equal(t, "Order,Prompt\n1,Q\n", rec.Body.String())

	c, rec = newTestContext(http.MethodGet, "/exports/download/bad", nil)
	c.Params = gin.Params{{Key: "token", Value: "bad"}}
	NewExportHandler(srv).Download(c)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
