package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/perf-review-api/internal/dto"
	"github.com/noah-isme/perf-review-api/internal/models"
	"github.com/noah-isme/perf-review-api/internal/service"
	appErrors "github.com/noah-isme/perf-review-api/pkg/errors"
)

type fakeStaffSrv struct {
	lastFilter  models.StaffFilter
	lastCreate  service.CreateStaffRequest
	lastManager service.UpdateManagerRequest
	createErr   error
	chart       []dto.OrgChartNode
}

func (f *fakeStaffSrv) List(_ context.Context, filter models.StaffFilter) ([]models.Staff, *models.Pagination, error) {
	f.lastFilter = filter
	return []models.Staff{{ID: "s1", Name: "Ava"}}, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: 1}, nil
}

func (f *fakeStaffSrv) Get(_ context.Context, id string) (*models.Staff, error) {
	return nil, appErrors.Clone(appErrors.ErrNotFound, "staff member not found")
}

func (f *fakeStaffSrv) Create(_ context.Context, req service.CreateStaffRequest) (*models.Staff, error) {
	f.lastCreate = req
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &models.Staff{ID: "s2", Name: req.Name, Email: req.Email}, nil
}

func (f *fakeStaffSrv) ReassignManager(_ context.Context, id string, req service.UpdateManagerRequest) (*models.Staff, error) {
	f.lastManager = req
	return &models.Staff{ID: id, ManagerID: req.ManagerID}, nil
}

func (f *fakeStaffSrv) OrgChart(context.Context) ([]dto.OrgChartNode, error) {
	return f.chart, nil
}

func TestStaffHandlerListParsesQuery(t *testing.T) {
	srv := &fakeStaffSrv{}
	c, rec := newTestContext(http.MethodGet, "/staff?search=ava&page=2&limit=5&managerId=m1", nil)

	NewStaffHandler(srv).List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ava", srv.lastFilter.Search)
	assert.Equal(t, 2, srv.lastFilter.Page)
	assert.Equal(t, 5, srv.lastFilter.PageSize)
	require.NotNil(t, srv.lastFilter.ManagerID)
	assert.Equal(t, "m1", *srv.lastFilter.ManagerID)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, float64(1), envelope.Pagination["total_count"])
}

func TestStaffHandlerCreate(t *testing.T) {
	srv := &fakeStaffSrv{}
	c, rec := newTestContext(http.MethodPost, "/staff", map[string]string{"name": "Zoe", "title": "Designer", "email": "zoe@acme.com"})

	NewStaffHandler(srv).Create(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "zoe@acme.com", srv.lastCreate.Email)
}

func TestStaffHandlerCreateErrors(t *testing.T) {
	c, rec := newTestContext(http.MethodPost, "/staff", "{not json")
	NewStaffHandler(&fakeStaffSrv{}).Create(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	srv := &fakeStaffSrv{createErr: appErrors.Clone(appErrors.ErrConflict, "a staff member with that email already exists")}
	c, rec = newTestContext(http.MethodPost, "/staff", map[string]string{"name": "Ava", "title": "CEO", "email": "ava@acme.com"})
	NewStaffHandler(srv).Create(c)
	assert.Equal(t, http.StatusConflict, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, "CONFLICT", envelope.Error["code"])
}

func TestStaffHandlerGetNotFound(t *testing.T) {
	c, rec := newTestContext(http.MethodGet, "/staff/x", nil)
	c.Params = gin.Params{{Key: "id", Value: "x"}}
	NewStaffHandler(&fakeStaffSrv{}).Get(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStaffHandlerReassignManagerNull(t *testing.T) {
	srv := &fakeStaffSrv{}
	c, rec := newTestContext(http.MethodPut, "/staff/s1/manager", `{"manager_id": null}`)
	c.Params = gin.Params{{Key: "id", Value: "s1"}}

	NewStaffHandler(srv).ReassignManager(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, srv.lastManager.ManagerID)
}

func TestStaffHandlerOrgChart(t *testing.T) {
	srv := &fakeStaffSrv{chart: []dto.OrgChartNode{{ID: "s1", Name: "Ava", Children: []dto.OrgChartNode{{ID: "s2", Name: "Mia"}}}}}
	c, rec := newTestContext(http.MethodGet, "/org-chart", nil)

	NewStaffHandler(srv).OrgChart(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var nodes []dto.OrgChartNode
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &nodes))
	require.Len(t, nodes, 1)
	assert.Equal(t, "Mia", nodes[0].Children[0].Name)
}
