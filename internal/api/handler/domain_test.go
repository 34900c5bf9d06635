package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	temporalmocks "go.temporal.io/sdk/mocks"

	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/api/request"
	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/core"
	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/model"
	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/upstream"
)

func sqlContains(sub string) any {
	return mock.MatchedBy(func(sql string) bool { return strings.Contains(sql, sub) })
}

func boolRow(v bool) *mockRow {
	return &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*bool)) = v
		return nil
	}}
}

func errNoRowsRow() *mockRow {
	return &mockRow{scanFunc: func(dest ...any) error { return pgx.ErrNoRows }}
}

func domainRow(d model.Domain) *mockRow {
	return &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*string)) = d.ID
		*(dest[1].(*string)) = d.OrgID
		*(dest[2].(*string)) = d.Hostname
		*(dest[3].(*string)) = d.Status
		*(dest[4].(*string)) = d.CNAMETarget
		*(dest[5].(**string)) = d.UpstreamID
		*(dest[6].(*string)) = d.UpstreamStatus
		*(dest[7].(*string)) = d.UpstreamSSLStatus
		*(dest[8].(*[]string)) = d.UpstreamErrors
		*(dest[9].(**time.Time)) = d.LastIssuedAt
		*(dest[10].(**time.Time)) = d.ExpiresAt
		*(dest[11].(**string)) = d.ErrorMessage
		*(dest[12].(*time.Time)) = d.CreatedAt
		*(dest[13].(*time.Time)) = d.UpdatedAt
		return nil
	}}
}

func newDomainHandler(db *handlerMockDB, up *mockUpstream) *Domain {
	tc := &temporalmocks.Client{}
	tc.On("ExecuteWorkflow", mock.Anything, mock.Anything,
		mock.Anything, mock.Anything, mock.Anything).Return(nil, nil).Maybe()
	db.On("Query", mock.Anything, sqlContains("webhook_endpoints"), mock.Anything).
		Return(newMockRows(), nil).Maybe()

	services := core.NewServices(db, tc, up, zerolog.Nop(), core.Options{
		CNAMETarget:    "dcv.delegate.example.net",
		JobMaxAttempts: 5,
	})
	return NewDomain(services.Domain)
}

func TestDomainHandler_Create_Success(t *testing.T) {
	db := &handlerMockDB{}
	up := &mockUpstream{}
	h := newDomainHandler(db, up)

	db.On("QueryRow", mock.Anything, sqlContains("FROM domains WHERE org_id"), mock.Anything).
		Return(boolRow(false)).Once()
	up.On("Create", mock.Anything, "shop.example.com").
		Return(&upstream.Resource{ID: "up-1"}, nil)
	db.On("Exec", mock.Anything, sqlContains("INSERT INTO domains"), mock.Anything).
		Return(pgconn.CommandTag{}, nil)
	db.On("QueryRow", mock.Anything, sqlContains("SELECT EXISTS"), mock.Anything).
		Return(boolRow(true)).Once()
	db.On("Exec", mock.Anything, sqlContains("INSERT INTO jobs"), mock.Anything).
		Return(pgconn.CommandTag{}, nil)

	rec := httptest.NewRecorder()
	h.Create(rec, newRequest(http.MethodPost, "/api/v1/domains",
		request.CreateDomain{Hostname: "shop.example.com"}))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"pending_cname"`)
	assert.Contains(t, rec.Body.String(), `"dcv.delegate.example.net"`)
}

func TestDomainHandler_Create_InvalidHostname(t *testing.T) {
	h := newDomainHandler(&handlerMockDB{}, &mockUpstream{})

	rec := httptest.NewRecorder()
	h.Create(rec, newRequest(http.MethodPost, "/api/v1/domains",
		request.CreateDomain{Hostname: "https://bad/input"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeErrorResponse(rec)["error"], "invalid hostname")
}

func TestDomainHandler_Create_MalformedJSON(t *testing.T) {
	h := newDomainHandler(&handlerMockDB{}, &mockUpstream{})

	rec := httptest.NewRecorder()
	h.Create(rec, newRequestRaw(http.MethodPost, "/api/v1/domains", "{not json"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDomainHandler_Create_Duplicate(t *testing.T) {
	db := &handlerMockDB{}
	h := newDomainHandler(db, &mockUpstream{})

	db.On("QueryRow", mock.Anything, sqlContains("FROM domains WHERE org_id"), mock.Anything).
		Return(boolRow(true))

	rec := httptest.NewRecorder()
	h.Create(rec, newRequest(http.MethodPost, "/api/v1/domains",
		request.CreateDomain{Hostname: "shop.example.com"}))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDomainHandler_Get_NotFound(t *testing.T) {
	db := &handlerMockDB{}
	h := newDomainHandler(db, &mockUpstream{})

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(errNoRowsRow())

	rec := httptest.NewRecorder()
	r := withChiURLParam(newRequest(http.MethodGet, "/api/v1/domains/dom-404", nil), "id", "dom-404")
	h.Get(rec, r)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDomainHandler_Get_Success(t *testing.T) {
	db := &handlerMockDB{}
	h := newDomainHandler(db, &mockUpstream{})

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(domainRow(model.Domain{ID: "dom-1", OrgID: testOrgID,
			Hostname: "shop.example.com", Status: model.StatusActive}))

	rec := httptest.NewRecorder()
	r := withChiURLParam(newRequest(http.MethodGet, "/api/v1/domains/dom-1", nil), "id", "dom-1")
	h.Get(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"shop.example.com"`)
}

func TestDomainHandler_Sync_NotProvisionedIsConflict(t *testing.T) {
	db := &handlerMockDB{}
	h := newDomainHandler(db, &mockUpstream{})

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(domainRow(model.Domain{ID: "dom-1", OrgID: testOrgID,
			Status: model.StatusPendingCNAME}))

	rec := httptest.NewRecorder()
	r := withChiURLParam(newRequest(http.MethodPost, "/api/v1/domains/dom-1/sync", nil), "id", "dom-1")
	h.Sync(rec, r)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDomainHandler_Delete_Success(t *testing.T) {
	db := &handlerMockDB{}
	up := &mockUpstream{}
	h := newDomainHandler(db, up)
	upID := "up-1"

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(domainRow(model.Domain{ID: "dom-1", OrgID: testOrgID, UpstreamID: &upID}))
	up.On("Delete", mock.Anything, upID).Return(nil)
	db.On("Exec", mock.Anything, sqlContains("DELETE FROM domains"), mock.Anything).
		Return(pgconn.CommandTag{}, nil)

	rec := httptest.NewRecorder()
	r := withChiURLParam(newRequest(http.MethodDelete, "/api/v1/domains/dom-1", nil), "id", "dom-1")
	h.Delete(rec, r)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestDomainHandler_List_Paginates(t *testing.T) {
	db := &handlerMockDB{}
	h := newDomainHandler(db, &mockUpstream{})

	rows := newMockRows(
		domainRow(model.Domain{ID: "dom-1", OrgID: testOrgID, Status: model.StatusActive}).scanFunc,
		domainRow(model.Domain{ID: "dom-2", OrgID: testOrgID, Status: model.StatusActive}).scanFunc,
	)
	db.On("Query", mock.Anything, sqlContains("FROM domains"), mock.Anything).Return(rows, nil)

	rec := httptest.NewRecorder()
	h.List(rec, newRequest(http.MethodGet, "/api/v1/domains?limit=1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"has_more":true`)
	assert.Contains(t, rec.Body.String(), `"next_cursor":"dom-1"`)
}
