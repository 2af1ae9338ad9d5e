package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jestrada-applaudo/bdd-mroh/servicedef"

	"github.com/launchdarkly/go-test-helpers/v2/httphelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

const testToken = "test-token"

func newTestClient(server *httptest.Server) *APIClient {
	return New(server.URL+"/api/", testToken, 5*time.Second, nil)
}

func TestCreateSendsJSONWithAuthHeader(t *testing.T) {
	handler, requestsCh := httphelpers.RecordingHandler(
		httphelpers.HandlerWithResponse(201, nil, []byte(`{"id":"rate-1","airframeRate":1000.0}`)))
	httphelpers.WithServer(handler, func(server *httptest.Server) {
		c := newTestClient(server)
		payload := ldvalue.ObjectBuild().Set("level", ldvalue.Int(1)).Build()

		resp, err := c.Create(context.Background(), servicedef.RatesResource, payload)
		require.NoError(t, err)
		assert.Equal(t, 201, resp.StatusCode)
		assert.True(t, resp.Succeeded())

		body, ok := resp.JSON()
		require.True(t, ok)
		assert.Equal(t, "rate-1", body.GetByKey("id").StringValue())

		info := <-requestsCh
		assert.Equal(t, "POST", info.Request.Method)
		assert.Equal(t, "/api/revisions/revenue_options/parameters/rates", info.Request.URL.Path)
		assert.Equal(t, "Bearer "+testToken, info.Request.Header.Get("Authorization"))
		assert.Equal(t, "application/json", info.Request.Header.Get("Content-Type"))
		assert.Equal(t, "application/json", info.Request.Header.Get("accept"))
		assert.JSONEq(t, `{"level":1}`, string(info.Body))
	})
}

func TestNon2xxIsDataNotError(t *testing.T) {
	httphelpers.WithServer(httphelpers.HandlerWithResponse(400, nil, []byte("customerId is required")), func(server *httptest.Server) {
		resp, err := newTestClient(server).Create(context.Background(), servicedef.RatesResource, ldvalue.ObjectBuild().Build())
		require.NoError(t, err)
		assert.False(t, resp.Succeeded())

		envelope := resp.Expecting(201)
		assert.Equal(t, "customerId is required", envelope.GetByKey("error").StringValue())
		assert.Equal(t, 400, envelope.GetByKey("status_code").IntValue())

		lenient := resp.Lenient()
		assert.Equal(t, "customerId is required", lenient.GetByKey("text").StringValue())
	})
}

func TestExpectingReturnsBodyOnMatch(t *testing.T) {
	resp := Response{StatusCode: 200, Body: []byte(`{"deletedRates":["a","b"]}`)}
	body := resp.Expecting(200)
	assert.Equal(t, []string{"a", "b"}, DeletedIDs(servicedef.RatesResource, body))
	assert.Equal(t, 401, Response{StatusCode: 401, Body: []byte(`{}`)}.Expecting(200).GetByKey("status_code").IntValue())
}

func TestDeleteUsesResourceSpecificBody(t *testing.T) {
	handler, requestsCh := httphelpers.RecordingHandler(
		httphelpers.HandlerWithJSONResponse(servicedef.DeleteRevenuesResponse{DeletedRevenues: []string{"r1"}}, nil))
	httphelpers.WithServer(handler, func(server *httptest.Server) {
		c := newTestClient(server)

		resp, err := c.Delete(context.Background(), servicedef.LaborResource, []string{"r1"})
		require.NoError(t, err)
		info := <-requestsCh
		assert.Equal(t, "PUT", info.Request.Method)
		assert.Equal(t, "/api/revisions/revenue_options/parameters/labor/delete", info.Request.URL.Path)
		assert.JSONEq(t, `{"revenueIds":["r1"]}`, string(info.Body))
		assert.Equal(t, []string{"r1"}, DeletedIDs(servicedef.LaborResource, resp.Expecting(200)))

		_, err = c.Delete(context.Background(), servicedef.RatesResource, []string{"x"})
		require.NoError(t, err)
		info = <-requestsCh
		assert.JSONEq(t, `{"rateIds":["x"]}`, string(info.Body))
	})
}

func TestSearchSendsQuery(t *testing.T) {
	handler, requestsCh := httphelpers.RecordingHandler(
		httphelpers.HandlerWithJSONResponse(map[string]interface{}{"items": []interface{}{}}, nil))
	httphelpers.WithServer(handler, func(server *httptest.Server) {
		_, err := newTestClient(server).Search(context.Background(), "rev-1", servicedef.RatesResource,
			servicedef.SearchParams{SearchText: "CUST 1"})
		require.NoError(t, err)

		info := <-requestsCh
		assert.Equal(t, "/api/revisions/rev-1/revenue_options/parameters/rates", info.Request.URL.Path)
		assert.Equal(t, "CUST 1", info.Request.URL.Query().Get("searchText"))
		assert.Equal(t, "0", info.Request.URL.Query().Get("page"))
		assert.Equal(t, "10", info.Request.URL.Query().Get("pageSize"))
	})
}

func TestExportAcceptsSpreadsheet(t *testing.T) {
	handler, requestsCh := httphelpers.RecordingHandler(
		httphelpers.HandlerWithResponse(200, nil, []byte("PK\x03\x04binary")))
	httphelpers.WithServer(handler, func(server *httptest.Server) {
		resp, err := newTestClient(server).Export(context.Background(), "rev-1", servicedef.LaborResource)
		require.NoError(t, err)
		assert.Equal(t, []byte("PK\x03\x04binary"), resp.Body)
		_, ok := resp.JSON()
		assert.False(t, ok)

		info := <-requestsCh
		assert.Equal(t, "/api/revisions/rev-1/revenue_options/parameters/labor/excel", info.Request.URL.Path)
		assert.Equal(t, servicedef.ExcelContentType, info.Request.Header.Get("accept"))
		assert.Empty(t, info.Request.Header.Get("Content-Type"))
	})
}

func TestReferenceEntityPath(t *testing.T) {
	handler, requestsCh := httphelpers.RecordingHandler(httphelpers.HandlerWithStatus(404))
	httphelpers.WithServer(handler, func(server *httptest.Server) {
		resp, err := newTestClient(server).GetReferenceEntity(context.Background(), "FleetType", "ft-1")
		require.NoError(t, err)
		assert.Equal(t, 404, resp.StatusCode)
		info := <-requestsCh
		assert.Equal(t, "/api/parameters/fleettypes/ft-1", info.Request.URL.Path)
	})
}

func TestCreateRevisionBody(t *testing.T) {
	handler, requestsCh := httphelpers.RecordingHandler(
		httphelpers.HandlerWithJSONResponse(servicedef.CreateRevisionResponse{RevisionID: "rev-9"}, nil))
	httphelpers.WithServer(handler, func(server *httptest.Server) {
		resp, err := newTestClient(server).CreateRevision(context.Background(), servicedef.CreateRevisionParams{
			OpCo: "opco", RevisionType: "TEST", Year: 2024, IsOfficial: true,
		})
		require.NoError(t, err)
		var decoded servicedef.CreateRevisionResponse
		require.NoError(t, json.Unmarshal(resp.Body, &decoded))
		assert.Equal(t, "rev-9", decoded.RevisionID)

		info := <-requestsCh
		assert.Equal(t, "/api/revisions", info.Request.URL.Path)
		var sent map[string]interface{}
		require.NoError(t, json.Unmarshal(info.Body, &sent))
		assert.Equal(t, "opco", sent["opCo"])
		assert.Equal(t, true, sent["isOfficial"])
	})
}

func TestTimeoutIsTransportError(t *testing.T) {
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	})
	httphelpers.WithServer(slow, func(server *httptest.Server) {
		c := New(server.URL, testToken, 50*time.Millisecond, nil)
		_, err := c.Fetch(context.Background(), "rev", servicedef.RatesResource, "id")
		require.Error(t, err)
	})
}

type recordingLogger struct {
	lines []string
}

func (r *recordingLogger) Debugf(format string, args ...interface{}) {
	r.lines = append(r.lines, fmt.Sprintf(format, args...))
}

func TestWithLoggerKeepsSettings(t *testing.T) {
	httphelpers.WithServer(httphelpers.HandlerWithStatus(404), func(server *httptest.Server) {
		base := newTestClient(server)
		var logger recordingLogger
		c := base.WithLogger(&logger)
		assert.Equal(t, base.BaseURL(), c.BaseURL())
		assert.Equal(t, base.AuthHeader(), c.AuthHeader())

		resp, err := c.Fetch(context.Background(), "rev", servicedef.RatesResource, "id")
		require.NoError(t, err)
		assert.Equal(t, 404, resp.StatusCode)
		require.Len(t, logger.lines, 2)
		assert.Contains(t, logger.lines[1], "returned HTTP 404")
	})
}
