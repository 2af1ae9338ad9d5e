package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/jestrada-applaudo/bdd-mroh/servicedef"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// CreateRevision posts a new revision.
func (c *APIClient) CreateRevision(ctx context.Context, params servicedef.CreateRevisionParams) (Response, error) {
	return c.Do(ctx, http.MethodPost, servicedef.RevisionsPath, nil, params, "")
}

// Create posts a new rate or labor revenue record.
func (c *APIClient) Create(ctx context.Context, resource string, payload ldvalue.Value) (Response, error) {
	return c.Do(ctx, http.MethodPost, servicedef.CreatePath(resource), nil, payload, "")
}

// Update replaces a record.
func (c *APIClient) Update(ctx context.Context, resource, id string, payload ldvalue.Value) (Response, error) {
	return c.Do(ctx, http.MethodPut, servicedef.RecordPath(resource, id), nil, payload, "")
}

// Delete bulk-deletes records by id.
func (c *APIClient) Delete(ctx context.Context, resource string, ids []string) (Response, error) {
	var body interface{}
	switch resource {
	case servicedef.LaborResource:
		body = servicedef.DeleteRevenuesParams{RevenueIDs: ids}
	default:
		body = servicedef.DeleteRatesParams{RateIDs: ids}
	}
	return c.Do(ctx, http.MethodPut, servicedef.DeletePath(resource), nil, body, "")
}

// Search queries the records of a revision.
func (c *APIClient) Search(ctx context.Context, revisionID, resource string, params servicedef.SearchParams) (Response, error) {
	if params.PageSize == 0 {
		params.PageSize = servicedef.DefaultPageSize
	}
	query := url.Values{}
	query.Set("searchText", params.SearchText)
	query.Set("page", strconv.Itoa(params.Page))
	query.Set("pageSize", strconv.Itoa(params.PageSize))
	return c.Do(ctx, http.MethodGet, servicedef.SearchPath(revisionID, resource), query, nil, "")
}

// Fetch gets a single record of a revision.
func (c *APIClient) Fetch(ctx context.Context, revisionID, resource, id string) (Response, error) {
	return c.Do(ctx, http.MethodGet, servicedef.FetchPath(revisionID, resource, id), nil, nil, "")
}

// Export downloads the Excel export of a revision's records.
func (c *APIClient) Export(ctx context.Context, revisionID, resource string) (Response, error) {
	return c.Do(ctx, http.MethodGet, servicedef.ExportPath(revisionID, resource), nil, nil, servicedef.ExcelContentType)
}

// GetReferenceEntity checks a reference entity such as "Customer" or "FleetType".
func (c *APIClient) GetReferenceEntity(ctx context.Context, entityType, id string) (Response, error) {
	collection := strings.ToLower(entityType) + "s"
	return c.Do(ctx, http.MethodGet, servicedef.ReferenceEntityPath(collection, id), nil, nil, "")
}

// DeletedIDs extracts the ids a bulk delete response reports as deleted.
func DeletedIDs(resource string, body ldvalue.Value) []string {
	key := "deletedRates"
	if resource == servicedef.LaborResource {
		key = "deletedRevenues"
	}
	list := body.GetByKey(key)
	ret := make([]string, 0, list.Count())
	for i := 0; i < list.Count(); i++ {
		ret = append(ret, list.GetByIndex(i).StringValue())
	}
	return ret
}
