// Package servicedef describes the revenue API's paths and the fixed-shape request and
// response bodies. Rate and labor revenue records themselves are free-form JSON objects.
package servicedef

import "fmt"

const (
	ParametersPath = "/revisions/revenue_options/parameters"
	RevisionsPath  = "/revisions"

	RatesResource = "rates"
	LaborResource = "labor"

	ExcelContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// DefaultPageSize is the page size the suite uses for every search.
	DefaultPageSize = 10
)

// CreatePath is the collection path for creating records of a resource.
func CreatePath(resource string) string {
	return ParametersPath + "/" + resource
}

// RecordPath is the path for updating a single record.
func RecordPath(resource, id string) string {
	return ParametersPath + "/" + resource + "/" + id
}

// DeletePath is the bulk delete path for a resource.
func DeletePath(resource string) string {
	return ParametersPath + "/" + resource + "/delete"
}

// SearchPath is the revision-scoped collection path used for search and fetch.
func SearchPath(revisionID, resource string) string {
	return fmt.Sprintf("%s/%s/revenue_options/parameters/%s", RevisionsPath, revisionID, resource)
}

// FetchPath is the revision-scoped path of a single record.
func FetchPath(revisionID, resource, id string) string {
	return SearchPath(revisionID, resource) + "/" + id
}

// ExportPath is the revision-scoped Excel export path.
func ExportPath(revisionID, resource string) string {
	return SearchPath(revisionID, resource) + "/excel"
}

// ReferenceEntityPath is the path of a reference entity such as a customer. The entity
// type is lower-cased and pluralized with a trailing "s" by the caller's convention.
func ReferenceEntityPath(collection, id string) string {
	return "/parameters/" + collection + "/" + id
}

type CreateRevisionParams struct {
	OpCo         string `json:"opCo"`
	FromRevision string `json:"fromRevision"`
	RevisionName string `json:"revisionName"`
	RevisionType string `json:"revisionType"`
	Year         int    `json:"year"`
	Week         int    `json:"week"`
	Comment      string `json:"comment"`
	Baseline     string `json:"baseline"`
	Closure      string `json:"closure"`
	IsOfficial   bool   `json:"isOfficial"`
}

type CreateRevisionResponse struct {
	RevisionID string `json:"revisionId"`
}

type DeleteRatesParams struct {
	RateIDs []string `json:"rateIds"`
}

type DeleteRatesResponse struct {
	DeletedRates []string `json:"deletedRates"`
}

type DeleteRevenuesParams struct {
	RevenueIDs []string `json:"revenueIds"`
}

type DeleteRevenuesResponse struct {
	DeletedRevenues []string `json:"deletedRevenues"`
}

type SearchParams struct {
	SearchText string
	Page       int
	PageSize   int
}
