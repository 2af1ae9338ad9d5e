package fakeapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jestrada-applaudo/bdd-mroh/servicedef"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

const dateLayout = "2006-01-02"

type resourceHandler struct {
	server   *Server
	resource string
}

func (s *Server) createRevision(w http.ResponseWriter, r *http.Request) {
	var params servicedef.CreateRevisionParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if params.OpCo == "" || params.RevisionName == "" {
		writeMessage(w, http.StatusBadRequest, "opCo and revisionName are required")
		return
	}
	id := uuid.NewString()
	s.store.lock.Lock()
	s.store.revisions[id] = ldvalue.CopyArbitraryValue(params)
	s.store.lock.Unlock()
	writeJSON(w, http.StatusOK, servicedef.CreateRevisionResponse{RevisionID: id})
}

func (s *Server) getReferenceEntity(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	s.store.lock.Lock()
	entity, ok := s.store.references[vars["collection"]][vars["id"]]
	s.store.lock.Unlock()
	if !ok {
		writeMessage(w, http.StatusNotFound, fmt.Sprintf("%s %s not found", vars["collection"], vars["id"]))
		return
	}
	writeJSON(w, http.StatusOK, entity)
}

func (h *resourceHandler) create(w http.ResponseWriter, r *http.Request) {
	record, ok := readObject(w, r)
	if !ok {
		return
	}
	s := h.server.store
	s.lock.Lock()
	defer s.lock.Unlock()

	if problem := h.validate(record); problem != "" {
		writeMessage(w, http.StatusBadRequest, problem)
		return
	}
	if h.resource == servicedef.RatesResource {
		if dup := h.findDuplicateRate(record); dup != "" {
			writeMessage(w, http.StatusConflict,
				fmt.Sprintf("A rate already exists for this customer, year and level (id %s)", dup))
			return
		}
	}
	id := uuid.NewString()
	record = withFields(record, map[string]ldvalue.Value{"id": ldvalue.String(id)})
	s.collection(h.resource).put(id, record)
	writeJSON(w, http.StatusCreated, record)
}

func (h *resourceHandler) update(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	patch, ok := readObject(w, r)
	if !ok {
		return
	}
	s := h.server.store
	s.lock.Lock()
	defer s.lock.Unlock()

	existing, found := s.collection(h.resource).get(id)
	if !found {
		writeMessage(w, http.StatusNotFound, fmt.Sprintf("%s %s not found", h.resource, id))
		return
	}
	updated := merge(existing, patch)
	updated = withFields(updated, map[string]ldvalue.Value{
		"id":         ldvalue.String(id),
		"revisionId": existing.GetByKey("revisionId"),
	})
	if problem := h.validate(updated); problem != "" {
		writeMessage(w, http.StatusBadRequest, problem)
		return
	}
	s.collection(h.resource).put(id, updated)
	writeJSON(w, http.StatusOK, updated)
}

func (h *resourceHandler) delete(w http.ResponseWriter, r *http.Request) {
	requestKey := "rateIds"
	if h.resource == servicedef.LaborResource {
		requestKey = "revenueIds"
	}
	body, ok := readObject(w, r)
	if !ok {
		return
	}
	ids := body.GetByKey(requestKey)
	if ids.Type() != ldvalue.ArrayType {
		writeMessage(w, http.StatusBadRequest, requestKey+" must be a list")
		return
	}
	s := h.server.store
	s.lock.Lock()
	deleted := []string{}
	for i := 0; i < ids.Count(); i++ {
		id := ids.GetByIndex(i).StringValue()
		if s.collection(h.resource).remove(id) {
			deleted = append(deleted, id)
		}
	}
	s.lock.Unlock()
	if h.resource == servicedef.LaborResource {
		writeJSON(w, http.StatusOK, servicedef.DeleteRevenuesResponse{DeletedRevenues: deleted})
		return
	}
	writeJSON(w, http.StatusOK, servicedef.DeleteRatesResponse{DeletedRates: deleted})
}

func (h *resourceHandler) search(w http.ResponseWriter, r *http.Request) {
	revisionID := mux.Vars(r)["revisionId"]
	query := r.URL.Query()
	page := intParam(query.Get("page"), 0)
	pageSize := intParam(query.Get("pageSize"), servicedef.DefaultPageSize)
	if page < 0 || pageSize <= 0 {
		writeMessage(w, http.StatusBadRequest, "page must be >= 0 and pageSize > 0")
		return
	}

	s := h.server.store
	s.lock.Lock()
	all := s.collection(h.resource).list(matchesSearch(revisionID, query.Get("searchText")))
	s.lock.Unlock()

	items := []ldvalue.Value{}
	for i := page * pageSize; i < len(all) && i < (page+1)*pageSize; i++ {
		items = append(items, all[i])
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items":      items,
		"page":       page,
		"pageSize":   pageSize,
		"totalItems": len(all),
	})
}

func (h *resourceHandler) fetch(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	s := h.server.store
	s.lock.Lock()
	record, ok := s.collection(h.resource).get(vars["id"])
	s.lock.Unlock()
	if !ok || record.GetByKey("revisionId").StringValue() != vars["revisionId"] {
		writeMessage(w, http.StatusNotFound, fmt.Sprintf("%s %s not found", h.resource, vars["id"]))
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *resourceHandler) export(w http.ResponseWriter, r *http.Request) {
	revisionID := mux.Vars(r)["revisionId"]
	s := h.server.store
	s.lock.Lock()
	records := s.collection(h.resource).list(matchesRevision(revisionID))
	s.lock.Unlock()

	data, err := buildWorkbook(h.resource, records)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", servicedef.ExcelContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.xlsx"`, h.resource))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// validate returns a message describing why record cannot be stored, or "". The store lock
// must be held.
func (h *resourceHandler) validate(record ldvalue.Value) string {
	revisionID := record.GetByKey("revisionId").StringValue()
	if revisionID == "" {
		return "revisionId is required"
	}
	if _, ok := h.server.store.revisions[revisionID]; !ok {
		return fmt.Sprintf("revision %s not found", revisionID)
	}
	if record.GetByKey("customerId").StringValue() == "" {
		return "customerId is required"
	}
	if h.resource == servicedef.RatesResource {
		return validateRate(record)
	}
	return validateLabor(record)
}

func validateRate(record ldvalue.Value) string {
	level := record.GetByKey("level")
	if !level.IsInt() || level.IntValue() < 1 || level.IntValue() > 3 {
		return "level must be 1, 2 or 3"
	}
	if !record.GetByKey("year").IsInt() {
		return "year must be an integer"
	}
	for _, k := range record.Keys() {
		if strings.HasSuffix(k, "Rate") && !record.GetByKey(k).IsNumber() {
			return k + " must be a number"
		}
	}
	return ""
}

func validateLabor(record ldvalue.Value) string {
	if record.GetByKey("type").StringValue() == "" {
		return "type is required"
	}
	if rubrics := record.GetByKey("rubrics"); !rubrics.IsNull() && rubrics.Type() != ldvalue.ObjectType {
		return "rubrics must be an object"
	}
	dateIn, dateOut := record.GetByKey("dateIn").StringValue(), record.GetByKey("dateOut").StringValue()
	if dateIn != "" && dateOut != "" {
		in, errIn := parseDate(dateIn)
		out, errOut := parseDate(dateOut)
		if errIn != nil || errOut != nil {
			return "dateIn and dateOut must be dates in YYYY-MM-DD format"
		}
		if out.Before(in) {
			return "Invalid dates: dateOut must not be earlier than dateIn"
		}
	}
	return ""
}

// findDuplicateRate returns the id of a rate with the same revision, customer, year and
// level, or "". The store lock must be held.
func (h *resourceHandler) findDuplicateRate(record ldvalue.Value) string {
	key := func(v ldvalue.Value) string {
		return strings.Join([]string{
			v.GetByKey("revisionId").StringValue(),
			v.GetByKey("customerId").StringValue(),
			fieldText(v.GetByKey("year")),
			fieldText(v.GetByKey("level")),
		}, "|")
	}
	want := key(record)
	for _, existing := range h.server.store.collection(h.resource).list(nil) {
		if key(existing) == want {
			return existing.GetByKey("id").StringValue()
		}
	}
	return ""
}

func readObject(w http.ResponseWriter, r *http.Request) (ldvalue.Value, bool) {
	data, err := io.ReadAll(r.Body)
	if err != nil || !json.Valid(data) {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return ldvalue.Null(), false
	}
	v := ldvalue.Parse(data)
	if v.Type() != ldvalue.ObjectType {
		writeMessage(w, http.StatusBadRequest, "Request body must be a JSON object")
		return ldvalue.Null(), false
	}
	return v, true
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

func intParam(s string, defaultValue int) int {
	if s == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}
