package fakeapi

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// searchableFields are the record fields matched by searchText.
var searchableFields = []string{"customerCode", "customerName", "comments", "type", "year"}

type collection struct {
	order []string
	items map[string]ldvalue.Value
}

func newCollection() *collection {
	return &collection{items: make(map[string]ldvalue.Value)}
}

func (c *collection) put(id string, v ldvalue.Value) {
	if _, exists := c.items[id]; !exists {
		c.order = append(c.order, id)
	}
	c.items[id] = v
}

func (c *collection) get(id string) (ldvalue.Value, bool) {
	v, ok := c.items[id]
	return v, ok
}

func (c *collection) remove(id string) bool {
	if _, ok := c.items[id]; !ok {
		return false
	}
	delete(c.items, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

func (c *collection) list(match func(ldvalue.Value) bool) []ldvalue.Value {
	var ret []ldvalue.Value
	for _, id := range c.order {
		if v := c.items[id]; match == nil || match(v) {
			ret = append(ret, v)
		}
	}
	return ret
}

type referenceEntity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// store holds every entity of the fake backend in memory.
type store struct {
	revisions  map[string]ldvalue.Value
	resources  map[string]*collection
	references map[string]map[string]referenceEntity
	lock       sync.Mutex
}

func newStore() *store {
	return &store{
		revisions:  make(map[string]ldvalue.Value),
		resources:  map[string]*collection{},
		references: make(map[string]map[string]referenceEntity),
	}
}

func (s *store) collection(resource string) *collection {
	c := s.resources[resource]
	if c == nil {
		c = newCollection()
		s.resources[resource] = c
	}
	return c
}

func matchesRevision(revisionID string) func(ldvalue.Value) bool {
	return func(v ldvalue.Value) bool {
		return v.GetByKey("revisionId").StringValue() == revisionID
	}
}

func matchesSearch(revisionID, text string) func(ldvalue.Value) bool {
	text = strings.ToLower(strings.TrimSpace(text))
	inRevision := matchesRevision(revisionID)
	return func(v ldvalue.Value) bool {
		if !inRevision(v) {
			return false
		}
		if text == "" {
			return true
		}
		for _, field := range searchableFields {
			if strings.Contains(strings.ToLower(fieldText(v.GetByKey(field))), text) {
				return true
			}
		}
		return false
	}
}

func fieldText(v ldvalue.Value) string {
	switch v.Type() {
	case ldvalue.StringType:
		return v.StringValue()
	case ldvalue.NumberType:
		if v.IsInt() {
			return strconv.Itoa(v.IntValue())
		}
		return strconv.FormatFloat(v.Float64Value(), 'f', -1, 64)
	case ldvalue.BoolType:
		return strconv.FormatBool(v.BoolValue())
	default:
		return ""
	}
}

// withFields returns a copy of the object obj with the given fields set.
func withFields(obj ldvalue.Value, fields map[string]ldvalue.Value) ldvalue.Value {
	b := ldvalue.ObjectBuild()
	for _, k := range obj.Keys() {
		if _, replaced := fields[k]; !replaced {
			b.Set(k, obj.GetByKey(k))
		}
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.Set(k, fields[k])
	}
	return b.Build()
}

// merge overlays every field of patch onto obj.
func merge(obj, patch ldvalue.Value) ldvalue.Value {
	fields := make(map[string]ldvalue.Value)
	for _, k := range patch.Keys() {
		fields[k] = patch.GetByKey(k)
	}
	return withFields(obj, fields)
}
