package fakeapi

// ReferenceEntity is a reference entity seeded into the fake backend.
type ReferenceEntity struct {
	Type string
	ID   string
	Name string
}

// DefaultReferenceEntities are the ids the feature files refer to.
var DefaultReferenceEntities = []ReferenceEntity{
	{Type: "Customer", ID: "22222222-2222-2222-2222-222222222222", Name: "CUST-001"},
	{Type: "Aircraft", ID: "33333333-3333-3333-3333-333333333333", Name: "N12345"},
	{Type: "CheckType", ID: "44444444-4444-4444-4444-444444444444", Name: "C-CHECK"},
	{Type: "Line", ID: "55555555-5555-5555-5555-555555555555", Name: "LINE-1"},
	{Type: "FleetType", ID: "66666666-6666-6666-6666-666666666666", Name: "A320"},
}
