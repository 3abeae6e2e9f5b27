package meta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nonibytes/crmquery/crmquery/codec"
)

func names(ds []Descriptor) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.Name
	}
	return out
}

func schemaOf(entity string, fieldNames ...string) *Schema {
	s := &Schema{Entity: entity}
	for _, n := range fieldNames {
		s.Fields = append(s.Fields, Descriptor{Name: n})
	}
	return s
}

func TestMergeUnion(t *testing.T) {
	a := schemaOf("Candidate", "id", "name")
	b := schemaOf("Candidate", "name", "email")
	b.Fields[0].Label = "Full Name"

	m := a.Merge(b)
	assert.Equal(t, []string{"id", "name", "email"}, m.Names())
	d, ok := m.Field("name")
	require.True(t, ok)
	assert.Equal(t, "Full Name", d.Label)

	// inputs untouched
	assert.Equal(t, []string{"id", "name"}, a.Names())
	assert.Empty(t, a.Fields[1].Label)
}

func TestMergeIdempotent(t *testing.T) {
	a := schemaOf("Candidate", "id", "name")
	once := a.Merge(a)
	assert.Equal(t, a.Fields, once.Fields)
	assert.Equal(t, once, once.Merge(a))
}

func TestMergeNil(t *testing.T) {
	var empty *Schema
	m := empty.Merge(schemaOf("JobOrder", "id"))
	assert.Equal(t, []string{"id"}, m.Names())
	assert.Nil(t, empty.Merge(nil))
	assert.Equal(t, []string{"id"}, m.Merge(nil).Names())
}

func TestMergeAssociatedEntity(t *testing.T) {
	a := &Schema{Fields: []Descriptor{
		{Name: "owner", AssociatedEntity: schemaOf("CorporateUser", "id")},
	}}
	b := &Schema{Fields: []Descriptor{
		{Name: "owner", Type: "TO_ONE", AssociatedEntity: schemaOf("CorporateUser", "firstName")},
	}}
	m := a.Merge(b)
	owner, ok := m.Field("owner")
	require.True(t, ok)
	assert.Equal(t, "TO_ONE", owner.Type)
	assert.Equal(t, []string{"id", "firstName"}, owner.AssociatedEntity.Names())

	// a response without the association keeps what is known
	m = m.Merge(&Schema{Fields: []Descriptor{{Name: "owner"}}})
	owner, _ = m.Field("owner")
	assert.Equal(t, []string{"id", "firstName"}, owner.AssociatedEntity.Names())
}

func TestExtract(t *testing.T) {
	s := schemaOf("Placement", "status", "id", "candidate", "payRate")
	got := s.Extract([]string{"status", "candidate(id,name)", "unknown", "id", "payRate.value", "status[2]"})
	assert.Equal(t, []string{"id", "status", "candidate", "payRate", "status"}, names(got))

	var empty *Schema
	assert.Empty(t, empty.Extract([]string{"id"}))
}

func TestCleanName(t *testing.T) {
	for in, want := range map[string]string{
		"owner.id":       "owner",
		"sectors[3]":     "sectors",
		"owner(id,name)": "owner",
		"name":           "name",
		"a.b[1](c)":      "a",
	} {
		assert.Equal(t, want, cleanName(in), in)
	}
}

func placementMeta(withJobOrder bool) *Schema {
	placement := &Schema{Entity: "Placement", Fields: []Descriptor{
		{Name: "id"},
		{Name: "candidate", AssociatedEntity: schemaOf("Candidate", "id", "name")},
	}}
	if withJobOrder {
		placement.Fields = append(placement.Fields, Descriptor{Name: "jobOrder", AssociatedEntity: schemaOf("JobOrder", "id", "title")})
	}
	return &Schema{Fields: []Descriptor{{Name: "placement", AssociatedEntity: placement}}}
}

func TestResidual(t *testing.T) {
	const spec = "placement(id,payRate,candidate(id,name,address),jobOrder(id,status,title))"
	assert.Equal(t, spec, Residual(nil, spec))
	assert.Equal(t, "placement(payRate,candidate(address),jobOrder(status))", Residual(placementMeta(true), spec))
	assert.Equal(t, "placement(payRate,candidate(address),jobOrder(id,status,title))", Residual(placementMeta(false), spec))
	assert.Equal(t, "", Residual(placementMeta(true), "placement(id,candidate(name))"))
}

func TestLookupPlainField(t *testing.T) {
	s := schemaOf("Candidate", "id")
	sub, ok := s.Lookup("id")
	assert.True(t, ok)
	assert.Nil(t, sub)
	_, ok = s.Lookup("name")
	assert.False(t, ok)
}

func TestResponseDecoding(t *testing.T) {
	body := []byte(`{"entity":"Candidate","label":"Candidate","dateLastModified":"1426709667357",
		"fields":[{"name":"id","type":"ID","dataType":"Integer"},
		{"name":"owner","type":"TO_ONE","associatedEntity":{"entity":"CorporateUser","fields":[{"name":"id"}]}}]}`)
	var s Schema
	require.NoError(t, codec.GoJSON{}.Unmarshal(body, &s))
	assert.Equal(t, Timestamp(1426709667357), s.DateLastModified)
	assert.Equal(t, []string{"id", "owner"}, s.Names())
	owner, _ := s.Field("owner")
	require.NotNil(t, owner.AssociatedEntity)
	assert.Equal(t, "CorporateUser", owner.AssociatedEntity.Entity)

	var n Schema
	require.NoError(t, codec.GoJSON{}.Unmarshal([]byte(`{"dateLastModified":1426709667357,"fields":[]}`), &n))
	assert.Equal(t, Timestamp(1426709667357), n.DateLastModified)
}
