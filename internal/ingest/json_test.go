package ingest

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/MeKo-Tech/docflow/internal/status"
	"github.com/MeKo-Tech/docflow/internal/tables"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSONInput(t *testing.T) {
	in, err := ParseJSONInput([]byte(`{
		"document_class": "unemployment_form",
		"context": "arizona",
		"case_id": null,
		"name": "Jane",
		"age": 42,
		"middle_name": null
	}`))
	require.NoError(t, err)
	assert.Equal(t, "unemployment_form", in.DocumentClass)
	assert.Equal(t, "arizona", in.Context)
	assert.Empty(t, in.CaseID)
	assert.Len(t, in.Fields, 3)

	ents := in.Entities()
	require.Len(t, ents, 3)
	assert.Equal(t, "age", ents[0].Entity)
	require.NotNil(t, ents[0].Value)
	assert.Equal(t, "42", *ents[0].Value)
	assert.Equal(t, "middle_name", ents[1].Entity)
	assert.Nil(t, ents[1].Value)
	assert.Equal(t, "Jane", *ents[2].Value)
	for _, e := range ents {
		require.NotNil(t, e.ExtractionConfidence)
		assert.Equal(t, 1.0, *e.ExtractionConfidence)
		assert.Nil(t, e.CorrectedValue)
	}
}

func TestParseJSONInput_Invalid(t *testing.T) {
	for _, body := range []string{
		``,
		`null`,
		`[1,2]`,
		`{"context": "arizona"}`,
		`{"document_class": "x"}`,
		`{"document_class": 5, "context": "arizona"}`,
	} {
		_, err := ParseJSONInput([]byte(body))
		assert.ErrorIs(t, err, status.ErrInvalid, body)
	}
}

func TestUploadJSON(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in, err := ParseJSONInput([]byte(`{"document_class":"claim_form","context":"arizona","case_id":"case-9","amount":"12.50"}`))
	require.NoError(t, err)

	res, err := f.svc.UploadJSON(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, status.StatusSuccess, res.Status)
	assert.Equal(t, "case-9", res.CaseID)
	assert.Equal(t, map[string]any{"amount": "12.50"}, res.InputData)

	doc, err := f.docs.Get(ctx, res.UID)
	require.NoError(t, err)
	assert.Equal(t, "claim_form", doc.DocumentClass)
	require.Len(t, doc.Entities, 1)
	assert.Equal(t, "amount", doc.Entities[0].Entity)

	r, err := f.store.Open(ctx, testBucket, "case-9/"+res.UID+"/input_data_case-9_"+res.UID+".json")
	require.NoError(t, err)
	defer func() { _ = r.Close() }()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	var stored []tables.EntityRecord
	require.NoError(t, json.Unmarshal(data, &stored))
	require.Len(t, stored, 1)
	assert.Equal(t, "12.50", *stored[0].Value)
}

func TestUploadJSON_GeneratesCaseID(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.UploadJSON(context.Background(), &JSONInput{DocumentClass: "claim_form", Context: "arizona"})
	require.NoError(t, err)
	assert.Len(t, res.CaseID, 36)
}
