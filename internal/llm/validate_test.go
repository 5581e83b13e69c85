package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireViolation(t *testing.T, err error) *SchemaViolationError {
	t.Helper()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchemaViolation)
	var v *SchemaViolationError
	require.True(t, errors.As(err, &v), "got %T: %v", err, err)
	return v
}

func TestValidateGPAExample(t *testing.T) {
	raw := `{"extracted_data":[{"Key":"Undergraduate GPA","Value":"8.7","Comment":"on a 10-point scale."}]}`
	res, err := Validate([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, []Record{{Key: "Undergraduate GPA", Value: "8.7", Comment: "on a 10-point scale."}}, res.Records)
}

func TestValidateEmptyCommentIsLegal(t *testing.T) {
	raw := `{"extracted_data":[{"Key":"Birth City","Value":"Jaipur","Comment":""}]}`
	res, err := Validate([]byte(raw))
	require.NoError(t, err)
	require.Equal(t, 1, res.Len())
	assert.Equal(t, "", res.Records[0].Comment)
}

func TestValidateEmptyArray(t *testing.T) {
	res, err := Validate([]byte(`{"extracted_data":[]}`))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Len())
}

func TestValidateKeepsOrder(t *testing.T) {
	raw := `{"extracted_data":[
		{"Key":"b","Value":"2","Comment":""},
		{"Key":"a","Value":"1","Comment":""},
		{"Key":"c","Value":"3","Comment":"x"}]}`
	res, err := Validate([]byte(raw))
	require.NoError(t, err)
	keys := make([]string, 0, res.Len())
	for _, r := range res.Records {
		keys = append(keys, r.Key)
	}
	assert.Equal(t, []string{"b", "a", "c"}, keys)
}

func TestValidateAllOrNothing(t *testing.T) {
	raw := `{"extracted_data":[
		{"Key":"k0","Value":"v0","Comment":""},
		{"Key":"k1","Value":"v1","Comment":""},
		{"Key":"k2","Comment":""},
		{"Key":"k3","Value":"v3","Comment":""},
		{"Key":"k4","Value":"v4","Comment":""}]}`
	res, err := Validate([]byte(raw))
	v := requireViolation(t, err)
	assert.Equal(t, 2, v.Index)
	assert.Equal(t, "Value", v.Field)
	assert.Equal(t, ViolationMissing, v.Reason)
	assert.Nil(t, res.Records)
}

func TestValidateReportsFirstOffender(t *testing.T) {
	raw := `{"extracted_data":[
		{"Key":"k0","Value":"v0","Comment":""},
		{"Key":"","Value":"v1","Comment":""},
		{"Key":"k2","Comment":""}]}`
	v := requireViolation(t, func() error { _, err := Validate([]byte(raw)); return err }())
	assert.Equal(t, 1, v.Index)
	assert.Equal(t, "Key", v.Field)
	assert.Equal(t, ViolationEmpty, v.Reason)
}

func TestValidateViolations(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		index  int
		field  string
		reason string
	}{
		{"wrong envelope key", `{"data":[{"Key":"a","Value":"b","Comment":""}]}`, EnvelopeIndex, "data", ViolationUnknownField},
		{"extra top-level key", `{"extracted_data":[],"notes":"x"}`, EnvelopeIndex, "notes", ViolationUnknownField},
		{"missing envelope", `{}`, EnvelopeIndex, EnvelopeKey, ViolationMissing},
		{"top-level array", `[{"Key":"a","Value":"b","Comment":""}]`, EnvelopeIndex, "", ViolationNotObject},
		{"envelope not array", `{"extracted_data":{"Key":"a"}}`, EnvelopeIndex, EnvelopeKey, ViolationNotArray},
		{"element not object", `{"extracted_data":["a"]}`, 0, "", ViolationNotObject},
		{"null comment", `{"extracted_data":[{"Key":"a","Value":"b","Comment":null}]}`, 0, "Comment", ViolationNotString},
		{"numeric value", `{"extracted_data":[{"Key":"GPA","Value":8.7,"Comment":""}]}`, 0, "Value", ViolationNotString},
		{"missing comment", `{"extracted_data":[{"Key":"a","Value":"b"}]}`, 0, "Comment", ViolationMissing},
		{"blank value", `{"extracted_data":[{"Key":"a","Value":"  ","Comment":""}]}`, 0, "Value", ViolationEmpty},
		{"alternate spelling", `{"extracted_data":[{"Key":"a","Value":"b","Comment":"","Contextual_Comment":"c"}]}`, 0, "Contextual_Comment", ViolationUnknownField},
		{"lower-case field", `{"extracted_data":[{"key":"a","Value":"b","Comment":""}]}`, 0, "Key", ViolationMissing},
		{"duplicate field", `{"extracted_data":[{"Key":"a","Key":"b","Value":"v","Comment":""}]}`, 0, "Key", ViolationDuplicate},
		{"duplicate in later record", `{"extracted_data":[{"Key":"a","Value":"v","Comment":""},{"Key":"a","Value":"v","Comment":"","Comment":"x"}]}`, 1, "Comment", ViolationDuplicate},
		{"duplicate envelope", `{"extracted_data":[],"extracted_data":[]}`, EnvelopeIndex, EnvelopeKey, ViolationDuplicate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Validate([]byte(tt.raw))
			v := requireViolation(t, err)
			assert.Equal(t, tt.index, v.Index)
			assert.Equal(t, tt.field, v.Field)
			assert.Equal(t, tt.reason, v.Reason)
			assert.Nil(t, res.Records)
		})
	}
}

func TestValidateMalformed(t *testing.T) {
	for _, raw := range []string{
		"",
		"not json",
		"```json\n{\"extracted_data\":[]}\n```",
		`{"extracted_data":[`,
		"{\"extracted_data\":[{\"Key\":\"City\",\"Value\":\"Montr\xe9al\",\"Comment\":\"\"}]}",
	} {
		_, err := Validate([]byte(raw))
		require.Error(t, err, raw)
		assert.ErrorIs(t, err, ErrMalformedOutput, raw)
		assert.NotErrorIs(t, err, ErrSchemaViolation, raw)
	}
}

func TestValidateJSONAgainstSchemaLocates(t *testing.T) {
	doc := map[string]any{
		EnvelopeKey: []any{
			map[string]any{"Key": "a", "Value": "b", "Comment": ""},
			map[string]any{"Key": "a", "Value": "", "Comment": ""},
		},
	}
	v := requireViolation(t, ValidateJSONAgainstSchema(doc))
	assert.Equal(t, 1, v.Index)
	assert.Equal(t, "Value", v.Field)
	assert.Equal(t, ViolationSchema, v.Reason)
}

func TestLocate(t *testing.T) {
	idx, field := locate("/extracted_data/2/Value")
	assert.Equal(t, 2, idx)
	assert.Equal(t, "Value", field)

	idx, field = locate("/extracted_data/4")
	assert.Equal(t, 4, idx)
	assert.Equal(t, "", field)

	idx, field = locate("")
	assert.Equal(t, EnvelopeIndex, idx)
	assert.Equal(t, "", field)
}

func TestSchemaViolationErrorMessage(t *testing.T) {
	err := &SchemaViolationError{Index: 2, Field: "Value", Reason: ViolationMissing}
	assert.Equal(t, `schema violation at record 2, field "Value": missing`, err.Error())

	err = &SchemaViolationError{Index: EnvelopeIndex, Field: "data", Reason: ViolationUnknownField, Detail: "x"}
	assert.Equal(t, `schema violation at envelope, field "data": unknown_field (x)`, err.Error())
}
