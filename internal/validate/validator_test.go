package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fileloader/internal/config"
)

func orderSource() config.SourceSpec {
	return config.SourceSpec{
		Name: "orders",
		Model: []config.FieldSpec{
			{Name: "order_id", SemanticType: config.TypeInt},
			{Name: "customer_name", SemanticType: config.TypeString, Coercions: []config.CoercionKind{config.CoerceTrim}},
			{Name: "amount", SemanticType: config.TypeDecimal},
			{Name: "notes", SemanticType: config.TypeString, Nullable: true},
		},
	}
}

func TestValidate_ValidRow(t *testing.T) {
	v := New(orderSource())
	outcome := v.Validate(map[string]interface{}{
		"order_id":      "42",
		"customer_name": "  Ann  ",
		"amount":        "19.99",
	}, 1)

	require.NotNil(t, outcome.Valid)
	require.Nil(t, outcome.Failed)
	assert.Equal(t, int64(42), outcome.Valid.Fields["order_id"])
	assert.Equal(t, "Ann", outcome.Valid.Fields["customer_name"])
	assert.Equal(t, "19.99", outcome.Valid.Fields["amount"])
	assert.Nil(t, outcome.Valid.Fields["notes"])
	assert.Len(t, outcome.Valid.ETLRowHash, 4)
}

func TestValidate_MissingRequiredField(t *testing.T) {
	v := New(orderSource())
	outcome := v.Validate(map[string]interface{}{
		"order_id": "42",
		"amount":   "19.99",
	}, 2)

	require.Nil(t, outcome.Valid)
	require.NotNil(t, outcome.Failed)
	require.Len(t, outcome.Failed.Errors, 1)
	assert.Equal(t, "customer_name", outcome.Failed.Errors[0].ColumnName)
	assert.Equal(t, "missing_required_value", outcome.Failed.Errors[0].ErrorKind)
	assert.Equal(t, 2, outcome.Failed.FileRowNumber)
}

func TestValidate_BadTypeCoercion(t *testing.T) {
	v := New(orderSource())
	outcome := v.Validate(map[string]interface{}{
		"order_id":      "not-a-number",
		"customer_name": "Bo",
		"amount":        "19.99",
	}, 3)

	require.NotNil(t, outcome.Failed)
	require.Len(t, outcome.Failed.Errors, 1)
	assert.Equal(t, "order_id", outcome.Failed.Errors[0].ColumnName)
	assert.Equal(t, "type_coercion_failed", outcome.Failed.Errors[0].ErrorKind)
}

func TestValidate_AccumulatesMultipleErrors(t *testing.T) {
	v := New(orderSource())
	outcome := v.Validate(map[string]interface{}{
		"order_id":      "not-a-number",
		"customer_name": "",
		"amount":        "nope",
	}, 4)

	require.NotNil(t, outcome.Failed)
	assert.Len(t, outcome.Failed.Errors, 3)
}

func TestRowHash_StableAndOrderIndependent(t *testing.T) {
	a := RowHash(map[string]interface{}{"order_id": int64(1), "name": "ann"})
	b := RowHash(map[string]interface{}{"name": "ann", "order_id": int64(1)})
	assert.Equal(t, a, b)
}

func TestRowHash_ChangesWithValue(t *testing.T) {
	a := RowHash(map[string]interface{}{"order_id": int64(1)})
	b := RowHash(map[string]interface{}{"order_id": int64(2)})
	assert.NotEqual(t, a, b)
}

func TestValidate_BoolCoercion(t *testing.T) {
	src := config.SourceSpec{Model: []config.FieldSpec{
		{Name: "active", SemanticType: config.TypeBool},
	}}
	v := New(src)
	outcome := v.Validate(map[string]interface{}{"active": "Yes"}, 1)
	require.NotNil(t, outcome.Valid)
	assert.Equal(t, true, outcome.Valid.Fields["active"])
}

func TestValidate_FailedRowRestrictsRecordToFailingAndGrainFields(t *testing.T) {
	src := config.SourceSpec{
		Name:  "orders",
		Grain: []string{"order_id"},
		Model: []config.FieldSpec{
			{Name: "order_id", SemanticType: config.TypeInt},
			{Name: "customer_name", SemanticType: config.TypeString},
			{Name: "amount", SemanticType: config.TypeDecimal},
		},
	}
	v := New(src)
	outcome := v.Validate(map[string]interface{}{
		"order_id":      "42",
		"customer_name": "Ann",
		"amount":        "not-a-decimal",
	}, 5)

	require.NotNil(t, outcome.Failed)
	assert.Equal(t, map[string]interface{}{
		"order_id": "42",
		"amount":   "not-a-decimal",
	}, outcome.Failed.Record)
}

func TestValidate_DateCoercion(t *testing.T) {
	src := config.SourceSpec{Model: []config.FieldSpec{
		{Name: "ship_date", SemanticType: config.TypeDate},
	}}
	v := New(src)
	outcome := v.Validate(map[string]interface{}{"ship_date": "2025-01-01"}, 1)
	require.NotNil(t, outcome.Valid)
	assert.False(t, outcome.Valid.Fields["ship_date"].(interface{ IsZero() bool }).IsZero())
}
