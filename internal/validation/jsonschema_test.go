package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/txlens/pkg/schema"
)

func newValidator(t *testing.T) *DocumentValidator {
	t.Helper()
	v, err := NewDocumentValidator()
	require.NoError(t, err)
	return v
}

func TestValidate_ValidDocument(t *testing.T) {
	v := newValidator(t)

	doc, err := v.Validate([]byte(`{
		"tx_hash": "abc123",
		"operations": [
			{"id": "op1", "type": "payment", "from": "A", "to": "B",
			 "assets": [{"code": "USDC", "issuer": "G1"}]},
			{"id": "op2", "type": "create_account", "account": "C",
			 "position": {"x": 100, "y": 200}}
		],
		"trace": ["GABC invoked contract CXYZ swap(1)"]
	}`))
	require.NoError(t, err)

	assert.Equal(t, "abc123", doc.TxHash)
	require.Len(t, doc.Operations, 2)
	assert.Equal(t, "payment", doc.Operations[0].Type)
	assert.Equal(t, 100.0, doc.Operations[1].Position.X)
	assert.Len(t, doc.Trace, 1)
}

func TestValidate_MissingOperations(t *testing.T) {
	v := newValidator(t)

	_, err := v.Validate([]byte(`{"tx_hash": "abc"}`))
	require.Error(t, err)

	terr, ok := err.(*schema.TxlensError)
	require.True(t, ok)
	assert.Equal(t, schema.ErrCodeValidation, terr.Code)
}

func TestValidate_OperationMissingRequiredFields(t *testing.T) {
	v := newValidator(t)

	_, err := v.Validate([]byte(`{"operations": [{"id": "op1"}]}`))
	require.Error(t, err)
}

func TestValidate_UnknownFieldRejected(t *testing.T) {
	v := newValidator(t)

	_, err := v.Validate([]byte(`{"operations": [], "bogus": true}`))
	require.Error(t, err)
}

func TestValidate_DuplicateOperationIDs(t *testing.T) {
	v := newValidator(t)

	_, err := v.Validate([]byte(`{
		"operations": [
			{"id": "op1", "type": "payment"},
			{"id": "op1", "type": "payment"}
		]
	}`))
	require.Error(t, err)

	terr, ok := err.(*schema.TxlensError)
	require.True(t, ok)
	assert.Equal(t, schema.ErrCodeValidation, terr.Code)
	assert.Contains(t, terr.Message, "duplicate")
}

func TestValidate_NotJSON(t *testing.T) {
	v := newValidator(t)

	_, err := v.Validate([]byte(`{not json`))
	require.Error(t, err)

	terr, ok := err.(*schema.TxlensError)
	require.True(t, ok)
	assert.Equal(t, schema.ErrCodeValidation, terr.Code)
}

func TestValidate_ViolationsCollected(t *testing.T) {
	v := newValidator(t)

	_, err := v.Validate([]byte(`{
		"operations": [
			{"id": "", "type": ""}
		]
	}`))
	require.Error(t, err)

	terr, ok := err.(*schema.TxlensError)
	require.True(t, ok)
	assert.NotEmpty(t, terr.Details["violations"])
}
