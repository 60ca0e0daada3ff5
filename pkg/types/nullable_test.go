package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

type emailPatch struct {
	Email Nullable[string] `json:"email"`
}

func TestNullableDistinguishesAbsentNullAndValue(t *testing.T) {
	var absent emailPatch
	require.NoError(t, json.Unmarshal([]byte(`{}`), &absent))
	require.False(t, absent.Email.Set)

	var cleared emailPatch
	require.NoError(t, json.Unmarshal([]byte(`{"email":null}`), &cleared))
	require.True(t, cleared.Email.Set)
	require.Nil(t, cleared.Email.Value)

	var set emailPatch
	require.NoError(t, json.Unmarshal([]byte(`{"email":"ana@example.com"}`), &set))
	require.True(t, set.Email.Set)
	require.Equal(t, "ana@example.com", *set.Email.Value)

	var bad emailPatch
	require.Error(t, json.Unmarshal([]byte(`{"email":42}`), &bad))
}
