package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeReasonPrefersError(t *testing.T) {
	assert.Equal(t, "boom", Envelope[int]{Error: "boom", Message: "msg"}.Reason())
	assert.Equal(t, "msg", Envelope[int]{Message: "msg"}.Reason())
	assert.Equal(t, "", Envelope[int]{}.Reason())
}

func TestEnvelopeNullData(t *testing.T) {
	var env Envelope[map[string]any]
	require.NoError(t, json.Unmarshal([]byte(`{"success":true,"data":null}`), &env))
	assert.True(t, env.Success)
	assert.Nil(t, env.Data)
}

func TestIsKindThroughWrapping(t *testing.T) {
	base := E(StateConflict, "caja.close", "No hay caja abierta", nil)
	wrapped := fmt.Errorf("cli: %w", base)

	assert.True(t, IsKind(wrapped, StateConflict))
	assert.False(t, IsKind(wrapped, Backend))
	assert.Equal(t, StateConflict, KindOf(wrapped))
	assert.Equal(t, Kind(0), KindOf(errors.New("plain")))
}

func TestUserMessageNeverLeaksRawErrors(t *testing.T) {
	assert.Equal(t, "Credenciales inválidas", UserMessage(E(Authentication, "login", "Credenciales inválidas", nil)))
	assert.Equal(t, genericMessage, UserMessage(errors.New("dial tcp: connection refused")))
	assert.Equal(t, "", UserMessage(nil))
}
