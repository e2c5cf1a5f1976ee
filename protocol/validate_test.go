package protocol_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foundry9/robonav/protocol"
)

func TestValidateUsernameRejectsReservedLiterals(t *testing.T) {
	t.Parallel()
	_, err := protocol.ValidateUsername([]byte("RECHARGING"))
	require.Error(t, err)

	_, err = protocol.ValidateUsername([]byte("FULL POWER"))
	require.Error(t, err)

	name, err := protocol.ValidateUsername([]byte("Oompa Loompa"))
	require.NoError(t, err)
	assert.Equal(t, "Oompa Loompa", name)
}

func TestValidateKeyIDOutOfRange(t *testing.T) {
	t.Parallel()
	_, err := protocol.ValidateKeyID([]byte("-1"), 5)
	var oor *protocol.KeyOutOfRangeError
	require.ErrorAs(t, err, &oor)

	_, err = protocol.ValidateKeyID([]byte("99"), 5)
	require.ErrorAs(t, err, &oor)

	n, err := protocol.ValidateKeyID([]byte("0"), 5)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestValidateKeyIDSyntaxError(t *testing.T) {
	t.Parallel()
	_, err := protocol.ValidateKeyID([]byte("abc"), 5)
	var oor *protocol.KeyOutOfRangeError
	require.Error(t, err)
	require.False(t, errors.As(err, &oor))
}

func TestValidateOK(t *testing.T) {
	t.Parallel()
	p, err := protocol.ValidateOK([]byte("OK 3 5"))
	require.NoError(t, err)
	assert.Equal(t, protocol.Point{X: 3, Y: 5}, p)

	p, err = protocol.ValidateOK([]byte("OK -3 -5"))
	require.NoError(t, err)
	assert.Equal(t, protocol.Point{X: -3, Y: -5}, p)

	_, err = protocol.ValidateOK([]byte("OK 3"))
	require.Error(t, err)

	_, err = protocol.ValidateOK([]byte("NOPE 3 5"))
	require.Error(t, err)
}

func TestValidateSecretRejectsReservedAndEmpty(t *testing.T) {
	t.Parallel()
	_, err := protocol.ValidateSecret([]byte(""))
	require.Error(t, err)

	_, err = protocol.ValidateSecret([]byte("RECHARGING"))
	require.Error(t, err)

	s, err := protocol.ValidateSecret([]byte("the secret"))
	require.NoError(t, err)
	assert.Equal(t, "the secret", s)
}

func TestIsRechargingAndFullPower(t *testing.T) {
	t.Parallel()
	assert.True(t, protocol.IsRecharging([]byte("RECHARGING")))
	assert.False(t, protocol.IsRecharging([]byte("FULL POWER")))
	assert.True(t, protocol.IsFullPower([]byte("FULL POWER")))
}
