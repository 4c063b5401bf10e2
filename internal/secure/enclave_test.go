package secure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealAndUse(t *testing.T) {
	enclave := SealString("wJalrXUtnFEMI/K7MDENG/bPxRfiCYEXAMPLEKEY")

	var seen string
	err := enclave.Use(func(secret []byte) error {
		seen = string(secret)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "wJalrXUtnFEMI/K7MDENG/bPxRfiCYEXAMPLEKEY", seen)
}

func TestSealWipesSource(t *testing.T) {
	data := []byte("super-secret")
	Seal(data)

	// memguard wipes the source buffer on seal.
	for _, b := range data {
		assert.Zero(t, b)
	}
}

func TestUseMayBeCalledRepeatedly(t *testing.T) {
	enclave := SealString("twice")

	for i := 0; i < 2; i++ {
		err := enclave.Use(func(secret []byte) error {
			assert.Equal(t, "twice", string(secret))
			return nil
		})
		require.NoError(t, err)
	}
}
