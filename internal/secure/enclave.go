// Package secure keeps the new secret access key encrypted in process
// memory between the moment the identity service returns it and the moment
// it is written to the credentials file. The service never surfaces the
// secret again, so this is the only copy in existence during that window.
package secure

import (
	"github.com/awnumar/memguard"
)

// Enclave holds a secret encrypted at rest in memory. The plaintext is
// mlocked and wiped by memguard when opened buffers are destroyed.
type Enclave struct {
	inner *memguard.Enclave
}

// Seal copies the secret into an encrypted enclave and wipes the input
// slice. The caller must not reuse data afterwards.
func Seal(data []byte) *Enclave {
	// memguard.NewEnclave wipes the source buffer itself.
	return &Enclave{inner: memguard.NewEnclave(data)}
}

// SealString seals a secret delivered as a string. The original string
// cannot be wiped (Go strings are immutable); callers should drop all
// references to it immediately.
func SealString(s string) *Enclave {
	return Seal([]byte(s))
}

// Use decrypts the secret, passes it to fn, and wipes the plaintext before
// returning. fn must not retain the slice.
func (e *Enclave) Use(fn func(secret []byte) error) error {
	buf, err := e.inner.Open()
	if err != nil {
		return err
	}
	defer buf.Destroy()
	return fn(buf.Bytes())
}

// Purge wipes all memguard-managed memory. Call once via defer in main.
func Purge() {
	memguard.Purge()
}
