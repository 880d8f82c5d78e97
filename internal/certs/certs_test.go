package certs

import (
	"crypto/tls"
	"crypto/x509"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leaf(t *testing.T, cert tls.Certificate) *x509.Certificate {
	t.Helper()
	require.NotEmpty(t, cert.Certificate)
	parsed, err := x509.ParseCertificate(cert.Certificate[0])
	require.NoError(t, err)
	return parsed
}

func TestStore_GeneratesCertificate(t *testing.T) {
	store := NewStore(t.TempDir()+"/certs", "ledger.lan", "192.168.1.20")

	cert, err := store.Certificate()
	require.NoError(t, err)

	l := leaf(t, cert)
	for _, host := range []string{"localhost", "127.0.0.1", "::1", "ledger.lan", "192.168.1.20"} {
		assert.NoError(t, l.VerifyHostname(host), host)
	}
	assert.Equal(t, []string{"Spice Ledger"}, l.Subject.Organization)

	certFile, keyFile := store.Paths()
	info, err := os.Stat(keyFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	_, err = os.Stat(certFile)
	assert.NoError(t, err)
}

func TestStore_ReusesValidCertificate(t *testing.T) {
	dir := t.TempDir()
	first, err := NewStore(dir).Certificate()
	require.NoError(t, err)

	second, err := NewStore(dir).Certificate()
	require.NoError(t, err)
	assert.Equal(t, leaf(t, first).SerialNumber, leaf(t, second).SerialNumber)
}

func TestStore_RegeneratesForNewHost(t *testing.T) {
	dir := t.TempDir()
	first, err := NewStore(dir).Certificate()
	require.NoError(t, err)

	second, err := NewStore(dir, "ledger.lan").Certificate()
	require.NoError(t, err)
	assert.NotEqual(t, leaf(t, first).SerialNumber, leaf(t, second).SerialNumber)
	assert.NoError(t, leaf(t, second).VerifyHostname("ledger.lan"))
}

func TestStore_RenewsNearExpiry(t *testing.T) {
	dir := t.TempDir()
	first, err := NewStore(dir).Certificate()
	require.NoError(t, err)

	later := NewStore(dir)
	later.now = func() time.Time { return time.Now().Add(Validity - 24*time.Hour) }
	second, err := later.Certificate()
	require.NoError(t, err)
	assert.NotEqual(t, leaf(t, first).SerialNumber, leaf(t, second).SerialNumber)
}

func TestStore_ReplacesCorruptFiles(t *testing.T) {
	store := NewStore(t.TempDir())
	certFile, keyFile := store.Paths()
	require.NoError(t, os.WriteFile(certFile, []byte("not a cert"), 0600))
	require.NoError(t, os.WriteFile(keyFile, []byte("not a key"), 0600))

	cert, err := store.Certificate()
	require.NoError(t, err)
	assert.NoError(t, leaf(t, cert).VerifyHostname("localhost"))
}

func TestStore_TLSConfig(t *testing.T) {
	cfg, err := NewStore(t.TempDir()).TLSConfig()
	require.NoError(t, err)
	assert.Len(t, cfg.Certificates, 1)
	assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)
}
