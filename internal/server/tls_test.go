package server

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/sccpd/internal/protocol"
)

func selfSignedPEM(t *testing.T) (certPEM, keyPEM []byte) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "sccpd.test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:     []string{"sccpd.test"},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	return certPEM, keyPEM
}

func newTLSConfigFromMemory(certPEM, keyPEM []byte) (*tls.Config, error) {
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, err
	}
	return buildPhoneTLSConfig(cert), nil
}

func TestTLSInfo(t *testing.T) {
	certPEM, keyPEM := selfSignedPEM(t)
	cfg, err := newTLSConfigFromMemory(certPEM, keyPEM)
	require.NoError(t, err)

	info := GetTLSInfo(cfg)
	assert.Equal(t, "TLS 1.2", info["min_version"])
	assert.Equal(t, "TLS 1.2", info["max_version"])
	assert.Equal(t, 1, info["num_certs"])
	assert.Contains(t, info["cipher_suites"], "TLS_RSA_WITH_AES_128_CBC_SHA")
}

func TestTLSConfigFromFiles(t *testing.T) {
	certPEM, keyPEM := selfSignedPEM(t)
	dir := t.TempDir()
	certPath := filepath.Join(dir, "cert.pem")
	keyPath := filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(certPath, certPEM, 0o600))
	require.NoError(t, os.WriteFile(keyPath, keyPEM, 0o600))

	cfg, err := NewTLSConfig(certPath, keyPath)
	require.NoError(t, err)
	assert.Len(t, cfg.Certificates, 1)

	_, err = NewTLSConfig(filepath.Join(dir, "missing.pem"), keyPath)
	assert.Error(t, err)
}

func TestTLSConfigRejectsGarbage(t *testing.T) {
	_, err := newTLSConfigFromMemory([]byte("not a cert"), []byte("not a key"))
	assert.Error(t, err)
}

func TestRegistrationOverTLS(t *testing.T) {
	certPEM, keyPEM := selfSignedPEM(t)
	cfg, err := newTLSConfigFromMemory(certPEM, keyPEM)
	require.NoError(t, err)

	h := newHarness(t, testConfig)
	serverEnd, clientEnd := net.Pipe()
	sess := h.srv.ServeConn(tls.Server(withAddr(serverEnd, "192.168.1.50:51000"), cfg))
	require.NotNil(t, sess)

	client := tls.Client(clientEnd, &tls.Config{
		InsecureSkipVerify: true,
		MaxVersion:         tls.VersionTLS12,
	})
	p := newPhone(t, client)
	p.send(registerMsg("SEP000000000001", 17))

	ack, _ := expect[*protocol.RegisterAck](t, p)
	assert.Equal(t, uint8(17), ack.ProtocolVersion)
	assert.Equal(t, uint16(tls.VersionTLS12), client.ConnectionState().Version)
	assert.Equal(t, "192.168.1.50", sess.RemoteAddr().Addr().String())
}

func TestTLSRefusesOldVersions(t *testing.T) {
	certPEM, keyPEM := selfSignedPEM(t)
	cfg, err := newTLSConfigFromMemory(certPEM, keyPEM)
	require.NoError(t, err)

	serverEnd, clientEnd := net.Pipe()
	server := tls.Server(serverEnd, cfg)
	done := make(chan error, 1)
	go func() {
		done <- server.Handshake()
		_ = server.Close()
	}()

	client := tls.Client(clientEnd, &tls.Config{
		InsecureSkipVerify: true,
		MinVersion:         tls.VersionTLS10,
		MaxVersion:         tls.VersionTLS11,
	})
	assert.Error(t, client.Handshake())
	_ = client.Close()
	assert.Error(t, <-done)
}
