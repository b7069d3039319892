package server

import (
	"crypto/tls"
	"fmt"

	"go.uber.org/zap"

	"github.com/muurk/sccpd/internal/logging"
)

// phoneCipherSuites lists what SCCP firmware negotiates on the secure port.
// Older phones only offer the RSA key exchange CBC suites.
var phoneCipherSuites = []uint16{
	tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA,
	tls.TLS_RSA_WITH_AES_128_CBC_SHA256,
	tls.TLS_RSA_WITH_AES_128_CBC_SHA,
	tls.TLS_RSA_WITH_AES_256_CBC_SHA,
}

// NewTLSConfig creates the secure listener configuration from a PEM
// certificate and key on disk.
func NewTLSConfig(certPath, keyPath string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS certificate: %w", err)
	}

	logging.Info("TLS configuration created from files",
		zap.String("cert", certPath),
		zap.String("key", keyPath),
	)

	return buildPhoneTLSConfig(cert), nil
}

func buildPhoneTLSConfig(cert tls.Certificate) *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{cert},

		// The GCM suites need TLS 1.2 and the phones never speak 1.3.
		MinVersion: tls.VersionTLS12,
		MaxVersion: tls.VersionTLS12,

		CipherSuites: phoneCipherSuites,

		VerifyConnection: func(cs tls.ConnectionState) error {
			logging.Debug("TLS handshake complete",
				zap.String("version", tls.VersionName(cs.Version)),
				zap.String("cipher_suite", tls.CipherSuiteName(cs.CipherSuite)),
			)
			return nil
		},
	}
}

// GetTLSInfo returns human-readable TLS configuration information
func GetTLSInfo(config *tls.Config) map[string]interface{} {
	names := make([]string, len(config.CipherSuites))
	for i, id := range config.CipherSuites {
		names[i] = tls.CipherSuiteName(id)
	}

	return map[string]interface{}{
		"min_version":   tls.VersionName(config.MinVersion),
		"max_version":   tls.VersionName(config.MaxVersion),
		"cipher_suites": names,
		"num_certs":     len(config.Certificates),
	}
}
