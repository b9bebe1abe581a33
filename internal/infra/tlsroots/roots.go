package tlsroots

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

var (
	// ErrNoCertsFound is returned when no certificates are found in a PEM file.
	ErrNoCertsFound = errors.New("tlsroots: no certificates found in PEM file")

	// ErrEmptyChain is returned when a peer presents no certificate.
	ErrEmptyChain = errors.New("tlsroots: peer presented no certificate")
)

// Pool manages a pool of trusted root certificates.
type Pool struct {
	certPool *x509.CertPool
}

// NewPool creates a new certificate pool with system roots.
// If system roots cannot be loaded, it creates an empty pool.
func NewPool() (*Pool, error) {
	pool, err := x509.SystemCertPool()
	if err != nil {
		pool = x509.NewCertPool()
	}
	return &Pool{certPool: pool}, nil
}

// NewEmptyPool creates a new empty certificate pool without system roots.
func NewEmptyPool() *Pool {
	return &Pool{certPool: x509.NewCertPool()}
}

// LoadPool builds a pool from path, which may be a PEM file or a directory
// of PEM files. System roots are not included.
func LoadPool(path string) (*Pool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("tlsroots: stat %s: %w", path, err)
	}

	p := NewEmptyPool()
	if info.IsDir() {
		n, err := p.AddCertDir(path)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, fmt.Errorf("tlsroots: %s: %w", path, ErrNoCertsFound)
		}
		return p, nil
	}

	if err := p.AddCertFile(path); err != nil {
		return nil, err
	}
	return p, nil
}

// AddCertFile adds certificates from a PEM file.
// Multiple certificates in the same file are supported.
func (p *Pool) AddCertFile(path string) error {
	certs, err := ReadCertificates(path)
	if err != nil {
		return err
	}
	for _, cert := range certs {
		p.certPool.AddCert(cert)
	}
	return nil
}

// AddCertPEM adds certificates from PEM-encoded data.
func (p *Pool) AddCertPEM(pemData []byte) error {
	certs, err := ParseCertificates(pemData)
	if err != nil {
		return err
	}
	for _, cert := range certs {
		p.certPool.AddCert(cert)
	}
	return nil
}

// AddCert adds a certificate directly.
func (p *Pool) AddCert(cert *x509.Certificate) {
	p.certPool.AddCert(cert)
}

// AddCertDir adds all PEM files from a directory and returns how many files
// contributed at least one certificate. Files must have .pem, .crt, or .cer
// extension; unreadable files are skipped.
func (p *Pool) AddCertDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("tlsroots: read dir %s: %w", dir, err)
	}

	var loaded int
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch filepath.Ext(entry.Name()) {
		case ".pem", ".crt", ".cer":
			if err := p.AddCertFile(filepath.Join(dir, entry.Name())); err != nil {
				continue
			}
			loaded++
		}
	}

	return loaded, nil
}

// Pool returns the underlying x509.CertPool.
func (p *Pool) Pool() *x509.CertPool {
	return p.certPool
}

// VerifyChain verifies a peer chain, leaf first, against the pool.
// Remaining certificates are used as intermediates. When serverName is
// non-empty the leaf must also be valid for that name.
func (p *Pool) VerifyChain(chain []*x509.Certificate, serverName string, now time.Time) error {
	if len(chain) == 0 {
		return ErrEmptyChain
	}

	intermediates := x509.NewCertPool()
	for _, cert := range chain[1:] {
		intermediates.AddCert(cert)
	}

	opts := x509.VerifyOptions{
		Roots:         p.certPool,
		Intermediates: intermediates,
		DNSName:       serverName,
		CurrentTime:   now,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	}
	if _, err := chain[0].Verify(opts); err != nil {
		return fmt.Errorf("tlsroots: verify chain: %w", err)
	}
	return nil
}

// ReadCertificates parses every CERTIFICATE block in a PEM file.
func ReadCertificates(path string) ([]*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tlsroots: read cert file %s: %w", path, err)
	}
	certs, err := ParseCertificates(data)
	if err != nil {
		return nil, fmt.Errorf("tlsroots: %s: %w", path, err)
	}
	return certs, nil
}

// ParseCertificates parses every CERTIFICATE block in pemData.
func ParseCertificates(pemData []byte) ([]*x509.Certificate, error) {
	var certs []*x509.Certificate

	for len(pemData) > 0 {
		var block *pem.Block
		block, pemData = pem.Decode(pemData)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}

		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse certificate: %w", err)
		}
		certs = append(certs, cert)
	}

	if len(certs) == 0 {
		return nil, ErrNoCertsFound
	}
	return certs, nil
}
