// Copyright 2026 Felix Köhler
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"log/slog"
	"math/big"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/acme/autocert"

	"codeberg.org/fkoehler/go-account-service/internal/config"
)

type tlsMode string

const (
	tlsModeOff        tlsMode = "off"
	tlsModeACME       tlsMode = "acme"
	tlsModeSelfSigned tlsMode = "selfsigned"
	tlsModeManual     tlsMode = "manual"
)

// tlsSetup is the resolved listener configuration. httpHandler is only set in
// ACME mode and serves the HTTP-01 challenge plus the HTTPS redirect.
type tlsSetup struct {
	mode        tlsMode
	tlsConfig   *tls.Config
	httpHandler http.Handler
}

func setupTLS(cfg *config.Config) (*tlsSetup, error) {
	mode := resolveTLSMode(cfg)
	slog.Info("tls_mode", "mode", mode)

	switch mode {
	case tlsModeOff:
		return &tlsSetup{mode: tlsModeOff}, nil
	case tlsModeACME:
		if err := validateACME(cfg); err != nil {
			return nil, err
		}
		return setupACME(cfg)
	case tlsModeSelfSigned:
		return setupSelfSigned(cfg)
	case tlsModeManual:
		return setupManual(cfg)
	}
	return nil, fmt.Errorf("unknown TLS mode: %s", mode)
}

// resolveTLSMode applies the explicit mode when given, otherwise picks the
// strongest mode the environment supports.
func resolveTLSMode(cfg *config.Config) tlsMode {
	switch strings.ToLower(cfg.TLS.Mode) {
	case "off":
		return tlsModeOff
	case "acme":
		return tlsModeACME
	case "selfsigned":
		return tlsModeSelfSigned
	case "manual":
		return tlsModeManual
	case "auto", "":
	default:
		slog.Warn("tls_mode_unknown", "mode", cfg.TLS.Mode, "fallback", "auto")
	}

	if config.IsLocalhost(cfg.Server.Host) {
		return tlsModeOff
	}
	if cfg.TLS.CertFile != "" && cfg.TLS.KeyFile != "" {
		return tlsModeManual
	}
	if canUseACME(cfg) {
		return tlsModeACME
	}
	return tlsModeSelfSigned
}

func validateACME(cfg *config.Config) error {
	if cfg.TLS.Email == "" {
		return fmt.Errorf("ACME mode requires TLS_EMAIL to be set")
	}
	if cfg.Server.Port != 443 {
		slog.Warn("tls_port_ignored", "configured_port", cfg.Server.Port, "reason", "ACME always serves on 443")
	}
	// HTTP-01 needs port 80, the certificate endpoint needs 443.
	for _, port := range []int{80, 443} {
		if !isPortAvailable(port) {
			return fmt.Errorf("ACME mode requires port %d (port in use)", port)
		}
	}
	return nil
}

func canUseACME(cfg *config.Config) bool {
	if config.IsLocalhost(cfg.Server.Host) || cfg.TLS.Email == "" {
		return false
	}
	// Certificates are not issued for bare IP addresses.
	if net.ParseIP(cfg.Server.Host) != nil {
		return false
	}
	return isPortAvailable(80) && isPortAvailable(443)
}

func isPortAvailable(port int) bool {
	lc := &net.ListenConfig{}
	ln, err := lc.Listen(context.Background(), "tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return false
	}
	_ = ln.Close()
	return true
}

func setupACME(cfg *config.Config) (*tlsSetup, error) {
	certDir := filepath.Join(cfg.TLS.CertDir, "acme")
	if err := os.MkdirAll(certDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating ACME cert directory: %w", err)
	}

	manager := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		Email:      cfg.TLS.Email,
		Cache:      autocert.DirCache(certDir),
		HostPolicy: autocert.HostWhitelist(cfg.Server.Host),
	}

	tlsConfig := manager.TLSConfig()
	tlsConfig.MinVersion = tls.VersionTLS12

	return &tlsSetup{
		mode:        tlsModeACME,
		tlsConfig:   tlsConfig,
		httpHandler: manager.HTTPHandler(nil),
	}, nil
}

func setupSelfSigned(cfg *config.Config) (*tlsSetup, error) {
	certDir := filepath.Join(cfg.TLS.CertDir, "selfsigned")
	if err := os.MkdirAll(certDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating cert directory: %w", err)
	}

	certFile := filepath.Join(certDir, "cert.pem")
	keyFile := filepath.Join(certDir, "key.pem")

	if cert, ok := loadReusableCert(certFile, keyFile); ok {
		logCertFingerprint(cert)
		return &tlsSetup{mode: tlsModeSelfSigned, tlsConfig: staticTLSConfig(cert)}, nil
	}

	slog.Info("tls_generating_selfsigned", "host", cfg.Server.Host)
	cert, err := generateSelfSignedCert(cfg.Server.Host, certFile, keyFile)
	if err != nil {
		return nil, err
	}
	logCertFingerprint(cert)
	return &tlsSetup{mode: tlsModeSelfSigned, tlsConfig: staticTLSConfig(cert)}, nil
}

func setupManual(cfg *config.Config) (*tlsSetup, error) {
	if cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "" {
		return nil, fmt.Errorf("manual TLS mode requires both tls-cert-file and tls-key-file")
	}
	cert, err := tls.LoadX509KeyPair(cfg.TLS.CertFile, cfg.TLS.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("loading certificate: %w", err)
	}
	logCertFingerprint(&cert)
	return &tlsSetup{mode: tlsModeManual, tlsConfig: staticTLSConfig(&cert)}, nil
}

// loadReusableCert returns the cached self-signed certificate unless it is
// missing, unreadable, or within 30 days of expiry.
func loadReusableCert(certFile, keyFile string) (*tls.Certificate, bool) {
	if _, err := os.Stat(certFile); err != nil {
		return nil, false
	}
	if _, err := os.Stat(keyFile); err != nil {
		return nil, false
	}
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		slog.Warn("tls_cert_unreadable", "error", err)
		return nil, false
	}
	if len(cert.Certificate) == 0 {
		return nil, false
	}
	parsed, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil || time.Until(parsed.NotAfter) < 30*24*time.Hour {
		return nil, false
	}
	return &cert, true
}

func generateSelfSignedCert(host, certFile, keyFile string) (*tls.Certificate, error) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating TLS key: %w", err)
	}
	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("generating serial number: %w", err)
	}

	now := time.Now()
	template := x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			Organization: []string{"Self-Signed"},
			CommonName:   host,
		},
		NotBefore:             now,
		NotAfter:              now.Add(365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}
	if ip := net.ParseIP(host); ip != nil {
		template.IPAddresses = []net.IP{ip}
	} else {
		template.DNSNames = []string{host}
	}
	template.DNSNames = append(template.DNSNames, "localhost")
	template.IPAddresses = append(template.IPAddresses, net.ParseIP("127.0.0.1"), net.ParseIP("::1"))

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &privateKey.PublicKey, privateKey)
	if err != nil {
		return nil, fmt.Errorf("creating certificate: %w", err)
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	if err := os.WriteFile(certFile, certPEM, 0o600); err != nil {
		return nil, fmt.Errorf("writing cert file: %w", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("marshaling TLS key: %w", err)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
	if err := os.WriteFile(keyFile, keyPEM, 0o600); err != nil {
		return nil, fmt.Errorf("writing key file: %w", err)
	}

	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("loading generated cert: %w", err)
	}
	return &cert, nil
}

func logCertFingerprint(cert *tls.Certificate) {
	if len(cert.Certificate) == 0 {
		return
	}
	fingerprint := sha256.Sum256(cert.Certificate[0])
	hexParts := make([]string, len(fingerprint))
	for i, b := range fingerprint {
		hexParts[i] = fmt.Sprintf("%02X", b)
	}
	slog.Info("tls_cert_fingerprint", "sha256", strings.Join(hexParts, ":"))
}

func staticTLSConfig(cert *tls.Certificate) *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{*cert},
		MinVersion:   tls.VersionTLS12,
	}
}
