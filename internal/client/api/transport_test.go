package api

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/atinyakov/phototrack-admin/internal/models"
)

// helper: generate a self-signed CA cert and key
func generateCACert(t *testing.T) (certPEM, keyPEM []byte) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	certTmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "Test CA"},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	certDER, err := x509.CreateCertificate(rand.Reader, certTmpl, certTmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("failed to create certificate: %v", err)
	}
	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	return certPEM, keyPEM
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestNewHTTPClient_Defaults(t *testing.T) {
	client, err := NewHTTPClient(TransportOptions{Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.Timeout != 5*time.Second {
		t.Errorf("timeout = %v; want 5s", client.Timeout)
	}
	tr, ok := client.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("unexpected transport %T", client.Transport)
	}
	if tr.TLSClientConfig.RootCAs != nil {
		t.Error("expected system roots when no CA file is given")
	}
}

func TestNewHTTPClient_ReadCAError(t *testing.T) {
	_, err := NewHTTPClient(TransportOptions{CAFile: "nonexistent.pem"})
	if err == nil || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected file not exist error, got %v", err)
	}
}

func TestNewHTTPClient_InvalidCA(t *testing.T) {
	caPath := writeFile(t, "ca.pem", []byte("invalid pem"))
	_, err := NewHTTPClient(TransportOptions{CAFile: caPath})
	if err == nil || !strings.Contains(err.Error(), "failed to parse CA cert") {
		t.Errorf("expected parse CA error, got %v", err)
	}
}

func TestNewHTTPClient_CertWithoutKey(t *testing.T) {
	_, err := NewHTTPClient(TransportOptions{CertFile: "client.crt"})
	if err == nil || !strings.Contains(err.Error(), "must be given together") {
		t.Errorf("expected cert/key pairing error, got %v", err)
	}
}

func TestNewHTTPClient_InvalidKeyPair(t *testing.T) {
	certPath := writeFile(t, "client.crt", []byte("bad"))
	keyPath := writeFile(t, "client.key", []byte("bad"))
	_, err := NewHTTPClient(TransportOptions{CertFile: certPath, KeyFile: keyPath})
	if err == nil || !strings.Contains(err.Error(), "failed to load client cert/key") {
		t.Errorf("expected key pair error, got %v", err)
	}
}

func TestNewHTTPClient_ValidFiles(t *testing.T) {
	certPEM, keyPEM := generateCACert(t)
	caPath := writeFile(t, "ca.pem", certPEM)
	certPath := writeFile(t, "client.crt", certPEM)
	keyPath := writeFile(t, "client.key", keyPEM)

	client, err := NewHTTPClient(TransportOptions{CAFile: caPath, CertFile: certPath, KeyFile: keyPath})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tr := client.Transport.(*http.Transport)
	if tr.TLSClientConfig.RootCAs == nil {
		t.Error("expected custom root CAs")
	}
	if len(tr.TLSClientConfig.Certificates) != 1 {
		t.Errorf("expected one client certificate, got %d", len(tr.TLSClientConfig.Certificates))
	}
}

func TestNewHTTPClient_TLSServer(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"Uuid":"u1","UserName":"usr"}]`))
	}))
	defer srv.Close()

	caPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw})
	caPath := writeFile(t, "ca.pem", caPEM)

	client, err := NewHTTPClient(TransportOptions{CAFile: caPath, Timeout: time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	users, err := New(client, srv.URL).Users.Query(context.Background(), nil)
	if err != nil {
		t.Fatalf("query over TLS failed: %v", err)
	}
	if len(users) != 1 || users[0] != (models.User{Uuid: "u1", UserName: "usr"}) {
		t.Errorf("users = %+v", users)
	}
}
