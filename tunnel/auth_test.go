package tunnel

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/ssh"

	ncerr "trickvs/internal/errors"
	"trickvs/util"
)

// TestBuildAuthMethods_ExplicitKey verifies that a key file is loaded.
func TestBuildAuthMethods_ExplicitKey(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "id_test")
	writeTestKey(t, keyPath)

	methods, err := BuildAuthMethods(&SSHConfig{KeyPath: keyPath})
	if err != nil {
		t.Fatalf("BuildAuthMethods: %v", err)
	}
	if len(methods) != 1 {
		t.Fatalf("expected 1 auth method, got %d", len(methods))
	}
}

func TestBuildAuthMethods_MissingKey(t *testing.T) {
	t.Setenv("SSH_AUTH_SOCK", "")

	_, err := BuildAuthMethods(&SSHConfig{KeyPath: "/nonexistent/key"})
	if err == nil {
		t.Fatal("expected error for missing key")
	}
}

func TestBuildAuthMethods_NoMethods(t *testing.T) {
	t.Setenv("SSH_AUTH_SOCK", "")
	t.Setenv("HOME", t.TempDir())

	_, err := BuildAuthMethods(&SSHConfig{})
	if !errors.Is(err, ncerr.ErrAuthFailed) {
		t.Fatalf("expected ErrAuthFailed, got %v", err)
	}
}

func TestBuildAuthMethods_AgentWithoutSocket(t *testing.T) {
	t.Setenv("SSH_AUTH_SOCK", "")

	if _, err := BuildAuthMethods(&SSHConfig{UseAgent: true}); err == nil {
		t.Fatal("expected error when SSH_AUTH_SOCK is unset")
	}
}

// TestDiscoverKeys_HomeKey verifies the ~/.ssh fallback, which skips
// keys that would need a passphrase.
func TestDiscoverKeys_HomeKey(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("SSH_AUTH_SOCK", "")
	if err := os.MkdirAll(filepath.Join(home, ".ssh"), 0o700); err != nil {
		t.Fatal(err)
	}
	writeTestKey(t, filepath.Join(home, ".ssh", "id_ed25519"))
	writeEncryptedTestKey(t, filepath.Join(home, ".ssh", "id_ecdsa"))

	keys := discoverKeys()
	if got := len(keys.static); got != 1 {
		t.Fatalf("expected 1 discovered key, got %d", got)
	}
	signers, err := keys.signers()
	if err != nil || len(signers) != 1 {
		t.Fatalf("signers() = %d, %v", len(signers), err)
	}
}

// TestBuildAuthMethods_KeyAndPassword verifies that the password is a
// separate method after the keys and is not prompted for up front.
func TestBuildAuthMethods_KeyAndPassword(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "id_test")
	writeTestKey(t, keyPath)

	methods, err := BuildAuthMethods(&SSHConfig{KeyPath: keyPath, PromptPass: true})
	if err != nil {
		t.Fatalf("BuildAuthMethods: %v", err)
	}
	if len(methods) != 2 {
		t.Fatalf("expected 2 auth methods, got %d", len(methods))
	}
}

func TestLoadKey_EncryptedNonInteractive(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "id_test")
	writeEncryptedTestKey(t, keyPath)

	_, err := loadKey(keyPath, false)
	var missing *ssh.PassphraseMissingError
	if !errors.As(err, &missing) {
		t.Fatalf("expected PassphraseMissingError, got %v", err)
	}
}

// TestHostKeyCallback_Insecure verifies that InsecureIgnoreHostKey is used
// when StrictHostKey is false.
func TestHostKeyCallback_Insecure(t *testing.T) {
	cb, err := hostKeyCallback(&SSHConfig{StrictHostKey: false})
	if err != nil {
		t.Fatal(err)
	}
	if cb == nil {
		t.Fatal("callback should not be nil")
	}
}

func TestHostKeyCallback_Strict(t *testing.T) {
	kh := filepath.Join(t.TempDir(), "known_hosts")
	if err := os.WriteFile(kh, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	cb, err := hostKeyCallback(&SSHConfig{StrictHostKey: true, KnownHosts: kh})
	if err != nil {
		t.Fatal(err)
	}
	if cb == nil {
		t.Fatal("callback should not be nil")
	}
}

func TestHostKeyCallback_StrictMissingFile(t *testing.T) {
	cfg := &SSHConfig{StrictHostKey: true, KnownHosts: "/nonexistent/known_hosts"}
	if _, err := hostKeyCallback(cfg); err == nil {
		t.Fatal("expected error for missing known_hosts")
	}
}

func TestSSHTunnel_DialBeforeConnect(t *testing.T) {
	tun := NewSSHTunnel(&SSHConfig{Host: "gateway"}, util.NewLogger(0))

	if tun.IsAlive() {
		t.Fatal("tunnel should not be alive before Connect")
	}
	_, err := tun.Dial(context.Background(), "tcp", "sim:7000")
	if !errors.Is(err, ncerr.ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if err := tun.Close(); err != nil {
		t.Fatalf("Close on idle tunnel: %v", err)
	}
}

func TestSSHConfig_Defaults(t *testing.T) {
	cfg := &SSHConfig{Host: "gateway"}
	NewSSHTunnel(cfg, util.NewLogger(0))

	if cfg.Port != 22 {
		t.Errorf("Port = %d, want 22", cfg.Port)
	}
	if cfg.ConnTimeout == 0 {
		t.Error("ConnTimeout should default to non-zero")
	}
	if cfg.KeepAlive <= 0 {
		t.Errorf("KeepAlive = %v, want a positive default", cfg.KeepAlive)
	}
	if got := cfg.Addr(); got != "gateway:22" {
		t.Errorf("Addr() = %q", got)
	}
}

// ── helpers ──────────────────────────────────────────────────────────

// writeTestKey writes a freshly generated, unencrypted ed25519 key in
// OpenSSH PEM format.
func writeTestKey(t *testing.T, path string) {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	block, err := ssh.MarshalPrivateKey(priv, "")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0o600); err != nil {
		t.Fatal(err)
	}
}

// writeEncryptedTestKey writes an ed25519 key protected by a passphrase.
func writeEncryptedTestKey(t *testing.T, path string) {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	block, err := ssh.MarshalPrivateKeyWithPassphrase(priv, "", []byte("sim"))
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0o600); err != nil {
		t.Fatal(err)
	}
}
