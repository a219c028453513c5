package tunnel

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
	"golang.org/x/term"

	ncerr "trickvs/internal/errors"
)

// BuildAuthMethods turns the gateway flags into client auth methods.
//
// All keys (the --ssh-key file, the agent, discovered ~/.ssh keys) are
// offered through one publickey method, since the client tries each
// method name once. A password, when requested, is asked for only if
// the gateway rejects the keys.
func BuildAuthMethods(cfg *SSHConfig) ([]ssh.AuthMethod, error) {
	var keys signerSet

	if cfg.KeyPath != "" {
		s, err := loadKey(cfg.KeyPath, true)
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", cfg.KeyPath, err)
		}
		keys.static = append(keys.static, s)
	}
	if cfg.UseAgent {
		a, err := dialAgent()
		if err != nil {
			return nil, fmt.Errorf("ssh-agent: %w", err)
		}
		keys.agents = append(keys.agents, a)
	}
	if keys.empty() && !cfg.PromptPass {
		keys = discoverKeys()
	}

	var methods []ssh.AuthMethod
	if !keys.empty() {
		methods = append(methods, ssh.PublicKeysCallback(keys.signers))
	}
	if cfg.PromptPass {
		methods = append(methods, ssh.PasswordCallback(func() (string, error) {
			pass, err := promptSecret(fmt.Sprintf("%s@%s password: ", cfg.User, cfg.Host))
			return string(pass), err
		}))
	}

	if len(methods) == 0 {
		return nil, fmt.Errorf("%w: the gateway needs credentials; "+
			"pass --ssh-key, --ssh-agent or --ssh-password", ncerr.ErrAuthFailed)
	}
	return methods, nil
}

// signerSet gathers keys from files and agents behind one callback.
type signerSet struct {
	static []ssh.Signer
	agents []agent.ExtendedAgent
}

func (s signerSet) empty() bool { return len(s.static) == 0 && len(s.agents) == 0 }

// signers lists file keys first. An agent that stops answering is
// skipped rather than failing the whole publickey attempt.
func (s signerSet) signers() ([]ssh.Signer, error) {
	out := append([]ssh.Signer(nil), s.static...)
	for _, a := range s.agents {
		if more, err := a.Signers(); err == nil {
			out = append(out, more...)
		}
	}
	return out, nil
}

// loadKey parses a private key file. Encrypted keys prompt for their
// passphrase when interactive is set and are rejected otherwise.
func loadKey(path string, interactive bool) (ssh.Signer, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	signer, err := ssh.ParsePrivateKey(pem)
	var missing *ssh.PassphraseMissingError
	if !errors.As(err, &missing) {
		return signer, err
	}
	if !interactive {
		return nil, err
	}

	pass, err := promptSecret(fmt.Sprintf("Passphrase for %s: ", path))
	if err != nil {
		return nil, fmt.Errorf("reading passphrase: %w", err)
	}
	return ssh.ParsePrivateKeyWithPassphrase(pem, pass)
}

func dialAgent() (agent.ExtendedAgent, error) {
	sock := os.Getenv("SSH_AUTH_SOCK")
	if sock == "" {
		return nil, errors.New("SSH_AUTH_SOCK is not set")
	}
	conn, err := net.Dial("unix", sock)
	if err != nil {
		return nil, fmt.Errorf("agent socket %s: %w", sock, err)
	}
	return agent.NewClient(conn), nil
}

// discoverKeys is what plain `ssh gateway` would use: a running agent
// plus unencrypted keys under ~/.ssh.
func discoverKeys() signerSet {
	var keys signerSet
	if a, err := dialAgent(); err == nil {
		keys.agents = append(keys.agents, a)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return keys
	}
	for _, name := range []string{"id_ed25519", "id_ecdsa", "id_rsa"} {
		if s, err := loadKey(filepath.Join(home, ".ssh", name), false); err == nil {
			keys.static = append(keys.static, s)
		}
	}
	return keys
}

// promptSecret reads one line from the terminal with echo off.
func promptSecret(prompt string) ([]byte, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, errors.New("stdin is not a terminal")
	}
	fmt.Fprint(os.Stderr, prompt)
	defer fmt.Fprintln(os.Stderr)
	return term.ReadPassword(fd)
}

// hostKeyCallback verifies the gateway against known_hosts when
// --strict-hostkey is set. Unknown and changed keys get distinct
// messages since the fixes differ.
func hostKeyCallback(cfg *SSHConfig) (ssh.HostKeyCallback, error) {
	if !cfg.StrictHostKey {
		//nolint:gosec // user opted out of host key checking
		return ssh.InsecureIgnoreHostKey(), nil
	}

	path := cfg.KnownHosts
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("locating home directory: %w", err)
		}
		path = filepath.Join(home, ".ssh", "known_hosts")
	}

	check, err := knownhosts.New(path)
	if err != nil {
		return nil, fmt.Errorf("known_hosts %s: %w", path, err)
	}

	return func(host string, remote net.Addr, key ssh.PublicKey) error {
		err := check(host, remote, key)
		var keyErr *knownhosts.KeyError
		switch {
		case !errors.As(err, &keyErr):
			return err
		case len(keyErr.Want) == 0:
			return fmt.Errorf("gateway %s is not listed in %s (add it with ssh-keyscan): %w", host, path, err)
		default:
			return fmt.Errorf("gateway %s offered a %s key that does not match %s: %w", host, key.Type(), path, err)
		}
	}, nil
}
