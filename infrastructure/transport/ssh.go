package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"

	"github.com/carlosrabelo/miko/domain/entities"
	"github.com/carlosrabelo/miko/domain/ports"
)

// SSHCredentials selects how the SSH transport authenticates
type SSHCredentials struct {
	Username string
	Password string
	// UseAgent authenticates with the keys held by the agent at SSH_AUTH_SOCK
	UseAgent bool
	// AgentSocket overrides SSH_AUTH_SOCK
	AgentSocket string
}

type readResult struct {
	data []byte
	err  error
}

// SSHTransport carries a CLI session over an interactive SSH shell channel
type SSHTransport struct {
	client  *ssh.Client
	session *ssh.Session
	stdin   io.WriteCloser
	reads   chan readResult
	agent   net.Conn
	logger  *zap.Logger

	closeOnce sync.Once
	closeErr  error
}

var _ ports.Transport = (*SSHTransport)(nil)

// DialSSH connects, authenticates, allocates a PTY and starts a shell.
func DialSSH(ctx context.Context, address string, creds SSHCredentials, opts Options) (*SSHTransport, error) {
	opts = opts.withDefaults()
	if creds.Username == "" {
		return nil, NewConnectError(AuthRejected, address, errors.New("ssh requires a username"))
	}

	auth, agentConn, err := authMethods(creds)
	if err != nil {
		return nil, NewConnectError(AuthRejected, address, err)
	}

	raw, err := dialFirst(ctx, address, opts)
	if err != nil {
		closeQuietly(agentConn)
		return nil, err
	}

	sshConfig := &ssh.ClientConfig{
		User:            creds.Username,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         opts.ConnectTimeout,
	}
	client, err := handshakeSSH(raw, address, sshConfig, opts.ConnectTimeout)
	if err != nil {
		closeQuietly(agentConn)
		return nil, err
	}

	st, err := startShell(client, opts.Logger)
	if err != nil {
		client.Close()
		closeQuietly(agentConn)
		return nil, NewConnectError(Handshake, address, err)
	}
	st.agent = agentConn
	opts.Logger.Debug("ssh shell started", zap.String("address", address))
	return st, nil
}

// handshakeSSH runs the SSH handshake on raw under timeout. raw is closed
// on failure.
func handshakeSSH(raw net.Conn, address string, config *ssh.ClientConfig, timeout time.Duration) (*ssh.Client, error) {
	if err := raw.SetDeadline(time.Now().Add(timeout)); err != nil {
		raw.Close()
		return nil, NewConnectError(Handshake, address, err)
	}
	clientConn, chans, reqs, err := ssh.NewClientConn(raw, address, config)
	if err != nil {
		raw.Close()
		return nil, NewConnectError(classifyHandshake(err), address, err)
	}
	if err := raw.SetDeadline(time.Time{}); err != nil {
		clientConn.Close()
		return nil, NewConnectError(Handshake, address, err)
	}
	return ssh.NewClient(clientConn, chans, reqs), nil
}

func authMethods(creds SSHCredentials) ([]ssh.AuthMethod, net.Conn, error) {
	var methods []ssh.AuthMethod
	var agentConn net.Conn
	if creds.UseAgent {
		socket := creds.AgentSocket
		if socket == "" {
			socket = os.Getenv("SSH_AUTH_SOCK")
		}
		if socket == "" {
			return nil, nil, errors.New("ssh agent requested but SSH_AUTH_SOCK is not set")
		}
		conn, err := net.Dial("unix", socket)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to reach ssh agent: %w", err)
		}
		agentConn = conn
		methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
	}
	if creds.Password != "" {
		methods = append(methods, ssh.Password(creds.Password))
	}
	if len(methods) == 0 {
		return nil, nil, errors.New("ssh requires a password or an agent")
	}
	return methods, agentConn, nil
}

func classifyHandshake(err error) ConnectErrorKind {
	if strings.Contains(err.Error(), "unable to authenticate") {
		return AuthRejected
	}
	return Handshake
}

func startShell(client *ssh.Client, logger *zap.Logger) (*SSHTransport, error) {
	session, err := client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          0,
		ssh.TTY_OP_ISPEED: 9600,
		ssh.TTY_OP_OSPEED: 9600,
	}
	if err := session.RequestPty("vt100", 80, 40, modes); err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to request PTY: %w", err)
	}
	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to get stdin pipe: %w", err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to get stdout pipe: %w", err)
	}
	if err := session.Shell(); err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to start shell: %w", err)
	}

	st := &SSHTransport{
		client:  client,
		session: session,
		stdin:   stdin,
		reads:   make(chan readResult, 16),
		logger:  logger,
	}
	go st.pump(stdout)
	return st, nil
}

// pump moves channel output into reads until the channel fails.
// It is the only reader of stdout.
func (st *SSHTransport) pump(stdout io.Reader) {
	defer close(st.reads)
	for {
		buf := make([]byte, BufferSize)
		n, err := stdout.Read(buf)
		if n > 0 {
			st.reads <- readResult{data: buf[:n]}
		}
		if err != nil {
			st.reads <- readResult{err: err}
			return
		}
	}
}

// Write sends raw bytes to the shell channel
func (st *SSHTransport) Write(p []byte) (int, error) {
	return st.stdin.Write(p)
}

// ReadTimeout returns the next chunk of shell output or ErrReadTimeout
func (st *SSHTransport) ReadTimeout(d time.Duration) ([]byte, error) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case r, ok := <-st.reads:
		if !ok {
			return nil, io.EOF
		}
		if r.err != nil {
			if errors.Is(r.err, io.EOF) {
				return nil, io.EOF
			}
			return nil, r.err
		}
		return r.data, nil
	case <-timer.C:
		return nil, ports.ErrReadTimeout
	}
}

// Close tears down the shell, the client and any agent connection
func (st *SSHTransport) Close() error {
	st.closeOnce.Do(func() {
		st.session.Close()
		st.closeErr = st.client.Close()
		closeQuietly(st.agent)
		// unblock the pump if nobody drains reads anymore
		go func() {
			for range st.reads {
			}
		}()
	})
	return st.closeErr
}

// Kind returns the transport name
func (st *SSHTransport) Kind() string {
	return entities.TransportSSH
}

// Authenticated is true: SSH authenticates before the shell starts
func (st *SSHTransport) Authenticated() bool {
	return true
}

func closeQuietly(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}
