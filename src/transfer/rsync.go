// Package transfer pushes a volume's spool directory to the remote
// archive endpoint over rsync+ssh with resumable semantics.
package transfer

import (
	"context"
	"fmt"
	"strings"

	"diskrip/src/system"
)

// Options carries the transport settings resolved from config.
type Options struct {
	Remote      string // user@host:/base/path
	SSHKey      string
	Port        int
	BwlimitKbps int
}

// Remote is a parsed user@host:path rsync destination.
type Remote struct {
	User string
	Host string
	Path string
}

// ParseRemote validates an rsync destination of the form user@host:path.
func ParseRemote(raw string) (Remote, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Remote{}, fmt.Errorf("transfer: remote must not be empty; expected user@host:/path")
	}
	hostPart, path, ok := strings.Cut(s, ":")
	if !ok || path == "" {
		return Remote{}, fmt.Errorf("transfer: invalid remote %q; expected user@host:/path", raw)
	}
	user, host, ok := strings.Cut(hostPart, "@")
	if !ok || user == "" || host == "" {
		return Remote{}, fmt.Errorf("transfer: invalid remote %q; expected user@host:/path", raw)
	}
	return Remote{User: user, Host: host, Path: path}, nil
}

// Push synchronizes localDir's contents to <remote>/<date>/<token>/.
// Partial transfers resume in place with content verification on append,
// and missing remote path segments are created. A non-zero rsync exit is
// surfaced to the caller; retry policy belongs to the orchestrator's
// run-level reporting, not here.
func Push(ctx context.Context, r system.Runner, opts Options, localDir, dateStr, token string) error {
	if _, err := ParseRemote(opts.Remote); err != nil {
		return err
	}
	dest := fmt.Sprintf("%s/%s/%s/", opts.Remote, dateStr, token)
	args := []string{"-r"}
	if opts.BwlimitKbps > 0 {
		args = append(args, fmt.Sprintf("--bwlimit=%d", opts.BwlimitKbps))
	}
	args = append(args, "--partial", "--inplace", "--append-verify", "--mkpath")
	args = append(args, "-e", sshCommand(opts))
	args = append(args, strings.TrimSuffix(localDir, "/")+"/", dest)
	if err := r.Run(ctx, "rsync", args...); err != nil {
		return fmt.Errorf("transfer: rsync to %s: %w", dest, err)
	}
	return nil
}

func sshCommand(opts Options) string {
	parts := []string{"ssh"}
	if opts.SSHKey != "" {
		parts = append(parts, "-i", opts.SSHKey)
	}
	if opts.Port > 0 && opts.Port != 22 {
		parts = append(parts, "-p", fmt.Sprintf("%d", opts.Port))
	}
	parts = append(parts, "-o", "BatchMode=yes")
	return strings.Join(parts, " ")
}
