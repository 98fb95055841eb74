package system

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"
)

// Runner abstracts external command execution so discovery, mounting and
// transfer logic can be tested against a scripted fake.
//
// Output is for read-only queries (lsblk, blkid, findmnt) and always
// executes, even under dry-run: discovery has to see real devices to
// produce a meaningful plan. Run is for effectful commands (mount, rsync,
// mdadm) and is suppressed when dry-run is enabled.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
	LookPath(name string) (string, error)
}

// Real executes commands with os/exec.
type Real struct {
	DryRun bool
}

func (r *Real) Run(ctx context.Context, name string, args ...string) error {
	if r.DryRun {
		logrus.Infof("[dry-run] %s %s", name, strings.Join(args, " "))
		return nil
	}
	logrus.WithField("cmd", name).Debugf("exec: %s %s", name, strings.Join(args, " "))
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			logrus.WithField("cmd", name).Debug(msg)
		}
		return err
	}
	return nil
}

func (r *Real) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	logrus.WithField("cmd", name).Debugf("exec: %s %s", name, strings.Join(args, " "))
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			logrus.WithField("cmd", name).Debug(msg)
		}
		return stdout.Bytes(), err
	}
	return stdout.Bytes(), nil
}

func (r *Real) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}
