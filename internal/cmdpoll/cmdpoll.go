// Copyright 2026 The kpt Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cmdpoll contains the poll command
package cmdpoll

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kptdev/matsync/internal/cmdmodifications"
	"github.com/kptdev/matsync/internal/docs"
	"github.com/kptdev/matsync/internal/errors"
	"github.com/kptdev/matsync/internal/material"
	"github.com/kptdev/matsync/internal/process"
	"github.com/kptdev/matsync/internal/util/cmdutil"
	"github.com/kptdev/matsync/internal/util/runner"
	v1 "github.com/kptdev/matsync/pkg/api/material/v1"
	"github.com/kptdev/matsync/pkg/printer"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

// NewRunner returns a command runner.
func NewRunner(ctx context.Context, parent string) *Runner {
	r := &Runner{
		ctx: ctx,
	}
	c := &cobra.Command{
		Use:     "poll [flags]",
		Aliases: []string{"watch"},
		Short:   docs.PollShort,
		Long:    docs.PollShort + "\n" + docs.PollLong,
		Example: docs.PollExamples,
		Args:    cobra.NoArgs,
		PreRunE: r.preRunE,
		RunE:    r.runE,
	}

	r.Flags.AddFlags(c)
	c.Flags().StringVar((*string)(&r.Since), "since", "",
		"wait for commits after this revision. defaults to the latest commit at start.")
	c.Flags().StringVar(&r.Dir, "dir", "",
		"directory of the clone used for the checks. defaults to a directory of MATSYNC_CACHE_DIR derived from the material.")
	c.Flags().DurationVar(&r.Interval, "interval", time.Minute,
		"time between two checks.")
	c.Flags().DurationVar(&r.Timeout, "timeout", time.Hour,
		"how long to wait for new commits before giving up.")
	c.Flags().StringVar(&r.HTTPBind, "http-bind", "",
		"address to serve metrics on /metrics while polling, e.g. :9090.")
	c.Flags().StringVarP(&r.Output, "output", "o", cmdutil.OutputTable,
		"output format. one of: table, yaml, json.")
	cmdutil.FixDocs("matsync", parent, c)
	r.Command = c
	return r
}

func NewCommand(ctx context.Context, parent string) *cobra.Command {
	return NewRunner(ctx, parent).Command
}

// Runner contains the run function.
type Runner struct {
	ctx      context.Context
	Flags    cmdutil.MaterialFlags
	Since    v1.Revision
	Dir      string
	Interval time.Duration
	Timeout  time.Duration
	HTTPBind string
	Output   string
	Material *material.GitMaterial
	Command  *cobra.Command
}

func (r *Runner) preRunE(c *cobra.Command, _ []string) error {
	const op errors.Op = "cmdpoll.preRunE"
	if err := cmdutil.ValidateOutputFormat(r.Output); err != nil {
		return errors.E(op, err)
	}
	var violations errors.Violations
	if r.Interval <= 0 {
		violations = append(violations, errors.Violation{
			Field: "interval", Value: r.Interval.String(), Type: errors.Invalid, Reason: "must be positive"})
	}
	if r.Timeout <= 0 {
		violations = append(violations, errors.Violation{
			Field: "timeout", Value: r.Timeout.String(), Type: errors.Invalid, Reason: "must be positive"})
	}
	if len(violations) > 0 {
		return errors.E(op, errors.InvalidParam, &errors.ValidationError{Violations: violations})
	}
	m, err := r.Flags.Load(c)
	if err != nil {
		return errors.E(op, err)
	}
	r.Material = material.New(m)
	if r.Dir == "" {
		if r.Dir, err = r.Material.FlyweightDir(); err != nil {
			return errors.E(op, err)
		}
	}
	return nil
}

func (r *Runner) runE(c *cobra.Command, _ []string) error {
	const op errors.Op = "cmdpoll.runE"
	ctx, stop := signal.NotifyContext(r.ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer func() {
		if n := process.Default.Table.TerminateAll(); n > 0 {
			klog.Warningf("terminated %d running processes", n)
		}
	}()

	pr := printer.FromContextOrDie(r.ctx).WithSecrets(r.Material.Redactor())
	if r.HTTPBind != "" {
		shutdown, err := serveMetrics(r.HTTPBind)
		if err != nil {
			return runner.HandleError(c, errors.E(op, err))
		}
		defer shutdown()
	}

	mods, err := Poll(ctx, r.Material, r.Dir, r.Since, r.Interval, r.Timeout)
	if err != nil {
		return runner.HandleError(c, errors.E(op, err))
	}
	pr.OptPrintf(printer.NewOpt().MaterialName(r.Material.DisplayName()),
		"%d new modifications\n", len(mods))
	if r.Output == cmdutil.OutputTable {
		cmdmodifications.PrintTable(pr.OutStream(), mods)
		return nil
	}
	return cmdutil.WriteStructured(pr.OutStream(), r.Output, mods)
}

// Poll checks m every interval until the branch has commits after since and
// returns them. An empty since stands for the latest commit when polling
// starts. A since that is not in the branch ends the polling with a
// Revision error.
func Poll(ctx context.Context, m *material.GitMaterial, dir string, since v1.Revision, interval, timeout time.Duration) (v1.Modifications, error) {
	const op errors.Op = "cmdpoll.Poll"
	if since == "" {
		latest, err := m.LatestModification(ctx, dir)
		if err != nil {
			return nil, errors.E(op, err)
		}
		if len(latest) == 0 {
			return nil, errors.E(op, errors.Git, fmt.Errorf("branch %s has no commits", m.EffectiveBranch()))
		}
		since = latest[0].Revision
	}
	klog.V(2).Infof("polling %s for commits after %s", m.LongDescription(), since)

	var found v1.Modifications
	var fatal error
	err := process.PollUntil(ctx, "new modifications of "+m.LongDescription(), interval, timeout,
		func(ctx context.Context) (bool, error) {
			mods, err := m.ModificationsSince(ctx, dir, since)
			if errors.IsKind(err, errors.Revision) {
				fatal = err
				return true, nil
			}
			if err != nil {
				return false, err
			}
			found = mods
			return len(mods) > 0, nil
		})
	if err != nil {
		return nil, errors.E(op, err)
	}
	if fatal != nil {
		return nil, errors.E(op, fatal)
	}
	return found, nil
}

// serveMetrics serves the prometheus registry on addr until the returned
// function is called.
func serveMetrics(addr string) (func(), error) {
	const op errors.Op = "cmdpoll.serveMetrics"
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.E(op, errors.IO, fmt.Errorf("unable to listen on %s: %w", addr, err))
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(l); err != nil && err != http.ErrServerClosed {
			klog.Errorf("metrics server stopped: %v", err)
		}
	}()
	klog.V(1).Infof("serving metrics on %s/metrics", l.Addr())
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
