package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/user/linkfinder-service/internal/adapter/httpprobe"
	"github.com/user/linkfinder-service/internal/classifier"
	"github.com/user/linkfinder-service/internal/entity"
	"github.com/user/linkfinder-service/internal/usecase"
)

var errBrokenReferences = errors.New("broken references found")

type auditFlags struct {
	follow      bool
	concurrency int
	jsonOutput  bool
	failOnError bool
	all         bool
}

func newAuditCmd(a *app) *cobra.Command {
	f := &auditFlags{}
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Check every link and image source of the corpus",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAudit(cmd, f)
		},
	}
	cmd.Flags().BoolVar(&f.follow, "follow", false, "follow redirects and report the final URL")
	cmd.Flags().IntVar(&f.concurrency, "concurrency", 0, "simultaneous probes, overrides MAX_CONCURRENCY")
	cmd.Flags().BoolVar(&f.jsonOutput, "json", false, "print one JSON object per reference")
	cmd.Flags().BoolVar(&f.failOnError, "fail-on-error", false, "exit non-zero when a reference is in the error bucket")
	cmd.Flags().BoolVar(&f.all, "all", false, "print references in the other bucket too")
	return cmd
}

func (a *app) runAudit(cmd *cobra.Command, f *auditFlags) error {
	ctx := cmd.Context()
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	docs, err := store.ListDocuments(ctx)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}

	concurrency := a.cfg.MaxConcurrency
	if f.concurrency > 0 {
		concurrency = f.concurrency
	}
	audit, err := a.newAudit(concurrency)
	if err != nil {
		return err
	}

	run := audit.Start(ctx, docs, usecase.AuditOptions{FollowRedirects: f.follow})
	out := cmd.OutOrStdout()
	if f.jsonOutput {
		err = printJSON(out, run, f.all)
	} else {
		err = printTable(out, run, f.all)
	}
	if err != nil {
		run.Cancel()
		run.Wait()
		return err
	}

	p := run.Wait()
	fmt.Fprintf(cmd.ErrOrStderr(), "%s: %d/%d references (%d%%), %d errors, %d warnings, %d other\n",
		run.Status(), p.Processed, p.Total, p.Percent(), p.Errors, p.Warnings, p.Other)
	if run.Status() == entity.RunCancelled {
		return ctx.Err()
	}
	if f.failOnError && p.Errors > 0 {
		return errBrokenReferences
	}
	return nil
}

func (a *app) newAudit(concurrency int) (*usecase.AuditUseCase, error) {
	cl, err := classifier.New(a.cfg.SiteURL, a.cfg.AdminPath)
	if err != nil {
		return nil, err
	}
	proxies, err := httpprobe.NewProxyRotator(a.cfg.Proxies())
	if err != nil {
		return nil, err
	}
	prober := httpprobe.NewHTTPProber(httpprobe.Config{
		UserAgent:    a.cfg.UserAgent,
		Referer:      cl.SiteURL(),
		Timeout:      a.cfg.ProbeTimeout,
		MaxRedirects: a.cfg.MaxRedirects,
		Proxies:      proxies,
	})
	return usecase.NewAuditUseCase(cl, prober, usecase.AuditConfig{
		MaxConcurrency: concurrency,
		RatePerSecond:  a.cfg.ProbeRatePerSecond,
	}, a.log.Named("audit")), nil
}

func newResolveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve URL",
		Short: "Follow redirects from URL and print where they end",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			audit, err := a.newAudit(1)
			if err != nil {
				return err
			}
			final, err := audit.FinalURL(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), final)
			return nil
		},
	}
}

func printJSON(w io.Writer, run *usecase.Run, all bool) error {
	enc := json.NewEncoder(w)
	for res := range run.Results() {
		if !all && res.Bucket == entity.BucketOther {
			continue
		}
		if err := enc.Encode(res); err != nil {
			return err
		}
	}
	return nil
}

func printTable(w io.Writer, run *usecase.Run, all bool) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "BUCKET\tSTATUS\tDOCUMENT\tVALUE\tDETAIL")
	for res := range run.Results() {
		if !all && res.Bucket == entity.BucketOther {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", res.Bucket, status(res), res.DocumentID, res.Value, detail(res))
	}
	return tw.Flush()
}

func status(res entity.LinkResult) string {
	if res.Probe.StatusCode == 0 {
		return "-"
	}
	return fmt.Sprint(res.Probe.StatusCode)
}

func detail(res entity.LinkResult) string {
	switch {
	case res.Skipped != entity.SkipNone:
		return "skipped: " + string(res.Skipped)
	case res.Probe.ErrorLabel != "":
		return res.Probe.ErrorLabel
	case res.Probe.EffectiveURL != "":
		return "-> " + res.Probe.EffectiveURL
	case res.Internal:
		return "internal"
	}
	return ""
}
