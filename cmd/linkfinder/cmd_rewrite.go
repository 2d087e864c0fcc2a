package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/user/linkfinder-service/internal/entity"
	"github.com/user/linkfinder-service/internal/selfping"
	"github.com/user/linkfinder-service/internal/usecase"
)

func newSelfPingsCmd(a *app) *cobra.Command {
	var (
		policy string
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "selfpings",
		Short: "Rewrite internal references to absolute (allow) or relative (avoid) form",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := entity.SelfPingPolicy(policy)
			if p != entity.SelfPingsAllow && p != entity.SelfPingsAvoid {
				return fmt.Errorf("--policy must be allow or avoid, got %q", policy)
			}
			return a.runSelfPings(cmd, p == entity.SelfPingsAllow, dryRun)
		},
	}
	cmd.Flags().StringVar(&policy, "policy", "", "allow or avoid")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the edits without applying them")
	_ = cmd.MarkFlagRequired("policy")
	return cmd
}

func (a *app) runSelfPings(cmd *cobra.Command, allow, dryRun bool) error {
	ctx := cmd.Context()
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	normalizer, err := selfping.New(a.cfg.SiteURL)
	if err != nil {
		return err
	}
	if dryRun {
		docs, err := store.ListDocuments(ctx)
		if err != nil {
			return fmt.Errorf("list documents: %w", err)
		}
		return writeJSON(cmd.OutOrStdout(), normalizer.NormalizeCorpus(docs, allow))
	}

	rewrite := usecase.NewRewriteUseCase(store, normalizer, a.log.Named("rewrite"))
	report, err := rewrite.NormalizeSelfPings(ctx, allow)
	if err != nil {
		return err
	}
	return finishReport(cmd, report)
}

func newApplyCmd(a *app) *cobra.Command {
	var (
		editsPath string
		selfPings string
	)
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply reviewed edits from a JSON file (use - for stdin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := readReviewItems(cmd, editsPath)
			if err != nil {
				return err
			}
			return a.runApply(cmd, items, entity.SelfPingPolicy(selfPings))
		},
	}
	cmd.Flags().StringVar(&editsPath, "edits", "", "JSON array of {document_id, index, old_element, new_value}")
	cmd.Flags().StringVar(&selfPings, "self-pings", string(entity.SelfPingsUnchanged), "allow, avoid or unchanged")
	_ = cmd.MarkFlagRequired("edits")
	return cmd
}

func readReviewItems(cmd *cobra.Command, path string) ([]entity.ReviewItem, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read edits: %w", err)
	}
	var items []entity.ReviewItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode edits: %w", err)
	}
	return items, nil
}

func (a *app) runApply(cmd *cobra.Command, items []entity.ReviewItem, policy entity.SelfPingPolicy) error {
	ctx := cmd.Context()
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	var normalizer *selfping.Normalizer
	if policy == entity.SelfPingsAllow || policy == entity.SelfPingsAvoid {
		if normalizer, err = selfping.New(a.cfg.SiteURL); err != nil {
			return err
		}
	}
	rewrite := usecase.NewRewriteUseCase(store, normalizer, a.log.Named("rewrite"))
	report, err := rewrite.Submit(ctx, items, policy)
	if err != nil {
		return err
	}
	return finishReport(cmd, report)
}

func finishReport(cmd *cobra.Command, report entity.RewriteReport) error {
	if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
		return err
	}
	if !report.Success {
		return fmt.Errorf("%d of %d edits were not applied", failed(report), len(report.Outcomes))
	}
	return nil
}

func failed(report entity.RewriteReport) int {
	n := 0
	for _, o := range report.Outcomes {
		if !o.Applied {
			n++
		}
	}
	return n
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
