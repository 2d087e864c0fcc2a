package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/user/linkfinder-service/internal/entity"
	"github.com/user/linkfinder-service/internal/extractor"
	"github.com/user/linkfinder-service/internal/repository"
	"github.com/user/linkfinder-service/internal/selfping"
	"github.com/user/linkfinder-service/pkg/metrics"
	"github.com/user/linkfinder-service/pkg/utils"
)

var ErrInvalidPolicy = errors.New("unknown self-ping policy")

var valueEscaper = strings.NewReplacer(
	`"`, "%22",
	`'`, "%27",
	"<", "%3C",
	">", "%3E",
	" ", "%20",
)

// SanitizeValue makes a user supplied reference safe to place between the
// quotes of an attribute.
func SanitizeValue(v string) string {
	return valueEscaper.Replace(utils.CollapseWhitespace(v))
}

// RewriteUseCase applies literal element substitutions to the content store.
type RewriteUseCase struct {
	docs       repository.DocumentRepository
	normalizer *selfping.Normalizer
	logger     *zap.Logger
}

// NewRewriteUseCase creates the rewrite engine. normalizer may be nil when
// self-ping policies are not needed.
func NewRewriteUseCase(docs repository.DocumentRepository, normalizer *selfping.Normalizer, logger *zap.Logger) *RewriteUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RewriteUseCase{docs: docs, normalizer: normalizer, logger: logger}
}

// Apply performs every edit independently. A failing edit never stops the
// others and nothing is rolled back.
func (uc *RewriteUseCase) Apply(ctx context.Context, edits []entity.RewriteEdit) entity.RewriteReport {
	report := entity.RewriteReport{Success: true, Outcomes: make([]entity.EditOutcome, 0, len(edits))}
	for _, edit := range edits {
		outcome := entity.EditOutcome{Edit: edit}
		err := uc.apply(ctx, edit)
		switch {
		case err == nil:
			outcome.Applied = true
			metrics.RewriteEditsTotal.WithLabelValues("applied").Inc()
		case errors.Is(err, repository.ErrNoMatch):
			outcome.Error = err.Error()
			metrics.RewriteEditsTotal.WithLabelValues("no_match").Inc()
		default:
			outcome.Error = err.Error()
			metrics.RewriteEditsTotal.WithLabelValues("failed").Inc()
		}
		if err != nil {
			report.Success = false
			uc.logger.Warn("edit not applied",
				zap.String("document_id", edit.DocumentID),
				zap.String("old_element", edit.OldElement),
				zap.Error(err),
			)
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}
	uc.logger.Info("edits applied", zap.Int("edits", len(edits)), zap.Bool("success", report.Success))
	return report
}

func (uc *RewriteUseCase) apply(ctx context.Context, edit entity.RewriteEdit) error {
	if edit.DocumentID == "" || edit.OldElement == "" {
		return repository.ErrUnresolvedRewriteInput
	}
	matched, err := uc.docs.ReplaceInContent(ctx, edit.DocumentID, edit.OldElement, edit.NewElement)
	if err != nil {
		return fmt.Errorf("document %s: %w: %w", edit.DocumentID, repository.ErrPersistenceFailure, err)
	}
	if !matched {
		return fmt.Errorf("document %s: %w", edit.DocumentID, repository.ErrNoMatch)
	}
	return nil
}

// BuildEdits turns reviewed items into edits. Items without a new value are
// left alone; items whose old element cannot be parsed are reported as skipped.
func BuildEdits(items []entity.ReviewItem) ([]entity.RewriteEdit, []entity.SkippedItem) {
	var (
		edits   []entity.RewriteEdit
		skipped []entity.SkippedItem
	)
	for _, item := range items {
		value := SanitizeValue(item.NewValue)
		if value == "" {
			continue
		}
		occ, ok := extractor.ParseElement(item.OldElement)
		if item.DocumentID == "" {
			skipped = append(skipped, entity.SkippedItem{Item: item, Reason: repository.ErrUnresolvedRewriteInput.Error()})
			continue
		}
		if !ok {
			reason := fmt.Errorf("%w: %w", repository.ErrUnresolvedRewriteInput, repository.ErrMalformedReference)
			skipped = append(skipped, entity.SkippedItem{Item: item, Reason: reason.Error()})
			continue
		}
		newElement := occ.WithValue(value)
		if newElement == item.OldElement {
			continue
		}
		edits = append(edits, entity.RewriteEdit{
			DocumentID: item.DocumentID,
			OldElement: item.OldElement,
			NewElement: newElement,
		})
	}
	return edits, skipped
}

// Submit applies reviewed items and then, unless policy is unchanged, the
// self-ping normalisation of the whole corpus as it stands afterwards.
func (uc *RewriteUseCase) Submit(ctx context.Context, items []entity.ReviewItem, policy entity.SelfPingPolicy) (entity.RewriteReport, error) {
	if !policy.Valid() {
		return entity.RewriteReport{}, fmt.Errorf("%w: %q", ErrInvalidPolicy, policy)
	}

	edits, skipped := BuildEdits(items)
	for _, s := range skipped {
		metrics.RewriteEditsTotal.WithLabelValues("skipped").Inc()
		uc.logger.Warn("review item skipped",
			zap.String("document_id", s.Item.DocumentID),
			zap.Int("index", s.Item.Index),
			zap.String("reason", s.Reason),
		)
	}

	report := uc.Apply(ctx, dedupe(edits))
	report.Skipped = skipped

	if policy != entity.SelfPingsAllow && policy != entity.SelfPingsAvoid {
		return report, nil
	}
	normalized, err := uc.NormalizeSelfPings(ctx, policy == entity.SelfPingsAllow)
	if err != nil {
		report.Success = false
		return report, err
	}
	report.Merge(normalized)
	return report, nil
}

// NormalizeSelfPings rewrites every internal reference of the corpus to the
// absolute (allow) or relative (avoid) form.
func (uc *RewriteUseCase) NormalizeSelfPings(ctx context.Context, allow bool) (entity.RewriteReport, error) {
	if uc.normalizer == nil {
		return entity.RewriteReport{}, errors.New("self-ping normalizer is not configured")
	}
	docs, err := uc.docs.ListDocuments(ctx)
	if err != nil {
		return entity.RewriteReport{}, fmt.Errorf("list documents: %w: %w", repository.ErrPersistenceFailure, err)
	}
	edits := uc.normalizer.NormalizeCorpus(docs, allow)
	uc.logger.Info("self-ping edits computed", zap.Bool("allow", allow), zap.Int("edits", len(edits)))
	return uc.Apply(ctx, dedupe(edits)), nil
}

// dedupe drops repeated edits. Replacement is replace-all, so a duplicated
// element would otherwise report a spurious no-match on its second edit.
func dedupe(edits []entity.RewriteEdit) []entity.RewriteEdit {
	seen := make(map[entity.RewriteEdit]struct{}, len(edits))
	out := edits[:0:0]
	for _, e := range edits {
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}
