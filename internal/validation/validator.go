package validation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/cv-builder/internal/registry"
	"github.com/jonathan/cv-builder/internal/types"
)

// DefaultJudgeTimeout bounds a single judge call.
const DefaultJudgeTimeout = 30 * time.Second

// Observer receives validation outcomes. Metrics implements it.
type Observer interface {
	ObserveValidation(section types.Section, tier Tier, valid bool)
	ObserveJudgeAttempts(section types.Section, attempts int)
}

type nopObserver struct{}

func (nopObserver) ObserveValidation(types.Section, Tier, bool) {}
func (nopObserver) ObserveJudgeAttempts(types.Section, int)     {}

// Validator runs structural checks and, when a judge is set, the semantic check.
type Validator struct {
	structural   *Structural
	judge        Judge
	retry        RetryPolicy
	judgeTimeout time.Duration
	logger       *slog.Logger
	observer     Observer
}

// Option configures a Validator.
type Option func(*Validator)

// WithJudge enables semantic validation.
func WithJudge(j Judge) Option {
	return func(v *Validator) { v.judge = j }
}

// WithRetryPolicy replaces DefaultRetryPolicy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(v *Validator) { v.retry = p }
}

// WithJudgeTimeout bounds each judge attempt.
func WithJudgeTimeout(d time.Duration) Option {
	return func(v *Validator) {
		if d > 0 {
			v.judgeTimeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(v *Validator) {
		if l != nil {
			v.logger = l
		}
	}
}

// WithObserver sets the metrics sink.
func WithObserver(o Observer) Option {
	return func(v *Validator) {
		if o != nil {
			v.observer = o
		}
	}
}

// New creates a Validator over reg's field layout.
func New(reg *registry.Registry, opts ...Option) *Validator {
	v := &Validator{
		structural:   NewStructural(reg),
		retry:        DefaultRetryPolicy(),
		judgeTimeout: DefaultJudgeTimeout,
		logger:       slog.Default(),
		observer:     nopObserver{},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Semantic reports whether a judge is configured.
func (v *Validator) Semantic() bool {
	return v.judge != nil
}

// ValidateSection checks one section of st. The returned error is non-nil
// only when ctx was cancelled; every other failure is part of the Result.
func (v *Validator) ValidateSection(ctx context.Context, st *types.State, section types.Section) (Result, error) {
	res := v.structural.Check(st, section)
	if !res.Valid || v.judge == nil || !section.IsData() {
		v.observer.ObserveValidation(section, res.Tier, res.Valid)
		return res, nil
	}

	data := st.SectionData(section)
	var verdict Verdict
	attempts, err := v.retry.Do(ctx, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, v.judgeTimeout)
		defer cancel()
		var err error
		verdict, err = v.judge.Judge(callCtx, section, data)
		if err != nil {
			v.logger.Warn("judge call failed", "section", section, "error", err)
		}
		return err
	})
	v.observer.ObserveJudgeAttempts(section, attempts)

	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		res = Result{Section: section, Tier: TierSemantic, Inconclusive: true}
		var exhausted *ExhaustedError
		if errors.As(err, &exhausted) {
			res.Problems = []Problem{{Code: CodeInconclusive, Attempts: exhausted.Attempts, Detail: exhausted.Error()}}
		} else {
			res.Problems = []Problem{{Code: CodeInternal, Detail: err.Error()}}
		}
		v.logger.Error("semantic validation inconclusive", "section", section, "attempts", attempts, "error", err)
		v.observer.ObserveValidation(section, TierSemantic, false)
		return res, nil
	}

	res = Result{Section: section, Valid: verdict.Valid, Tier: TierSemantic, Verdict: &verdict}
	if !verdict.Valid {
		res.Problems = []Problem{{Code: CodeSemantic, Detail: verdict.Reason}}
	}
	v.observer.ObserveValidation(section, TierSemantic, res.Valid)
	return res, nil
}

// BatchValidate checks every data section concurrently. A failure or panic
// in one section is recorded in its Result and does not affect the others.
func (v *Validator) BatchValidate(ctx context.Context, st *types.State) (map[types.Section]Result, error) {
	var (
		mu      sync.Mutex
		results = make(map[types.Section]Result, len(types.DataSections))
		g       errgroup.Group
	)

	for _, section := range types.DataSections {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					v.logger.Error("panic during validation", "section", section, "panic", r)
					mu.Lock()
					results[section] = Result{
						Section:  section,
						Tier:     TierStructural,
						Problems: []Problem{{Code: CodeInternal, Detail: fmt.Sprint(r)}},
					}
					mu.Unlock()
				}
			}()

			res, err := v.ValidateSection(ctx, st, section)
			if err != nil {
				return err
			}
			mu.Lock()
			results[section] = res
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
