package social

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ayush/nimi-blog/backend/internal/models"
	apierrors "github.com/ayush/nimi-blog/backend/internal/pkg/errors"
)

var (
	repairsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nimi_reconcile_repairs_total",
			Help: "Inconsistencies repaired by the reconciliation sweep",
		},
		[]string{"kind"},
	)

	sweepFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nimi_reconcile_sweep_failures_total",
			Help: "Reconciliation sweeps that could not complete",
		},
	)
)

// RepairStore finds and fixes documents left inconsistent by interrupted
// dual writes.
type RepairStore interface {
	FindRepairs(ctx context.Context) ([]models.Repair, error)
	AddFollower(ctx context.Context, user, follower primitive.ObjectID) error
	RemoveFollowing(ctx context.Context, actor, target primitive.ObjectID) error
	RemoveFollower(ctx context.Context, user, follower primitive.ObjectID) error
	AppendUserPost(ctx context.Context, user, post primitive.ObjectID) error
	RemoveUserPost(ctx context.Context, user, post primitive.ObjectID) error
	AppendPostComment(ctx context.Context, post, comment primitive.ObjectID) error
}

// Reconciler periodically restores paired references: follower/following
// edges, author post lists and post comment lists.
type Reconciler struct {
	store RepairStore
	log   *slog.Logger
}

func NewReconciler(store RepairStore, log *slog.Logger) *Reconciler {
	return &Reconciler{store: store, log: log}
}

// SweepResult counts what a sweep did.
type SweepResult struct {
	Found    int
	Repaired int
	Failed   int
}

// Sweep runs one detection pass and applies every repair. A failed repair is
// logged and left for the next sweep.
func (r *Reconciler) Sweep(ctx context.Context) (SweepResult, error) {
	repairs, err := r.store.FindRepairs(ctx)
	if err != nil {
		sweepFailures.Inc()
		return SweepResult{}, err
	}

	res := SweepResult{Found: len(repairs)}
	for _, rep := range repairs {
		if err := r.apply(ctx, rep); err != nil {
			// The owner may have been deleted since detection.
			if errors.Is(err, apierrors.ErrNotFound) {
				continue
			}
			res.Failed++
			r.log.WarnContext(ctx, "repair failed",
				slog.String("kind", string(rep.Kind)),
				slog.String("owner", rep.Owner.Hex()),
				slog.String("ref", rep.Ref.Hex()),
				slog.Any("error", err),
			)
			continue
		}
		res.Repaired++
		repairsTotal.WithLabelValues(string(rep.Kind)).Inc()
	}
	return res, nil
}

func (r *Reconciler) apply(ctx context.Context, rep models.Repair) error {
	switch rep.Kind {
	case models.RepairSelfEdge:
		if err := r.store.RemoveFollowing(ctx, rep.Owner, rep.Owner); err != nil {
			return err
		}
		return r.store.RemoveFollower(ctx, rep.Owner, rep.Owner)
	case models.RepairDanglingFollow:
		return r.store.RemoveFollowing(ctx, rep.Owner, rep.Ref)
	case models.RepairMissingFollower:
		return r.store.AddFollower(ctx, rep.Owner, rep.Ref)
	case models.RepairOrphanFollower:
		return r.store.RemoveFollower(ctx, rep.Owner, rep.Ref)
	case models.RepairMissingPostRef:
		return r.store.AppendUserPost(ctx, rep.Owner, rep.Ref)
	case models.RepairDanglingPostRef:
		return r.store.RemoveUserPost(ctx, rep.Owner, rep.Ref)
	case models.RepairMissingCommentID:
		return r.store.AppendPostComment(ctx, rep.Owner, rep.Ref)
	default:
		return apierrors.ErrInternal.WithMessage("unknown repair kind " + string(rep.Kind))
	}
}

// Run sweeps every interval until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res, err := r.Sweep(ctx)
			if err != nil {
				r.log.ErrorContext(ctx, "reconcile sweep failed", slog.Any("error", err))
				continue
			}
			if res.Found > 0 {
				r.log.InfoContext(ctx, "reconcile sweep",
					slog.Int("found", res.Found),
					slog.Int("repaired", res.Repaired),
					slog.Int("failed", res.Failed),
				)
			}
		}
	}
}
