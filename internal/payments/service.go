package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/mahafpc/fpo-ledger/internal/ledger"
	"github.com/mahafpc/fpo-ledger/internal/records"
	"github.com/mahafpc/fpo-ledger/internal/shared"
	"github.com/mahafpc/fpo-ledger/internal/snapshot"
)

const idempotencyScope = "payments"

// Store loads balances and persists payments.
type Store interface {
	Load(ctx context.Context, scope snapshot.Scope) (records.Snapshot, error)
	InsertPayment(ctx context.Context, line records.PaymentLine, key string) (int64, error)
}

// Locker serialises payment entry per farmer.
type Locker interface {
	Acquire(ctx context.Context, key string) (func(context.Context) error, error)
}

// IdempotencyPort claims request keys.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, scope string) error
	Delete(ctx context.Context, key, scope string) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort counts payment outcomes.
type MetricsPort interface {
	ObservePayment(outcome string)
}

// Service coordinates payment entry.
type Service struct {
	store       Store
	locker      Locker
	idempotency IdempotencyPort
	audit       AuditPort
	metrics     MetricsPort
	policy      Policy
	logger      *slog.Logger
}

// Config groups optional settings.
type Config struct {
	Policy Policy
}

// NewService builds Service. locker, idem, audit and metrics may be nil.
func NewService(store Store, locker Locker, idem IdempotencyPort, audit AuditPort, metrics MetricsPort, cfg Config, logger *slog.Logger) *Service {
	if cfg.Policy == "" {
		cfg.Policy = PolicyWarn
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:       store,
		locker:      locker,
		idempotency: idem,
		audit:       audit,
		metrics:     metrics,
		policy:      cfg.Policy,
		logger:      logger,
	}
}

// Record validates, checks and stores one payment. Under PolicyReject an
// overpayment fails with ErrOverpayment and nothing is stored.
func (s *Service) Record(ctx context.Context, in Input) (Result, error) {
	if err := records.ValidateStruct(in); err != nil {
		s.observe("invalid")
		return Result{}, err
	}

	claimed := false
	if in.IdempotencyKey != "" && s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, in.IdempotencyKey, idempotencyScope); err != nil {
			s.observe("duplicate")
			return Result{}, err
		}
		claimed = true
	}
	res, err := s.record(ctx, in)
	if err != nil && claimed {
		if derr := s.idempotency.Delete(context.WithoutCancel(ctx), in.IdempotencyKey, idempotencyScope); derr != nil {
			s.logger.Warn("release idempotency key", slog.String("key", in.IdempotencyKey), slog.Any("error", derr))
		}
	}
	return res, err
}

func (s *Service) record(ctx context.Context, in Input) (Result, error) {
	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, shared.PaymentLockKey(in.FPOID, in.FarmerID))
		if err != nil {
			s.observe("locked")
			return Result{}, err
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("release payment lock", slog.Int64("farmer_id", in.FarmerID), slog.Any("error", err))
			}
		}()
	}

	date := records.Day(in.Date)
	snap, err := s.store.Load(ctx, snapshot.Scope{FPOID: &in.FPOID, FarmerID: &in.FarmerID, To: &date})
	if err != nil {
		return Result{}, err
	}
	if !hasFarmer(snap.Farmers, in.FPOID, in.FarmerID) {
		s.observe("unknown_farmer")
		return Result{}, fmt.Errorf("%w: farmer %d, fpo %d", ErrUnknownFarmer, in.FarmerID, in.FPOID)
	}
	l, err := ledger.Build(ledger.Input{
		Farmers:      snap.Farmers,
		Procurements: snap.Procurements,
		Payments:     snap.Payments,
		Window:       records.NewWindow(earliest(snap, date), date),
	})
	if err != nil {
		return Result{}, err
	}

	decision := Check(l, in.FarmerID, in.Amount)
	if decision.Overpayment {
		if s.policy == PolicyReject {
			s.observe("rejected")
			return Result{Decision: decision}, fmt.Errorf("%w: remaining %s, amount %s", ErrOverpayment, decision.Remaining, in.Amount)
		}
		s.logger.Warn("payment exceeds outstanding balance",
			slog.Int64("fpo_id", in.FPOID),
			slog.Int64("farmer_id", in.FarmerID),
			slog.String("remaining", decision.Remaining.String()),
			slog.String("amount", in.Amount.String()),
		)
	}

	line := records.PaymentLine{
		Date:        date,
		FarmerID:    in.FarmerID,
		FPOID:       in.FPOID,
		Amount:      in.Amount,
		Description: in.Description,
	}
	if err := records.ValidatePayment(line); err != nil {
		return Result{}, err
	}
	id, err := s.store.InsertPayment(ctx, line, in.IdempotencyKey)
	if err != nil {
		if errors.Is(err, snapshot.ErrDuplicatePayment) {
			s.observe("duplicate")
		}
		return Result{}, err
	}
	line.ID = id

	outcome := "recorded"
	if decision.Overpayment {
		outcome = "overpayment"
	}
	s.observe(outcome)
	if s.audit != nil {
		err := s.audit.Record(ctx, shared.AuditLog{
			Actor:    shared.ActorFromContext(ctx),
			Action:   "payment:" + outcome,
			Entity:   "payment",
			EntityID: strconv.FormatInt(id, 10),
			Meta: map[string]any{
				"fpo_id":    in.FPOID,
				"farmer_id": in.FarmerID,
				"amount":    in.Amount.String(),
				"remaining": decision.Remaining.String(),
			},
		})
		if err != nil {
			s.logger.Warn("audit payment", slog.Int64("payment_id", id), slog.Any("error", err))
		}
	}
	return Result{Payment: line, Decision: decision}, nil
}

func (s *Service) observe(outcome string) {
	if s.metrics != nil {
		s.metrics.ObservePayment(outcome)
	}
}

func hasFarmer(farmers []records.Farmer, fpoID, farmerID int64) bool {
	for _, f := range farmers {
		if f.ID == farmerID && f.FPOID == fpoID {
			return true
		}
	}
	return false
}
