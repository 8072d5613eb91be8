package payments

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/mahafpc/fpo-ledger/internal/ledger"
	"github.com/mahafpc/fpo-ledger/internal/money"
	"github.com/mahafpc/fpo-ledger/internal/records"
	"github.com/mahafpc/fpo-ledger/internal/shared"
	"github.com/mahafpc/fpo-ledger/internal/snapshot"
)

func day(m time.Month, d int) time.Time {
	return time.Date(2024, m, d, 0, 0, 0, 0, time.UTC)
}

type memoryStore struct {
	mu      sync.Mutex
	snap    records.Snapshot
	keys    map[string]bool
	scopes  []snapshot.Scope
	nextID  int64
	loadErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		keys: map[string]bool{},
		snap: records.Snapshot{
			Farmers: []records.Farmer{{ID: 1, FPOID: 10, Name: "Ramesh Patil"}, {ID: 2, FPOID: 10, Name: "Anita Jadhav"}},
			Procurements: []records.ProcurementLine{
				{ID: 1, Date: day(time.March, 4), FarmerID: 1, FPOID: 10, ProductID: 1, Quantity: money.Tons(2), Rate: money.Rupees(30000)},
				{ID: 2, Date: day(time.March, 18), FarmerID: 1, FPOID: 10, ProductID: 1, Quantity: money.Tons(3), Rate: money.Rupees(40000)},
			},
			Payments: []records.PaymentLine{{ID: 1, Date: day(time.March, 20), FarmerID: 1, FPOID: 10, Amount: money.Rupees(50000)}},
		},
	}
}

// Load honours the scope the way the SQL queries do.
func (m *memoryStore) Load(_ context.Context, scope snapshot.Scope) (records.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scopes = append(m.scopes, scope)
	if m.loadErr != nil {
		return records.Snapshot{}, m.loadErr
	}
	var out records.Snapshot
	for _, f := range m.snap.Farmers {
		if f.ID == *scope.FarmerID && f.FPOID == *scope.FPOID {
			out.Farmers = append(out.Farmers, f)
		}
	}
	for _, l := range m.snap.Procurements {
		if l.FarmerID == *scope.FarmerID && !l.Date.After(*scope.To) {
			out.Procurements = append(out.Procurements, l)
		}
	}
	for _, p := range m.snap.Payments {
		if p.FarmerID == *scope.FarmerID && !p.Date.After(*scope.To) {
			out.Payments = append(out.Payments, p)
		}
	}
	return out, nil
}

func (m *memoryStore) InsertPayment(_ context.Context, line records.PaymentLine, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if key != "" {
		if m.keys[key] {
			return 0, snapshot.ErrDuplicatePayment
		}
		m.keys[key] = true
	}
	m.nextID++
	line.ID = 100 + m.nextID
	m.snap.Payments = append(m.snap.Payments, line)
	return line.ID, nil
}

type memoryIdempotency struct {
	keys    map[string]bool
	deleted []string
}

func (m *memoryIdempotency) CheckAndInsert(_ context.Context, key, scope string) error {
	if m.keys[scope+key] {
		return shared.ErrIdempotencyConflict
	}
	m.keys[scope+key] = true
	return nil
}

func (m *memoryIdempotency) Delete(_ context.Context, key, scope string) error {
	delete(m.keys, scope+key)
	m.deleted = append(m.deleted, key)
	return nil
}

type auditSpy struct{ logs []shared.AuditLog }

func (a *auditSpy) Record(_ context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

type outcomeSpy struct{ outcomes []string }

func (o *outcomeSpy) ObservePayment(outcome string) { o.outcomes = append(o.outcomes, outcome) }

func newLocker(t *testing.T) *shared.Locker {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return shared.NewLocker(client, time.Second)
}

func TestCheck(t *testing.T) {
	l := ledger.Ledger{Farmers: []ledger.FarmerSummary{{FarmerID: 1, Remaining: money.Rupees(130000)}}}

	d := Check(l, 1, money.Rupees(100000))
	require.Equal(t, Decision{Remaining: money.Rupees(130000), After: money.Rupees(30000)}, d)

	d = Check(l, 1, money.Rupees(130000))
	require.False(t, d.Overpayment)
	require.Equal(t, money.Money(0), d.After)

	d = Check(l, 1, money.Rupees(150000))
	require.True(t, d.Overpayment)
	require.Equal(t, money.Rupees(-20000), d.After)

	d = Check(l, 9, money.Rupees(1))
	require.True(t, d.Overpayment)
	require.Equal(t, money.Money(0), d.Remaining)
}

func TestRecordWithinBalance(t *testing.T) {
	store := newMemoryStore()
	audit := &auditSpy{}
	metrics := &outcomeSpy{}
	svc := NewService(store, newLocker(t), nil, audit, metrics, Config{Policy: PolicyReject}, nil)
	ctx := shared.ContextWithActor(context.Background(), "clerk-1")

	res, err := svc.Record(ctx, Input{FPOID: 10, FarmerID: 1, Date: day(time.March, 25), Amount: money.Rupees(100000), Description: "NEFT"})
	require.NoError(t, err)
	require.Equal(t, int64(101), res.Payment.ID)
	require.Equal(t, money.Rupees(130000), res.Decision.Remaining)
	require.Equal(t, money.Rupees(30000), res.Decision.After)
	require.False(t, res.Decision.Overpayment)

	require.Len(t, audit.logs, 1)
	require.Equal(t, "clerk-1", audit.logs[0].Actor)
	require.Equal(t, "payment:recorded", audit.logs[0].Action)
	require.Equal(t, "101", audit.logs[0].EntityID)
	require.Equal(t, []string{"recorded"}, metrics.outcomes)

	// the ledger is loaded up to the payment date
	require.Equal(t, day(time.March, 25), *store.scopes[0].To)
}

func TestRecordRejectsOverpayment(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store, newLocker(t), nil, nil, nil, Config{Policy: PolicyReject}, nil)

	res, err := svc.Record(context.Background(), Input{FPOID: 10, FarmerID: 1, Date: day(time.March, 25), Amount: money.Rupees(150000)})
	require.ErrorIs(t, err, ErrOverpayment)
	require.True(t, res.Decision.Overpayment)
	require.Len(t, store.snap.Payments, 1)
}

func TestRecordWarnsOnOverpayment(t *testing.T) {
	store := newMemoryStore()
	metrics := &outcomeSpy{}
	svc := NewService(store, nil, nil, nil, metrics, Config{Policy: PolicyWarn}, nil)

	res, err := svc.Record(context.Background(), Input{FPOID: 10, FarmerID: 1, Date: day(time.March, 25), Amount: money.Rupees(150000)})
	require.NoError(t, err)
	require.True(t, res.Decision.Overpayment)
	require.Equal(t, money.Rupees(-20000), res.Decision.After)
	require.Len(t, store.snap.Payments, 2)
	require.Equal(t, []string{"overpayment"}, metrics.outcomes)
}

func TestRecordIgnoresLaterActivity(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store, nil, nil, nil, nil, Config{Policy: PolicyReject}, nil)

	// on 10 March only the first procurement (60000) is owed
	_, err := svc.Record(context.Background(), Input{FPOID: 10, FarmerID: 1, Date: day(time.March, 10), Amount: money.Rupees(70000)})
	require.ErrorIs(t, err, ErrOverpayment)

	res, err := svc.Record(context.Background(), Input{FPOID: 10, FarmerID: 1, Date: day(time.March, 10), Amount: money.Rupees(60000)})
	require.NoError(t, err)
	require.Equal(t, money.Money(0), res.Decision.After)
}

func TestRecordValidation(t *testing.T) {
	svc := NewService(newMemoryStore(), nil, nil, nil, nil, Config{}, nil)

	_, err := svc.Record(context.Background(), Input{FPOID: 10, FarmerID: 1, Date: day(time.March, 25)})
	require.ErrorIs(t, err, records.ErrInvalidInput)

	_, err = svc.Record(context.Background(), Input{FPOID: 10, FarmerID: 1, Amount: money.Rupees(10)})
	require.ErrorIs(t, err, records.ErrInvalidInput)
}

func TestRecordUnknownFarmer(t *testing.T) {
	svc := NewService(newMemoryStore(), nil, nil, nil, nil, Config{}, nil)

	_, err := svc.Record(context.Background(), Input{FPOID: 20, FarmerID: 1, Date: day(time.March, 25), Amount: money.Rupees(10)})
	require.ErrorIs(t, err, ErrUnknownFarmer)
}

func TestRecordIdempotencyKey(t *testing.T) {
	store := newMemoryStore()
	idem := &memoryIdempotency{keys: map[string]bool{}}
	svc := NewService(store, nil, idem, nil, nil, Config{}, nil)
	in := Input{FPOID: 10, FarmerID: 1, Date: day(time.March, 25), Amount: money.Rupees(1000), IdempotencyKey: "req-42"}

	_, err := svc.Record(context.Background(), in)
	require.NoError(t, err)
	_, err = svc.Record(context.Background(), in)
	require.ErrorIs(t, err, shared.ErrIdempotencyConflict)
	require.Len(t, store.snap.Payments, 2)
}

func TestRecordReleasesKeyOnFailure(t *testing.T) {
	store := newMemoryStore()
	store.loadErr = errors.New("db down")
	idem := &memoryIdempotency{keys: map[string]bool{}}
	svc := NewService(store, nil, idem, nil, nil, Config{}, nil)
	in := Input{FPOID: 10, FarmerID: 1, Date: day(time.March, 25), Amount: money.Rupees(1000), IdempotencyKey: "req-7"}

	_, err := svc.Record(context.Background(), in)
	require.ErrorContains(t, err, "db down")
	require.Equal(t, []string{"req-7"}, idem.deleted)

	store.loadErr = nil
	_, err = svc.Record(context.Background(), in)
	require.NoError(t, err)
}

func TestRecordLockHeld(t *testing.T) {
	locker := newLocker(t)
	release, err := locker.Acquire(context.Background(), shared.PaymentLockKey(10, 1))
	require.NoError(t, err)
	defer func() { _ = release(context.Background()) }()

	svc := NewService(newMemoryStore(), locker, nil, nil, nil, Config{}, nil)
	_, err = svc.Record(context.Background(), Input{FPOID: 10, FarmerID: 1, Date: day(time.March, 25), Amount: money.Rupees(10)})
	require.ErrorIs(t, err, shared.ErrLockHeld)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	require.Equal(t, PolicyWarn, p)
	p, err = ParsePolicy("reject")
	require.NoError(t, err)
	require.Equal(t, PolicyReject, p)
	_, err = ParsePolicy("block")
	require.Error(t, err)
}
