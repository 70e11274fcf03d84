package seeder

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/Additional-Code/propdesk/internal/entity"
)

type fakeCreator struct {
	next    int64
	failOn  int
	created []entity.Purchase
}

func (f *fakeCreator) Create(_ context.Context, p *entity.Purchase) error {
	if f.failOn > 0 && len(f.created)+1 == f.failOn {
		return errors.New("insert failed")
	}
	p.ID = int64(len(f.created) + 1)
	p.OrderNumber = f.next
	f.next++
	f.created = append(f.created, *p)
	return nil
}

type fakeLedger struct {
	top []int64
	err error
}

func (f fakeLedger) TopOrderNumbers(context.Context, int) ([]int64, error) { return f.top, f.err }

func TestPurchasesSeedsEmptyLedger(t *testing.T) {
	creator := &fakeCreator{next: 100000}
	s := &Seeder{creator: creator, ledger: fakeLedger{}, logger: zap.NewNop()}

	n, err := s.Purchases(context.Background(), false)
	if err != nil {
		t.Fatalf("Purchases: %v", err)
	}
	if n != len(samplePurchases()) || len(creator.created) != n {
		t.Fatalf("created %d (recorded %d), want %d", n, len(creator.created), len(samplePurchases()))
	}
	if creator.created[0].OrderNumber != 100000 {
		t.Fatalf("first order number = %d", creator.created[0].OrderNumber)
	}
}

func TestPurchasesSkipsExistingLedger(t *testing.T) {
	creator := &fakeCreator{}
	s := &Seeder{creator: creator, ledger: fakeLedger{top: []int64{100041}}, logger: zap.NewNop()}

	n, err := s.Purchases(context.Background(), false)
	if err != nil || n != 0 || len(creator.created) != 0 {
		t.Fatalf("n=%d err=%v created=%d", n, err, len(creator.created))
	}

	n, err = s.Purchases(context.Background(), true)
	if err != nil || n != len(samplePurchases()) {
		t.Fatalf("forced seed: n=%d err=%v", n, err)
	}
}

func TestPurchasesReportsFailures(t *testing.T) {
	ledgerErr := errors.New("connection refused")
	s := &Seeder{creator: &fakeCreator{}, ledger: fakeLedger{err: ledgerErr}, logger: zap.NewNop()}
	if _, err := s.Purchases(context.Background(), false); !errors.Is(err, ledgerErr) {
		t.Fatalf("err = %v, want wrapped ledger error", err)
	}

	s = &Seeder{creator: &fakeCreator{failOn: 3}, ledger: fakeLedger{}, logger: zap.NewNop()}
	n, err := s.Purchases(context.Background(), false)
	if err == nil || n != 2 {
		t.Fatalf("n=%d err=%v, want 2 created before failure", n, err)
	}
}
