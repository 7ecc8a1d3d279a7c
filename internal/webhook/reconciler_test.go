package webhook

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"clickfix.ru/clickfix-bot/internal/common"
	"clickfix.ru/clickfix-bot/internal/features/catalog"
	"clickfix.ru/clickfix-bot/internal/features/sales"
)

// --- Фейки хранилища ---

type saleKey struct {
	buyerID   int64
	matchName string
}

// fakeLedger повторяет семантику sales.Repository в памяти:
// MarkPaid — условный переход paid=false→true под мьютексом,
// ровно как UPDATE ... WHERE paid = FALSE в Postgres.
type fakeLedger struct {
	mu      sync.Mutex
	sales   map[saleKey]*sales.Sale
	failure error // если задано — обе операции возвращают эту ошибку
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{sales: make(map[saleKey]*sales.Sale)}
}

func (f *fakeLedger) addSale(buyerID int64, matchName string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sales[saleKey{buyerID, matchName}] = &sales.Sale{
		BuyerID:   buyerID,
		MatchName: matchName,
	}
}

func (f *fakeLedger) GetSale(ctx context.Context, buyerID int64, matchName string) (*sales.Sale, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failure != nil {
		return nil, f.failure
	}
	s, ok := f.sales[saleKey{buyerID, matchName}]
	if !ok {
		return nil, common.ErrSaleNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeLedger) MarkPaid(ctx context.Context, buyerID int64, matchName string, paidAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failure != nil {
		return false, f.failure
	}
	s, ok := f.sales[saleKey{buyerID, matchName}]
	if !ok || s.Paid {
		return false, nil
	}
	s.Paid = true
	s.PaidAt = &paidAt
	return true, nil
}

type fakeCatalog struct {
	matches map[string]*catalog.Match
}

func (f *fakeCatalog) GetMatch(ctx context.Context, matchName string) (*catalog.Match, error) {
	m, ok := f.matches[matchName]
	if !ok {
		return nil, common.ErrMatchNotFound
	}
	return m, nil
}

// fakeDeliverer считает доставки и уведомления о сбоях.
type fakeDeliverer struct {
	mu        sync.Mutex
	delivered []string // content_ref каждой доставки
	failures  int
	err       error
}

func (f *fakeDeliverer) Deliver(ctx context.Context, buyerID int64, contentRef, description string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.delivered = append(f.delivered, contentRef)
	return nil
}

func (f *fakeDeliverer) NotifyFailure(buyerID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures++
}

func (f *fakeDeliverer) deliveries() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.delivered)
}

// --- Тестовая обвязка ---

func newTestReconciler(ledger *fakeLedger, cat *fakeCatalog, del *fakeDeliverer) *Reconciler {
	r := NewReconciler(ledger, cat, del, 5*time.Second)
	r.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return r
}

func paymentBody(userID, matchName string) []byte {
	return []byte(fmt.Sprintf(
		`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_001","status":"captured","notes":{"user_id":%q,"match_name":%q}}}}}`,
		userID, matchName,
	))
}

func paymentLinkBody(userID, matchName string) []byte {
	return []byte(fmt.Sprintf(
		`{"event":"payment_link.paid","payload":{"payment_link":{"entity":{"id":"plink_001","status":"paid","notes":{"user_id":%q,"match_name":%q}}}}}`,
		userID, matchName,
	))
}

// --- Тесты ---

func TestProcess_FreshPayment(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addSale(42, "finals")
	cat := &fakeCatalog{matches: map[string]*catalog.Match{
		"finals": {MatchName: "finals", ContentRef: "/data/finals.mp4", Description: "Финал"},
	}}
	del := &fakeDeliverer{}
	r := newTestReconciler(ledger, cat, del)

	outcome, err := r.Process(context.Background(), paymentBody("42", "finals"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomePaid {
		t.Errorf("outcome = %q, want %q", outcome, OutcomePaid)
	}

	sale, _ := ledger.GetSale(context.Background(), 42, "finals")
	if !sale.Paid || sale.PaidAt == nil {
		t.Errorf("sale not marked paid: paid=%v paid_at=%v", sale.Paid, sale.PaidAt)
	}
	if del.deliveries() != 1 {
		t.Errorf("deliveries = %d, want 1", del.deliveries())
	}
	if del.delivered[0] != "/data/finals.mp4" {
		t.Errorf("delivered ref = %q", del.delivered[0])
	}
}

func TestProcess_PaymentLinkShape(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addSale(42, "finals")
	cat := &fakeCatalog{matches: map[string]*catalog.Match{
		"finals": {MatchName: "finals", ContentRef: "https://cdn.example.com/finals", Description: ""},
	}}
	del := &fakeDeliverer{}
	r := newTestReconciler(ledger, cat, del)

	outcome, err := r.Process(context.Background(), paymentLinkBody("42", "finals"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomePaid {
		t.Errorf("outcome = %q, want %q", outcome, OutcomePaid)
	}
	if del.deliveries() != 1 {
		t.Errorf("deliveries = %d, want 1", del.deliveries())
	}
}

func TestProcess_BothShapes_PaymentLinkWins(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addSale(42, "finals")
	cat := &fakeCatalog{matches: map[string]*catalog.Match{
		"finals": {MatchName: "finals", ContentRef: "/data/finals.mp4"},
	}}
	del := &fakeDeliverer{}
	r := newTestReconciler(ledger, cat, del)

	// payment_link.paid вкладывает и платёж, и ссылку; идентификация — из ссылки
	body := []byte(`{"event":"payment_link.paid","payload":{
		"payment_link":{"entity":{"id":"plink_1","notes":{"user_id":"42","match_name":"finals"}}},
		"payment":{"entity":{"id":"pay_1","notes":{}}}}}`)

	outcome, err := r.Process(context.Background(), body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomePaid {
		t.Errorf("outcome = %q, want %q", outcome, OutcomePaid)
	}
}

func TestProcess_DuplicateWebhook(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addSale(42, "finals")
	cat := &fakeCatalog{matches: map[string]*catalog.Match{
		"finals": {MatchName: "finals", ContentRef: "/data/finals.mp4"},
	}}
	del := &fakeDeliverer{}
	r := newTestReconciler(ledger, cat, del)

	body := paymentBody("42", "finals")

	first, err := r.Process(context.Background(), body)
	if err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	second, err := r.Process(context.Background(), body)
	if err != nil {
		t.Fatalf("second delivery: %v", err)
	}

	if first != OutcomePaid {
		t.Errorf("first outcome = %q, want %q", first, OutcomePaid)
	}
	if second != OutcomeDuplicate {
		t.Errorf("second outcome = %q, want %q", second, OutcomeDuplicate)
	}
	// Повтор не должен запускать доставку заново
	if del.deliveries() != 1 {
		t.Errorf("deliveries = %d, want 1", del.deliveries())
	}
}

func TestProcess_ConcurrentDuplicates(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addSale(42, "finals")
	cat := &fakeCatalog{matches: map[string]*catalog.Match{
		"finals": {MatchName: "finals", ContentRef: "/data/finals.mp4"},
	}}
	del := &fakeDeliverer{}
	r := newTestReconciler(ledger, cat, del)

	body := paymentBody("42", "finals")

	const n = 16
	outcomes := make([]Outcome, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := r.Process(context.Background(), body)
			if err != nil {
				t.Errorf("goroutine %d: %v", i, err)
				return
			}
			outcomes[i] = out
		}(i)
	}
	wg.Wait()

	paid := 0
	for _, out := range outcomes {
		if out == OutcomePaid {
			paid++
		}
	}
	if paid != 1 {
		t.Errorf("fresh transitions = %d, want exactly 1", paid)
	}
	if del.deliveries() != 1 {
		t.Errorf("deliveries = %d, want exactly 1", del.deliveries())
	}
}

func TestProcess_UnknownSale(t *testing.T) {
	ledger := newFakeLedger()
	cat := &fakeCatalog{matches: map[string]*catalog.Match{}}
	del := &fakeDeliverer{}
	r := newTestReconciler(ledger, cat, del)

	outcome, err := r.Process(context.Background(), paymentBody("42", "ghost"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeUnknownSale {
		t.Errorf("outcome = %q, want %q", outcome, OutcomeUnknownSale)
	}
	if del.deliveries() != 0 {
		t.Errorf("deliveries = %d, want 0", del.deliveries())
	}
}

func TestProcess_PayloadDefects(t *testing.T) {
	tests := []struct {
		name    string
		body    []byte
		wantErr error
	}{
		{"not json", []byte(`garbage`), common.ErrMissingEntity},
		{"no known shape", []byte(`{"event":"refund.created","payload":{"refund":{"entity":{}}}}`), common.ErrMissingEntity},
		{"empty payload", []byte(`{"event":"payment.captured","payload":{}}`), common.ErrMissingEntity},
		{"missing notes", []byte(`{"payload":{"payment":{"entity":{"id":"pay_1"}}}}`), common.ErrMissingIdentity},
		{"empty user_id", paymentBody("", "finals"), common.ErrMissingIdentity},
		{"empty match_name", paymentBody("42", ""), common.ErrMissingIdentity},
		{"non-numeric user_id", paymentBody("alice", "finals"), common.ErrMissingIdentity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := newFakeLedger()
			ledger.addSale(42, "finals")
			del := &fakeDeliverer{}
			r := newTestReconciler(ledger, &fakeCatalog{}, del)

			_, err := r.Process(context.Background(), tt.body)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}

			// Дефектный payload не должен трогать книгу продаж
			sale, _ := ledger.GetSale(context.Background(), 42, "finals")
			if sale.Paid {
				t.Error("sale mutated by defective payload")
			}
			if del.deliveries() != 0 {
				t.Errorf("deliveries = %d, want 0", del.deliveries())
			}
		})
	}
}

func TestProcess_MatchGone(t *testing.T) {
	// Оплата по продаже, чей матч исчез из каталога: платёж фиксируется,
	// доставка пропускается, шлюзу отвечаем успехом.
	ledger := newFakeLedger()
	ledger.addSale(42, "finals")
	cat := &fakeCatalog{matches: map[string]*catalog.Match{}}
	del := &fakeDeliverer{}
	r := newTestReconciler(ledger, cat, del)

	outcome, err := r.Process(context.Background(), paymentBody("42", "finals"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomePaid {
		t.Errorf("outcome = %q, want %q", outcome, OutcomePaid)
	}

	sale, _ := ledger.GetSale(context.Background(), 42, "finals")
	if !sale.Paid {
		t.Error("payment not recorded")
	}
	if del.deliveries() != 0 {
		t.Errorf("deliveries = %d, want 0", del.deliveries())
	}
}

func TestProcess_DeliveryFailureStillPaid(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addSale(42, "finals")
	cat := &fakeCatalog{matches: map[string]*catalog.Match{
		"finals": {MatchName: "finals", ContentRef: "/data/finals.mp4"},
	}}
	del := &fakeDeliverer{err: errors.New("telegram: 502")}
	r := newTestReconciler(ledger, cat, del)

	outcome, err := r.Process(context.Background(), paymentBody("42", "finals"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomePaid {
		t.Errorf("outcome = %q, want %q", outcome, OutcomePaid)
	}

	sale, _ := ledger.GetSale(context.Background(), 42, "finals")
	if !sale.Paid {
		t.Error("payment rolled back by delivery failure")
	}
	if del.failures != 1 {
		t.Errorf("failure notifications = %d, want 1", del.failures)
	}
}

func TestProcess_StoreFailure(t *testing.T) {
	ledger := newFakeLedger()
	ledger.failure = errors.New("connection refused")
	del := &fakeDeliverer{}
	r := newTestReconciler(ledger, &fakeCatalog{}, del)

	_, err := r.Process(context.Background(), paymentBody("42", "finals"))
	if err == nil {
		t.Fatal("expected error")
	}
	// Сбой хранилища не должен маскироваться под клиентскую ошибку
	if errors.Is(err, common.ErrMissingEntity) || errors.Is(err, common.ErrMissingIdentity) {
		t.Fatalf("store failure mapped to client error: %v", err)
	}
}
