package core_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"lumberyard/internal/core"
)

// Each write holds a single connection for its whole transaction, so more
// concurrent writers than pool connections queue instead of stalling.
func TestWrites_CompleteOnSmallPool(t *testing.T) {
	s := setupTestDB(t)
	small := s.withMaxConns(t, 2)

	const n = 4
	quotes := make([]*core.Quote, n)
	for i := range quotes {
		quotes[i] = createPlywoodQuote(t, s, custAcme)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		orders []*core.Order
	)
	errs := make(chan error, 2*n)
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func(quoteID int) {
			defer wg.Done()
			res, err := small.conversion.ConvertQuoteToOrder(ctx, quoteID, nil)
			if err != nil {
				errs <- err
				return
			}
			mu.Lock()
			orders = append(orders, res.Order)
			mu.Unlock()
		}(quotes[i].ID)
		go func() {
			defer wg.Done()
			o, err := small.checkout.Checkout(ctx, core.CheckoutInput{
				CustomerID: custAcme,
				LocationID: locMain,
				Items:      []core.LineInput{{ProductID: prodStud, Quantity: 1}},
				Payments:   []core.TenderInput{{Method: core.PaymentMethodCash, Amount: money("10.00")}},
			})
			if err != nil {
				errs <- err
				return
			}
			mu.Lock()
			orders = append(orders, o)
			mu.Unlock()
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("Concurrent write failed: %v", err)
	}

	numbers := map[string]bool{}
	for _, o := range orders {
		numbers[o.OrderNumber] = true
	}
	if len(numbers) != 2*n {
		t.Fatalf("Expected %d distinct order numbers, got %d", 2*n, len(numbers))
	}
	if got := stockOf(t, s, locMain, prodStud); got != 100-n {
		t.Errorf("Expected stud stock %d, got %d", 100-n, got)
	}

	// Bill the converted orders concurrently on the same capped pool.
	invoiceErrs := make(chan error, n)
	invoiceNumbers := make(chan string, n)
	for _, o := range orders {
		if o.Source != core.OrderSourceQuote {
			continue
		}
		wg.Add(1)
		go func(orderID int) {
			defer wg.Done()
			inv, err := small.conversion.ConvertOrderToInvoice(ctx, orderID, core.InvoiceOptions{})
			if err != nil {
				invoiceErrs <- err
				return
			}
			invoiceNumbers <- inv.InvoiceNumber
		}(o.ID)
	}
	wg.Wait()
	close(invoiceErrs)
	close(invoiceNumbers)
	for err := range invoiceErrs {
		t.Fatalf("Concurrent invoicing failed: %v", err)
	}
	seen := map[string]bool{}
	for num := range invoiceNumbers {
		seen[num] = true
	}
	if len(seen) != n {
		t.Errorf("Expected %d distinct invoice numbers, got %d", n, len(seen))
	}
}
