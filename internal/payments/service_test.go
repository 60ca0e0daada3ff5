package payments

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/repairdesk-backend/internal/catalog"
	"github.com/angelmondragon/repairdesk-backend/internal/customers"
	"github.com/angelmondragon/repairdesk-backend/internal/history"
	"github.com/angelmondragon/repairdesk-backend/internal/numbering"
	"github.com/angelmondragon/repairdesk-backend/internal/orders"
	"github.com/angelmondragon/repairdesk-backend/internal/tenancy"
	"github.com/angelmondragon/repairdesk-backend/pkg/db"
	"github.com/angelmondragon/repairdesk-backend/pkg/db/dbtest"
	"github.com/angelmondragon/repairdesk-backend/pkg/db/models"
	"github.com/angelmondragon/repairdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/repairdesk-backend/pkg/errors"
	"github.com/angelmondragon/repairdesk-backend/pkg/metrics"
	"github.com/angelmondragon/repairdesk-backend/pkg/outbox"
)

type ledgerFixture struct {
	client  *db.Client
	ws      dbtest.Workspace
	scope   tenancy.Scope
	orders  orders.Service
	history history.Service
	ledger  Service
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	client := dbtest.New(t)
	ws := dbtest.NewWorkspace(t, client, "CEN")
	clock := dbtest.Clock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	engineMetrics := metrics.NewEngineMetrics(prometheus.NewRegistry())
	publisher := outbox.NewService(outbox.NewRepository(client.DB()), nil)

	customerSvc, err := customers.NewService(customers.NewRepository(client.DB()), client, nil)
	require.NoError(t, err)
	catalogSvc, err := catalog.NewService(catalog.NewRepository(client.DB()), nil)
	require.NoError(t, err)
	historySvc, err := history.NewService(history.NewRepository(client.DB()))
	require.NoError(t, err)
	numbers, err := numbering.NewGenerator("OS")
	require.NoError(t, err)
	orderRepo := orders.NewRepository(client.DB())

	orderSvc, err := orders.NewService(orders.Params{
		Repo:      orderRepo,
		Tx:        client,
		Customers: customerSvc,
		Catalog:   catalogSvc,
		Numbers:   numbers,
		History:   historySvc,
		Outbox:    publisher,
		Metrics:   engineMetrics,
		Now:       clock,
	})
	require.NoError(t, err)

	ledger, err := NewService(Params{
		Repo:    NewRepository(client.DB()),
		Orders:  orderRepo,
		Tx:      client,
		History: historySvc,
		Outbox:  publisher,
		Metrics: engineMetrics,
		Now:     clock,
	})
	require.NoError(t, err)

	return &ledgerFixture{
		client: client,
		ws:     ws,
		scope: tenancy.Scope{
			UserID:     ws.Staff.UserID,
			TenantID:   ws.Tenant.ID,
			BranchID:   ws.Branch.ID,
			BranchCode: ws.Branch.Code,
			Role:       ws.Staff.Role,
		},
		orders:  orderSvc,
		history: historySvc,
		ledger:  ledger,
	}
}

func money(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func (f *ledgerFixture) createOrder(t *testing.T, estimate string) *models.ServiceOrder {
	t.Helper()
	input := orders.CreateOrderInput{
		Customer:        customers.CustomerInput{FullName: "Luis Pérez", Phone: "555 987 6543"},
		EquipmentType:   "impresora",
		ReportedProblem: "paper jam",
	}
	if estimate != "" {
		cost := money(estimate)
		input.EstimatedCost = &cost
	}
	order, err := f.orders.CreateOrder(context.Background(), f.scope, input)
	require.NoError(t, err)
	return order
}

func (f *ledgerFixture) balance(t *testing.T, orderID uuid.UUID) decimal.Decimal {
	t.Helper()
	order, err := f.orders.GetOrder(context.Background(), f.scope, orderID)
	require.NoError(t, err)
	return order.OutstandingBalance
}

func (f *ledgerFixture) historyCount(t *testing.T, orderID uuid.UUID) int64 {
	t.Helper()
	count, err := f.history.Count(context.Background(), orderID)
	require.NoError(t, err)
	return count
}

func (f *ledgerFixture) paymentCount(t *testing.T, orderID uuid.UUID) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.client.DB().Model(&models.Payment{}).Where("order_id = ?", orderID).Count(&count).Error)
	return count
}

func TestRecordPaymentDepositThenSettlement(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	order := f.createOrder(t, "1000.00")
	require.EqualValues(t, 1, f.historyCount(t, order.ID))

	receipt, err := f.ledger.RecordPayment(ctx, f.scope, order.ID, RecordPaymentInput{
		Amount: money("400.00"),
		Method: enums.PaymentMethodCash,
		Kind:   enums.PaymentKindDeposit,
	})
	require.NoError(t, err)
	assert.True(t, receipt.BalanceBefore.Equal(money("1000")))
	assert.True(t, receipt.BalanceAfter.Equal(money("600")))
	assert.True(t, f.balance(t, order.ID).Equal(money("600")))
	assert.EqualValues(t, 2, f.historyCount(t, order.ID))

	_, err = f.ledger.RecordPayment(ctx, f.scope, order.ID, RecordPaymentInput{
		Amount: money("700.00"),
		Method: enums.PaymentMethodCash,
		Kind:   enums.PaymentKindDeposit,
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
	assert.True(t, f.balance(t, order.ID).Equal(money("600")))
	assert.EqualValues(t, 2, f.historyCount(t, order.ID))
	assert.EqualValues(t, 1, f.paymentCount(t, order.ID))

	final, err := f.ledger.RecordPayment(ctx, f.scope, order.ID, RecordPaymentInput{
		Amount: money("600.00"),
		Method: enums.PaymentMethodCard,
		Kind:   enums.PaymentKindFinalSettlement,
	})
	require.NoError(t, err)
	assert.True(t, final.BalanceAfter.IsZero())
	assert.True(t, final.Change.IsZero())
	assert.True(t, f.balance(t, order.ID).IsZero())
	assert.EqualValues(t, 3, f.historyCount(t, order.ID))

	entries, err := f.orders.History(ctx, f.scope, order.ID, false)
	require.NoError(t, err)
	require.Equal(t, enums.HistoryActionPaymentRecorded, entries[0].Action)
	require.NotNil(t, entries[0].Payload.Payment)
	assert.Equal(t, final.Payment.ID, entries[0].Payload.Payment.PaymentID)
	assert.True(t, entries[0].Payload.Payment.BalanceBefore.Equal(money("600")))
	assert.True(t, entries[0].Payload.Payment.BalanceAfter.IsZero())
	assert.Equal(t, enums.PaymentMethodCard, entries[0].Payload.Payment.Method)

	var events int64
	require.NoError(t, f.client.DB().Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventPaymentRecorded).Count(&events).Error)
	assert.EqualValues(t, 2, events)
}

func TestRecordPaymentExactBalanceWithPartialKind(t *testing.T) {
	f := newLedgerFixture(t)
	order := f.createOrder(t, "250.50")

	receipt, err := f.ledger.RecordPayment(context.Background(), f.scope, order.ID, RecordPaymentInput{
		Amount: money("250.50"),
		Method: enums.PaymentMethodTransfer,
		Kind:   enums.PaymentKindPartial,
	})
	require.NoError(t, err)
	assert.True(t, receipt.BalanceAfter.IsZero())
}

func TestRecordPaymentFinalSettlementAboveBalanceReturnsChange(t *testing.T) {
	f := newLedgerFixture(t)
	order := f.createOrder(t, "180.00")

	receipt, err := f.ledger.RecordPayment(context.Background(), f.scope, order.ID, RecordPaymentInput{
		Amount: money("200.00"),
		Method: enums.PaymentMethodCash,
		Kind:   enums.PaymentKindFinalSettlement,
	})
	require.NoError(t, err)
	assert.True(t, receipt.BalanceAfter.IsZero())
	assert.True(t, receipt.Change.Equal(money("20")))
	assert.True(t, f.balance(t, order.ID).IsZero())
}

func TestRecordPaymentRejectsInvalidInputWithoutWrites(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	order := f.createOrder(t, "100.00")

	cases := []struct {
		name  string
		input RecordPaymentInput
	}{
		{"zero", RecordPaymentInput{Amount: decimal.Zero, Method: enums.PaymentMethodCash, Kind: enums.PaymentKindDeposit}},
		{"negative", RecordPaymentInput{Amount: money("-5"), Method: enums.PaymentMethodCash, Kind: enums.PaymentKindDeposit}},
		{"fractional cents", RecordPaymentInput{Amount: money("10.005"), Method: enums.PaymentMethodCash, Kind: enums.PaymentKindDeposit}},
		{"unknown method", RecordPaymentInput{Amount: money("10"), Method: "crypto", Kind: enums.PaymentKindDeposit}},
		{"unknown kind", RecordPaymentInput{Amount: money("10"), Method: enums.PaymentMethodCash, Kind: "tip"}},
	}
	for _, tc := range cases {
		_, err := f.ledger.RecordPayment(ctx, f.scope, order.ID, tc.input)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "%s: got %v", tc.name, err)
	}
	assert.Zero(t, f.paymentCount(t, order.ID))
	assert.EqualValues(t, 1, f.historyCount(t, order.ID))
	assert.True(t, f.balance(t, order.ID).Equal(money("100")))
}

func TestRecordPaymentOnOrderWithoutCost(t *testing.T) {
	f := newLedgerFixture(t)
	order := f.createOrder(t, "")

	_, err := f.ledger.RecordPayment(context.Background(), f.scope, order.ID, RecordPaymentInput{
		Amount: money("50"),
		Method: enums.PaymentMethodCash,
		Kind:   enums.PaymentKindDeposit,
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestRecordPaymentRejectsCancelledOrder(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	order := f.createOrder(t, "100.00")
	_, err := f.orders.UpdateStatus(ctx, f.scope, order.ID, orders.UpdateStatusInput{Status: enums.OrderStatusCancelled})
	require.NoError(t, err)

	_, err = f.ledger.RecordPayment(ctx, f.scope, order.ID, RecordPaymentInput{
		Amount: money("10"),
		Method: enums.PaymentMethodCash,
		Kind:   enums.PaymentKindFinalSettlement,
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "got %v", err)
	assert.Zero(t, f.paymentCount(t, order.ID))
}

func TestPaymentsAreBranchScoped(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	order := f.createOrder(t, "100.00")

	other := dbtest.Branch(t, f.client, f.ws.Tenant.ID, "NTE")
	staff := dbtest.Staff(t, f.client, other.ID, enums.StaffRoleOwner)
	foreign := tenancy.Scope{UserID: staff.UserID, TenantID: f.ws.Tenant.ID, BranchID: other.ID, Role: staff.Role}

	_, err := f.ledger.RecordPayment(ctx, foreign, order.ID, RecordPaymentInput{
		Amount: money("10"),
		Method: enums.PaymentMethodCash,
		Kind:   enums.PaymentKindDeposit,
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	_, err = f.ledger.ListPayments(ctx, foreign, order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	_, err = f.ledger.Reconcile(ctx, foreign, order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	assert.Zero(t, f.paymentCount(t, order.ID))
}

func TestBalanceInvariantAcrossPayments(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	order := f.createOrder(t, "1000.00")

	paid := decimal.Zero
	for _, amount := range []string{"125.25", "74.75", "300.00", "0.01"} {
		_, err := f.ledger.RecordPayment(ctx, f.scope, order.ID, RecordPaymentInput{
			Amount: money(amount),
			Method: enums.PaymentMethodCash,
			Kind:   enums.PaymentKindPartial,
		})
		require.NoError(t, err)
		paid = paid.Add(money(amount))
		assert.True(t, f.balance(t, order.ID).Equal(money("1000").Sub(paid)), "after %s", amount)
	}

	report, err := f.ledger.Reconcile(ctx, f.scope, order.ID)
	require.NoError(t, err)
	assert.True(t, report.Consistent)
	assert.Equal(t, 4, report.PaymentCount)
	assert.True(t, report.TotalPaid.Equal(paid))
	assert.True(t, report.ExpectedBalance.Equal(money("499.99")))

	list, err := f.ledger.ListPayments(ctx, f.scope, order.ID)
	require.NoError(t, err)
	require.Len(t, list, 4)
	assert.True(t, list[0].Amount.Equal(money("125.25")))
}

func TestConcurrentPaymentsNeverOverdrawBalance(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	order := f.createOrder(t, "1000.00")

	const workers = 6
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.ledger.RecordPayment(ctx, f.scope, order.ID, RecordPaymentInput{
				Amount: money("300.00"),
				Method: enums.PaymentMethodCard,
				Kind:   enums.PaymentKindPartial,
			})
		}(i)
	}
	wg.Wait()

	accepted := 0
	for _, err := range errs {
		if err == nil {
			accepted++
			continue
		}
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
	}
	assert.Equal(t, 3, accepted)

	list, err := f.ledger.ListPayments(ctx, f.scope, order.ID)
	require.NoError(t, err)
	paid := decimal.Zero
	for _, p := range list {
		paid = paid.Add(p.Amount)
	}
	assert.True(t, paid.Equal(money("900")), "paid %s", paid)
	assert.True(t, f.balance(t, order.ID).Equal(decimal.Max(decimal.Zero, money("1000").Sub(paid))))
	assert.EqualValues(t, 1+accepted, f.historyCount(t, order.ID))

	report, err := f.ledger.Reconcile(ctx, f.scope, order.ID)
	require.NoError(t, err)
	assert.True(t, report.Consistent)
}

func TestReconcileReportsDrift(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	order := f.createOrder(t, "500.00")
	_, err := f.ledger.RecordPayment(ctx, f.scope, order.ID, RecordPaymentInput{
		Amount: money("200"),
		Method: enums.PaymentMethodCash,
		Kind:   enums.PaymentKindDeposit,
	})
	require.NoError(t, err)

	require.NoError(t, f.client.DB().Model(&models.ServiceOrder{}).
		Where("id = ?", order.ID).
		Update("outstanding_balance", money("500")).Error)

	report, err := f.ledger.Reconcile(ctx, f.scope, order.ID)
	require.NoError(t, err)
	assert.False(t, report.Consistent)
	assert.True(t, report.ExpectedBalance.Equal(money("300")))
	assert.True(t, report.StoredBalance.Equal(money("500")))
	assert.True(t, report.Drift.Equal(money("200")))
}

func TestAuditBalancesPagesAcrossOrders(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	f.createOrder(t, "100.00")
	second := f.createOrder(t, "250.00")
	f.createOrder(t, "80.00")

	require.NoError(t, f.client.DB().Model(&models.ServiceOrder{}).
		Where("id = ?", second.ID).
		Update("outstanding_balance", money("10")).Error)

	var drifted []ReconcileReport
	checked := 0
	cursor := uuid.Nil
	for {
		page, err := f.ledger.AuditBalances(ctx, cursor, 2)
		require.NoError(t, err)
		if page.Checked == 0 {
			break
		}
		checked += page.Checked
		drifted = append(drifted, page.Drifted...)
		cursor = page.LastID
	}

	assert.Equal(t, 3, checked)
	require.Len(t, drifted, 1)
	assert.Equal(t, second.ID, drifted[0].OrderID)
	assert.True(t, drifted[0].Drift.Equal(money("-240")))
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(Params{})
	assert.Error(t, err)
}
