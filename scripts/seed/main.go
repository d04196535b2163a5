package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/ledger/internal/accounting/journals"
	"github.com/odyssey-erp/ledger/internal/accounting/periods"
	"github.com/odyssey-erp/ledger/internal/app"
	"github.com/odyssey-erp/ledger/internal/inventory"
	"github.com/odyssey-erp/ledger/internal/platform/db"
	"github.com/odyssey-erp/ledger/internal/shared"
	"github.com/odyssey-erp/ledger/internal/transfers"
	"github.com/odyssey-erp/ledger/migrations"
)

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	orgID, err := strconv.ParseInt(getenv("SEED_ORG_ID", "1"), 10, 64)
	if err != nil || orgID <= 0 {
		log.Fatalf("SEED_ORG_ID must be a positive integer")
	}

	ctx := shared.ContextWithActor(context.Background(), "seed")
	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if _, err := db.Migrate(ctx, pool, migrations.FS); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	svc := app.NewServices(cfg, pool, nil, app.NewLogger(cfg))

	fmt.Println("→ Seeding chart of accounts...")
	ids, err := seedAccounts(ctx, svc.Accounts, orgID)
	if err != nil {
		log.Fatalf("seed accounts: %v", err)
	}

	fmt.Println("→ Seeding fiscal periods...")
	year := time.Now().Year()
	if err := seedPeriods(ctx, svc.Periods, orgID, year); err != nil {
		log.Fatalf("seed periods: %v", err)
	}

	fmt.Println("→ Seeding opening entry...")
	if err := seedOpeningEntry(ctx, svc.Journals, orgID, ids, time.Date(year, time.January, 2, 0, 0, 0, 0, time.UTC)); err != nil {
		log.Fatalf("seed journals: %v", err)
	}

	fmt.Println("→ Seeding stock and a transfer order...")
	if err := seedInventory(ctx, svc.Inventory, svc.Transfers, orgID); err != nil {
		log.Fatalf("seed inventory: %v", err)
	}

	fmt.Println("✓ Seed complete at", time.Now().Format(time.RFC3339))
}

var chart = []accounts.Input{
	{Number: "1110", Name: "Cash", Type: accounts.AccountTypeAsset},
	{Number: "1120", Name: "Bank", Type: accounts.AccountTypeAsset},
	{Number: "1210", Name: "Accounts Receivable", Type: accounts.AccountTypeAsset},
	{Number: "1310", Name: "Merchandise Inventory", Type: accounts.AccountTypeAsset},
	{Number: "1410", Name: "Office Equipment", Type: accounts.AccountTypeAsset},
	{Number: "2110", Name: "Accounts Payable", Type: accounts.AccountTypeLiability},
	{Number: "2120", Name: "Taxes Payable", Type: accounts.AccountTypeLiability},
	{Number: "2130", Name: "Salaries Payable", Type: accounts.AccountTypeLiability},
	{Number: "3100", Name: "Paid-in Capital", Type: accounts.AccountTypeEquity},
	{Number: "3200", Name: "Retained Earnings", Type: accounts.AccountTypeEquity},
	{Number: "4100", Name: "Sales Revenue", Type: accounts.AccountTypeRevenue},
	{Number: "4200", Name: "Other Income", Type: accounts.AccountTypeRevenue},
	{Number: "5100", Name: "Cost of Goods Sold", Type: accounts.AccountTypeExpense},
	{Number: "5210", Name: "Salaries Expense", Type: accounts.AccountTypeExpense},
	{Number: "5220", Name: "Rent Expense", Type: accounts.AccountTypeExpense},
	{Number: "5230", Name: "Utilities Expense", Type: accounts.AccountTypeExpense},
}

func seedAccounts(ctx context.Context, svc *accounts.Service, orgID int64) (map[string]int64, error) {
	existing, err := svc.List(ctx, orgID, accounts.ListFilter{})
	if err != nil {
		return nil, err
	}
	ids := make(map[string]int64, len(chart))
	for _, a := range existing {
		ids[a.Number] = a.ID
	}
	for _, in := range chart {
		if _, ok := ids[in.Number]; ok {
			continue
		}
		created, err := svc.Create(ctx, orgID, in)
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", in.Number, err)
		}
		ids[in.Number] = created.ID
	}
	return ids, nil
}

func seedPeriods(ctx context.Context, svc *periods.Service, orgID int64, year int) error {
	existing, err := svc.List(ctx, orgID, periods.ListFilter{FiscalYear: year})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	_, err = svc.GenerateFiscalYear(ctx, orgID, year, 1)
	return err
}

func seedOpeningEntry(ctx context.Context, svc *journals.Service, orgID int64, ids map[string]int64, date time.Time) error {
	page, err := svc.List(ctx, orgID, journals.ListFilter{Page: 1, PerPage: 1})
	if err != nil {
		return err
	}
	if len(page.Entries) > 0 {
		return nil
	}
	entry, err := svc.Create(ctx, orgID, journals.Input{
		Description: "Opening balances",
		PostingDate: date,
		Lines: []journals.LineInput{
			{AccountID: ids["1120"], Debit: decimal.NewFromInt(50000), Memo: "Opening bank balance"},
			{AccountID: ids["1310"], Debit: decimal.NewFromInt(12000), Memo: "Opening stock"},
			{AccountID: ids["2110"], Credit: decimal.NewFromInt(7000), Memo: "Opening payables"},
			{AccountID: ids["3100"], Credit: decimal.NewFromInt(55000), Memo: "Owner capital"},
		},
	})
	if err != nil {
		return err
	}
	_, err = svc.Post(ctx, orgID, entry.ID)
	return err
}

const (
	mainWarehouse   int64 = 1
	branchWarehouse int64 = 2
)

func seedInventory(ctx context.Context, inv *inventory.Service, orders *transfers.Service, orgID int64) error {
	_, err := inv.GetBalance(ctx, orgID, 1, mainWarehouse)
	if err == nil {
		return nil
	}
	if !errors.Is(err, inventory.ErrBalanceNotFound) {
		return err
	}
	for item, qty := range map[int64]int64{1: 120, 2: 40} {
		if _, _, err := inv.PostMovement(ctx, orgID, inventory.MovementInput{
			TxnType:       inventory.TxnReceipt,
			ItemID:        item,
			WarehouseID:   mainWarehouse,
			Quantity:      decimal.NewFromInt(qty),
			UnitCost:      decimal.NewFromInt(25),
			ReferenceType: "Seed",
			ReferenceID:   "opening-stock",
		}); err != nil {
			return err
		}
	}
	order, err := orders.Create(ctx, orgID, transfers.Input{
		FromWarehouseID: mainWarehouse,
		ToWarehouseID:   branchWarehouse,
		Notes:           "Replenish branch",
		Lines: []transfers.LineInput{
			{ItemID: 1, OrderedQty: decimal.NewFromInt(30), UnitCost: decimal.NewFromInt(25)},
			{ItemID: 2, OrderedQty: decimal.NewFromInt(10), UnitCost: decimal.NewFromInt(25)},
		},
	})
	if err != nil {
		return err
	}
	if _, err := orders.Release(ctx, orgID, order.ID); err != nil {
		return err
	}
	_, err = orders.Ship(ctx, orgID, order.ID, transfers.ShipInput{ShippingMethod: "Truck"})
	return err
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
