package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-ledger/meridian/internal/money"
	"github.com/meridian-ledger/meridian/internal/shared"
	"github.com/meridian-ledger/meridian/internal/voucher"
)

// Poster submits balanced vouchers to the ledger.
type Poster interface {
	Submit(ctx context.Context, in voucher.SubmitInput) (voucher.Voucher, error)
}

// Accounts names the ledger accounts inventory posts against.
type Accounts struct {
	Inventory string
	Cash      string
	COGS      string
	Variance  string
}

// DefaultAccounts uses the seeded chart codes.
func DefaultAccounts() Accounts {
	return Accounts{Inventory: "1403", Cash: "1002", COGS: "6401", Variance: "1411"}
}

// NegativePolicy selects the behaviour when an issue exceeds stock.
type NegativePolicy string

const (
	NegativeReject NegativePolicy = "reject"
	NegativeAllow  NegativePolicy = "allow"
)

// Service is the inventory sub-ledger. It owns quantity and cost lineage;
// the ledger owns the monetary postings it emits.
type Service struct {
	repo     RepositoryPort
	poster   Poster
	accounts Accounts
	policy   NegativePolicy
}

// NewService builds Service.
func NewService(repo RepositoryPort, poster Poster, accounts Accounts, policy NegativePolicy) *Service {
	if policy == "" {
		policy = NegativeReject
	}
	return &Service{repo: repo, poster: poster, accounts: accounts, policy: policy}
}

// RegisterItem creates or updates an item card.
func (s *Service) RegisterItem(ctx context.Context, sku, name, unit string, method CostingMethod, standardCost float64) (Item, error) {
	if sku == "" {
		return Item{}, errors.New("inventory: sku required")
	}
	switch method {
	case CostingMovingAverage, CostingFIFO, CostingStandard:
	case "":
		method = CostingMovingAverage
	default:
		return Item{}, fmt.Errorf("inventory: unknown costing method %q", method)
	}
	if method == CostingStandard && standardCost <= 0 {
		return Item{}, errors.New("inventory: standard costing requires a standard cost")
	}
	existing, err := s.repo.GetItem(ctx, sku)
	if err == nil {
		existing.Name = name
		existing.Unit = unit
		existing.Method = method
		existing.StandardCost = standardCost
		return existing, s.repo.UpsertItem(ctx, existing)
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return Item{}, err
	}
	item := Item{SKU: sku, Name: name, Unit: unit, Method: method, StandardCost: standardCost}
	return item, s.repo.UpsertItem(ctx, item)
}

// ReceiveResult reports a receipt's postings.
type ReceiveResult struct {
	Move           Move
	Variance       float64
	CostCorrection float64
}

// Receive books a receipt. Standard costing posts the actual-vs-standard
// variance to the variance account and values stock at standard; a
// pending negative-stock deficit gets its cost correction here.
func (s *Service) Receive(ctx context.Context, sku string, qty, unitCost float64, date time.Time, description string) (ReceiveResult, error) {
	if qty <= 0 {
		return ReceiveResult{}, errors.New("inventory: quantity must be positive")
	}
	if unitCost < 0 {
		return ReceiveResult{}, errors.New("inventory: unit cost cannot be negative")
	}
	item, err := s.repo.GetItem(ctx, sku)
	if errors.Is(err, shared.ErrNotFound) {
		item, err = s.RegisterItem(ctx, sku, sku, "", CostingMovingAverage, 0)
	}
	if err != nil {
		return ReceiveResult{}, err
	}

	actual := money.Round2(qty * unitCost)
	stockCost := unitCost
	inventoryValue := actual
	variance := 0.0
	entries := []voucher.EntryInput{}
	if item.Method == CostingStandard {
		stockCost = item.StandardCost
		inventoryValue = money.Round2(qty * item.StandardCost)
		variance = money.Round2(actual - inventoryValue)
		entries = append(entries, voucher.EntryInput{Account: s.accounts.Inventory, Debit: inventoryValue, Description: description})
		if variance > 0 {
			entries = append(entries, voucher.EntryInput{Account: s.accounts.Variance, Debit: variance, Description: description})
		} else if variance < 0 {
			entries = append(entries, voucher.EntryInput{Account: s.accounts.Variance, Credit: -variance, Description: description})
		}
		entries = append(entries, voucher.EntryInput{Account: s.accounts.Cash, Credit: actual, Description: description})
	} else {
		entries = append(entries,
			voucher.EntryInput{Account: s.accounts.Inventory, Debit: actual, Description: description},
			voucher.EntryInput{Account: s.accounts.Cash, Credit: actual, Description: description})
	}

	v, err := s.poster.Submit(ctx, voucher.SubmitInput{
		Date:          date,
		Description:   description,
		SourceEventID: "inv-in:" + uuid.NewString(),
		AutoConfirm:   true,
		Entries:       entries,
	})
	if err != nil {
		return ReceiveResult{}, err
	}

	if _, err := s.repo.InsertBatch(ctx, Batch{SKU: sku, Qty: qty, UnitCost: stockCost, Date: date}); err != nil {
		return ReceiveResult{}, err
	}
	move, err := s.repo.InsertMove(ctx, Move{SKU: sku, Direction: MoveIn, Qty: qty, UnitCost: stockCost, Amount: inventoryValue, Date: date, VoucherID: v.ID})
	if err != nil {
		return ReceiveResult{}, err
	}

	item.OnHandQty += qty
	item.OnHandValue = money.Round2(item.OnHandValue + inventoryValue)
	item.LastCost = stockCost

	result := ReceiveResult{Move: move, Variance: variance}
	if item.PendingQty > 0 {
		correction, err := s.correctPendingCost(ctx, &item, stockCost, date)
		if err != nil {
			return ReceiveResult{}, err
		}
		result.CostCorrection = correction
	}
	if err := s.repo.UpsertItem(ctx, item); err != nil {
		return ReceiveResult{}, err
	}
	return result, nil
}

// correctPendingCost settles the deficit issued at last known cost once a
// receipt establishes the real cost.
func (s *Service) correctPendingCost(ctx context.Context, item *Item, newCost float64, date time.Time) (float64, error) {
	correction := money.Round2(item.PendingQty * (newCost - item.PendingCost))
	if !money.IsZero(correction) {
		entries := []voucher.EntryInput{}
		if correction > 0 {
			entries = append(entries,
				voucher.EntryInput{Account: s.accounts.COGS, Debit: correction, Description: "negative stock cost correction"},
				voucher.EntryInput{Account: s.accounts.Inventory, Credit: correction, Description: "negative stock cost correction"})
		} else {
			entries = append(entries,
				voucher.EntryInput{Account: s.accounts.Inventory, Debit: -correction, Description: "negative stock cost correction"},
				voucher.EntryInput{Account: s.accounts.COGS, Credit: -correction, Description: "negative stock cost correction"})
		}
		if _, err := s.poster.Submit(ctx, voucher.SubmitInput{
			Date:          date,
			Description:   "negative stock cost correction",
			SourceEventID: "inv-correct:" + uuid.NewString(),
			AutoConfirm:   true,
			Entries:       entries,
		}); err != nil {
			return 0, err
		}
	}
	// the deficit consumes matching quantity from the fresh receipt
	item.OnHandQty -= item.PendingQty
	item.OnHandValue = money.Round2(item.OnHandValue - item.PendingQty*newCost)
	if err := s.consumeBatches(ctx, item.SKU, item.PendingQty); err != nil {
		return 0, err
	}
	item.PendingQty = 0
	item.PendingCost = 0
	return correction, nil
}

// IssueResult reports an issue's cost.
type IssueResult struct {
	Move    Move
	COGS    float64
	Pending bool
}

// Issue prices an outbound movement by the item's costing method and
// posts debit COGS / credit inventory.
func (s *Service) Issue(ctx context.Context, sku string, qty float64, date time.Time, description string) (IssueResult, error) {
	if qty <= 0 {
		return IssueResult{}, errors.New("inventory: quantity must be positive")
	}
	item, err := s.repo.GetItem(ctx, sku)
	if err != nil {
		return IssueResult{}, err
	}

	deficit := 0.0
	if qty > item.OnHandQty+1e-9 {
		if s.policy == NegativeReject {
			return IssueResult{}, shared.NewErrorf(shared.CodeNegativeInventory,
				"sku %s has %.2f on hand, requested %.2f", sku, item.OnHandQty, qty).
				WithDetails(map[string]any{"on_hand": item.OnHandQty, "requested": qty})
		}
		deficit = qty - item.OnHandQty
	}

	var cogs float64
	switch item.Method {
	case CostingFIFO:
		available := qty - deficit
		cost, err := s.consumeBatchesCost(ctx, sku, available)
		if err != nil {
			return IssueResult{}, err
		}
		cogs = money.Round2(cost + deficit*item.LastCost)
	case CostingStandard:
		cogs = money.Round2(qty * item.StandardCost)
		if err := s.consumeBatches(ctx, sku, qty-deficit); err != nil {
			return IssueResult{}, err
		}
	default: // moving average
		avg := item.LastCost
		if item.OnHandQty > 0 {
			avg = item.OnHandValue / item.OnHandQty
		}
		cogs = money.Round2((qty-deficit)*avg + deficit*item.LastCost)
		if err := s.consumeBatches(ctx, sku, qty-deficit); err != nil {
			return IssueResult{}, err
		}
	}

	v, err := s.poster.Submit(ctx, voucher.SubmitInput{
		Date:          date,
		Description:   description,
		SourceEventID: "inv-out:" + uuid.NewString(),
		AutoConfirm:   true,
		Entries: []voucher.EntryInput{
			{Account: s.accounts.COGS, Debit: cogs, Description: description},
			{Account: s.accounts.Inventory, Credit: cogs, Description: description},
		},
	})
	if err != nil {
		return IssueResult{}, err
	}

	unitCost := cogs / qty
	move, err := s.repo.InsertMove(ctx, Move{SKU: sku, Direction: MoveOut, Qty: qty, UnitCost: money.Round2(unitCost), Amount: cogs, Date: date, VoucherID: v.ID, Pending: deficit > 0})
	if err != nil {
		return IssueResult{}, err
	}

	item.OnHandQty -= qty - deficit
	item.OnHandValue = money.Round2(item.OnHandValue - cogs + deficit*item.LastCost)
	if item.OnHandQty <= 1e-9 {
		item.OnHandQty = 0
		if item.Method != CostingStandard {
			item.OnHandValue = 0
		}
	}
	if deficit > 0 {
		item.PendingQty += deficit
		item.PendingCost = item.LastCost
	}
	if err := s.repo.UpsertItem(ctx, item); err != nil {
		return IssueResult{}, err
	}
	return IssueResult{Move: move, COGS: cogs, Pending: deficit > 0}, nil
}

// Balance returns the item card.
func (s *Service) Balance(ctx context.Context, sku string) (Item, error) {
	return s.repo.GetItem(ctx, sku)
}

// Moves lists the movement history.
func (s *Service) Moves(ctx context.Context, sku string) ([]Move, error) {
	return s.repo.ListMoves(ctx, sku)
}

func (s *Service) consumeBatchesCost(ctx context.Context, sku string, qty float64) (float64, error) {
	batches, err := s.repo.OpenBatches(ctx, sku)
	if err != nil {
		return 0, err
	}
	remaining := qty
	var cost float64
	for _, b := range batches {
		if remaining <= 1e-9 {
			break
		}
		take := b.Qty
		if take > remaining {
			take = remaining
		}
		cost += take * b.UnitCost
		remaining -= take
		if err := s.repo.UpdateBatchQty(ctx, b.ID, b.Qty-take); err != nil {
			return 0, err
		}
	}
	if remaining > 1e-9 {
		return 0, shared.NewErrorf(shared.CodeNegativeInventory, "sku %s batches short by %.2f", sku, remaining)
	}
	return cost, nil
}

func (s *Service) consumeBatches(ctx context.Context, sku string, qty float64) error {
	if qty <= 1e-9 {
		return nil
	}
	_, err := s.consumeBatchesCost(ctx, sku, qty)
	return err
}
