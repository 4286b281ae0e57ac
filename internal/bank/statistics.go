package bank

import (
	"cmp"
	"context"
	"slices"
	"time"

	"wallet-ledger/internal/models"
	"wallet-ledger/internal/storage"

	"github.com/shopspring/decimal"
)

// CategoryTotal is the spending of one category in a month.
type CategoryTotal struct {
	Category   string          `json:"category"`
	Total      decimal.Decimal `json:"total"`
	Count      int             `json:"count"`
	Percentage decimal.Decimal `json:"percentage"`
}

// Statistics summarizes an account's outflows for a calendar month.
type Statistics struct {
	Year           int             `json:"year"`
	Month          int             `json:"month"`
	MonthName      string          `json:"month_name"`
	Total          decimal.Decimal `json:"total"`
	Categories     []CategoryTotal `json:"categories"`
	PrevYear       int             `json:"prev_year"`
	PrevMonth      int             `json:"prev_month"`
	NextYear       int             `json:"next_year"`
	NextMonth      int             `json:"next_month"`
	IsCurrentMonth bool            `json:"is_current_month"`
}

var spendingKinds = []models.TransactionKind{models.KindWithdraw, models.KindTransfer, models.KindPurchase}

// Statistics groups the account's spending in the given month by category.
// A zero year or month selects the current one.
func (s *Service) Statistics(ctx context.Context, accountID int64, year, month int) (*Statistics, error) {
	now := s.clock()
	if year == 0 {
		year = now.Year()
	}
	if month == 0 {
		month = int(now.Month())
	}
	if month < 1 || month > 12 {
		return nil, invalid("month", "must be between 1 and 12")
	}

	q := s.db.Queries()
	if _, err := loadAccount(ctx, q, accountID); err != nil {
		return nil, s.read("statistics", err)
	}

	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	entries, err := q.ListTransactions(ctx, storage.TransactionFilter{
		SenderID: &accountID,
		Kinds:    spendingKinds,
		Since:    start,
		Until:    end,
	})
	if err != nil {
		return nil, s.read("statistics", err)
	}

	byCategory := make(map[string]*CategoryTotal)
	total := decimal.Zero
	for _, e := range entries {
		ct, ok := byCategory[e.Category]
		if !ok {
			ct = &CategoryTotal{Category: e.Category, Total: decimal.Zero}
			byCategory[e.Category] = ct
		}
		ct.Total = ct.Total.Add(e.Amount)
		ct.Count++
		total = total.Add(e.Amount)
	}

	categories := make([]CategoryTotal, 0, len(byCategory))
	for _, ct := range byCategory {
		if total.IsPositive() {
			ct.Percentage = ct.Total.Div(total).Mul(decimal.NewFromInt(100)).Round(2)
		}
		categories = append(categories, *ct)
	}
	slices.SortFunc(categories, func(a, b CategoryTotal) int {
		if c := b.Total.Cmp(a.Total); c != 0 {
			return c
		}
		return cmp.Compare(a.Category, b.Category)
	})

	prev := start.AddDate(0, -1, 0)
	return &Statistics{
		Year:           year,
		Month:          month,
		MonthName:      start.Month().String(),
		Total:          total,
		Categories:     categories,
		PrevYear:       prev.Year(),
		PrevMonth:      int(prev.Month()),
		NextYear:       end.Year(),
		NextMonth:      int(end.Month()),
		IsCurrentMonth: year == now.Year() && month == int(now.Month()),
	}, nil
}
