package service

import (
	"context"
	"errors"
	"testing"

	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"

	"github.com/hallbid/auctiond/internal/domain"
)

func newItemService(db *fakeDB) *ItemService {
	return NewItemService((*fakeItems)(db), testLogger())
}

func TestItemService_Create(t *testing.T) {
	db := newFakeDB()
	svc := newItemService(db)
	ctx := context.Background()

	item, err := svc.Create(ctx, " Signed Jersey ", "match-worn", decimal.NewFromInt(250))
	check.Nil(t, err)
	check.Equal(t, "Signed Jersey", item.Title)
	check.Equal(t, domain.ItemStatusPending, item.Status)
	check.Equal(t, "250", item.BasePrice.String())

	_, err = svc.Create(ctx, "  ", "", decimal.Zero)
	check.True(t, errors.Is(err, domain.ErrValidation))

	_, err = svc.Create(ctx, "Jersey", "", decimal.NewFromInt(-1))
	check.True(t, errors.Is(err, domain.ErrValidation))
}

func TestItemService_UpdateBlockedWhileActive(t *testing.T) {
	db := newFakeDB()
	svc := newItemService(db)
	ctx := context.Background()

	item, err := svc.Create(ctx, "Jersey", "", decimal.NewFromInt(250))
	check.Nil(t, err)

	updated, err := svc.Update(ctx, item.ID, "Jersey (framed)", "framed", decimal.NewFromInt(300))
	check.Nil(t, err)
	check.Equal(t, "Jersey (framed)", updated.Title)
	check.Equal(t, "300", updated.BasePrice.String())

	check.Nil(t, (*fakeItems)(db).SetStatus(ctx, item.ID, domain.ItemStatusActive))

	_, err = svc.Update(ctx, item.ID, "Jersey", "", decimal.NewFromInt(100))
	check.True(t, errors.Is(err, domain.ErrInvalidState))
}

func TestItemService_DeleteBlockedWhileActive(t *testing.T) {
	db := newFakeDB()
	svc := newItemService(db)
	ctx := context.Background()

	item, err := svc.Create(ctx, "Jersey", "", decimal.NewFromInt(250))
	check.Nil(t, err)

	check.Nil(t, (*fakeItems)(db).SetStatus(ctx, item.ID, domain.ItemStatusActive))
	err = svc.Delete(ctx, item.ID)
	check.True(t, errors.Is(err, domain.ErrInvalidState))

	check.Nil(t, (*fakeItems)(db).SetStatus(ctx, item.ID, domain.ItemStatusSold))
	check.Nil(t, svc.Delete(ctx, item.ID))

	_, err = svc.Get(ctx, item.ID)
	check.True(t, errors.Is(err, domain.ErrNotFound))
}
