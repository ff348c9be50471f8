package usecase

import (
	"context"
	"strings"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

type AddressInput struct {
	Name       string
	PostalCode string
	Prefecture string
	City       string
	Line1      string
	Line2      string
	Phone      string
	IsDefault  bool
}

type AddressUsecase struct {
	addresses repo.AddressRepository
	ids       IDGenerator
}

func NewAddressUsecase(addresses repo.AddressRepository, ids IDGenerator) *AddressUsecase {
	return &AddressUsecase{addresses: addresses, ids: ids}
}

func (u *AddressUsecase) List(ctx context.Context, actor Actor) ([]model.Address, error) {
	if !actor.Authenticated() {
		return nil, errUnauthorized
	}
	list, err := u.addresses.ListByUserID(ctx, actor.UserID)
	if err != nil {
		return nil, errDB
	}
	return list, nil
}

func (u *AddressUsecase) Create(ctx context.Context, actor Actor, in AddressInput) (model.Address, error) {
	if !actor.Authenticated() {
		return model.Address{}, errUnauthorized
	}
	a := model.Address{
		ID:         u.ids.NewID(),
		UserID:     actor.UserID,
		Name:       strings.TrimSpace(in.Name),
		PostalCode: strings.TrimSpace(in.PostalCode),
		Prefecture: strings.TrimSpace(in.Prefecture),
		City:       strings.TrimSpace(in.City),
		Line1:      strings.TrimSpace(in.Line1),
		Line2:      strings.TrimSpace(in.Line2),
		Phone:      strings.TrimSpace(in.Phone),
		IsDefault:  in.IsDefault,
	}
	//必須チェック
	switch {
	case a.Name == "":
		return model.Address{}, badRequest("name required")
	case a.PostalCode == "":
		return model.Address{}, badRequest("postal_code required")
	case a.Prefecture == "":
		return model.Address{}, badRequest("prefecture required")
	case a.City == "":
		return model.Address{}, badRequest("city required")
	case a.Line1 == "":
		return model.Address{}, badRequest("line1 required")
	}

	created, err := u.addresses.Create(ctx, a)
	if err != nil {
		return model.Address{}, mapRepoErr(err)
	}
	return created, nil
}

// 他人の住所は404
func (u *AddressUsecase) Delete(ctx context.Context, actor Actor, addressID string) error {
	if _, err := u.owned(ctx, actor, addressID); err != nil {
		return err
	}
	return mapRepoErr(u.addresses.Delete(ctx, addressID))
}

func (u *AddressUsecase) SetDefault(ctx context.Context, actor Actor, addressID string) error {
	if _, err := u.owned(ctx, actor, addressID); err != nil {
		return err
	}
	return mapRepoErr(u.addresses.SetDefault(ctx, actor.UserID, addressID))
}

func (u *AddressUsecase) owned(ctx context.Context, actor Actor, addressID string) (model.Address, error) {
	if !actor.Authenticated() {
		return model.Address{}, errUnauthorized
	}
	a, err := u.addresses.FindByID(ctx, addressID)
	if err != nil {
		return model.Address{}, mapRepoErr(err)
	}
	if a.UserID != actor.UserID {
		return model.Address{}, errNotFound
	}
	return a, nil
}
