package usecase

import (
	"context"
	"errors"
	"strings"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

// /cart の業務ロジック
type CartUsecase struct {
	carts     repo.CartRepository
	cartItems repo.CartItemRepository
	products  repo.ProductRepository
	inventory repo.InventoryRepository
	ids       IDGenerator
}

func NewCartUsecase(
	carts repo.CartRepository,
	cartItems repo.CartItemRepository,
	products repo.ProductRepository,
	inventory repo.InventoryRepository,
	ids IDGenerator,
) *CartUsecase {
	return &CartUsecase{
		carts:     carts,
		cartItems: cartItems,
		products:  products,
		inventory: inventory,
		ids:       ids,
	}
}

// priceは追加時点の価格
type CartItemResponse struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	SKU       string `json:"sku"`
	Price     int64  `json:"price"`
	Quantity  int64  `json:"quantity"`
}

type CartResponse struct {
	Items []CartItemResponse `json:"items"`
	Total int64              `json:"total"`
}

type AddCartInput struct {
	ProductID string
	Quantity  int64
}

// 無ければACTIVEを作って空を返す
func (u *CartUsecase) GetCart(ctx context.Context, actor Actor) (CartResponse, error) {
	if !actor.Authenticated() {
		return CartResponse{}, errUnauthorized
	}
	cart, err := u.carts.GetOrCreateActiveByUserID(ctx, actor.UserID)
	if err != nil {
		return CartResponse{}, errDB
	}
	return u.buildCartResponse(ctx, cart.ID)
}

// 同一商品は数量加算
func (u *CartUsecase) AddToCart(ctx context.Context, actor Actor, in AddCartInput) (CartResponse, error) {
	if !actor.Authenticated() {
		return CartResponse{}, errUnauthorized
	}
	if strings.TrimSpace(in.ProductID) == "" {
		return CartResponse{}, badRequest("invalid product_id")
	}
	if in.Quantity < 1 {
		return CartResponse{}, badRequest("invalid quantity")
	}

	cart, err := u.carts.GetOrCreateActiveByUserID(ctx, actor.UserID)
	if err != nil {
		return CartResponse{}, errDB
	}

	p, err := u.activeProduct(ctx, in.ProductID)
	if err != nil {
		return CartResponse{}, err
	}

	items, err := u.cartItems.ListByCartID(ctx, cart.ID)
	if err != nil {
		return CartResponse{}, errDB
	}
	var existingQty int64
	for _, it := range items {
		if it.ProductID == in.ProductID {
			existingQty = it.Quantity
			break
		}
	}
	if err := u.checkAvailable(ctx, p.ID, existingQty+in.Quantity); err != nil {
		return CartResponse{}, err
	}

	if err := u.cartItems.UpsertByCartAndProduct(ctx, model.CartItem{
		ID:                u.ids.NewID(),
		CartID:            cart.ID,
		ProductID:         p.ID,
		Quantity:          in.Quantity,
		UnitPriceSnapshot: p.Price,
	}); err != nil {
		return CartResponse{}, errDB
	}
	return u.buildCartResponse(ctx, cart.ID)
}

// 数量変更（所有チェック＋在庫チェック）
func (u *CartUsecase) UpdateCartItem(ctx context.Context, actor Actor, cartItemID string, qty int64) (CartResponse, error) {
	if !actor.Authenticated() {
		return CartResponse{}, errUnauthorized
	}
	if qty < 1 {
		return CartResponse{}, badRequest("invalid quantity")
	}
	item, err := u.ownedItem(ctx, actor, cartItemID)
	if err != nil {
		return CartResponse{}, err
	}
	if _, err := u.activeProduct(ctx, item.ProductID); err != nil {
		return CartResponse{}, err
	}
	if err := u.checkAvailable(ctx, item.ProductID, qty); err != nil {
		return CartResponse{}, err
	}
	if err := u.cartItems.UpdateQuantity(ctx, cartItemID, qty); err != nil {
		return CartResponse{}, mapRepoErr(err)
	}
	return u.buildCartResponse(ctx, item.CartID)
}

func (u *CartUsecase) DeleteCartItem(ctx context.Context, actor Actor, cartItemID string) (CartResponse, error) {
	if !actor.Authenticated() {
		return CartResponse{}, errUnauthorized
	}
	item, err := u.ownedItem(ctx, actor, cartItemID)
	if err != nil {
		return CartResponse{}, err
	}
	if err := u.cartItems.DeleteByID(ctx, cartItemID); err != nil {
		return CartResponse{}, mapRepoErr(err)
	}
	return u.buildCartResponse(ctx, item.CartID)
}

// 他人の明細は404
func (u *CartUsecase) ownedItem(ctx context.Context, actor Actor, cartItemID string) (model.CartItem, error) {
	owned, err := u.cartItems.IsOwnedByUser(ctx, cartItemID, actor.UserID)
	if err != nil {
		return model.CartItem{}, errDB
	}
	if !owned {
		return model.CartItem{}, errNotFound
	}
	item, err := u.cartItems.FindByID(ctx, cartItemID)
	if err != nil {
		return model.CartItem{}, mapRepoErr(err)
	}
	return item, nil
}

func (u *CartUsecase) activeProduct(ctx context.Context, productID string) (model.Product, error) {
	p, err := u.products.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) || (err == nil && !p.IsActive) {
		return model.Product{}, badRequest("product unavailable")
	}
	if err != nil {
		return model.Product{}, errDB
	}
	return p, nil
}

// 販売可能数を超えないか
func (u *CartUsecase) checkAvailable(ctx context.Context, productID string, want int64) error {
	invs, err := u.inventory.FindByProduct(ctx, productID)
	if err != nil {
		return errDB
	}
	var available int64
	for _, inv := range invs {
		if inv.Location == model.DefaultLocation {
			available += inv.AvailableQuantity
		}
	}
	if want > available {
		return badRequest("stock exceeded")
	}
	return nil
}

func (u *CartUsecase) buildCartResponse(ctx context.Context, cartID string) (CartResponse, error) {
	items, err := u.cartItems.ListByCartID(ctx, cartID)
	if err != nil {
		return CartResponse{}, errDB
	}

	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	products, err := u.products.FindByIDs(ctx, ids)
	if err != nil {
		return CartResponse{}, errDB
	}
	byID := make(map[string]model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	resp := CartResponse{Items: make([]CartItemResponse, 0, len(items))}
	for _, it := range items {
		p, ok := byID[it.ProductID]
		if !ok || !p.IsActive {
			continue
		}
		resp.Items = append(resp.Items, CartItemResponse{
			ID:        it.ID,
			ProductID: it.ProductID,
			Name:      p.Name,
			SKU:       p.SKU,
			Price:     it.UnitPriceSnapshot,
			Quantity:  it.Quantity,
		})
		resp.Total += it.Subtotal()
	}
	return resp, nil
}
