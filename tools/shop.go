package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/petasbytes/shop-agent/internal/shop"
	"github.com/petasbytes/shop-agent/memory"
)

const anonymousCustomer = "anonymous"

// Result codes and messages shown to the model for shop outcomes.
const (
	CodeAdded             = "added"
	CodeInsufficientStock = "insufficient_stock"
	CodeProductNotFound   = "product_not_found"
	CodeEmptyCart         = "empty_cart"
	CodeOrdered           = "ordered"

	MsgAdded             = "商品成功加入購物車"
	MsgInsufficientStock = "加入失敗，商品數量不足"
	MsgProductNotFound   = "找不到此商品"
	MsgEmptyCart         = "購物車是空的，請先加入商品"
	MsgCheckoutShort     = "結帳失敗，商品數量不足"
)

type ShowMenuInput struct{}

type SearchProductsInput struct {
	Keyword string `json:"keyword" validate:"notblank" jsonschema_description:"商品關鍵字，不能是空白"`
}

type AddCartInput struct {
	ProductID string `json:"product_id" validate:"required" jsonschema_description:"商品編號"`
	Qty       int    `json:"qty" validate:"gte=1,lte=1000" jsonschema_description:"數量，1 到 1000"`
}

type ShowCartInput struct{}

type SendOrderInput struct {
	ReceiverName string `json:"receiver_name" validate:"notblank" jsonschema_description:"收件人"`
	Address      string `json:"address" validate:"notblank" jsonschema_description:"地址"`
}

// Outcome is the result payload of tools that mutate shop state.
type Outcome struct {
	OK      bool       `json:"ok"`
	Code    string     `json:"code"`
	Msg     string     `json:"msg"`
	OrderID string     `json:"order_id,omitempty"`
	Total   int        `json:"total,omitempty"`
	Cart    *shop.Cart `json:"cart,omitempty"`
}

func customerID(ctx context.Context) string {
	if id, ok := memory.ConversationIDFromContext(ctx); ok {
		return id
	}
	return anonymousCustomer
}

// ShopTools returns the breakfast-shop tools bound to store and orders.
func ShopTools(store shop.Store, orders shop.OrderSink) []Tool {
	return []Tool{
		Func("show_menu", "回傳菜單",
			func(ctx context.Context, _ ShowMenuInput) (any, error) {
				return store.Menu(ctx, shop.DefaultLimit)
			}),
		Func("search_products", "搜尋商品，請用表格呈現商品列表，包括商品編號、商品名稱、單價，以及是否可購買(根據 qty 是否大於0)",
			func(ctx context.Context, in SearchProductsInput) (any, error) {
				return store.Search(ctx, in.Keyword, shop.DefaultLimit)
			}),
		Func("add_cart", "加入購物車",
			func(ctx context.Context, in AddCartInput) (any, error) {
				return addCart(ctx, store, in)
			}),
		Func("show_cart", "查詢購物車內容，回傳品項、數量、單價、小計與總金額",
			func(ctx context.Context, _ ShowCartInput) (any, error) {
				return store.Cart(ctx, customerID(ctx))
			}),
		Func("send_order", "用戶結帳",
			func(ctx context.Context, in SendOrderInput) (any, error) {
				return sendOrder(ctx, store, orders, in)
			}),
	}
}

// NewShopRegistry registers ShopTools in a fresh registry.
func NewShopRegistry(store shop.Store, orders shop.OrderSink) (*Registry, error) {
	r := NewRegistry()
	for _, t := range ShopTools(store, orders) {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func addCart(ctx context.Context, store shop.Store, in AddCartInput) (Outcome, error) {
	cart, err := store.AddToCart(ctx, customerID(ctx), in.ProductID, in.Qty)
	switch {
	case err == nil:
		return Outcome{OK: true, Code: CodeAdded, Msg: MsgAdded, Cart: &cart}, nil
	case errors.Is(err, shop.ErrInsufficientStock):
		return Outcome{Code: CodeInsufficientStock, Msg: MsgInsufficientStock}, nil
	case errors.Is(err, shop.ErrProductNotFound):
		return Outcome{Code: CodeProductNotFound, Msg: MsgProductNotFound}, nil
	default:
		return Outcome{}, err
	}
}

func sendOrder(ctx context.Context, store shop.Store, orders shop.OrderSink, in SendOrderInput) (Outcome, error) {
	draft, err := store.Checkout(ctx, customerID(ctx), in.ReceiverName, in.Address)
	switch {
	case errors.Is(err, shop.ErrEmptyCart):
		return Outcome{Code: CodeEmptyCart, Msg: MsgEmptyCart}, nil
	case errors.Is(err, shop.ErrInsufficientStock):
		return Outcome{Code: CodeInsufficientStock, Msg: MsgCheckoutShort}, nil
	case err != nil:
		return Outcome{}, err
	}
	order, err := orders.Place(ctx, draft)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{
		OK:      true,
		Code:    CodeOrdered,
		Msg:     fmt.Sprintf("OK，訂單編號是 %s", order.ID),
		OrderID: order.ID,
		Total:   order.Total,
	}, nil
}
