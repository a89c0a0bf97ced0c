package handler

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/warunghub/order-engine/internal/domain/order"
	"github.com/warunghub/order-engine/internal/money"
	"github.com/warunghub/order-engine/internal/payment"
	"github.com/warunghub/order-engine/internal/pricing"
)

// decodeCreateOrder parses the order-creation body. Unknown keys are
// skipped; malformed monetary values fail the whole request.
func decodeCreateOrder(data []byte) (order.CreateOrderRequest, error) {
	var req order.CreateOrderRequest

	d := jx.DecodeBytes(data)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "outletId":
			v, err := d.Str()
			req.OutletID = v
			return err
		case "items":
			items, err := decodeItems(d)
			req.Items = items
			return err
		case "discounts":
			set, err := decodeDiscounts(d)
			req.Discounts = set
			return err
		case "voucherCode":
			v, err := d.Str()
			req.VoucherCode = v
			return err
		case "payments", "payment":
			entries, err := decodePayments(d)
			req.Payments = append(req.Payments, entries...)
			return err
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return order.CreateOrderRequest{}, errors.Wrap(err, "decode order request")
	}
	return req, nil
}

// decodeEditOrder parses the replace-items-and-reallocate body.
func decodeEditOrder(data []byte) (order.EditOrderRequest, error) {
	var req order.EditOrderRequest

	d := jx.DecodeBytes(data)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "items":
			items, err := decodeItems(d)
			req.Items = items
			return err
		case "discounts":
			set, err := decodeDiscounts(d)
			req.Discounts = set
			return err
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return order.EditOrderRequest{}, errors.Wrap(err, "decode edit request")
	}
	return req, nil
}

func decodeItems(d *jx.Decoder) ([]order.Item, error) {
	var items []order.Item
	err := d.Arr(func(d *jx.Decoder) error {
		item, err := decodeItem(d)
		if err != nil {
			return err
		}
		items = append(items, item)
		return nil
	})
	return items, err
}

func decodeItem(d *jx.Decoder) (order.Item, error) {
	var item order.Item
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "menuItemId":
			v, err := d.Str()
			item.MenuItemID = v
			return err
		case "name":
			v, err := d.Str()
			item.Name = v
			return err
		case "quantity":
			v, err := d.Int()
			item.Quantity = v
			return err
		case "pricePerItem":
			a, err := decodeAmount(d, "pricePerItem")
			item.PricePerItem = a
			return err
		case "itemCustomDiscount":
			return d.Obj(func(d *jx.Decoder, key string) error {
				switch key {
				case "isActive":
					v, err := d.Bool()
					item.CustomDiscount.Active = v
					return err
				case "discountAmount":
					a, err := decodeAmount(d, "discountAmount")
					item.CustomDiscount.Amount = a
					return err
				default:
					return d.Skip()
				}
			})
		default:
			return d.Skip()
		}
	})
	return item, err
}

func decodeDiscounts(d *jx.Decoder) (pricing.DiscountSet, error) {
	var set pricing.DiscountSet
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "loyaltyDiscount":
			a, err := decodeAmount(d, key)
			set.Loyalty = a
			return err
		case "autoPromoDiscount":
			a, err := decodeAmount(d, key)
			set.AutoPromo = a
			return err
		case "voucherDiscount":
			a, err := decodeAmount(d, key)
			set.Voucher = a
			return err
		case "orderLevelCustomDiscount":
			a, err := decodeAmount(d, key)
			set.OrderLevelCustom = a
			return err
		default:
			// itemCustomDiscounts is derived from the lines server-side and
			// ignored if a client sends it.
			return d.Skip()
		}
	})
	return set, err
}

// decodePayments accepts either a list of payment entries or a single bare
// entry, which is normalized to a one-element list.
func decodePayments(d *jx.Decoder) ([]payment.Entry, error) {
	switch d.Next() {
	case jx.Array:
		var entries []payment.Entry
		err := d.Arr(func(d *jx.Decoder) error {
			e, err := decodePayment(d)
			if err != nil {
				return err
			}
			entries = append(entries, e)
			return nil
		})
		return entries, err
	case jx.Object:
		e, err := decodePayment(d)
		if err != nil {
			return nil, err
		}
		return []payment.Entry{e}, nil
	default:
		return nil, errors.New("payments: expected object or array")
	}
}

func decodePayment(d *jx.Decoder) (payment.Entry, error) {
	var e payment.Entry
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "method":
			v, err := d.Str()
			e.Method = v
			return err
		case "status":
			v, err := d.Str()
			e.Status = v
			return err
		case "amount":
			a, err := decodeAmount(d, "amount")
			e.Amount = a
			return err
		case "tenderedAmount":
			a, err := decodeAmount(d, "tenderedAmount")
			e.Tendered = &a
			return err
		case "changeAmount":
			a, err := decodeAmount(d, "changeAmount")
			e.Change = &a
			return err
		default:
			return d.Skip()
		}
	})
	return e, err
}

// decodeAmount enforces the parse-or-reject rule for monetary fields. A
// JSON number must be a non-negative integer; a JSON string must parse as a
// plain base-10 integer. Floats, exponents, negatives and anything else are
// rejected, never coerced.
func decodeAmount(d *jx.Decoder, field string) (money.Amount, error) {
	switch d.Next() {
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return 0, errors.Wrapf(err, "%s", field)
		}
		if !n.IsInt() {
			return 0, errors.Errorf("%s: amount must be a whole number", field)
		}
		v, err := n.Int64()
		if err != nil {
			return 0, errors.Wrapf(err, "%s", field)
		}
		a, err := money.New(v)
		if err != nil {
			return 0, errors.Wrapf(err, "%s", field)
		}
		return a, nil
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return 0, errors.Wrapf(err, "%s", field)
		}
		a, err := money.Parse(s)
		if err != nil {
			return 0, errors.Wrapf(err, "%s", field)
		}
		return a, nil
	default:
		return 0, errors.Errorf("%s: expected an integer amount", field)
	}
}
