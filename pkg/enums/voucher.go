package enums

import "fmt"

// VoucherType selects how a voucher discounts a checkout.
type VoucherType string

const (
	VoucherTypePercentage   VoucherType = "percentage"
	VoucherTypeFixed        VoucherType = "fixed"
	VoucherTypeFreeShipping VoucherType = "free_shipping"
)

var validVoucherTypes = []VoucherType{
	VoucherTypePercentage,
	VoucherTypeFixed,
	VoucherTypeFreeShipping,
}

func (v VoucherType) String() string {
	return string(v)
}

func (v VoucherType) IsValid() bool {
	for _, candidate := range validVoucherTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

func ParseVoucherType(value string) (VoucherType, error) {
	for _, candidate := range validVoucherTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid voucher type %q", value)
}

// VoucherScope limits which products a voucher can discount.
type VoucherScope string

const (
	VoucherScopeAllProducts      VoucherScope = "all_products"
	VoucherScopeSpecificProducts VoucherScope = "specific_products"
)

func (v VoucherScope) String() string {
	return string(v)
}

func (v VoucherScope) IsValid() bool {
	return v == VoucherScopeAllProducts || v == VoucherScopeSpecificProducts
}
