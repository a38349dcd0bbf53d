package types

type PaymentProvider string

const (
	PaymentProviderRazorpay PaymentProvider = "razorpay"
	PaymentProviderDodo     PaymentProvider = "dodo"
	PaymentProviderInner    PaymentProvider = "inner"
)
