package console

import "errors"

// Validation rejections. The console leaves state unchanged when it returns one.
var (
	ErrLotNotActive          = errors.New("lot is not active")
	ErrUnknownBidType        = errors.New("unknown bid type")
	ErrBidTooLow             = errors.New("bid does not exceed the current highest bid")
	ErrReserveMet            = errors.New("asking price is locked once the reserve is met")
	ErrAskingNotAboveHighest = errors.New("asking price must exceed the current highest bid")
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrNotProxy              = errors.New("dealer type is not a rostrum proxy")
	ErrEmptyMessage          = errors.New("message text is empty")
	ErrNoRecipient           = errors.New("direct message needs a recipient")
)
