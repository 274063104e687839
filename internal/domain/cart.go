package domain

var (
	ErrEmptyCart         = &Error{Code: EINVALID, Message: "Giỏ hàng trống"}
	ErrCartItemNotFound  = &Error{Code: ENOTFOUND, Message: "Cart item not found"}
	ErrInvalidQuantity   = &Error{Code: EINVALID, Message: "Quantity must be greater than 0"}
	ErrInsufficientStock = &Error{Code: EINVALID, Message: "Không đủ hàng trong kho"}
	ErrSessionRequired   = &Error{Code: EINVALID, Message: "Session ID is required"}
)
