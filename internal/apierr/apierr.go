package apierr

import (
	"errors"
	"fmt"
)

// Kind 错误大类
type Kind int

const (
	KindMissingParameter Kind = iota + 1
	KindInvalidParameter
	KindBusinessRule
	KindNotFound
	KindUpstream
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindMissingParameter:
		return "missing_parameter"
	case KindInvalidParameter:
		return "invalid_parameter"
	case KindBusinessRule:
		return "business_rule"
	case KindNotFound:
		return "not_found"
	case KindUpstream:
		return "upstream"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Code 返回给调用方的错误码，字符串即线上格式
type Code string

const (
	MarketNotProvided                 Code = "MARKET_NOT_PROVIDED"
	NonceNotProvided                  Code = "NONCE_NOT_PROVIDED"
	APIKeyNotProvided                 Code = "APIKEY_NOT_PROVIDED"
	APISignNotProvided                Code = "APISIGN_NOT_PROVIDED"
	RateNotProvided                   Code = "RATE_NOT_PROVIDED"
	QuantityNotProvided               Code = "QUANTITY_NOT_PROVIDED"
	UUIDNotProvided                   Code = "UUID_NOT_PROVIDED"
	APIKeyInvalid                     Code = "APIKEY_INVALID"
	InvalidSignature                  Code = "INVALID_SIGNATURE"
	InvalidMarket                     Code = "INVALID_MARKET"
	QuantityInvalid                   Code = "QUANTITY_INVALID"
	RateInvalid                       Code = "RATE_INVALID"
	UUIDInvalid                       Code = "UUID_INVALID"
	MinTradeRequirementNotMet         Code = "MIN_TRADE_REQUIREMENT_NOT_MET"
	DustTradeDisallowedMinValue50KSat Code = "DUST_TRADE_DISALLOWED_MIN_VALUE_50K_SAT"
	InsufficientFunds                 Code = "INSUFFICIENT_FUNDS"
	OrderNotOpen                      Code = "ORDER_NOT_OPEN"
	InvalidOrder                      Code = "INVALID_ORDER"
	UpstreamUnavailable               Code = "UPSTREAM_UNAVAILABLE"
	InternalError                     Code = "INTERNAL_ERROR"
)

var codeKinds = map[Code]Kind{
	MarketNotProvided:                 KindMissingParameter,
	NonceNotProvided:                  KindMissingParameter,
	APIKeyNotProvided:                 KindMissingParameter,
	APISignNotProvided:                KindMissingParameter,
	RateNotProvided:                   KindMissingParameter,
	QuantityNotProvided:               KindMissingParameter,
	UUIDNotProvided:                   KindMissingParameter,
	APIKeyInvalid:                     KindInvalidParameter,
	InvalidSignature:                  KindInvalidParameter,
	InvalidMarket:                     KindInvalidParameter,
	QuantityInvalid:                   KindInvalidParameter,
	RateInvalid:                       KindInvalidParameter,
	UUIDInvalid:                       KindInvalidParameter,
	MinTradeRequirementNotMet:         KindBusinessRule,
	DustTradeDisallowedMinValue50KSat: KindBusinessRule,
	InsufficientFunds:                 KindBusinessRule,
	OrderNotOpen:                      KindBusinessRule,
	InvalidOrder:                      KindNotFound,
	UpstreamUnavailable:               KindUpstream,
	InternalError:                     KindInternal,
}

// Kind 返回错误码所属大类
func (c Code) Kind() Kind {
	if k, ok := codeKinds[c]; ok {
		return k
	}
	return KindInternal
}

// Error 带错误码的业务错误
type Error struct {
	Code Code
	Err  error // 底层原因（可选，不会返回给调用方）
}

// New 创建不带底层原因的错误
func New(code Code) *Error {
	return &Error{Code: code}
}

// Wrap 用错误码包装底层错误
func Wrap(code Code, err error) *Error {
	return &Error{Code: code, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Kind 返回错误大类
func (e *Error) Kind() Kind {
	return e.Code.Kind()
}

// CodeOf 从任意错误中提取错误码；非业务错误视为 INTERNAL_ERROR
func CodeOf(err error) Code {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return InternalError
}

// Is 判断 err 是否携带指定错误码
func Is(err error, code Code) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Code == code
}
