package swap

import (
	"fmt"

	"github.com/pkg/errors"
)

// Result represents the outcome code of an engine operation
type Result int

// Result codes are organized by category the way ledger transaction results
// are: tes (success), tec (rejected against current state), tef (failed
// outside the caller's control), tem (malformed request).
const (
	TesSUCCESS Result = 0

	// tec codes (100-199): the request was well formed but the current state
	// does not allow it
	TecUNFUNDED_PAYMENT        Result = 104
	TecINSUFFICIENT_PAYMENT    Result = 161
	TecDUPLICATE               Result = 149
	TecNO_ENTRY                Result = 140
	TecNO_PERMISSION           Result = 139
	TecASSET_NOT_EXPECTED      Result = 180
	TecASSET_ALREADY_DEPOSITED Result = 181
	TecASSET_IN_CUSTODY        Result = 182
	TecPRIVILEGE_MISMATCH      Result = 183

	// tef codes (-199 to -100)
	TefALREADY        Result = -198
	TefINTERNAL       Result = -190
	TefORACLE_FAILED  Result = -180
	TefORACLE_TIMEOUT Result = -179

	// tem codes (-299 to -200)
	TemMALFORMED        Result = -299
	TemBAD_AMOUNT       Result = -298
	TemBAD_SIGNER       Result = -283
	TemDST_IS_SRC       Result = -279
	TemBUNDLE_TOO_LARGE Result = -260
)

func (r Result) String() string {
	switch r {
	case TesSUCCESS:
		return "tesSUCCESS"
	case TecUNFUNDED_PAYMENT:
		return "tecUNFUNDED_PAYMENT"
	case TecINSUFFICIENT_PAYMENT:
		return "tecINSUFFICIENT_PAYMENT"
	case TecDUPLICATE:
		return "tecDUPLICATE"
	case TecNO_ENTRY:
		return "tecNO_ENTRY"
	case TecNO_PERMISSION:
		return "tecNO_PERMISSION"
	case TecASSET_NOT_EXPECTED:
		return "tecASSET_NOT_EXPECTED"
	case TecASSET_ALREADY_DEPOSITED:
		return "tecASSET_ALREADY_DEPOSITED"
	case TecASSET_IN_CUSTODY:
		return "tecASSET_IN_CUSTODY"
	case TecPRIVILEGE_MISMATCH:
		return "tecPRIVILEGE_MISMATCH"
	case TefALREADY:
		return "tefALREADY"
	case TefINTERNAL:
		return "tefINTERNAL"
	case TefORACLE_FAILED:
		return "tefORACLE_FAILED"
	case TefORACLE_TIMEOUT:
		return "tefORACLE_TIMEOUT"
	case TemMALFORMED:
		return "temMALFORMED"
	case TemBAD_AMOUNT:
		return "temBAD_AMOUNT"
	case TemBAD_SIGNER:
		return "temBAD_SIGNER"
	case TemDST_IS_SRC:
		return "temDST_IS_SRC"
	case TemBUNDLE_TOO_LARGE:
		return "temBUNDLE_TOO_LARGE"
	default:
		return fmt.Sprintf("unknown(%d)", int(r))
	}
}

// Message returns a human-readable message for the result
func (r Result) Message() string {
	switch r {
	case TesSUCCESS:
		return "The operation was applied."
	case TecUNFUNDED_PAYMENT:
		return "The attached payment could not be collected."
	case TecINSUFFICIENT_PAYMENT:
		return "Attached payment does not cover the amount and fee."
	case TecDUPLICATE:
		return "An offer with this identifier already exists."
	case TecNO_ENTRY:
		return "No such offer."
	case TecNO_PERMISSION:
		return "The signer is not allowed to act on this offer."
	case TecASSET_NOT_EXPECTED:
		return "The asset is not part of the signer's promised bundle."
	case TecASSET_ALREADY_DEPOSITED:
		return "The asset has already been deposited for this offer."
	case TecASSET_IN_CUSTODY:
		return "The asset is already held in escrow."
	case TecPRIVILEGE_MISMATCH:
		return "Claimed privilege does not match the registry."
	case TefALREADY:
		return "The offer was created by another request."
	case TefINTERNAL:
		return "Internal error."
	case TefORACLE_FAILED:
		return "The privilege query failed."
	case TefORACLE_TIMEOUT:
		return "The privilege query did not answer in time."
	case TemMALFORMED:
		return "Malformed request."
	case TemBAD_AMOUNT:
		return "Malformed: Bad amount."
	case TemBAD_SIGNER:
		return "The signer does not match the initiator."
	case TemDST_IS_SRC:
		return "Counterparty is the same as the signer."
	case TemBUNDLE_TOO_LARGE:
		return "Too many assets in the offer."
	default:
		return r.String()
	}
}

// Error lets a bare Result be used as an errors.Is target.
func (r Result) Error() string { return r.String() }

func (r Result) IsSuccess() bool { return r == TesSUCCESS }
func (r Result) IsTec() bool     { return r >= 100 && r < 200 }
func (r Result) IsTef() bool     { return r >= -199 && r <= -100 }
func (r Result) IsTem() bool     { return r >= -299 && r <= -200 }

// Error is the failure returned by engine operations. errors.Is matches it
// against its Result code.
type Error struct {
	Result Result
	Reason string
}

func (e *Error) Error() string {
	if e.Reason == "" {
		return e.Result.String()
	}
	return e.Result.String() + ": " + e.Reason
}

func (e *Error) Is(target error) bool {
	switch t := target.(type) {
	case Result:
		return e.Result == t
	case *Error:
		return e.Result == t.Result
	}
	return false
}

func failf(r Result, format string, args ...any) *Error {
	return &Error{Result: r, Reason: fmt.Sprintf(format, args...)}
}

// ResultOf extracts the Result carried by err. Errors that do not carry one
// map to TefINTERNAL.
func ResultOf(err error) Result {
	if err == nil {
		return TesSUCCESS
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Result
	}
	var r Result
	if errors.As(err, &r) {
		return r
	}
	return TefINTERNAL
}
