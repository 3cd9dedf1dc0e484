package enrollment

import "fmt"

// Kind classifies why an enrollment stopped.
type Kind string

const (
	KindInvalidRequest         Kind = "InvalidRequest"
	KindNoRoomAvailable        Kind = "NoRoomAvailable"
	KindIdentityCreationFailed Kind = "IdentityCreationFailed"
	KindStudentRecordFailed    Kind = "StudentRecordFailed"
	KindPaymentRecordFailed    Kind = "PaymentRecordFailed"
	KindBacklinkUpdateFailed   Kind = "BacklinkUpdateFailed"
	KindConstraintViolation    Kind = "ConstraintViolation"
	KindNetworkOrTimeout       Kind = "NetworkOrTimeout"
)

// Step names, in execution order.
const (
	StepValidate = "validate"
	StepRoom     = "room_reservation"
	StepIdentity = "identity_creation"
	StepStudent  = "student_record"
	StepPayment  = "payment_record"
	StepBacklink = "fee_backlink"
)

// Error is returned by Enroll. Err is the underlying cause.
type Error struct {
	Kind Kind
	Step string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("enrollment failed at %s (%s): %v", e.Step, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
