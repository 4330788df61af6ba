package models

// OutcomeStatus — итоговое состояние попытки входа.
type OutcomeStatus string

// Состояния итога.
const (
	OutcomeSuccess          OutcomeStatus = "success"
	OutcomeFail             OutcomeStatus = "fail"
	OutcomeAwaitingApproval OutcomeStatus = "awaiting_approval"
)

// FailReason — причина отказа, возвращаемая вызывающей стороне как значение,
// а не как паника или исключение за границей модуля.
type FailReason string

// Таксономия отказов.
const (
	ReasonBadCredential       FailReason = "bad_credential"
	ReasonDeviceMismatch      FailReason = "device_mismatch"
	ReasonSubscriptionExpired FailReason = "subscription_expired"
	ReasonApprovalRejected    FailReason = "approval_rejected"
	ReasonApprovalTimeout     FailReason = "approval_timeout"
	ReasonChannelUnavailable  FailReason = "channel_unavailable"
	ReasonStorageFailure      FailReason = "storage_failure"
)

// Outcome — размеченный результат попытки входа или продления.
//
// При Status == OutcomeAwaitingApproval заполнены RequestID и Kind,
// при OutcomeFail — Reason, при OutcomeSuccess — Role.
type Outcome struct {
	Status    OutcomeStatus `json:"status"`
	Role      string        `json:"role,omitempty"`
	Reason    FailReason    `json:"reason,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
	Kind      ApprovalKind  `json:"kind,omitempty"`
}

// Success возвращает успешный итог с указанной ролью.
func Success(role string) Outcome {
	return Outcome{Status: OutcomeSuccess, Role: role}
}

// Failure возвращает отказ с указанной причиной.
func Failure(reason FailReason) Outcome {
	return Outcome{Status: OutcomeFail, Reason: reason}
}

// Awaiting возвращает итог "ожидает решения оператора".
func Awaiting(requestID string, kind ApprovalKind) Outcome {
	return Outcome{Status: OutcomeAwaitingApproval, RequestID: requestID, Kind: kind}
}
