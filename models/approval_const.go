package models

type ApprovalEntityType string

const (
	ApprovalEntityAbsenceRequest     ApprovalEntityType = "absence_request"
	ApprovalEntityDisputedCorrection ApprovalEntityType = "disputed_correction"
)

var approvalEntityHumanName = map[ApprovalEntityType]string{
	ApprovalEntityAbsenceRequest:     "Заявка на отсутствие",
	ApprovalEntityDisputedCorrection: "Спорная корректировка",
}

func (t ApprovalEntityType) ToHuman() string {
	if human, exist := approvalEntityHumanName[t]; exist {
		return human
	}
	return string(t)
}

type ApprovalAction string

const (
	ApprovalActionApprove  ApprovalAction = "approve"
	ApprovalActionReject   ApprovalAction = "reject"
	ApprovalActionEscalate ApprovalAction = "escalate"
)

var approvalActionHumanName = map[ApprovalAction]string{
	ApprovalActionApprove:  "согласовано",
	ApprovalActionReject:   "отклонено",
	ApprovalActionEscalate: "эскалировано",
}

func (a ApprovalAction) ToHuman() string {
	if human, exist := approvalActionHumanName[a]; exist {
		return human
	}
	return string(a)
}

type ApprovalState string

const (
	ApprovalStatePending   ApprovalState = "pending"
	ApprovalStateApproved  ApprovalState = "approved"
	ApprovalStateRejected  ApprovalState = "rejected"
	ApprovalStateEscalated ApprovalState = "escalated"
)
