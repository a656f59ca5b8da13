package models

// Action is the closed set of operations the intent parser may request.
// Anything the language model emits outside this set collapses to
// ActionUnknown and the dispatcher's fallback reply.
type Action string

const (
	ActionGetBalance            Action = "get_balance"
	ActionGetAccountDetails     Action = "get_account_details"
	ActionGetTransactionHistory Action = "get_transaction_history"
	ActionTransferInternal      Action = "transfer_internal"
	ActionTransferExternal      Action = "transfer_external"
	ActionFintechAdvice         Action = "fintech_advice"
	ActionUnknown               Action = ""
)

// ParseAction validates a raw action tag from the model
func ParseAction(raw string) (Action, bool) {
	switch Action(raw) {
	case ActionGetBalance, ActionGetAccountDetails, ActionGetTransactionHistory,
		ActionTransferInternal, ActionTransferExternal, ActionFintechAdvice:
		return Action(raw), true
	}
	return ActionUnknown, false
}
