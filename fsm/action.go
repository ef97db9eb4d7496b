package fsm

import "github.com/ebgpd/ebgpd/bgp"

// ActionKind is one side effect the reactor must carry out in
// response to a transition. step never performs these itself: it only
// describes them, so the transition table stays a pure function that
// can be tested without a socket or a clock.
type ActionKind int

const (
	ActionResetConnectRetryCounter ActionKind = iota
	ActionStartConnectRetryTimer
	ActionStopConnectRetryTimer
	ActionInitiateTCPConnection
	ActionSendOpen
	ActionSendKeepalive
	ActionStartHoldTimer
	ActionStopHoldTimer
	ActionStartKeepaliveTimer
	ActionStopKeepaliveTimer
	ActionStartIdleHoldTimer
	ActionSendNotification
	ActionCloseConnection
	ActionFireSessionUp
	ActionFireSessionDown
	ActionDrainAdjRIBOut
	ActionScheduleReconnect
	ActionSoftResetViaRefresh
	ActionReleaseResources
)

// Action is one instruction returned by a transition. Notification is
// populated only when Kind is ActionSendNotification.
type Action struct {
	Kind         ActionKind
	Notification *bgp.NotificationError
}

func notify(code, subcode int) Action {
	return Action{Kind: ActionSendNotification, Notification: bgp.NewNotificationError(code, subcode, nil)}
}
