package fsm

// Event is one of the inputs the FSM reacts to. Naming and grouping
// follow RFC 4271 §8.1's administrative, timer, TCP, and BGP-message
// event classes, trimmed to what a single-threaded reactor actually
// raises (no separate "automatic" vs "manual" start/stop distinction,
// since this implementation has no notion of peer-group-triggered
// auto-start independent of configuration).
type Event int

const (
	// Administrative events, raised by configuration or the API layer.
	EventStart Event = iota
	EventStop
	EventConfigurationChanged

	// Timer events.
	EventConnectRetryTimerExpires
	EventHoldTimerExpires
	EventKeepaliveTimerExpires
	EventIdleHoldTimerExpires

	// TCP connection events.
	EventTCPConnectionConfirmed // inbound connection accepted
	EventTCPCRAcked             // outbound connection established
	EventTCPConnectionFails

	// BGP message events.
	EventOpenReceived      // well-formed OPEN, capabilities already negotiated
	EventOpenMalformed     // OPEN failed validation; NOTIFICATION already sent by caller
	EventHeaderError       // message header failed validation
	EventKeepaliveReceived
	EventUpdateReceived
	EventUpdateMalformed
	EventNotificationReceived
)

func (e Event) String() string {
	switch e {
	case EventStart:
		return "Start"
	case EventStop:
		return "Stop"
	case EventConfigurationChanged:
		return "ConfigurationChanged"
	case EventConnectRetryTimerExpires:
		return "ConnectRetryTimerExpires"
	case EventHoldTimerExpires:
		return "HoldTimerExpires"
	case EventKeepaliveTimerExpires:
		return "KeepaliveTimerExpires"
	case EventIdleHoldTimerExpires:
		return "IdleHoldTimerExpires"
	case EventTCPConnectionConfirmed:
		return "TCPConnectionConfirmed"
	case EventTCPCRAcked:
		return "TCPCRAcked"
	case EventTCPConnectionFails:
		return "TCPConnectionFails"
	case EventOpenReceived:
		return "OpenReceived"
	case EventOpenMalformed:
		return "OpenMalformed"
	case EventHeaderError:
		return "HeaderError"
	case EventKeepaliveReceived:
		return "KeepaliveReceived"
	case EventUpdateReceived:
		return "UpdateReceived"
	case EventUpdateMalformed:
		return "UpdateMalformed"
	case EventNotificationReceived:
		return "NotificationReceived"
	default:
		return "Unknown"
	}
}
