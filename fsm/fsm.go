package fsm

import "github.com/ebgpd/ebgpd/bgp"

// step is the pure transition function. Every (state, event) pair
// either yields a defined transition or falls through to the default
// case, which keeps the state unchanged and returns no actions — so
// the function is total over State x Event by construction, never by
// omission.
func step(state State, event Event) (State, []Action) {
	switch state {
	case Idle:
		return stepIdle(event)
	case Connect:
		return stepConnect(event)
	case Active:
		return stepActive(event)
	case OpenSent:
		return stepOpenSent(event)
	case OpenConfirm:
		return stepOpenConfirm(event)
	case Established:
		return stepEstablished(event)
	default:
		return state, nil
	}
}

func stepIdle(event Event) (State, []Action) {
	switch event {
	case EventStart:
		return Connect, []Action{
			{Kind: ActionResetConnectRetryCounter},
			{Kind: ActionInitiateTCPConnection},
			{Kind: ActionStartConnectRetryTimer},
		}
	default:
		return Idle, nil
	}
}

func stepConnect(event Event) (State, []Action) {
	switch event {
	case EventTCPCRAcked, EventTCPConnectionConfirmed:
		return OpenSent, []Action{
			{Kind: ActionStopConnectRetryTimer},
			{Kind: ActionSendOpen},
			{Kind: ActionStartHoldTimer}, // large initial value per RFC 4271 §8.2.2, replaced once negotiated
		}
	case EventTCPConnectionFails:
		return Active, []Action{
			{Kind: ActionStartConnectRetryTimer},
		}
	case EventConnectRetryTimerExpires:
		return Connect, []Action{
			{Kind: ActionInitiateTCPConnection},
			{Kind: ActionStartConnectRetryTimer},
		}
	case EventStop, EventConfigurationChanged:
		return Idle, []Action{
			{Kind: ActionStopConnectRetryTimer},
			{Kind: ActionCloseConnection},
			{Kind: ActionReleaseResources},
		}
	default:
		return Connect, nil
	}
}

func stepActive(event Event) (State, []Action) {
	switch event {
	case EventTCPConnectionConfirmed, EventTCPCRAcked:
		return OpenSent, []Action{
			{Kind: ActionStopConnectRetryTimer},
			{Kind: ActionSendOpen},
			{Kind: ActionStartHoldTimer},
		}
	case EventConnectRetryTimerExpires:
		return Connect, []Action{
			{Kind: ActionInitiateTCPConnection},
			{Kind: ActionStartConnectRetryTimer},
		}
	case EventTCPConnectionFails:
		return Idle, []Action{
			{Kind: ActionStartIdleHoldTimer},
			{Kind: ActionScheduleReconnect},
		}
	case EventStop, EventConfigurationChanged:
		return Idle, []Action{
			{Kind: ActionStopConnectRetryTimer},
			{Kind: ActionReleaseResources},
		}
	default:
		return Active, nil
	}
}

func stepOpenSent(event Event) (State, []Action) {
	switch event {
	case EventOpenReceived:
		return OpenConfirm, []Action{
			{Kind: ActionSendKeepalive},
			{Kind: ActionStartKeepaliveTimer},
			{Kind: ActionStartHoldTimer}, // now the negotiated value
		}
	case EventOpenMalformed:
		return Idle, []Action{
			{Kind: ActionCloseConnection},
			{Kind: ActionStartConnectRetryTimer},
			{Kind: ActionReleaseResources},
		}
	case EventHeaderError:
		return Idle, []Action{
			notify(bgp.ErrMessageHeader, 0),
			{Kind: ActionCloseConnection},
			{Kind: ActionStartConnectRetryTimer},
			{Kind: ActionReleaseResources},
		}
	case EventNotificationReceived:
		return Idle, []Action{
			{Kind: ActionCloseConnection},
			{Kind: ActionStartConnectRetryTimer},
			{Kind: ActionReleaseResources},
		}
	case EventTCPConnectionFails:
		return Active, []Action{
			{Kind: ActionStartConnectRetryTimer},
		}
	case EventHoldTimerExpires:
		return Idle, []Action{
			notify(bgp.ErrHoldTimerExpired, 0),
			{Kind: ActionCloseConnection},
			{Kind: ActionStartConnectRetryTimer},
			{Kind: ActionReleaseResources},
		}
	case EventStop, EventConfigurationChanged:
		return Idle, []Action{
			notify(bgp.ErrCease, bgp.SubAdministrativeShutdown),
			{Kind: ActionCloseConnection},
			{Kind: ActionReleaseResources},
		}
	default:
		return OpenSent, nil
	}
}

func stepOpenConfirm(event Event) (State, []Action) {
	switch event {
	case EventKeepaliveReceived:
		return Established, []Action{
			{Kind: ActionFireSessionUp},
			{Kind: ActionDrainAdjRIBOut},
		}
	case EventNotificationReceived:
		return Idle, []Action{
			{Kind: ActionCloseConnection},
			{Kind: ActionStartConnectRetryTimer},
			{Kind: ActionReleaseResources},
		}
	case EventTCPConnectionFails:
		return Idle, []Action{
			{Kind: ActionStartConnectRetryTimer},
			{Kind: ActionReleaseResources},
		}
	case EventHoldTimerExpires:
		return Idle, []Action{
			notify(bgp.ErrHoldTimerExpired, 0),
			{Kind: ActionCloseConnection},
			{Kind: ActionStartConnectRetryTimer},
			{Kind: ActionReleaseResources},
		}
	case EventKeepaliveTimerExpires:
		return OpenConfirm, []Action{
			{Kind: ActionSendKeepalive},
			{Kind: ActionStartKeepaliveTimer},
		}
	case EventStop, EventConfigurationChanged:
		return Idle, []Action{
			notify(bgp.ErrCease, bgp.SubAdministrativeShutdown),
			{Kind: ActionCloseConnection},
			{Kind: ActionReleaseResources},
		}
	default:
		return OpenConfirm, nil
	}
}

func stepEstablished(event Event) (State, []Action) {
	switch event {
	case EventKeepaliveReceived, EventUpdateReceived:
		return Established, []Action{
			{Kind: ActionStartHoldTimer},
		}
	case EventKeepaliveTimerExpires:
		return Established, []Action{
			{Kind: ActionSendKeepalive},
			{Kind: ActionStartKeepaliveTimer},
		}
	case EventUpdateMalformed:
		return Idle, []Action{
			{Kind: ActionCloseConnection},
			{Kind: ActionStartConnectRetryTimer},
			{Kind: ActionFireSessionDown},
			{Kind: ActionReleaseResources},
		}
	case EventHoldTimerExpires:
		return Idle, []Action{
			notify(bgp.ErrHoldTimerExpired, 0),
			{Kind: ActionCloseConnection},
			{Kind: ActionStartConnectRetryTimer},
			{Kind: ActionFireSessionDown},
			{Kind: ActionReleaseResources},
		}
	case EventNotificationReceived, EventTCPConnectionFails:
		return Idle, []Action{
			{Kind: ActionCloseConnection},
			{Kind: ActionStartConnectRetryTimer},
			{Kind: ActionFireSessionDown},
			{Kind: ActionReleaseResources},
		}
	case EventConfigurationChanged:
		return Idle, []Action{
			{Kind: ActionSoftResetViaRefresh},
			{Kind: ActionFireSessionDown},
			{Kind: ActionReleaseResources},
		}
	case EventStop:
		return Idle, []Action{
			notify(bgp.ErrCease, bgp.SubAdministrativeShutdown),
			{Kind: ActionCloseConnection},
			{Kind: ActionFireSessionDown},
			{Kind: ActionReleaseResources},
		}
	default:
		return Established, nil
	}
}

// FSM wraps step with the session's current state. Callers drive it
// by feeding events observed from the socket, timers, and the API
// layer; the returned actions are the only thing that may touch
// those.
type FSM struct {
	state State
}

func New() *FSM {
	return &FSM{state: Idle}
}

func (f *FSM) State() State { return f.state }

// Apply advances the machine by one event and returns the actions the
// caller must now perform.
func (f *FSM) Apply(event Event) []Action {
	next, actions := step(f.state, event)
	f.state = next
	return actions
}
